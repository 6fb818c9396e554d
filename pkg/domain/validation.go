package domain

// IssueSeverity серьёзность замечания проверки сети
type IssueSeverity string

const (
	IssueSeverityWarning IssueSeverity = "warning"
	IssueSeverityError   IssueSeverity = "error"
)

// Коды замечаний структурной проверки
const (
	IssueDanglingParent    = "DANGLING_PARENT_VALVE"
	IssueUnknownCategory   = "UNKNOWN_VALVE_CATEGORY"
	IssueShortPipeline     = "PIPELINE_TOO_FEW_WAYPOINTS"
	IssueNonPositiveVolume = "PIPELINE_NON_POSITIVE_CAPACITY"
	IssueIsolatedTank      = "TANK_NOT_CONNECTED"
	IssueDuplicateName     = "DUPLICATE_NAME"
)

// ValidationIssue одно замечание по данным сети
type ValidationIssue struct {
	Code       string        `json:"code"`
	Severity   IssueSeverity `json:"severity"`
	EntityKind string        `json:"entityKind"`
	EntityID   string        `json:"entityId"`
	Message    string        `json:"message"`
}

// ValidationReport итог структурной проверки среза сети.
// Замечания являются данными ответа, а не ошибками обработки.
type ValidationReport struct {
	Issues     []ValidationIssue `json:"issues"`
	CheckedAt  string            `json:"checkedAt"`
	TankCount  int               `json:"tankCount"`
	ValveCount int               `json:"valveCount"`
	PipeCount  int               `json:"pipelineCount"`
}

// HasErrors проверяет наличие замечаний уровня error
func (r *ValidationReport) HasErrors() bool {
	for _, issue := range r.Issues {
		if issue.Severity == IssueSeverityError {
			return true
		}
	}
	return false
}
