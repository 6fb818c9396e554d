package domain

// FlowSegment один классифицированный сегмент трубопровода
type FlowSegment struct {
	PipelineID string   `json:"pipelineId"`
	Start      Position `json:"start"`
	End        Position `json:"end"`

	// SourceTank имя резервуара, от которого сегмент получил поток
	SourceTank string `json:"sourceTankLabel,omitempty"`

	// BlockedBy имя закрытой задвижки, перекрывшей сегмент
	BlockedBy string `json:"blockedByValveLabel,omitempty"`
}

// FlowResult результат распространения потока по сети
type FlowResult struct {
	Flowing       []FlowSegment `json:"flowing"`
	Blocked       []FlowSegment `json:"blocked"`
	TotalSegments int           `json:"totalSegments"`
}

// FlowingPipelineIDs возвращает множество трубопроводов, хотя бы один сегмент
// которых несёт поток
func (r *FlowResult) FlowingPipelineIDs() map[string]bool {
	ids := make(map[string]bool, len(r.Flowing))
	for _, seg := range r.Flowing {
		ids[seg.PipelineID] = true
	}
	return ids
}

// BuildDiagnostic предупреждение, возникшее при построении графа или сценария
type BuildDiagnostic struct {
	EntityID string `json:"entityId,omitempty"`
	Message  string `json:"message"`
}
