// services/network-svc/internal/service/validator.go
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"watergrid/pkg/domain"
	"watergrid/pkg/geo"
	"watergrid/pkg/metrics"
	"watergrid/pkg/telemetry"
	"watergrid/services/network-svc/internal/topology"
)

// ValidateNetwork проверяет структурную целостность сети и возвращает отчёт.
// Замечания являются данными ответа: отчёт с ошибками не считается сбоем.
func (s *NetworkService) ValidateNetwork(ctx context.Context) (*domain.ValidationReport, error) {
	ctx, span := telemetry.StartSpan(ctx, "NetworkService.ValidateNetwork")
	defer span.End()

	start := time.Now()

	snapshot, err := s.loadSnapshot(ctx)
	if err != nil {
		metrics.Get().RecordCompute("validation", false, time.Since(start))
		telemetry.SetError(ctx, err)
		return nil, err
	}

	report := buildValidationReport(*snapshot, s.network.ConnectDistanceM, time.Now())

	metrics.Get().RecordCompute("validation", true, time.Since(start))
	telemetry.AddEvent(ctx, "validation_completed",
		telemetry.ValidationAttributes(len(report.Issues), !report.HasErrors())...)

	return report, nil
}

// buildValidationReport прогоняет все проверки над срезом сети
func buildValidationReport(snapshot domain.Snapshot, connectDistance float64, now time.Time) *domain.ValidationReport {
	report := &domain.ValidationReport{
		Issues:     []domain.ValidationIssue{},
		CheckedAt:  now.UTC().Format(time.RFC3339),
		TankCount:  len(snapshot.Tanks),
		ValveCount: len(snapshot.Valves),
		PipeCount:  len(snapshot.Pipelines),
	}

	report.Issues = append(report.Issues, checkValves(snapshot.Valves)...)
	report.Issues = append(report.Issues, checkPipelines(snapshot.Pipelines)...)
	report.Issues = append(report.Issues, checkTankConnectivity(snapshot, connectDistance)...)
	report.Issues = append(report.Issues, checkDuplicateNames(snapshot)...)

	return report
}

// checkValves находит висячие ссылки на родителя и неизвестные категории
func checkValves(valves []domain.Valve) []domain.ValidationIssue {
	ids := make(map[string]bool, len(valves))
	for _, v := range valves {
		ids[v.ID] = true
	}

	var issues []domain.ValidationIssue
	for _, v := range valves {
		if v.ParentValveID != "" && !ids[v.ParentValveID] {
			issues = append(issues, domain.ValidationIssue{
				Code:       domain.IssueDanglingParent,
				Severity:   domain.IssueSeverityWarning,
				EntityKind: "valve",
				EntityID:   v.ID,
				Message:    fmt.Sprintf("parent valve %q does not exist", v.ParentValveID),
			})
		}

		if !v.Category.IsKnown() {
			issues = append(issues, domain.ValidationIssue{
				Code:       domain.IssueUnknownCategory,
				Severity:   domain.IssueSeverityError,
				EntityKind: "valve",
				EntityID:   v.ID,
				Message:    fmt.Sprintf("unknown category %q", v.Category),
			})
		}
	}

	return issues
}

// checkPipelines находит вырожденную геометрию и нулевую пропускную способность
func checkPipelines(pipelines []domain.Pipeline) []domain.ValidationIssue {
	var issues []domain.ValidationIssue
	for _, p := range pipelines {
		if valid := len(p.ValidWaypoints()); valid < 2 {
			issues = append(issues, domain.ValidationIssue{
				Code:       domain.IssueShortPipeline,
				Severity:   domain.IssueSeverityError,
				EntityKind: "pipeline",
				EntityID:   p.ID,
				Message:    fmt.Sprintf("only %d valid waypoints, at least 2 required", valid),
			})
		}

		if p.Capacity <= 0 {
			issues = append(issues, domain.ValidationIssue{
				Code:       domain.IssueNonPositiveVolume,
				Severity:   domain.IssueSeverityWarning,
				EntityKind: "pipeline",
				EntityID:   p.ID,
				Message:    fmt.Sprintf("capacity must be positive, got %v", p.Capacity),
			})
		}
	}

	return issues
}

// checkTankConnectivity находит активные резервуары вне радиуса привязки к сети
func checkTankConnectivity(snapshot domain.Snapshot, connectDistance float64) []domain.ValidationIssue {
	graph, _ := topology.Build(domain.ActivePipelines(snapshot.Pipelines), connectDistance)
	nodes := graph.NodesInOrder()

	var issues []domain.ValidationIssue
	for _, tank := range snapshot.Tanks {
		if !tank.IsActive || tankConnected(tank, nodes, connectDistance) {
			continue
		}

		issues = append(issues, domain.ValidationIssue{
			Code:       domain.IssueIsolatedTank,
			Severity:   domain.IssueSeverityWarning,
			EntityKind: "tank",
			EntityID:   tank.ID,
			Message:    "active tank is not connected to any pipeline",
		})
	}

	return issues
}

// tankConnected проверяет попадание резервуара в радиус привязки к узлу графа
func tankConnected(tank domain.Tank, nodes []*domain.GraphNode, connectDistance float64) bool {
	for _, node := range nodes {
		if geo.Distance(tank.Position, node.Position) < connectDistance {
			return true
		}
	}
	return false
}

// namedEntity пара идентификатор-имя для проверки дубликатов
type namedEntity struct {
	id   string
	name string
}

// checkDuplicateNames находит совпадающие имена внутри каждого вида сущностей
func checkDuplicateNames(snapshot domain.Snapshot) []domain.ValidationIssue {
	tanks := make([]namedEntity, len(snapshot.Tanks))
	for i, t := range snapshot.Tanks {
		tanks[i] = namedEntity{id: t.ID, name: t.Name}
	}

	valves := make([]namedEntity, len(snapshot.Valves))
	for i, v := range snapshot.Valves {
		valves[i] = namedEntity{id: v.ID, name: v.Name}
	}

	pipelines := make([]namedEntity, len(snapshot.Pipelines))
	for i, p := range snapshot.Pipelines {
		pipelines[i] = namedEntity{id: p.ID, name: p.Name}
	}

	var issues []domain.ValidationIssue
	issues = append(issues, duplicateNameIssues("tank", tanks)...)
	issues = append(issues, duplicateNameIssues("valve", valves)...)
	issues = append(issues, duplicateNameIssues("pipeline", pipelines)...)
	return issues
}

// duplicateNameIssues сравнивает имена без учёта регистра, по одному
// замечанию на каждого участника совпадения
func duplicateNameIssues(kind string, entities []namedEntity) []domain.ValidationIssue {
	counts := make(map[string]int, len(entities))
	for _, e := range entities {
		if e.name == "" {
			continue
		}
		counts[strings.ToLower(e.name)]++
	}

	var issues []domain.ValidationIssue
	for _, e := range entities {
		if e.name == "" {
			continue
		}

		n := counts[strings.ToLower(e.name)]
		if n < 2 {
			continue
		}

		issues = append(issues, domain.ValidationIssue{
			Code:       domain.IssueDuplicateName,
			Severity:   domain.IssueSeverityWarning,
			EntityKind: kind,
			EntityID:   e.id,
			Message:    fmt.Sprintf("name %q is used by %d %ss", e.name, n, kind),
		})
	}

	return issues
}
