package scenario

import (
	"fmt"

	"watergrid/pkg/domain"
)

// Apply накладывает изменения "что если" на копию среза сети и возвращает
// её вместе с диагностикой по неизвестным идентификаторам. Исходный срез
// не меняется. Если идентификатор попал в оба списка пары, побеждает
// более поздний список: открытие задвижки сильнее закрытия, активация
// резервуара сильнее деактивации.
func Apply(snapshot domain.Snapshot, overrides domain.ScenarioOverrides) (domain.Snapshot, []domain.BuildDiagnostic) {
	result := domain.Snapshot{
		Tanks:     append([]domain.Tank(nil), snapshot.Tanks...),
		Valves:    append([]domain.Valve(nil), snapshot.Valves...),
		Pipelines: append([]domain.Pipeline(nil), snapshot.Pipelines...),
	}
	if overrides.IsEmpty() {
		return result, nil
	}

	valveIdx := make(map[string]int, len(result.Valves))
	for i, v := range result.Valves {
		valveIdx[v.ID] = i
	}
	tankIdx := make(map[string]int, len(result.Tanks))
	for i, t := range result.Tanks {
		tankIdx[t.ID] = i
	}
	pipelineIdx := make(map[string]int, len(result.Pipelines))
	for i, p := range result.Pipelines {
		pipelineIdx[p.ID] = i
	}

	var diags []domain.BuildDiagnostic

	for _, id := range overrides.CloseValves {
		i, ok := valveIdx[id]
		if !ok {
			diags = append(diags, unknownID("valve", id, "closeValves"))
			continue
		}
		result.Valves[i].IsOpen = false
	}
	for _, id := range overrides.OpenValves {
		i, ok := valveIdx[id]
		if !ok {
			diags = append(diags, unknownID("valve", id, "openValves"))
			continue
		}
		result.Valves[i].IsOpen = true
	}
	for _, id := range overrides.DeactivateTanks {
		i, ok := tankIdx[id]
		if !ok {
			diags = append(diags, unknownID("tank", id, "deactivateTanks"))
			continue
		}
		result.Tanks[i].IsActive = false
	}
	for _, id := range overrides.ActivateTanks {
		i, ok := tankIdx[id]
		if !ok {
			diags = append(diags, unknownID("tank", id, "activateTanks"))
			continue
		}
		result.Tanks[i].IsActive = true
	}
	// Исключённый трубопровод помечается неактивным, из графа его уберёт
	// расчёт потока.
	for _, id := range overrides.ExcludePipelines {
		i, ok := pipelineIdx[id]
		if !ok {
			diags = append(diags, unknownID("pipeline", id, "excludePipelines"))
			continue
		}
		result.Pipelines[i].Active = false
	}

	return result, diags
}

func unknownID(kind, id, field string) domain.BuildDiagnostic {
	return domain.BuildDiagnostic{
		EntityID: id,
		Message:  fmt.Sprintf("unknown %s id %q in %s; ignored", kind, id, field),
	}
}
