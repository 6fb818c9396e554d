package supply

import (
	"math"

	"watergrid/pkg/domain"
	"watergrid/pkg/geo"
	"watergrid/services/network-svc/internal/topology"
)

// Params содержит настраиваемые параметры расчёта снабжения
type Params struct {
	ConnectDistance     float64
	BlockDistance       float64
	AssociationDistance float64
	CapacityUtilization float64
	HouseholdFlowRate   float64
}

// DefaultParams возвращает параметры по умолчанию
func DefaultParams() Params {
	return Params{
		ConnectDistance:     domain.DefaultConnectDistanceMeters,
		BlockDistance:       domain.DefaultValveBlockDistanceMeters,
		AssociationDistance: domain.DefaultAssociationDistanceMeters,
		CapacityUtilization: domain.DefaultCapacityUtilization,
		HouseholdFlowRate:   domain.DefaultHouseholdFlowRate,
	}
}

// Compute рассчитывает поток по сети и распределяет снабжение по задвижкам
func Compute(snapshot domain.Snapshot, params Params) (domain.SupplyOverview, domain.FlowResult, []domain.BuildDiagnostic) {
	flow, diags := topology.ComputeFlow(snapshot, params.ConnectDistance, params.BlockDistance)
	overview := Distribute(snapshot, flow, params)
	return overview, flow, diags
}

// Distribute строит дерево задвижек и распределяет расчётный поток по домохозяйствам
func Distribute(snapshot domain.Snapshot, flow domain.FlowResult, params Params) domain.SupplyOverview {
	flowingIDs := flow.FlowingPipelineIDs()

	var (
		mains []domain.Valve
		subs  []domain.Valve
	)
	for _, v := range snapshot.Valves {
		if v.IsMain() {
			mains = append(mains, v)
		} else {
			subs = append(subs, v)
		}
	}

	// Оценка потока для каждой задвижки независимо от иерархии.
	flowByValve := make(map[string]float64, len(snapshot.Valves))
	for _, v := range snapshot.Valves {
		flowByValve[v.ID] = estimateValveFlow(v, snapshot.Pipelines, flowingIDs, params)
	}

	childrenByParent := make(map[string][]domain.Valve, len(mains))
	attached := make(map[string]bool, len(subs))
	for _, m := range mains {
		for _, s := range subs {
			if s.ParentValveID == m.ID {
				childrenByParent[m.ID] = append(childrenByParent[m.ID], s)
				attached[s.ID] = true
			}
		}
	}

	servedByValve := make(map[string]int, len(snapshot.Valves))
	tree := make([]domain.ValveTreeNode, 0, len(mains))
	for _, m := range mains {
		node := buildTreeNode(m, childrenByParent[m.ID], flowByValve, servedByValve, params)
		tree = append(tree, node)
	}

	// Осиротевшие под-задвижки сохраняют собственную оценку потока.
	for _, s := range subs {
		if attached[s.ID] {
			continue
		}
		servedByValve[s.ID] = servedHouseholds(s, flowByValve[s.ID], params.HouseholdFlowRate)
	}

	stats := computeStats(snapshot, tree, flowByValve)
	regions := groupByRegion(snapshot.Valves, flowByValve, servedByValve)

	return domain.SupplyOverview{
		Stats:     stats,
		ValveTree: tree,
		Regions:   regions,
	}
}

// estimateValveFlow суммирует поток по трубопроводам, связанным с задвижкой
func estimateValveFlow(v domain.Valve, pipelines []domain.Pipeline, flowingIDs map[string]bool, params Params) float64 {
	if !v.IsOpen {
		return 0
	}

	var total float64
	for _, p := range pipelines {
		if !p.Active || !flowingIDs[p.ID] {
			continue
		}
		if isAssociated(v.Position, p, params.AssociationDistance) {
			total += p.Capacity * params.CapacityUtilization
		}
	}
	return total
}

// isAssociated проверяет близость задвижки к любому сегменту трубопровода
func isAssociated(pos domain.Position, p domain.Pipeline, maxDistance float64) bool {
	waypoints := p.ValidWaypoints()
	for i := 0; i+1 < len(waypoints); i++ {
		if geo.IsZeroLength(waypoints[i], waypoints[i+1]) {
			continue
		}
		if geo.PointToSegmentDistance(pos, waypoints[i], waypoints[i+1]) < maxDistance {
			return true
		}
	}
	return false
}

// buildTreeNode собирает запись дерева для магистральной задвижки и распределяет её поток
func buildTreeNode(main domain.Valve, children []domain.Valve, flowByValve map[string]float64, servedByValve map[string]int, params Params) domain.ValveTreeNode {
	var childTotal int
	for _, c := range children {
		childTotal += c.Households
	}

	direct := main.Households - childTotal
	if direct < 0 {
		direct = 0
	}

	totalFlow := flowByValve[main.ID]
	openHouseholds := 0
	if main.IsOpen {
		openHouseholds = direct
		for _, c := range children {
			if c.IsOpen {
				openHouseholds += c.Households
			}
		}
	}

	var (
		served     int
		directFlow float64
	)
	if main.IsOpen && openHouseholds > 0 {
		served = int(math.Floor(totalFlow / params.HouseholdFlowRate))
		if served < 0 {
			served = 0
		}
		if served > openHouseholds {
			served = openHouseholds
		}

		// Поток делится поровну на домохозяйство между прямыми и открытыми дочерними.
		perHousehold := totalFlow / float64(openHouseholds)
		directFlow = perHousehold * float64(direct)
		for _, c := range children {
			if c.IsOpen {
				flowByValve[c.ID] = perHousehold * float64(c.Households)
			}
		}
	}
	servedByValve[main.ID] = served

	childSupplies := make([]domain.ValveSupply, 0, len(children))
	for _, c := range children {
		childServed := servedHouseholds(c, flowByValve[c.ID], params.HouseholdFlowRate)
		servedByValve[c.ID] = childServed
		childSupplies = append(childSupplies, domain.ValveSupply{
			Valve:            c,
			TotalFlow:        domain.RoundVolume(flowByValve[c.ID]),
			ServedHouseholds: childServed,
		})
	}

	return domain.ValveTreeNode{
		Valve:            main,
		Children:         childSupplies,
		DirectHouseholds: direct,
		ServedHouseholds: served,
		TotalFlow:        domain.RoundVolume(totalFlow),
		DirectFlow:       domain.RoundVolume(directFlow),
	}
}

// servedHouseholds вычисляет число обеспеченных домохозяйств для одиночной задвижки
func servedHouseholds(v domain.Valve, totalFlow float64, flowRate float64) int {
	if !v.IsOpen || v.Households <= 0 {
		return 0
	}
	served := int(math.Floor(totalFlow / flowRate))
	if served < 0 {
		served = 0
	}
	if served > v.Households {
		served = v.Households
	}
	return served
}

// computeStats агрегирует итоговые показатели по дереву задвижек
func computeStats(snapshot domain.Snapshot, tree []domain.ValveTreeNode, flowByValve map[string]float64) domain.SupplyStats {
	var (
		totalHouseholds int
		servedTotal     int
		totalFlow       float64
		mainCount       int
		subCount        int
		activeTankCount int
	)

	for _, node := range tree {
		totalHouseholds += node.Valve.Households
		servedTotal += node.ServedHouseholds
		totalFlow += flowByValve[node.Valve.ID]
	}

	for _, v := range snapshot.Valves {
		if v.IsMain() {
			mainCount++
		} else {
			subCount++
		}
	}

	for _, t := range snapshot.Tanks {
		if t.IsActive {
			activeTankCount++
		}
	}

	// Inconsistent records can report more child households than the main
	// claims, so the ratio is clamped rather than trusted.
	coverage := 0.0
	if totalHouseholds > 0 {
		coverage = float64(servedTotal) / float64(totalHouseholds) * 100
		if coverage > 100 {
			coverage = 100
		}
	}

	avgSupply := 0.0
	if servedTotal > 0 {
		avgSupply = totalFlow / float64(servedTotal)
	}

	return domain.SupplyStats{
		TotalHouseholds:       totalHouseholds,
		ServedHouseholds:      servedTotal,
		TotalFlow:             domain.RoundVolume(totalFlow),
		CoveragePercent:       domain.RoundPercent(coverage),
		AvgSupplyPerHousehold: domain.RoundVolume(avgSupply),
		MainValveCount:        mainCount,
		SubValveCount:         subCount,
		ActiveTankCount:       activeTankCount,
	}
}

// groupByRegion группирует задвижки по населённым пунктам
func groupByRegion(valves []domain.Valve, flowByValve map[string]float64, servedByValve map[string]int) []domain.RegionSummary {
	order := make([]string, 0)
	byRegion := make(map[string]*domain.RegionSummary)

	for _, v := range valves {
		region := v.Locality
		summary, ok := byRegion[region]
		if !ok {
			summary = &domain.RegionSummary{Name: region}
			byRegion[region] = summary
			order = append(order, region)
		}

		summary.Valves = append(summary.Valves, domain.ValveSupply{
			Valve:            v,
			TotalFlow:        domain.RoundVolume(flowByValve[v.ID]),
			ServedHouseholds: servedByValve[v.ID],
		})
		summary.TotalHouseholds += v.Households
		summary.ServedHouseholds += servedByValve[v.ID]
		summary.TotalFlow += flowByValve[v.ID]
	}

	regions := make([]domain.RegionSummary, 0, len(order))
	for _, region := range order {
		summary := byRegion[region]
		summary.TotalFlow = domain.RoundVolume(summary.TotalFlow)
		regions = append(regions, *summary)
	}
	return regions
}
