// This file implements multi-source flow propagation over the network
// graph built in builder.go:
//   - Seeding from every graph node within the connect distance of an
//     active tank, labeled with the tank's name
//   - Breadth-first traversal with a global visited set, so a node reached
//     by several tanks is expanded exactly once
//   - Per-segment classification into flowing or blocked, deduplicated by
//     the unordered node pair, one classification per physical segment
//   - Valve blocking: a closed valve within the block distance of a segment
//     marks it blocked and stops traversal along that path, modeling a shut
//     gate cutting off everything downstream
//
// Propagation is a pure single pass over an immutable snapshot; repeated
// runs over the same inputs yield identical results.
package topology

import (
	"watergrid/pkg/domain"
	"watergrid/pkg/geo"
)

// =============================================================================
// Queue Implementation
// =============================================================================

// queueItem is one pending traversal front: a node plus the name of the
// tank whose expansion first reached it.
type queueItem struct {
	nodeKey    string
	sourceTank string
}

// queue is a FIFO over queueItems backed by a slice with a head index,
// avoiding reallocation during a typical traversal.
type queue struct {
	data []queueItem
	head int
}

func newQueue(capacity int) *queue {
	return &queue{data: make([]queueItem, 0, capacity)}
}

func (q *queue) push(item queueItem) {
	q.data = append(q.data, item)
}

func (q *queue) pop() queueItem {
	item := q.data[q.head]
	q.head++
	return item
}

func (q *queue) empty() bool {
	return q.head >= len(q.data)
}

// =============================================================================
// Seeding
// =============================================================================

// findSeeds returns one queue item per (tank, node) pair where the node
// lies within connectDistance of the active tank. Tanks are processed in
// input order and nodes in insertion order, which fixes attribution when
// several tanks can reach the same node: the earliest pair claims it.
func findSeeds(g *domain.NetworkGraph, activeTanks []domain.Tank, connectDistance float64) []queueItem {
	var seeds []queueItem
	for _, tank := range activeTanks {
		for _, node := range g.NodesInOrder() {
			if geo.Distance(tank.Position, node.Position) < connectDistance {
				seeds = append(seeds, queueItem{nodeKey: node.Key, sourceTank: tank.Name})
			}
		}
	}
	return seeds
}

// =============================================================================
// Flow Propagation
// =============================================================================

// Propagate classifies every reachable segment of the graph as flowing or
// blocked, starting from all nodes seeded by the active tanks. Segments
// never reached stay out of both lists. With no active tanks both lists
// are empty, which is a defined result rather than an error.
func Propagate(g *domain.NetworkGraph, activeTanks []domain.Tank, closedValves []domain.Valve, connectDistance, blockDistance float64) (flowing, blocked []domain.FlowSegment) {
	seeds := findSeeds(g, activeTanks, connectDistance)
	if len(seeds) == 0 {
		return nil, nil
	}

	visited := make(map[string]bool, g.NodeCount())
	classified := make(map[string]bool)

	q := newQueue(g.NodeCount())
	for _, seed := range seeds {
		q.push(seed)
	}

	for !q.empty() {
		item := q.pop()
		if visited[item.nodeKey] {
			continue
		}
		visited[item.nodeKey] = true

		node, ok := g.Node(item.nodeKey)
		if !ok {
			continue
		}

		for _, edge := range node.Edges {
			segKey := edge.SegmentKey()
			if classified[segKey] {
				continue
			}

			far, ok := g.Node(edge.To)
			if !ok {
				continue
			}

			start := node.Position
			end := far.Position

			blocker, isBlocked := findBlocker(start, end, closedValves, blockDistance)
			classified[segKey] = true

			if isBlocked {
				blocked = append(blocked, domain.FlowSegment{
					PipelineID: edge.PipelineID,
					Start:      start,
					End:        end,
					BlockedBy:  blocker,
				})
				// A blocked segment terminates traversal along this path.
				continue
			}

			flowing = append(flowing, domain.FlowSegment{
				PipelineID: edge.PipelineID,
				Start:      start,
				End:        end,
				SourceTank: item.sourceTank,
			})

			if !visited[edge.To] {
				q.push(queueItem{nodeKey: edge.To, sourceTank: item.sourceTank})
			}
		}
	}

	return flowing, blocked
}

// =============================================================================
// Valve Blocking
// =============================================================================

// findBlocker returns the name of the first closed valve within
// blockDistance of the segment, in closed-valve input order. Any closed
// valve on the segment blocks it; the order only fixes which one the
// diagnostic names. Zero-length segments admit no valid projection and are
// never considered blocked.
func findBlocker(start, end domain.Position, closedValves []domain.Valve, blockDistance float64) (string, bool) {
	if geo.IsZeroLength(start, end) {
		return "", false
	}

	for _, valve := range closedValves {
		if geo.PointToSegmentDistance(valve.Position, start, end) <= blockDistance {
			return valve.Name, true
		}
	}
	return "", false
}

// =============================================================================
// Full Flow Computation
// =============================================================================

// ComputeFlow runs graph construction and propagation over a snapshot and
// assembles the complete flow result. The total segment count is derived
// independently of traversal by summing (waypointCount - 1) over active
// pipelines, so coverage denominators stay stable even when parts of the
// network are unreachable.
func ComputeFlow(snapshot domain.Snapshot, connectDistance, blockDistance float64) (domain.FlowResult, []domain.BuildDiagnostic) {
	active := domain.ActivePipelines(snapshot.Pipelines)

	g, diags := Build(active, connectDistance)

	flowing, blocked := Propagate(
		g,
		domain.ActiveTanks(snapshot.Tanks),
		domain.ClosedValves(snapshot.Valves),
		connectDistance,
		blockDistance,
	)

	// Empty lists serialize as [] rather than null at the API boundary.
	if flowing == nil {
		flowing = []domain.FlowSegment{}
	}
	if blocked == nil {
		blocked = []domain.FlowSegment{}
	}

	return domain.FlowResult{
		Flowing:       flowing,
		Blocked:       blocked,
		TotalSegments: domain.TotalSegments(snapshot.Pipelines),
	}, diags
}
