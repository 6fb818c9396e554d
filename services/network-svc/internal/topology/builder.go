// Package topology builds the canonical water-network graph from pipeline
// waypoints and propagates flow from active tanks through it.
//
// This file implements graph construction:
//   - Per-waypoint validation with graceful skipping of malformed pipelines
//   - Waypoint snapping: points within the connect distance of an existing
//     node reuse that node, so independently drawn pipelines join at junctions
//   - Bidirectional edge insertion for every consecutive waypoint pair
//
// Construction is deterministic: nodes are searched in insertion order, so
// the first node within the threshold always wins and repeated builds over
// the same snapshot produce identical graphs.
package topology

import (
	"fmt"

	"watergrid/pkg/domain"
	"watergrid/pkg/geo"
)

// =============================================================================
// Graph Construction
// =============================================================================

// Build constructs the undirected network graph from the given pipelines.
//
// Only pipelines whose filtered waypoint sequence still holds at least two
// valid points contribute edges; the rest are reported as diagnostics and
// skipped, never failed. Inactive pipelines must be filtered out by the
// caller beforehand.
//
// The nearest-node search is linear in the current node count, O(W*N) for
// W waypoints over N nodes. That is fine for networks of hundreds of nodes;
// a spatial index would have to preserve the same snapping semantics (first
// node within the threshold wins, insertion order breaks ties).
func Build(pipelines []domain.Pipeline, connectDistance float64) (*domain.NetworkGraph, []domain.BuildDiagnostic) {
	g := domain.NewNetworkGraph()
	var diags []domain.BuildDiagnostic

	for _, pipeline := range pipelines {
		waypoints := pipeline.ValidWaypoints()
		if len(waypoints) < 2 {
			diags = append(diags, domain.BuildDiagnostic{
				EntityID: pipeline.ID,
				Message:  fmt.Sprintf("pipeline %q has %d valid waypoints, need at least 2; skipped", pipeline.Name, len(waypoints)),
			})
			continue
		}

		keys := make([]string, len(waypoints))
		for i, wp := range waypoints {
			keys[i] = assignNode(g, wp, connectDistance)
		}

		for i := 0; i+1 < len(keys); i++ {
			g.AddSegment(keys[i], keys[i+1], pipeline.ID)
		}
	}

	return g, diags
}

// assignNode returns the canonical node key for a waypoint: the first
// existing node within connectDistance, or a freshly minted node keyed by
// the waypoint's rounded coordinates.
func assignNode(g *domain.NetworkGraph, wp domain.Position, connectDistance float64) string {
	for _, node := range g.NodesInOrder() {
		if geo.Distance(wp, node.Position) < connectDistance {
			return node.Key
		}
	}

	key := wp.Key()
	if _, exists := g.Node(key); !exists {
		g.AddNode(key, wp)
	}
	return key
}
