// Package mesh implements the adaptive navigation mesh builder (C3): a
// spatial graph over the sea region relevant to a control-point sequence,
// fine near control points and the rhumb-line corridor, coarse in the open
// sea, clipped to navigable water. Grounded on the teacher's isochrone.go
// (per-control-point geometry) and waypoint.go (buoy/door control points).
package mesh

import (
	"fmt"

	"github.com/kelvin-ux/sailing-regates-route-calculator/internal/geo"
)

// VertexID indexes MeshedArea.Vertices.
type VertexID uint32

// Tier is the resolution ring a vertex belongs to: 1 finest, 3 coarsest.
type Tier uint8

const (
	Tier1 Tier = 1
	Tier2 Tier = 2
	Tier3 Tier = 3
)

// ControlKind classifies a ControlPoint per spec.md §3.
type ControlKind string

const (
	Start    ControlKind = "Start"
	Waypoint ControlKind = "Waypoint"
	Mark     ControlKind = "Mark"
	Gate     ControlKind = "Gate"
	Finish   ControlKind = "Finish"
)

// ControlPoint is one user-specified stop along the requested route.
type ControlPoint struct {
	Position    geo.Point   `json:"position"`
	Kind        ControlKind `json:"kind"`
	WidthM      *float64    `json:"width_m,omitempty"`
	Description string      `json:"description,omitempty"`
	// ToAvoid lists forbidden-zone triangles (lat/lon vertex triples) that
	// a route must not cross near this control point, grounded on the
	// teacher's RaceWaypoint.ToAvoid.
	ToAvoid [][3]geo.Point `json:"to_avoid,omitempty"`
}

// ValidateControlPoints enforces spec.md §3's ControlPoint invariants.
func ValidateControlPoints(cps []ControlPoint) error {
	if len(cps) < 2 {
		return fmt.Errorf("at least two control points are required, got %d", len(cps))
	}
	if cps[0].Kind != Start {
		return fmt.Errorf("control point 0 must be Start, got %s", cps[0].Kind)
	}
	if cps[len(cps)-1].Kind != Finish {
		return fmt.Errorf("last control point must be Finish, got %s", cps[len(cps)-1].Kind)
	}
	startCount, finishCount := 0, 0
	for i, cp := range cps {
		if cp.Kind == Start {
			startCount++
		}
		if cp.Kind == Finish {
			finishCount++
		}
		if cp.Kind == Gate && cp.WidthM == nil {
			return fmt.Errorf("control point %d: Gate requires width_m", i)
		}
		for j := i + 1; j < len(cps); j++ {
			d, err := geo.GreatCircleDistance(cp.Position, cps[j].Position)
			if err == nil && d < 1.0 {
				return fmt.Errorf("control points %d and %d are within 1m of each other", i, j)
			}
		}
	}
	if startCount != 1 {
		return fmt.Errorf("exactly one Start control point required, got %d", startCount)
	}
	if finishCount != 1 {
		return fmt.Errorf("exactly one Finish control point required, got %d", finishCount)
	}
	return nil
}

// MeshVertex is a node of the adaptive navigation graph.
type MeshVertex struct {
	ID          VertexID  `json:"id"`
	Position    geo.Point `json:"position"`
	Tier        Tier      `json:"tier"`
	IsNavigable bool      `json:"is_navigable"`
}

// MeshEdge is a directed connection between two navigable vertices.
type MeshEdge struct {
	From       VertexID    `json:"from"`
	To         VertexID    `json:"to"`
	DistanceM  float64     `json:"distance_m"`
	Bearing    geo.Bearing `json:"bearing"`
}

// MeshedAreaID uniquely identifies a persisted MeshedArea.
type MeshedAreaID string

// MeshedArea is the immutable output of C3: vertices, directed edges, the
// control-point-to-vertex snap table, and the parameters used to build it.
type MeshedArea struct {
	ID              MeshedAreaID          `json:"id"`
	Vertices        []MeshVertex          `json:"vertices"`
	Edges           map[VertexID][]MeshEdge `json:"edges"`
	ControlVertices []VertexID            `json:"control_vertices"` // aligned with the input ControlPoint slice
	BoundingBox     geo.BoundingBox       `json:"bounding_box"`
	Params          Params                `json:"mesh_params"`
}

// Vertex returns the vertex with the given id.
func (m *MeshedArea) Vertex(id VertexID) MeshVertex {
	return m.Vertices[id]
}

// NeighborEdges returns the outgoing directed edges from id.
func (m *MeshedArea) NeighborEdges(id VertexID) []MeshEdge {
	return m.Edges[id]
}
