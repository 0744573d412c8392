package mesh

import "github.com/kelvin-ux/sailing-regates-route-calculator/internal/naverrs"

// checkConnectivity runs a breadth-first search over the navigable graph
// from the Start control vertex and confirms every other control vertex is
// reachable, per spec.md §8's connectivity invariant.
func checkConnectivity(vertices []MeshVertex, edges map[VertexID][]MeshEdge, controlVertices []VertexID) error {
	if len(controlVertices) == 0 {
		return nil
	}
	start := controlVertices[0]
	visited := make(map[VertexID]bool, len(vertices))
	queue := []VertexID{start}
	visited[start] = true
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, e := range edges[cur] {
			if !visited[e.To] {
				visited[e.To] = true
				queue = append(queue, e.To)
			}
		}
	}

	for i, v := range controlVertices {
		if !visited[v] {
			return naverrs.New(naverrs.DisconnectedControlPoints, "control point %d (vertex %d) is unreachable from the start", i, v)
		}
	}
	return nil
}
