package mesh

import (
	"github.com/kelvin-ux/sailing-regates-route-calculator/internal/geo"
	"github.com/kelvin-ux/sailing-regates-route-calculator/internal/naverrs"
)

// attachControlPoints snaps each control point onto an existing navigable
// vertex when one is close enough, or inserts a fresh vertex for it
// otherwise, returning the vertex id aligned with each input control point.
// Widens from tier 1 outward only when the control point's own position
// turns out not to be navigable (it sits on, or too close to, land).
func (b *builder) attachControlPoints(cps []ControlPoint) ([]VertexID, error) {
	out := make([]VertexID, len(cps))
	for i, cp := range cps {
		id, err := b.attachOne(cp.Position)
		if err != nil {
			return nil, err
		}
		out[i] = id
	}
	return out, nil
}

func (b *builder) attachOne(p geo.Point) (VertexID, error) {
	fineIDs := b.navigableIDsOfTier(Tier1)
	if id, ok := b.nearestWithin(p, fineIDs, hardCeilingM[Tier1]); ok {
		return id, nil
	}

	navigable, err := b.isNavigable(p)
	if err != nil {
		return 0, err
	}
	if navigable {
		return b.insertControlVertex(p, Tier1, fineIDs)
	}

	for _, tier := range []Tier{Tier2, Tier3} {
		ids := b.navigableIDsOfTier(tier)
		if id, ok := b.nearestWithin(p, ids, hardCeilingM[tier]); ok {
			return id, nil
		}
	}
	return 0, naverrs.New(naverrs.ControlPointUnreachable, "no navigable vertex within reach of (%f, %f)", p.Lat, p.Lon)
}

func (b *builder) navigableIDsOfTier(tier Tier) []VertexID {
	var ids []VertexID
	for _, v := range b.vertices {
		if v.Tier == tier && v.IsNavigable {
			ids = append(ids, v.ID)
		}
	}
	return ids
}

func (b *builder) nearestWithin(p geo.Point, candidates []VertexID, maxM float64) (VertexID, bool) {
	best := VertexID(0)
	bestD := -1.0
	for _, id := range candidates {
		d, err := geo.GreatCircleDistance(p, b.vertices[id].Position)
		if err != nil {
			continue
		}
		if bestD < 0 || d < bestD {
			bestD, best = d, id
		}
	}
	if bestD < 0 || bestD > maxM {
		return 0, false
	}
	return best, true
}

// insertControlVertex adds p as a new vertex of tier and wires it to its
// nearest same-tier navigable neighbors, discarding any edge land blocks.
func (b *builder) insertControlVertex(p geo.Point, tier Tier, sameTierIDs []VertexID) (VertexID, error) {
	id := VertexID(len(b.vertices))
	b.vertices = append(b.vertices, MeshVertex{ID: id, Position: p, Tier: tier, IsNavigable: true})
	b.index[keyOf(p)] = id

	k := knnInsertByTier[tier]
	neighbors := b.nearestIDs(p, sameTierIDs, id, k)
	for _, n := range neighbors {
		if err := b.addEdgeIfClear(id, n); err != nil {
			return 0, err
		}
	}
	return id, nil
}
