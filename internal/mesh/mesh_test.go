package mesh

import (
	"testing"

	"github.com/kelvin-ux/sailing-regates-route-calculator/internal/geo"
	"github.com/kelvin-ux/sailing-regates-route-calculator/internal/land"
)

// openWaterPort is a GeometryPort test double that reports everywhere as
// navigable and far from land, for exercising the mesh builder without a
// real raster file.
type openWaterPort struct{}

func (openWaterPort) IsLand(lat, lon float64) (bool, error) { return false, nil }
func (openWaterPort) DistanceToLand(lat, lon float64) (float64, error) {
	return 1e6, nil
}
func (openWaterPort) SegmentCrossesLand(a, b land.Point, withinM float64) (bool, error) {
	return false, nil
}

// barrierPort blocks a longitude strip, splitting the mesh into two
// navigable halves that no edge can cross. Used to exercise the
// connectivity failure path.
type barrierPort struct {
	loLon, hiLon float64
}

func (p barrierPort) inStrip(lon float64) bool { return lon >= p.loLon && lon <= p.hiLon }

func (p barrierPort) IsLand(lat, lon float64) (bool, error) { return p.inStrip(lon), nil }
func (p barrierPort) DistanceToLand(lat, lon float64) (float64, error) {
	if p.inStrip(lon) {
		return 0, nil
	}
	return 1e6, nil
}
func (p barrierPort) SegmentCrossesLand(a, b land.Point, withinM float64) (bool, error) {
	return p.inStrip(a.Lon) || p.inStrip(b.Lon) || (a.Lon < p.loLon) != (b.Lon < p.loLon), nil
}

func shortRoute() []ControlPoint {
	return []ControlPoint{
		{Position: geo.Point{Lat: 50.0, Lon: -1.0}, Kind: Start},
		{Position: geo.Point{Lat: 50.05, Lon: -0.9}, Kind: Finish},
	}
}

func TestBuildProducesConnectedMesh(t *testing.T) {
	cps := shortRoute()
	params := AutoParams(cps)
	area, err := Build(BuildInput{ControlPoints: cps, Params: params, Geometry: openWaterPort{}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(area.Vertices) == 0 {
		t.Fatal("expected at least one vertex")
	}
	if len(area.ControlVertices) != 2 {
		t.Fatalf("expected 2 control vertices, got %d", len(area.ControlVertices))
	}
	if err := checkConnectivity(area.Vertices, area.Edges, area.ControlVertices); err != nil {
		t.Errorf("expected connected mesh, got %v", err)
	}
	if area.ID == "" {
		t.Error("expected a non-empty mesh id")
	}
}

func TestBuildRejectsInvalidControlPoints(t *testing.T) {
	_, err := Build(BuildInput{
		ControlPoints: []ControlPoint{{Position: geo.Point{Lat: 0, Lon: 0}, Kind: Start}},
		Params:        AutoParams(shortRoute()),
		Geometry:      openWaterPort{},
	})
	if err == nil {
		t.Fatal("expected an error for a single control point")
	}
}

func TestBuildRequiresGeometry(t *testing.T) {
	_, err := Build(BuildInput{ControlPoints: shortRoute(), Params: AutoParams(shortRoute())})
	if err == nil {
		t.Fatal("expected an error when no geometry port is configured")
	}
}

func TestBuildDetectsDisconnectedControlPoints(t *testing.T) {
	cps := []ControlPoint{
		{Position: geo.Point{Lat: 50.0, Lon: -1.0}, Kind: Start},
		{Position: geo.Point{Lat: 50.0, Lon: 1.0}, Kind: Finish},
	}
	params := AutoParams(cps)
	_, err := Build(BuildInput{ControlPoints: cps, Params: params, Geometry: barrierPort{loLon: -0.1, hiLon: 0.1}})
	if err == nil {
		t.Fatal("expected an unreachable/disconnected error across the barrier strip")
	}
}

func TestValidateControlPointsEnforcesStartFinish(t *testing.T) {
	cps := []ControlPoint{
		{Position: geo.Point{Lat: 0, Lon: 0}, Kind: Waypoint},
		{Position: geo.Point{Lat: 1, Lon: 1}, Kind: Finish},
	}
	if err := ValidateControlPoints(cps); err == nil {
		t.Error("expected error when first control point is not Start")
	}
}

func TestValidateControlPointsRequiresGateWidth(t *testing.T) {
	cps := []ControlPoint{
		{Position: geo.Point{Lat: 0, Lon: 0}, Kind: Start},
		{Position: geo.Point{Lat: 1, Lon: 1}, Kind: Gate},
		{Position: geo.Point{Lat: 2, Lon: 2}, Kind: Finish},
	}
	if err := ValidateControlPoints(cps); err == nil {
		t.Error("expected error for Gate without width_m")
	}
}

func TestBuildMarksForbiddenZoneVerticesNonNavigable(t *testing.T) {
	cps := shortRoute()
	tri := [3]geo.Point{
		{Lat: 50.0, Lon: -0.98},
		{Lat: 50.05, Lon: -0.98},
		{Lat: 50.025, Lon: -0.9},
	}
	cps[0].ToAvoid = [][3]geo.Point{tri}
	params := AutoParams(cps)
	area, err := Build(BuildInput{ControlPoints: cps, Params: params, Geometry: openWaterPort{}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	found := false
	for _, v := range area.Vertices {
		if geo.PointInTriangle(v.Position, tri[0], tri[1], tri[2]) {
			found = true
			if v.IsNavigable {
				t.Errorf("vertex %d at %v falls inside the forbidden zone but is marked navigable", v.ID, v.Position)
			}
		}
	}
	if !found {
		t.Skip("rasterization placed no vertex inside the forbidden triangle for this grid")
	}
}

func TestAddEdgeIfClearDiscardsEdgesThroughForbiddenZone(t *testing.T) {
	b := &builder{
		geometry: openWaterPort{},
		edges:    make(map[VertexID][]MeshEdge),
		forbidden: [][3]geo.Point{{
			{Lat: -1, Lon: -0.1},
			{Lat: -1, Lon: 0.1},
			{Lat: 1, Lon: 0},
		}},
		vertices: []MeshVertex{
			{ID: 0, Position: geo.Point{Lat: 0, Lon: -2}, IsNavigable: true},
			{ID: 1, Position: geo.Point{Lat: 0, Lon: 2}, IsNavigable: true},
		},
	}
	if err := b.addEdgeIfClear(0, 1); err != nil {
		t.Fatalf("addEdgeIfClear: %v", err)
	}
	if len(b.edges[0]) != 0 || len(b.edges[1]) != 0 {
		t.Error("expected an edge whose midpoint falls inside a forbidden zone to be discarded")
	}
}

func TestAutoParamsCapsCorridorAtMinSegment(t *testing.T) {
	cps := []ControlPoint{
		{Position: geo.Point{Lat: 0, Lon: 0}, Kind: Start},
		{Position: geo.Point{Lat: 0, Lon: 0.01}, Kind: Finish}, // ~0.6nm leg
	}
	p := AutoParams(cps)
	min := MinSegmentNM(cps)
	if p.CorridorNM > 0.4*min+1e-9 {
		t.Errorf("corridor_nm = %f exceeds 0.4*min_segment_nm = %f", p.CorridorNM, 0.4*min)
	}
}
