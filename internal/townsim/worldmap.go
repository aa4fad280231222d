package townsim

import "math"

// ZoneKind names one of the town's scoped activity areas.
type ZoneKind string

const (
	ZoneNone       ZoneKind = ""
	ZoneDarkAlley  ZoneKind = "darkAlley"
	ZoneUnderground ZoneKind = "underground"
	ZoneCasino     ZoneKind = "casino"
	ZoneSuburb     ZoneKind = "suburb"
)

// Position is an integer grid coordinate, grounded on the teacher's
// Position type in game/world.go.
type Position struct {
	X, Y int
}

func (p Position) Add(dx, dy int) Position { return Position{X: p.X + dx, Y: p.Y + dy} }

func (p Position) ManhattanTo(o Position) int {
	return absInt(p.X-o.X) + absInt(p.Y-o.Y)
}

// PositionDistance is the euclidean distance used by spec.md §4.4's
// CONVERSATION_DISTANCE/MIDPOINT_THRESHOLD comparisons.
func PositionDistance(a, b Position) float64 {
	dx := float64(a.X - b.X)
	dy := float64(a.Y - b.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Zone is a rectangular region of the grid tagged with a ZoneKind.
type Zone struct {
	Kind ZoneKind
	MinX, MinY, MaxX, MaxY int
}

func (z Zone) Contains(p Position) bool {
	return p.X >= z.MinX && p.X <= z.MaxX && p.Y >= z.MinY && p.Y <= z.MaxY
}

// WorldMap is the kernel's grid + zone partitioning, grounded on the
// teacher's World/Tile model (game/world.go) but generalized from an
// ownership grid to a blocked-cell + zone grid since this domain has no
// tile-claiming mechanic.
type WorldMap struct {
	Width, Height int
	blocked       map[Position]bool
	zones         []Zone
}

// NewWorldMap builds a map of the given size with a fixed static zone
// layout. The teacher procedurally generates terrain via worldgen/noise;
// this domain's zones are fixed regions named by spec.md, so no noise
// generator is needed (see DESIGN.md for the dropped opensimplex-go dep).
func NewWorldMap(width, height int) *WorldMap {
	wm := &WorldMap{
		Width:   width,
		Height:  height,
		blocked: make(map[Position]bool),
	}
	wm.layoutDefaultZones()
	return wm
}

func (wm *WorldMap) layoutDefaultZones() {
	halfW, halfH := wm.Width/2, wm.Height/2
	wm.zones = []Zone{
		{Kind: ZoneDarkAlley, MinX: 0, MinY: 0, MaxX: halfW - 1, MaxY: halfH - 1},
		{Kind: ZoneUnderground, MinX: halfW, MinY: 0, MaxX: wm.Width - 1, MaxY: halfH - 1},
		{Kind: ZoneCasino, MinX: 0, MinY: halfH, MaxX: halfW - 1, MaxY: wm.Height - 1},
		{Kind: ZoneSuburb, MinX: halfW, MinY: halfH, MaxX: wm.Width - 1, MaxY: wm.Height - 1},
	}
}

func (wm *WorldMap) IsValidPosition(p Position) bool {
	return p.X >= 0 && p.X < wm.Width && p.Y >= 0 && p.Y < wm.Height
}

func (wm *WorldMap) IsBlocked(p Position) bool {
	return wm.blocked[p]
}

func (wm *WorldMap) SetBlocked(p Position, blocked bool) {
	if blocked {
		wm.blocked[p] = true
	} else {
		delete(wm.blocked, p)
	}
}

func (wm *WorldMap) IsPassable(p Position) bool {
	return wm.IsValidPosition(p) && !wm.IsBlocked(p)
}

// ZoneAt returns the zone containing p, or ZoneNone outside all zones.
func (wm *WorldMap) ZoneAt(p Position) ZoneKind {
	for _, z := range wm.zones {
		if z.Contains(p) {
			return z.Kind
		}
	}
	return ZoneNone
}

// Zones returns the static zone table.
func (wm *WorldMap) Zones() []Zone { return wm.zones }

// VisibleWithin returns all in-bounds positions, blocked cells included,
// within a circular radius of
// center, grounded on the teacher's GetVisibleTiles (dx*dx+dy*dy <= r*r).
func (wm *WorldMap) VisibleWithin(center Position, radius int) []Position {
	var out []Position
	r2 := radius * radius
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx*dx+dy*dy > r2 {
				continue
			}
			p := center.Add(dx, dy)
			if wm.IsValidPosition(p) {
				out = append(out, p)
			}
		}
	}
	return out
}

// Neighbors4 returns the 4-connected passable neighbors of p.
func (wm *WorldMap) Neighbors4(p Position) []Position {
	candidates := [4]Position{
		p.Add(0, -1),
		p.Add(0, 1),
		p.Add(-1, 0),
		p.Add(1, 0),
	}
	out := make([]Position, 0, 4)
	for _, c := range candidates {
		if wm.IsPassable(c) {
			out = append(out, c)
		}
	}
	return out
}
