package townsim

import "testing"

func TestWorldMapBoundsAndBlocked(t *testing.T) {
	wm := NewWorldMap(10, 10)
	if !wm.IsValidPosition(Position{X: 0, Y: 0}) {
		t.Fatal("origin should be in bounds")
	}
	if wm.IsValidPosition(Position{X: 10, Y: 0}) {
		t.Fatal("x==width should be out of bounds")
	}
	if wm.IsValidPosition(Position{X: -1, Y: 0}) {
		t.Fatal("negative x should be out of bounds")
	}

	p := Position{X: 3, Y: 3}
	if wm.IsBlocked(p) {
		t.Fatal("cell should start unblocked")
	}
	wm.SetBlocked(p, true)
	if !wm.IsBlocked(p) || wm.IsPassable(p) {
		t.Fatal("blocked cell should not be passable")
	}
	wm.SetBlocked(p, false)
	if wm.IsBlocked(p) {
		t.Fatal("unblocking should clear the cell")
	}
}

func TestWorldMapZonePartition(t *testing.T) {
	wm := NewWorldMap(10, 10)
	zones := map[ZoneKind]bool{}
	for y := 0; y < wm.Height; y++ {
		for x := 0; x < wm.Width; x++ {
			zones[wm.ZoneAt(Position{X: x, Y: y})] = true
		}
	}
	for _, want := range []ZoneKind{ZoneDarkAlley, ZoneUnderground, ZoneCasino, ZoneSuburb} {
		if !zones[want] {
			t.Errorf("expected zone %s to appear somewhere in a 10x10 map", want)
		}
	}
}

func TestNeighbors4ExcludesBlockedAndOutOfBounds(t *testing.T) {
	wm := NewWorldMap(3, 3)
	wm.SetBlocked(Position{X: 1, Y: 0}, true)
	n := wm.Neighbors4(Position{X: 0, Y: 0})
	for _, p := range n {
		if p == (Position{X: 1, Y: 0}) {
			t.Fatal("neighbors should not include a blocked cell")
		}
		if p == (Position{X: -1, Y: 0}) || p == (Position{X: 0, Y: -1}) {
			t.Fatal("neighbors should not include out-of-bounds cells")
		}
	}
}
