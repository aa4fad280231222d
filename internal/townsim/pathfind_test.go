package townsim

import "testing"

func TestFindPathStraightLine(t *testing.T) {
	wm := NewWorldMap(10, 10)
	pf := NewPathfinder()
	path, found := pf.FindPath(wm, Position{X: 0, Y: 0}, Position{X: 3, Y: 0})
	if !found {
		t.Fatal("expected a path")
	}
	if len(path) != 4 {
		t.Fatalf("expected a 4-step path including start and goal, got %d: %v", len(path), path)
	}
	if path[0] != (Position{X: 0, Y: 0}) || path[len(path)-1] != (Position{X: 3, Y: 0}) {
		t.Fatalf("path must start and end at the requested points, got %v", path)
	}
}

func TestFindPathSameStartAndGoal(t *testing.T) {
	pf := NewPathfinder()
	wm := NewWorldMap(5, 5)
	path, found := pf.FindPath(wm, Position{X: 2, Y: 2}, Position{X: 2, Y: 2})
	if !found || len(path) != 1 {
		t.Fatalf("expected a single-element path, got %v, found=%v", path, found)
	}
}

func TestFindPathGoesAroundWall(t *testing.T) {
	wm := NewWorldMap(5, 5)
	for y := 0; y < 4; y++ {
		wm.SetBlocked(Position{X: 2, Y: y}, true)
	}
	pf := NewPathfinder()
	path, found := pf.FindPath(wm, Position{X: 0, Y: 0}, Position{X: 4, Y: 0})
	if !found {
		t.Fatal("expected a path around the wall")
	}
	for _, p := range path {
		if wm.IsBlocked(p) {
			t.Fatalf("path must not cross a blocked tile, got %v in %v", p, path)
		}
	}
}

func TestFindPathUnreachableReturnsFalse(t *testing.T) {
	wm := NewWorldMap(5, 5)
	for y := 0; y < 5; y++ {
		wm.SetBlocked(Position{X: 2, Y: y}, true)
	}
	pf := NewPathfinder()
	_, found := pf.FindPath(wm, Position{X: 0, Y: 0}, Position{X: 4, Y: 0})
	if found {
		t.Fatal("expected no path across a full-height wall")
	}
}

func TestFindPathAdjustsBlockedGoal(t *testing.T) {
	wm := NewWorldMap(5, 5)
	goal := Position{X: 3, Y: 3}
	wm.SetBlocked(goal, true)
	pf := NewPathfinder()
	path, found := pf.FindPath(wm, Position{X: 0, Y: 0}, goal)
	if !found {
		t.Fatal("expected a path to a passable neighbor of the blocked goal")
	}
	last := path[len(path)-1]
	if last == goal {
		t.Fatal("path should not end on the blocked goal tile itself")
	}
	if !adjacent(last, goal) && last != goal {
		t.Fatalf("expected the adjusted destination to be adjacent to the original goal, got %v vs %v", last, goal)
	}
}

func TestFindPathAdjustsBlockedGoalWithAllImmediateNeighborsBlocked(t *testing.T) {
	wm := NewWorldMap(7, 7)
	goal := Position{X: 3, Y: 3}
	wm.SetBlocked(goal, true)
	for _, n := range wm.Neighbors4(goal) {
		wm.SetBlocked(n, true)
	}
	pf := NewPathfinder()
	path, found := pf.FindPath(wm, Position{X: 0, Y: 0}, goal)
	if !found {
		t.Fatal("expected a path to a further-out passable cell when every immediate neighbor of the goal is also blocked")
	}
	last := path[len(path)-1]
	if wm.IsBlocked(last) {
		t.Fatalf("adjusted destination must be passable, got blocked %v", last)
	}
}

func TestFindPathRespectsExpansionBudget(t *testing.T) {
	wm := NewWorldMap(100, 100)
	pf := &Pathfinder{MaxExpansions: 2}
	_, found := pf.FindPath(wm, Position{X: 0, Y: 0}, Position{X: 99, Y: 99})
	if found {
		t.Fatal("expected the tiny expansion budget to fail a long-range search")
	}
}
