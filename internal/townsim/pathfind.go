package townsim

import "container/heap"

// Pathfinder computes short grid paths with a bounded per-call work budget,
// grounded on the Gearworld AI pathfinding system's container/heap A*
// (other_examples/95e114de_denialofself-Gearworld__systems-ai_pathfinding_system.go.go).
// The teacher itself has no pathfinder — movement there is a single
// directional step per action — so this component is adapted from a
// different pack file entirely, generalized with a node-expansion budget
// since the kernel must bound per-tick work (spec's step-budget requirement).
type Pathfinder struct {
	// MaxExpansions caps the number of nodes popped from the open set
	// before giving up, bounding worst-case per-call cost.
	MaxExpansions int
}

func NewPathfinder() *Pathfinder {
	return &Pathfinder{MaxExpansions: 4000}
}

// pathItem is a single entry in the open-set priority queue.
type pathItem struct {
	pos      Position
	priority int
	index    int
}

type pathQueue []*pathItem

func (pq pathQueue) Len() int            { return len(pq) }
func (pq pathQueue) Less(i, j int) bool  { return pq[i].priority < pq[j].priority }
func (pq pathQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}
func (pq *pathQueue) Push(x any) {
	item := x.(*pathItem)
	item.index = len(*pq)
	*pq = append(*pq, item)
}
func (pq *pathQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*pq = old[:n-1]
	return item
}

// FindPath runs A* from start to goal over wm, 4-connected, returning the
// path including start and goal. Returns (nil, false) if no path is found
// or the expansion budget is exhausted. If goal itself is blocked, the
// nearest passable cell, searched breadth-first outward from goal, is
// used instead (destination
// adjustment), matching a robbery/conversation target that may be standing
// on an otherwise-blocked tile.
func (pf *Pathfinder) FindPath(wm *WorldMap, start, goal Position) ([]Position, bool) {
	if !wm.IsPassable(goal) {
		if adj, ok := pf.nearestPassableNeighbor(wm, goal); ok {
			goal = adj
		} else {
			return nil, false
		}
	}
	if start == goal {
		return []Position{start}, true
	}

	cameFrom := make(map[Position]Position)
	gScore := map[Position]int{start: 0}
	fScore := map[Position]int{start: start.ManhattanTo(goal)}
	inOpen := map[Position]bool{start: true}

	open := &pathQueue{{pos: start, priority: fScore[start]}}
	heap.Init(open)

	expansions := 0
	for open.Len() > 0 {
		expansions++
		if expansions > pf.MaxExpansions {
			return nil, false
		}
		current := heap.Pop(open).(*pathItem).pos
		inOpen[current] = false

		if current == goal {
			return reconstructPath(cameFrom, current), true
		}

		for _, next := range wm.Neighbors4(current) {
			tentative := gScore[current] + 1
			if existing, ok := gScore[next]; ok && tentative >= existing {
				continue
			}
			cameFrom[next] = current
			gScore[next] = tentative
			fScore[next] = tentative + next.ManhattanTo(goal)
			if !inOpen[next] {
				heap.Push(open, &pathItem{pos: next, priority: fScore[next]})
				inOpen[next] = true
			}
		}
	}
	return nil, false
}

func reconstructPath(cameFrom map[Position]Position, current Position) []Position {
	path := []Position{current}
	for {
		prev, ok := cameFrom[current]
		if !ok {
			break
		}
		path = append([]Position{prev}, path...)
		current = prev
	}
	return path
}

// nearestPassableNeighbor performs a bounded breadth-first search outward
// from a blocked goal until it finds a passable cell, rather than assuming
// one of the goal's 4 immediate neighbors qualifies.
func (pf *Pathfinder) nearestPassableNeighbor(wm *WorldMap, p Position) (Position, bool) {
	visited := map[Position]bool{p: true}
	queue := []Position{p}
	expansions := 0
	for len(queue) > 0 {
		expansions++
		if expansions > pf.MaxExpansions {
			return Position{}, false
		}
		current := queue[0]
		queue = queue[1:]
		for _, n := range [4]Position{current.Add(0, -1), current.Add(0, 1), current.Add(-1, 0), current.Add(1, 0)} {
			if visited[n] || !wm.IsValidPosition(n) {
				continue
			}
			visited[n] = true
			if wm.IsPassable(n) {
				return n, true
			}
			queue = append(queue, n)
		}
	}
	return Position{}, false
}
