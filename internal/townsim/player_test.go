package townsim

import (
	"math/rand"
	"testing"
	"time"
)

func TestStepAlongPathBacksOffOnCollision(t *testing.T) {
	wm := NewWorldMap(5, 5)
	now := time.Now()
	p := NewPlayer(NewPlayerID(), "p", false, Position{X: 0, Y: 0}, now)
	p.SetPath([]Position{{X: 1, Y: 0}}, Position{X: 1, Y: 0}, now)

	blocked := func(Position) bool { return true }
	rng := rand.New(rand.NewSource(1))

	moved, _ := p.StepAlongPath(wm, blocked, rng, now)
	if moved {
		t.Fatal("expected collision to prevent the step")
	}
	if p.GetPosition() != (Position{X: 0, Y: 0}) {
		t.Fatal("a collided player must not have moved")
	}
	if !p.WaitingUntil.After(now) {
		t.Fatal("expected a collision to set a future WaitingUntil backoff")
	}

	moved, _ = p.StepAlongPath(wm, blocked, rng, now)
	if moved {
		t.Fatal("expected the player to still be backing off before WaitingUntil elapses")
	}

	clear := func(Position) bool { return false }
	moved, _ = p.StepAlongPath(wm, clear, rng, p.WaitingUntil.Add(time.Millisecond))
	if !moved {
		t.Fatal("expected the player to move once the backoff has elapsed and the path is clear")
	}
}

func TestStepAlongPathMovesWhenClear(t *testing.T) {
	wm := NewWorldMap(5, 5)
	now := time.Now()
	p := NewPlayer(NewPlayerID(), "p", false, Position{X: 0, Y: 0}, now)
	p.SetPath([]Position{{X: 1, Y: 0}}, Position{X: 1, Y: 0}, now)

	moved, _ := p.StepAlongPath(wm, func(Position) bool { return false }, rand.New(rand.NewSource(1)), now)
	if !moved {
		t.Fatal("expected an unobstructed step to succeed")
	}
	if p.GetPosition() != (Position{X: 1, Y: 0}) {
		t.Fatalf("expected the player to have advanced to (1,0), got %v", p.GetPosition())
	}
	if p.HasDestination {
		t.Fatal("expected arriving at the destination to clear HasDestination")
	}
}
