package townsim

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

// CombatOutcome is the recorded result of a fight or robbery attempt,
// grounded on the teacher's ActionResult fields for FIGHT
// (game/actions/fight_handler.go) but generalized to the probabilistic
// formula spec.md §4.6 specifies instead of the teacher's flat
// strength-minus-armor subtraction. An outcome is computed once
// (Resolve*, pure w.r.t. its rng draw) and applied once (Apply*, the only
// functions allowed to mutate Player state) so that the start* handler can
// draw randomness synchronously under the tick lock while the actual
// mutation happens in the finish* handler, per spec.md §9's "tasks never
// mutate the world directly" redesign note.
type CombatOutcome struct {
	AttackerID   PlayerID
	DefenderID   PlayerID
	AttackerWon  bool
	LootTaken    int
	DefenderDown bool
	Message      string
}

// personalityCombatBonus mirrors spec.md §4.6's personalityBonus[personality]
// table: robbery is a multiplicative attack-power bias, attacker/defender
// power are the flat combat biases applied by role. Personality bias is
// applied role-based before the random draw rather than as a post-hoc
// winner/loser adjustment, which would make the formula circular.
type personalityCombatBonus struct {
	robbery       float64
	attackerPower float64
	defenderPower float64
}

var personalityBonus = map[Personality]personalityCombatBonus{
	PersonalityCriminal: {robbery: 0.2, attackerPower: 30, defenderPower: 10},
	PersonalityGambler:  {robbery: 0.1, attackerPower: 5, defenderPower: 5},
	PersonalityWorker:   {robbery: 0.02, attackerPower: 0, defenderPower: 0},
}

// zoneModifier implements spec.md §4.6's zoneModifier table for robbery.
func zoneModifier(zone ZoneKind) float64 {
	switch zone {
	case ZoneDarkAlley:
		return 0.15
	case ZoneCasino:
		return 0.05
	case ZoneSuburb:
		return -0.10
	default:
		return 0
	}
}

// ResolveRobbery computes spec.md §4.6's robbery success probability and
// loot roll:
//
//	p = clamp(0.05, 0.85, 0.4 + (attackPower-defense)/50 + zoneModifier)
//	attackPower = attacker.equipment.power * (1 + personalityBonus[personality].robbery)
//	defense = target.equipment.defense + 2*target.house.defenseLevel
//	loot = floor(U(0,maxLoot)) + 10, maxLoot = floor(0.20 * targetInventoryValue)
//
// Pure with respect to the single rng draw it consumes; does not mutate
// either player. zone is the zone the robbery takes place in.
func ResolveRobbery(rng *rand.Rand, robber *Player, robberPersonality Personality, target *Player, zone ZoneKind) CombatOutcome {
	bonus := personalityBonus[robberPersonality]
	attackPower := float64(robber.GetEquipment().PowerBonus) * (1 + bonus.robbery)
	defense := float64(target.GetEquipment().DefenseBonus) + 2*float64(target.HouseDefenseLevel)

	p := clamp(0.05, 0.85, 0.4+(attackPower-defense)/50+zoneModifier(zone))

	outcome := CombatOutcome{AttackerID: robber.ID, DefenderID: target.ID}
	if rng.Float64() < p {
		maxLoot := int(math.Floor(0.20 * float64(target.InventoryValue)))
		loot := 10
		if maxLoot > 0 {
			loot += int(math.Floor(rng.Float64() * float64(maxLoot)))
		}
		outcome.AttackerWon = true
		outcome.LootTaken = loot
		outcome.Message = fmt.Sprintf("robbed %d", loot)
	} else {
		outcome.Message = "robbery failed"
	}
	return outcome
}

// ApplyRobbery transfers the outcome's loot. This is the only function
// allowed to mutate either player for a robbery; it is invoked from
// finishRobbery, never from the robbery operation goroutine itself.
func ApplyRobbery(outcome CombatOutcome, robber, target *Player) {
	if !outcome.AttackerWon || outcome.LootTaken == 0 {
		return
	}
	target.InventoryValue -= outcome.LootTaken
	if target.InventoryValue < 0 {
		target.InventoryValue = 0
	}
	robber.InventoryValue += outcome.LootTaken
}

// ResolveCombat computes spec.md §4.6's win probability:
//
//	attackerWins ~ Bernoulli(attackerPower/(attackerPower+defenderPower))
//
// with each side's power biased by its personality (role-based, see
// personalityCombatBonus doc). Pure w.r.t. the single rng draw.
func ResolveCombat(rng *rand.Rand, attacker *Player, attackerPersonality Personality, defender *Player, defenderPersonality Personality) CombatOutcome {
	aBonus := personalityBonus[attackerPersonality]
	dBonus := personalityBonus[defenderPersonality]

	attackerPower := float64(attacker.GetEquipment().PowerBonus) + aBonus.attackerPower
	defenderPower := float64(defender.GetEquipment().DefenseBonus) + dBonus.defenderPower
	if attackerPower <= 0 && defenderPower <= 0 {
		attackerPower, defenderPower = 1, 1
	}

	winProb := clamp01(attackerPower / (attackerPower + defenderPower))
	attackerWon := rng.Float64() < winProb

	outcome := CombatOutcome{AttackerID: attacker.ID, DefenderID: defender.ID, AttackerWon: attackerWon}
	if attackerWon {
		outcome.DefenderDown = true
		outcome.Message = "won the fight"
	} else {
		outcome.Message = "lost the fight"
	}
	return outcome
}

// ApplyCombat hospitalizes the loser. The only function allowed to mutate
// either player for a combat outcome; invoked from finishCombat.
func ApplyCombat(outcome CombatOutcome, now time.Time, attacker, defender *Player) {
	loser := defender
	if !outcome.AttackerWon {
		loser = attacker
	}
	loser.Hospitalize(now.Add(HospitalRecovery))
}

func clamp(lo, hi, v float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clamp01(v float64) float64 { return clamp(0, 1, v) }
