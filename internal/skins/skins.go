// Package skins settles an all-play skins game: each hole is a pot won by a
// unique low net score, and tied pots carry to the next hole.
//
// Carryover state is sequential. Every evaluation replays from the first hole,
// so a corrected score on hole 5 leaves holes 1–4 untouched and recomputes the
// rest.
package skins

import (
	"github.com/trentd187/golf-wagers/internal/domain"
)

// Scores is the read side of the score ledger the engine needs.
type Scores interface {
	Net(player domain.PlayerID, hole int) (int, bool)
	Par(hole int) int
}

// Config is the skins option set.
type Config struct {
	HoleValue           domain.Money `json:"holeValue" yaml:"holeValue" validate:"gt=0"`
	Carryovers          bool         `json:"carryovers" yaml:"carryovers"`
	CarryoverMultiplier int          `json:"carryoverMultiplier" yaml:"carryoverMultiplier" validate:"gte=0,lte=10"` // 0 or 1 = additive
	BirdiesOnly         bool         `json:"birdiesOnly" yaml:"birdiesOnly"`
}

// DefaultConfig returns the product defaults.
func DefaultConfig() Config {
	return Config{Carryovers: true, CarryoverMultiplier: 1}
}

// Outcome of one hole's pot.
type Outcome string

const (
	OutcomeWon     Outcome = "won"
	OutcomeCarried Outcome = "carried"
	OutcomeVoided  Outcome = "voided"
	OutcomePending Outcome = "pending"
)

// Pot is the state of one hole.
type Pot struct {
	Hole         int              `json:"hole"`
	ValueAtStake domain.Money     `json:"value_at_stake"` // skin value; the winner collects this from every other entrant
	PotAmount    domain.Money     `json:"pot_amount"`     // value at stake × entrants
	CarriedIn    domain.Money     `json:"carried_in"`     // pot rolled in from tied holes
	Outcome      Outcome          `json:"outcome"`
	WinnerID     *domain.PlayerID `json:"winner_id,omitempty"`
	CarriedOver  bool             `json:"carried_over"`
	LowNet       int              `json:"low_net,omitempty"`
}

// Result is the evaluated game.
type Result struct {
	Pots        []Pot                            `json:"pots"`
	Amounts     map[domain.PlayerID]domain.Money `json:"amounts"`   // signed, zero-sum
	SkinsWon    map[domain.PlayerID]int          `json:"skins_won"` // skins counted in holes won
	Created     domain.Money                     `json:"created"`   // total skin value put at stake
	Won         domain.Money                     `json:"won"`       // skin value paid out
	Voided      domain.Money                     `json:"voided"`    // ties dropped with carryovers off
	CarryOut    domain.Money                     `json:"carry_out"` // carried past the last evaluated hole
	PendingHole int                              `json:"pending_hole"`
	Complete    bool                             `json:"complete"`
}

// Evaluate replays the game over holes in order.
//
// During play a hole is evaluated only once every entrant has a score on it.
// With roundComplete set, a hole is evaluated among the entrants who scored it;
// a hole nobody scored carries.
func Evaluate(scores Scores, entrants []domain.PlayerID, holes []int, cfg Config, roundComplete bool) (Result, error) {
	if len(entrants) < 2 {
		return Result{}, domain.NewConfigError("skins.participants", "need at least two entrants, got %d", len(entrants))
	}
	if cfg.HoleValue <= 0 {
		return Result{}, domain.NewConfigError("skins.holeValue", "must be positive")
	}
	mult := domain.Money(max(1, cfg.CarryoverMultiplier))
	n := int64(len(entrants))

	res := Result{
		Amounts:  make(map[domain.PlayerID]domain.Money, len(entrants)),
		SkinsWon: make(map[domain.PlayerID]int, len(entrants)),
		Complete: true,
	}
	for _, p := range entrants {
		res.Amounts[p] = 0
		res.SkinsWon[p] = 0
	}

	var carried domain.Money
	skinsCarried := 0
	for _, hole := range holes {
		value := carried*mult + cfg.HoleValue
		if value < carried {
			return Result{}, domain.NewInvariantError("skins.carry_monotonic", "hole %d value %s below carried %s", hole, value, carried)
		}
		pot := Pot{
			Hole:         hole,
			ValueAtStake: value,
			PotAmount:    value.Times(n),
			CarriedIn:    carried.Times(n),
		}

		low, winners, scored := lowNet(scores, entrants, hole)
		if scored < len(entrants) && !roundComplete {
			pot.Outcome = OutcomePending
			res.Pots = append(res.Pots, pot)
			res.PendingHole = hole
			res.Complete = false
			break
		}

		res.Created += value - carried
		skinsCarried++
		pot.LowNet = low

		eligible := len(winners) == 1 && (!cfg.BirdiesOnly || low <= scores.Par(hole)-1)
		switch {
		case eligible:
			w := winners[0]
			pot.Outcome = OutcomeWon
			pot.WinnerID = &w
			for _, p := range entrants {
				if p == w {
					res.Amounts[p] += value.Times(n - 1)
				} else {
					res.Amounts[p] -= value
				}
			}
			res.SkinsWon[w] += skinsCarried
			res.Won += value
			carried, skinsCarried = 0, 0
		case cfg.Carryovers:
			pot.Outcome = OutcomeCarried
			pot.CarriedOver = true
			carried = value
		default:
			pot.Outcome = OutcomeVoided
			res.Voided += value
			carried, skinsCarried = 0, 0
		}
		res.Pots = append(res.Pots, pot)
	}
	res.CarryOut = carried

	if res.Won+res.Voided+res.CarryOut != res.Created {
		return Result{}, domain.NewInvariantError("skins.conservation", "won %s + voided %s + carry %s != created %s",
			res.Won, res.Voided, res.CarryOut, res.Created)
	}
	return res, nil
}

// lowNet returns the low net, the players sharing it, and how many entrants scored.
func lowNet(scores Scores, entrants []domain.PlayerID, hole int) (int, []domain.PlayerID, int) {
	low, scored := 0, 0
	var at []domain.PlayerID
	for _, p := range entrants {
		net, ok := scores.Net(p, hole)
		if !ok {
			continue
		}
		scored++
		switch {
		case len(at) == 0 || net < low:
			low, at = net, []domain.PlayerID{p}
		case net == low:
			at = append(at, p)
		}
	}
	return low, at, scored
}
