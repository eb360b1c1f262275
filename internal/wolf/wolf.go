// Package wolf settles the four-player Wolf game: the wolf role rotates each
// hole, the wolf picks a partner or goes alone, and hole results become points.
//
// Every hole records which rules fired so the card can be audited later.
package wolf

import (
	"slices"

	"github.com/trentd187/golf-wagers/internal/domain"
)

// Players is the only supported group size.
const Players = 4

// Scores is the read side of the score ledger the engine needs.
type Scores interface {
	Net(player domain.PlayerID, hole int) (int, bool)
}

// Variant selects the rule set.
type Variant string

const (
	VariantStandard    Variant = "standard"
	VariantTurd        Variant = "turd"         // wolf tees first and must partner the worst tee shot
	VariantTurdPenalty Variant = "turd_penalty" // worst net on the hole pays turdPenalty
)

// Config is the wolf option set.
type Config struct {
	PartnerPoints    int               `json:"partnerPoints" yaml:"partnerPoints" validate:"gte=0"`
	LoneWolfPoints   int               `json:"loneWolfPoints" yaml:"loneWolfPoints" validate:"gte=0"`
	StolenPoints     int               `json:"stolenPoints" yaml:"stolenPoints" validate:"gte=0"` // forfeited by a losing lone wolf; 0 = loneWolfPoints
	TurdPenalty      int               `json:"turdPenalty" yaml:"turdPenalty" validate:"gte=0"`
	TiePoints        int               `json:"tiePoints" yaml:"tiePoints" validate:"gte=0"` // non-zero makes ties non-zero-sum
	PayoutMultiplier domain.Money      `json:"payoutMultiplier" yaml:"payoutMultiplier" validate:"gte=0"` // money per point
	Variant          Variant           `json:"variant" yaml:"variant" validate:"omitempty,oneof=standard turd turd_penalty"`
	WolfOrder        []domain.PlayerID `json:"wolfOrder,omitempty" yaml:"wolfOrder,omitempty"`
}

// DefaultConfig returns the product defaults: lone wolf doubles the partnered value.
func DefaultConfig() Config {
	return Config{
		PartnerPoints:    2,
		LoneWolfPoints:   4,
		PayoutMultiplier: domain.Dollars(1),
		Variant:          VariantStandard,
	}
}

// Decision is the wolf's choice on one hole, supplied by the scorer.
type Decision struct {
	Hole         int              `json:"hole" yaml:"hole"`
	Partner      *domain.PlayerID `json:"partner,omitempty" yaml:"partner,omitempty"`               // nil = lone wolf
	WorstTeeShot *domain.PlayerID `json:"worst_tee_shot,omitempty" yaml:"worst_tee_shot,omitempty"` // turd variant only
}

// Rule names a rule that fired on a hole.
type Rule string

const (
	RulePartnered   Rule = "partnered"
	RuleLone        Rule = "lone"
	RuleTurdPartner Rule = "turd_partner"
	RuleTurdPenalty Rule = "turd_penalty"
	RuleTie         Rule = "tie"
)

// HoleOutcome is the team result of one hole.
type HoleOutcome string

const (
	OutcomeWolfWin      HoleOutcome = "wolf_win"
	OutcomeOpponentsWin HoleOutcome = "opponents_win"
	OutcomeTie          HoleOutcome = "tie"
	OutcomePending      HoleOutcome = "pending"
)

// Hole is the settled (or pending) state of one hole.
type Hole struct {
	Hole       int                     `json:"hole"`
	Wolf       domain.PlayerID         `json:"wolf"`
	Partner    *domain.PlayerID        `json:"partner,omitempty"`
	Outcome    HoleOutcome             `json:"outcome"`
	Rules      []Rule                  `json:"rules"`
	Points     map[domain.PlayerID]int `json:"points"`
	TurdPlayer *domain.PlayerID        `json:"turd_player,omitempty"`
}

// Result is the evaluated game.
type Result struct {
	Holes       []Hole                           `json:"holes"`
	Points      map[domain.PlayerID]int          `json:"points"`
	Amounts     map[domain.PlayerID]domain.Money `json:"amounts"`
	PendingHole int                              `json:"pending_hole"`
	Complete    bool                             `json:"complete"`
}

// WolfFor returns the wolf on the i-th hole of play (0-based).
func WolfFor(players []domain.PlayerID, cfg Config, i int) domain.PlayerID {
	order := players
	if len(cfg.WolfOrder) > 0 {
		order = cfg.WolfOrder
	}
	return order[i%len(order)]
}

// Evaluate settles every hole independently and sums the points.
// players is the tee order; decisions may arrive in any order and a later
// decision for the same hole replaces an earlier one.
func Evaluate(scores Scores, players []domain.PlayerID, holes []int, decisions []Decision, cfg Config) (Result, error) {
	if err := validate(players, cfg); err != nil {
		return Result{}, err
	}

	byHole := make(map[int]Decision, len(decisions))
	for _, d := range decisions {
		byHole[d.Hole] = d
	}

	res := Result{
		Points:   make(map[domain.PlayerID]int, Players),
		Amounts:  make(map[domain.PlayerID]domain.Money, Players),
		Complete: true,
	}
	for _, p := range players {
		res.Points[p] = 0
	}

	for i, hole := range holes {
		wolf := WolfFor(players, cfg, i)
		h, err := settleHole(scores, players, hole, wolf, byHole, cfg)
		if err != nil {
			return Result{}, err
		}
		if h.Outcome == OutcomePending && res.Complete {
			res.PendingHole = hole
			res.Complete = false
		}
		for p, pts := range h.Points {
			res.Points[p] += pts
		}
		res.Holes = append(res.Holes, h)
	}

	for _, p := range players {
		res.Amounts[p] = cfg.PayoutMultiplier.Times(int64(res.Points[p]))
	}
	return res, nil
}

func validate(players []domain.PlayerID, cfg Config) error {
	if len(players) != Players {
		return domain.NewConfigError("wolf.participants", "wolf needs exactly %d players, got %d", Players, len(players))
	}
	if len(cfg.WolfOrder) > 0 {
		if err := CheckOrder("wolf.wolfOrder", players, cfg.WolfOrder); err != nil {
			return err
		}
	}
	switch cfg.Variant {
	case "", VariantStandard, VariantTurd, VariantTurdPenalty:
	default:
		return domain.NewConfigError("wolf.variant", "unknown variant %q", cfg.Variant)
	}
	return nil
}

// CheckOrder reports a ConfigError on field unless order names every player
// exactly once.
func CheckOrder(field string, players, order []domain.PlayerID) error {
	if len(order) != len(players) {
		return domain.NewConfigError(field, "needs all %d players once, got %d entries", len(players), len(order))
	}
	seen := make(map[domain.PlayerID]bool, len(order))
	for _, p := range order {
		if !slices.Contains(players, p) {
			return domain.NewConfigError(field, "%s is not playing", p)
		}
		if seen[p] {
			return domain.NewConfigError(field, "%s is listed twice", p)
		}
		seen[p] = true
	}
	return nil
}

func settleHole(scores Scores, players []domain.PlayerID, hole int, wolf domain.PlayerID, decisions map[int]Decision, cfg Config) (Hole, error) {
	h := Hole{Hole: hole, Wolf: wolf, Outcome: OutcomePending, Points: zeroPoints(players)}

	d, decided := decisions[hole]
	if !decided {
		return h, nil
	}
	partner, rule, err := resolvePartner(players, wolf, d, cfg)
	if err != nil {
		return Hole{}, err
	}
	h.Partner = partner

	nets := make(map[domain.PlayerID]int, Players)
	for _, p := range players {
		net, ok := scores.Net(p, hole)
		if !ok {
			return h, nil
		}
		nets[p] = net
	}

	wolfSide := []domain.PlayerID{wolf}
	if partner != nil {
		wolfSide = append(wolfSide, *partner)
	}
	var others []domain.PlayerID
	for _, p := range players {
		if !slices.Contains(wolfSide, p) {
			others = append(others, p)
		}
	}

	wolfBest := bestOf(nets, wolfSide)
	otherBest := bestOf(nets, others)
	h.Rules = append(h.Rules, rule)

	switch {
	case wolfBest == otherBest:
		h.Outcome = OutcomeTie
		h.Rules = append(h.Rules, RuleTie)
		for _, p := range players {
			h.Points[p] += cfg.TiePoints
		}
	case partner != nil:
		winners, losers := wolfSide, others
		h.Outcome = OutcomeWolfWin
		if otherBest < wolfBest {
			winners, losers = others, wolfSide
			h.Outcome = OutcomeOpponentsWin
		}
		for _, p := range winners {
			h.Points[p] += cfg.PartnerPoints
		}
		for _, p := range losers {
			h.Points[p] -= cfg.PartnerPoints
		}
	case wolfBest < otherBest:
		h.Outcome = OutcomeWolfWin
		h.Points[wolf] += cfg.LoneWolfPoints
		spread(h.Points, others, -int64(cfg.LoneWolfPoints))
	default:
		stolen := cfg.StolenPoints
		if stolen == 0 {
			stolen = cfg.LoneWolfPoints
		}
		h.Outcome = OutcomeOpponentsWin
		h.Points[wolf] -= stolen
		spread(h.Points, others, int64(stolen))
	}

	if cfg.Variant == VariantTurdPenalty && cfg.TurdPenalty > 0 {
		if turd, ok := uniqueWorst(nets, players); ok {
			h.TurdPlayer = &turd
			h.Rules = append(h.Rules, RuleTurdPenalty)
			h.Points[turd] -= cfg.TurdPenalty
			var rest []domain.PlayerID
			for _, p := range players {
				if p != turd {
					rest = append(rest, p)
				}
			}
			spread(h.Points, rest, int64(cfg.TurdPenalty))
		}
	}

	if cfg.TiePoints == 0 {
		sum := 0
		for _, pts := range h.Points {
			sum += pts
		}
		if sum != 0 {
			return Hole{}, domain.NewInvariantError("wolf.zero_sum", "hole %d points sum to %d", hole, sum)
		}
	}
	return h, nil
}

// resolvePartner applies the variant's partner rule to the scorer's decision.
func resolvePartner(players []domain.PlayerID, wolf domain.PlayerID, d Decision, cfg Config) (*domain.PlayerID, Rule, error) {
	if cfg.Variant == VariantTurd {
		if d.WorstTeeShot == nil {
			return nil, "", domain.NewConfigError("wolf.decision", "hole %d: turd variant needs the worst tee shot", d.Hole)
		}
		turd := *d.WorstTeeShot
		if !slices.Contains(players, turd) {
			return nil, "", domain.NewConfigError("wolf.decision", "hole %d: %s is not playing", d.Hole, turd)
		}
		if turd == wolf {
			return nil, RuleLone, nil
		}
		return &turd, RuleTurdPartner, nil
	}

	if d.Partner == nil {
		return nil, RuleLone, nil
	}
	partner := *d.Partner
	if partner == wolf || !slices.Contains(players, partner) {
		return nil, "", domain.NewConfigError("wolf.decision", "hole %d: %s cannot partner wolf %s", d.Hole, partner, wolf)
	}
	return &partner, RulePartnered, nil
}

// spread splits total across recipients by largest remainder, in tee order.
func spread(points map[domain.PlayerID]int, recipients []domain.PlayerID, total int64) {
	for i, share := range domain.Split(total, len(recipients)) {
		points[recipients[i]] += int(share)
	}
}

func bestOf(nets map[domain.PlayerID]int, side []domain.PlayerID) int {
	best := nets[side[0]]
	for _, p := range side[1:] {
		best = min(best, nets[p])
	}
	return best
}

func uniqueWorst(nets map[domain.PlayerID]int, players []domain.PlayerID) (domain.PlayerID, bool) {
	var worst domain.PlayerID
	high, count := 0, 0
	for _, p := range players {
		switch {
		case count == 0 || nets[p] > high:
			worst, high, count = p, nets[p], 1
		case nets[p] == high:
			count++
		}
	}
	return worst, count == 1
}

func zeroPoints(players []domain.PlayerID) map[domain.PlayerID]int {
	points := make(map[domain.PlayerID]int, len(players))
	for _, p := range players {
		points[p] = 0
	}
	return points
}
