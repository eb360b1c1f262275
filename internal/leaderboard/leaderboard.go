// Package leaderboard merges every game's money into one row per player and
// ranks the players on the round's primary format.
//
// Build holds no state. Rows come back as a slice in position order with
// sorted attention lists, so identical input encodes to identical JSON.
package leaderboard

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/trentd187/golf-wagers/internal/domain"
	"github.com/trentd187/golf-wagers/internal/ledger"
)

// Format is the primary game players are ranked on.
type Format string

const (
	FormatNetStroke  Format = "net_stroke" // net to par, ascending
	FormatStroke     Format = "stroke"     // gross to par, ascending
	FormatStableford Format = "stableford" // net points, descending
)

// Column is the leaderboard column a bet's money lands in.
type Column string

const (
	ColumnSkins  Column = "skins"
	ColumnWolf   Column = "wolf"
	ColumnSnake  Column = "snake"
	ColumnNassau Column = "nassau"
	ColumnPress  Column = "press"
	ColumnMatch  Column = "match"
	ColumnManual Column = "manual"
)

// Scores is the read side of the score ledger the builder needs.
type Scores interface {
	Players() []domain.Player
	Totals(player domain.PlayerID) ledger.Totals
	Stableford(player domain.PlayerID) int
}

// Contribution is one bet's signed money per player, final or provisional.
type Contribution struct {
	BetID   string
	Column  Column
	Amounts map[domain.PlayerID]domain.Money
}

// Flag marks a bet that could not be settled; its players see it as needing
// attention and it adds nothing to their totals.
type Flag struct {
	BetID   string
	Players []domain.PlayerID
}

// Row is one player's line on the leaderboard.
type Row struct {
	PlayerID    domain.PlayerID `json:"player_id"`
	Name        string          `json:"name"`
	Position    int             `json:"primary_game_position"`
	Score       int             `json:"primary_game_score"`
	Thru        int             `json:"thru"`
	Skins       domain.Money    `json:"skins"`
	Wolf        domain.Money    `json:"wolf"`
	Snake       domain.Money    `json:"snake"`
	Nassau      domain.Money    `json:"nassau"`
	Press       domain.Money    `json:"press"`
	Match       domain.Money    `json:"match"`
	Manual      domain.Money    `json:"manual"`
	NetPosition domain.Money    `json:"net_position"`
	Attention   []string        `json:"attention,omitempty"`
}

func (r *Row) add(col Column, m domain.Money) error {
	switch col {
	case ColumnSkins:
		r.Skins += m
	case ColumnWolf:
		r.Wolf += m
	case ColumnSnake:
		r.Snake += m
	case ColumnNassau:
		r.Nassau += m
	case ColumnPress:
		r.Press += m
	case ColumnMatch:
		r.Match += m
	case ColumnManual:
		r.Manual += m
	default:
		return domain.NewConfigError("leaderboard.column", "unknown column %q", col)
	}
	r.NetPosition += m
	return nil
}

func (r Row) columnSum() domain.Money {
	return r.Skins + r.Wolf + r.Snake + r.Nassau + r.Press + r.Match + r.Manual
}

type ranked struct {
	row    Row
	player domain.Player
	scored bool
}

// Build ranks every player and sums their money. An empty format means net
// stroke play.
func Build(scores Scores, format Format, contributions []Contribution, flags []Flag) ([]Row, error) {
	if format == "" {
		format = FormatNetStroke
	}
	if format != FormatNetStroke && format != FormatStroke && format != FormatStableford {
		return nil, domain.NewConfigError("leaderboard.format", "unknown primary format %q", format)
	}

	players := scores.Players()
	entries := make([]*ranked, len(players))
	byID := make(map[domain.PlayerID]*ranked, len(players))
	for i, p := range players {
		t := scores.Totals(p.ID)
		e := &ranked{player: p, scored: t.Thru > 0}
		e.row = Row{PlayerID: p.ID, Name: p.Name, Thru: t.Thru}
		switch format {
		case FormatStroke:
			e.row.Score = t.ToPar
		case FormatStableford:
			e.row.Score = scores.Stableford(p.ID)
		default:
			e.row.Score = t.NetToPar
		}
		entries[i] = e
		byID[p.ID] = e
	}

	for _, c := range contributions {
		// Map order does not matter: money sums are commutative.
		for id, m := range c.Amounts {
			e, ok := byID[id]
			if !ok {
				return nil, fmt.Errorf("%w: %s in bet %s", domain.ErrUnknownPlayer, id, c.BetID)
			}
			if err := e.row.add(c.Column, m); err != nil {
				return nil, err
			}
		}
	}
	for _, f := range flags {
		for _, id := range f.Players {
			if e, ok := byID[id]; ok && !slices.Contains(e.row.Attention, f.BetID) {
				e.row.Attention = append(e.row.Attention, f.BetID)
			}
		}
	}

	slices.SortFunc(entries, func(a, b *ranked) int {
		return compare(format, a, b)
	})

	rows := make([]Row, len(entries))
	for i, e := range entries {
		e.row.Position = i + 1
		slices.Sort(e.row.Attention)
		if e.row.NetPosition != e.row.columnSum() {
			return nil, domain.NewInvariantError("leaderboard.net_position", "%s: net %s != columns %s", e.row.PlayerID, e.row.NetPosition, e.row.columnSum())
		}
		rows[i] = e.row
	}
	return rows, nil
}

// compare orders by primary score, then lower handicap index, then earlier
// tee time, then player id. Players with nothing scored go last.
func compare(format Format, a, b *ranked) int {
	if a.scored != b.scored {
		if a.scored {
			return -1
		}
		return 1
	}
	if a.scored {
		primary := cmp.Compare(a.row.Score, b.row.Score)
		if format == FormatStableford {
			primary = -primary
		}
		if primary != 0 {
			return primary
		}
	}
	if c := cmp.Compare(a.player.HandicapIndex, b.player.HandicapIndex); c != 0 {
		return c
	}
	if c := compareTeeTimes(a.player.TeeTime, b.player.TeeTime); c != 0 {
		return c
	}
	return cmp.Compare(a.player.ID, b.player.ID)
}

// compareTeeTimes puts unknown (zero) tee times after known ones.
func compareTeeTimes(a, b time.Time) int {
	switch {
	case a.IsZero() && b.IsZero():
		return 0
	case a.IsZero():
		return 1
	case b.IsZero():
		return -1
	}
	return a.Compare(b)
}
