// Package golftest provides course and ledger fixtures for engine tests.
package golftest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trentd187/golf-wagers/internal/domain"
	"github.com/trentd187/golf-wagers/internal/ledger"
)

// Pars is a par-72 layout: out 36, in 36.
var Pars = [18]int{4, 4, 3, 5, 4, 4, 3, 4, 5, 4, 4, 3, 5, 4, 4, 3, 4, 5}

// Course returns an 18-hole course on a neutral tee (slope 113, rating = par),
// so a course handicap equals the rounded handicap index. Hole n has rank n.
func Course() domain.Course {
	holes := make([]domain.CourseHole, 18)
	for i := range holes {
		holes[i] = domain.CourseHole{Number: i + 1, Par: Pars[i], Rank: i + 1}
	}
	return domain.Course{
		Name:  "Fixture Links",
		Tee:   domain.Tee{Name: "White", Rating: 72, Slope: 113, Par: 72},
		Holes: holes,
	}
}

// Scratch returns scratch players with the given ids, in tee order.
func Scratch(ids ...domain.PlayerID) []domain.Player {
	players := make([]domain.Player, len(ids))
	for i, id := range ids {
		players[i] = domain.Player{ID: id, Name: string(id)}
	}
	return players
}

// Ledger builds a ledger on Course and records gross scores given per player as
// a slice indexed from hole 1. A zero entry leaves the hole unscored.
func Ledger(t testing.TB, players []domain.Player, gross map[domain.PlayerID][]int) *ledger.Ledger {
	t.Helper()
	l, err := ledger.New(Course(), players, ledger.Options{})
	require.NoError(t, err)
	for id, holes := range gross {
		for i, g := range holes {
			if g == 0 {
				continue
			}
			require.NoError(t, l.RecordScore(id, i+1, g))
		}
	}
	return l
}

// Repeat returns n copies of v, handy for filling out a card.
func Repeat(v, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = v
	}
	return out
}
