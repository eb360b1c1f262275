// Package domain defines the value types shared by every settlement engine:
// players, course holes, recorded hole scores, match sides and money.
//
// The engines treat all of these as read-only input. They are owned by outer
// collaborators (profile system, course data service, score persistence).
package domain

import (
	"slices"
	"time"
)

// PlayerID identifies a player across every engine.
type PlayerID string

// Player is a round participant as supplied by the profile system.
type Player struct {
	ID            PlayerID  `json:"id" yaml:"id"`
	Name          string    `json:"name" yaml:"name"`
	HandicapIndex float64   `json:"handicap_index" yaml:"handicap_index"`         // WHS index, -5..54; negative = plus player
	TeeTime       time.Time `json:"tee_time,omitempty" yaml:"tee_time,omitempty"` // zero when unknown; used for leaderboard tie-breaks
}

// CourseHole is one hole of a course as played from a given tee.
type CourseHole struct {
	Number int `json:"number" yaml:"number"` // 1–18
	Par    int `json:"par" yaml:"par"`       // 3–6
	Rank   int `json:"rank" yaml:"rank"`     // stroke allocation rank: 1 = hardest, receives the first handicap stroke
}

// Tee carries the rating data used to turn a handicap index into a course handicap.
type Tee struct {
	Name   string  `json:"name" yaml:"name"`
	Rating float64 `json:"rating" yaml:"rating"` // course rating, e.g. 72.4
	Slope  int     `json:"slope" yaml:"slope"`   // slope rating, 55–155
	Par    int     `json:"par" yaml:"par"`
}

// Course is the immutable hole layout for one course/tee combination.
type Course struct {
	Name  string       `json:"name" yaml:"name"`
	Tee   Tee          `json:"tee" yaml:"tee"`
	Holes []CourseHole `json:"holes" yaml:"holes"`
}

// Hole looks up a hole by number.
func (c Course) Hole(number int) (CourseHole, bool) {
	for _, h := range c.Holes {
		if h.Number == number {
			return h, true
		}
	}
	return CourseHole{}, false
}

// OrderedHoles returns the holes sorted by hole number.
func (c Course) OrderedHoles() []CourseHole {
	holes := slices.Clone(c.Holes)
	slices.SortFunc(holes, func(a, b CourseHole) int { return a.Number - b.Number })
	return holes
}

// HoleNumbers returns the hole numbers in playing order.
func (c Course) HoleNumbers() []int {
	holes := c.OrderedHoles()
	numbers := make([]int, len(holes))
	for i, h := range holes {
		numbers[i] = h.Number
	}
	return numbers
}

// Validate checks the layout: 9 or 18 holes numbered 1..n exactly once, par 3–6.
// Stroke allocation ranks are validated by the handicap allocator.
func (c Course) Validate() error {
	n := len(c.Holes)
	if n != 9 && n != 18 {
		return NewConfigError("course.holes", "expected 9 or 18 holes, got %d", n)
	}
	seen := make(map[int]bool, n)
	for _, h := range c.Holes {
		if h.Number < 1 || h.Number > n {
			return NewConfigError("course.holes", "hole number %d out of range 1..%d", h.Number, n)
		}
		if seen[h.Number] {
			return NewConfigError("course.holes", "duplicate hole number %d", h.Number)
		}
		seen[h.Number] = true
		if h.Par < 3 || h.Par > 6 {
			return NewConfigError("course.holes", "hole %d has par %d, expected 3..6", h.Number, h.Par)
		}
	}
	return nil
}

// HoleScore is one player's result on one hole. Upserted as play progresses.
type HoleScore struct {
	PlayerID  PlayerID `json:"player_id" yaml:"player"`
	Hole      int      `json:"hole" yaml:"hole"`
	Gross     int      `json:"gross" yaml:"gross"`
	Putts     *int     `json:"putts,omitempty" yaml:"putts,omitempty"`
	Penalties int      `json:"penalties,omitempty" yaml:"penalties,omitempty"`
}

// Side is one side of a match: a single player or a team.
type Side struct {
	ID      string     `json:"id" yaml:"id"`
	Players []PlayerID `json:"players" yaml:"players"`
}

// Has reports whether the player plays on this side.
func (s Side) Has(id PlayerID) bool {
	return slices.Contains(s.Players, id)
}
