// Package bets is the closed set of bet configurations a round can carry.
//
// On the wire a bet is a keyed option bag:
//
//	{"id": "b1", "kind": "skins", "participants": ["ann", "bob"], "options": {"holeValue": 5}}
//
// Decoding is strict. Unknown keys, unknown kinds and values outside the
// schema are configuration errors raised before the bet is ever settled.
// Options left out take the game's defaults.
package bets

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/trentd187/golf-wagers/internal/domain"
	"github.com/trentd187/golf-wagers/internal/nassau"
	"github.com/trentd187/golf-wagers/internal/skins"
	"github.com/trentd187/golf-wagers/internal/snake"
	"github.com/trentd187/golf-wagers/internal/wolf"
)

// Kind tags which game a bet configures.
type Kind string

const (
	KindSkins     Kind = "skins"
	KindWolf      Kind = "wolf"
	KindNassau    Kind = "nassau"
	KindMatch     Kind = "match"
	KindSnake     Kind = "snake"
	KindProximity Kind = "proximity"
)

// Kinds lists every supported kind.
var Kinds = []Kind{KindSkins, KindWolf, KindNassau, KindMatch, KindSnake, KindProximity}

// Status is the configuration-level lifecycle of a bet.
type Status string

const (
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
)

// Sides splits the participants of a two-sided bet. Left empty on a
// two-player bet, each player is a side of their own.
type Sides struct {
	A []domain.PlayerID `json:"a" yaml:"a"`
	B []domain.PlayerID `json:"b" yaml:"b"`
}

// NassauConfig is the Nassau option set plus its sides.
type NassauConfig struct {
	nassau.Config
	Sides Sides `json:"sides"`
}

// MatchConfig is a standalone match. A zero hole range means the whole course.
type MatchConfig struct {
	Amount    domain.Money `json:"amount" validate:"gt=0"`
	Sides     Sides        `json:"sides"`
	FirstHole int          `json:"firstHole" validate:"gte=0,lte=18"`
	LastHole  int          `json:"lastHole" validate:"gte=0,lte=18"`
}

// Measure of a proximity bet.
const (
	MeasureClosest = "closest"
	MeasureLongest = "longest"
)

// ProximityConfig is a closest-to-pin or longest-drive bet. It is settled by
// an explicit resolution, never from scores.
type ProximityConfig struct {
	Amount  domain.Money `json:"amount" validate:"gt=0"`
	Hole    int          `json:"hole" validate:"gte=1,lte=18"`
	Measure string       `json:"measure" validate:"omitempty,oneof=closest longest"`
}

// Config is one bet. Exactly one option set is non-nil, the one named by Kind.
type Config struct {
	ID           string            `json:"-" validate:"required,max=64"`
	Kind         Kind              `json:"-" validate:"required,betkind"`
	Participants []domain.PlayerID `json:"-" validate:"min=2,unique,dive,required"`
	Status       Status            `json:"-" validate:"omitempty,oneof=active cancelled"`

	Skins     *skins.Config    `json:"-"`
	Wolf      *wolf.Config     `json:"-"`
	Nassau    *NassauConfig    `json:"-"`
	Match     *MatchConfig     `json:"-"`
	Snake     *snake.Config    `json:"-"`
	Proximity *ProximityConfig `json:"-"`
}

// Cancelled reports whether the bet was called off; it then settles to zero.
func (c Config) Cancelled() bool { return c.Status == StatusCancelled }

type wire struct {
	ID           string            `json:"id"`
	Kind         Kind              `json:"kind"`
	Participants []domain.PlayerID `json:"participants"`
	Status       Status            `json:"status,omitempty"`
	Options      json.RawMessage   `json:"options,omitempty"`
}

// DecodeJSON strictly decodes one bet and validates it.
func DecodeJSON(data []byte) (Config, error) {
	var w wire
	if err := strictJSON(data, &w); err != nil {
		return Config{}, domain.NewConfigError("bet", "%v", err)
	}
	c := Config{ID: w.ID, Kind: w.Kind, Participants: w.Participants, Status: w.Status}

	var err error
	switch w.Kind {
	case KindSkins:
		opts := skins.DefaultConfig()
		err = decodeOptions(w.Options, &opts)
		c.Skins = &opts
	case KindWolf:
		opts := wolf.DefaultConfig()
		err = decodeOptions(w.Options, &opts)
		c.Wolf = &opts
	case KindNassau:
		opts := NassauConfig{Config: nassau.DefaultConfig()}
		err = decodeOptions(w.Options, &opts)
		c.Nassau = &opts
	case KindMatch:
		opts := MatchConfig{}
		err = decodeOptions(w.Options, &opts)
		c.Match = &opts
	case KindSnake:
		opts := snake.DefaultConfig()
		err = decodeOptions(w.Options, &opts)
		c.Snake = &opts
	case KindProximity:
		opts := ProximityConfig{Measure: MeasureClosest}
		err = decodeOptions(w.Options, &opts)
		c.Proximity = &opts
	default:
		return Config{}, domain.NewConfigError("bet.kind", "unknown kind %q", w.Kind)
	}
	if err != nil {
		return Config{}, domain.NewConfigError("bet.options", "%s: %v", w.Kind, err)
	}
	if w.Status == "" {
		c.Status = StatusActive
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// DecodeYAML decodes one bet written in YAML with the same keys as JSON.
func DecodeYAML(data []byte) (Config, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Config{}, domain.NewConfigError("bet", "%v", err)
	}
	return fromGeneric(raw)
}

func fromGeneric(raw any) (Config, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return Config{}, domain.NewConfigError("bet", "%v", err)
	}
	return DecodeJSON(data)
}

// UnmarshalJSON makes Config usable inside larger documents.
func (c *Config) UnmarshalJSON(data []byte) error {
	decoded, err := DecodeJSON(data)
	if err != nil {
		return err
	}
	*c = decoded
	return nil
}

// UnmarshalYAML makes Config usable inside YAML round fixtures.
func (c *Config) UnmarshalYAML(node *yaml.Node) error {
	var raw any
	if err := node.Decode(&raw); err != nil {
		return domain.NewConfigError("bet", "%v", err)
	}
	decoded, err := fromGeneric(raw)
	if err != nil {
		return err
	}
	*c = decoded
	return nil
}

// MarshalJSON writes the wire form.
func (c Config) MarshalJSON() ([]byte, error) {
	opts, err := json.Marshal(c.options())
	if err != nil {
		return nil, err
	}
	return json.Marshal(wire{ID: c.ID, Kind: c.Kind, Participants: c.Participants, Status: c.Status, Options: opts})
}

func (c Config) options() any {
	switch c.Kind {
	case KindSkins:
		return c.Skins
	case KindWolf:
		return c.Wolf
	case KindNassau:
		return c.Nassau
	case KindMatch:
		return c.Match
	case KindSnake:
		return c.Snake
	case KindProximity:
		return c.Proximity
	}
	return nil
}

// Validate checks the bet against its schema and the participant rules of
// its kind.
func (c Config) Validate() error {
	if err := validator().Struct(c); err != nil {
		return configError(err)
	}
	opts := c.options()
	set := 0
	for _, o := range []any{c.Skins, c.Wolf, c.Nassau, c.Match, c.Snake, c.Proximity} {
		if !isNil(o) {
			set++
		}
	}
	if isNil(opts) || set != 1 {
		return domain.NewConfigError("bet.options", "a %s bet needs exactly its own option set", c.Kind)
	}

	switch c.Kind {
	case KindWolf:
		if len(c.Participants) != wolf.Players {
			return domain.NewConfigError("bet.participants", "wolf needs exactly %d players", wolf.Players)
		}
		if len(c.Wolf.WolfOrder) > 0 {
			if err := wolf.CheckOrder("bet.options.wolfOrder", c.Participants, c.Wolf.WolfOrder); err != nil {
				return err
			}
		}
	case KindNassau, KindMatch:
		if _, _, err := c.Sides(); err != nil {
			return err
		}
	}
	if c.Kind == KindMatch && c.Match.LastHole < c.Match.FirstHole {
		return domain.NewConfigError("bet.options.lastHole", "before firstHole")
	}
	return nil
}

// Sides resolves the two sides of a Nassau or match bet.
func (c Config) Sides() (domain.Side, domain.Side, error) {
	var s Sides
	switch {
	case c.Nassau != nil:
		s = c.Nassau.Sides
	case c.Match != nil:
		s = c.Match.Sides
	default:
		return domain.Side{}, domain.Side{}, domain.NewConfigError("bet.sides", "%s bets have no sides", c.Kind)
	}

	if len(s.A) == 0 && len(s.B) == 0 {
		if len(c.Participants) != 2 {
			return domain.Side{}, domain.Side{}, domain.NewConfigError("bet.options.sides", "sides are required with %d participants", len(c.Participants))
		}
		s = Sides{A: c.Participants[:1], B: c.Participants[1:]}
	}
	if len(s.A) == 0 || len(s.B) == 0 {
		return domain.Side{}, domain.Side{}, domain.NewConfigError("bet.options.sides", "both sides need players")
	}
	seen := make(map[domain.PlayerID]bool)
	for _, p := range slices.Concat(s.A, s.B) {
		if !slices.Contains(c.Participants, p) {
			return domain.Side{}, domain.Side{}, domain.NewConfigError("bet.options.sides", "%s is not a participant", p)
		}
		if seen[p] {
			return domain.Side{}, domain.Side{}, domain.NewConfigError("bet.options.sides", "%s is on a side twice", p)
		}
		seen[p] = true
	}
	return side(s.A), side(s.B), nil
}

func side(players []domain.PlayerID) domain.Side {
	ids := make([]string, len(players))
	for i, p := range players {
		ids[i] = string(p)
	}
	return domain.Side{ID: strings.Join(ids, "+"), Players: slices.Clone(players)}
}

func strictJSON(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("trailing data after bet")
	}
	return nil
}

func decodeOptions(raw json.RawMessage, into any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return strictJSON(raw, into)
}

func isNil(v any) bool {
	switch o := v.(type) {
	case nil:
		return true
	case *skins.Config:
		return o == nil
	case *wolf.Config:
		return o == nil
	case *NassauConfig:
		return o == nil
	case *MatchConfig:
		return o == nil
	case *snake.Config:
		return o == nil
	case *ProximityConfig:
		return o == nil
	}
	return false
}
