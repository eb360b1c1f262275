// Package store persists rounds, scores, bets and the extra inputs some bets need,
// and loads them back as one settlement.Round snapshot.
//
// The store never computes money. It hands the HTTP layer everything recorded for a
// round, the HTTP layer runs settlement.Compute on it, and the store writes back only
// what later recomputes need to read again: presses (whose terms are frozen once
// opened) and the last published settlement events (so only new transitions are sent).
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	// expirable is an LRU cache whose entries also expire after a TTL. Tee layouts
	// almost never change, and every single recompute needs one, so caching them saves
	// a three-table query on every score entry.
	"github.com/hashicorp/golang-lru/v2/expirable"
	"gorm.io/gorm"
	// clause builds the ON CONFLICT part of INSERT statements for upserts.
	"gorm.io/gorm/clause"

	"github.com/trentd187/golf-wagers/internal/bets"
	"github.com/trentd187/golf-wagers/internal/domain"
	"github.com/trentd187/golf-wagers/internal/handicap"
	"github.com/trentd187/golf-wagers/internal/leaderboard"
	"github.com/trentd187/golf-wagers/internal/logger"
	"github.com/trentd187/golf-wagers/internal/models"
	"github.com/trentd187/golf-wagers/internal/nassau"
	"github.com/trentd187/golf-wagers/internal/settlement"
	"github.com/trentd187/golf-wagers/internal/wolf"
)

// Repository is everything the HTTP layer needs from persistence.
// Handlers depend on this interface rather than on *Store so they can be tested
// against an in-memory fake without a database.
type Repository interface {
	CreateCourse(ctx context.Context, c NewCourse) (CourseRef, error)
	CreateRound(ctx context.Context, r NewRound) (uuid.UUID, error)
	LoadRound(ctx context.Context, roundID uuid.UUID) (settlement.Round, error)
	Events(ctx context.Context, roundID uuid.UUID) ([]settlement.Event, error)

	UpsertScore(ctx context.Context, roundID uuid.UUID, s domain.HoleScore, enteredBy *uuid.UUID) error
	RecordPutts(ctx context.Context, roundID uuid.UUID, player domain.PlayerID, hole, putts int) error
	AddBet(ctx context.Context, roundID uuid.UUID, bet bets.Config) error
	CancelBet(ctx context.Context, roundID uuid.UUID, betID string) error
	PutWolfDecision(ctx context.Context, roundID uuid.UUID, betID string, d wolf.Decision) error
	AddPressRequest(ctx context.Context, roundID uuid.UUID, betID string, req nassau.PressRequest) error
	AddResolution(ctx context.Context, roundID uuid.UUID, r settlement.Resolution) error
	CompleteRound(ctx context.Context, roundID uuid.UUID) error

	SaveSettlement(ctx context.Context, roundID uuid.UUID, res *settlement.Result) error
}

// NewCourse is a course with the single tee set a round will be played from.
type NewCourse struct {
	Course domain.Course
	City   string
	State  string
}

// CourseRef identifies a stored course and its tee set.
type CourseRef struct {
	CourseID uuid.UUID `json:"course_id"`
	TeeID    uuid.UUID `json:"tee_id"`
}

// NewRound is everything needed to open a round.
type NewRound struct {
	Name             string
	TeeID            uuid.UUID
	ScheduledDate    time.Time
	Players          []domain.Player // tee order
	PrimaryFormat    leaderboard.Format
	AllowancePercent int
	OffTheLow        bool
	CreatedBy        uuid.UUID
}

// Store is the GORM implementation of Repository.
type Store struct {
	db      *gorm.DB
	courses *expirable.LRU[uuid.UUID, domain.Course]
}

// New creates a Store with a course cache holding up to cacheSize tee layouts for ttl.
func New(db *gorm.DB, cacheSize int, ttl time.Duration) *Store {
	return &Store{
		db:      db,
		courses: expirable.NewLRU[uuid.UUID, domain.Course](cacheSize, nil, ttl),
	}
}

// CreateCourse stores a course, its tee set and holes in one transaction.
func (s *Store) CreateCourse(ctx context.Context, c NewCourse) (CourseRef, error) {
	if err := c.Course.Validate(); err != nil {
		return CourseRef{}, err
	}
	if err := handicap.ValidateRanks(c.Course.Holes); err != nil {
		return CourseRef{}, err
	}

	course := models.Course{Name: c.Course.Name, City: c.City, State: c.State, HoleCount: len(c.Course.Holes)}
	tee := models.Tee{
		Name:         c.Course.Tee.Name,
		Gender:       models.TeeGenderUnisex,
		CourseRating: c.Course.Tee.Rating,
		SlopeRating:  c.Course.Tee.Slope,
		Par:          c.Course.Tee.Par,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&course).Error; err != nil {
			return err
		}
		tee.CourseID = course.ID
		if err := tx.Create(&tee).Error; err != nil {
			return err
		}
		holes := make([]models.Hole, len(c.Course.Holes))
		for i, h := range c.Course.Holes {
			holes[i] = models.Hole{TeeID: tee.ID, HoleNumber: h.Number, Par: h.Par, StrokeIndex: h.Rank}
		}
		return tx.Create(&holes).Error
	})
	if err != nil {
		return CourseRef{}, fmt.Errorf("creating course: %w", err)
	}
	s.courses.Add(tee.ID, c.Course)
	return CourseRef{CourseID: course.ID, TeeID: tee.ID}, nil
}

// CreateRound stores a round and its players in tee order.
func (s *Store) CreateRound(ctx context.Context, r NewRound) (uuid.UUID, error) {
	var tee models.Tee
	if err := s.db.WithContext(ctx).First(&tee, "id = ?", r.TeeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, domain.NewConfigError("round.tee_id", "tee %s does not exist", r.TeeID)
		}
		return uuid.Nil, err
	}

	format := r.PrimaryFormat
	if format == "" {
		format = leaderboard.FormatNetStroke
	}
	allowance := r.AllowancePercent
	if allowance == 0 {
		allowance = 100
	}
	round := models.Round{
		Name:             r.Name,
		CourseID:         tee.CourseID,
		TeeID:            tee.ID,
		ScheduledDate:    r.ScheduledDate,
		Status:           models.RoundStatusActive,
		PrimaryFormat:    string(format),
		AllowancePercent: allowance,
		OffTheLow:        r.OffTheLow,
		CreatedBy:        r.CreatedBy,
	}
	for i, p := range r.Players {
		rp := models.RoundPlayer{
			PlayerKey:     string(p.ID),
			DisplayName:   p.Name,
			HandicapIndex: p.HandicapIndex,
			TeeOrder:      i,
		}
		if !p.TeeTime.IsZero() {
			t := p.TeeTime
			rp.TeeTime = &t
		}
		round.Players = append(round.Players, rp)
	}

	// Create with associations inserts the round and then every RoundPlayer in one go.
	if err := s.db.WithContext(ctx).Create(&round).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return uuid.Nil, domain.NewConfigError("round.players", "player ids must be unique")
		}
		return uuid.Nil, fmt.Errorf("creating round: %w", err)
	}
	return round.ID, nil
}

// LoadRound reads everything recorded for a round.
func (s *Store) LoadRound(ctx context.Context, roundID uuid.UUID) (settlement.Round, error) {
	db := s.db.WithContext(ctx)

	var round models.Round
	err := db.Preload("Players", func(tx *gorm.DB) *gorm.DB { return tx.Order("tee_order") }).
		First(&round, "id = ?", roundID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return settlement.Round{}, fmt.Errorf("%w: %s", domain.ErrRoundNotFound, roundID)
	}
	if err != nil {
		return settlement.Round{}, fmt.Errorf("loading round: %w", err)
	}

	course, err := s.course(ctx, round.TeeID)
	if err != nil {
		return settlement.Round{}, err
	}

	out := settlement.Round{
		ID:               roundID.String(),
		Course:           course,
		Complete:         round.Status == models.RoundStatusCompleted,
		PrimaryFormat:    leaderboard.Format(round.PrimaryFormat),
		AllowancePercent: round.AllowancePercent,
		OffTheLow:        round.OffTheLow,
	}
	for _, p := range round.Players {
		player := domain.Player{ID: domain.PlayerID(p.PlayerKey), Name: p.DisplayName, HandicapIndex: p.HandicapIndex}
		if p.TeeTime != nil {
			player.TeeTime = *p.TeeTime
		}
		out.Players = append(out.Players, player)
	}

	var scores []models.Score
	if err := db.Where("round_id = ?", roundID).Order("player_key, hole_number").Find(&scores).Error; err != nil {
		return settlement.Round{}, fmt.Errorf("loading scores: %w", err)
	}
	for _, sc := range scores {
		out.Scores = append(out.Scores, domain.HoleScore{
			PlayerID:  domain.PlayerID(sc.PlayerKey),
			Hole:      sc.HoleNumber,
			Gross:     sc.GrossScore,
			Putts:     sc.Putts,
			Penalties: sc.Penalties,
		})
	}

	if err := s.loadBets(ctx, roundID, &out); err != nil {
		return settlement.Round{}, err
	}
	if err := s.loadInputs(ctx, roundID, &out); err != nil {
		return settlement.Round{}, err
	}
	return out, nil
}

func (s *Store) loadBets(ctx context.Context, roundID uuid.UUID, out *settlement.Round) error {
	var rows []models.Bet
	if err := s.db.WithContext(ctx).Where("round_id = ?", roundID).Order("position, created_at").Find(&rows).Error; err != nil {
		return fmt.Errorf("loading bets: %w", err)
	}
	for _, row := range rows {
		bet, err := decodeBet(row)
		if err != nil {
			// A stored bet that no longer decodes keeps its identity but no options.
			// Settlement then flags it as needing attention instead of failing the round.
			logger.FromContext(ctx).Warn("stored bet does not decode",
				slog.String("round_id", roundID.String()),
				slog.String("bet_id", row.BetKey),
				slog.Any("error", err),
			)
		}
		out.Bets = append(out.Bets, bet)
	}
	return nil
}

func (s *Store) loadInputs(ctx context.Context, roundID uuid.UUID, out *settlement.Round) error {
	db := s.db.WithContext(ctx)

	var decisions []models.WolfDecision
	if err := db.Where("round_id = ?", roundID).Order("hole_number").Find(&decisions).Error; err != nil {
		return fmt.Errorf("loading wolf decisions: %w", err)
	}
	for _, d := range decisions {
		if out.WolfDecisions == nil {
			out.WolfDecisions = make(map[string][]wolf.Decision)
		}
		out.WolfDecisions[d.BetKey] = append(out.WolfDecisions[d.BetKey], wolf.Decision{
			Hole:         d.HoleNumber,
			Partner:      playerPtr(d.Partner),
			WorstTeeShot: playerPtr(d.WorstTeeShot),
		})
	}

	var requests []models.PressRequest
	if err := db.Where("round_id = ?", roundID).Order("created_at, id").Find(&requests).Error; err != nil {
		return fmt.Errorf("loading press requests: %w", err)
	}
	for _, r := range requests {
		if out.PressRequests == nil {
			out.PressRequests = make(map[string][]nassau.PressRequest)
		}
		out.PressRequests[r.BetKey] = append(out.PressRequests[r.BetKey], nassau.PressRequest{
			Segment:        nassau.Segment(r.Segment),
			Initiator:      r.Initiator,
			StartHole:      r.StartHole,
			RequestedAfter: r.RequestedAfter,
		})
	}

	var presses []models.Press
	if err := db.Where("round_id = ?", roundID).Order("id").Find(&presses).Error; err != nil {
		return fmt.Errorf("loading presses: %w", err)
	}
	for _, p := range presses {
		var bet nassau.Bet
		if err := json.Unmarshal(p.Data, &bet); err != nil {
			return fmt.Errorf("decoding press %s: %w", p.ID, err)
		}
		if out.PriorPresses == nil {
			out.PriorPresses = make(map[string][]nassau.Bet)
		}
		out.PriorPresses[p.BetKey] = append(out.PriorPresses[p.BetKey], bet)
	}

	var resolutions []models.Resolution
	if err := db.Where("round_id = ?", roundID).Order("created_at, id").Find(&resolutions).Error; err != nil {
		return fmt.Errorf("loading resolutions: %w", err)
	}
	for _, r := range resolutions {
		out.Resolutions = append(out.Resolutions, settlement.Resolution{BetID: r.BetKey, Winner: playerPtr(r.Winner)})
	}
	return nil
}

// course returns the layout of a tee set, from the cache when possible.
func (s *Store) course(ctx context.Context, teeID uuid.UUID) (domain.Course, error) {
	if c, ok := s.courses.Get(teeID); ok {
		return c, nil
	}

	var tee models.Tee
	err := s.db.WithContext(ctx).
		Preload("Course").
		Preload("Holes", func(tx *gorm.DB) *gorm.DB { return tx.Order("hole_number") }).
		First(&tee, "id = ?", teeID).Error
	if err != nil {
		return domain.Course{}, fmt.Errorf("loading tee %s: %w", teeID, err)
	}

	c := domain.Course{
		Name: tee.Course.Name,
		Tee:  domain.Tee{Name: tee.Name, Rating: tee.CourseRating, Slope: tee.SlopeRating, Par: tee.Par},
	}
	for _, h := range tee.Holes {
		c.Holes = append(c.Holes, domain.CourseHole{Number: h.HoleNumber, Par: h.Par, Rank: h.StrokeIndex})
	}
	s.courses.Add(teeID, c)
	return c, nil
}

// Events returns the settlement events saved by the last recompute.
func (s *Store) Events(ctx context.Context, roundID uuid.UUID) ([]settlement.Event, error) {
	var rows []models.SettlementEvent
	if err := s.db.WithContext(ctx).Where("round_id = ?", roundID).Order("event_key").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("loading settlement events: %w", err)
	}
	events := make([]settlement.Event, 0, len(rows))
	for _, row := range rows {
		var e settlement.Event
		if err := json.Unmarshal(row.Data, &e); err != nil {
			return nil, fmt.Errorf("decoding settlement event %s: %w", row.EventKey, err)
		}
		events = append(events, e)
	}
	return events, nil
}

// UpsertScore records a hole score. A second write for the same player and hole
// replaces the first: last write wins.
func (s *Store) UpsertScore(ctx context.Context, roundID uuid.UUID, sc domain.HoleScore, enteredBy *uuid.UUID) error {
	row := models.Score{
		RoundID:    roundID,
		PlayerKey:  string(sc.PlayerID),
		HoleNumber: sc.Hole,
		GrossScore: sc.Gross,
		Putts:      sc.Putts,
		Penalties:  sc.Penalties,
		EnteredBy:  enteredBy,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "round_id"}, {Name: "player_key"}, {Name: "hole_number"}},
		DoUpdates: clause.AssignmentColumns([]string{"gross_score", "putts", "penalties", "entered_by", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("saving score: %w", err)
	}
	return nil
}

// RecordPutts sets the putts on an existing score.
func (s *Store) RecordPutts(ctx context.Context, roundID uuid.UUID, player domain.PlayerID, hole, putts int) error {
	res := s.db.WithContext(ctx).Model(&models.Score{}).
		Where("round_id = ? AND player_key = ? AND hole_number = ?", roundID, player, hole).
		Update("putts", putts)
	if res.Error != nil {
		return fmt.Errorf("saving putts: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: no score for %s on hole %d", domain.ErrInvalidScore, player, hole)
	}
	return nil
}

// AddBet stores a validated bet after the round's existing bets.
func (s *Store) AddBet(ctx context.Context, roundID uuid.UUID, bet bets.Config) error {
	row, err := encodeBet(roundID, bet)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Bet{}).Where("round_id = ?", roundID).Count(&count).Error; err != nil {
			return err
		}
		row.Position = int(count)
		return tx.Create(&row).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: bet %s already exists", domain.ErrInvalidInput, bet.ID)
	}
	if err != nil {
		return fmt.Errorf("saving bet: %w", err)
	}
	return nil
}

// CancelBet calls a bet off. It stays on the round and settles to zero.
func (s *Store) CancelBet(ctx context.Context, roundID uuid.UUID, betID string) error {
	res := s.db.WithContext(ctx).Model(&models.Bet{}).
		Where("round_id = ? AND bet_key = ?", roundID, betID).
		Update("status", models.BetStatusCancelled)
	if res.Error != nil {
		return fmt.Errorf("cancelling bet: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", domain.ErrBetNotFound, betID)
	}
	return nil
}

// PutWolfDecision records the wolf's call on a hole, replacing any earlier call.
func (s *Store) PutWolfDecision(ctx context.Context, roundID uuid.UUID, betID string, d wolf.Decision) error {
	row := models.WolfDecision{
		RoundID:      roundID,
		BetKey:       betID,
		HoleNumber:   d.Hole,
		Partner:      stringPtr(d.Partner),
		WorstTeeShot: stringPtr(d.WorstTeeShot),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "round_id"}, {Name: "bet_key"}, {Name: "hole_number"}},
		DoUpdates: clause.AssignmentColumns([]string{"partner", "worst_tee_shot", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("saving wolf decision: %w", err)
	}
	return nil
}

// AddPressRequest records a manual press.
func (s *Store) AddPressRequest(ctx context.Context, roundID uuid.UUID, betID string, req nassau.PressRequest) error {
	row := models.PressRequest{
		RoundID:        roundID,
		BetKey:         betID,
		Segment:        string(req.Segment),
		Initiator:      req.Initiator,
		StartHole:      req.StartHole,
		RequestedAfter: req.RequestedAfter,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("saving press request: %w", err)
	}
	return nil
}

// AddResolution records a manual result. The latest resolution of a bet wins.
func (s *Store) AddResolution(ctx context.Context, roundID uuid.UUID, r settlement.Resolution) error {
	row := models.Resolution{RoundID: roundID, BetKey: r.BetID, Winner: stringPtr(r.Winner)}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("saving resolution: %w", err)
	}
	return nil
}

// CompleteRound closes a round. Every bet then settles.
func (s *Store) CompleteRound(ctx context.Context, roundID uuid.UUID) error {
	now := time.Now()
	res := s.db.WithContext(ctx).Model(&models.Round{}).
		Where("id = ?", roundID).
		Updates(map[string]any{"status": models.RoundStatusCompleted, "completed_at": now})
	if res.Error != nil {
		return fmt.Errorf("completing round: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", domain.ErrRoundNotFound, roundID)
	}
	return nil
}

// SaveSettlement writes back what the next recompute must read: every press the
// Nassau engine opened, and the events of bets currently in a terminal status.
func (s *Store) SaveSettlement(ctx context.Context, roundID uuid.UUID, res *settlement.Result) error {
	var presses []models.Press
	for _, out := range res.Outcomes {
		if out.Nassau == nil {
			continue
		}
		for _, b := range out.Nassau.Bets {
			if !b.IsPress() {
				continue
			}
			data, err := json.Marshal(b)
			if err != nil {
				return fmt.Errorf("encoding press %s: %w", b.ID, err)
			}
			presses = append(presses, models.Press{ID: b.ID, RoundID: roundID, BetKey: out.BetID, Data: data})
		}
	}

	events := make([]models.SettlementEvent, 0, len(res.Events))
	keys := make([]string, 0, len(res.Events))
	for _, e := range res.Events {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encoding settlement event %s: %w", e.Key(), err)
		}
		events = append(events, models.SettlementEvent{RoundID: roundID, EventKey: e.Key(), Status: string(e.Status), Data: data})
		keys = append(keys, e.Key())
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(presses) > 0 {
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
			}).Create(&presses).Error
			if err != nil {
				return fmt.Errorf("saving presses: %w", err)
			}
		}

		// An event whose bet left its terminal status (a score correction reopened a
		// match, say) is dropped, so it is published again once it settles.
		stale := tx.Where("round_id = ?", roundID)
		if len(keys) > 0 {
			stale = stale.Where("event_key NOT IN ?", keys)
		}
		if err := stale.Delete(&models.SettlementEvent{}).Error; err != nil {
			return fmt.Errorf("pruning settlement events: %w", err)
		}
		if len(events) == 0 {
			return nil
		}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "round_id"}, {Name: "event_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "data", "updated_at"}),
		}).Create(&events).Error
		if err != nil {
			return fmt.Errorf("saving settlement events: %w", err)
		}
		return nil
	})
}

// encodeBet splits a bet into the row columns. The options column holds the same
// option bag the bets package reads and writes on the wire.
func encodeBet(roundID uuid.UUID, bet bets.Config) (models.Bet, error) {
	data, err := json.Marshal(bet)
	if err != nil {
		return models.Bet{}, fmt.Errorf("encoding bet %s: %w", bet.ID, err)
	}
	var w struct {
		Participants json.RawMessage `json:"participants"`
		Options      json.RawMessage `json:"options"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return models.Bet{}, fmt.Errorf("encoding bet %s: %w", bet.ID, err)
	}
	status := models.BetStatusActive
	if bet.Cancelled() {
		status = models.BetStatusCancelled
	}
	return models.Bet{
		RoundID:      roundID,
		BetKey:       bet.ID,
		Kind:         string(bet.Kind),
		Participants: w.Participants,
		Options:      w.Options,
		Status:       status,
	}, nil
}

// decodeBet rebuilds a bet from its row. On error the returned bet still carries
// its id, kind and participants.
func decodeBet(row models.Bet) (bets.Config, error) {
	var participants []domain.PlayerID
	_ = json.Unmarshal(row.Participants, &participants)
	fallback := bets.Config{
		ID:           row.BetKey,
		Kind:         bets.Kind(row.Kind),
		Participants: participants,
		Status:       bets.Status(row.Status),
	}

	data, err := json.Marshal(map[string]any{
		"id":           row.BetKey,
		"kind":         row.Kind,
		"participants": json.RawMessage(row.Participants),
		"status":       string(row.Status),
		"options":      json.RawMessage(row.Options),
	})
	if err != nil {
		return fallback, err
	}
	bet, err := bets.DecodeJSON(data)
	if err != nil {
		return fallback, err
	}
	return bet, nil
}

func playerPtr(s *string) *domain.PlayerID {
	if s == nil {
		return nil
	}
	id := domain.PlayerID(*s)
	return &id
}

func stringPtr(p *domain.PlayerID) *string {
	if p == nil {
		return nil
	}
	s := string(*p)
	return &s
}
