package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/trentd187/golf-wagers/internal/bets"
	"github.com/trentd187/golf-wagers/internal/domain"
	"github.com/trentd187/golf-wagers/internal/nassau"
	"github.com/trentd187/golf-wagers/internal/settlement"
	"github.com/trentd187/golf-wagers/internal/store"
	"github.com/trentd187/golf-wagers/internal/wolf"
)

// memRepo is an in-memory store.Repository. Rounds are kept as JSON so every
// LoadRound hands out an independent copy, like a database would.
type memRepo struct {
	mu      sync.Mutex
	courses map[uuid.UUID]domain.Course
	rounds  map[uuid.UUID][]byte
	events  map[uuid.UUID][]settlement.Event
	saveErr error
}

var _ store.Repository = (*memRepo)(nil)

func newMemRepo() *memRepo {
	return &memRepo{
		courses: make(map[uuid.UUID]domain.Course),
		rounds:  make(map[uuid.UUID][]byte),
		events:  make(map[uuid.UUID][]settlement.Event),
	}
}

func (m *memRepo) load(id uuid.UUID) (settlement.Round, error) {
	data, ok := m.rounds[id]
	if !ok {
		return settlement.Round{}, fmt.Errorf("%w: %s", domain.ErrRoundNotFound, id)
	}
	var r settlement.Round
	if err := json.Unmarshal(data, &r); err != nil {
		return settlement.Round{}, err
	}
	return r, nil
}

func (m *memRepo) save(id uuid.UUID, r settlement.Round) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	m.rounds[id] = data
	return nil
}

func (m *memRepo) edit(id uuid.UUID, fn func(*settlement.Round) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, err := m.load(id)
	if err != nil {
		return err
	}
	if err := fn(&r); err != nil {
		return err
	}
	return m.save(id, r)
}

// round returns the stored round for assertions.
func (m *memRepo) round(id uuid.UUID) settlement.Round {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, err := m.load(id)
	if err != nil {
		panic(err)
	}
	return r
}

func (m *memRepo) CreateCourse(_ context.Context, c store.NewCourse) (store.CourseRef, error) {
	if err := c.Course.Validate(); err != nil {
		return store.CourseRef{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ref := store.CourseRef{CourseID: uuid.New(), TeeID: uuid.New()}
	m.courses[ref.TeeID] = c.Course
	return ref, nil
}

func (m *memRepo) CreateRound(_ context.Context, nr store.NewRound) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	course, ok := m.courses[nr.TeeID]
	if !ok {
		return uuid.Nil, domain.NewConfigError("round.tee_id", "tee %s does not exist", nr.TeeID)
	}
	id := uuid.New()
	return id, m.save(id, settlement.Round{
		ID:               id.String(),
		Course:           course,
		Players:          nr.Players,
		PrimaryFormat:    nr.PrimaryFormat,
		AllowancePercent: nr.AllowancePercent,
		OffTheLow:        nr.OffTheLow,
	})
}

func (m *memRepo) LoadRound(_ context.Context, id uuid.UUID) (settlement.Round, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load(id)
}

func (m *memRepo) Events(_ context.Context, id uuid.UUID) ([]settlement.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.events[id]), nil
}

func (m *memRepo) UpsertScore(_ context.Context, id uuid.UUID, s domain.HoleScore, _ *uuid.UUID) error {
	return m.edit(id, func(r *settlement.Round) error {
		i := slices.IndexFunc(r.Scores, func(x domain.HoleScore) bool { return x.PlayerID == s.PlayerID && x.Hole == s.Hole })
		if i >= 0 {
			r.Scores[i] = s
		} else {
			r.Scores = append(r.Scores, s)
		}
		return nil
	})
}

func (m *memRepo) RecordPutts(_ context.Context, id uuid.UUID, player domain.PlayerID, hole, putts int) error {
	return m.edit(id, func(r *settlement.Round) error {
		i := slices.IndexFunc(r.Scores, func(x domain.HoleScore) bool { return x.PlayerID == player && x.Hole == hole })
		if i < 0 {
			return domain.ErrInvalidScore
		}
		r.Scores[i].Putts = &putts
		return nil
	})
}

func (m *memRepo) AddBet(_ context.Context, id uuid.UUID, bet bets.Config) error {
	return m.edit(id, func(r *settlement.Round) error {
		r.Bets = append(r.Bets, bet)
		return nil
	})
}

func (m *memRepo) CancelBet(_ context.Context, id uuid.UUID, betID string) error {
	return m.edit(id, func(r *settlement.Round) error {
		i := slices.IndexFunc(r.Bets, func(b bets.Config) bool { return b.ID == betID })
		if i < 0 {
			return domain.ErrBetNotFound
		}
		r.Bets[i].Status = bets.StatusCancelled
		return nil
	})
}

func (m *memRepo) PutWolfDecision(_ context.Context, id uuid.UUID, betID string, d wolf.Decision) error {
	return m.edit(id, func(r *settlement.Round) error {
		if r.WolfDecisions == nil {
			r.WolfDecisions = make(map[string][]wolf.Decision)
		}
		ds := r.WolfDecisions[betID]
		i := slices.IndexFunc(ds, func(x wolf.Decision) bool { return x.Hole == d.Hole })
		if i >= 0 {
			ds[i] = d
		} else {
			ds = append(ds, d)
		}
		r.WolfDecisions[betID] = ds
		return nil
	})
}

func (m *memRepo) AddPressRequest(_ context.Context, id uuid.UUID, betID string, req nassau.PressRequest) error {
	return m.edit(id, func(r *settlement.Round) error {
		if r.PressRequests == nil {
			r.PressRequests = make(map[string][]nassau.PressRequest)
		}
		r.PressRequests[betID] = append(r.PressRequests[betID], req)
		return nil
	})
}

func (m *memRepo) AddResolution(_ context.Context, id uuid.UUID, res settlement.Resolution) error {
	return m.edit(id, func(r *settlement.Round) error {
		r.Resolutions = append(r.Resolutions, res)
		return nil
	})
}

func (m *memRepo) CompleteRound(_ context.Context, id uuid.UUID) error {
	return m.edit(id, func(r *settlement.Round) error {
		r.Complete = true
		return nil
	})
}

func (m *memRepo) SaveSettlement(_ context.Context, id uuid.UUID, res *settlement.Result) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	err := m.edit(id, func(r *settlement.Round) error {
		for _, out := range res.Outcomes {
			if out.Nassau == nil {
				continue
			}
			var presses []nassau.Bet
			for _, b := range out.Nassau.Bets {
				if b.IsPress() {
					presses = append(presses, b)
				}
			}
			if r.PriorPresses == nil {
				r.PriorPresses = make(map[string][]nassau.Bet)
			}
			r.PriorPresses[out.BetID] = presses
		}
		return nil
	})
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[id] = slices.Clone(res.Events)
	return nil
}

// recorder is a notify.Publisher that keeps what it was given.
type recorder struct {
	mu     sync.Mutex
	events []settlement.Event
}

func (r *recorder) Publish(_ context.Context, events []settlement.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
	return nil
}

func (r *recorder) Close() {}

func (r *recorder) published() []settlement.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.events)
}
