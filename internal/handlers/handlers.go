// Package handlers contains the HTTP route handler functions for the Golf Wagers API.
// Each handler corresponds to one API endpoint and is responsible for reading the
// request, applying the change, and writing a response.
//
// --- Recompute on every mutation ---
// The settlement engine holds no state of its own. Every request that changes a round
// (a score, a putt count, a new bet, a wolf call, a press, a manual result, closing
// the round) goes through the same steps in Handler.mutate:
//
//  1. Load everything recorded for the round from the store.
//  2. Apply the change to that in-memory snapshot.
//  3. Recompute every bet with settlement.Compute. If the change makes the round
//     unsettleable (an unknown player, a hole that isn't on the course) nothing is
//     written and the caller gets the error.
//  4. Persist the change, then the settlement state later recomputes read back.
//  5. Push the new leaderboard to everyone streaming the round.
//  6. Publish the bets that newly reached a terminal status.
//
// Mutations on the same round are serialized with a per-round lock, so two scorers
// entering holes at once can't interleave a load with another request's write.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/trentd187/golf-wagers/internal/domain"
	"github.com/trentd187/golf-wagers/internal/leaderboard"
	"github.com/trentd187/golf-wagers/internal/logger"
	"github.com/trentd187/golf-wagers/internal/notify"
	"github.com/trentd187/golf-wagers/internal/settlement"
	"github.com/trentd187/golf-wagers/internal/store"
	"github.com/trentd187/golf-wagers/internal/websocket"
)

// Hub fans leaderboard updates out to everyone watching a round. *websocket.Hub implements it.
type Hub interface {
	BroadcastToRound(roundID string, data []byte)
	Register(client *websocket.Client) bool
	Unregister(client *websocket.Client)
}

// Handler holds the dependencies shared by every route.
// Its methods are fiber.Handlers, registered in cmd/server like:
//
//	api.Put("/rounds/:id/scores", h.UpsertScore)
type Handler struct {
	repo  store.Repository
	hub   Hub
	pub   notify.Publisher
	locks *roundLocks
}

// New creates a Handler. hub and pub may be nil: nothing is pushed or published
// then, and the leaderboard stream is unavailable.
func New(repo store.Repository, hub Hub, pub notify.Publisher) *Handler {
	if pub == nil {
		pub = notify.Noop{}
	}
	return &Handler{repo: repo, hub: hub, pub: pub, locks: newRoundLocks()}
}

// LeaderboardUpdate is the payload pushed to streaming clients after a recompute.
type LeaderboardUpdate struct {
	RoundID     string            `json:"round_id"`
	Complete    bool              `json:"complete"`
	Leaderboard []leaderboard.Row `json:"leaderboard"`
}

// mutate runs one change through the recompute cycle described in the package doc.
// apply edits the loaded snapshot; persist writes the same change to the store.
func (h *Handler) mutate(ctx context.Context, roundID uuid.UUID, apply func(*settlement.Round) error, persist func(context.Context) error) (*settlement.Result, error) {
	unlock := h.locks.lock(roundID)
	defer unlock()

	round, err := h.repo.LoadRound(ctx, roundID)
	if err != nil {
		return nil, err
	}
	prev, err := h.repo.Events(ctx, roundID)
	if err != nil {
		return nil, err
	}
	if err := apply(&round); err != nil {
		return nil, err
	}
	res, err := settlement.Compute(ctx, round)
	if err != nil {
		return nil, err
	}
	if err := persist(ctx); err != nil {
		return nil, err
	}
	if err := h.repo.SaveSettlement(ctx, roundID, res); err != nil {
		return nil, err
	}

	h.broadcast(ctx, res)

	// A publish failure doesn't undo the change: the events stay saved, and the next
	// recompute only republishes what changed after it, so it is logged and dropped.
	if transitions := settlement.Transitions(prev, res.Events); len(transitions) > 0 {
		if err := h.pub.Publish(ctx, transitions); err != nil {
			logger.FromContext(ctx).Warn("publishing settlement events",
				slog.String("round_id", res.RoundID),
				slog.Int("events", len(transitions)),
				slog.Any("error", err),
			)
		}
	}
	return res, nil
}

func (h *Handler) broadcast(ctx context.Context, res *settlement.Result) {
	if h.hub == nil {
		return
	}
	data, err := json.Marshal(update(res))
	if err != nil {
		logger.FromContext(ctx).Error("encoding leaderboard update", slog.Any("error", err))
		return
	}
	h.hub.BroadcastToRound(res.RoundID, data)
}

func update(res *settlement.Result) LeaderboardUpdate {
	return LeaderboardUpdate{RoundID: res.RoundID, Complete: res.Complete, Leaderboard: res.Leaderboard}
}

// statusFor maps an error onto the HTTP status the client sees.
//   - 400: the request itself is malformed
//   - 404: the round or bet doesn't exist
//   - 409: the round is already closed, or a press asks to start on a hole already played
//   - 422: the request is well-formed but the round can't be settled with it
//   - 500: anything else (a database outage, a bug)
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrRoundNotFound), errors.Is(err, domain.ErrBetNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrRoundCompleted), errors.Is(err, domain.ErrPressTooLate):
		return fiber.StatusConflict
	case errors.Is(err, domain.ErrConfiguration),
		errors.Is(err, domain.ErrInvariantViolation),
		errors.Is(err, domain.ErrUnknownPlayer),
		errors.Is(err, domain.ErrUnknownHole),
		errors.Is(err, domain.ErrInvalidScore):
		return fiber.StatusUnprocessableEntity
	}
	return fiber.StatusInternalServerError
}

// fail writes err as a JSON error response. Server errors are logged and their
// detail is kept out of the response body.
func fail(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	if status == fiber.StatusInternalServerError {
		logger.FromContext(c.UserContext()).Error("request failed",
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Any("error", err),
		)
		return c.Status(status).JSON(fiber.Map{"error": "internal error"})
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

// badRequest rejects a malformed request with a fixed message.
func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

// roundID parses the :id route parameter.
func roundID(c *fiber.Ctx) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params("id"))
	return id, err == nil
}

// roundLocks hands out one mutex per round.
type roundLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*roundLock
}

type roundLock struct {
	mu   sync.Mutex
	refs int // requests holding or waiting for mu
}

func newRoundLocks() *roundLocks {
	return &roundLocks{locks: make(map[uuid.UUID]*roundLock)}
}

// lock blocks until the caller holds the round's lock and returns the release func.
// The entry is dropped once nobody holds or waits for it.
func (l *roundLocks) lock(id uuid.UUID) func() {
	l.mu.Lock()
	rl, ok := l.locks[id]
	if !ok {
		rl = &roundLock{}
		l.locks[id] = rl
	}
	rl.refs++
	l.mu.Unlock()

	rl.mu.Lock()
	return func() {
		rl.mu.Unlock()
		l.mu.Lock()
		rl.refs--
		if rl.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}
