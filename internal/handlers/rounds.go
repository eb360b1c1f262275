// This file handles courses, rounds, the leaderboard, and closing a round.
//
// A round is played by every player from one tee set of one course, so the course
// layout, the players (in tee order) and their handicap indexes are fixed when the
// round is created. Everything else (scores, bets, presses) is added during play.

package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	// fasthttp is the HTTP engine underneath Fiber. Its StreamWriter lets a handler
	// keep writing to the response after the handler function has returned, which is
	// what a server-sent events stream needs.
	"github.com/valyala/fasthttp"

	"github.com/trentd187/golf-wagers/internal/domain"
	"github.com/trentd187/golf-wagers/internal/leaderboard"
	"github.com/trentd187/golf-wagers/internal/logger"
	"github.com/trentd187/golf-wagers/internal/middleware"
	"github.com/trentd187/golf-wagers/internal/settlement"
	"github.com/trentd187/golf-wagers/internal/store"
	"github.com/trentd187/golf-wagers/internal/websocket"
)

// heartbeat is how often an idle stream sends a comment line. A write to a client
// that went away fails, which is how the stream notices the disconnect.
const heartbeat = 15 * time.Second

// CreateCourseRequest is the JSON body we expect on POST /api/v1/courses.
// The embedded domain.Course contributes the "name", "tee" and "holes" fields.
type CreateCourseRequest struct {
	domain.Course
	City  string `json:"city"`
	State string `json:"state"`
}

// CreateRoundRequest is the JSON body we expect on POST /api/v1/rounds.
type CreateRoundRequest struct {
	Name             string          `json:"name"`
	TeeID            string          `json:"tee_id"`            // Required: the tee set every player plays from
	ScheduledDate    *string         `json:"scheduled_date"`    // Optional: "YYYY-MM-DD"; defaults to today
	Players          []domain.Player `json:"players"`           // Required: in tee order
	PrimaryFormat    string          `json:"primary_format"`    // Optional: net_stroke (default), stroke or stableford
	AllowancePercent int             `json:"allowance_percent"` // Optional: 1–100; 0 means full handicap
	OffTheLow        bool            `json:"off_the_low"`
}

// CreateCourse handles POST /api/v1/courses.
// Requires "admin" or "manager" role (enforced by RequireRole middleware on the route).
func (h *Handler) CreateCourse(c *fiber.Ctx) error {
	var req CreateCourseRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Name == "" {
		return badRequest(c, "name is required")
	}

	ref, err := h.repo.CreateCourse(c.UserContext(), store.NewCourse{Course: req.Course, City: req.City, State: req.State})
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(ref)
}

// CreateRound handles POST /api/v1/rounds.
// Requires "admin" or "manager" role. The creator is recorded on the round.
func (h *Handler) CreateRound(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid user ID"})
	}

	var req CreateRoundRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	teeID, err := uuid.Parse(req.TeeID)
	if err != nil {
		return badRequest(c, "tee_id must be a UUID")
	}
	scheduled := time.Now().UTC().Truncate(24 * time.Hour)
	if req.ScheduledDate != nil && *req.ScheduledDate != "" {
		scheduled, err = time.Parse(time.DateOnly, *req.ScheduledDate)
		if err != nil {
			return badRequest(c, "scheduled_date must be in YYYY-MM-DD format")
		}
	}
	if err := validateRound(req); err != nil {
		return fail(c, err)
	}

	id, err := h.repo.CreateRound(c.UserContext(), store.NewRound{
		Name:             req.Name,
		TeeID:            teeID,
		ScheduledDate:    scheduled,
		Players:          req.Players,
		PrimaryFormat:    leaderboard.Format(req.PrimaryFormat),
		AllowancePercent: req.AllowancePercent,
		OffTheLow:        req.OffTheLow,
		CreatedBy:        userID,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": id.String()})
}

// validateRound checks what the database can't: player ids, handicap range, the
// format name and the allowance.
func validateRound(req CreateRoundRequest) error {
	if len(req.Players) < 2 {
		return domain.NewConfigError("round.players", "a round needs at least two players")
	}
	seen := make(map[domain.PlayerID]bool, len(req.Players))
	for _, p := range req.Players {
		if p.ID == "" {
			return domain.NewConfigError("round.players", "player without id")
		}
		if seen[p.ID] {
			return domain.NewConfigError("round.players", "duplicate player %s", p.ID)
		}
		seen[p.ID] = true
		if p.HandicapIndex < -5 || p.HandicapIndex > 54 {
			return domain.NewConfigError("round.players", "%s has handicap index %.1f outside -5..54", p.ID, p.HandicapIndex)
		}
	}
	switch leaderboard.Format(req.PrimaryFormat) {
	case "", leaderboard.FormatNetStroke, leaderboard.FormatStroke, leaderboard.FormatStableford:
	default:
		return domain.NewConfigError("round.primary_format", "unknown format %q", req.PrimaryFormat)
	}
	if req.AllowancePercent < 0 || req.AllowancePercent > 100 {
		return domain.NewConfigError("round.allowance_percent", "%d outside 0..100", req.AllowancePercent)
	}
	return nil
}

// GetLeaderboard handles GET /api/v1/rounds/:id/leaderboard.
// It recomputes the round without writing anything and returns the full result:
// leaderboard rows, every bet's outcome, and the terminal settlement events.
func (h *Handler) GetLeaderboard(c *fiber.Ctx) error {
	id, ok := roundID(c)
	if !ok {
		return badRequest(c, "invalid round ID")
	}
	res, err := h.compute(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(res)
}

func (h *Handler) compute(ctx context.Context, id uuid.UUID) (*settlement.Result, error) {
	round, err := h.repo.LoadRound(ctx, id)
	if err != nil {
		return nil, err
	}
	return settlement.Compute(ctx, round)
}

// CompleteRound handles POST /api/v1/rounds/:id/complete.
// Requires "admin" or "manager" role. Closing a round settles every bet: skins
// carryovers resolve, the snake holder pays, unfinished matches stand as they are.
// Scores and bets can't change afterwards.
func (h *Handler) CompleteRound(c *fiber.Ctx) error {
	id, ok := roundID(c)
	if !ok {
		return badRequest(c, "invalid round ID")
	}
	res, err := h.mutate(c.UserContext(), id,
		func(r *settlement.Round) error {
			if err := open(r); err != nil {
				return err
			}
			r.Complete = true
			return nil
		},
		func(ctx context.Context) error { return h.repo.CompleteRound(ctx, id) },
	)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(res)
}

// open rejects changes to a completed round.
func open(r *settlement.Round) error {
	if r.Complete {
		return fmt.Errorf("%w: %s", domain.ErrRoundCompleted, r.ID)
	}
	return nil
}

// Stream handles GET /api/v1/rounds/:id/stream.
// It answers with a server-sent events stream: one "leaderboard" event with the
// current standings straight away, then one after every recompute of the round.
func (h *Handler) Stream(c *fiber.Ctx) error {
	id, ok := roundID(c)
	if !ok {
		return badRequest(c, "invalid round ID")
	}
	if h.hub == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "streaming unavailable"})
	}
	ctx := c.UserContext()
	res, err := h.compute(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	first, err := json.Marshal(update(res))
	if err != nil {
		return fail(c, err)
	}

	client := websocket.NewClient(id.String())
	if !h.hub.Register(client) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "server shutting down"})
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	log := logger.FromContext(ctx).With(slog.String("round_id", id.String()))
	// The writer runs after this handler returns, on Fiber's connection goroutine.
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer h.hub.Unregister(client)
		ticker := time.NewTicker(heartbeat)
		defer ticker.Stop()
		if err := writeStream(w, first, client.Send, ticker.C); err != nil {
			log.Debug("leaderboard stream closed", slog.Any("error", err))
		}
	}))
	return nil
}

// writeStream writes first, then every update until the channel closes or a
// write fails. A tick with no update writes a comment line to probe the client.
func writeStream(w *bufio.Writer, first []byte, updates <-chan []byte, ticks <-chan time.Time) error {
	if err := writeEvent(w, first); err != nil {
		return err
	}
	for {
		select {
		case data, ok := <-updates:
			if !ok {
				return nil
			}
			if err := writeEvent(w, data); err != nil {
				return err
			}
		case <-ticks:
			if _, err := w.WriteString(": ping\n\n"); err != nil {
				return err
			}
			if err := w.Flush(); err != nil {
				return err
			}
		}
	}
}

func writeEvent(w *bufio.Writer, data []byte) error {
	if _, err := fmt.Fprintf(w, "event: leaderboard\ndata: %s\n\n", data); err != nil {
		return err
	}
	return w.Flush()
}
