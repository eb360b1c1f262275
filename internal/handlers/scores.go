// This file handles score entry: gross scores per hole, and putt counts for the snake.
//
// Scores are upserts. Entering hole 5 again replaces the first entry (last write
// wins), and because every bet is recomputed from hole 1 on each change, a late
// correction on an early hole flows through every carryover and snake pass after it.

package handlers

import (
	"context"
	"fmt"
	"slices"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/trentd187/golf-wagers/internal/domain"
	"github.com/trentd187/golf-wagers/internal/middleware"
	"github.com/trentd187/golf-wagers/internal/settlement"
)

// RecordPuttsRequest is the JSON body we expect on POST /api/v1/rounds/:id/putts.
type RecordPuttsRequest struct {
	PlayerID domain.PlayerID `json:"player_id"`
	Hole     int             `json:"hole"`
	Putts    int             `json:"putts"`
}

// UpsertScore handles PUT /api/v1/rounds/:id/scores.
// The body is one hole score: {"player_id": "ann", "hole": 5, "gross": 4, "putts": 2}.
// Putts and penalties are optional.
func (h *Handler) UpsertScore(c *fiber.Ctx) error {
	id, ok := roundID(c)
	if !ok {
		return badRequest(c, "invalid round ID")
	}
	var score domain.HoleScore
	if err := c.BodyParser(&score); err != nil {
		return badRequest(c, "invalid request body")
	}
	// The entering user is optional: a scorer's device may post without a linked account.
	var enteredBy *uuid.UUID
	if userID, ok := middleware.UserID(c); ok {
		enteredBy = &userID
	}

	res, err := h.mutate(c.UserContext(), id,
		func(r *settlement.Round) error { return applyScore(r, score) },
		func(ctx context.Context) error { return h.repo.UpsertScore(ctx, id, score, enteredBy) },
	)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(res)
}

// applyScore replaces the player's score on the hole, or adds it.
// The ledger validates the player, the hole and the numbers during the recompute.
func applyScore(r *settlement.Round, s domain.HoleScore) error {
	if err := open(r); err != nil {
		return err
	}
	i := slices.IndexFunc(r.Scores, func(x domain.HoleScore) bool { return x.PlayerID == s.PlayerID && x.Hole == s.Hole })
	if i >= 0 {
		r.Scores[i] = s
		return nil
	}
	r.Scores = append(r.Scores, s)
	return nil
}

// RecordPutts handles POST /api/v1/rounds/:id/putts.
// It sets the putt count on a hole that already has a score. Three or more putts
// hands the snake to that player.
func (h *Handler) RecordPutts(c *fiber.Ctx) error {
	id, ok := roundID(c)
	if !ok {
		return badRequest(c, "invalid round ID")
	}
	var req RecordPuttsRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	res, err := h.mutate(c.UserContext(), id,
		func(r *settlement.Round) error { return applyPutts(r, req) },
		func(ctx context.Context) error { return h.repo.RecordPutts(ctx, id, req.PlayerID, req.Hole, req.Putts) },
	)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(res)
}

func applyPutts(r *settlement.Round, req RecordPuttsRequest) error {
	if err := open(r); err != nil {
		return err
	}
	i := slices.IndexFunc(r.Scores, func(x domain.HoleScore) bool { return x.PlayerID == req.PlayerID && x.Hole == req.Hole })
	if i < 0 {
		return fmt.Errorf("%w: no score for %s on hole %d", domain.ErrInvalidScore, req.PlayerID, req.Hole)
	}
	putts := req.Putts
	r.Scores[i].Putts = &putts
	return nil
}
