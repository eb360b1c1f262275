// This file handles bets and the extra input some of them need during play:
// wolf calls, manual Nassau presses, and results for bets scores can't decide.
//
// A bet is posted as a keyed option bag, exactly as the bets package decodes it:
//
//	{"id": "s1", "kind": "skins", "participants": ["ann", "bob", "cat"], "options": {"holeValue": 5}}
//
// Bets can be added at any point before the round is completed. Each one is settled
// from hole 1 on every recompute, so a bet added on the 10th tee still sees holes 1–9.

package handlers

import (
	"context"
	"fmt"
	"slices"

	"github.com/gofiber/fiber/v2"

	"github.com/trentd187/golf-wagers/internal/bets"
	"github.com/trentd187/golf-wagers/internal/domain"
	"github.com/trentd187/golf-wagers/internal/nassau"
	"github.com/trentd187/golf-wagers/internal/settlement"
	"github.com/trentd187/golf-wagers/internal/wolf"
)

// WolfDecisionRequest is the JSON body we expect on PUT /api/v1/rounds/:id/bets/:betID/wolf/:hole.
type WolfDecisionRequest struct {
	Partner      *domain.PlayerID `json:"partner"`        // null = the wolf goes alone
	WorstTeeShot *domain.PlayerID `json:"worst_tee_shot"` // only read by the turd variants
}

// ResolutionRequest is the JSON body we expect on POST /api/v1/rounds/:id/bets/:betID/resolution.
type ResolutionRequest struct {
	Winner *domain.PlayerID `json:"winner"` // null = a tie; the bet pushes
}

// CreateBet handles POST /api/v1/rounds/:id/bets.
// Decoding is strict: unknown option keys or out-of-range values are rejected with 422
// before anything is stored.
func (h *Handler) CreateBet(c *fiber.Ctx) error {
	id, ok := roundID(c)
	if !ok {
		return badRequest(c, "invalid round ID")
	}
	bet, err := bets.DecodeJSON(c.Body())
	if err != nil {
		return fail(c, err)
	}

	res, err := h.mutate(c.UserContext(), id,
		func(r *settlement.Round) error { return applyBet(r, bet) },
		func(ctx context.Context) error { return h.repo.AddBet(ctx, id, bet) },
	)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

func applyBet(r *settlement.Round, bet bets.Config) error {
	if err := open(r); err != nil {
		return err
	}
	if slices.ContainsFunc(r.Bets, func(b bets.Config) bool { return b.ID == bet.ID }) {
		return fmt.Errorf("%w: bet %s already exists", domain.ErrInvalidInput, bet.ID)
	}
	for _, p := range bet.Participants {
		if !plays(r, p) {
			return fmt.Errorf("%w: %s is not playing this round", domain.ErrUnknownPlayer, p)
		}
	}
	r.Bets = append(r.Bets, bet)
	return nil
}

// CancelBet handles DELETE /api/v1/rounds/:id/bets/:betID.
// A cancelled bet stays on the round with status "cancelled" and moves no money.
func (h *Handler) CancelBet(c *fiber.Ctx) error {
	id, ok := roundID(c)
	if !ok {
		return badRequest(c, "invalid round ID")
	}
	betID := c.Params("betID")

	res, err := h.mutate(c.UserContext(), id,
		func(r *settlement.Round) error {
			if err := open(r); err != nil {
				return err
			}
			bet, err := findBet(r, betID)
			if err != nil {
				return err
			}
			bet.Status = bets.StatusCancelled
			return nil
		},
		func(ctx context.Context) error { return h.repo.CancelBet(ctx, id, betID) },
	)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(res)
}

// PutWolfDecision handles PUT /api/v1/rounds/:id/bets/:betID/wolf/:hole.
// The wolf's call can be changed until the round is completed; the latest one counts.
func (h *Handler) PutWolfDecision(c *fiber.Ctx) error {
	id, ok := roundID(c)
	if !ok {
		return badRequest(c, "invalid round ID")
	}
	betID := c.Params("betID")
	// c.ParamsInt converts the :hole segment to an int and errors on anything else.
	hole, err := c.ParamsInt("hole")
	if err != nil {
		return badRequest(c, "hole must be a number")
	}
	var req WolfDecisionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	decision := wolf.Decision{Hole: hole, Partner: req.Partner, WorstTeeShot: req.WorstTeeShot}

	res, err := h.mutate(c.UserContext(), id,
		func(r *settlement.Round) error { return applyWolfDecision(r, betID, decision) },
		func(ctx context.Context) error { return h.repo.PutWolfDecision(ctx, id, betID, decision) },
	)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(res)
}

func applyWolfDecision(r *settlement.Round, betID string, d wolf.Decision) error {
	if err := open(r); err != nil {
		return err
	}
	bet, err := betOfKind(r, betID, bets.KindWolf)
	if err != nil {
		return err
	}
	if _, ok := r.Course.Hole(d.Hole); !ok {
		return fmt.Errorf("%w: %d", domain.ErrUnknownHole, d.Hole)
	}
	for _, p := range []*domain.PlayerID{d.Partner, d.WorstTeeShot} {
		if p != nil && !slices.Contains(bet.Participants, *p) {
			return fmt.Errorf("%w: %s is not in bet %s", domain.ErrUnknownPlayer, *p, betID)
		}
	}

	if r.WolfDecisions == nil {
		r.WolfDecisions = make(map[string][]wolf.Decision)
	}
	decisions := r.WolfDecisions[betID]
	i := slices.IndexFunc(decisions, func(x wolf.Decision) bool { return x.Hole == d.Hole })
	if i >= 0 {
		decisions[i] = d
	} else {
		decisions = append(decisions, d)
	}
	r.WolfDecisions[betID] = decisions
	return nil
}

// CreatePress handles POST /api/v1/rounds/:id/bets/:betID/presses.
// The body is {"segment": "front", "initiator": "ann", "start_hole": 5}, where the
// initiator is a side id.
//
// A press can only start on the next hole of the segment that both sides still have to
// finish. Any other start_hole is refused with 409 Conflict, since a press on a hole whose
// result is already known is a free bet. The server stamps the request with the number of
// holes already played so a later recompute can't move it back either.
//
// A press that passes that check but still can't open (an unknown side, the press cap
// reached) is recorded and comes back under the Nassau outcome's "rejected" list.
func (h *Handler) CreatePress(c *fiber.Ctx) error {
	id, ok := roundID(c)
	if !ok {
		return badRequest(c, "invalid round ID")
	}
	betID := c.Params("betID")
	var req nassau.PressRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	res, err := h.mutate(c.UserContext(), id,
		func(r *settlement.Round) error {
			if err := open(r); err != nil {
				return err
			}
			if _, err := betOfKind(r, betID, bets.KindNassau); err != nil {
				return err
			}
			switch req.Segment {
			case nassau.SegmentFront, nassau.SegmentBack, nassau.SegmentOverall:
			default:
				return fmt.Errorf("%w: unknown segment %q", domain.ErrInvalidInput, req.Segment)
			}
			// completed is how many holes both sides have finished; start is the only hole
			// a new press on this segment may begin on.
			completed, start, ok, err := settlement.PressWindow(*r, betID, req.Segment)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: the %s has been played out", domain.ErrPressTooLate, req.Segment)
			}
			if req.StartHole != start {
				return fmt.Errorf("%w: a %s press now starts on hole %d, not %d",
					domain.ErrPressTooLate, req.Segment, start, req.StartHole)
			}
			// The client doesn't get to pick this; overwrite whatever the body said.
			req.RequestedAfter = completed
			if r.PressRequests == nil {
				r.PressRequests = make(map[string][]nassau.PressRequest)
			}
			r.PressRequests[betID] = append(r.PressRequests[betID], req)
			return nil
		},
		func(ctx context.Context) error { return h.repo.AddPressRequest(ctx, id, betID, req) },
	)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

// CreateResolution handles POST /api/v1/rounds/:id/bets/:betID/resolution.
// It settles a closest-to-the-pin or longest-drive bet. Posting again replaces
// the earlier result.
func (h *Handler) CreateResolution(c *fiber.Ctx) error {
	id, ok := roundID(c)
	if !ok {
		return badRequest(c, "invalid round ID")
	}
	betID := c.Params("betID")
	var req ResolutionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	resolution := settlement.Resolution{BetID: betID, Winner: req.Winner}

	res, err := h.mutate(c.UserContext(), id,
		func(r *settlement.Round) error {
			if err := open(r); err != nil {
				return err
			}
			bet, err := betOfKind(r, betID, bets.KindProximity)
			if err != nil {
				return err
			}
			if req.Winner != nil && !slices.Contains(bet.Participants, *req.Winner) {
				return fmt.Errorf("%w: %s is not in bet %s", domain.ErrUnknownPlayer, *req.Winner, betID)
			}
			r.Resolutions = append(r.Resolutions, resolution)
			return nil
		},
		func(ctx context.Context) error { return h.repo.AddResolution(ctx, id, resolution) },
	)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

// findBet returns a pointer into r.Bets so callers can edit the bet in place.
func findBet(r *settlement.Round, betID string) (*bets.Config, error) {
	i := slices.IndexFunc(r.Bets, func(b bets.Config) bool { return b.ID == betID })
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrBetNotFound, betID)
	}
	return &r.Bets[i], nil
}

func betOfKind(r *settlement.Round, betID string, kind bets.Kind) (*bets.Config, error) {
	bet, err := findBet(r, betID)
	if err != nil {
		return nil, err
	}
	if bet.Kind != kind {
		return nil, fmt.Errorf("%w: bet %s is a %s bet, not %s", domain.ErrInvalidInput, betID, bet.Kind, kind)
	}
	return bet, nil
}

func plays(r *settlement.Round, id domain.PlayerID) bool {
	return slices.ContainsFunc(r.Players, func(p domain.Player) bool { return p.ID == id })
}
