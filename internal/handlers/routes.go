package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/trentd187/golf-wagers/internal/middleware"
)

// Routes registers every round and bet endpoint on api, which cmd/server mounts at
// /api/v1 behind the Auth middleware.
//
// Route-level access control (middleware.RequireRole) decides who may call a route
// at all: only "admin" and "manager" can add courses, open rounds, or close a round.
// Every authenticated player can enter scores, add bets, and follow the leaderboard.
func Routes(api fiber.Router, h *Handler) {
	managers := middleware.RequireRole("admin", "manager")

	// Courses and rounds
	// POST /courses                        create a course with one tee set and its holes
	// POST /rounds                         open a round on a tee set
	// GET  /rounds/:id/leaderboard         recompute and return the full settlement
	// GET  /rounds/:id/stream              server-sent leaderboard updates
	// POST /rounds/:id/complete            close the round; every bet settles
	api.Post("/courses", managers, h.CreateCourse)
	api.Post("/rounds", managers, h.CreateRound)
	api.Get("/rounds/:id/leaderboard", h.GetLeaderboard)
	api.Get("/rounds/:id/stream", h.Stream)
	api.Post("/rounds/:id/complete", managers, h.CompleteRound)

	// Scores
	// PUT  /rounds/:id/scores              upsert one hole score (last write wins)
	// POST /rounds/:id/putts               set putts on a scored hole
	api.Put("/rounds/:id/scores", h.UpsertScore)
	api.Post("/rounds/:id/putts", h.RecordPutts)

	// Bets
	// POST   /rounds/:id/bets                        add a bet
	// DELETE /rounds/:id/bets/:betID                 cancel a bet
	// PUT    /rounds/:id/bets/:betID/wolf/:hole      the wolf's call on a hole
	// POST   /rounds/:id/bets/:betID/presses        a manual Nassau press
	// POST   /rounds/:id/bets/:betID/resolution     the result of a proximity bet
	api.Post("/rounds/:id/bets", h.CreateBet)
	api.Delete("/rounds/:id/bets/:betID", h.CancelBet)
	api.Put("/rounds/:id/bets/:betID/wolf/:hole", h.PutWolfDecision)
	api.Post("/rounds/:id/bets/:betID/presses", h.CreatePress)
	api.Post("/rounds/:id/bets/:betID/resolution", h.CreateResolution)
}
