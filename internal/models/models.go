// Package models defines the data structures (models) that map to database tables.
// GORM uses these structs to generate SQL queries and map database rows back to Go values.
// The struct field tags (the backtick strings like `gorm:"..."`) tell GORM how to handle
// each field: its column type, constraints, default values, and relationships.
//
// The data model represents a golf wagering platform where:
//   - Courses have Tees, and each Tee has its own Holes (par + stroke index)
//   - Rounds are played from one Tee by a list of RoundPlayers in tee order
//   - Scores are recorded per player per hole and upserted as play progresses
//   - Bets (skins, wolf, nassau, ...) belong to a round and carry their options as JSON
//   - Wolf decisions, press requests and manual resolutions are the extra inputs
//     some bets need besides scores
//   - Presses and SettlementEvents are written back after every recompute
//
// Nothing here holds money totals. Every total is recomputed from these inputs by
// the settlement package, so the database never disagrees with the engines.
package models

import (
	"time"

	// uuid provides universally unique identifiers for primary keys.
	// Using UUIDs instead of auto-incrementing integers makes IDs safe to generate
	// client-side and avoids leaking record counts to end users.
	"github.com/google/uuid"
)

// --- Enums ---
// Go doesn't have a built-in enum keyword, so we simulate them using a named string type
// plus constants. This gives us type safety (you can't accidentally pass a UserRole
// where a RoundStatus is expected) while keeping the values human-readable in the database.

// UserRole represents a user's global permission level across the entire platform.
type UserRole string

const (
	UserRoleAdmin   UserRole = "admin"   // Full access: manage users, courses, every round
	UserRoleManager UserRole = "manager" // Can create courses and rounds and complete rounds
	UserRoleUser    UserRole = "user"    // Regular player: can enter scores and make presses
)

// RoundStatus tracks the lifecycle of a single round.
type RoundStatus string

const (
	RoundStatusScheduled RoundStatus = "scheduled" // Round is on the calendar but not started
	RoundStatusActive    RoundStatus = "active"    // Round is currently being played
	RoundStatusCompleted RoundStatus = "completed" // Round has finished; scores are final and every bet settles
)

// BetStatus is the configuration-level lifecycle of a bet.
// The per-hole status (in progress, completed, pushed) is never stored; it is recomputed.
type BetStatus string

const (
	BetStatusActive    BetStatus = "active"
	BetStatusCancelled BetStatus = "cancelled" // Called off: contributes zero to every total
)

// TeeGender indicates which gender a set of tees is rated for.
// Golf courses rate tees separately because different tee boxes have different distances.
type TeeGender string

const (
	TeeGenderMens   TeeGender = "mens"
	TeeGenderWomens TeeGender = "womens"
	TeeGenderUnisex TeeGender = "unisex" // No gender designation: open to all
)

// --- Models ---
// Each struct below maps to a database table. GORM uses the struct name (snake_cased and
// pluralized) as the table name by default: User -> users, Round -> rounds, etc.

// User represents a registered person in the system.
// Users are created automatically the first time a Clerk-authenticated user hits the API.
// The ClerkID links our internal record to Clerk's identity system.
type User struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"` // UUID primary key; the DB generates it automatically
	ClerkID     *string   `gorm:"uniqueIndex:idx_users_clerk_id"`                 // Clerk's user ID (e.g. "user_2abc123"); pointer = nullable for legacy rows
	DisplayName string    `gorm:"not null"`                                       // The name shown in the app; populated from the Clerk JWT "name" claim
	Email       string    `gorm:"uniqueIndex;not null"`                           // Unique email; populated from the Clerk JWT "email" claim
	AvatarURL   *string   // Optional profile picture URL; pointer means it can be NULL in the DB
	Role        UserRole  `gorm:"type:user_role;not null;default:'user'"` // Global role; synced from Clerk publicMetadata via the JWT "role" claim
	CreatedAt   time.Time // GORM automatically sets this on create
	UpdatedAt   time.Time // GORM automatically updates this on every save
}

// Course represents a golf course where rounds are played.
type Course struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name      string    `gorm:"not null"`
	City      string    `gorm:"not null;default:''"` // Defaults to empty string; can be filled in later
	State     string    `gorm:"not null;default:''"` // Defaults to empty string; can be filled in later
	HoleCount int       `gorm:"not null;default:18"` // Most courses have 18 holes; some have 9
	CreatedAt time.Time
	UpdatedAt time.Time
	Tees      []Tee `gorm:"foreignKey:CourseID"` // One-to-many: a course has many sets of tees (different distances/ratings)
}

// Tee represents one set of tee boxes on a course (e.g., "Blue", "White", "Red").
// Each tee set has its own course rating, slope, and par, which the handicap
// allocator uses to turn a handicap index into strokes received.
type Tee struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CourseID     uuid.UUID `gorm:"type:uuid;not null"`
	Course       Course    `gorm:"foreignKey:CourseID"`
	Name         string    `gorm:"not null"` // e.g., "Blue", "White", "Red", "Default"
	Gender       TeeGender `gorm:"type:tee_gender;not null;default:'unisex'"`
	CourseRating float64   `gorm:"type:decimal(4,1);not null"` // USGA course rating (e.g., 72.4): the expected score for a scratch golfer
	SlopeRating  int       `gorm:"not null"`                   // USGA slope rating (55–155): difficulty for bogey golfers relative to scratch
	Par          int       `gorm:"not null"`                   // Expected score for the full set of holes on these tees
	Holes        []Hole    `gorm:"foreignKey:TeeID"`           // One-to-many: each tee set has individual hole details
}

// Hole stores per-hole details for a specific set of tees.
// Par and StrokeIndex can vary between tee sets on the same course.
type Hole struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TeeID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_tee_hole"`
	HoleNumber  int       `gorm:"not null;uniqueIndex:idx_tee_hole"` // 1–18 (or 1–9 for a 9-hole course)
	Par         int       `gorm:"not null"`                          // Expected strokes for this hole (3 to 6)
	StrokeIndex int       `gorm:"not null"`                          // Handicap allocation: 1 = hardest (gets the first handicap stroke)
	Yardage     *int      // Distance in yards from this tee box; optional because some courses don't publish yardages
}

// Round represents a single round of golf with money on it.
type Round struct {
	ID               uuid.UUID   `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name             string      `gorm:"not null;default:''"`
	CourseID         uuid.UUID   `gorm:"type:uuid;not null"`
	Course           Course      `gorm:"foreignKey:CourseID"`
	TeeID            uuid.UUID   `gorm:"type:uuid;not null"` // Every player plays the same tee set, so one layout settles every bet
	Tee              Tee         `gorm:"foreignKey:TeeID"`
	ScheduledDate    time.Time   `gorm:"not null"`
	Status           RoundStatus `gorm:"type:round_status;not null;default:'scheduled'"`
	PrimaryFormat    string      `gorm:"not null;default:'net_stroke'"` // How the leaderboard ranks players: net_stroke, stroke or stableford
	AllowancePercent int         `gorm:"not null;default:100"`          // Handicap allowance, e.g. 85 for a four-ball
	OffTheLow        bool        `gorm:"not null;default:false"`        // If true, strokes are given relative to the lowest handicap in the group
	CreatedBy        uuid.UUID   `gorm:"type:uuid;not null"`            // Which user set up the round
	CompletedAt      *time.Time  // Set when a manager closes the round; nullable until then
	CreatedAt        time.Time
	UpdatedAt        time.Time
	Players          []RoundPlayer `gorm:"foreignKey:RoundID"`
}

// RoundPlayer is one participant of a round.
// PlayerKey is the short id used inside bet configurations and score entries
// ("ann", "bob", or a Clerk id); it is unique within the round.
// TeeOrder drives every "first in tee order" rule: odd cents, wolf rotation.
type RoundPlayer struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	RoundID       uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_round_player_key"`
	PlayerKey     string     `gorm:"not null;uniqueIndex:idx_round_player_key"`
	UserID        *uuid.UUID `gorm:"type:uuid"` // Optional link to a registered user; guests have none
	DisplayName   string     `gorm:"not null"`
	HandicapIndex float64    `gorm:"type:decimal(4,1);not null;default:0"` // WHS handicap index at time of round (e.g., 14.2, or -1.5 for a plus player)
	TeeOrder      int        `gorm:"not null"`                             // 0 = first off the tee
	TeeTime       *time.Time // Used to break leaderboard ties; nullable when the tee sheet isn't known
	CreatedAt     time.Time
}

// Score records the strokes a player took on a single hole during a round.
// Only gross strokes are stored: the net score depends on the handicap allowance
// and is always derived when the round is recomputed.
type Score struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	RoundID    uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_round_player_hole"` // Composite unique: one score per player per hole
	PlayerKey  string     `gorm:"not null;uniqueIndex:idx_round_player_hole"`
	HoleNumber int        `gorm:"not null;uniqueIndex:idx_round_player_hole"` // 1–18
	GrossScore int        `gorm:"not null"`                                   // Actual strokes taken
	Putts      *int       // Optional: three or more putts passes the snake
	Penalties  int        `gorm:"not null;default:0"`
	EnteredBy  *uuid.UUID `gorm:"type:uuid"`      // Which user entered this score (could be the player, a group member, or a scorer)
	EnteredAt  time.Time  `gorm:"autoCreateTime"` // Set automatically by GORM on insert
	UpdatedAt  time.Time  `gorm:"autoUpdateTime"` // Updated automatically by GORM on every save
}

// Bet is one wager configured on a round.
// Options holds the game-specific option bag exactly as the bets package writes it
// ({"holeValue": 500, "carryovers": true} for skins, and so on). Storing it as JSONB
// means adding a new option never needs a migration.
type Bet struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	RoundID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_round_bet_key"`
	BetKey       string    `gorm:"not null;uniqueIndex:idx_round_bet_key"` // The id players and clients use, unique within the round
	Kind         string    `gorm:"not null"`                               // skins, wolf, nassau, match, snake, proximity
	Participants []byte    `gorm:"type:jsonb;not null"`                    // JSON array of player keys
	Options      []byte    `gorm:"type:jsonb;not null"`
	Status       BetStatus `gorm:"type:bet_status;not null;default:'active'"`
	Position     int       `gorm:"not null;default:0"` // Creation order; bets settle in this order so the output is stable
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// WolfDecision is the wolf's call on one hole: a partner, or nobody (lone wolf).
// The unique index makes a second call for the same hole replace the first.
type WolfDecision struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	RoundID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_wolf_round_bet_hole"`
	BetKey       string    `gorm:"not null;uniqueIndex:idx_wolf_round_bet_hole"`
	HoleNumber   int       `gorm:"not null;uniqueIndex:idx_wolf_round_bet_hole"`
	Partner      *string   // NULL = the wolf goes alone
	WorstTeeShot *string   // Only used by the "turd" variant
	UpdatedAt    time.Time
}

// PressRequest is a manual press made by one side of a Nassau.
// Requests are kept even when rejected: the engine replays them every recompute
// and reports why a request did not open a press.
type PressRequest struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	RoundID        uuid.UUID `gorm:"type:uuid;not null;index:idx_press_requests_round"`
	BetKey         string    `gorm:"not null"`
	Segment        string    `gorm:"not null"` // front, back or overall
	Initiator      string    `gorm:"not null"` // Side id making the press
	StartHole      int       `gorm:"not null"`
	RequestedAfter int       `gorm:"not null;default:0"` // Holes both sides had finished when the press was made
	CreatedAt      time.Time
}

// Press is a press that the Nassau engine opened on an earlier recompute.
// Its terms (amount, start hole, sides) are frozen at creation, so every later
// recompute reads them back from here instead of rebuilding them from today's config.
type Press struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"` // Deterministic id assigned by the engine, not by the database
	RoundID   uuid.UUID `gorm:"type:uuid;not null;index:idx_presses_round"`
	BetKey    string    `gorm:"not null"`
	Data      []byte    `gorm:"type:jsonb;not null"` // The full nassau.Bet as JSON
	UpdatedAt time.Time
}

// Resolution settles a bet the scores cannot decide, such as closest to the pin.
// A NULL winner records a tie.
type Resolution struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	RoundID   uuid.UUID `gorm:"type:uuid;not null;index:idx_resolutions_round"`
	BetKey    string    `gorm:"not null"`
	Winner    *string
	CreatedAt time.Time
}

// SettlementEvent is the last published terminal state of a bet or Nassau sub-bet.
// Comparing a fresh recompute against these rows tells us which events are new.
type SettlementEvent struct {
	RoundID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	EventKey  string    `gorm:"primaryKey"` // "<bet key>/<sub-bet id>"
	Status    string    `gorm:"not null"`
	Data      []byte    `gorm:"type:jsonb;not null"` // The settlement.Event as JSON
	UpdatedAt time.Time
}
