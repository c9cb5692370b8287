// internal/game/types.go
//
// Core type definitions for the Connections game engine.
// Defines:
//   - Result: terminal state of one player's run (in progress/won/lost).
//   - ProgressView: immutable snapshot of a player's state, safe to hand out.
//   - GuessOutcome: what a single guess produced.
//   - SessionStats: aggregate numbers for one game session.
//   - TerminalSnapshot/TerminalSink: hand-off of finished runs to the
//     stats layer.

package game

import "time"

// Result is the lifecycle state of one player's run within a session.
// Transitions are one-way: InProgress → Won or InProgress → Lost.
type Result string

const (
	ResultInProgress Result = "IN_PROGRESS"
	ResultWon        Result = "WON"
	ResultLost       Result = "LOST"
)

// Terminal reports whether no further guesses are accepted for this result.
func (r Result) Terminal() bool { return r == ResultWon || r == ResultLost }

// ProgressView is a copy of a player's progress. Mutating it never touches
// session state.
type ProgressView struct {
	PlayerID      string
	GameID        int
	WordsLeft     []string
	GuessedGroups [][]string
	Mistakes      int
	Score         int
	Result        Result
}

// GuessOutcome reports the effect of one guess. Solution is populated only
// on the guess that made the run terminal; Theme only on a correct guess.
type GuessOutcome struct {
	Correct  bool
	Theme    string
	View     ProgressView
	Solution [][]string
}

// SessionStats is the aggregate view of one session. TimeLeft and
// ActivePlayers are meaningful only while Active; TotalPlayers and
// AverageScore only once the session has expired.
type SessionStats struct {
	Active          bool
	TimeLeft        time.Duration
	ActivePlayers   int
	FinishedPlayers int
	WonPlayers      int
	TotalPlayers    int
	AverageScore    int64
}

// TerminalSnapshot is the immutable record of a finished run, forwarded to
// the stats layer exactly when the run becomes terminal.
type TerminalSnapshot struct {
	PlayerID string
	GameID   int
	Result   Result
	Mistakes int
	Score    int
	TimedOut bool // lost to the session timer, not to 4 mistakes
}

// TerminalSink consumes terminal snapshots. Implementations must be
// idempotent per (player, game) pair; the engine may deliver duplicates
// after process restarts.
type TerminalSink interface {
	RecordTerminal(snap TerminalSnapshot)
}
