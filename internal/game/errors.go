package game

import "errors"

// Typed failures surfaced to callers. The wire layer maps these onto its
// stable error vocabulary; the engine never reports a caller error by
// mutating state.
var (
	// ErrSessionNotFound: no live session for that game ID (unknown, or past
	// its retention window).
	ErrSessionNotFound = errors.New("puzzle id not found")

	// ErrSessionExpired: the session timer has run out; no new joins or
	// guesses are accepted.
	ErrSessionExpired = errors.New("game expired")

	// ErrPlayerNotFound: the player never joined this session.
	ErrPlayerNotFound = errors.New("player has not joined this game")

	// ErrAlreadyTerminal: the player's run is already won or lost. Reported
	// distinctly from ErrInvalidCandidate so clients can tell "you already
	// finished" from "that guess was malformed".
	ErrAlreadyTerminal = errors.New("already finished")

	// ErrInvalidCandidate: the guess is not exactly 4 distinct words all
	// still ungrouped in this player's run.
	ErrInvalidCandidate = errors.New("invalid or stale guess")

	// ErrDuplicateSession: a session with that game ID is already registered.
	ErrDuplicateSession = errors.New("game already registered")
)
