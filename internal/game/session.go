// internal/game/session.go
//
// Game session engine for a single Connections puzzle.
// Responsibilities:
//   - Own one puzzle plus every player's progress against it.
//   - Validate and apply guesses (membership, staleness, terminal runs).
//   - Track state transitions: in progress → won/lost, active → expired.
//   - Forward terminal runs to the stats layer exactly once per transition.
//
// Concurrency: a single mutex serializes Join/Guess/Tick/queries, so every
// operation observes and produces a consistent state and a guess is never
// accepted after the session has logically expired. The expiry transition
// runs lazily in whichever operation first observes the deadline, so every
// call site collects the transition's terminal snapshots and delivers them
// to the sink after the lock is released; the sink is idempotent so late or
// duplicate delivery is harmless.

package game

import (
	"strings"
	"sync"
	"time"

	"github.com/wordplay-labs/connections-server/internal/puzzle"
)

// Session is the authoritative owner of one puzzle instance and all player
// progress against it.
type Session struct {
	mu       sync.Mutex
	puzzle   *puzzle.Puzzle
	start    time.Time
	duration time.Duration
	progress map[string]*playerProgress
	expired  bool

	sink TerminalSink
	now  func() time.Time // injectable clock for tests
}

// NewSession creates an active session starting at start. sink may be nil
// when terminal runs need no durable record (tests).
func NewSession(p *puzzle.Puzzle, start time.Time, duration time.Duration, sink TerminalSink) *Session {
	return &Session{
		puzzle:   p,
		start:    start,
		duration: duration,
		progress: make(map[string]*playerProgress),
		sink:     sink,
		now:      time.Now,
	}
}

// GameID returns the owned puzzle's ID.
func (s *Session) GameID() int { return s.puzzle.ID }

// Puzzle returns the owned puzzle (immutable, safe to share).
func (s *Session) Puzzle() *puzzle.Puzzle { return s.puzzle }

// Deadline returns the instant the session expires.
func (s *Session) Deadline() time.Time { return s.start.Add(s.duration) }

// Join returns the player's progress view, creating a fresh entry on first
// contact. An expired session still answers for players who already hold
// progress (reconnection), but rejects newcomers with ErrSessionExpired.
func (s *Session) Join(playerID string) (ProgressView, error) {
	s.mu.Lock()
	snaps := s.expireLocked(s.now())

	pp, ok := s.progress[playerID]
	if !ok {
		if s.expired {
			s.mu.Unlock()
			s.deliver(snaps)
			return ProgressView{}, ErrSessionExpired
		}
		pp = newProgress(playerID, s.puzzle)
		s.progress[playerID] = pp
	}
	v := pp.view(s.puzzle)
	s.mu.Unlock()

	s.deliver(snaps)
	return v, nil
}

// Guess validates and applies a 4-word candidate for playerID.
//
// Rejections, in order: ErrSessionExpired, ErrPlayerNotFound,
// ErrAlreadyTerminal, ErrInvalidCandidate. None of them mutate state.
//
// An exact match against an unguessed group removes its words, records the
// group and awards points; anything else is one mistake. The 4th mistake
// loses the run, clearing the board wins it. The full solution is returned
// only on the guess that made the run terminal.
func (s *Session) Guess(playerID string, candidate []string) (GuessOutcome, error) {
	s.mu.Lock()
	expSnaps := s.expireLocked(s.now())

	if s.expired {
		// The deadline may have just been observed here, in which case
		// this call owns the transition's snapshots.
		s.mu.Unlock()
		s.deliver(expSnaps)
		return GuessOutcome{}, ErrSessionExpired
	}
	pp, ok := s.progress[playerID]
	if !ok {
		s.mu.Unlock()
		return GuessOutcome{}, ErrPlayerNotFound
	}
	if pp.result.Terminal() {
		s.mu.Unlock()
		return GuessOutcome{}, ErrAlreadyTerminal
	}

	words, ok := s.normalize(pp, candidate)
	if !ok {
		s.mu.Unlock()
		return GuessOutcome{}, ErrInvalidCandidate
	}

	out := GuessOutcome{}

	if gi := s.puzzle.MatchGroup(words); gi >= 0 {
		out.Correct = true
		out.Theme = s.puzzle.Groups[gi].Theme
		for _, w := range words {
			delete(pp.remaining, w)
		}
		pp.guessed = append(pp.guessed, gi)
		pp.score += groupPoints(pp.mistakes)
		if len(pp.remaining) == 0 {
			pp.result = ResultWon
			if pp.mistakes == 0 {
				pp.score += perfectBonus
			}
		}
	} else {
		pp.mistakes++
		if pp.mistakes >= MaxMistakes {
			pp.result = ResultLost
		}
	}

	var snaps []TerminalSnapshot
	if pp.result.Terminal() {
		// Solution becomes visible to this player from now on.
		out.Solution = s.puzzle.Solution()
		snaps = append(snaps, pp.snapshot())
	}
	out.View = pp.view(s.puzzle)
	s.mu.Unlock()

	s.deliver(snaps)
	return out, nil
}

// normalize lowercases and trims the candidate and checks it is exactly 4
// distinct words, all still in the player's remaining set. Guessing an
// already-confirmed group or words outside the puzzle fails here.
func (s *Session) normalize(pp *playerProgress, candidate []string) ([]string, bool) {
	if len(candidate) != puzzle.GroupSize {
		return nil, false
	}
	words := make([]string, 0, puzzle.GroupSize)
	seen := make(map[string]struct{}, puzzle.GroupSize)
	for _, w := range candidate {
		w = strings.ToLower(strings.TrimSpace(w))
		if _, dup := seen[w]; dup {
			return nil, false
		}
		if _, ok := pp.remaining[w]; !ok {
			return nil, false
		}
		seen[w] = struct{}{}
		words = append(words, w)
	}
	return words, true
}

// TimeLeft reports the remaining session time, never negative.
func (s *Session) TimeLeft(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timeLeftLocked(now)
}

func (s *Session) timeLeftLocked(now time.Time) time.Duration {
	if s.expired {
		return 0
	}
	left := s.start.Add(s.duration).Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

// Tick performs the expiry transition once the deadline has passed and is a
// no-op afterwards. On the transition every run still in progress is forced
// to a time-expired loss without touching its mistake count.
func (s *Session) Tick(now time.Time) {
	s.mu.Lock()
	snaps := s.expireLocked(now)
	s.mu.Unlock()

	s.deliver(snaps)
}

// deliver forwards terminal snapshots to the sink. Must be called without
// s.mu held; the sink writes to the database.
func (s *Session) deliver(snaps []TerminalSnapshot) {
	if s.sink == nil {
		return
	}
	for _, snap := range snaps {
		s.sink.RecordTerminal(snap)
	}
}

// expireLocked transitions to expired exactly once and returns the terminal
// snapshots produced by that transition. Caller holds s.mu.
func (s *Session) expireLocked(now time.Time) []TerminalSnapshot {
	if s.expired || now.Sub(s.start) < s.duration {
		return nil
	}
	s.expired = true
	var snaps []TerminalSnapshot
	for _, pp := range s.progress {
		if pp.result.Terminal() {
			continue
		}
		pp.result = ResultLost
		pp.timedOut = true
		snaps = append(snaps, pp.snapshot())
	}
	return snaps
}

// GameInfo is one player's full view of a session, shaped for the
// game-info query: the live branch carries time and remaining words, the
// finished branch carries the solution instead.
type GameInfo struct {
	Active        bool
	TimeLeft      time.Duration
	WordsLeft     []string
	Solution      [][]string
	GuessedGroups [][]string
	Mistakes      int
	Score         int
	Result        Result
}

// Info answers the game-info query for one player. Active means the
// session still runs and this player's run is not terminal; once either
// ends, the solution replaces the live fields.
func (s *Session) Info(playerID string, now time.Time) (GameInfo, error) {
	s.mu.Lock()
	snaps := s.expireLocked(now)

	pp, ok := s.progress[playerID]
	if !ok {
		s.mu.Unlock()
		s.deliver(snaps)
		return GameInfo{}, ErrPlayerNotFound
	}
	v := pp.view(s.puzzle)
	info := GameInfo{
		GuessedGroups: v.GuessedGroups,
		Mistakes:      v.Mistakes,
		Score:         v.Score,
		Result:        v.Result,
	}
	if !s.expired && !pp.result.Terminal() {
		info.Active = true
		info.TimeLeft = s.timeLeftLocked(now)
		info.WordsLeft = v.WordsLeft
	} else {
		info.Solution = s.puzzle.Solution()
	}
	s.mu.Unlock()

	s.deliver(snaps)
	return info, nil
}

// Stats aggregates the session's player numbers. Totals and the average
// score are populated only once the session has expired, mirroring the
// game-stats response contract.
func (s *Session) Stats(now time.Time) SessionStats {
	s.mu.Lock()
	snaps := s.expireLocked(now)

	st := SessionStats{Active: !s.expired}
	var scoreSum int64
	for _, pp := range s.progress {
		scoreSum += int64(pp.score)
		switch {
		case pp.result == ResultWon:
			st.FinishedPlayers++
			st.WonPlayers++
		case pp.result == ResultLost:
			st.FinishedPlayers++
		default:
			st.ActivePlayers++
		}
	}
	if st.Active {
		st.TimeLeft = s.timeLeftLocked(now)
	} else {
		st.ActivePlayers = 0
		st.TotalPlayers = len(s.progress)
		if st.TotalPlayers > 0 {
			st.AverageScore = scoreSum / int64(st.TotalPlayers)
		}
	}
	s.mu.Unlock()

	s.deliver(snaps)
	return st
}
