// internal/game/progress.go
//
// Per-player, per-session mutable state and the scoring rule.
//
// A progress entry is created on first Join, mutated only by its owning
// session (under the session lock), and never destroyed — terminal entries
// stay around for reconnection and late stat queries.
//
// Scoring rule (deterministic, monotonic):
//   • each correctly guessed group awards 100 − 20·m points, where m is the
//     number of mistakes already made before that guess (never below 20);
//   • completing the puzzle with zero mistakes adds a 100 point bonus.

package game

import "github.com/wordplay-labs/connections-server/internal/puzzle"

const (
	// MaxMistakes is the losing threshold: the 4th mistake ends the run.
	MaxMistakes = 4

	baseGroupPoints = 100
	mistakePenalty  = 20
	minGroupPoints  = 20
	perfectBonus    = 100
)

// groupPoints returns the award for a correct guess made after m mistakes.
func groupPoints(m int) int {
	pts := baseGroupPoints - mistakePenalty*m
	if pts < minGroupPoints {
		pts = minGroupPoints
	}
	return pts
}

// playerProgress is owned exclusively by one session; all access goes
// through the session lock.
type playerProgress struct {
	playerID  string
	gameID    int
	remaining map[string]struct{} // words not yet assigned to a guessed group
	guessed   []int               // group indices, in guess order
	mistakes  int
	score     int
	result    Result
	timedOut  bool
}

func newProgress(playerID string, p *puzzle.Puzzle) *playerProgress {
	rem := make(map[string]struct{}, puzzle.WordCount)
	for _, w := range p.Words() {
		rem[w] = struct{}{}
	}
	return &playerProgress{
		playerID:  playerID,
		gameID:    p.ID,
		remaining: rem,
		guessed:   []int{},
		result:    ResultInProgress,
	}
}

// view copies the current state into a caller-owned snapshot. WordsLeft
// preserves puzzle word order so clients render a stable grid.
func (pp *playerProgress) view(p *puzzle.Puzzle) ProgressView {
	left := make([]string, 0, len(pp.remaining))
	for _, w := range p.Words() {
		if _, ok := pp.remaining[w]; ok {
			left = append(left, w)
		}
	}
	groups := make([][]string, 0, len(pp.guessed))
	for _, gi := range pp.guessed {
		ws := make([]string, len(p.Groups[gi].Words))
		copy(ws, p.Groups[gi].Words)
		groups = append(groups, ws)
	}
	return ProgressView{
		PlayerID:      pp.playerID,
		GameID:        pp.gameID,
		WordsLeft:     left,
		GuessedGroups: groups,
		Mistakes:      pp.mistakes,
		Score:         pp.score,
		Result:        pp.result,
	}
}

func (pp *playerProgress) snapshot() TerminalSnapshot {
	return TerminalSnapshot{
		PlayerID: pp.playerID,
		GameID:   pp.gameID,
		Result:   pp.result,
		Mistakes: pp.mistakes,
		Score:    pp.score,
		TimedOut: pp.timedOut,
	}
}
