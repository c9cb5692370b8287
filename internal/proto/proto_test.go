package proto

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wordplay-labs/connections-server/internal/game"
	"github.com/wordplay-labs/connections-server/internal/stats"
)

// fields marshals a response and returns the set of encoded JSON keys, so
// tests can assert which branch's fields actually hit the wire.
func fields(t *testing.T, v any) map[string]json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	m := map[string]json.RawMessage{}
	require.NoError(t, json.Unmarshal(raw, &m))
	return m
}

func sixteenWords() []string {
	return []string{
		"a", "b", "c", "d", "e", "f", "g", "h",
		"i", "j", "k", "l", "m", "n", "o", "p",
	}
}

func TestStatusBranches(t *testing.T) {
	m := fields(t, OkRegister())
	require.JSONEq(t, `true`, string(m["success"]))
	require.NotContains(t, m, "error")

	m = fields(t, ErrRegister(ErrUsernameTaken))
	require.JSONEq(t, `false`, string(m["success"]))
	require.JSONEq(t, `"username already registered"`, string(m["error"]))
}

func TestOkLoginContract(t *testing.T) {
	resp, err := OkLogin(7, sixteenWords(), nil, 90*time.Second, 1, 80, "tok")
	require.NoError(t, err)

	m := fields(t, resp)
	require.JSONEq(t, `7`, string(m["gameId"]))
	require.JSONEq(t, `90000`, string(m["timeLeft"]), "timeLeft is milliseconds")
	require.JSONEq(t, `1`, string(m["errors"]))
	require.JSONEq(t, `80`, string(m["score"]))
	require.JSONEq(t, `[]`, string(m["correctGroups"]), "nil groups encode as empty list")
	require.Contains(t, m, "token")

	var words []string
	require.NoError(t, json.Unmarshal(m["words"], &words))
	require.Len(t, words, 16)
}

func TestOkLoginRejectsBadInput(t *testing.T) {
	_, err := OkLogin(-1, sixteenWords(), nil, time.Minute, 0, 0, "tok")
	require.Error(t, err, "game id below range")

	_, err = OkLogin(912, sixteenWords(), nil, time.Minute, 0, 0, "tok")
	require.Error(t, err, "game id above range")

	_, err = OkLogin(7, sixteenWords()[:15], nil, time.Minute, 0, 0, "tok")
	require.Error(t, err, "fifteen words")
}

func TestGuessResponseThemeOnlyWhenCorrect(t *testing.T) {
	correct := OkGuess(game.GuessOutcome{
		Correct: true,
		Theme:   "letters",
		View: game.ProgressView{
			WordsLeft: []string{"e", "f"}, GuessedGroups: [][]string{{"a", "b", "c", "d"}},
			Mistakes: 0, Score: 100, Result: game.ResultInProgress,
		},
	})
	m := fields(t, correct)
	require.JSONEq(t, `"letters"`, string(m["theme"]))
	require.NotContains(t, m, "solution")

	wrong := OkGuess(game.GuessOutcome{
		Correct: false,
		View:    game.ProgressView{Mistakes: 1, Result: game.ResultInProgress},
	})
	m = fields(t, wrong)
	require.NotContains(t, m, "theme")

	terminal := OkGuess(game.GuessOutcome{
		Correct:  false,
		View:     game.ProgressView{Mistakes: 4, Result: game.ResultLost},
		Solution: [][]string{{"a"}, {"b"}, {"c"}, {"d"}},
	})
	m = fields(t, terminal)
	require.JSONEq(t, `"LOST"`, string(m["result"]))
	require.Contains(t, m, "solution")
}

func TestGameInfoBranchExclusivity(t *testing.T) {
	live := OkGameInfo(game.GameInfo{
		Active:    true,
		TimeLeft:  30 * time.Second,
		WordsLeft: nil, // empty boards still encode a list
	})
	m := fields(t, live)
	require.JSONEq(t, `30000`, string(m["timeLeft"]))
	require.JSONEq(t, `[]`, string(m["wordsLeft"]))
	require.NotContains(t, m, "solution")

	done := OkGameInfo(game.GameInfo{
		Active:   false,
		Solution: [][]string{{"a"}, {"b"}, {"c"}, {"d"}},
		Mistakes: 2,
		Score:    140,
	})
	m = fields(t, done)
	require.NotContains(t, m, "timeLeft")
	require.NotContains(t, m, "wordsLeft")
	require.Contains(t, m, "solution")
	require.JSONEq(t, `2`, string(m["errors"]))
	require.JSONEq(t, `140`, string(m["score"]))
}

func TestGameStatsBranchExclusivity(t *testing.T) {
	live := OkGameStats(game.SessionStats{
		Active: true, TimeLeft: time.Minute,
		ActivePlayers: 3, FinishedPlayers: 1, WonPlayers: 1,
	})
	m := fields(t, live)
	require.JSONEq(t, `60000`, string(m["timeLeft"]))
	require.JSONEq(t, `3`, string(m["activePlayers"]))
	require.NotContains(t, m, "totalPlayers")
	require.NotContains(t, m, "averageScore")

	done := OkGameStats(game.SessionStats{
		Active: false, FinishedPlayers: 2, WonPlayers: 1,
		TotalPlayers: 4, AverageScore: 166,
	})
	m = fields(t, done)
	require.NotContains(t, m, "timeLeft")
	require.NotContains(t, m, "activePlayers")
	require.JSONEq(t, `4`, string(m["totalPlayers"]))
	require.JSONEq(t, `166`, string(m["averageScore"]))
	require.JSONEq(t, `2`, string(m["finishedPlayers"]))
}

func TestLeaderboardNeverNull(t *testing.T) {
	m := fields(t, OkLeaderboard(nil))
	require.JSONEq(t, `[]`, string(m["records"]))

	m = fields(t, OkLeaderboard([]stats.Record{{Username: "alice", Position: 1}}))
	require.JSONEq(t, `[{"username":"alice","position":1}]`, string(m["records"]))
}

func TestPlayerStatsEncoding(t *testing.T) {
	ps := stats.PlayerStats{
		Solved: 2, Failed: 1, Unfinished: 1, Perfect: 1,
		WinRate: 0.5, LossRate: 0.25,
		CurrentStreak: 1, MaxStreak: 3,
		Histogram: [stats.HistogramBuckets]int{1, 1, 1, 0, 1},
	}
	m := fields(t, OkPlayerStats(ps))
	require.JSONEq(t, `2`, string(m["solvedPuzzles"]))
	require.JSONEq(t, `1`, string(m["failedPuzzles"]))
	require.JSONEq(t, `1`, string(m["unfinishedPuzzles"]))
	require.JSONEq(t, `1`, string(m["perfectPuzzles"]))
	require.JSONEq(t, `0.5`, string(m["winRate"]))
	require.JSONEq(t, `3`, string(m["maxStreak"]))
	require.JSONEq(t, `[1,1,1,0,1]`, string(m["histogram"]))
}

func TestRequestDecodesClientFields(t *testing.T) {
	var req Request
	require.NoError(t, json.Unmarshal([]byte(
		`{"operation":"gameStats","gameId":42}`), &req))
	require.Equal(t, OpGameStats, req.Operation)
	require.NotNil(t, req.GameID)
	require.Equal(t, 42, *req.GameID)

	req = Request{}
	require.NoError(t, json.Unmarshal([]byte(
		`{"operation":"guess","words":["a","b","c","d"]}`), &req))
	require.Equal(t, []string{"a", "b", "c", "d"}, req.Words)

	req = Request{}
	require.NoError(t, json.Unmarshal([]byte(`{"operation":"gameStats"}`), &req))
	require.Nil(t, req.GameID, "absent gameId stays nil so the current game is used")
}
