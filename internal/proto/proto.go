// internal/proto/proto.go
//
// Request and response shapes for the client protocol.
//
// Every response is a tagged success-xor-error shape: the Success flag
// selects which branch is populated, branch-dependent fields are pointers
// so the inactive branch is omitted from the encoded JSON, and each type is
// built only through its Ok*/Err* constructors so both branches can never
// be set at once.
//
// Field presence contracts (load-bearing for clients):
//   - LoginResponse success: gameId, words (exactly 16), correctGroups,
//     timeLeft (ms), errors, score.
//   - GameInfoResponse: active → timeLeft+wordsLeft, !active → solution;
//     guessedGroups, errors, score on both branches.
//   - GameStatsResponse: active → timeLeft+activePlayers, !active →
//     totalPlayers+averageScore; finishedPlayers, wonPlayers on both.
//   - LeaderboardResponse: ordered (username, position) records, position ≥ 1.

package proto

import (
	"fmt"
	"time"

	"github.com/wordplay-labs/connections-server/internal/game"
	"github.com/wordplay-labs/connections-server/internal/puzzle"
	"github.com/wordplay-labs/connections-server/internal/stats"
)

// Operation discriminator values carried in every request.
const (
	OpRegister          = "register"
	OpLogin             = "login"
	OpLogout            = "logout"
	OpUpdateCredentials = "updateCredentials"
	OpGuess             = "guess"
	OpGameInfo          = "gameInfo"
	OpGameStats         = "gameStats"
	OpLeaderboard       = "leaderboard"
	OpPlayerStats       = "playerStats"
)

// Stable error strings surfaced to clients. Presentation is the client's
// job; these classifications are the contract.
const (
	ErrNotAuthenticated  = "not authenticated"
	ErrPuzzleNotFound    = "puzzle id not found"
	ErrUserNotRegistered = "user not registered"
	ErrWrongCredentials  = "wrong credentials"
	ErrInvalidGuess      = "invalid or stale guess"
	ErrUsernameTaken     = "username already registered"
	ErrAlreadyFinished   = "already finished"
	ErrGameExpired       = "game expired"
)

// Request is the decoded envelope of one client message. Only the fields
// relevant to Operation are set.
type Request struct {
	Operation string `json:"operation"`

	// register / login
	Name     string `json:"name,omitempty"`
	Username string `json:"username,omitempty"`
	Password string `json:"psw,omitempty"`
	Token    string `json:"token,omitempty"` // login resume via JWT

	// updateCredentials
	OldName     string `json:"oldName,omitempty"`
	NewName     string `json:"newName,omitempty"`
	OldPassword string `json:"oldPsw,omitempty"`
	NewPassword string `json:"newPsw,omitempty"`

	// guess
	Words []string `json:"words,omitempty"`

	// gameStats
	GameID *int `json:"gameId,omitempty"`

	// leaderboard
	Count  int `json:"count,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// Status is the success/error pair embedded in every response.
type Status struct {
	Success bool    `json:"success"`
	Error   *string `json:"error,omitempty"`
}

func okStatus() Status { return Status{Success: true} }
func errStatus(msg string) Status {
	return Status{Success: false, Error: &msg}
}

// ---------------------------------------------------------------------------

// RegisterResponse acknowledges a registration attempt.
type RegisterResponse struct {
	Status
}

func OkRegister() RegisterResponse            { return RegisterResponse{okStatus()} }
func ErrRegister(msg string) RegisterResponse { return RegisterResponse{errStatus(msg)} }

// LogoutResponse acknowledges a logout attempt.
type LogoutResponse struct {
	Status
}

func OkLogout() LogoutResponse            { return LogoutResponse{okStatus()} }
func ErrLogout(msg string) LogoutResponse { return LogoutResponse{errStatus(msg)} }

// UpdateCredentialsResponse acknowledges a credentials change.
type UpdateCredentialsResponse struct {
	Status
}

func OkUpdateCredentials() UpdateCredentialsResponse {
	return UpdateCredentialsResponse{okStatus()}
}
func ErrUpdateCredentials(msg string) UpdateCredentialsResponse {
	return UpdateCredentialsResponse{errStatus(msg)}
}

// ---------------------------------------------------------------------------

// LoginResponse carries the player's view of the current game on success.
type LoginResponse struct {
	Status
	GameID        *int       `json:"gameId,omitempty"`
	Words         []string   `json:"words,omitempty"`
	CorrectGroups [][]string `json:"correctGroups,omitempty"`
	TimeLeft      *int64     `json:"timeLeft,omitempty"` // ms
	Errors        *int       `json:"errors,omitempty"`
	Score         *int       `json:"score,omitempty"`
	Token         *string    `json:"token,omitempty"` // for reconnection
}

// OkLogin builds the success branch. Supplying fewer than 16 words or a
// game ID outside the valid range is a programming error in the caller,
// not a game rule, so it fails construction.
func OkLogin(gameID int, words []string, correctGroups [][]string, timeLeft time.Duration, errors, score int, token string) (LoginResponse, error) {
	if gameID < puzzle.MinID || gameID > puzzle.MaxID {
		return LoginResponse{}, fmt.Errorf("gameId %d out of range [%d,%d]", gameID, puzzle.MinID, puzzle.MaxID)
	}
	if len(words) != puzzle.WordCount {
		return LoginResponse{}, fmt.Errorf("login response needs exactly %d words, got %d", puzzle.WordCount, len(words))
	}
	ms := timeLeft.Milliseconds()
	if correctGroups == nil {
		correctGroups = [][]string{}
	}
	return LoginResponse{
		Status:        okStatus(),
		GameID:        &gameID,
		Words:         words,
		CorrectGroups: correctGroups,
		TimeLeft:      &ms,
		Errors:        &errors,
		Score:         &score,
		Token:         &token,
	}, nil
}

func ErrLogin(msg string) LoginResponse {
	return LoginResponse{Status: errStatus(msg)}
}

// ---------------------------------------------------------------------------

// GuessResponse reports one guess. Solution appears only when this guess
// made the run terminal.
type GuessResponse struct {
	Status
	Correct       *bool      `json:"correct,omitempty"`
	Theme         *string    `json:"theme,omitempty"`
	WordsLeft     []string   `json:"wordsLeft,omitempty"`
	GuessedGroups [][]string `json:"guessedGroups,omitempty"`
	Errors        *int       `json:"errors,omitempty"`
	Score         *int       `json:"score,omitempty"`
	Result        *string    `json:"result,omitempty"`
	Solution      [][]string `json:"solution,omitempty"`
}

func OkGuess(out game.GuessOutcome) GuessResponse {
	res := string(out.View.Result)
	r := GuessResponse{
		Status:        okStatus(),
		Correct:       &out.Correct,
		WordsLeft:     out.View.WordsLeft,
		GuessedGroups: out.View.GuessedGroups,
		Errors:        &out.View.Mistakes,
		Score:         &out.View.Score,
		Result:        &res,
		Solution:      out.Solution,
	}
	if out.Correct {
		r.Theme = &out.Theme
	}
	return r
}

func ErrGuess(msg string) GuessResponse {
	return GuessResponse{Status: errStatus(msg)}
}

// ---------------------------------------------------------------------------

// GameInfoResponse answers a game-info query. Exactly one of the live
// branch (timeLeft, wordsLeft) and the finished branch (solution) is
// populated, selected by Active.
type GameInfoResponse struct {
	Status
	Active        *bool      `json:"active,omitempty"`
	TimeLeft      *int64     `json:"timeLeft,omitempty"` // ms
	WordsLeft     []string   `json:"wordsLeft,omitempty"`
	Solution      [][]string `json:"solution,omitempty"`
	GuessedGroups [][]string `json:"guessedGroups,omitempty"`
	Errors        *int       `json:"errors,omitempty"`
	Score         *int       `json:"score,omitempty"`
}

func OkGameInfo(info game.GameInfo) GameInfoResponse {
	active := info.Active
	r := GameInfoResponse{
		Status:        okStatus(),
		Active:        &active,
		GuessedGroups: info.GuessedGroups,
		Errors:        &info.Mistakes,
		Score:         &info.Score,
	}
	if active {
		ms := info.TimeLeft.Milliseconds()
		r.TimeLeft = &ms
		r.WordsLeft = info.WordsLeft
		if r.WordsLeft == nil {
			r.WordsLeft = []string{}
		}
	} else {
		r.Solution = info.Solution
	}
	return r
}

func ErrGameInfo(msg string) GameInfoResponse {
	return GameInfoResponse{Status: errStatus(msg)}
}

// ---------------------------------------------------------------------------

// GameStatsResponse answers a game-stats query. Exactly one of the live
// branch (timeLeft, activePlayers) and the finished branch (totalPlayers,
// averageScore) is populated, selected by Active.
type GameStatsResponse struct {
	Status
	Active          *bool  `json:"active,omitempty"`
	TimeLeft        *int64 `json:"timeLeft,omitempty"` // ms
	ActivePlayers   *int   `json:"activePlayers,omitempty"`
	FinishedPlayers *int   `json:"finishedPlayers,omitempty"`
	WonPlayers      *int   `json:"wonPlayers,omitempty"`
	TotalPlayers    *int   `json:"totalPlayers,omitempty"`
	AverageScore    *int64 `json:"averageScore,omitempty"`
}

func OkGameStats(st game.SessionStats) GameStatsResponse {
	active := st.Active
	r := GameStatsResponse{
		Status:          okStatus(),
		Active:          &active,
		FinishedPlayers: &st.FinishedPlayers,
		WonPlayers:      &st.WonPlayers,
	}
	if active {
		ms := st.TimeLeft.Milliseconds()
		r.TimeLeft = &ms
		r.ActivePlayers = &st.ActivePlayers
	} else {
		r.TotalPlayers = &st.TotalPlayers
		r.AverageScore = &st.AverageScore
	}
	return r
}

func ErrGameStats(msg string) GameStatsResponse {
	return GameStatsResponse{Status: errStatus(msg)}
}

// ---------------------------------------------------------------------------

// LeaderboardResponse carries an ordered slice of (username, position)
// records; an empty result is an empty list, never null.
type LeaderboardResponse struct {
	Status
	Records []stats.Record `json:"records,omitempty"`
}

func OkLeaderboard(records []stats.Record) LeaderboardResponse {
	if records == nil {
		records = []stats.Record{}
	}
	return LeaderboardResponse{Status: okStatus(), Records: records}
}

func ErrLeaderboard(msg string) LeaderboardResponse {
	return LeaderboardResponse{Status: errStatus(msg)}
}

// ---------------------------------------------------------------------------

// PlayerStatsResponse carries the durable per-player record.
type PlayerStatsResponse struct {
	Status
	Solved        *int     `json:"solvedPuzzles,omitempty"`
	Failed        *int     `json:"failedPuzzles,omitempty"`
	Unfinished    *int     `json:"unfinishedPuzzles,omitempty"`
	Perfect       *int     `json:"perfectPuzzles,omitempty"`
	WinRate       *float32 `json:"winRate,omitempty"`
	LossRate      *float32 `json:"lossRate,omitempty"`
	CurrentStreak *int     `json:"currentStreak,omitempty"`
	MaxStreak     *int     `json:"maxStreak,omitempty"`
	Histogram     []int    `json:"histogram,omitempty"`
}

func OkPlayerStats(ps stats.PlayerStats) PlayerStatsResponse {
	hist := make([]int, stats.HistogramBuckets)
	copy(hist, ps.Histogram[:])
	return PlayerStatsResponse{
		Status:        okStatus(),
		Solved:        &ps.Solved,
		Failed:        &ps.Failed,
		Unfinished:    &ps.Unfinished,
		Perfect:       &ps.Perfect,
		WinRate:       &ps.WinRate,
		LossRate:      &ps.LossRate,
		CurrentStreak: &ps.CurrentStreak,
		MaxStreak:     &ps.MaxStreak,
		Histogram:     hist,
	}
}

func ErrPlayerStats(msg string) PlayerStatsResponse {
	return PlayerStatsResponse{Status: errStatus(msg)}
}
