// internal/ws/dispatch.go
//
// Operation routing for one client connection.
//
// Each decoded request envelope is dispatched by its "operation" field to
// the session registry, the stats aggregator or the auth service, and the
// engine's typed failures are mapped onto the stable wire error strings.
// Dispatch holds no locks of its own: per-player ordering comes from the
// connection reading one request at a time, and the session serializes
// cross-player access internally.

package ws

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wordplay-labs/connections-server/internal/auth"
	"github.com/wordplay-labs/connections-server/internal/game"
	"github.com/wordplay-labs/connections-server/internal/proto"
	"github.com/wordplay-labs/connections-server/internal/stats"
)

// Dispatcher routes decoded requests to the core components.
type Dispatcher struct {
	Registry *game.Registry
	Stats    *stats.Aggregator
	Auth     *auth.Service

	// Current resolves the session new logins are placed into (the daily
	// game). Queries on other games go through Registry directly.
	Current func() (*game.Session, error)

	now func() time.Time
}

// NewDispatcher wires the dispatcher; current picks the login session.
func NewDispatcher(reg *game.Registry, agg *stats.Aggregator, authsvc *auth.Service, current func() (*game.Session, error)) *Dispatcher {
	return &Dispatcher{
		Registry: reg,
		Stats:    agg,
		Auth:     authsvc,
		Current:  current,
		now:      time.Now,
	}
}

// connState is the per-connection mutable state. The read pump owns it;
// no two requests from one connection are ever in flight at once.
type connState struct {
	user *auth.User
}

// Handle decodes one request and returns the response value to encode.
func (d *Dispatcher) Handle(ctx context.Context, st *connState, raw []byte) any {
	var req proto.Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return proto.Status{Success: false, Error: strptr("malformed request")}
	}

	switch req.Operation {
	case proto.OpRegister:
		return d.register(ctx, req)
	case proto.OpLogin:
		return d.login(ctx, st, req)
	case proto.OpLogout:
		return d.logout(st)
	case proto.OpUpdateCredentials:
		return d.updateCredentials(ctx, req)
	case proto.OpGuess:
		return d.guess(st, req)
	case proto.OpGameInfo:
		return d.gameInfo(st)
	case proto.OpGameStats:
		return d.gameStats(st, req)
	case proto.OpLeaderboard:
		return d.leaderboard(ctx, st, req)
	case proto.OpPlayerStats:
		return d.playerStats(ctx, st)
	default:
		return proto.Status{Success: false, Error: strptr("unknown operation")}
	}
}

func (d *Dispatcher) register(ctx context.Context, req proto.Request) proto.RegisterResponse {
	name := req.Name
	if name == "" {
		name = req.Username
	}
	if _, err := d.Auth.Register(ctx, name, req.Password); err != nil {
		if errors.Is(err, auth.ErrUsernameTaken) {
			return proto.ErrRegister(proto.ErrUsernameTaken)
		}
		return proto.ErrRegister(err.Error())
	}
	return proto.OkRegister()
}

// login authenticates (credentials or token resume), joins the player into
// the current session and returns the full game view. A player rejoining a
// game they already started gets their progress back unchanged.
func (d *Dispatcher) login(ctx context.Context, st *connState, req proto.Request) proto.LoginResponse {
	var (
		u   *auth.User
		err error
	)
	if req.Token != "" {
		u, err = d.Auth.VerifyToken(ctx, req.Token)
	} else {
		u, err = d.Auth.Login(ctx, req.Username, req.Password)
	}
	if err != nil {
		return proto.ErrLogin(authErrString(err))
	}

	sess, err := d.Current()
	if err != nil {
		return proto.ErrLogin(proto.ErrPuzzleNotFound)
	}
	view, err := sess.Join(u.ID)
	if err != nil {
		return proto.ErrLogin(proto.ErrGameExpired)
	}

	token, _, err := d.Auth.SignToken(u)
	if err != nil {
		return proto.ErrLogin("token signing failed")
	}
	st.user = u

	resp, err := proto.OkLogin(
		sess.GameID(),
		sess.Puzzle().Words(),
		view.GuessedGroups,
		sess.TimeLeft(d.now()),
		view.Mistakes,
		view.Score,
		token,
	)
	if err != nil {
		// Puzzle construction guarantees 16 words; reaching this is a bug.
		log.Error().Err(err).Int("gameId", sess.GameID()).Msg("assemble login response")
		return proto.ErrLogin("internal error")
	}
	return resp
}

func (d *Dispatcher) logout(st *connState) proto.LogoutResponse {
	if st.user == nil {
		return proto.ErrLogout(proto.ErrNotAuthenticated)
	}
	st.user = nil
	return proto.OkLogout()
}

func (d *Dispatcher) updateCredentials(ctx context.Context, req proto.Request) proto.UpdateCredentialsResponse {
	_, err := d.Auth.UpdateCredentials(ctx, req.OldName, req.OldPassword, req.NewName, req.NewPassword)
	if err != nil {
		return proto.ErrUpdateCredentials(authErrString(err))
	}
	return proto.OkUpdateCredentials()
}

func (d *Dispatcher) guess(st *connState, req proto.Request) proto.GuessResponse {
	if st.user == nil {
		return proto.ErrGuess(proto.ErrNotAuthenticated)
	}
	sess, err := d.Current()
	if err != nil {
		return proto.ErrGuess(proto.ErrPuzzleNotFound)
	}
	out, err := sess.Guess(st.user.ID, req.Words)
	if err != nil {
		return proto.ErrGuess(gameErrString(err))
	}
	return proto.OkGuess(out)
}

func (d *Dispatcher) gameInfo(st *connState) proto.GameInfoResponse {
	if st.user == nil {
		return proto.ErrGameInfo(proto.ErrNotAuthenticated)
	}
	sess, err := d.Current()
	if err != nil {
		return proto.ErrGameInfo(proto.ErrPuzzleNotFound)
	}
	info, err := sess.Info(st.user.ID, d.now())
	if err != nil {
		return proto.ErrGameInfo(gameErrString(err))
	}
	return proto.OkGameInfo(info)
}

func (d *Dispatcher) gameStats(st *connState, req proto.Request) proto.GameStatsResponse {
	if st.user == nil {
		return proto.ErrGameStats(proto.ErrNotAuthenticated)
	}
	var (
		sess *game.Session
		err  error
	)
	if req.GameID != nil {
		sess, err = d.Registry.Lookup(*req.GameID, d.now())
	} else {
		sess, err = d.Current()
	}
	if err != nil {
		return proto.ErrGameStats(proto.ErrPuzzleNotFound)
	}
	return proto.OkGameStats(sess.Stats(d.now()))
}

func (d *Dispatcher) leaderboard(ctx context.Context, st *connState, req proto.Request) proto.LeaderboardResponse {
	if st.user == nil {
		return proto.ErrLeaderboard(proto.ErrNotAuthenticated)
	}
	records, err := d.Stats.Leaderboard(ctx, req.Count, req.Offset)
	if err != nil {
		log.Warn().Err(err).Msg("leaderboard query")
		return proto.ErrLeaderboard("internal error")
	}
	return proto.OkLeaderboard(records)
}

func (d *Dispatcher) playerStats(ctx context.Context, st *connState) proto.PlayerStatsResponse {
	if st.user == nil {
		return proto.ErrPlayerStats(proto.ErrNotAuthenticated)
	}
	ps, err := d.Stats.PlayerStats(ctx, st.user.ID)
	if err != nil {
		log.Warn().Err(err).Str("player", st.user.ID).Msg("player stats query")
		return proto.ErrPlayerStats("internal error")
	}
	return proto.OkPlayerStats(ps)
}

// gameErrString maps engine failures onto the wire vocabulary.
func gameErrString(err error) string {
	switch {
	case errors.Is(err, game.ErrSessionExpired):
		return proto.ErrGameExpired
	case errors.Is(err, game.ErrAlreadyTerminal):
		return proto.ErrAlreadyFinished
	case errors.Is(err, game.ErrSessionNotFound):
		return proto.ErrPuzzleNotFound
	case errors.Is(err, game.ErrInvalidCandidate), errors.Is(err, game.ErrPlayerNotFound):
		return proto.ErrInvalidGuess
	default:
		return err.Error()
	}
}

// authErrString maps auth failures onto the wire vocabulary.
func authErrString(err error) string {
	switch {
	case errors.Is(err, auth.ErrUserNotRegistered):
		return proto.ErrUserNotRegistered
	case errors.Is(err, auth.ErrWrongCredentials), errors.Is(err, auth.ErrInvalidToken):
		return proto.ErrWrongCredentials
	case errors.Is(err, auth.ErrUsernameTaken):
		return proto.ErrUsernameTaken
	default:
		return err.Error()
	}
}

func strptr(s string) *string { return &s }
