// main.go
//
// Process bootstrap for the Connections server: configuration, database,
// puzzle content, the daily session lifecycle, and the HTTP/WebSocket
// front end.

package main

import (
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/wordplay-labs/connections-server/internal/auth"
	"github.com/wordplay-labs/connections-server/internal/game"
	"github.com/wordplay-labs/connections-server/internal/httpserver"
	"github.com/wordplay-labs/connections-server/internal/puzzle"
	"github.com/wordplay-labs/connections-server/internal/stats"
	"github.com/wordplay-labs/connections-server/internal/ws"
)

func main() {
	_ = godotenv.Load()
	if lvl, err := zerolog.ParseLevel(envStr("LOG_LEVEL", "info")); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	db, err := openDB(envStr("DB_PATH", "./data/app.db"))
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	if err := migrate(db, "sql"); err != nil {
		log.Fatal().Err(err).Msg("apply migrations")
	}

	if err := puzzle.Init(); err != nil {
		log.Fatal().Err(err).Msg("load puzzle set")
	}
	log.Info().Int("puzzles", puzzle.Count()).Msg("puzzle set loaded")

	agg := stats.New(db)
	registry := game.NewRegistry(time.Duration(envInt("RETENTION_MIN", 60))*time.Minute, agg)

	sched := &scheduler{
		registry: registry,
		salt:     envStr("DAILY_SALT", "local_dev_salt"),
		duration: time.Duration(envInt("GAME_DURATION_MIN", 1440)) * time.Minute,
	}
	if err := sched.rotate(time.Now()); err != nil {
		log.Fatal().Err(err).Msg("register daily session")
	}
	go sched.run()

	authsvc := auth.New(db,
		[]byte(envStr("JWT_SECRET", "dev_secret_change_me")),
		time.Duration(envInt("JWT_EXPIRES_DAYS", 14))*24*time.Hour)

	dispatcher := ws.NewDispatcher(registry, agg, authsvc, sched.current)
	srv := httpserver.New(authsvc, agg, ws.NewHandler(dispatcher))

	port := envStr("PORT", "5175")
	log.Info().Str("port", port).Msg("starting connections-server")
	if err := srv.Start(":" + port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

// scheduler owns the daily session lifecycle: it registers the puzzle of
// the day, drives session expiry ticks, and evicts retained sessions.
type scheduler struct {
	registry *game.Registry
	salt     string
	duration time.Duration

	currentID atomic.Int64
}

// current resolves the session logins are placed into.
func (sc *scheduler) current() (*game.Session, error) {
	return sc.registry.Lookup(int(sc.currentID.Load()), time.Now())
}

// rotate registers the puzzle of the day and points logins at it. Reusing
// a still-registered puzzle (small sets pick repeats) is not an error.
func (sc *scheduler) rotate(now time.Time) error {
	p := puzzle.Daily(now, sc.salt)
	if p == nil {
		return game.ErrSessionNotFound
	}
	if _, err := sc.registry.Register(p, sc.duration, now); err != nil {
		if err != game.ErrDuplicateSession {
			return err
		}
	} else {
		log.Info().Int("gameId", p.ID).Str("date", puzzle.DateKey(now)).Msg("daily session registered")
	}
	sc.currentID.Store(int64(p.ID))
	return nil
}

// run ticks session expiry every second, evicts retained sessions every
// minute, and rotates the daily puzzle when the UTC date changes.
func (sc *scheduler) run() {
	tick := time.NewTicker(time.Second)
	housekeeping := time.NewTicker(time.Minute)
	defer tick.Stop()
	defer housekeeping.Stop()

	day := puzzle.DateKey(time.Now())
	for {
		select {
		case now := <-tick.C:
			sc.registry.Tick(now)
		case now := <-housekeeping.C:
			if n := sc.registry.EvictExpired(now); n > 0 {
				log.Info().Int("evicted", n).Msg("sessions evicted")
			}
			if dk := puzzle.DateKey(now); dk != day {
				day = dk
				if err := sc.rotate(now); err != nil {
					log.Error().Err(err).Msg("daily rotation failed")
				}
			}
		}
	}
}

func envStr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
