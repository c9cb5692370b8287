// internal/stats/stats.go
//
// Durable cross-session record keeping, decoupled from session lifetime.
//
// The aggregator consumes terminal run snapshots from the game engine and
// maintains per-player counters (solved/failed/unfinished/perfect, global
// score, streaks, mistake histogram) plus the cross-player leaderboard, all
// backed by SQLite.
//
// Result classification:
//   - Won                      → solved (+perfect when 0 mistakes)
//   - Lost with 4 mistakes     → failed
//   - Lost to the session timer → unfinished
// Every terminal run fills the histogram bucket for its mistake count;
// failed and unfinished both reset the win streak.

package stats

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wordplay-labs/connections-server/internal/game"
)

// HistogramBuckets is one bucket per possible mistake count, 0 through 4.
const HistogramBuckets = game.MaxMistakes + 1

// Aggregator updates durable player statistics from terminal snapshots and
// serves player-stats and leaderboard queries.
type Aggregator struct {
	db *sql.DB
}

func New(db *sql.DB) *Aggregator { return &Aggregator{db: db} }

// RecordTerminal implements game.TerminalSink. Persistence failures are
// logged, not propagated — a stats hiccup must never corrupt or block the
// session engine.
func (a *Aggregator) RecordTerminal(snap game.TerminalSnapshot) {
	if err := a.Record(context.Background(), snap); err != nil {
		log.Warn().Err(err).
			Str("player", snap.PlayerID).
			Int("gameId", snap.GameID).
			Msg("record terminal run")
	}
}

// Record applies one terminal snapshot. Idempotent per (player, game): the
// game_results primary key swallows duplicates before any counter moves.
// Different players' updates are independent transactions and proceed in
// parallel; SQLite serializes writes per row.
func (a *Aggregator) Record(ctx context.Context, snap game.TerminalSnapshot) error {
	if snap.Mistakes < 0 || snap.Mistakes >= HistogramBuckets {
		return fmt.Errorf("mistake count %d out of range", snap.Mistakes)
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
        INSERT OR IGNORE INTO game_results
            (player_id, game_id, result, mistakes, score, timed_out, recorded_at)
        VALUES (?,?,?,?,?,?,?)`,
		snap.PlayerID, snap.GameID, string(snap.Result), snap.Mistakes, snap.Score,
		boolInt(snap.TimedOut), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		// Already recorded; nothing to double-count.
		return tx.Commit()
	}

	var score, solved, failed, unfinished, perfect, cur, max int
	row := tx.QueryRowContext(ctx, `
        SELECT global_score, solved, failed, unfinished, perfect, current_streak, max_streak
        FROM users WHERE id=?`, snap.PlayerID)
	if err := row.Scan(&score, &solved, &failed, &unfinished, &perfect, &cur, &max); err != nil {
		return fmt.Errorf("load player counters: %w", err)
	}

	score += snap.Score
	switch {
	case snap.Result == game.ResultWon:
		solved++
		if snap.Mistakes == 0 {
			perfect++
		}
		cur++
		if cur > max {
			max = cur
		}
	case snap.TimedOut:
		unfinished++
		cur = 0
	default:
		failed++
		cur = 0
	}

	bucket := fmt.Sprintf("mistakes_%d", snap.Mistakes)
	_, err = tx.ExecContext(ctx, `
        UPDATE users SET
            global_score=?, solved=?, failed=?, unfinished=?, perfect=?,
            current_streak=?, max_streak=?, `+bucket+` = `+bucket+` + 1
        WHERE id=?`,
		score, solved, failed, unfinished, perfect, cur, max, snap.PlayerID)
	if err != nil {
		return fmt.Errorf("update player counters: %w", err)
	}
	return tx.Commit()
}

// PlayerStats is the durable per-player record served to stats queries.
type PlayerStats struct {
	Solved        int
	Failed        int
	Unfinished    int
	Perfect       int
	WinRate       float32
	LossRate      float32
	CurrentStreak int
	MaxStreak     int
	Histogram     [HistogramBuckets]int
}

// PlayerStats loads the durable record for one player. Rates are fractions
// of all terminal runs: winRate = solved/total, lossRate = failed/total
// (time-expired runs count in total but in neither rate).
func (a *Aggregator) PlayerStats(ctx context.Context, playerID string) (PlayerStats, error) {
	var ps PlayerStats
	row := a.db.QueryRowContext(ctx, `
        SELECT solved, failed, unfinished, perfect, current_streak, max_streak,
               mistakes_0, mistakes_1, mistakes_2, mistakes_3, mistakes_4
        FROM users WHERE id=?`, playerID)
	err := row.Scan(
		&ps.Solved, &ps.Failed, &ps.Unfinished, &ps.Perfect,
		&ps.CurrentStreak, &ps.MaxStreak,
		&ps.Histogram[0], &ps.Histogram[1], &ps.Histogram[2], &ps.Histogram[3], &ps.Histogram[4],
	)
	if err != nil {
		return PlayerStats{}, err
	}
	if total := ps.Solved + ps.Failed + ps.Unfinished; total > 0 {
		ps.WinRate = float32(ps.Solved) / float32(total)
		ps.LossRate = float32(ps.Failed) / float32(total)
	}
	return ps, nil
}

// Record is one leaderboard row; Position is 1-based and offset-aware.
type Record struct {
	Username string `json:"username"`
	Position int    `json:"position"`
}

// Leaderboard ranks players by cumulative global score descending, ties
// broken by username ascending so the ordering is deterministic and
// reproducible for the same underlying data.
func (a *Aggregator) Leaderboard(ctx context.Context, count, offset int) ([]Record, error) {
	if count <= 0 {
		count = 20
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := a.db.QueryContext(ctx, `
        SELECT username FROM users
        ORDER BY global_score DESC, username ASC
        LIMIT ? OFFSET ?`, count, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Record, 0, count)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, Record{Username: name, Position: offset + len(out) + 1})
	}
	return out, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
