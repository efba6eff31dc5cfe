package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pokercrm/playtime/internal/config"
	"github.com/pokercrm/playtime/internal/domain"
)

const entryColumns = `id, player_id, played_on, start_time, end_time, minutes, created_at, updated_at`

// Repository provides PostgreSQL-based data access
type Repository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewRepository creates a new PostgreSQL repository
func NewRepository(cfg *config.PostgresConfig, logger *slog.Logger) (*Repository, error) {
	return Connect(context.Background(), cfg.ConnectionString(), cfg, logger)
}

// Connect opens a pool for connString, applying pool limits from cfg when set
func Connect(ctx context.Context, connString string, cfg *config.PostgresConfig, logger *slog.Logger) (*Repository, error) {
	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	if cfg != nil {
		poolConfig.MaxConns = int32(cfg.MaxConnections)
		poolConfig.MinConns = int32(cfg.MinConnections)
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return &Repository{
		pool:   pool,
		logger: logger,
	}, nil
}

// Close closes the database connection pool
func (r *Repository) Close() {
	r.pool.Close()
}

// Ping checks the database connection
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// CreatePlayer registers a player. The id comes from the table's sequence.
func (r *Repository) CreatePlayer(ctx context.Context, name string) (*domain.Player, error) {
	query := `
		INSERT INTO players (name, created_at, updated_at)
		VALUES ($1, $2, $2)
		RETURNING id, name, created_at, updated_at
	`
	var p domain.Player
	err := r.pool.QueryRow(ctx, query, name, time.Now().UTC()).Scan(&p.ID, &p.Name, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("creating player: %w", err)
	}
	return &p, nil
}

// GetPlayer retrieves a player by ID
func (r *Repository) GetPlayer(ctx context.Context, playerID int64) (*domain.Player, error) {
	query := `SELECT id, name, created_at, updated_at FROM players WHERE id = $1`
	var p domain.Player
	err := r.pool.QueryRow(ctx, query, playerID).Scan(&p.ID, &p.Name, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPlayerNotFound
		}
		return nil, fmt.Errorf("getting player: %w", err)
	}
	return &p, nil
}

// ListPlayers retrieves every player ordered by ID
func (r *Repository) ListPlayers(ctx context.Context) ([]domain.Player, error) {
	query := `SELECT id, name, created_at, updated_at FROM players ORDER BY id`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing players: %w", err)
	}
	defer rows.Close()

	players := []domain.Player{}
	for rows.Next() {
		var p domain.Player
		if err := rows.Scan(&p.ID, &p.Name, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning player: %w", err)
		}
		players = append(players, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing players: %w", err)
	}
	return players, nil
}

// PlayerNames maps the given player IDs to their names. Unknown IDs are left out.
func (r *Repository) PlayerNames(ctx context.Context, playerIDs []int64) (map[int64]string, error) {
	names := make(map[int64]string, len(playerIDs))
	if len(playerIDs) == 0 {
		return names, nil
	}

	rows, err := r.pool.Query(ctx, `SELECT id, name FROM players WHERE id = ANY($1)`, playerIDs)
	if err != nil {
		return nil, fmt.Errorf("getting player names: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scanning player name: %w", err)
		}
		names[id] = name
	}
	return names, rows.Err()
}

// ListEntries retrieves a player's entries within [from, to], oldest first.
// Nil bounds are open.
func (r *Repository) ListEntries(ctx context.Context, playerID int64, from, to *time.Time) ([]domain.PlaytimeEntry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM playtime_entries
		WHERE player_id = $1
		  AND ($2::date IS NULL OR played_on >= $2::date)
		  AND ($3::date IS NULL OR played_on <= $3::date)
		ORDER BY played_on, id
	`
	rows, err := r.pool.Query(ctx, query, playerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}
	return collectEntries(rows)
}

// ListEntriesBetween retrieves every player's entries with from <= played_on < to
func (r *Repository) ListEntriesBetween(ctx context.Context, from, to time.Time) ([]domain.PlaytimeEntry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM playtime_entries
		WHERE played_on >= $1::date AND played_on < $2::date
		ORDER BY played_on, id
	`
	rows, err := r.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("listing entries between: %w", err)
	}
	return collectEntries(rows)
}

// GetEntry retrieves a single entry by ID
func (r *Repository) GetEntry(ctx context.Context, entryID int64) (*domain.PlaytimeEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM playtime_entries WHERE id = $1`
	e, err := scanEntry(r.pool.QueryRow(ctx, query, entryID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEntryNotFound
		}
		return nil, fmt.Errorf("getting entry: %w", err)
	}
	return e, nil
}

// UpsertEntry inserts the day's entry or overwrites the existing one
func (r *Repository) UpsertEntry(ctx context.Context, entry domain.PlaytimeEntry) (*domain.PlaytimeEntry, error) {
	query := `
		INSERT INTO playtime_entries (player_id, played_on, start_time, end_time, minutes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (player_id, played_on)
		DO UPDATE SET
			start_time = EXCLUDED.start_time,
			end_time = EXCLUDED.end_time,
			minutes = EXCLUDED.minutes,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + entryColumns
	e, err := scanEntry(r.pool.QueryRow(ctx, query,
		entry.PlayerID,
		entry.PlayedOn,
		entry.StartTime,
		entry.EndTime,
		entry.Minutes,
		time.Now().UTC(),
	))
	if err != nil {
		return nil, mapWriteError("upserting entry", err)
	}
	return e, nil
}

// UpdateEntry rewrites an existing entry. Moving it onto a day the player
// already has an entry for fails with domain.ErrEntryConflict.
func (r *Repository) UpdateEntry(ctx context.Context, entry domain.PlaytimeEntry) (*domain.PlaytimeEntry, error) {
	query := `
		UPDATE playtime_entries
		SET played_on = $2, start_time = $3, end_time = $4, minutes = $5, updated_at = $6
		WHERE id = $1
		RETURNING ` + entryColumns
	e, err := scanEntry(r.pool.QueryRow(ctx, query,
		entry.ID,
		entry.PlayedOn,
		entry.StartTime,
		entry.EndTime,
		entry.Minutes,
		time.Now().UTC(),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEntryNotFound
		}
		return nil, mapWriteError("updating entry", err)
	}
	return e, nil
}

// DeleteEntry removes an entry
func (r *Repository) DeleteEntry(ctx context.Context, entryID int64) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM playtime_entries WHERE id = $1`, entryID)
	if err != nil {
		return fmt.Errorf("deleting entry: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrEntryNotFound
	}
	return nil
}

// MergeSession folds an imported session into the day's entry, summing
// minutes and widening the start/end envelope. A session whose fingerprint
// was already imported is skipped and merged is false.
func (r *Repository) MergeSession(ctx context.Context, session domain.PlaytimeEntry, fingerprint, source string) (*domain.PlaytimeEntry, bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("beginning merge: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	now := time.Now().UTC()
	result, err := tx.Exec(ctx, `
		INSERT INTO playtime_import_sessions (fingerprint, player_id, played_on, start_time, end_time, minutes, source, imported_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8)
		ON CONFLICT (fingerprint) DO NOTHING
	`, fingerprint, session.PlayerID, session.PlayedOn, session.StartTime, session.EndTime, session.Minutes, source, now)
	if err != nil {
		return nil, false, mapWriteError("recording import session", err)
	}
	if result.RowsAffected() == 0 {
		return nil, false, nil
	}

	// LEAST ignores NULLs, so a flat-duration side keeps the other's times.
	// An end before its own start is past midnight and sorts after same-day ends.
	query := `
		INSERT INTO playtime_entries (player_id, played_on, start_time, end_time, minutes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (player_id, played_on)
		DO UPDATE SET
			start_time = LEAST(playtime_entries.start_time, EXCLUDED.start_time),
			end_time = CASE
				WHEN EXCLUDED.end_time IS NULL THEN playtime_entries.end_time
				WHEN playtime_entries.end_time IS NULL THEN EXCLUDED.end_time
				WHEN (CASE WHEN EXCLUDED.end_time < EXCLUDED.start_time THEN '1' ELSE '0' END || EXCLUDED.end_time)
					> (CASE WHEN playtime_entries.end_time < playtime_entries.start_time THEN '1' ELSE '0' END || playtime_entries.end_time)
				THEN EXCLUDED.end_time
				ELSE playtime_entries.end_time
			END,
			minutes = playtime_entries.minutes + EXCLUDED.minutes,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + entryColumns
	merged, err := scanEntry(tx.QueryRow(ctx, query,
		session.PlayerID,
		session.PlayedOn,
		session.StartTime,
		session.EndTime,
		session.Minutes,
		now,
	))
	if err != nil {
		return nil, false, mapWriteError("merging session", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("committing merge: %w", err)
	}
	return merged, true, nil
}

func scanEntry(row pgx.Row) (*domain.PlaytimeEntry, error) {
	var e domain.PlaytimeEntry
	err := row.Scan(
		&e.ID,
		&e.PlayerID,
		&e.PlayedOn,
		&e.StartTime,
		&e.EndTime,
		&e.Minutes,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.PlayedOn = e.PlayedOn.UTC()
	return &e, nil
}

func collectEntries(rows pgx.Rows) ([]domain.PlaytimeEntry, error) {
	defer rows.Close()

	entries := []domain.PlaytimeEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading entries: %w", err)
	}
	return entries, nil
}

// mapWriteError translates constraint violations into domain errors
func mapWriteError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return domain.ErrEntryConflict
		case pgerrcode.ForeignKeyViolation:
			return domain.ErrPlayerNotFound
		case pgerrcode.CheckViolation:
			return fmt.Errorf("%w: %s", domain.ErrInvalidDuration, pgErr.ConstraintName)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
