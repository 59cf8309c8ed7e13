// internal/database/sql.go
package database

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	log "github.com/sirupsen/logrus"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/wmxl/card-dealer-miniprogram/engine"
	"github.com/wmxl/card-dealer-miniprogram/service/internal/models"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationFS embed.FS

// Dialect selects the SQL backend.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// Options configures Open.
type Options struct {
	Dialect     Dialect
	SQLitePath  string
	PostgresDSN string
}

// SQLStore is the database/sql implementation of Store.
type SQLStore struct {
	dialect Dialect
	db      *sql.DB
}

// Open connects to the configured database, pings it and applies any
// pending migrations.
func Open(ctx context.Context, opts Options) (*SQLStore, error) {
	dialectRaw := strings.TrimSpace(strings.ToLower(string(opts.Dialect)))
	if dialectRaw == "" {
		dialectRaw = string(DialectSQLite)
	}
	dialect := Dialect(dialectRaw)

	var driverName string
	var dsn string
	switch dialect {
	case DialectSQLite:
		driverName = "sqlite"
		path := strings.TrimSpace(opts.SQLitePath)
		if path == "" {
			path = filepath.Join("tmp", "avalon.sqlite")
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite directory: %w", err)
		}
		dsn = path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	case DialectPostgres:
		driverName = "pgx"
		dsn = strings.TrimSpace(opts.PostgresDSN)
		if dsn == "" {
			return nil, errors.New("DB_DIALECT=postgres requires DB_POSTGRES_DSN")
		}
	default:
		return nil, fmt.Errorf("unsupported DB_DIALECT %q", dialectRaw)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", dialect, err)
	}
	if dialect == DialectSQLite {
		// A single connection serializes sqlite writers.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s database: %w", dialect, err)
	}

	store := &SQLStore{dialect: dialect, db: db}
	if err := store.applyMigrations(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}
	log.WithField("dialect", dialect).Info("database: opened")
	return store, nil
}

// Close releases the underlying connection pool.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) bind(pos int) string {
	if s.dialect == DialectPostgres {
		return fmt.Sprintf("$%d", pos)
	}
	return "?"
}

// rebind rewrites ? placeholders for the active dialect.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	pos := 0
	for _, r := range query {
		if r == '?' {
			pos++
			b.WriteString(s.bind(pos))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLStore) insertQuery(table string, cols []string) string {
	ph := make([]string, len(cols))
	for i := range cols {
		ph[i] = s.bind(i + 1)
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		table,
		strings.Join(cols, ", "),
		strings.Join(ph, ", "),
	)
}

func (s *SQLStore) applyMigrations(ctx context.Context) error {
	create := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at BIGINT NOT NULL
		)
	`
	if _, err := s.db.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	applied := map[string]bool{}
	rows, err := s.db.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return fmt.Errorf("read schema_migrations: %w", err)
	}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return fmt.Errorf("scan schema migration: %w", err)
		}
		applied[v] = true
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("iterate schema migrations: %w", err)
	}
	rows.Close()

	pattern := fmt.Sprintf("migrations/%s/*.sql", s.dialect)
	files, err := fs.Glob(migrationFS, pattern)
	if err != nil {
		return fmt.Errorf("glob migrations: %w", err)
	}
	sort.Strings(files)
	for _, file := range files {
		base := filepath.Base(file)
		if applied[base] {
			continue
		}
		sqlBytes, err := migrationFS.ReadFile(file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration tx %s: %w", file, err)
		}
		if _, err := tx.ExecContext(ctx, string(sqlBytes)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration %s: %w", file, err)
		}
		q := s.insertQuery("schema_migrations", []string{"version", "applied_at"})
		if _, err := tx.ExecContext(ctx, q, base, toMillis(time.Now())); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", file, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", file, err)
		}
		log.WithField("migration", base).Info("database: applied migration")
	}
	return nil
}

// CreateSession inserts a new session with no players. An existing
// id yields ErrConflict.
func (s *SQLStore) CreateSession(ctx context.Context, sess *models.Session) error {
	state, err := json.Marshal(sess.State)
	if err != nil {
		return fmt.Errorf("encode session state: %w", err)
	}
	q := s.insertQuery("sessions", []string{
		"id", "game_id", "max_players", "status", "version", "state", "created_at", "updated_at",
	})
	_, err = s.db.ExecContext(ctx, q,
		sess.ID, sess.GameID.String(), sess.MaxPlayers, string(sess.Status), sess.Version,
		string(state), toMillis(sess.CreatedAt), toMillis(sess.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// LoadSession reads a session and its players ordered by player number.
func (s *SQLStore) LoadSession(ctx context.Context, id string) (*models.Session, []models.Player, error) {
	var (
		sess      models.Session
		gameID    string
		status    string
		state     []byte
		createdAt int64
		updatedAt int64
	)
	row := s.db.QueryRowContext(ctx, s.rebind(`
SELECT id, game_id, max_players, status, version, state, created_at, updated_at
FROM sessions
WHERE id = ?
`), id)
	if err := row.Scan(&sess.ID, &gameID, &sess.MaxPlayers, &status, &sess.Version, &state, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("load session %s: %w", id, err)
	}
	var err error
	if sess.GameID, err = uuid.Parse(gameID); err != nil {
		return nil, nil, fmt.Errorf("session %s game id: %w", id, err)
	}
	if sess.Status, err = engine.ParsePhase(status); err != nil {
		return nil, nil, fmt.Errorf("session %s: %w", id, err)
	}
	if err := json.Unmarshal(state, &sess.State); err != nil {
		return nil, nil, fmt.Errorf("decode session %s state: %w", id, err)
	}
	sess.CreatedAt = fromMillis(createdAt)
	sess.UpdatedAt = fromMillis(updatedAt)

	rows, err := s.db.QueryContext(ctx, s.rebind(`
SELECT player_number, nickname, role, vote_history, joined_at, updated_at
FROM players
WHERE session_id = ?
ORDER BY player_number
`), id)
	if err != nil {
		return nil, nil, fmt.Errorf("load players for %s: %w", id, err)
	}
	defer rows.Close()

	var players []models.Player
	for rows.Next() {
		var (
			p        models.Player
			role     sql.NullString
			votes    []byte
			joinedAt int64
			updAt    int64
		)
		if err := rows.Scan(&p.PlayerNumber, &p.Nickname, &role, &votes, &joinedAt, &updAt); err != nil {
			return nil, nil, fmt.Errorf("scan player: %w", err)
		}
		p.SessionID = id
		if role.Valid && role.String != "" && role.String != "null" {
			var r engine.Role
			if err := json.Unmarshal([]byte(role.String), &r); err != nil {
				return nil, nil, fmt.Errorf("decode player %d role: %w", p.PlayerNumber, err)
			}
			p.Role = &r
		}
		if err := json.Unmarshal(votes, &p.VoteHistory); err != nil {
			return nil, nil, fmt.Errorf("decode player %d votes: %w", p.PlayerNumber, err)
		}
		p.JoinedAt = fromMillis(joinedAt)
		p.UpdatedAt = fromMillis(updAt)
		players = append(players, p)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate players: %w", err)
	}
	return &sess, players, nil
}

// SaveSession writes the session if its version is unchanged since load,
// upserts every player in the same transaction and bumps sess.Version.
func (s *SQLStore) SaveSession(ctx context.Context, sess *models.Session, players []models.Player) error {
	state, err := json.Marshal(sess.State)
	if err != nil {
		return fmt.Errorf("encode session state: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save tx: %w", err)
	}
	if err := s.saveWithTx(ctx, tx, sess, state, players); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save tx: %w", err)
	}
	sess.Version++
	return nil
}

func (s *SQLStore) saveWithTx(ctx context.Context, tx *sql.Tx, sess *models.Session, state []byte, players []models.Player) error {
	res, err := tx.ExecContext(ctx, s.rebind(`
UPDATE sessions
SET game_id = ?, status = ?, version = ?, state = ?, updated_at = ?
WHERE id = ? AND version = ?
`), sess.GameID.String(), string(sess.Status), sess.Version+1, string(state), toMillis(sess.UpdatedAt), sess.ID, sess.Version)
	if err != nil {
		return fmt.Errorf("update session %s: %w", sess.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update session rows affected: %w", err)
	}
	if affected == 0 {
		var one int
		err := tx.QueryRowContext(ctx, s.rebind("SELECT 1 FROM sessions WHERE id = ?"), sess.ID).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return ErrConflict
	}

	upsert := s.rebind(`
INSERT INTO players (session_id, player_number, nickname, role, vote_history, joined_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (session_id, player_number) DO UPDATE SET
	nickname = excluded.nickname,
	role = excluded.role,
	vote_history = excluded.vote_history,
	updated_at = excluded.updated_at
`)
	for _, p := range players {
		var role sql.NullString
		if p.Role != nil {
			b, err := json.Marshal(p.Role)
			if err != nil {
				return fmt.Errorf("encode player %d role: %w", p.PlayerNumber, err)
			}
			role = sql.NullString{String: string(b), Valid: true}
		}
		votes, err := json.Marshal(p.VoteHistory)
		if err != nil {
			return fmt.Errorf("encode player %d votes: %w", p.PlayerNumber, err)
		}
		if _, err := tx.ExecContext(ctx, upsert,
			sess.ID, p.PlayerNumber, p.Nickname, role, string(votes), toMillis(p.JoinedAt), toMillis(p.UpdatedAt),
		); err != nil {
			return fmt.Errorf("upsert player %d: %w", p.PlayerNumber, err)
		}
	}
	return nil
}

// isUniqueViolation reports whether err is a primary key or unique
// constraint failure from either driver.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return false
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
