// Package archive keeps converted games in a SQLite database so they can be
// listed and replayed later.
package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"nanlog/internal/logging"
	"nanlog/internal/nan"
)

var (
	// ErrNotFound is returned when no game matches an ID.
	ErrNotFound = errors.New("game not found")
	// ErrAmbiguous is returned when an ID prefix matches several games.
	ErrAmbiguous = errors.New("game id prefix is ambiguous")
)

// Game is one archived game.
type Game struct {
	ID          string
	Name        string
	Source      string
	NAN         string
	Turns       int
	CorpScore   int
	RunnerScore int
	CreatedAt   time.Time

	// Records is only filled by Load.
	Records []nan.TurnRecord
}

// Store is a SQLite-backed game archive.
type Store struct {
	db    *sql.DB
	mu    sync.Mutex
	path  string
	now   func() time.Time
	newID func() string
}

// Open opens or creates the archive at path.
func Open(path string) (*Store, error) {
	timer := logging.StartTimer(logging.CategoryArchive, "archive open")
	defer timer.Stop()

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.ArchiveDebug("failed to set busy_timeout: %v", err)
	}

	s := &Store{db: db, path: path, now: time.Now, newID: uuid.NewString}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	logging.ArchiveDebug("opened archive at %s", path)
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS games (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		source TEXT NOT NULL DEFAULT '',
		nan TEXT NOT NULL,
		turns INTEGER NOT NULL,
		corp_score INTEGER NOT NULL,
		runner_score INTEGER NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS turns (
		game_id TEXT NOT NULL REFERENCES games(id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		player TEXT NOT NULL,
		turn INTEGER NOT NULL,
		corp_score INTEGER,
		runner_score INTEGER,
		line TEXT NOT NULL,
		PRIMARY KEY (game_id, seq)
	);
	CREATE INDEX IF NOT EXISTS idx_games_created ON games(created_at);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create archive schema: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Save parses text and stores it with one row per turn. Malformed lines
// are skipped and returned alongside the saved game.
func (s *Store) Save(ctx context.Context, name, source, text string) (*Game, []error, error) {
	records, lineErrs := nan.ParseText(text)

	g := &Game{
		ID:        s.newID(),
		Name:      name,
		Source:    source,
		NAN:       text,
		Turns:     len(records),
		CreatedAt: s.now().UTC().Truncate(time.Second),
		Records:   records,
	}
	g.CorpScore, g.RunnerScore = finalScore(records)

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO games (id, name, source, nan, turns, corp_score, runner_score, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.Name, g.Source, g.NAN, g.Turns, g.CorpScore, g.RunnerScore, g.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to insert game: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO turns (game_id, seq, player, turn, corp_score, runner_score, line)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to prepare turn insert: %w", err)
	}
	defer stmt.Close()

	for i, rec := range records {
		var corp, runner sql.NullInt64
		if rec.Score != nil {
			corp = sql.NullInt64{Int64: int64(rec.Score.Corp), Valid: true}
			runner = sql.NullInt64{Int64: int64(rec.Score.Runner), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, g.ID, i, string(rec.Player), rec.Turn, corp, runner, rec.String()); err != nil {
			return nil, nil, fmt.Errorf("failed to insert turn %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit game: %w", err)
	}
	logging.Archive("archived %s as %s (%d turns, %d malformed lines)", name, g.ID, g.Turns, len(lineErrs))
	return g, lineErrs, nil
}

// List returns every archived game, oldest first, without records.
func (s *Store) List(ctx context.Context) ([]Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, source, nan, turns, corp_score, runner_score, created_at
		 FROM games ORDER BY created_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	defer rows.Close()

	var games []Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		games = append(games, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	return games, nil
}

// Load fetches one game with its turn records. id may be a unique prefix.
func (s *Store) Load(ctx context.Context, id string) (*Game, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, source, nan, turns, corp_score, runner_score, created_at
		 FROM games WHERE id = ? OR substr(id, 1, length(?)) = ?
		 ORDER BY id = ? DESC LIMIT 2`, id, id, id, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load game: %w", err)
	}
	var matches []*Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		matches = append(matches, g)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load game: %w", err)
	}

	switch {
	case len(matches) == 0:
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	case len(matches) > 1:
		exact := false
		for _, m := range matches {
			if m.ID == id {
				matches, exact = []*Game{m}, true
				break
			}
		}
		if !exact {
			return nil, fmt.Errorf("%s: %w", id, ErrAmbiguous)
		}
	}

	g := matches[0]
	records, err := s.loadTurns(ctx, g.ID)
	if err != nil {
		return nil, err
	}
	g.Records = records
	return g, nil
}

func (s *Store) loadTurns(ctx context.Context, gameID string) ([]nan.TurnRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT line FROM turns WHERE game_id = ? ORDER BY seq`, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to load turns: %w", err)
	}
	defer rows.Close()

	var records []nan.TurnRecord
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		rec, err := nan.ParseLine(line)
		if err != nil {
			return nil, fmt.Errorf("corrupt turn in game %s: %w", gameID, err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Delete removes a game and its turns.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM turns WHERE game_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete turns: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM games WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete game: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return tx.Commit()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanGame(row scanner) (*Game, error) {
	var (
		g       Game
		created string
	)
	if err := row.Scan(&g.ID, &g.Name, &g.Source, &g.NAN, &g.Turns, &g.CorpScore, &g.RunnerScore, &created); err != nil {
		return nil, fmt.Errorf("failed to scan game: %w", err)
	}
	t, err := time.Parse(time.RFC3339, created)
	if err != nil {
		return nil, fmt.Errorf("bad created_at %q: %w", created, err)
	}
	g.CreatedAt = t
	return &g, nil
}

// finalScore is the last checkpoint seen, which is the score at the start
// of the final turn.
func finalScore(records []nan.TurnRecord) (corp, runner int) {
	for _, rec := range records {
		if rec.Score != nil {
			corp, runner = rec.Score.Corp, rec.Score.Runner
		}
	}
	return corp, runner
}
