package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps profiles and applications in a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// DefaultSQLitePath is ~/.go_apply/apply.db.
func DefaultSQLitePath() string {
	return filepath.Join(os.Getenv("HOME"), ".go_apply", "apply.db")
}

// OpenSQLiteStore opens (or creates) the database at path; "" means DefaultSQLitePath.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		path = DefaultSQLitePath()
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("sqlite store: mkdir %s: %w", dir, err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: open db: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite: single writer
	if err := initSQLiteSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite store: init schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func initSQLiteSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS profiles (
		user_id    TEXT PRIMARY KEY,
		data       TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS applications (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id    TEXT NOT NULL,
		run_id     TEXT,
		title      TEXT NOT NULL,
		company    TEXT,
		location   TEXT,
		url        TEXT,
		status     TEXT NOT NULL DEFAULT 'saved',
		score      REAL NOT NULL DEFAULT 0,
		label      TEXT,
		notes      TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`)
	return err
}

// Close closes the database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// GetProfile loads the profile saved for userID.
func (s *SQLiteStore) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM profiles WHERE user_id = ?`, userID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return decodeProfile([]byte(data))
}

// SaveProfile validates and upserts the profile for userID.
func (s *SQLiteStore) SaveProfile(ctx context.Context, userID string, p *Profile) error {
	data, err := encodeProfile(userID, p)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339)
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO profiles (user_id, data, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		userID, string(data), now)
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

// AddApplication records a new application and returns its id.
func (s *SQLiteStore) AddApplication(ctx context.Context, a Application) (int64, error) {
	if err := prepareApplication(&a); err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO applications (user_id, run_id, title, company, location, url, status, score, label, notes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.UserID, a.RunID, a.Title, a.Company, a.Location, a.URL, string(a.Status),
		a.Score, a.Label, a.Notes, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return 0, fmt.Errorf("add application: insert: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("add application: last id: %w", err)
	}
	return id, nil
}

// ListApplications returns the user's applications, newest first, and the total
// number matching the filter.
func (s *SQLiteStore) ListApplications(ctx context.Context, f ApplicationFilter) ([]Application, int, error) {
	where := `WHERE user_id = ?`
	args := []any{f.UserID}
	if f.Status != "" {
		st, err := ParseStatus(f.Status)
		if err != nil {
			return nil, 0, fmt.Errorf("list applications: %w", err)
		}
		where += ` AND status = ?`
		args = append(args, string(st))
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM applications `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("list applications: count: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, run_id, title, company, location, url, status, score, label, notes, created_at, updated_at
		 FROM applications `+where+` ORDER BY updated_at DESC, id DESC LIMIT ?`,
		append(args, clampLimit(f.Limit))...)
	if err != nil {
		return nil, 0, fmt.Errorf("list applications: query: %w", err)
	}
	defer rows.Close()

	apps := []Application{}
	for rows.Next() {
		var a Application
		var runID, company, location, url, label, notes sql.NullString
		var status string
		if err := rows.Scan(&a.ID, &a.UserID, &runID, &a.Title, &company, &location, &url,
			&status, &a.Score, &label, &notes, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("list applications: scan: %w", err)
		}
		a.RunID = runID.String
		a.Company = company.String
		a.Location = location.String
		a.URL = url.String
		a.Status = ApplicationStatus(status)
		a.Label = label.String
		a.Notes = notes.String
		apps = append(apps, a)
	}
	return apps, total, rows.Err()
}

// UpdateApplication changes status and/or notes. Empty fields are left as they are.
func (s *SQLiteStore) UpdateApplication(ctx context.Context, u ApplicationUpdate) error {
	if err := prepareUpdate(&u); err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.ExecContext(ctx,
		`UPDATE applications
		 SET status = COALESCE(NULLIF(?, ''), status),
		     notes = COALESCE(NULLIF(?, ''), notes),
		     updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		u.Status, u.Notes, now, u.ID, u.UserID)
	if err != nil {
		return fmt.Errorf("update application: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrApplicationNotFound
	}
	return nil
}
