package jobs

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// PostgresStore keeps profiles and applications in Postgres.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// ConnectPostgresStore creates a pgx pool and runs schema migrations.
func ConnectPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	if databaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	config.MaxConns = 10
	config.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("postgres store connected", slog.String("addr", config.ConnConfig.Host))
	return s, nil
}

// Close closes the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) runMigrations(ctx context.Context) error {
	entries, err := schemaFS.ReadDir("schema")
	if err != nil {
		return fmt.Errorf("read schema dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		data, err := schemaFS.ReadFile("schema/" + entry.Name())
		if err != nil {
			return fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		if _, err := s.pool.Exec(ctx, string(data)); err != nil {
			return fmt.Errorf("execute %s: %w", entry.Name(), err)
		}
		slog.Debug("migration applied", slog.String("file", entry.Name()))
	}
	return nil
}

// GetProfile loads the profile saved for userID.
func (s *PostgresStore) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM profiles WHERE user_id = $1`, userID).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return decodeProfile(data)
}

// SaveProfile validates and upserts the profile for userID.
func (s *PostgresStore) SaveProfile(ctx context.Context, userID string, p *Profile) error {
	data, err := encodeProfile(userID, p)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO profiles (user_id, data, updated_at) VALUES ($1, $2, now())
		 ON CONFLICT (user_id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		userID, data)
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

// AddApplication records a new application and returns its id.
func (s *PostgresStore) AddApplication(ctx context.Context, a Application) (int64, error) {
	if err := prepareApplication(&a); err != nil {
		return 0, err
	}
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO applications (user_id, run_id, title, company, location, url, status, score, label, notes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12) RETURNING id`,
		a.UserID, a.RunID, a.Title, a.Company, a.Location, a.URL, string(a.Status),
		a.Score, a.Label, a.Notes, a.CreatedAt, a.UpdatedAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("add application: %w", err)
	}
	return id, nil
}

// ListApplications returns the user's applications, newest first, and the total.
func (s *PostgresStore) ListApplications(ctx context.Context, f ApplicationFilter) ([]Application, int, error) {
	where := `WHERE user_id = $1`
	args := []any{f.UserID}
	if f.Status != "" {
		st, err := ParseStatus(f.Status)
		if err != nil {
			return nil, 0, fmt.Errorf("list applications: %w", err)
		}
		where += ` AND status = $2`
		args = append(args, string(st))
	}

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM applications `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("list applications: count: %w", err)
	}

	limitArg := fmt.Sprintf("$%d", len(args)+1)
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, COALESCE(run_id, ''), title, COALESCE(company, ''), COALESCE(location, ''),
		        COALESCE(url, ''), status, score, COALESCE(label, ''), COALESCE(notes, ''), created_at, updated_at
		 FROM applications `+where+` ORDER BY updated_at DESC, id DESC LIMIT `+limitArg,
		append(args, clampLimit(f.Limit))...)
	if err != nil {
		return nil, 0, fmt.Errorf("list applications: query: %w", err)
	}
	defer rows.Close()

	apps := []Application{}
	for rows.Next() {
		var a Application
		var status string
		if err := rows.Scan(&a.ID, &a.UserID, &a.RunID, &a.Title, &a.Company, &a.Location, &a.URL,
			&status, &a.Score, &a.Label, &a.Notes, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("list applications: scan: %w", err)
		}
		a.Status = ApplicationStatus(status)
		apps = append(apps, a)
	}
	return apps, total, rows.Err()
}

// UpdateApplication changes status and/or notes. Empty fields are left as they are.
func (s *PostgresStore) UpdateApplication(ctx context.Context, u ApplicationUpdate) error {
	if err := prepareUpdate(&u); err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339)
	tag, err := s.pool.Exec(ctx,
		`UPDATE applications
		 SET status = COALESCE(NULLIF($1, ''), status),
		     notes = COALESCE(NULLIF($2, ''), notes),
		     updated_at = $3
		 WHERE id = $4 AND user_id = $5`,
		u.Status, u.Notes, now, u.ID, u.UserID)
	if err != nil {
		return fmt.Errorf("update application: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrApplicationNotFound
	}
	return nil
}
