package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/lead-enricher/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// Pragmas are per connection.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS leads (
	id                   TEXT PRIMARY KEY,
	username             TEXT NOT NULL UNIQUE,
	profile              TEXT,
	has_profile          BOOLEAN NOT NULL DEFAULT 0,
	reels                TEXT,
	er_avg               REAL,
	has_reels            BOOLEAN NOT NULL DEFAULT 0,
	website              TEXT,
	has_website          BOOLEAN NOT NULL DEFAULT 0,
	ai_analysis          TEXT,
	ai_analysis_complete BOOLEAN NOT NULL DEFAULT 0,
	created_at           DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at           DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	lead_id    TEXT NOT NULL REFERENCES leads(id) ON DELETE CASCADE,
	report     TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_runs_lead_created ON runs(lead_id, created_at);
`

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) EnsureLead(ctx context.Context, username string) (*model.Lead, error) {
	username = model.NormalizeUsername(username)
	if username == "" {
		return nil, eris.New("sqlite: ensure lead: username is required")
	}
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO leads (id, username, created_at, updated_at) VALUES (?, ?, ?, ?) ON CONFLICT (username) DO NOTHING`,
		uuid.New().String(), username, now, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: ensure lead %s", username)
	}
	return s.GetLeadByUsername(ctx, username)
}

func (s *SQLiteStore) GetLead(ctx context.Context, id string) (*model.Lead, error) {
	return s.getLead(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = ?`, id)
}

func (s *SQLiteStore) GetLeadByUsername(ctx context.Context, username string) (*model.Lead, error) {
	return s.getLead(ctx, `SELECT `+leadColumns+` FROM leads WHERE username = ?`, model.NormalizeUsername(username))
}

func (s *SQLiteStore) getLead(ctx context.Context, query, key string) (*model.Lead, error) {
	var row leadRow
	if err := row.scan(s.db.QueryRowContext(ctx, query, key)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("lead", key)
		}
		return nil, eris.Wrapf(err, "sqlite: get lead %s", key)
	}
	return row.lead()
}

func (s *SQLiteStore) ListLeads(ctx context.Context, limit int) ([]model.Lead, error) {
	if limit <= 0 {
		limit = defaultLeadLimit
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+leadColumns+` FROM leads ORDER BY updated_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list leads")
	}
	defer rows.Close() //nolint:errcheck

	leads := []model.Lead{}
	for rows.Next() {
		var row leadRow
		if err := row.scan(rows); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan lead")
		}
		l, err := row.lead()
		if err != nil {
			return nil, err
		}
		leads = append(leads, *l)
	}
	return leads, eris.Wrap(rows.Err(), "sqlite: list leads")
}

func (s *SQLiteStore) UpdateProfile(ctx context.Context, id string, g model.ProfileGroup) error {
	profile, err := encodeJSON(g.Profile)
	if err != nil {
		return err
	}
	return s.update(ctx, id, "profile",
		`UPDATE leads SET profile = ?, has_profile = ?, updated_at = ? WHERE id = ?`,
		text(profile), g.HasProfile, time.Now().UTC(), id)
}

func (s *SQLiteStore) UpdateReels(ctx context.Context, id string, g model.ReelsGroup) error {
	reels, err := encodeReels(g)
	if err != nil {
		return err
	}
	return s.update(ctx, id, "reels",
		`UPDATE leads SET reels = ?, er_avg = ?, has_reels = ?, updated_at = ? WHERE id = ?`,
		text(reels), g.EngagementRate, g.HasReels, time.Now().UTC(), id)
}

func (s *SQLiteStore) UpdateWebsite(ctx context.Context, id string, g model.WebsiteGroup) error {
	website, err := encodeWebsite(g)
	if err != nil {
		return err
	}
	return s.update(ctx, id, "website",
		`UPDATE leads SET website = ?, has_website = ?, updated_at = ? WHERE id = ?`,
		text(website), g.HasWebsite, time.Now().UTC(), id)
}

func (s *SQLiteStore) UpdateAnalysis(ctx context.Context, id string, g model.AnalysisGroup) error {
	analysis, err := encodeJSON(g.Analysis)
	if err != nil {
		return err
	}
	return s.update(ctx, id, "analysis",
		`UPDATE leads SET ai_analysis = ?, ai_analysis_complete = ?, updated_at = ? WHERE id = ?`,
		text(analysis), g.Complete, time.Now().UTC(), id)
}

func (s *SQLiteStore) update(ctx context.Context, id, group, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update %s of lead %s", group, id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return notFound("lead", id)
	}
	return nil
}

func (s *SQLiteStore) GetAnalysis(ctx context.Context, id string) (*model.Analysis, error) {
	var raw sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT ai_analysis FROM leads WHERE id = ?`, id).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("lead", id)
		}
		return nil, eris.Wrapf(err, "sqlite: get analysis %s", id)
	}
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	var a model.Analysis
	if err := json.Unmarshal([]byte(raw.String), &a); err != nil {
		return nil, eris.Wrapf(err, "sqlite: decode analysis %s", id)
	}
	return &a, nil
}

func (s *SQLiteStore) SaveRun(ctx context.Context, report *model.RunReport) (*model.Run, error) {
	if report.RunID == "" {
		report.RunID = uuid.New().String()
	}
	body, err := json.Marshal(report)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: encode run")
	}
	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, lead_id, report, created_at) VALUES (?, ?, ?, ?)`,
		report.RunID, report.LeadID, string(body), now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert run %s", report.RunID)
	}
	return &model.Run{ID: report.RunID, LeadID: report.LeadID, Report: report, CreatedAt: now}, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, leadID string, limit int) ([]model.Run, error) {
	if limit <= 0 {
		limit = defaultRunLimit
	}
	runs, err := s.queryRuns(ctx,
		`SELECT id, lead_id, report, created_at FROM runs WHERE lead_id = ? ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		leadID, limit,
	)
	return runs, eris.Wrapf(err, "sqlite: list runs for %s", leadID)
}

func (s *SQLiteStore) RecentRuns(ctx context.Context, since time.Time, limit int) ([]model.Run, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	runs, err := s.queryRuns(ctx,
		`SELECT id, lead_id, report, created_at FROM runs WHERE created_at >= ? ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		since.UTC(), limit,
	)
	return runs, eris.Wrap(err, "sqlite: recent runs")
}

func (s *SQLiteStore) queryRuns(ctx context.Context, query string, args ...any) ([]model.Run, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	runs := []model.Run{}
	for rows.Next() {
		var id, lead, report string
		var createdAt time.Time
		if err := rows.Scan(&id, &lead, &report, &createdAt); err != nil {
			return nil, eris.Wrap(err, "scan run")
		}
		run, err := decodeRun(id, lead, []byte(report), createdAt)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// text converts encoded JSON into a TEXT parameter, nil becoming NULL.
func text(b []byte) any {
	if b == nil {
		return nil
	}
	return string(b)
}
