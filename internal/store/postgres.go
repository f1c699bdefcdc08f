package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-enricher/internal/db"
	"github.com/sells-group/lead-enricher/internal/model"
)

// PostgresStore implements Store on a pgx pool.
type PostgresStore struct {
	pool db.Pool
}

// PreparedStatements are prepared on every new pool connection.
var PreparedStatements = map[string]string{
	"get_lead":             `SELECT ` + leadColumns + ` FROM leads WHERE id = $1`,
	"get_lead_by_username": `SELECT ` + leadColumns + ` FROM leads WHERE username = $1`,
	"update_profile":       `UPDATE leads SET profile = $1, has_profile = $2, updated_at = $3 WHERE id = $4`,
	"update_reels":         `UPDATE leads SET reels = $1, er_avg = $2, has_reels = $3, updated_at = $4 WHERE id = $5`,
	"update_website":       `UPDATE leads SET website = $1, has_website = $2, updated_at = $3 WHERE id = $4`,
	"update_analysis":      `UPDATE leads SET ai_analysis = $1, ai_analysis_complete = $2, updated_at = $3 WHERE id = $4`,
}

// NewPostgres connects to Postgres and returns a store on the new pool.
func NewPostgres(ctx context.Context, connString string, cfg db.PoolConfig) (*PostgresStore, error) {
	pool, err := db.Connect(ctx, connString, cfg, PreparedStatements)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS leads (
	id                   TEXT PRIMARY KEY,
	username             TEXT NOT NULL UNIQUE,
	profile              JSONB,
	has_profile          BOOLEAN NOT NULL DEFAULT false,
	reels                JSONB,
	er_avg               DOUBLE PRECISION,
	has_reels            BOOLEAN NOT NULL DEFAULT false,
	website              JSONB,
	has_website          BOOLEAN NOT NULL DEFAULT false,
	ai_analysis          JSONB,
	ai_analysis_complete BOOLEAN NOT NULL DEFAULT false,
	created_at           TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at           TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	lead_id    TEXT NOT NULL REFERENCES leads(id) ON DELETE CASCADE,
	report     JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_runs_lead_created ON runs(lead_id, created_at DESC);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) EnsureLead(ctx context.Context, username string) (*model.Lead, error) {
	username = model.NormalizeUsername(username)
	if username == "" {
		return nil, eris.New("postgres: ensure lead: username is required")
	}
	now := time.Now().UTC()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO leads (id, username, created_at, updated_at) VALUES ($1, $2, $3, $4) ON CONFLICT (username) DO NOTHING`,
		uuid.New().String(), username, now, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: ensure lead %s", username)
	}
	return s.GetLeadByUsername(ctx, username)
}

func (s *PostgresStore) GetLead(ctx context.Context, id string) (*model.Lead, error) {
	return s.getLead(ctx, PreparedStatements["get_lead"], id)
}

func (s *PostgresStore) GetLeadByUsername(ctx context.Context, username string) (*model.Lead, error) {
	return s.getLead(ctx, PreparedStatements["get_lead_by_username"], model.NormalizeUsername(username))
}

func (s *PostgresStore) getLead(ctx context.Context, query, key string) (*model.Lead, error) {
	var row leadRow
	if err := row.scan(s.pool.QueryRow(ctx, query, key)); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("lead", key)
		}
		return nil, eris.Wrapf(err, "postgres: get lead %s", key)
	}
	return row.lead()
}

func (s *PostgresStore) ListLeads(ctx context.Context, limit int) ([]model.Lead, error) {
	if limit <= 0 {
		limit = defaultLeadLimit
	}
	rows, err := s.pool.Query(ctx, `SELECT `+leadColumns+` FROM leads ORDER BY updated_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list leads")
	}
	defer rows.Close()

	leads := []model.Lead{}
	for rows.Next() {
		var row leadRow
		if err := row.scan(rows); err != nil {
			return nil, eris.Wrap(err, "postgres: scan lead")
		}
		l, err := row.lead()
		if err != nil {
			return nil, err
		}
		leads = append(leads, *l)
	}
	return leads, eris.Wrap(rows.Err(), "postgres: list leads")
}

func (s *PostgresStore) UpdateProfile(ctx context.Context, id string, g model.ProfileGroup) error {
	profile, err := encodeJSON(g.Profile)
	if err != nil {
		return err
	}
	return s.update(ctx, id, "profile", PreparedStatements["update_profile"],
		profile, g.HasProfile, time.Now().UTC(), id)
}

func (s *PostgresStore) UpdateReels(ctx context.Context, id string, g model.ReelsGroup) error {
	reels, err := encodeReels(g)
	if err != nil {
		return err
	}
	return s.update(ctx, id, "reels", PreparedStatements["update_reels"],
		reels, g.EngagementRate, g.HasReels, time.Now().UTC(), id)
}

func (s *PostgresStore) UpdateWebsite(ctx context.Context, id string, g model.WebsiteGroup) error {
	website, err := encodeWebsite(g)
	if err != nil {
		return err
	}
	return s.update(ctx, id, "website", PreparedStatements["update_website"],
		website, g.HasWebsite, time.Now().UTC(), id)
}

func (s *PostgresStore) UpdateAnalysis(ctx context.Context, id string, g model.AnalysisGroup) error {
	analysis, err := encodeJSON(g.Analysis)
	if err != nil {
		return err
	}
	return s.update(ctx, id, "analysis", PreparedStatements["update_analysis"],
		analysis, g.Complete, time.Now().UTC(), id)
}

func (s *PostgresStore) update(ctx context.Context, id, group, query string, args ...any) error {
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return eris.Wrapf(err, "postgres: update %s of lead %s", group, id)
	}
	if tag.RowsAffected() == 0 {
		return notFound("lead", id)
	}
	return nil
}

func (s *PostgresStore) GetAnalysis(ctx context.Context, id string) (*model.Analysis, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT ai_analysis FROM leads WHERE id = $1`, id).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("lead", id)
		}
		return nil, eris.Wrapf(err, "postgres: get analysis %s", id)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	var a model.Analysis
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, eris.Wrapf(err, "postgres: decode analysis %s", id)
	}
	return &a, nil
}

func (s *PostgresStore) SaveRun(ctx context.Context, report *model.RunReport) (*model.Run, error) {
	if report.RunID == "" {
		report.RunID = uuid.New().String()
	}
	body, err := json.Marshal(report)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: encode run")
	}
	now := time.Now().UTC()
	_, err = s.pool.Exec(ctx,
		`INSERT INTO runs (id, lead_id, report, created_at) VALUES ($1, $2, $3, $4)`,
		report.RunID, report.LeadID, body, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert run %s", report.RunID)
	}
	return &model.Run{ID: report.RunID, LeadID: report.LeadID, Report: report, CreatedAt: now}, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, leadID string, limit int) ([]model.Run, error) {
	if limit <= 0 {
		limit = defaultRunLimit
	}
	runs, err := s.queryRuns(ctx,
		`SELECT id, lead_id, report, created_at FROM runs WHERE lead_id = $1 ORDER BY created_at DESC LIMIT $2`,
		leadID, limit,
	)
	return runs, eris.Wrapf(err, "postgres: list runs for %s", leadID)
}

func (s *PostgresStore) RecentRuns(ctx context.Context, since time.Time, limit int) ([]model.Run, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	runs, err := s.queryRuns(ctx,
		`SELECT id, lead_id, report, created_at FROM runs WHERE created_at >= $1 ORDER BY created_at DESC LIMIT $2`,
		since.UTC(), limit,
	)
	return runs, eris.Wrap(err, "postgres: recent runs")
}

func (s *PostgresStore) queryRuns(ctx context.Context, query string, args ...any) ([]model.Run, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []model.Run{}
	for rows.Next() {
		var id, lead string
		var report []byte
		var createdAt time.Time
		if err := rows.Scan(&id, &lead, &report, &createdAt); err != nil {
			return nil, eris.Wrap(err, "scan run")
		}
		run, err := decodeRun(id, lead, report, createdAt)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}
