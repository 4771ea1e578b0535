package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/havenpaws/prospect-cli/internal/candidate"
	"github.com/havenpaws/prospect-cli/internal/contacts"
	"github.com/havenpaws/prospect-cli/internal/db"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

var (
	_ Store        = (*PostgresStore)(nil)
	_ BulkUpserter = (*PostgresStore)(nil)
)

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"upsert_organization": upsertOrganizationSQL,
	"upsert_contact":      upsertContactSQL,
	"org_key_page":        orgKeyPageSQL,
	"contact_emails":      contactEmailsSQL,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS organizations (
	id              TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name            TEXT NOT NULL,
	website         TEXT NOT NULL DEFAULT '',
	category        TEXT NOT NULL DEFAULT 'other',
	donation_potential_score INTEGER NOT NULL DEFAULT 1,
	address         TEXT NOT NULL DEFAULT '',
	city            TEXT NOT NULL DEFAULT '',
	state           TEXT NOT NULL DEFAULT '',
	postal_code     TEXT NOT NULL DEFAULT '',
	latitude        DOUBLE PRECISION,
	longitude       DOUBLE PRECISION,
	email           TEXT NOT NULL DEFAULT '',
	phone           TEXT NOT NULL DEFAULT '',
	notes           TEXT NOT NULL DEFAULT '',
	justification   TEXT NOT NULL DEFAULT '',
	additional_info TEXT NOT NULL DEFAULT '',
	source          TEXT NOT NULL DEFAULT 'seed',
	place_id        TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS contacts (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	org_id        TEXT NOT NULL REFERENCES organizations(id),
	full_name     TEXT NOT NULL DEFAULT '',
	title         TEXT NOT NULL DEFAULT '',
	email         TEXT NOT NULL,
	phone         TEXT NOT NULL DEFAULT '',
	confidence    TEXT NOT NULL DEFAULT 'low',
	justification TEXT NOT NULL DEFAULT '',
	source        TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_organizations_name_website ON organizations(name, website);
CREATE INDEX IF NOT EXISTS idx_organizations_score ON organizations(donation_potential_score);
CREATE INDEX IF NOT EXISTS idx_organizations_state ON organizations(state);
CREATE UNIQUE INDEX IF NOT EXISTS idx_contacts_org_email ON contacts(org_id, email);
CREATE INDEX IF NOT EXISTS idx_contacts_org_id ON contacts(org_id);
`

const upsertOrganizationSQL = `INSERT INTO organizations (id, name, website, category, donation_potential_score, address, city, state, postal_code, latitude, longitude, email, phone, notes, justification, additional_info, source, place_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
ON CONFLICT (name, website) DO UPDATE SET
	category = EXCLUDED.category,
	donation_potential_score = EXCLUDED.donation_potential_score,
	address = EXCLUDED.address,
	city = EXCLUDED.city,
	state = EXCLUDED.state,
	postal_code = EXCLUDED.postal_code,
	latitude = EXCLUDED.latitude,
	longitude = EXCLUDED.longitude,
	email = EXCLUDED.email,
	phone = EXCLUDED.phone,
	notes = EXCLUDED.notes,
	justification = EXCLUDED.justification,
	additional_info = EXCLUDED.additional_info,
	source = EXCLUDED.source,
	place_id = EXCLUDED.place_id,
	updated_at = EXCLUDED.updated_at
RETURNING id`

const upsertContactSQL = `INSERT INTO contacts (id, org_id, full_name, title, email, phone, confidence, justification, source, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (org_id, email) DO UPDATE SET
	full_name = EXCLUDED.full_name,
	title = EXCLUDED.title,
	phone = EXCLUDED.phone,
	confidence = EXCLUDED.confidence,
	justification = EXCLUDED.justification,
	source = EXCLUDED.source,
	updated_at = EXCLUDED.updated_at
RETURNING id`

const orgKeyPageSQL = `SELECT name, website, address, city, state, place_id FROM organizations ORDER BY id LIMIT $1 OFFSET $2`

const contactEmailsSQL = `SELECT email FROM contacts WHERE email != ''`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Capability() Capability {
	return Capability{Driver: "postgres", BulkUpsert: true}
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) UpsertOrganization(ctx context.Context, org candidate.Organization) (candidate.Organization, error) {
	if strings.TrimSpace(org.Name) == "" {
		return candidate.Organization{}, eris.New("postgres: organization name required")
	}
	now := time.Now().UTC()
	id := uuid.New().String()

	var storedID string
	err := s.pool.QueryRow(ctx, upsertOrganizationSQL,
		id, org.Name, org.Website, string(org.Category), org.Score,
		org.Address, org.City, org.State, org.PostalCode,
		org.Latitude, org.Longitude,
		org.Email, org.Phone, org.Notes, org.Justification, org.AdditionalInfo,
		string(org.Source), org.PlaceID, now, now,
	).Scan(&storedID)
	if err != nil {
		return candidate.Organization{}, eris.Wrapf(err, "postgres: upsert organization %s", org.Name)
	}

	org.ID = storedID
	return org, nil
}

func (s *PostgresStore) GetOrganization(ctx context.Context, id string) (*candidate.Organization, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+orgCols+` FROM organizations WHERE id = $1`, id,
	)
	org, err := scanOrganization(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get organization %s", id)
	}
	return org, nil
}

func (s *PostgresStore) ListOrganizations(ctx context.Context, filter OrgFilter) ([]candidate.Organization, error) {
	query := `SELECT ` + orgCols + ` FROM organizations WHERE true`
	var args []any
	argIdx := 1

	if len(filter.IDs) > 0 {
		query += fmt.Sprintf(` AND id = ANY($%d)`, argIdx)
		args = append(args, filter.IDs)
		argIdx++
	}
	if filter.MinScore > 0 {
		query += fmt.Sprintf(` AND donation_potential_score >= $%d`, argIdx)
		args = append(args, filter.MinScore)
		argIdx++
	}
	if filter.Category != "" {
		query += fmt.Sprintf(` AND category = $%d`, argIdx)
		args = append(args, filter.Category)
		argIdx++
	}
	if filter.State != "" {
		query += fmt.Sprintf(` AND UPPER(state) = UPPER($%d)`, argIdx)
		args = append(args, filter.State)
		argIdx++
	}
	if filter.Search != "" {
		query += fmt.Sprintf(` AND (name ILIKE $%d OR website ILIKE $%d)`, argIdx, argIdx+1)
		pattern := "%" + filter.Search + "%"
		args = append(args, pattern, pattern)
		argIdx += 2
	}
	query += ` ORDER BY donation_potential_score DESC, name ASC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list organizations")
	}
	defer rows.Close()

	var orgs []candidate.Organization
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan organization")
		}
		orgs = append(orgs, *org)
	}
	return orgs, eris.Wrap(rows.Err(), "postgres: list organizations iterate")
}

func (s *PostgresStore) DeleteOrganization(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM contacts WHERE org_id = $1`, id); err != nil {
		return eris.Wrapf(err, "postgres: delete contacts for organization %s", id)
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM organizations WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete organization %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("organization not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) ListOrganizationKeys(ctx context.Context) (map[string]bool, error) {
	keys := make(map[string]bool)
	for page := 0; page < maxKeyPages; page++ {
		n, err := s.orgKeyPage(ctx, page*keyPageSize, keys)
		if err != nil {
			return nil, err
		}
		if n < keyPageSize {
			break
		}
	}
	return keys, nil
}

func (s *PostgresStore) orgKeyPage(ctx context.Context, offset int, keys map[string]bool) (int, error) {
	rows, err := s.pool.Query(ctx, orgKeyPageSQL, keyPageSize, offset)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: list organization keys")
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		var o candidate.Organization
		if err := rows.Scan(&o.Name, &o.Website, &o.Address, &o.City, &o.State, &o.PlaceID); err != nil {
			return 0, eris.Wrap(err, "postgres: scan organization key")
		}
		keys[candidate.StableKey(o)] = true
		n++
	}
	return n, eris.Wrap(rows.Err(), "postgres: list organization keys iterate")
}

// orgBulkCols is the column order BulkUpsertOrganizations ships to COPY.
var orgBulkCols = []string{
	"id", "name", "website", "category", "donation_potential_score",
	"address", "city", "state", "postal_code", "latitude", "longitude",
	"email", "phone", "notes", "justification", "additional_info",
	"source", "place_id", "created_at", "updated_at",
}

// BulkUpsertOrganizations loads a batch through COPY and ON CONFLICT in one
// transaction. Nameless candidates are skipped; the batch must be unique on
// (name, website), which candidate.Dedupe guarantees.
func (s *PostgresStore) BulkUpsertOrganizations(ctx context.Context, orgs []candidate.Organization) (int64, error) {
	now := time.Now().UTC()
	rows := make([][]any, 0, len(orgs))
	for _, o := range orgs {
		if strings.TrimSpace(o.Name) == "" {
			continue
		}
		id := o.ID
		if id == "" {
			id = uuid.New().String()
		}
		rows = append(rows, []any{
			id, o.Name, o.Website, string(o.Category), o.Score,
			o.Address, o.City, o.State, o.PostalCode, o.Latitude, o.Longitude,
			o.Email, o.Phone, o.Notes, o.Justification, o.AdditionalInfo,
			string(o.Source), o.PlaceID, now, now,
		})
	}
	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "organizations",
		Columns:      orgBulkCols,
		ConflictKeys: []string{"name", "website"},
		UpdateCols: []string{
			"category", "donation_potential_score", "address", "city", "state",
			"postal_code", "latitude", "longitude", "email", "phone", "notes",
			"justification", "additional_info", "source", "place_id", "updated_at",
		},
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: bulk upsert organizations")
	}
	return n, nil
}

func (s *PostgresStore) UpsertContact(ctx context.Context, c contacts.Contact) (contacts.Contact, error) {
	if c.OrgID == "" {
		return contacts.Contact{}, eris.New("postgres: contact org id required")
	}
	email := strings.ToLower(strings.TrimSpace(c.Email))
	if email == "" {
		return contacts.Contact{}, eris.New("postgres: contact email required")
	}
	c.Email = email
	now := time.Now().UTC()
	id := uuid.New().String()

	var storedID string
	err := s.pool.QueryRow(ctx, upsertContactSQL,
		id, c.OrgID, c.FullName, c.Title, c.Email, c.Phone,
		string(c.Confidence), c.Justification, string(c.Source), now, now,
	).Scan(&storedID)
	if err != nil {
		return contacts.Contact{}, eris.Wrapf(err, "postgres: upsert contact %s", c.Email)
	}

	c.ID = storedID
	return c, nil
}

func (s *PostgresStore) ListContacts(ctx context.Context, filter ContactFilter) ([]contacts.Contact, error) {
	query := `SELECT id, org_id, full_name, title, email, phone, confidence, justification, source FROM contacts WHERE true`
	var args []any
	argIdx := 1

	if filter.OrgID != "" {
		query += fmt.Sprintf(` AND org_id = $%d`, argIdx)
		args = append(args, filter.OrgID)
		argIdx++
	}
	query += ` ORDER BY created_at DESC, id ASC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list contacts")
	}
	defer rows.Close()

	var out []contacts.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan contact")
		}
		out = append(out, *c)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list contacts iterate")
}

func (s *PostgresStore) ListContactEmails(ctx context.Context) (map[string]bool, error) {
	rows, err := s.pool.Query(ctx, contactEmailsSQL)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list contact emails")
	}
	defer rows.Close()

	emails := make(map[string]bool)
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, eris.Wrap(err, "postgres: scan contact email")
		}
		emails[strings.ToLower(email)] = true
	}
	return emails, eris.Wrap(rows.Err(), "postgres: list contact emails iterate")
}
