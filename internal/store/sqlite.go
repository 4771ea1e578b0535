package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/havenpaws/prospect-cli/internal/candidate"
	"github.com/havenpaws/prospect-cli/internal/contacts"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS organizations (
	id              TEXT PRIMARY KEY,
	name            TEXT NOT NULL,
	website         TEXT NOT NULL DEFAULT '',
	category        TEXT NOT NULL DEFAULT 'other',
	donation_potential_score INTEGER NOT NULL DEFAULT 1,
	address         TEXT NOT NULL DEFAULT '',
	city            TEXT NOT NULL DEFAULT '',
	state           TEXT NOT NULL DEFAULT '',
	postal_code     TEXT NOT NULL DEFAULT '',
	latitude        REAL,
	longitude       REAL,
	email           TEXT NOT NULL DEFAULT '',
	phone           TEXT NOT NULL DEFAULT '',
	notes           TEXT NOT NULL DEFAULT '',
	justification   TEXT NOT NULL DEFAULT '',
	additional_info TEXT NOT NULL DEFAULT '',
	source          TEXT NOT NULL DEFAULT 'seed',
	place_id        TEXT NOT NULL DEFAULT '',
	created_at      DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS contacts (
	id            TEXT PRIMARY KEY,
	org_id        TEXT NOT NULL REFERENCES organizations(id),
	full_name     TEXT NOT NULL DEFAULT '',
	title         TEXT NOT NULL DEFAULT '',
	email         TEXT NOT NULL,
	phone         TEXT NOT NULL DEFAULT '',
	confidence    TEXT NOT NULL DEFAULT 'low',
	justification TEXT NOT NULL DEFAULT '',
	source        TEXT NOT NULL DEFAULT '',
	created_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_organizations_name_website ON organizations(name, website);
CREATE INDEX IF NOT EXISTS idx_organizations_score ON organizations(donation_potential_score);
CREATE INDEX IF NOT EXISTS idx_organizations_state ON organizations(state);
CREATE UNIQUE INDEX IF NOT EXISTS idx_contacts_org_email ON contacts(org_id, email);
CREATE INDEX IF NOT EXISTS idx_contacts_org_id ON contacts(org_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Capability() Capability {
	return Capability{Driver: "sqlite"}
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// orgCols is the scan order shared by every organization SELECT.
const orgCols = `id, name, website, category, donation_potential_score, address, city, state, postal_code,
	latitude, longitude, email, phone, notes, justification, additional_info, source, place_id`

func (s *SQLiteStore) UpsertOrganization(ctx context.Context, org candidate.Organization) (candidate.Organization, error) {
	if strings.TrimSpace(org.Name) == "" {
		return candidate.Organization{}, eris.New("sqlite: organization name required")
	}
	now := time.Now().UTC()

	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM organizations WHERE name = ? AND website = ?`,
		org.Name, org.Website,
	).Scan(&id)
	switch {
	case err == sql.ErrNoRows:
		id = uuid.New().String()
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO organizations (`+orgCols+`, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, org.Name, org.Website, string(org.Category), org.Score,
			org.Address, org.City, org.State, org.PostalCode,
			nullFloat(org.Latitude), nullFloat(org.Longitude),
			org.Email, org.Phone, org.Notes, org.Justification, org.AdditionalInfo,
			string(org.Source), org.PlaceID, now, now,
		)
		if err != nil {
			return candidate.Organization{}, eris.Wrapf(err, "sqlite: insert organization %s", org.Name)
		}
	case err != nil:
		return candidate.Organization{}, eris.Wrap(err, "sqlite: lookup organization")
	default:
		_, err = s.db.ExecContext(ctx,
			`UPDATE organizations SET category = ?, donation_potential_score = ?, address = ?, city = ?,
			 state = ?, postal_code = ?, latitude = ?, longitude = ?, email = ?, phone = ?, notes = ?,
			 justification = ?, additional_info = ?, source = ?, place_id = ?, updated_at = ? WHERE id = ?`,
			string(org.Category), org.Score, org.Address, org.City,
			org.State, org.PostalCode, nullFloat(org.Latitude), nullFloat(org.Longitude),
			org.Email, org.Phone, org.Notes, org.Justification, org.AdditionalInfo,
			string(org.Source), org.PlaceID, now, id,
		)
		if err != nil {
			return candidate.Organization{}, eris.Wrapf(err, "sqlite: update organization %s", id)
		}
	}

	org.ID = id
	return org, nil
}

func (s *SQLiteStore) GetOrganization(ctx context.Context, id string) (*candidate.Organization, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+orgCols+` FROM organizations WHERE id = ?`, id,
	)
	org, err := scanOrganization(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get organization %s", id)
	}
	return org, nil
}

func (s *SQLiteStore) ListOrganizations(ctx context.Context, filter OrgFilter) ([]candidate.Organization, error) {
	query := `SELECT ` + orgCols + ` FROM organizations WHERE 1=1`
	var args []any

	if len(filter.IDs) > 0 {
		query += ` AND id IN (?` + strings.Repeat(", ?", len(filter.IDs)-1) + `)`
		for _, id := range filter.IDs {
			args = append(args, id)
		}
	}
	if filter.MinScore > 0 {
		query += ` AND donation_potential_score >= ?`
		args = append(args, filter.MinScore)
	}
	if filter.Category != "" {
		query += ` AND category = ?`
		args = append(args, filter.Category)
	}
	if filter.State != "" {
		query += ` AND UPPER(state) = UPPER(?)`
		args = append(args, filter.State)
	}
	if filter.Search != "" {
		query += ` AND (name LIKE ? OR website LIKE ?)`
		pattern := "%" + filter.Search + "%"
		args = append(args, pattern, pattern)
	}
	query += ` ORDER BY donation_potential_score DESC, name ASC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list organizations")
	}
	defer rows.Close()

	var orgs []candidate.Organization
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan organization")
		}
		orgs = append(orgs, *org)
	}
	return orgs, eris.Wrap(rows.Err(), "sqlite: list organizations iterate")
}

func (s *SQLiteStore) DeleteOrganization(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM contacts WHERE org_id = ?`, id); err != nil {
		return eris.Wrapf(err, "sqlite: delete contacts for organization %s", id)
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM organizations WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete organization %s", id)
	}
	return checkRowsAffected(res, "organization", id)
}

func (s *SQLiteStore) ListOrganizationKeys(ctx context.Context) (map[string]bool, error) {
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

func (s *SQLiteStore) orgKeyPage(ctx context.Context, offset int, keys map[string]bool) (int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, website, address, city, state, place_id FROM organizations ORDER BY id LIMIT ? OFFSET ?`,
		keyPageSize, offset,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: list organization keys")
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		var o candidate.Organization
		if err := rows.Scan(&o.Name, &o.Website, &o.Address, &o.City, &o.State, &o.PlaceID); err != nil {
			return 0, eris.Wrap(err, "sqlite: scan organization key")
		}
		keys[candidate.StableKey(o)] = true
		n++
	}
	return n, eris.Wrap(rows.Err(), "sqlite: list organization keys iterate")
}

func (s *SQLiteStore) UpsertContact(ctx context.Context, c contacts.Contact) (contacts.Contact, error) {
	if c.OrgID == "" {
		return contacts.Contact{}, eris.New("sqlite: contact org id required")
	}
	email := strings.ToLower(strings.TrimSpace(c.Email))
	if email == "" {
		return contacts.Contact{}, eris.New("sqlite: contact email required")
	}
	c.Email = email
	now := time.Now().UTC()

	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM contacts WHERE org_id = ? AND email = ?`,
		c.OrgID, c.Email,
	).Scan(&id)
	switch {
	case err == sql.ErrNoRows:
		id = uuid.New().String()
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO contacts (id, org_id, full_name, title, email, phone, confidence, justification, source, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, c.OrgID, c.FullName, c.Title, c.Email, c.Phone,
			string(c.Confidence), c.Justification, string(c.Source), now, now,
		)
		if err != nil {
			return contacts.Contact{}, eris.Wrapf(err, "sqlite: insert contact %s", c.Email)
		}
	case err != nil:
		return contacts.Contact{}, eris.Wrap(err, "sqlite: lookup contact")
	default:
		_, err = s.db.ExecContext(ctx,
			`UPDATE contacts SET full_name = ?, title = ?, phone = ?, confidence = ?, justification = ?,
			 source = ?, updated_at = ? WHERE id = ?`,
			c.FullName, c.Title, c.Phone, string(c.Confidence), c.Justification,
			string(c.Source), now, id,
		)
		if err != nil {
			return contacts.Contact{}, eris.Wrapf(err, "sqlite: update contact %s", id)
		}
	}

	c.ID = id
	return c, nil
}

func (s *SQLiteStore) ListContacts(ctx context.Context, filter ContactFilter) ([]contacts.Contact, error) {
	query := `SELECT id, org_id, full_name, title, email, phone, confidence, justification, source FROM contacts WHERE 1=1`
	var args []any

	if filter.OrgID != "" {
		query += ` AND org_id = ?`
		args = append(args, filter.OrgID)
	}
	query += ` ORDER BY created_at DESC, id ASC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list contacts")
	}
	defer rows.Close()

	var out []contacts.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan contact")
		}
		out = append(out, *c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list contacts iterate")
}

func (s *SQLiteStore) ListContactEmails(ctx context.Context) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT email FROM contacts WHERE email != ''`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list contact emails")
	}
	defer rows.Close()

	emails := make(map[string]bool)
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan contact email")
		}
		emails[strings.ToLower(email)] = true
	}
	return emails, eris.Wrap(rows.Err(), "sqlite: list contact emails iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanOrganization(row scannable) (*candidate.Organization, error) {
	var (
		o        candidate.Organization
		category string
		source   string
		lat, lng sql.NullFloat64
	)
	err := row.Scan(
		&o.ID, &o.Name, &o.Website, &category, &o.Score,
		&o.Address, &o.City, &o.State, &o.PostalCode,
		&lat, &lng, &o.Email, &o.Phone, &o.Notes, &o.Justification, &o.AdditionalInfo,
		&source, &o.PlaceID,
	)
	if err != nil {
		return nil, err
	}
	o.Category = candidate.Category(category)
	o.Source = candidate.Source(source)
	if lat.Valid {
		o.Latitude = &lat.Float64
	}
	if lng.Valid {
		o.Longitude = &lng.Float64
	}
	return &o, nil
}

func scanContact(row scannable) (*contacts.Contact, error) {
	var (
		c          contacts.Contact
		confidence string
		source     string
	)
	err := row.Scan(&c.ID, &c.OrgID, &c.FullName, &c.Title, &c.Email, &c.Phone, &confidence, &c.Justification, &source)
	if err != nil {
		return nil, err
	}
	c.Confidence = contacts.Confidence(confidence)
	c.Source = contacts.Source(source)
	return &c, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
