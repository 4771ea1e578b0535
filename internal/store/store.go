// Package store persists discovered organizations and their outreach
// contacts. Two backends implement the same interface: SQLite for
// single-user CLI runs and Postgres for a shared deployment.
package store

import (
	"context"

	"github.com/havenpaws/prospect-cli/internal/candidate"
	"github.com/havenpaws/prospect-cli/internal/contacts"
)

// keyPageSize and maxKeyPages bound the stable-key scan. The cap keeps a
// misbehaving backend from pinning a discovery run on pagination.
const (
	keyPageSize = 1000
	maxKeyPages = 50
)

// OrgFilter narrows organization listings. Zero values mean "any".
type OrgFilter struct {
	IDs      []string `json:"ids,omitempty"`
	MinScore int      `json:"min_score,omitempty"`
	Category string   `json:"category,omitempty"`
	State    string   `json:"state,omitempty"`
	Search   string   `json:"search,omitempty"`
	Limit    int      `json:"limit,omitempty"`
	Offset   int      `json:"offset,omitempty"`
}

// ContactFilter narrows contact listings.
type ContactFilter struct {
	OrgID  string `json:"org_id,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// Capability reports what an open store session supports. Computed once
// when the backend opens and passed by value; callers check it instead of
// probing the schema or asserting concrete types.
type Capability struct {
	// Driver names the backing engine.
	Driver string `json:"driver"`
	// BulkUpsert is set when the backend loads organization batches in a
	// single COPY round trip (see BulkUpserter).
	BulkUpsert bool `json:"bulk_upsert"`
}

// BulkUpserter is the batch fast path advertised by Capability.BulkUpsert.
type BulkUpserter interface {
	BulkUpsertOrganizations(ctx context.Context, orgs []candidate.Organization) (int64, error)
}

// Store is the persistence surface for the discovery pipeline. Callers
// treat failures as degradations: a run continues with per-record issues
// rather than aborting when the store misbehaves.
type Store interface {
	// UpsertOrganization inserts or updates by the (name, website) natural
	// key and returns the stored row, id populated.
	UpsertOrganization(ctx context.Context, org candidate.Organization) (candidate.Organization, error)
	GetOrganization(ctx context.Context, id string) (*candidate.Organization, error)
	ListOrganizations(ctx context.Context, f OrgFilter) ([]candidate.Organization, error)
	DeleteOrganization(ctx context.Context, id string) error
	// ListOrganizationKeys returns the stable record key of every stored
	// organization, paginated internally and capped at maxKeyPages pages.
	ListOrganizationKeys(ctx context.Context) (map[string]bool, error)

	// UpsertContact inserts or updates by the (org id, email) natural key.
	UpsertContact(ctx context.Context, c contacts.Contact) (contacts.Contact, error)
	ListContacts(ctx context.Context, f ContactFilter) ([]contacts.Contact, error)
	// ListContactEmails returns every stored contact email, lowercased.
	ListContactEmails(ctx context.Context) (map[string]bool, error)

	// Migrate creates or upgrades the schema. Safe to run repeatedly.
	Migrate(ctx context.Context) error
	// Capability reports what this session supports.
	Capability() Capability
	Close() error
}
