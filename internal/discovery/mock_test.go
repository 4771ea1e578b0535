package discovery

import (
	"context"
	"fmt"
	"sync"

	"github.com/havenpaws/prospect-cli/internal/candidate"
	"github.com/havenpaws/prospect-cli/internal/contacts"
	"github.com/havenpaws/prospect-cli/internal/source"
	"github.com/havenpaws/prospect-cli/internal/store"
	"github.com/havenpaws/prospect-cli/pkg/geocode"
)

// mockStore records upserts and answers reads through overridable funcs.
// Unset funcs behave like an empty, healthy store.
type mockStore struct {
	mu                sync.Mutex
	upsertOrgFunc     func(ctx context.Context, org candidate.Organization) (candidate.Organization, error)
	upsertContactFunc func(ctx context.Context, c contacts.Contact) (contacts.Contact, error)
	orgKeysFunc       func(ctx context.Context) (map[string]bool, error)
	contactEmailsFunc func(ctx context.Context) (map[string]bool, error)

	orgs     []candidate.Organization
	contacts []contacts.Contact
}

var _ store.Store = (*mockStore)(nil)

func (m *mockStore) UpsertOrganization(ctx context.Context, org candidate.Organization) (candidate.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertOrgFunc != nil {
		row, err := m.upsertOrgFunc(ctx, org)
		if err != nil {
			return candidate.Organization{}, err
		}
		m.orgs = append(m.orgs, row)
		return row, nil
	}
	row := org
	row.ID = fmt.Sprintf("org-%d", len(m.orgs)+1)
	m.orgs = append(m.orgs, row)
	return row, nil
}

func (m *mockStore) GetOrganization(context.Context, string) (*candidate.Organization, error) {
	return nil, nil
}

func (m *mockStore) ListOrganizations(context.Context, store.OrgFilter) ([]candidate.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]candidate.Organization(nil), m.orgs...), nil
}

func (m *mockStore) DeleteOrganization(context.Context, string) error { return nil }

func (m *mockStore) ListOrganizationKeys(ctx context.Context) (map[string]bool, error) {
	if m.orgKeysFunc != nil {
		return m.orgKeysFunc(ctx)
	}
	return map[string]bool{}, nil
}

func (m *mockStore) UpsertContact(ctx context.Context, c contacts.Contact) (contacts.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertContactFunc != nil {
		row, err := m.upsertContactFunc(ctx, c)
		if err != nil {
			return contacts.Contact{}, err
		}
		m.contacts = append(m.contacts, row)
		return row, nil
	}
	row := c
	row.ID = fmt.Sprintf("contact-%d", len(m.contacts)+1)
	m.contacts = append(m.contacts, row)
	return row, nil
}

func (m *mockStore) ListContacts(context.Context, store.ContactFilter) ([]contacts.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]contacts.Contact(nil), m.contacts...), nil
}

func (m *mockStore) ListContactEmails(ctx context.Context) (map[string]bool, error) {
	if m.contactEmailsFunc != nil {
		return m.contactEmailsFunc(ctx)
	}
	return map[string]bool{}, nil
}

func (m *mockStore) Migrate(context.Context) error { return nil }

func (m *mockStore) Capability() store.Capability {
	return store.Capability{Driver: "mock"}
}

func (m *mockStore) Close() error { return nil }

// mockProvider serves a canned provider result and records requests.
type mockProvider struct {
	mu          sync.Mutex
	name        string
	result      source.Result
	err         error
	collectFunc func(ctx context.Context, req source.Request) (source.Result, error)
	requests    []source.Request
}

var _ source.Provider = (*mockProvider)(nil)

func (m *mockProvider) Name() string { return m.name }

func (m *mockProvider) Collect(ctx context.Context, req source.Request) (source.Result, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	if m.collectFunc != nil {
		return m.collectFunc(ctx, req)
	}
	return m.result, m.err
}

// mockExtractor returns canned contacts and records extraction requests.
type mockExtractor struct {
	mu          sync.Mutex
	extractFunc func(ctx context.Context, req contacts.Request) []contacts.Contact
	requests    []contacts.Request
}

var _ Extractor = (*mockExtractor)(nil)

func (m *mockExtractor) Extract(ctx context.Context, req contacts.Request) []contacts.Contact {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	if m.extractFunc != nil {
		return m.extractFunc(ctx, req)
	}
	return nil
}

// mockGeocoder answers every query with one canned result.
type mockGeocoder struct {
	result *geocode.Result
	err    error
}

var _ geocode.Client = (*mockGeocoder)(nil)

func (m *mockGeocoder) Geocode(context.Context, string) (*geocode.Result, error) {
	return m.result, m.err
}

// seedProvider returns the builtin curated list provider.
func seedProvider() source.Provider {
	p, err := source.NewSeed("")
	if err != nil {
		panic(err)
	}
	return p
}
