package discovery

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/havenpaws/prospect-cli/internal/candidate"
	"github.com/havenpaws/prospect-cli/internal/contacts"
)

func TestImportReviewedRequiresStore(t *testing.T) {
	o := New(Sources{}, nil, nil, nil, nil, Options{})
	res, err := o.ImportReviewed(context.Background(), ImportParams{}, nil)
	require.Error(t, err)
	assert.Nil(t, res)
}

func TestImportReviewedLinksContactsByPreviewKey(t *testing.T) {
	ms := &mockStore{}
	o := New(Sources{}, nil, nil, ms, nil, Options{})
	var events []Event

	res, err := o.ImportReviewed(context.Background(), ImportParams{
		Records: []ReviewedRecord{
			{
				RecordType: RecordOrganization,
				PreviewKey: "org-preview-0-Paws Co",
				Name:       "Paws Co",
				Website:    "https://paws.example",
				Category:   "local_business",
				Score:      90,
				City:       "Portland",
				State:      "OR",
				Source:     "serpapi",
			},
			{
				RecordType:    RecordContact,
				FullName:      "Dana Giver",
				Title:         "Director of Development",
				Email:         "dana@paws.example",
				Confidence:    "high",
				OrgPreviewKey: "org-preview-0-Paws Co",
			},
		},
	}, func(ev Event) { events = append(events, ev) })
	require.NoError(t, err)

	assert.Equal(t, 2, res.RequestedCount)
	assert.Equal(t, 1, res.SavedCount)
	assert.Equal(t, 1, res.SavedContactCount)
	require.Len(t, res.Organizations, 1)
	require.Len(t, res.Contacts, 1)
	assert.Empty(t, res.Issues)

	org := res.Organizations[0]
	assert.Equal(t, "Paws Co", org.Name)
	assert.Equal(t, 9, org.Score, "review-scale scores are rescaled")
	assert.Equal(t, candidate.Category("local_business"), org.Category)
	assert.Equal(t, 1, res.PerSource["serpapi"].Saved)

	c := res.Contacts[0]
	assert.Equal(t, org.ID, c.OrgID)
	assert.Equal(t, "Paws Co", c.OrgName)
	assert.Equal(t, contacts.ConfidenceHigh, c.Confidence)

	require.NotEmpty(t, events)
	assert.Equal(t, "import_prepare", events[0].Step)
	last := events[len(events)-1]
	assert.Equal(t, "complete", last.Step)
	assert.Equal(t, StatusCompleted, last.Status)
	assert.Equal(t, 100, last.Progress)
}

func TestImportReviewedCreatesOrgForContactOnlyRows(t *testing.T) {
	ms := &mockStore{}
	o := New(Sources{}, nil, nil, ms, nil, Options{})

	res, err := o.ImportReviewed(context.Background(), ImportParams{
		Records: []ReviewedRecord{{
			RecordType:       RecordContact,
			FullName:         "Sam Solo",
			Email:            "sam@solo.example",
			OrganizationName: "Solo Org",
			OrganizationCity: "Portland",
		}},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, res.RequestedCount)
	assert.Zero(t, res.SavedCount, "only selected organization rows count as saved")
	assert.Equal(t, 1, res.SavedContactCount)
	require.Len(t, ms.orgs, 1)
	assert.Equal(t, "Solo Org", ms.orgs[0].Name)
	assert.Equal(t, "Portland", ms.orgs[0].City)
	require.Len(t, res.Contacts, 1)
	assert.Equal(t, ms.orgs[0].ID, res.Contacts[0].OrgID)
}

func TestImportReviewedSkipsContactsWithoutEmail(t *testing.T) {
	ms := &mockStore{}
	o := New(Sources{}, nil, nil, ms, nil, Options{})

	res, err := o.ImportReviewed(context.Background(), ImportParams{
		Records: []ReviewedRecord{{
			RecordType:       RecordContact,
			FullName:         "No Email",
			OrganizationName: "Some Org",
		}},
	}, nil)
	require.NoError(t, err)

	assert.Zero(t, res.SavedContactCount)
	assert.Empty(t, ms.contacts)
	assert.Empty(t, ms.orgs, "no organization is created for a skipped contact")
	assert.Empty(t, res.Issues)
}

func TestImportReviewedContactWithoutOrgBecomesIssue(t *testing.T) {
	ms := &mockStore{}
	o := New(Sources{}, nil, nil, ms, nil, Options{})

	res, err := o.ImportReviewed(context.Background(), ImportParams{
		Records: []ReviewedRecord{
			{RecordType: RecordContact, FullName: "Lost Contact", Email: "lost@example.org"},
			{
				RecordType:       RecordContact,
				FullName:         "Found Contact",
				Email:            "found@example.org",
				OrganizationName: "Found Org",
			},
		},
	}, nil)
	require.NoError(t, err)

	require.Len(t, res.Issues, 1)
	assert.Contains(t, res.Issues[0], "Lost Contact")
	assert.Equal(t, 1, res.SavedContactCount, "the batch continues past bad rows")
}

func TestImportReviewedSkipsUnknownAndNamelessRecords(t *testing.T) {
	ms := &mockStore{}
	o := New(Sources{}, nil, nil, ms, nil, Options{})

	res, err := o.ImportReviewed(context.Background(), ImportParams{
		Records: []ReviewedRecord{
			{RecordType: "widget", Name: "Not A Thing"},
			{RecordType: RecordOrganization, Name: "   "},
			{RecordType: RecordOrganization, Name: "Real Org"},
		},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, res.RequestedCount)
	assert.Equal(t, 1, res.SavedCount)
}

func TestImportReviewedPerRecordUpsertIssues(t *testing.T) {
	ms := &mockStore{
		upsertOrgFunc: func(_ context.Context, org candidate.Organization) (candidate.Organization, error) {
			if org.Name == "Broken Org" {
				return candidate.Organization{}, eris.New("store: constraint violation")
			}
			org.ID = "org-ok"
			return org, nil
		},
	}
	o := New(Sources{}, nil, nil, ms, nil, Options{})

	res, err := o.ImportReviewed(context.Background(), ImportParams{
		Records: []ReviewedRecord{
			{RecordType: RecordOrganization, Name: "Broken Org"},
			{RecordType: RecordOrganization, Name: "Fine Org"},
		},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, res.SavedCount)
	require.Len(t, res.Issues, 1)
	assert.Contains(t, res.Issues[0], "Broken Org")
	assert.Contains(t, res.Issues[0], "constraint violation")
}

func TestImportReviewedChainsExtraction(t *testing.T) {
	ms := &mockStore{}
	ext := &mockExtractor{
		extractFunc: func(_ context.Context, req contacts.Request) []contacts.Contact {
			require.NotEmpty(t, req.Orgs)
			return []contacts.Contact{
				{
					FullName: "Extracted Person",
					Email:    "person@imported.example",
					OrgKey:   req.Orgs[0].ID,
					OrgName:  req.Orgs[0].Name,
				},
				{FullName: "Skipped Person", OrgKey: req.Orgs[0].ID},
			}
		},
	}
	o := New(Sources{}, nil, nil, ms, ext, Options{})
	var events []Event

	res, err := o.ImportReviewed(context.Background(), ImportParams{
		Records: []ReviewedRecord{{
			RecordType: RecordOrganization,
			Name:       "Imported Org",
			Website:    "https://imported.example",
		}},
		ExtractContacts: true,
	}, func(ev Event) { events = append(events, ev) })
	require.NoError(t, err)

	require.Len(t, ext.requests, 1)
	assert.False(t, ext.requests[0].Deadline.IsZero())

	assert.True(t, res.ContactsExtracted)
	assert.Equal(t, 1, res.SavedContactCount, "extracted contacts without an email are dropped")
	require.Len(t, res.Contacts, 1)
	assert.Equal(t, "org-1", res.Contacts[0].OrgID)
	assert.True(t, hasStep(events, "import_contacts_extract", StatusRunning))
}
