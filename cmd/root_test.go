package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/havenpaws/prospect-cli/internal/discovery"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmds := rootCmd.Commands()

	// Collect subcommand names.
	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	// Verify expected subcommands are registered.
	expected := []string{"discover", "import", "seeds", "serve"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "prospect-cli", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestDiscoverCommand_Flags(t *testing.T) {
	for _, name := range []string{
		"location", "radius", "limit", "min-score", "mode",
		"max-runtime", "exclude-keys", "dry-run", "extract-contacts",
		"contact-preview", "out",
	} {
		require.NotNil(t, discoverCmd.Flags().Lookup(name), "discover command should have --%s flag", name)
	}

	flag := discoverCmd.Flags().Lookup("limit")
	assert.Equal(t, "0", flag.DefValue, "zero limit defers to the configured default")
}

func TestDiscoverCommand_MinScoreFilter(t *testing.T) {
	// Unset defers to the configured default.
	assert.Equal(t, 0, minScoreFilter(""))
	assert.Equal(t, 0, minScoreFilter("  "))

	// Everything else normalizes onto the 1-10 band.
	assert.Equal(t, 7, minScoreFilter("7"))
	assert.Equal(t, 7, minScoreFilter(">=7"))
	assert.Equal(t, 7, minScoreFilter("70"))
	assert.Equal(t, 1, minScoreFilter("all"))
}

func TestImportCommand_RequiredFlags(t *testing.T) {
	flag := importCmd.Flags().Lookup("file")
	require.NotNil(t, flag, "import command should have --file flag")
}

func TestSeedsCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range seedsCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["list"])
	assert.True(t, names["push"])
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestImportPayload_PrefersRecords(t *testing.T) {
	payload := importPayload{
		Records: []discovery.ReviewedRecord{
			{RecordType: discovery.RecordOrganization, Name: "Corner Pet Store"},
		},
		Organizations: []discovery.ReviewedRecord{
			{Name: "Ignored Org"},
		},
		ExtractContacts:   true,
		MaxRuntimeSeconds: 30,
	}

	params := payload.params()
	require.Len(t, params.Records, 1)
	assert.Equal(t, "Corner Pet Store", params.Records[0].Name)
	assert.True(t, params.ExtractContacts)
	assert.Equal(t, float64(30), params.MaxRuntimeSeconds)
}

func TestImportPayload_LegacyOrganizationsFallback(t *testing.T) {
	payload := importPayload{
		Organizations: []discovery.ReviewedRecord{
			{Name: "Fresh Vegan Co"},
			{RecordType: discovery.RecordContact, FullName: "Jane Doe"},
		},
	}

	params := payload.params()
	require.Len(t, params.Records, 2)
	assert.Equal(t, discovery.RecordOrganization, params.Records[0].RecordType,
		"legacy rows default to organization records")
	assert.Equal(t, discovery.RecordContact, params.Records[1].RecordType,
		"an explicit record type is kept")
}

func TestWriteResult_ToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "result.json")
	err := writeResult(path, map[string]int{"matched_count": 4})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var out map[string]int
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, 4, out["matched_count"])
}
