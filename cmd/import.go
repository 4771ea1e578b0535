package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/havenpaws/prospect-cli/internal/discovery"
)

var (
	importFile       string
	importContacts   bool
	importMaxRuntime time.Duration
	importOut        string
)

// importPayload accepts both the reviewed-record shape and the legacy
// organizations-only shape.
type importPayload struct {
	Records           []discovery.ReviewedRecord `json:"records"`
	Organizations     []discovery.ReviewedRecord `json:"organizations"`
	ExtractContacts   bool                       `json:"extract_contacts"`
	MaxRuntimeSeconds float64                    `json:"max_runtime_seconds"`
}

func (p importPayload) params() discovery.ImportParams {
	records := p.Records
	if len(records) == 0 {
		records = p.Organizations
		for i := range records {
			if records[i].RecordType == "" {
				records[i].RecordType = discovery.RecordOrganization
			}
		}
	}
	return discovery.ImportParams{
		Records:           records,
		ExtractContacts:   p.ExtractContacts,
		MaxRuntimeSeconds: p.MaxRuntimeSeconds,
	}
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a reviewed discovery payload",
	Long:  "Reads a reviewed dry-run payload (JSON) and persists the selected organizations and contacts.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("import"); err != nil {
			return err
		}

		data, err := os.ReadFile(importFile)
		if err != nil {
			return eris.Wrap(err, "read payload")
		}
		var payload importPayload
		if err := json.Unmarshal(data, &payload); err != nil {
			return eris.Wrap(err, "parse payload")
		}

		params := payload.params()
		if importContacts {
			params.ExtractContacts = true
		}
		if importMaxRuntime > 0 {
			params.MaxRuntimeSeconds = importMaxRuntime.Seconds()
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		orch, err := initDiscovery(st)
		if err != nil {
			return err
		}

		res, err := orch.ImportReviewed(ctx, params, logProgress)
		if err != nil {
			return eris.Wrap(err, "import reviewed payload")
		}

		zap.L().Info("import complete",
			zap.Int("requested", res.RequestedCount),
			zap.Int("saved_orgs", res.SavedCount),
			zap.Int("saved_contacts", res.SavedContactCount),
			zap.String("file", importFile),
		)

		return writeResult(importOut, res)
	},
}

func init() {
	importCmd.Flags().StringVar(&importFile, "file", "", "path to reviewed payload JSON (required)")
	importCmd.Flags().BoolVar(&importContacts, "extract-contacts", false, "extract contacts for imported organizations")
	importCmd.Flags().DurationVar(&importMaxRuntime, "max-runtime", 0, "import time budget (default from config)")
	importCmd.Flags().StringVar(&importOut, "out", "", "write result JSON to file instead of stdout")
	_ = importCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(importCmd)
}
