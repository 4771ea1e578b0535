package main

import (
	"encoding/json"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/havenpaws/prospect-cli/internal/candidate"
	"github.com/havenpaws/prospect-cli/internal/discovery"
)

var (
	discoverLocation   string
	discoverRadius     float64
	discoverLimit      int
	discoverMinScore   string
	discoverMode       string
	discoverMaxRuntime time.Duration
	discoverExclude    []string
	discoverDryRun     bool
	discoverContacts   bool
	discoverPreview    bool
	discoverOut        string
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Run a prospect discovery pass",
	Long:  "Collects donor prospects from the configured sources, dedupes and scores them, and persists the matches (or previews them with --dry-run).",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("discover"); err != nil {
			return err
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

		params := discovery.Params{
			Location:          discoverLocation,
			RadiusMiles:       discoverRadius,
			Limit:             discoverLimit,
			MinScore:          minScoreFilter(discoverMinScore),
			Mode:              discoverMode,
			MaxRuntimeSeconds: discoverMaxRuntime.Seconds(),
			ExcludeKeys:       discoverExclude,
			DryRun:            discoverDryRun,
			ExtractContacts:   discoverContacts,
			ContactPreview:    discoverPreview,
		}
		if err := params.Validate(); err != nil {
			return err
		}

		res, err := orch.Run(ctx, params, logProgress)
		if err != nil {
			return eris.Wrap(err, "discovery run")
		}

		zap.L().Info("discovery complete",
			zap.Int("matched", res.MatchedCount),
			zap.Int("saved", res.SavedCount),
			zap.Bool("dry_run", res.DryRun),
		)

		return writeResult(discoverOut, res)
	},
}

// minScoreFilter parses the --min-score flag. An unset flag defers to the
// configured default; anything else goes through the user-input normalizer,
// so ">=7", "70" and "all" are accepted.
func minScoreFilter(raw string) int {
	if strings.TrimSpace(raw) == "" {
		return 0
	}
	return candidate.NormalizeMinScore(raw)
}

// logProgress mirrors run progress into the log so long runs are visible
// on the console.
func logProgress(ev discovery.Event) {
	fields := []zap.Field{
		zap.String("step", ev.Step),
		zap.Int("progress", ev.Progress),
	}
	if ev.Message != "" {
		fields = append(fields, zap.String("message", ev.Message))
	}
	if ev.Status == discovery.StatusWarning {
		zap.L().Warn("discovery progress", fields...)
		return
	}
	zap.L().Debug("discovery progress", fields...)
}

// writeResult emits the result JSON to path, or stdout when path is empty.
func writeResult(path string, v any) error {
	var w io.Writer = os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return eris.Wrap(err, "create output file")
		}
		defer f.Close()
		w = f
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	discoverCmd.Flags().StringVar(&discoverLocation, "location", "", `search center, "City ST" or a 5-digit ZIP`)
	discoverCmd.Flags().Float64Var(&discoverRadius, "radius", 0, "search radius in miles (default from config)")
	discoverCmd.Flags().IntVar(&discoverLimit, "limit", 0, "max matched organizations (default from config)")
	discoverCmd.Flags().StringVar(&discoverMinScore, "min-score", "", `minimum donation potential score: 1-10 or 0-100 scale, ">=N" or "all"`)
	discoverCmd.Flags().StringVar(&discoverMode, "mode", "", "candidate class: businesses, foundations, nonprofits, wealth_related or all")
	discoverCmd.Flags().DurationVar(&discoverMaxRuntime, "max-runtime", 0, "run time budget (default from config)")
	discoverCmd.Flags().StringSliceVar(&discoverExclude, "exclude-keys", nil, "stable record keys to skip")
	discoverCmd.Flags().BoolVar(&discoverDryRun, "dry-run", false, "preview matches without writing anything")
	discoverCmd.Flags().BoolVar(&discoverContacts, "extract-contacts", false, "extract contacts for saved organizations")
	discoverCmd.Flags().BoolVar(&discoverPreview, "contact-preview", false, "include contact previews in dry-run output")
	discoverCmd.Flags().StringVar(&discoverOut, "out", "", "write result JSON to file instead of stdout")
	rootCmd.AddCommand(discoverCmd)
}
