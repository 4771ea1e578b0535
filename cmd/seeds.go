package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/havenpaws/prospect-cli/internal/candidate"
	"github.com/havenpaws/prospect-cli/internal/source"
	"github.com/havenpaws/prospect-cli/internal/store"
)

var seedsCmd = &cobra.Command{
	Use:   "seeds",
	Short: "Curated seed organization bank",
	Long:  "Inspects the curated seed list (builtin bank plus discovery.seeds_file overrides) and pushes it into the store.",
}

var seedsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the effective seed list as JSON",
	RunE: func(cmd *cobra.Command, _ []string) error {
		seed, err := source.NewSeed(cfg.Discovery.SeedsFile)
		if err != nil {
			return eris.Wrap(err, "load seed list")
		}
		return writeResult("", seed.Seeds())
	},
}

var seedsPushCmd = &cobra.Command{
	Use:   "push",
	Short: "Upsert the seed list into the store",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("discover"); err != nil {
			return err
		}

		seed, err := source.NewSeed(cfg.Discovery.SeedsFile)
		if err != nil {
			return eris.Wrap(err, "load seed list")
		}
		seeds := seed.Seeds()
		orgs := make([]candidate.Organization, 0, len(seeds))
		for _, s := range seeds {
			orgs = append(orgs, candidate.FromSeed(s))
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		saved, err := pushSeeds(cmd, st, orgs)
		if err != nil {
			return err
		}

		zap.L().Info("seeds pushed", zap.Int("seeds", len(orgs)), zap.Int64("saved", saved))
		return nil
	},
}

// pushSeeds upserts the seed organizations. Backends advertising bulk
// support take the COPY path; everything else upserts row by row.
func pushSeeds(cmd *cobra.Command, st store.Store, orgs []candidate.Organization) (int64, error) {
	ctx := cmd.Context()

	if bu, ok := st.(store.BulkUpserter); ok && st.Capability().BulkUpsert {
		n, err := bu.BulkUpsertOrganizations(ctx, orgs)
		if err != nil {
			return 0, eris.Wrap(err, "bulk upsert seeds")
		}
		return n, nil
	}

	var saved int64
	for _, org := range orgs {
		if _, err := st.UpsertOrganization(ctx, org); err != nil {
			return saved, eris.Wrapf(err, "upsert seed %s", org.Name)
		}
		saved++
	}
	return saved, nil
}

func init() {
	seedsCmd.AddCommand(seedsListCmd)
	seedsCmd.AddCommand(seedsPushCmd)
	rootCmd.AddCommand(seedsCmd)
}
