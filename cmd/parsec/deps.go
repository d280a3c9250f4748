package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/KingRain/Parsec/internal/deps"
	"github.com/KingRain/Parsec/internal/github"
)

var depsFinal bool

var depsCmd = &cobra.Command{
	Use:   "deps OWNER/REPO",
	Short: "Analyze a repository's npm dependencies",
	Long: `Fetch the repository's package.json and enrich every dependency.

Each snapshot (extracted, metadata, descriptions, logos) is printed as one
JSON line as soon as it is ready. With --final only the last one is printed.`,
	Args: cobra.ExactArgs(1),
	RunE: runDeps,
}

func init() {
	depsCmd.Flags().BoolVar(&depsFinal, "final", false, "Print only the final snapshot")
	rootCmd.AddCommand(depsCmd)
}

func runDeps(cmd *cobra.Command, args []string) error {
	owner, repo, err := splitRepo(args[0])
	if err != nil {
		return err
	}
	d, _, _, err := loadDeps(cmd)
	if err != nil {
		return err
	}
	defer d.Close()

	ctx := github.WithToken(cmd.Context(), tokenFlag)
	raw, err := d.GitHub.FetchManifest(ctx, owner, repo)
	if err != nil {
		return err
	}
	records := deps.ExtractJSON(raw)

	enc := json.NewEncoder(cmd.OutOrStdout())
	if depsFinal {
		snap, err := d.Enricher.Final(ctx, records)
		if err != nil {
			return err
		}
		return enc.Encode(snap)
	}
	for snap := range d.Enricher.Run(ctx, records) {
		if err := enc.Encode(snap); err != nil {
			return err
		}
	}
	return ctx.Err()
}
