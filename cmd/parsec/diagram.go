package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/KingRain/Parsec/internal/diagram"
	"github.com/KingRain/Parsec/internal/github"
	"github.com/KingRain/Parsec/internal/mermaid"
)

var (
	diagramDetail string
	diagramFile   string
	diagramRaw    bool
)

var diagramCmd = &cobra.Command{
	Use:   "diagram [OWNER/REPO]",
	Short: "Draw a Mermaid diagram of a repository or a local file",
	Long: `Predict an architecture flowchart from a repository's file paths, or
diagram a single local source file with --file.

Examples:
  parsec diagram vercel/next.js --detail=detailed
  parsec diagram --file internal/enrich/pipeline.go`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDiagram,
}

func init() {
	diagramCmd.Flags().StringVar(&diagramDetail, "detail", "simple", "Detail level: simple or detailed")
	diagramCmd.Flags().StringVar(&diagramFile, "file", "", "Diagram this local file instead of a repository")
	diagramCmd.Flags().BoolVar(&diagramRaw, "raw", false, "Print the model output without sanitizing it")
	rootCmd.AddCommand(diagramCmd)
}

func runDiagram(cmd *cobra.Command, args []string) error {
	if diagramFile == "" && len(args) == 0 {
		return fmt.Errorf("either OWNER/REPO or --file is required")
	}
	d, cfg, _, err := loadDeps(cmd)
	if err != nil {
		return err
	}
	defer d.Close()
	ctx := github.WithToken(cmd.Context(), tokenFlag)

	var raw string
	if diagramFile != "" {
		content, err := os.ReadFile(diagramFile)
		if err != nil {
			return err
		}
		raw, err = d.Diagrams.File(ctx, diagram.FileRequest{
			Content: string(content),
			Name:    filepath.Base(diagramFile),
			Type:    filepath.Ext(diagramFile),
		})
		if err != nil {
			return err
		}
	} else {
		owner, repo, err := splitRepo(args[0])
		if err != nil {
			return err
		}
		files, err := d.GitHub.ListFiles(ctx, owner, repo, cfg.GitHub.MaxFiles)
		if err != nil {
			return err
		}
		paths := make([]string, 0, len(files))
		for _, f := range files {
			paths = append(paths, f.Path)
		}
		raw, err = d.Diagrams.Architecture(ctx, diagram.ArchitectureRequest{
			FilePaths:   paths,
			DetailLevel: diagram.ParseDetailLevel(diagramDetail),
		})
		if err != nil {
			return err
		}
	}

	if !diagramRaw {
		raw = mermaid.Clean(raw)
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), raw)
	return err
}
