package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/KingRain/Parsec/internal/mermaid"
)

var sanitizeJSON bool

var sanitizeCmd = &cobra.Command{
	Use:   "sanitize [FILE]",
	Short: "Repair Mermaid markup",
	Long: `Read Mermaid markup (or model output containing it) from FILE or stdin
and print a diagram that renders.

Examples:
  parsec sanitize diagram.mmd
  pbpaste | parsec sanitize --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSanitize,
}

func init() {
	sanitizeCmd.Flags().BoolVar(&sanitizeJSON, "json", false, "Print the result with its kind and flags as JSON")
	rootCmd.AddCommand(sanitizeCmd)
}

func runSanitize(cmd *cobra.Command, args []string) error {
	var in io.Reader = cmd.InOrStdin()
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}
	raw, err := io.ReadAll(in)
	if err != nil {
		return err
	}

	res := mermaid.Sanitize(string(raw))
	out := cmd.OutOrStdout()
	if sanitizeJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	_, err = fmt.Fprint(out, res.Diagram)
	return err
}
