// Package cmd provides command-line interface commands for rulescope.
package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"rulescope/indexer"
)

// CLI output formatters
var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	infoColor    = color.New(color.FgCyan)
)

// Flags for the index command
var (
	sourceDir  string
	outputFile string
	excludes   []string
	outputJSON bool
	noColor    bool
	quiet      bool
)

// NewIndexCmd creates the index command, which builds the JSON rule index
// the server loads on startup.
func NewIndexCmd() *cobra.Command {
	indexCmd := &cobra.Command{
		Use:   "index",
		Short: "Build the rule index from a Sigma checkout",
		Long: `Build the JSON rule index the rulescope server loads at startup.

Walks the source tree for YAML rule files, extracts metadata and the raw
documents, and writes a single index payload. Rebuild after every rule
repository update.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor {
				color.NoColor = true
			}
		},
		RunE: runIndex,
	}

	indexCmd.Flags().StringVar(&sourceDir, "source", "./sigma", "Path to the rule repository checkout")
	indexCmd.Flags().StringVar(&outputFile, "output", "data/rules.json", "Output JSON file")
	indexCmd.Flags().StringSliceVar(&excludes, "exclude", indexer.DefaultExcludes, "Directory names to exclude (repeatable)")
	indexCmd.Flags().BoolVar(&outputJSON, "json", false, "Output the summary in JSON format")
	indexCmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	indexCmd.Flags().BoolVar(&quiet, "quiet", false, "Suppress non-essential output")

	return indexCmd
}

func runIndex(cmd *cobra.Command, args []string) error {
	logger := zap.NewNop().Sugar()
	if !quiet {
		infoColor.Printf("Indexing rules from: %s\n", sourceDir)
	}

	var s *spinner.Spinner
	if !outputJSON && !quiet {
		s = spinner.New(spinner.CharSets[14], 100*time.Millisecond)
		s.Suffix = " Scanning rule files..."
		s.Start()
	}

	builder := indexer.NewBuilder(sourceDir, excludes, logger)
	idx, err := builder.Build()

	if s != nil {
		s.Stop()
	}

	if err != nil {
		errorColor.Fprintf(os.Stderr, "Index build failed\n")
		return err
	}

	if err := indexer.WriteIndex(idx, outputFile); err != nil {
		return err
	}

	if outputJSON {
		return json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
			"count":           idx.Count,
			"output":          outputFile,
			"generated_from":  idx.GeneratedFrom,
			"git_last_commit": idx.GitLastCommit,
		})
	}

	successColor.Printf("Wrote %d rules to %s\n", idx.Count, outputFile)
	if idx.GitLastCommit != "" && !quiet {
		fmt.Printf("Source commit: %.12s\n", idx.GitLastCommit)
	}
	return nil
}
