package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/topgen/pkg/validation"
)

// Output formats accepted by --output
const (
	outputText = "text"
	outputJSON = "json"
)

// fileResult is the validation outcome of one file
type fileResult struct {
	File   string   `json:"file"`
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

type validateOptions struct {
	output string
	jobs   int
}

func newValidateCommand(root *rootOptions) *cobra.Command {
	opts := &validateOptions{}

	cmd := &cobra.Command{
		Use:   "validate FILE...",
		Short: "Validate topology configuration files",
		Long: `Validate one or more topology configuration files (YAML or JSON).
Files are checked concurrently; results are printed in argument order.
The command fails when any file is invalid.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.output != outputText && opts.output != outputJSON {
				return fmt.Errorf("invalid output format %q (want %s or %s)", opts.output, outputText, outputJSON)
			}
			v, err := root.validator(cmd)
			if err != nil {
				return err
			}

			results, err := validateFiles(cmd.Context(), v, args, opts.jobs)
			if err != nil {
				return err
			}
			if err := printResults(cmd.OutOrStdout(), opts.output, results); err != nil {
				return err
			}

			for _, r := range results {
				if !r.Valid {
					return ErrValidationFailed
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", outputText, "output format (text, json)")
	cmd.Flags().IntVarP(&opts.jobs, "jobs", "j", runtime.NumCPU(), "number of files validated in parallel")

	return cmd
}

// validateFiles validates files with at most jobs running at once. A file
// that cannot be read aborts the batch.
func validateFiles(ctx context.Context, v *validation.ConfigValidator, files []string, jobs int) ([]fileResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if jobs < 1 {
		jobs = 1
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(jobs)

	results := make([]fileResult, len(files))
	for i, file := range files {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			raw, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", file, err)
			}
			result := v.ValidateContext(ctx, raw)
			results[i] = fileResult{File: file, Valid: result.Valid, Errors: result.Errors}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func printResults(w io.Writer, format string, results []fileResult) error {
	if format == outputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	for _, r := range results {
		printResult(w, r)
	}
	return nil
}

func printResult(w io.Writer, r fileResult) {
	if r.Valid {
		fmt.Fprintf(w, "%s: valid\n", r.File)
		return
	}
	fmt.Fprintf(w, "%s: invalid (%d errors)\n", r.File, len(r.Errors))
	for _, msg := range r.Errors {
		fmt.Fprintf(w, "  - %s\n", msg)
	}
}
