package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/topgen/pkg/generator"
)

type generateOptions struct {
	configFile  string
	jobID       string
	outputDir   string
	floogenBin  string
	dockerImage string
	timeout     time.Duration
}

func newGenerateCommand(root *rootOptions) *cobra.Command {
	opts := &generateOptions{}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Validate a configuration and generate RTL with floogen",
		Long: `Validate a topology configuration and, when it is valid, run floogen on it.
The generated RTL is written to <output-dir>/<job-id>/rtl_output and packaged
as <output-dir>/<job-id>/<job-id>_rtl.zip.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, root, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configFile, "config", "c", "", "topology configuration file")
	cmd.Flags().StringVarP(&opts.jobID, "job-id", "j", "", "job identifier (default: generated)")
	cmd.Flags().StringVarP(&opts.outputDir, "output-dir", "o", "./output", "output root directory")
	cmd.Flags().StringVar(&opts.floogenBin, "floogen", "floogen", "floogen executable")
	cmd.Flags().StringVar(&opts.dockerImage, "docker-image", "", "run floogen inside this container image instead of locally")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", generator.DefaultTimeout, "floogen timeout")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}

func runGenerate(cmd *cobra.Command, root *rootOptions, opts *generateOptions) error {
	logger, err := root.logger(cmd)
	if err != nil {
		return err
	}
	v, err := root.validator(cmd)
	if err != nil {
		return err
	}

	raw, err := os.ReadFile(opts.configFile)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", opts.configFile, err)
	}

	out := cmd.OutOrStdout()
	result := v.ValidateContext(cmd.Context(), raw)
	if !result.Valid {
		printResult(out, fileResult{File: opts.configFile, Errors: result.Errors})
		return ErrValidationFailed
	}

	runner, closeRunner, err := newRunner(opts)
	if err != nil {
		return err
	}
	defer closeRunner()

	svc, err := generator.NewService(runner, generator.NewJobStore(1, time.Hour), opts.outputDir,
		generator.WithTimeout(opts.timeout),
		generator.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	job, err := svc.Run(cmd.Context(), string(raw), opts.jobID)
	if err != nil {
		var runErr *generator.RunError
		if errors.As(err, &runErr) {
			errOut := cmd.ErrOrStderr()
			if runErr.Stdout != "" {
				fmt.Fprintln(errOut, runErr.Stdout)
			}
			if runErr.Stderr != "" && runErr.Stderr != runErr.Message {
				fmt.Fprintln(errOut, runErr.Stderr)
			}
			return errors.New(runErr.Message)
		}
		return err
	}

	fmt.Fprintf(out, "job:    %s\n", job.JobID)
	fmt.Fprintf(out, "rtl:    %s\n", job.OutputPath)
	fmt.Fprintf(out, "zip:    %s\n", job.ZipPath)
	return nil
}

func newRunner(opts *generateOptions) (generator.Runner, func(), error) {
	if opts.dockerImage == "" {
		return generator.NewLocalRunner(opts.floogenBin), func() {}, nil
	}

	runner, err := generator.NewDockerRunner(opts.dockerImage)
	if err != nil {
		return nil, nil, err
	}
	runner.Binary = opts.floogenBin
	return runner, func() { _ = runner.Close() }, nil
}
