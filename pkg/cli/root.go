package cli

import (
	"errors"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/platinummonkey/topgen/pkg/observability"
	"github.com/platinummonkey/topgen/pkg/validation"
)

// ErrValidationFailed is returned when at least one configuration is invalid.
// The per-file errors have already been printed when it is returned.
var ErrValidationFailed = errors.New("validation failed")

// rootOptions holds the persistent flags shared by every subcommand
type rootOptions struct {
	schemaPath string
	logLevel   string
}

// NewRootCommand creates the topgen command tree
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "topgen",
		Short: "Validate FlooNoC topology configurations and generate RTL",
		Long: `topgen validates FlooNoC network-on-chip topology configurations ` +
			`against the topology schema and its semantic rules, and drives floogen ` +
			`to generate RTL from valid configurations.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.schemaPath, "schema", "", "JSON Schema file (default: embedded schema)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warning", "log level (debug, info, warning, error)")

	root.AddCommand(
		newValidateCommand(opts),
		newGenerateCommand(opts),
		newWatchCommand(opts),
		newSchemaCommand(opts),
	)
	return root
}

func (o *rootOptions) logger(cmd *cobra.Command) (*logrus.Logger, error) {
	level, err := observability.ParseLevel(o.logLevel)
	if err != nil {
		return nil, err
	}
	return observability.NewLogger(level, cmd.ErrOrStderr()), nil
}

func (o *rootOptions) schemaGate() (*validation.SchemaGate, error) {
	if o.schemaPath == "" {
		return validation.DefaultSchemaGate()
	}
	return validation.LoadSchemaGate(o.schemaPath)
}

func (o *rootOptions) validator(cmd *cobra.Command) (*validation.ConfigValidator, error) {
	logger, err := o.logger(cmd)
	if err != nil {
		return nil, err
	}
	gate, err := o.schemaGate()
	if err != nil {
		return nil, err
	}
	return validation.NewConfigValidator(gate, validation.WithLogger(logger)), nil
}
