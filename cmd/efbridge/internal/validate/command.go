package validate

import (
	"github.com/spf13/cobra"

	"github.com/tinyland-inc/efbridge/pkg/message"
)

func NewValidateCommand() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "validate [file]",
		Short: "Check envelopes against the envelope invariants",
		Args:  cobra.MaximumNArgs(1),
		Example: `  efbridge validate messages.ndjson
  cat envelope.json | efbridge validate
  efbridge validate --max-depth 2 --quiet replies.ndjson`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "-"
			if len(args) > 0 {
				path = args[0]
			}
			return validateCmd(cmd.InOrStdin(), cmd.OutOrStdout(), path, opts)
		},
	}

	cmd.Flags().IntVar(&opts.maxDepth, "max-depth", message.DefaultMaxTargetDepth,
		"Maximum reply chain depth")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false,
		"Only report invalid envelopes")

	return cmd
}
