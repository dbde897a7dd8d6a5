package inspect

import (
	"github.com/spf13/cobra"

	"github.com/tinyland-inc/efbridge/pkg/message"
)

func NewInspectCommand() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:     "inspect [file]",
		Aliases: []string{"show"},
		Short:   "Render envelopes field by field",
		Args:    cobra.MaximumNArgs(1),
		Example: `  efbridge inspect envelope.json
  efbridge inspect --json messages.ndjson`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "-"
			if len(args) > 0 {
				path = args[0]
			}
			return inspectCmd(cmd.InOrStdin(), cmd.OutOrStdout(), path, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.json, "json", false, "Print the canonical indented JSON instead of a table")
	cmd.Flags().IntVar(&opts.maxDepth, "max-depth", message.DefaultMaxTargetDepth, "Maximum reply chain depth")

	return cmd
}
