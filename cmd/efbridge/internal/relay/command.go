package relay

import (
	"github.com/spf13/cobra"
)

func NewRelayCommand() *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:     "relay",
		Aliases: []string{"r"},
		Short:   "Relay envelopes between the configured channels",
		Args:    cobra.NoArgs,
		Example: `  efbridge relay
  efbridge relay --debug --config ./bridge.json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return relayCmd(cmd.Context(), debug)
		},
	}

	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")

	return cmd
}
