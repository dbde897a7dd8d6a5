package channels

import (
	"github.com/spf13/cobra"

	"github.com/tinyland-inc/efbridge/cmd/efbridge/internal"
)

func NewChannelsCommand() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:     "channels",
		Aliases: []string{"ch"},
		Short:   "List configured channels and their capabilities",
		Args:    cobra.NoArgs,
		Example: `  efbridge channels
  efbridge channels --all
  efbridge channels call slave.irc ping hello`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := internal.LoadConfig()
			if err != nil {
				return err
			}
			return listCmd(cmd.OutOrStdout(), cfg, all)
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "Include disabled channels")

	callCmd := &cobra.Command{
		Use:          "call <channel> <capability> [param]",
		Short:        "Invoke a channel capability",
		Args:         cobra.RangeArgs(2, 3),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := internal.LoadConfig()
			if err != nil {
				return err
			}
			param := ""
			if len(args) == 3 {
				param = args[2]
			}
			return invokeCmd(cmd.Context(), cmd.OutOrStdout(), cfg, args[0], args[1], param)
		},
	}

	cmd.AddCommand(callCmd)

	return cmd
}
