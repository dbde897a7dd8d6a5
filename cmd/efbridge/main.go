// efbridge - Platform-neutral message envelopes and chat channel relay
// Inspired by and based on PicoClaw: https://github.com/sipeed/picoclaw
// License: MIT
//
// Copyright (c) 2026 efbridge contributors

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tinyland-inc/efbridge/cmd/efbridge/internal"
	"github.com/tinyland-inc/efbridge/cmd/efbridge/internal/channels"
	"github.com/tinyland-inc/efbridge/cmd/efbridge/internal/inspect"
	"github.com/tinyland-inc/efbridge/cmd/efbridge/internal/relay"
	"github.com/tinyland-inc/efbridge/cmd/efbridge/internal/validate"
	"github.com/tinyland-inc/efbridge/cmd/efbridge/internal/version"
)

func NewEfbridgeCommand() *cobra.Command {
	short := fmt.Sprintf("%s efbridge - Chat channel bridge v%s\n\n", internal.Logo, internal.GetVersion())

	cmd := &cobra.Command{
		Use:     "efbridge",
		Short:   short,
		Example: "efbridge validate messages.ndjson",
	}

	cmd.PersistentFlags().StringVarP(&internal.ConfigFlag, "config", "c", "",
		"Config file path (default: $EFBRIDGE_CONFIG or ~/.efbridge/config.json)")

	cmd.AddCommand(
		validate.NewValidateCommand(),
		inspect.NewInspectCommand(),
		channels.NewChannelsCommand(),
		relay.NewRelayCommand(),
		version.NewVersionCommand(),
	)

	return cmd
}

func main() {
	cmd := NewEfbridgeCommand()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
