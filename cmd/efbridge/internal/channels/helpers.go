package channels

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"

	"github.com/tinyland-inc/efbridge/cmd/efbridge/internal"
	"github.com/tinyland-inc/efbridge/pkg/bus"
	"github.com/tinyland-inc/efbridge/pkg/config"
)

func listCmd(out io.Writer, cfg *config.Config, all bool) error {
	entries := cfg.Channels
	if !all {
		entries = cfg.EnabledChannels()
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, "No channels configured.")
		return nil
	}

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"ID", "Name", "Role", "Enabled", "Allow From", "Capabilities"})
	table.SetAutoWrapText(false)

	for _, cc := range entries {
		ch, err := internal.NewChannel(cc, bus.NewMessageBus(1), strings.NewReader(""), io.Discard)
		if err != nil {
			return fmt.Errorf("channel %s: %w", cc.ID, err)
		}
		d := ch.Descriptor()
		table.Append([]string{
			d.ID(),
			strings.TrimSpace(d.Glyph() + " " + d.Name()),
			string(d.Role()),
			strconv.FormatBool(cc.Enabled),
			allowFrom(cc.AllowFrom),
			strings.Join(d.Capabilities().List(), ", "),
		})
	}
	table.Render()
	return nil
}

func allowFrom(list config.FlexibleStringSlice) string {
	if len(list) == 0 {
		return "anyone"
	}
	return strings.Join(lo.Uniq(list), ", ")
}

func invokeCmd(ctx context.Context, out io.Writer, cfg *config.Config, id, capability, param string) error {
	cc, ok := lo.Find(cfg.Channels, func(cc config.ChannelConfig) bool { return cc.ID == id })
	if !ok {
		return fmt.Errorf("channel %q is not configured", id)
	}
	ch, err := internal.NewChannel(cc, bus.NewMessageBus(1), strings.NewReader(""), io.Discard)
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	result, err := ch.Descriptor().Capabilities().Invoke(ctx, capability, param)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, result)
	return nil
}
