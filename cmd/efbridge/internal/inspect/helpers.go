package inspect

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"

	"github.com/tinyland-inc/efbridge/cmd/efbridge/internal"
	"github.com/tinyland-inc/efbridge/pkg/message"
)

type options struct {
	json     bool
	maxDepth int
}

func inspectCmd(stdin io.Reader, out io.Writer, path string, opts options) error {
	in, err := internal.OpenInput(path, stdin)
	if err != nil {
		return err
	}
	defer in.Close()

	n := 0
	for e, err := range internal.ReadEnvelopes(in, message.WithMaxTargetDepth(opts.maxDepth)) {
		n++
		if err != nil {
			return fmt.Errorf("envelope #%d: %w", n, err)
		}
		if opts.json {
			if err := writeJSON(out, e); err != nil {
				return err
			}
			continue
		}
		if n > 1 {
			fmt.Fprintln(out)
		}
		renderTable(out, e)
	}
	return nil
}

func writeJSON(out io.Writer, e *message.Envelope) error {
	data, err := message.Encode(e)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return err
	}
	buf.WriteByte('\n')
	_, err = buf.WriteTo(out)
	return err
}

func renderTable(out io.Writer, e *message.Envelope) {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Field", "Value"})
	table.SetAutoWrapText(false)
	table.AppendBulk(rows(e))
	table.Render()
}

// rows flattens an envelope into field/value pairs, absent optionals
// omitted.
func rows(e *message.Envelope) [][]string {
	out := [][]string{
		{"uid", e.UID()},
		{"type", e.Type().String()},
		{"source", string(e.Source())},
		{"origin", party(e.Origin())},
		{"destination", party(e.Destination())},
	}
	if m, ok := e.Member(); ok {
		out = append(out, []string{"member", party(m)})
	}
	out = append(out, []string{"text", strconv.Quote(e.Text())})
	if u, ok := e.URL(); ok {
		out = append(out, []string{"url", u})
	}
	if f, ok := e.File(); ok {
		out = append(out, []string{"file", f.Path})
	}
	if m, ok := e.MIME(); ok {
		out = append(out, []string{"mime", m})
	}
	if a := e.Attributes(); a != nil {
		data, err := json.Marshal(a)
		if err != nil {
			data = []byte(err.Error())
		}
		out = append(out, []string{"attributes." + a.Kind(), string(data)})
	}
	if t, ok := e.Target(); ok {
		out = append(out, targetRows(t)...)
	}
	if ch, ok := e.Channel(); ok {
		out = append(out, []string{"channel", strings.TrimSpace(ch.Glyph + " " + ch.Name + " (" + ch.ID + ")")})
	}
	return out
}

func targetRows(t message.Target) [][]string {
	switch t.Type() {
	case message.TargetMember:
		p, _ := t.Member()
		return [][]string{{"target.member", party(p)}}
	case message.TargetMessage:
		prior, _ := t.Message()
		return [][]string{{
			"target.message",
			fmt.Sprintf("%s from %s, depth %d", prior.UID(), party(prior.Origin()), prior.Depth()+1),
		}}
	case message.TargetSubstitution:
		subs, _ := t.Substitutions()
		return lo.Map(subs.Mentions(), func(m message.Mention, _ int) []string {
			return []string{"target.mention " + m.Token, party(m.Party)}
		})
	}
	return nil
}

func party(p message.Party) string {
	name := p.DisplayName()
	if name == "" {
		return p.UID
	}
	return name + " <" + p.UID + ">"
}
