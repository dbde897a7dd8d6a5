package validate

import (
	"errors"
	"fmt"
	"io"

	"github.com/gookit/color"

	"github.com/tinyland-inc/efbridge/cmd/efbridge/internal"
	"github.com/tinyland-inc/efbridge/pkg/message"
)

type options struct {
	maxDepth int
	quiet    bool
}

// ErrInvalid is returned when at least one envelope failed validation.
var ErrInvalid = errors.New("invalid envelopes")

func validateCmd(stdin io.Reader, out io.Writer, path string, opts options) error {
	in, err := internal.OpenInput(path, stdin)
	if err != nil {
		return err
	}
	defer in.Close()

	total, invalid := 0, 0
	for e, err := range internal.ReadEnvelopes(in, message.WithMaxTargetDepth(opts.maxDepth)) {
		total++
		if err == nil {
			if !opts.quiet {
				fmt.Fprintf(out, "%s #%d %s (%s)\n", color.FgGreen.Render("ok"), total, e.UID(), e.Type())
			}
			continue
		}

		invalid++
		fmt.Fprintf(out, "%s #%d\n", color.FgRed.Render("invalid"), total)
		var ve *message.ValidationError
		if !errors.As(err, &ve) {
			fmt.Fprintf(out, "    %v\n", err)
			continue
		}
		for _, v := range ve.Violations {
			fmt.Fprintf(out, "    %s\n", v)
		}
	}

	fmt.Fprintf(out, "%d envelopes, %d invalid\n", total, invalid)
	if invalid > 0 {
		return fmt.Errorf("%w: %d of %d", ErrInvalid, invalid, total)
	}
	return nil
}
