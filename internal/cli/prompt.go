package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/proactive/dataspace-browser/internal/browser"
)

// linePrompter asks yes/no questions on out and reads answers from in.
// The interactive shell shares its reader with the prompter so typed
// answers are not swallowed by the command loop.
type linePrompter struct {
	in  *bufio.Reader
	out io.Writer
}

// Confirm prints message and waits for an answer. Anything other than
// y/yes declines, and end of input declines too.
func (p *linePrompter) Confirm(ctx context.Context, message string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	for {
		fmt.Fprintf(p.out, "%s [y/N]: ", message)
		input, err := p.in.ReadString('\n')
		if err != nil && err != io.EOF {
			return false, err
		}

		switch strings.ToLower(strings.TrimSpace(input)) {
		case "y", "yes":
			return true, nil
		case "", "n", "no":
			if err == io.EOF {
				fmt.Fprintln(p.out)
			}
			return false, nil
		default:
			if err == io.EOF {
				return false, nil
			}
			fmt.Fprintln(p.out, "Please answer y or n.")
		}
	}
}

// newConfirmer returns the confirmer used by a session. --yes approves
// everything; otherwise the user is asked on out.
func newConfirmer(in *bufio.Reader, out io.Writer) browser.Confirmer {
	if assumeYes {
		return browser.ConfirmFunc(func(ctx context.Context, message string) (bool, error) {
			return true, nil
		})
	}
	return &linePrompter{in: in, out: out}
}

// stdinConfirmer is used by one-shot commands. Without a terminal there is
// nobody to ask, so confirmations are declined unless --yes was given.
func stdinConfirmer(out io.Writer) browser.Confirmer {
	if !assumeYes && !isTerminal(os.Stdin) {
		return browser.ConfirmFunc(func(ctx context.Context, message string) (bool, error) {
			GetLogger().Warn().Msg("Confirmation required but stdin is not a terminal; use --yes")
			return false, nil
		})
	}
	return newConfirmer(bufio.NewReader(os.Stdin), out)
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
