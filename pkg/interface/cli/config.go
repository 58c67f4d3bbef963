// Package cli parses the command line, adapted from the teacher's
// pkg/interface/cli.ParseFlags but reduced to spec.md §6's contract:
// exactly one positional argument, no flags.
package cli

import (
	"errors"
	"fmt"
	"strings"

	flags "github.com/jessevdk/go-flags"
)

// ErrArgument is spec.md §7's ArgumentError: a missing or malformed apex.
var ErrArgument = errors.New("argument error")

type positional struct {
	Apex string `positional-arg-name:"apex-domain" description:"the apex domain to enumerate"`
}

type args struct {
	Positional positional `positional-args:"yes" required:"yes"`
}

// Parse validates argv (excluding the program name) against the single
// required positional apex-domain argument and returns the folded apex.
func Parse(argv []string) (string, error) {
	var a args
	parser := flags.NewParser(&a, flags.Default)
	parser.Usage = "<apex-domain>"

	rest, err := parser.ParseArgs(argv)
	if err != nil {
		if flags.WroteHelp(err) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", ErrArgument, err)
	}
	if len(rest) > 0 {
		return "", fmt.Errorf("%w: unexpected extra arguments: %s", ErrArgument, strings.Join(rest, " "))
	}

	apex := strings.ToLower(strings.TrimSpace(a.Positional.Apex))
	if apex == "" {
		return "", fmt.Errorf("%w: apex domain is required", ErrArgument)
	}
	if !strings.Contains(apex, ".") {
		return "", fmt.Errorf("%w: %q is not a valid apex domain", ErrArgument, apex)
	}

	return apex, nil
}
