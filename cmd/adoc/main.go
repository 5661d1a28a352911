// Command adoc converts AsciiDoc documents to HTML, and optionally to PDF
// through headless Chrome.
package main

import (
	"context"
	"fmt"
	"os"
	"slices"

	"go.uber.org/automaxprocs/maxprocs"
)

func main() {
	args := os.Args[1:]
	verbose := slices.Contains(args, "-v") || slices.Contains(args, "--verbose")

	// Error ignored: maxprocs.Set only fails if GOMAXPROCS env is invalid,
	// in which case Go runtime defaults apply and the program continues safely.
	if verbose {
		_, _ = maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
			fmt.Fprintf(os.Stderr, format+"\n", args...)
		}))
	} else {
		_, _ = maxprocs.Set(maxprocs.Logger(func(string, ...any) {}))
	}

	ctx, stop := notifyContext(context.Background())
	code := execute(ctx, args, DefaultEnv())
	stop()
	os.Exit(code)
}
