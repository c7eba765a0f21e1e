package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"vcar-client/internal/domain"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	root, a := newRootCmd()
	err := root.ExecuteContext(ctx)
	stop()
	a.close()
	if err != nil {
		var fe *domain.FormError
		if !a.reported || errors.As(err, &fe) {
			fmt.Fprintf(os.Stderr, "Error: %s\n", describe(err))
		}
		os.Exit(1)
	}
}

// describe prefers the user-facing message for known failures.
func describe(err error) string {
	var fe *domain.FormError
	if errors.As(err, &fe) {
		names := make([]string, 0, len(fe.Fields))
		for name := range fe.Fields {
			names = append(names, name)
		}
		sort.Strings(names)
		lines := make([]string, len(names))
		for i, name := range names {
			lines[i] = fmt.Sprintf("  %s: %s", name, fe.Fields[name])
		}
		return domain.UserMessage(err) + "\n" + strings.Join(lines, "\n")
	}
	if key := domain.MessageKey(err); key != "UNKNOWN_ERROR" {
		return fmt.Sprintf("%s [%s] (%v)", domain.UserMessage(err), key, err)
	}
	return err.Error()
}
