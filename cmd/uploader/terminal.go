package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	"golang.org/x/term"
)

// promptToken reads the session token without echo. It returns an empty
// token when stdin is not a terminal.
func promptToken() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", nil
	}
	fmt.Fprint(os.Stderr, "Session token (from /api/auth/login): ")
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

type systemClipboard struct{}

func (systemClipboard) WriteAll(text string) error {
	if clipboard.Unsupported {
		return fmt.Errorf("clipboard not available on this system")
	}
	return clipboard.WriteAll(text)
}
