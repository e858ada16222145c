package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
	xerrors "xhscrawler/pkg/errors"
)

// promptSecret reads one line without echo when in is a terminal
func promptSecret(in io.Reader, prompt io.Writer, label string) (string, error) {
	fmt.Fprint(prompt, label)

	var raw string
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("failed to read cookie: %w", err)
		}
		raw = string(b)
	} else {
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && err != io.EOF {
			return "", fmt.Errorf("failed to read cookie: %w", err)
		}
		raw = line
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", xerrors.New(xerrors.KindCredentialsMissing, "no cookie entered")
	}
	return raw, nil
}
