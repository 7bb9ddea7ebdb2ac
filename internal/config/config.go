// Package config resolves the credential and target inputs of a tool
// invocation from flags, the environment or an interactive prompt,
// before any network activity happens.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"golang.org/x/term"
)

// ErrInvalid marks configuration problems: missing or malformed inputs.
// Tools map it to exit code 2.
var ErrInvalid = errors.New("invalid configuration")

// Invalid wraps err as a configuration error.
func Invalid(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrInvalid, err)
}

const tokenEnvVar = "DISCORD_TOKEN"

// ResolveToken returns a non-empty bot token. Resolution order: the
// explicit flag value, the DISCORD_TOKEN environment variable (a .env
// file is honored), then an interactive prompt on in. The prompt does
// not echo when in is a terminal. The token is never logged.
func ResolveToken(explicit string, in io.Reader) (string, error) {
	if explicit != "" {
		return explicit, nil
	}

	_ = godotenv.Load()
	if v := os.Getenv(tokenEnvVar); v != "" {
		return v, nil
	}

	token, err := promptToken(in)
	if err != nil {
		return "", Invalid(fmt.Errorf("no bot token provided"))
	}
	return token, nil
}

func promptToken(in io.Reader) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		for {
			fmt.Fprint(os.Stderr, "Bot token: ")
			raw, err := term.ReadPassword(int(f.Fd()))
			fmt.Fprintln(os.Stderr)
			if err != nil {
				return "", err
			}
			if token := strings.TrimSpace(string(raw)); token != "" {
				return token, nil
			}
		}
	}

	reader := bufio.NewReader(in)
	for {
		fmt.Fprint(os.Stderr, "Bot token: ")
		line, err := reader.ReadString('\n')
		if token := strings.TrimSpace(line); token != "" {
			return token, nil
		}
		if err != nil {
			return "", err
		}
	}
}

// ResolveID returns a syntactically valid Discord snowflake ID. An
// explicit flag value is validated as-is; otherwise the user is prompted
// on in, re-prompting on blank or non-numeric input until EOF.
func ResolveID(label, explicit string, in io.Reader) (string, error) {
	if explicit != "" {
		if !ValidSnowflake(explicit) {
			return "", Invalid(fmt.Errorf("%s must be a numeric ID, got %q", label, explicit))
		}
		return explicit, nil
	}

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprintf(os.Stderr, "%s: ", label)
		if !scanner.Scan() {
			return "", Invalid(fmt.Errorf("no %s provided", strings.ToLower(label)))
		}
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		if !ValidSnowflake(raw) {
			fmt.Fprintln(os.Stderr, "Please enter digits only.")
			continue
		}
		return raw, nil
	}
}

// ValidSnowflake reports whether s is a plausible Discord ID: a
// non-empty decimal string that fits in a uint64.
func ValidSnowflake(s string) bool {
	if s == "" {
		return false
	}
	_, err := strconv.ParseUint(s, 10, 64)
	return err == nil
}
