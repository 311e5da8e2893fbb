package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// CredentialEnv overrides a credential missing from the file
const CredentialEnv = "SMARTOUTLET_WIFI_CREDENTIAL"

// ErrCredentialRequired is returned when no source supplies a WPA2 credential
var ErrCredentialRequired = errors.New("network credential required: set network.credential, " +
	CredentialEnv + ", or run interactively")

// Prompter asks the user for a secret
type Prompter func(prompt string) (string, error)

// TerminalPrompter reads a secret from in without echo. Returns nil when in
// is not a terminal.
func TerminalPrompter(in *os.File, out io.Writer) Prompter {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return nil
	}
	return func(prompt string) (string, error) {
		fmt.Fprint(out, prompt)
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("failed to read credential: %w", err)
		}
		return strings.TrimRight(string(b), "\r\n"), nil
	}
}

// ResolveCredential fills n.Credential from, in order, the file, the
// environment (via getenv) and prompt. Open networks need no credential.
func ResolveCredential(n *NetworkConfig, getenv func(string) string, prompt Prompter) error {
	if n.Security == SecurityOpen || n.Credential != "" {
		return nil
	}

	if getenv != nil {
		if v := getenv(CredentialEnv); v != "" {
			n.Credential = v
			return ValidateWiFiCredential(n.Credential, n.Security)
		}
	}

	if prompt == nil {
		return ErrCredentialRequired
	}

	v, err := prompt(fmt.Sprintf("Credential for %q: ", n.SSID))
	if err != nil {
		return err
	}
	if v == "" {
		return ErrCredentialRequired
	}
	n.Credential = v
	return ValidateWiFiCredential(n.Credential, n.Security)
}
