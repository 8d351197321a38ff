package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/99designs/keyring"
	"golang.org/x/term"
)

const (
	keyringServiceName = "org.oscore.ssn"
	keyringDirectory   = "~/.oscore_keys"
)

type backendType struct {
	config *Config
}

func (b backendType) String() string {
	if b.config == nil || len(b.config.Backend.AllowedBackends) == 0 {
		return string(keyring.InvalidBackend)
	}
	return string(b.config.Backend.AllowedBackends[0])
}

func (b backendType) Set(v string) error {
	value := keyring.BackendType(v)
	if b.config == nil {
		return fmt.Errorf("invalid backendType")
	}
	if v == "" {
		return nil
	}
	for _, name := range keyring.AvailableBackends() {
		if name == value {
			b.config.Backend.AllowedBackends = []keyring.BackendType{name}
			return nil
		}
	}
	return fmt.Errorf("unsupported credential storage '%s'", v)
}

func (c *Config) getPassword(prompt string) (string, error) {
	if c.password != nil && *c.password != "" {
		return *c.password, nil
	}

	var w io.Writer
	fd := int(os.Stdout.Fd())
	if term.IsTerminal(fd) {
		w = os.Stdout
	} else if term.IsTerminal(int(os.Stderr.Fd())) {
		w = os.Stderr
	} else {
		return "", fmt.Errorf("no terminal output available for password prompt")
	}

	fmt.Fprintf(w, "%s: ", prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", err
	}
	fmt.Fprintln(w)
	password := string(b)
	c.password = &password
	return password, nil
}

func (c *Config) openKeyring() (keyring.Keyring, error) {
	keyring.Debug = c.Debug
	if c.Backend.FileDir == "" {
		c.Backend.FileDir = keyringDirectory
	}
	kr, err := keyring.Open(c.Backend)
	if err != nil {
		return nil, fmt.Errorf("could not open keyring: %w", err)
	}
	return kr, nil
}
