package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"solarman/internal/config"
	"solarman/internal/services/storage"
	"solarman/internal/version"
)

// passwordFunc asks the user for a password
type passwordFunc func(prompt string) (string, error)

// app carries state shared by every subcommand
type app struct {
	dataDir  string
	password passwordFunc
}

func newRootCmd(pw passwordFunc) *cobra.Command {
	a := &app{password: pw}

	root := &cobra.Command{
		Use:          "solarctl",
		Short:        "SolarMan savings and submissions tool",
		Long:         "Project solar savings, list stored submissions and manage encryption of the data directory.",
		Version:      version.Get().Short(),
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&a.dataDir, "data-dir", "d", "", "Data directory (default $SOLARMAN_DATA_DIR or ./data)")

	root.AddCommand(
		newProjectCmd(),
		newSubmissionsCmd(a),
		newEncryptCmd(a),
		newDecryptCmd(a),
		newValidateCmd(),
		newConfigCmd(a),
	)
	return root
}

// loadConfig reads the server configuration, honouring --data-dir
func (a *app) loadConfig() (*config.Config, error) {
	if a.dataDir != "" {
		if err := os.Setenv("SOLARMAN_DATA_DIR", a.dataDir); err != nil {
			return nil, err
		}
	}
	return config.Load()
}

// openStorage opens the data directory and unlocks it when encrypted. The
// password comes from SOLARMAN_STORAGE_PASSWORD or a prompt.
func (a *app) openStorage(cfg *config.Config) (*storage.Storage, error) {
	s, err := storage.New(cfg.Storage.DataDirectory)
	if err != nil {
		return nil, err
	}
	if !s.IsEncrypted() {
		return s, nil
	}

	pw := cfg.Storage.Password
	if pw == "" {
		pw, err = a.password("Storage password: ")
		if err != nil {
			return nil, err
		}
	}
	if err := s.Unlock(pw); err != nil {
		return nil, fmt.Errorf("unlocking storage: %w", err)
	}
	return s, nil
}

var stdin = bufio.NewReader(os.Stdin)

// promptPassword reads a password without echo from a terminal, or a plain
// line when stdin is piped
func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	line, err := stdin.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
