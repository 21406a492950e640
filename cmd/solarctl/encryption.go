package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"solarman/internal/services/storage"
)

func newEncryptCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "encrypt",
		Short: "Encrypt every stored submission file with a password",
		Long: "Encrypt the file backend's submissions at rest. The server then needs\n" +
			"SOLARMAN_STORAGE_PASSWORD to read and write them.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			if cfg.Storage.Backend != "file" {
				return fmt.Errorf("encryption applies to the file backend only, not %q", cfg.Storage.Backend)
			}
			s, err := storage.New(cfg.Storage.DataDirectory)
			if err != nil {
				return err
			}
			if s.IsEncrypted() {
				return storage.ErrAlreadyEncrypted
			}

			pw := cfg.Storage.Password
			if pw == "" {
				if pw, err = a.password("New storage password: "); err != nil {
					return err
				}
				confirm, err := a.password("Confirm password: ")
				if err != nil {
					return err
				}
				if confirm != pw {
					return errors.New("passwords do not match")
				}
			}

			if err := s.EnableEncryption(pw); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "  %s %s\n", goodStyle.Render("Encrypted"), s.Root())
			return nil
		},
	}
}

func newDecryptCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "decrypt",
		Short: "Decrypt stored submission files and turn encryption off",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			s, err := storage.New(cfg.Storage.DataDirectory)
			if err != nil {
				return err
			}
			if !s.IsEncrypted() {
				return storage.ErrNotEncrypted
			}

			pw := cfg.Storage.Password
			if pw == "" {
				if pw, err = a.password("Storage password: "); err != nil {
					return err
				}
			}

			if err := s.DisableEncryption(pw); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "  %s %s\n", goodStyle.Render("Decrypted"), s.Root())
			return nil
		},
	}
}
