package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"solarman/internal/handlers/backup"
	"solarman/internal/models"
	"solarman/internal/services/submissions"
)

func newSubmissionsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "submissions",
		Aliases: []string{"subs"},
		Short:   "Inspect stored contact and consultation submissions",
	}
	cmd.AddCommand(newSubmissionsListCmd(a), newSubmissionsExportCmd(a))
	return cmd
}

// openStore opens the configured submission backend
func (a *app) openStore() (submissions.Store, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, err
	}

	opts := submissions.Options{
		Backend:     cfg.Storage.Backend,
		DatabaseURL: cfg.Storage.DatabaseURL,
	}
	if cfg.Storage.Backend == "file" {
		opts.Files, err = a.openStorage(cfg)
		if err != nil {
			return nil, err
		}
	}
	return submissions.Open(opts)
}

func newSubmissionsListCmd(a *app) *cobra.Command {
	var kind string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored submissions, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch kind {
			case "", models.KindContact, models.KindConsultation:
			default:
				return fmt.Errorf("unknown kind %q: use %s or %s", kind, models.KindContact, models.KindConsultation)
			}

			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			envs, err := store.List(cmd.Context(), kind)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(envs)
			}
			if len(envs) == 0 {
				fmt.Fprintln(out, "\n  No submissions found.")
				return nil
			}

			t := table{Headers: []string{"ID", "Kind", "Received", "Name", "Email", "Phone"}}
			for _, env := range envs {
				row, err := summaryRow(env)
				if err != nil {
					return err
				}
				t.Rows = append(t.Rows, row)
			}
			fmt.Fprintln(out)
			fmt.Fprint(out, renderTable(t))
			fmt.Fprintf(out, "  %d submission(s)\n", len(envs))
			return nil
		},
	}
	cmd.Flags().StringVarP(&kind, "kind", "k", "", "Only list contact or consultation submissions")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the stored records as JSON")
	return cmd
}

func summaryRow(env submissions.Envelope) ([]string, error) {
	id := env.ID
	if len(id) > 8 {
		id = id[:8]
	}
	row := []string{id, env.Kind, env.CreatedAt.Local().Format(time.DateTime)}

	switch env.Kind {
	case models.KindContact:
		var c models.Contact
		if err := env.Decode(&c); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", env.ID, err)
		}
		return append(row, c.Name, c.Email, c.Phone), nil
	case models.KindConsultation:
		var c models.Consultation
		if err := env.Decode(&c); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", env.ID, err)
		}
		return append(row, c.FullName(), c.Email, c.Phone), nil
	}
	return append(row, "", "", ""), nil
}

func newSubmissionsExportCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every submission to a ZIP archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if output == "" {
				output = "solarman_export_" + time.Now().Format("20060102_150405") + ".zip"
			}

			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			f, err := os.OpenFile(output, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
			if err != nil {
				return err
			}
			n, err := backup.WriteExport(cmd.Context(), store, f)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				os.Remove(output)
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "  Exported %d submission(s) to %s\n", n, output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Archive path (default solarman_export_<timestamp>.zip)")
	return cmd
}
