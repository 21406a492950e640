package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newConfigCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the effective server configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if src := cfg.Source(); src != "" {
				fmt.Fprintf(out, "# loaded from %s\n", src)
			} else {
				fmt.Fprintln(out, "# defaults and environment only (no config file)")
			}
			if cfg.Storage.Password != "" {
				fmt.Fprintln(out, "# storage password set through SOLARMAN_STORAGE_PASSWORD")
			}
			return cfg.Encode(out)
		},
	}
}
