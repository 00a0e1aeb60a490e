package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cheyenne-cl/firegeo/internal/llm"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List AI providers and their configuration state",
	RunE: func(cmd *cobra.Command, _ []string) error {
		registry, err := initRegistry()
		if err != nil {
			return err
		}
		formatProviders(os.Stdout, registry)
		return nil
	},
}

func formatProviders(out io.Writer, registry *llm.Registry) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tMODEL\tCONFIGURED")
	_, _ = fmt.Fprintln(w, "--\t----\t-----\t----------")

	for _, p := range registry.Enabled() {
		configured := "no"
		if registry.IsConfigured(p.ID) {
			configured = "yes"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.ID, p.Name, p.DefaultModel, configured)
	}
	_ = w.Flush()
}

func init() {
	rootCmd.AddCommand(providersCmd)
}
