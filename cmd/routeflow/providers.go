package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/BaSui01/routeflow/config"
	"github.com/BaSui01/routeflow/llm"
)

var providersCommand = &cobra.Command{
	Use:   "providers",
	Short: "List configured providers and their availability",
	RunE:  runProvidersCmd,
}

var providersConfigPath string

func init() {
	providersCommand.Flags().StringVar(&providersConfigPath, "config", "", "Path to config.yaml (optional)")
	rootCmd.AddCommand(providersCommand)
}

func runProvidersCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := config.NewLoader().WithConfigPath(providersConfigPath).Load()
	if err != nil {
		return err
	}

	reg := llm.NewRegistry(cfg.Credentials())
	snap := reg.Availability()

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PROVIDER\tDEFAULT MODEL\tVISION\tAVAILABLE")
	for _, name := range reg.Names() {
		info, _ := reg.Info(name)
		fmt.Fprintf(w, "%s\t%s\t%v\t%v\n", info.Name, info.DefaultModel, info.SupportsVision, snap[name])
	}
	return w.Flush()
}
