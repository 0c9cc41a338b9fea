package main

import (
	"fmt"
	"os"

	"github.com/deskmind/deskmind/internal/cli"
	"github.com/deskmind/deskmind/internal/cli/admin"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "deskmindd",
		Short: "Deskmind daemon and CLI",
		Long:  "Deskmind daemon for running the helpdesk answering API and managing the knowledge base",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.SeedCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
