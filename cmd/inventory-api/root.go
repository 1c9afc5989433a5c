package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the inventory API CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inventory-api",
		Short: "Inventory API - user accounts and a product catalog over HTTP",
		Long: `inventory-api serves user registration, login, and session token
validation alongside a product catalog whose writes require a valid token.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}
