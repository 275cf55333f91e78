// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keyrack Contributors

package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the keyrack CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keyrack",
		Short: "Keyrack - an in-process credential and session manager",
		Long: `Keyrack is an embeddable credential and session manager: it registers
users, authenticates them, tracks login state, and lets an existing
administrator provision new accounts. State lives in process memory.`,
	}

	// Global flag for config file path
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	cmd.AddCommand(NewConsoleCmd())

	return cmd
}
