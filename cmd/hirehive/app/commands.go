// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package app provides the entry point for the hirehive command-line application.
package app

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/stacklok/hirehive/pkg/config"
	"github.com/stacklok/hirehive/pkg/logger"
)

// NewRootCmd creates a new root command for the hirehive CLI.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "hirehive",
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		Short:             "hirehive connects recruitment platforms to the HR application",
		Long: `hirehive runs the OAuth2 authorization-code integration that connects
recruitment platforms (LinkedIn Recruiter, Indeed, ...) to the HR application.

Provider client credentials are read from <PROVIDER>_CLIENT_ID and
<PROVIDER>_CLIENT_SECRET. Platforms without credentials are connected with a
simulated token so the product stays usable without provisioning them.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initConfig(cmd)
		},
		Run: func(cmd *cobra.Command, _ []string) {
			// If no subcommand is provided, print help
			if err := cmd.Help(); err != nil {
				logger.Errorf("Error displaying help: %v", err)
			}
		},
	}

	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug mode")
	rootCmd.PersistentFlags().String("config", "", "Path to a config file (yaml, json or toml)")
	rootCmd.PersistentFlags().String("sqlite-path", config.DefaultSQLitePath(), "Path of the SQLite database")
	rootCmd.PersistentFlags().String("state-backend", config.BackendSQLite, "Authorization state store: memory, sqlite or redis")
	rootCmd.PersistentFlags().String("connections-backend", config.BackendSQLite, "Platform connection store: memory or sqlite")
	rootCmd.PersistentFlags().String("redis-addr", "", "Redis address for the redis state backend")

	bindFlag(rootCmd, config.KeyDebug, "debug")
	bindFlag(rootCmd, config.KeySQLitePath, "sqlite-path")
	bindFlag(rootCmd, config.KeyStateBackend, "state-backend")
	bindFlag(rootCmd, config.KeyConnectionsBackend, "connections-backend")
	bindFlag(rootCmd, config.KeyRedisAddr, "redis-addr")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newCleanupCmd())
	rootCmd.AddCommand(newProvidersCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, lookupFlag(cmd, flag)); err != nil {
		logger.Errorf("failed to bind flag %s: %v", flag, err)
	}
}

func lookupFlag(cmd *cobra.Command, flag string) *pflag.Flag {
	if f := cmd.Flags().Lookup(flag); f != nil {
		return f
	}
	return cmd.PersistentFlags().Lookup(flag)
}

func initConfig(cmd *cobra.Command) error {
	config.SetDefaults(viper.GetViper())

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		viper.SetConfigFile(path)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	// Re-initialize so the debug flag and config file take effect.
	logger.Initialize()
	return nil
}

func loadConfig() (*config.Config, error) {
	return config.Load(viper.GetViper(), nil)
}
