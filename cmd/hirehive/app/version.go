// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/stacklok/hirehive/pkg/versions"
)

// newVersionCmd creates a new version command
func newVersionCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show the version of hirehive",
		Long:  `Display detailed version information about hirehive, including version number, git commit, build date, and Go version.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := versions.GetVersionInfo()
			if jsonOutput {
				return printJSONVersionInfo(cmd.OutOrStdout(), info)
			}
			printVersionInfo(cmd.OutOrStdout(), info)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version information as JSON")

	return cmd
}

func printVersionInfo(w io.Writer, info versions.VersionInfo) {
	fmt.Fprintf(w, "hirehive %s\n", info.Version)
	fmt.Fprintf(w, "Commit: %s\n", info.Commit)
	fmt.Fprintf(w, "Built: %s\n", info.BuildDate)
	fmt.Fprintf(w, "Go version: %s\n", info.GoVersion)
	fmt.Fprintf(w, "Platform: %s\n", info.Platform)
}

func printJSONVersionInfo(w io.Writer, info versions.VersionInfo) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(info)
}
