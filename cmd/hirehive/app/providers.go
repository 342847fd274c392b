// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/stacklok/hirehive/pkg/platforms/credentials"
	"github.com/stacklok/hirehive/pkg/platforms/providers"
)

func newProvidersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List the recruitment platforms that can be connected",
		Long: `Lists every registered recruitment platform, whether its OAuth integration
is offered and whether client credentials are configured in the environment.
Platforms without credentials are connected with a simulated token.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printProviders(cmd.OutOrStdout(), credentials.NewEnvResolver(nil))
		},
	}
}

func printProviders(w io.Writer, creds credentials.Resolver) error {
	table := tablewriter.NewWriter(w)
	table.Options(
		tablewriter.WithHeader([]string{"ID", "Platform", "Available", "Credentials"}),
		tablewriter.WithRendition(
			tw.Rendition{
				Borders: tw.Border{
					Left:   tw.State(1),
					Top:    tw.State(1),
					Right:  tw.State(1),
					Bottom: tw.State(1),
				},
			},
		),
		tablewriter.WithAlignment(tw.MakeAlign(4, tw.AlignLeft)),
	)

	for _, p := range providers.All() {
		available := "No"
		if p.Available {
			available = "Yes"
		}
		configured := "simulated"
		if _, ok := creds.Resolve(p); ok {
			configured = "configured"
		}
		if err := table.Append([]string{p.ID, p.PlatformName, available, configured}); err != nil {
			return fmt.Errorf("failed to append row: %w", err)
		}
	}

	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}
	return nil
}
