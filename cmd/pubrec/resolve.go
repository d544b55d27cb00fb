// Pubrec - Community Recommendations from Shared Memberships
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pubrec

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tomtom215/pubrec/internal/recommend"
	"github.com/tomtom215/pubrec/internal/vk"
)

func newResolveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <profile>",
		Short: "Resolve a profile reference to a numeric user id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			if _, err := recommend.ParseProfileReference(args[0], cfg.Recommend.AcceptedHosts); err != nil {
				return a.fail(describeError(err, nil))
			}

			client, err := vk.New(&cfg.VK)
			if err != nil {
				return a.fail(err)
			}
			id, err := client.ResolveProfileReference(cmd.Context(), args[0])
			if err != nil {
				return a.fail(describeError(err, client))
			}

			fmt.Fprintf(a.out, "%d\t%s\n", id, recommend.FormatUserURL(cfg.Recommend.Site, id))
			return nil
		},
	}
}
