// Copyright 2025 The BuildingID Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/jcodagnone/buildingid/server"
	"github.com/jcodagnone/buildingid/store"
)

var serveOptions struct {
	addr    string
	noStore bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local JSON API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		svc, err := newService()
		if err != nil {
			return err
		}

		var repo store.Repository

		if !serveOptions.noStore {
			db, r, err := openRepository(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			repo = r
		}

		addr := serveOptions.addr
		if addr == "" {
			addr = cfg.Server.Addr
		}

		gin.SetMode(gin.ReleaseMode)

		fmt.Fprintf(cmd.ErrOrStderr(), "📍 Serving on http://%s\n", addr)

		return server.NewServer(svc, repo, server.WithAllowedOrigins(cfg.Server.AllowedOrigins...)).Run(cmd.Context(), addr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveOptions.addr, "addr", "", "listen address (default from config)")
	serveCmd.Flags().BoolVar(&serveOptions.noStore, "no-store", false, "do not open the result store")

	rootCmd.AddCommand(serveCmd)
}
