// Copyright © 2024 Rak Laptudirm <rak@laptudirm.com>
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"laptudirm.com/x/schach/pkg/engine"
	"laptudirm.com/x/schach/pkg/games"
	"laptudirm.com/x/schach/pkg/server"
	"laptudirm.com/x/schach/pkg/session"
)

func Serve() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve games over HTTP and websockets",
		Args:  cobra.NoArgs,
		Long: heredoc.Doc(`serve starts an HTTP server which hosts one game session
			per window. Sessions are created and inspected through the
			/api/sessions endpoints and played live over /ws/{handle}.

			Every session gets its own instance of the configured
			engine, which is stopped when the session is deleted or
			the server shuts down.`),

		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
				config.Listen = listen
			}

			serverConfig := server.Config{
				Rules: config.Rules,
				Budgets: [games.ColorN]engine.Budget{
					config.Budget(games.White), config.Budget(games.Black),
				},
			}

			if config.Engine.Cmd != "" {
				serverConfig.NewEngine = func() (session.Searcher, error) {
					eng, err := engine.Start(config.Engine)
					if err != nil {
						return nil, err
					}

					return eng, nil
				}
			}

			srv := server.New(serverConfig)
			httpServer := &http.Server{
				Addr:              config.Listen,
				Handler:           srv.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errs := make(chan error, 1)
			go func() {
				logrus.Infof("serve: listening on %s", config.Listen)
				errs <- httpServer.ListenAndServe()
			}()

			select {
			case err := <-errs:
				if !errors.Is(err, http.ErrServerClosed) {
					_ = srv.Close()
					return err
				}
			case <-ctx.Done():
				logrus.Info("serve: shutting down")
			}

			shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := httpServer.Shutdown(shutdown); err != nil {
				logrus.WithError(err).Warn("serve: shutdown")
			}

			return srv.Close()
		},
	}

	cmd.Flags().StringP("listen", "l", "", "Address to listen on, like localhost:8080")

	return cmd
}
