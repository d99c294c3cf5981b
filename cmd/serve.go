// File: cmd/serve.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/wa-humanizer/internal/adminapi"
	"github.com/xkilldash9x/wa-humanizer/internal/config"
	"github.com/xkilldash9x/wa-humanizer/internal/humanizer"
	"github.com/xkilldash9x/wa-humanizer/internal/observability"
)

func newServeCmd(cfg *config.Interface, provider settingsProvider) *cobra.Command {
	var addr string

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the admin API for plan previews and humanizer settings",
		Long: `Starts the HTTP admin API. Operators use it to preview plans and to read,
replace or reset the humanizer config document. Without a database the API
serves the built-in defaults read-only.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			if addr != "" {
				(*cfg).SetAdminListenAddr(addr)
			}
			if err := (*cfg).Admin().Validate(); err != nil {
				return fmt.Errorf("invalid admin configuration: %w", err)
			}

			backend, cleanup, err := provider.Create(ctx, *cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			var (
				source humanizer.SettingsSource
				writer adminapi.SettingsWriter
			)
			if backend != nil {
				if err := backend.EnsureSchema(ctx); err != nil {
					return err
				}
				source, writer = backend, backend
			} else {
				logger.Warn("No database configured; the admin API serves the default humanizer config read-only.")
			}

			configs := newConfigStore(source, *cfg)
			engine := humanizer.NewEngine(configs, logger)
			handlers := adminapi.NewHandlers(logger, engine, configs, writer)
			server := adminapi.NewServer((*cfg).Admin(), handlers, logger)

			logger.Debug("Admin API configured.",
				zap.String("address", (*cfg).Admin().ListenAddr),
				zap.Bool("writable", writer != nil),
				zap.Bool("auth", (*cfg).Admin().AuthSecret != ""),
			)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return server.Run(gctx) })
			if w, ok := backend.(watchingBackend); ok {
				// Hand edits to the settings directory take effect without waiting out the TTL.
				g.Go(func() error {
					return w.Watch(gctx, func(key string) {
						if key == configs.Key() {
							configs.Invalidate()
						}
					})
				})
			}
			return g.Wait()
		},
	}

	serveCmd.Flags().StringVar(&addr, "addr", "", "listen address, overriding admin.listen_addr")
	return serveCmd
}
