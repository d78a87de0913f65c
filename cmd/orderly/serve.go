package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/orderly/internal/cliconfig"
	"github.com/bft-labs/orderly/internal/server"
	"github.com/bft-labs/orderly/pkg/log"
)

func newServeCmd(logger *log.ZerologAdapter) *cobra.Command {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			watch := ""
			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
				watch = cfgFile
			}

			// ORDERLY_* overrides the file; explicit flags override both.
			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}

			if err := cfg.Validate(); err != nil {
				return err
			}
			logger.SetLevel(cfg.LogLevel)
			logger.Info("configuration", log.Any("config", cfg))

			srv, err := server.New(cfg,
				server.WithLogger(logger),
				server.WithConfigFile(watch),
				server.WithLevelFunc(func(level string) { logger.SetLevel(level) }),
			)
			if err != nil {
				return fmt.Errorf("create server: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
				return fmt.Errorf("serve: %w", err)
			}
			logger.Info("stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.orderly/config.toml)")
	cmd.Flags().StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address")
	cmd.Flags().IntVar(&cfg.Size, "size", cfg.Size, "number of records to create at startup")
	cmd.Flags().Float64Var(&cfg.KeySpacing, "key-spacing", cfg.KeySpacing, "gap between adjacent order keys after a rebalance")
	cmd.Flags().IntVar(&cfg.DefaultLimit, "default-limit", cfg.DefaultLimit, "page size when limit is missing or invalid")
	cmd.Flags().IntVar(&cfg.MaxLimit, "max-limit", cfg.MaxLimit, "largest page size served")
	cmd.Flags().IntVar(&cfg.ViewCacheSize, "view-cache-size", cfg.ViewCacheSize, "number of filtered views cached")
	cmd.Flags().IntVar(&cfg.MaxClients, "max-clients", cfg.MaxClients, "selections kept before the least recently used is dropped")
	cmd.Flags().DurationVar(&cfg.SelectionTTL, "selection-ttl", cfg.SelectionTTL, "drop selections idle for this long (0 keeps them)")
	cmd.Flags().DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "time allowed for in-flight requests on shutdown")
	cmd.Flags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	cmd.Flags().StringVar(&cfg.AllowedOrigins, "allowed-origins", cfg.AllowedOrigins, "comma-separated origins allowed to call the API from a browser")

	return cmd
}

