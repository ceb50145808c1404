// Command sync runs sales and exchange-rate synchronizations from the command line.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sellerdash/backend/internal/application/salesync"
	"github.com/sellerdash/backend/internal/bootstrap"
	"github.com/sellerdash/backend/internal/domain/sales"
	"github.com/sellerdash/backend/internal/infrastructure/config"
	"github.com/sellerdash/backend/internal/infrastructure/logger"
	"github.com/sellerdash/backend/internal/infrastructure/persistence"
	"github.com/sellerdash/backend/internal/infrastructure/storage"
)

var (
	configPath string
	timeout    time.Duration

	cfg *config.Config
	log *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronize Lingxing sales and exchange rates",
	Long: `Pull monthly exchange rates and daily shop sales from the Lingxing ERP into the
dashboard database, outside of the API server.

Configuration is read from config.toml (or --config) and SELLERDASH_* variables.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if configPath != "" {
			cfg, err = config.LoadFile(configPath)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}
		log, err = bootstrap.NewLogger(cfg)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = logger.Sync(log)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a TOML config file")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", time.Hour, "Abort the command after this long")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(missingCmd)
	rootCmd.AddCommand(ratesCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(tokenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// commandContext is cancelled by SIGINT/SIGTERM or after --timeout
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

// syncEnv is the sync service with the resources it holds
type syncEnv struct {
	db      *persistence.Database
	repos   bootstrap.Repositories
	service *salesync.Service
}

func (e *syncEnv) Close() {
	if err := e.db.Close(); err != nil {
		log.Warn("Error closing database", zap.Error(err))
	}
}

// openSyncEnv opens the database and builds the sync service. withSource controls
// whether the ERP client is created, which requires credentials.
func openSyncEnv(ctx context.Context, withSource bool) (*syncEnv, error) {
	db, err := bootstrap.OpenDatabase(cfg, log)
	if err != nil {
		return nil, err
	}
	env := &syncEnv{db: db, repos: bootstrap.NewRepositories(db)}

	var source sales.SalesSource
	if withSource {
		client, err := bootstrap.NewLingxingClient(cfg, log)
		if err != nil {
			env.Close()
			return nil, err
		}
		source = client
	}
	svc := bootstrap.NewSyncService(cfg, env.repos, source, nil, log)

	if cfg.Storage.Enabled {
		store, err := bootstrap.NewReportStore(ctx, cfg, log)
		if err != nil {
			env.Close()
			return nil, err
		}
		bootstrap.ConnectHooks(svc, storage.NewReportExporter(store, env.repos.Sales, log.Named("export")), nil)
	}
	env.service = svc
	return env, nil
}
