package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/croplab/paddyfield/internal/store"
)

var (
	logLevel  string
	storeKind string
	dataDir   string
	logger    *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "paddyfield",
	Short: "Paddy field algorithm optimizer",
	Long: `Paddyfield runs the paddy field evolutionary algorithm over declared
parameter spaces, with resumable runs, trace output, and an HTTP API.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Setup logger
		var level slog.Level
		switch logLevel {
		case "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		default:
			level = slog.LevelInfo
		}

		opts := &slog.HandlerOptions{Level: level}
		handler := slog.NewJSONHandler(os.Stdout, opts)
		logger = slog.New(handler)
		slog.SetDefault(logger)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&storeKind, "store", "fs", "Snapshot store backend: fs or sqlite")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "./data", "Base directory for run storage")
}

// openStore builds the snapshot store selected by the --store flag. The
// returned closer is a no-op for the filesystem backend.
func openStore() (store.Store, func() error, error) {
	switch storeKind {
	case "fs":
		fsStore, err := store.NewFSStore(dataDir)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create snapshot store: %w", err)
		}
		return fsStore, func() error { return nil }, nil
	case "sqlite":
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return nil, nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		dbStore := store.NewSQLiteStore(dataDir + "/runs.db")
		if err := dbStore.Init(); err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		return dbStore, dbStore.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q (use fs or sqlite)", storeKind)
	}
}
