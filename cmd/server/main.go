// Command server runs the kanban API.
//
//	server            start the HTTP server (same as "server serve")
//	server migrate    apply sqlite migrations and print the schema version
//
// Settings come from the environment (a .env file in the working directory
// is loaded first) or from the file passed with --config.
package main

import (
	"context"
	"fmt"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/cobra"

	"github.com/sakif/kanban/internal/config"
	"github.com/sakif/kanban/internal/logging"
	sqliteRepo "github.com/sakif/kanban/internal/repository/sqlite"
	"github.com/sakif/kanban/internal/server"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "server",
	Short:         "Kanban board API server",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply sqlite migrations and print the schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if cfg.Store.Driver != config.DriverSQLite {
			return fmt.Errorf("migrate needs STORE_DRIVER=%s, got %q", config.DriverSQLite, cfg.Store.Driver)
		}

		store, err := server.OpenStore(cfg.Store)
		if err != nil {
			return err
		}
		defer store.Close()

		version, err := store.(*sqliteRepo.DB).SchemaVersion(context.Background())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: schema version %d\n", cfg.Store.DBPath, version)
		return nil
	},
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := logging.Setup(cfg.Log.Level, cfg.Log.Format, os.Stdout)
	if err != nil {
		return err
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	// Start blocks until SIGINT or SIGTERM.
	return srv.Start()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML or .env config file")
	rootCmd.AddCommand(serveCmd, migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
