package main

import (
	"fmt"
	"net"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/seismo-tools/hazengine/pkg/metrics"
	"github.com/seismo-tools/hazengine/pkg/report"
	"github.com/seismo-tools/hazengine/pkg/server"
	"github.com/seismo-tools/hazengine/pkg/services/job"
	"github.com/seismo-tools/hazengine/pkg/store/sqlite"
	jobstore "github.com/seismo-tools/hazengine/pkg/store/sqlite/job"
	resultstore "github.com/seismo-tools/hazengine/pkg/store/sqlite/result"
	"github.com/spf13/cobra"
)

var settingsPath string

func main() {
	var rootCmd = &cobra.Command{
		Use:   "web",
		Short: "Start the engine web API",
		RunE:  runServer,
	}

	rootCmd.Flags().StringVarP(&settingsPath, "settings", "s", "",
		"Path to the engine settings file")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil {
		fmt.Printf("No .env file loaded: %v\n", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	settings, err := job.LoadSettings(settingsPath)
	if err != nil {
		return fmt.Errorf("failed to load engine settings: %w", err)
	}

	db, err := sqlite.NewDB(sqlite.Settings{Dir: settings.DatastoreDir})
	if err != nil {
		return fmt.Errorf("failed to open datastore: %w", err)
	}
	defer db.Close()

	jobs, err := jobstore.NewStore(db)
	if err != nil {
		return fmt.Errorf("failed to create job store: %w", err)
	}
	results, err := resultstore.NewStore(db)
	if err != nil {
		return fmt.Errorf("failed to create result store: %w", err)
	}

	addr := settings.ServerAddr
	host := os.Getenv("SERVER_HOST")
	port := os.Getenv("SERVER_PORT")
	if host != "" && port != "" {
		addr = net.JoinHostPort(host, port)
	}

	logger.Info().Str("datastore", settings.DatastoreDir).Msg("datastore opened")

	api := server.NewWebAPI(logger, server.Config{
		Addr: addr,
		Dependencies: server.Dependencies{
			Jobs:    jobs,
			Results: results,
			Builder: report.NewBuilder(jobs, results),
			Metrics: metrics.NewEngine(),
		},
	})

	return api.Start()
}
