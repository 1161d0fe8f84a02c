package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/seismo-tools/hazengine/pkg/metrics"
	"github.com/seismo-tools/hazengine/pkg/report"
	"github.com/seismo-tools/hazengine/pkg/services/calc"
	"github.com/seismo-tools/hazengine/pkg/services/job"
	"github.com/seismo-tools/hazengine/pkg/store/sqlite"
	jobstore "github.com/seismo-tools/hazengine/pkg/store/sqlite/job"
	resultstore "github.com/seismo-tools/hazengine/pkg/store/sqlite/result"
	"github.com/spf13/cobra"
)

type RunCmd struct {
	settingsPath    string
	concurrentTasks int
	noExport        bool
	registry        calc.Registry
	output          io.Writer
}

func NewRunCmd(registry calc.Registry, output io.Writer) *cobra.Command {
	rc := &RunCmd{registry: registry, output: output}
	cmd := &cobra.Command{
		Use:   "run <job.ini>",
		Short: "Run the calculation described by a job file",
		Args:  cobra.ExactArgs(1),
		RunE:  rc.run,
	}

	cmd.Flags().StringVar(&rc.settingsPath, "settings", "", "Path to the engine settings file")
	cmd.Flags().IntVar(&rc.concurrentTasks, "concurrent-tasks", 0, "Override the task pool size")
	cmd.Flags().BoolVar(&rc.noExport, "no-export", false, "Skip writing the calculation report")

	return cmd
}

func (rc *RunCmd) run(cmd *cobra.Command, args []string) error {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	ctx := logger.WithContext(cmd.Context())

	settings, err := job.LoadSettings(rc.settingsPath)
	if err != nil {
		return err
	}
	if rc.concurrentTasks > 0 {
		settings.ConcurrentTasks = rc.concurrentTasks
	}

	cfg, err := job.LoadConfig(args[0])
	if err != nil {
		return err
	}

	db, err := sqlite.NewDB(sqlite.Settings{Dir: settings.DatastoreDir})
	if err != nil {
		return fmt.Errorf("failed to open datastore: %w", err)
	}
	defer db.Close()

	jobs, err := jobstore.NewStore(db)
	if err != nil {
		return err
	}
	results, err := resultstore.NewStore(db)
	if err != nil {
		return err
	}

	var exporter calc.Exporter
	if !rc.noExport {
		exporter = report.NewExporter(report.NewBuilder(jobs, results))
	}

	engine := calc.NewEngine(rc.registry, jobs, results, settings, metrics.NewEngine(), exporter)
	jobID, err := engine.Run(ctx, cfg)
	if err != nil {
		return fmt.Errorf("calculation failed: %w", err)
	}

	fmt.Fprintf(rc.output, "calculation %d complete\n", jobID)
	return nil
}
