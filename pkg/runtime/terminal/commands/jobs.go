package commands

import (
	"fmt"
	"io"

	"github.com/seismo-tools/hazengine/pkg/services/calc"
	"github.com/seismo-tools/hazengine/pkg/services/job"
	"github.com/seismo-tools/hazengine/pkg/store/sqlite"
	jobstore "github.com/seismo-tools/hazengine/pkg/store/sqlite/job"
	"github.com/spf13/cobra"
)

type JobsCmd struct {
	settingsPath string
	limit        int
	output       io.Writer
}

func NewJobsCmd(output io.Writer) *cobra.Command {
	jc := &JobsCmd{output: output}
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List recent calculations",
		RunE:  jc.run,
	}

	cmd.Flags().StringVar(&jc.settingsPath, "settings", "", "Path to the engine settings file")
	cmd.Flags().IntVar(&jc.limit, "limit", 20, "Number of calculations to show")

	return cmd
}

func (jc *JobsCmd) run(cmd *cobra.Command, _ []string) error {
	settings, err := job.LoadSettings(jc.settingsPath)
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
	rows, err := jobs.List(cmd.Context(), jc.limit)
	if err != nil {
		return err
	}

	fmt.Fprintf(jc.output, "%-6s %-15s %-10s %-20s %s\n",
		"id", "mode", "status", "started", "description")
	for _, row := range rows {
		fmt.Fprintf(jc.output, "%-6d %-15s %-10s %-20s %s\n",
			row.ID, row.Mode, row.Status,
			row.StartedAt.Format("2006-01-02T15:04:05"), row.Description)
	}
	return nil
}

// NewModesCmd lists the registered calculation modes
func NewModesCmd(registry calc.Registry, output io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "modes",
		Short: "List available calculation modes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, mode := range registry.ListModes() {
				fmt.Fprintln(output, mode)
			}
			return nil
		},
	}
}
