package commands

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/seismo-tools/hazengine/pkg/report"
	"github.com/seismo-tools/hazengine/pkg/services/job"
	"github.com/seismo-tools/hazengine/pkg/store/sqlite"
	jobstore "github.com/seismo-tools/hazengine/pkg/store/sqlite/job"
	resultstore "github.com/seismo-tools/hazengine/pkg/store/sqlite/result"
	"github.com/spf13/cobra"
)

type ReportCmd struct {
	settingsPath string
	outPath      string
	output       io.Writer
}

func NewReportCmd(output io.Writer) *cobra.Command {
	rc := &ReportCmd{output: output}
	cmd := &cobra.Command{
		Use:   "report <calc_id>",
		Short: "Render the report of a finished calculation",
		Args:  cobra.ExactArgs(1),
		RunE:  rc.run,
	}

	cmd.Flags().StringVar(&rc.settingsPath, "settings", "", "Path to the engine settings file")
	cmd.Flags().StringVarP(&rc.outPath, "output", "o", "", "Write the report to a file instead of stdout")

	return cmd
}

func (rc *ReportCmd) run(cmd *cobra.Command, args []string) error {
	jobID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid calculation id %q", args[0])
	}

	settings, err := job.LoadSettings(rc.settingsPath)
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

	rpt, err := report.NewBuilder(jobs, results).Build(cmd.Context(), jobID)
	if err != nil {
		return err
	}

	out := rc.output
	if rc.outPath != "" {
		f, err := os.Create(rc.outPath)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", rc.outPath, err)
		}
		defer f.Close()
		out = f
	}
	return report.NewWriter().Write(rpt, out)
}
