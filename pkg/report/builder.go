// Package report assembles calculation reports from the datastore and
// renders them as reStructuredText.
package report

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strings"

	"github.com/seismo-tools/hazengine/pkg/models/domain"
	"github.com/seismo-tools/hazengine/pkg/models/store"
	jobstore "github.com/seismo-tools/hazengine/pkg/store/sqlite/job"
	resultstore "github.com/seismo-tools/hazengine/pkg/store/sqlite/result"
)

// Builder reads everything a report needs for one calculation id
type Builder struct {
	jobs    jobstore.Store
	results resultstore.Store
}

func NewBuilder(jobs jobstore.Store, results resultstore.Store) *Builder {
	return &Builder{jobs: jobs, results: results}
}

// Build assembles the full report for a calculation. Sections whose
// outputs the calculator did not produce are skipped; the slowest
// operations section is always present.
func (b *Builder) Build(ctx context.Context, jobID int64) (*domain.Report, error) {
	job, err := b.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}

	report := &domain.Report{
		Title: fmt.Sprintf("%s calculation (#%d)", job.Mode, job.ID),
		Meta: domain.RunMeta{
			Checksum32:    job.Checksum32,
			Date:          job.StartedAt,
			EngineVersion: job.EngineVersion,
		},
	}
	if job.Description != "" {
		report.Title = fmt.Sprintf("%s (#%d)", job.Description, job.ID)
	}

	var sitecol struct {
		NumSites  int `json:"num_sites"`
		NumLevels int `json:"num_levels"`
	}
	if err := b.results.GetOutput(ctx, jobID, "sitecol", &sitecol); err == nil {
		report.NumSites = sitecol.NumSites
		report.NumLevels = sitecol.NumLevels
	}

	if section, err := b.paramsSection(ctx, jobID); err == nil {
		report.Sections = append(report.Sections, *section)
	}

	inputs, err := b.jobs.GetInputs(ctx, jobID)
	if err != nil {
		return nil, err
	}
	report.Sections = append(report.Sections, inputFilesSection(job.IniPath, inputs))

	for _, build := range []func(context.Context, int64) (*domain.ReportSection, error){
		b.compositionSection,
		b.assocSection,
		b.exposureSection,
		b.lossSection,
		b.eventsSection,
	} {
		section, err := build(ctx, jobID)
		if err != nil {
			continue // output not produced by this calculation mode
		}
		report.Sections = append(report.Sections, *section)
	}

	perfRows, err := b.results.GetPerformance(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if section := taskInfoSection(perfRows); section != nil {
		report.Sections = append(report.Sections, *section)
	}
	report.Sections = append(report.Sections, performanceSection(perfRows))
	return report, nil
}

func (b *Builder) paramsSection(ctx context.Context, jobID int64) (*domain.ReportSection, error) {
	var params map[string]string
	if err := b.results.GetOutput(ctx, jobID, "params", &params); err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	table := &domain.ReportTable{Header: []string{"Name", "Value"}}
	for _, key := range keys {
		table.Rows = append(table.Rows, []string{key, params[key]})
	}
	return &domain.ReportSection{Title: "Parameters", Table: table}, nil
}

func inputFilesSection(iniPath string, inputs []store.JobInput) domain.ReportSection {
	table := &domain.ReportTable{Header: []string{"Name", "File", "Size"}}
	table.Rows = append(table.Rows, []string{"job_ini", rstLink(iniPath), "-"})
	for _, input := range inputs {
		table.Rows = append(table.Rows, []string{
			input.Key,
			rstLink(input.Path),
			fmt.Sprintf("%d B", input.Size),
		})
	}
	return domain.ReportSection{Title: "Input files", Table: table}
}

// rstLink renders a cross-reference link to an input file
func rstLink(path string) string {
	return fmt.Sprintf("`%s <%s>`_", filepath.Base(path), path)
}

func (b *Builder) compositionSection(ctx context.Context, jobID int64) (*domain.ReportSection, error) {
	var rows []domain.CompositionInfo
	if err := b.results.GetOutput(ctx, jobID, "composite_source_model", &rows); err != nil {
		return nil, err
	}

	table := &domain.ReportTable{
		Header: []string{"smlt_path", "weight", "gsim_logic_tree", "num_realizations"},
	}
	for _, row := range rows {
		table.Rows = append(table.Rows, []string{
			row.SmltPath,
			fmt.Sprintf("%.3f", row.Weight),
			row.GsimLogicTree,
			row.NumRealizations,
		})
	}
	return &domain.ReportSection{Title: "Composite source model", Table: table}, nil
}

func (b *Builder) assocSection(ctx context.Context, jobID int64) (*domain.ReportSection, error) {
	var rows []domain.AssocRow
	if err := b.results.GetOutput(ctx, jobID, "rlzs_assoc", &rows); err != nil {
		return nil, err
	}

	table := &domain.ReportTable{Header: []string{"trt", "gsim", "rlzs"}}
	for _, row := range rows {
		table.Rows = append(table.Rows, []string{row.TRT, row.GSIM, fmt.Sprint(row.Rlzs)})
	}
	return &domain.ReportSection{Title: "Realizations per (TRT, GSIM)", Table: table}, nil
}

func (b *Builder) exposureSection(ctx context.Context, jobID int64) (*domain.ReportSection, error) {
	var rows []domain.TaxonomyStats
	if err := b.results.GetOutput(ctx, jobID, "taxonomy_stats", &rows); err != nil {
		return nil, err
	}

	table := &domain.ReportTable{
		Header: []string{"taxonomy", "num_assets", "mean", "stddev", "min", "max"},
	}
	for _, row := range rows {
		table.Rows = append(table.Rows, []string{
			row.Taxonomy,
			fmt.Sprintf("%d", row.NumAssets),
			fmt.Sprintf("%.1f", row.Mean),
			fmt.Sprintf("%.1f", row.Stddev),
			fmt.Sprintf("%.1f", row.Min),
			fmt.Sprintf("%.1f", row.Max),
		})
	}
	return &domain.ReportSection{Title: "Exposure model", Table: table}, nil
}

func (b *Builder) lossSection(ctx context.Context, jobID int64) (*domain.ReportSection, error) {
	var rows []domain.LossStats
	if err := b.results.GetOutput(ctx, jobID, "loss_stats", &rows); err != nil {
		return nil, err
	}

	table := &domain.ReportTable{
		Header: []string{"taxonomy", "num_assets", "mean_loss", "stddev", "total_loss"},
	}
	for _, row := range rows {
		table.Rows = append(table.Rows, []string{
			row.Taxonomy,
			fmt.Sprintf("%d", row.NumAssets),
			fmt.Sprintf("%.2f", row.MeanLoss),
			fmt.Sprintf("%.2f", row.Stddev),
			fmt.Sprintf("%.2f", row.TotalLoss),
		})
	}
	return &domain.ReportSection{Title: "Loss statistics", Table: table}, nil
}

type eventCount struct {
	Rlz    int    `json:"rlz"`
	Gsim   string `json:"gsim"`
	Events int    `json:"events"`
}

func (b *Builder) eventsSection(ctx context.Context, jobID int64) (*domain.ReportSection, error) {
	var rows []eventCount
	if err := b.results.GetOutput(ctx, jobID, "events", &rows); err != nil {
		return nil, err
	}

	table := &domain.ReportTable{Header: []string{"rlz", "gsim", "events"}}
	for _, row := range rows {
		table.Rows = append(table.Rows, []string{
			fmt.Sprintf("%d", row.Rlz), row.Gsim, fmt.Sprintf("%d", row.Events),
		})
	}
	return &domain.ReportSection{Title: "Stochastic event sets", Table: table}, nil
}

// taskInfoSection summarizes the duration spread of the core task
// operations; nil when the calculation recorded none
func taskInfoSection(rows []store.PerformanceRow) *domain.ReportSection {
	table := &domain.ReportTable{
		Header: []string{"operation", "mean", "stddev", "min", "max", "num_tasks"},
	}
	for _, row := range rows {
		if !strings.HasPrefix(row.Operation, "total ") || row.Counts == 0 {
			continue
		}
		n := float64(row.Counts)
		mean := row.TimeSec / n
		stddev := 0.0
		if row.Counts > 1 {
			if v := (row.TimeSq - n*mean*mean) / (n - 1); v > 0 {
				stddev = math.Sqrt(v)
			}
		}
		table.Rows = append(table.Rows, []string{
			strings.TrimPrefix(row.Operation, "total "),
			fmt.Sprintf("%.5f", mean),
			fmt.Sprintf("%.5f", stddev),
			fmt.Sprintf("%.5f", row.TimeMin),
			fmt.Sprintf("%.5f", row.TimeMax),
			fmt.Sprintf("%d", row.Counts),
		})
	}
	if len(table.Rows) == 0 {
		return nil
	}
	return &domain.ReportSection{Title: "Task duration statistics", Table: table}
}

func performanceSection(rows []store.PerformanceRow) domain.ReportSection {
	table := &domain.ReportTable{
		Header: []string{"operation", "time_sec", "memory_mb", "counts"},
	}
	for _, row := range rows {
		table.Rows = append(table.Rows, []string{
			row.Operation,
			fmt.Sprintf("%.5f", row.TimeSec),
			fmt.Sprintf("%.3f", row.MemoryMB),
			fmt.Sprintf("%d", row.Counts),
		})
	}
	return domain.ReportSection{Title: "Slowest operations", Table: table}
}
