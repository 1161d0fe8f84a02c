package domain

import "time"

// Report represents a complete calculation report
type Report struct {
	Title     string
	Meta      RunMeta
	NumSites  int
	NumLevels int
	Sections  []ReportSection
}

// RunMeta is the run metadata block printed at the top of every report
type RunMeta struct {
	Checksum32    uint32
	Date          time.Time
	EngineVersion string
}

// ReportSection is a titled section holding either a table, a literal
// block, or both
type ReportSection struct {
	Title   string
	Table   *ReportTable
	Literal string
}

// ReportTable is a grid table with a header row
type ReportTable struct {
	Header []string
	Rows   [][]string
}
