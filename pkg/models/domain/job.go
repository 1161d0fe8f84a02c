package domain

import "time"

// JobStatus tracks the lifecycle of a calculation job
type JobStatus string

const (
	JobCreated   JobStatus = "created"
	JobExecuting JobStatus = "executing"
	JobComplete  JobStatus = "complete"
	JobFailed    JobStatus = "failed"
)

// Job represents a single calculation run driven by a job.ini file
type Job struct {
	ID            int64
	Description   string
	Mode          string
	Status        JobStatus
	User          string
	EngineVersion string
	Checksum32    uint32
	IniPath       string
	StartedAt     time.Time
	StoppedAt     *time.Time
}

// Params holds the calculation parameters read from job.ini
type Params struct {
	Description            string
	Mode                   string
	RandomSeed             int64
	MasterSeed             int64
	LogicTreeSamples       int
	InvestigationTime      float64
	TruncationLevel        float64
	MaximumDistance        float64
	RuptureMeshSpacing     float64
	SESPerLogicTreePath    int
	Sites                  []Site
	RegionGridSpacing      float64
	IntensityMeasureTypes  []string
	IntensityMeasureLevels []float64
	ConcurrentTasks        int
	Inputs                 map[string]InputFile
}

// Site is a point of interest for the calculation
type Site struct {
	Lon float64
	Lat float64
}

// InputFile describes one resolved input referenced by job.ini
type InputFile struct {
	Key  string
	Path string
	Size int64
}
