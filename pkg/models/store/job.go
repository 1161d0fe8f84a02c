package store

import "time"

type Job struct {
	ID            int64
	Description   string
	Mode          string
	Status        string
	User          string
	EngineVersion string
	Checksum32    uint32
	IniPath       string
	StartedAt     time.Time
	StoppedAt     *time.Time
}

type JobInput struct {
	JobID int64
	Key   string
	Path  string
	Size  int64
}

type Realization struct {
	JobID    int64
	Ordinal  int
	SmltPath string
	GsimPath string
	Weight   float64
}

type Output struct {
	JobID   int64
	Key     string
	Payload []byte
}
