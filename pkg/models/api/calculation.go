package api

import "time"

type Calculation struct {
	ID            int64      `json:"id"`
	Description   string     `json:"description"`
	Mode          string     `json:"calculation_mode"`
	Status        string     `json:"status"`
	User          string     `json:"user"`
	EngineVersion string     `json:"engine_version"`
	Checksum32    uint32     `json:"checksum32"`
	StartedAt     time.Time  `json:"started_at"`
	StoppedAt     *time.Time `json:"stopped_at,omitempty"`
}

type OperationStats struct {
	Operation string  `json:"operation"`
	TimeSec   float64 `json:"time_sec"`
	MemoryMB  float64 `json:"memory_mb"`
	Counts    int64   `json:"counts"`
}
