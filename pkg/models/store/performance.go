package store

type PerformanceRow struct {
	JobID     int64
	Operation string
	TimeSec   float64
	TimeSq    float64
	TimeMin   float64
	TimeMax   float64
	MemoryMB  float64
	Counts    int64
}
