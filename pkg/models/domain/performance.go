package domain

// OperationStats is the aggregated timing record for one monitored
// operation of a calculation
type OperationStats struct {
	Operation string
	TimeSec   float64
	MemoryMB  float64
	Counts    int64
}
