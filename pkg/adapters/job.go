package adapters

import (
	"github.com/seismo-tools/hazengine/pkg/models/api"
	"github.com/seismo-tools/hazengine/pkg/models/domain"
	"github.com/seismo-tools/hazengine/pkg/models/store"
)

func MapStoreJobToDomain(j store.Job) domain.Job {
	return domain.Job{
		ID:            j.ID,
		Description:   j.Description,
		Mode:          j.Mode,
		Status:        domain.JobStatus(j.Status),
		User:          j.User,
		EngineVersion: j.EngineVersion,
		Checksum32:    j.Checksum32,
		IniPath:       j.IniPath,
		StartedAt:     j.StartedAt,
		StoppedAt:     j.StoppedAt,
	}
}

func MapDomainJobToStore(j domain.Job) store.Job {
	return store.Job{
		ID:            j.ID,
		Description:   j.Description,
		Mode:          j.Mode,
		Status:        string(j.Status),
		User:          j.User,
		EngineVersion: j.EngineVersion,
		Checksum32:    j.Checksum32,
		IniPath:       j.IniPath,
		StartedAt:     j.StartedAt,
		StoppedAt:     j.StoppedAt,
	}
}

func MapDomainJobToAPI(j domain.Job) api.Calculation {
	return api.Calculation{
		ID:            j.ID,
		Description:   j.Description,
		Mode:          j.Mode,
		Status:        string(j.Status),
		User:          j.User,
		EngineVersion: j.EngineVersion,
		Checksum32:    j.Checksum32,
		StartedAt:     j.StartedAt,
		StoppedAt:     j.StoppedAt,
	}
}

func MapStorePerformanceToAPI(rows []store.PerformanceRow) []api.OperationStats {
	out := make([]api.OperationStats, 0, len(rows))
	for _, r := range rows {
		out = append(out, api.OperationStats{
			Operation: r.Operation,
			TimeSec:   r.TimeSec,
			MemoryMB:  r.MemoryMB,
			Counts:    r.Counts,
		})
	}
	return out
}
