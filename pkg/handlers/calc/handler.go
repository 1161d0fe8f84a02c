package calc

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/seismo-tools/hazengine/pkg/adapters"
	"github.com/seismo-tools/hazengine/pkg/report"
	jobstore "github.com/seismo-tools/hazengine/pkg/store/sqlite/job"
	resultstore "github.com/seismo-tools/hazengine/pkg/store/sqlite/result"
)

const defaultListLimit = 50

type Handler struct {
	jobs    jobstore.Store
	results resultstore.Store
	builder *report.Builder
}

func NewHandler(jobs jobstore.Store, results resultstore.Store, builder *report.Builder) *Handler {
	return &Handler{
		jobs:    jobs,
		results: results,
		builder: builder,
	}
}

func (h *Handler) ListCalculations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)

	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	jobs, err := h.jobs.List(ctx, limit)
	if err != nil {
		logger.Error().Err(err).Msg("failed to list calculations")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	response := make([]interface{}, 0, len(jobs))
	for _, job := range jobs {
		response = append(response, adapters.MapDomainJobToAPI(adapters.MapStoreJobToDomain(job)))
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.Error().Err(err).Msg("failed to encode calculations")
	}
}

func (h *Handler) GetCalculation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)

	jobID, ok := h.calcID(w, r)
	if !ok {
		return
	}

	job, err := h.jobs.Get(ctx, jobID)
	if err != nil {
		h.writeLookupError(w, logger, jobID, err)
		return
	}

	response := adapters.MapDomainJobToAPI(adapters.MapStoreJobToDomain(*job))
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.Error().Err(err).Int64("calc_id", jobID).Msg("failed to encode calculation")
	}
}

func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)

	jobID, ok := h.calcID(w, r)
	if !ok {
		return
	}

	rpt, err := h.builder.Build(ctx, jobID)
	if err != nil {
		h.writeLookupError(w, logger, jobID, err)
		return
	}

	w.Header().Set("Content-Type", "text/x-rst; charset=utf-8")
	w.Header().Set("X-Download-Token", uuid.NewString())
	if err := report.NewWriter().Write(rpt, w); err != nil {
		logger.Error().Err(err).Int64("calc_id", jobID).Msg("failed to render report")
	}
}

func (h *Handler) GetPerformance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)

	jobID, ok := h.calcID(w, r)
	if !ok {
		return
	}

	// a job lookup first, so unknown ids are 404 rather than empty
	if _, err := h.jobs.Get(ctx, jobID); err != nil {
		h.writeLookupError(w, logger, jobID, err)
		return
	}

	rows, err := h.results.GetPerformance(ctx, jobID)
	if err != nil {
		logger.Error().Err(err).Int64("calc_id", jobID).Msg("failed to get performance")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if err := json.NewEncoder(w).Encode(adapters.MapStorePerformanceToAPI(rows)); err != nil {
		logger.Error().Err(err).Int64("calc_id", jobID).Msg("failed to encode performance")
	}
}

func (h *Handler) calcID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	jobID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		http.Error(w, "invalid calculation id", http.StatusBadRequest)
		return 0, false
	}
	return jobID, true
}

func (h *Handler) writeLookupError(w http.ResponseWriter, logger *zerolog.Logger, jobID int64, err error) {
	if errors.Is(err, jobstore.ErrNotFound) {
		http.Error(w, "calculation not found", http.StatusNotFound)
		return
	}
	logger.Error().Err(err).Int64("calc_id", jobID).Msg("calculation lookup failed")
	http.Error(w, "internal error", http.StatusInternalServerError)
}
