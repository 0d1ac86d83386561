package httpapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/riskibarqy/football-schedules/internal/domain/match"
	"github.com/riskibarqy/football-schedules/internal/platform/logging"
	"github.com/riskibarqy/football-schedules/internal/usecase"
)

const rootMessage = "Football schedules API is running 🚀"

// ScheduleReader serves the cached matches.
type ScheduleReader interface {
	List(ctx context.Context) ([]match.Match, error)
}

// ScheduleSyncer runs and reports schedule syncs.
type ScheduleSyncer interface {
	Run(ctx context.Context) (usecase.SyncReport, error)
	LastReport() (usecase.SyncReport, bool)
}

type Handler struct {
	schedules ScheduleReader
	syncer    ScheduleSyncer
	logger    *logging.Logger
	validator *validator.Validate
}

func NewHandler(schedules ScheduleReader, syncer ScheduleSyncer, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		schedules: schedules,
		syncer:    syncer,
		logger:    logger,
		validator: validator.New(),
	}
}

func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Root")
	defer span.End()

	writeText(ctx, w, http.StatusOK, rootMessage)
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListSchedules")
	defer span.End()

	if h.schedules == nil {
		writeError(ctx, w, fmt.Errorf("%w: schedule service is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	items, err := h.schedules.List(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "list schedules failed", "error", err)
		writeError(ctx, w, err)
		return
	}
	if items == nil {
		items = []match.Match{}
	}

	writeJSON(ctx, w, http.StatusOK, items)
}

func (h *Handler) GetLastSync(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetLastSync")
	defer span.End()

	if h.syncer == nil {
		writeError(ctx, w, fmt.Errorf("%w: schedule sync is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	report, ok := h.syncer.LastReport()
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: no schedule sync has completed yet", usecase.ErrNotFound))
		return
	}

	writeSuccess(ctx, w, http.StatusOK, report)
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}
