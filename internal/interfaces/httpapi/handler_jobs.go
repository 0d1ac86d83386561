package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/riskibarqy/football-schedules/internal/usecase"
)

type internalJobSyncRequest struct {
	// Reason is free text recorded in the run log, e.g. "manual backfill".
	Reason string `json:"reason" validate:"omitempty,max=200"`
}

func (h *Handler) RunSyncScheduleJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunSyncScheduleJob")
	defer span.End()

	if h.syncer == nil {
		writeError(ctx, w, fmt.Errorf("%w: schedule sync is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	req, err := decodeInternalJobSyncRequest(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	traceID, _ := traceMetaFromContext(ctx)
	h.logger.InfoContext(ctx, "sync schedule job triggered", "reason", strings.TrimSpace(req.Reason), "trace_id", traceID)

	report, err := h.syncer.Run(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "run sync schedule job failed", "run_id", report.RunID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, report)
}

func decodeInternalJobSyncRequest(r *http.Request) (internalJobSyncRequest, error) {
	if r.Body == nil {
		return internalJobSyncRequest{}, nil
	}

	decoder := jsoniter.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	var req internalJobSyncRequest
	if err := decoder.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return internalJobSyncRequest{}, nil
		}
		return internalJobSyncRequest{}, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err)
	}

	return req, nil
}
