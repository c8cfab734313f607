package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/taskflowhq/taskflow/internal/canvas"
	"github.com/taskflowhq/taskflow/internal/integration"
	"github.com/taskflowhq/taskflow/internal/notion"
	"github.com/taskflowhq/taskflow/internal/syncer"
	"github.com/taskflowhq/taskflow/pkg/respond"
)

// IntegrationHandler exposes the provider sync and sink push/pull triggers.
type IntegrationHandler struct {
	canvas *canvas.Adapter
	notion *notion.Adapter
	syncer *syncer.Service
	logger *zap.Logger
}

func NewIntegrationHandler(canvasAdapter *canvas.Adapter, notionAdapter *notion.Adapter, syncSvc *syncer.Service, logger *zap.Logger) *IntegrationHandler {
	return &IntegrationHandler{
		canvas: canvasAdapter,
		notion: notionAdapter,
		syncer: syncSvc,
		logger: logger,
	}
}

func (h *IntegrationHandler) ListCanvasCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := h.canvas.ListCourses(r.Context())
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, courses)
}

type canvasSyncRequest struct {
	CourseIDs []int64 `json:"course_ids"`
}

func (h *IntegrationHandler) CanvasSync(w http.ResponseWriter, r *http.Request) {
	var req canvasSyncRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respond.Error(w, r, http.StatusBadRequest, "invalid json")
			return
		}
	}

	stats, err := h.syncer.Sync(r.Context(), req.CourseIDs)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, stats)
}

type notionPushRequest struct {
	TaskIDs   []string `json:"task_ids"`
	CourseIDs []int64  `json:"course_ids"`
	Limit     int      `json:"limit"`
}

func (h *IntegrationHandler) NotionPush(w http.ResponseWriter, r *http.Request) {
	var req notionPushRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respond.Error(w, r, http.StatusBadRequest, "invalid json")
			return
		}
	}

	ids, err := parseUUIDs(req.TaskIDs)
	if err != nil {
		respond.Error(w, r, http.StatusBadRequest, "invalid task_id in task_ids")
		return
	}

	stats, err := h.notion.Push(r.Context(), ids, req.CourseIDs, req.Limit)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, stats)
}

type notionPullRequest struct {
	TaskIDs []string `json:"task_ids"`
}

func (h *IntegrationHandler) NotionPull(w http.ResponseWriter, r *http.Request) {
	var req notionPullRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respond.Error(w, r, http.StatusBadRequest, "invalid json")
			return
		}
	}

	ids, err := parseUUIDs(req.TaskIDs)
	if err != nil {
		respond.Error(w, r, http.StatusBadRequest, "invalid task_id in task_ids")
		return
	}

	stats, err := h.notion.PullStatusUpdates(r.Context(), ids)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, stats)
}

func (h *IntegrationHandler) handleErrors(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, integration.ErrAuth):
		respond.Error(w, r, http.StatusUnauthorized, err.Error())
	case errors.Is(err, integration.ErrRequest):
		respond.Error(w, r, http.StatusBadGateway, err.Error())
	default:
		h.logger.Error("internal error", zap.Error(err))
		respond.Error(w, r, http.StatusInternalServerError, "internal error")
	}
}
