package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/octobees/lead-campaign/internal/dto"
	"github.com/octobees/lead-campaign/internal/repository"
	"github.com/octobees/lead-campaign/internal/service"
)

// LeadsHandler exposes the campaign dashboard endpoints.
type LeadsHandler struct {
	service *service.LeadsService
}

// NewLeadsHandler creates a new handler instance.
func NewLeadsHandler(service *service.LeadsService) *LeadsHandler {
	return &LeadsHandler{service: service}
}

// Stats handles GET /api/stats requests.
func (h *LeadsHandler) Stats(c echo.Context) error {
	stats, err := h.service.Stats(c.Request().Context())
	if err != nil {
		return Error(c, http.StatusInternalServerError, "failed to load campaign stats")
	}
	return Success(c, http.StatusOK, "stats retrieved", stats)
}

// List handles GET /api/leads requests.
func (h *LeadsHandler) List(c echo.Context) error {
	filter := dto.LeadListFilter{
		Status: strings.TrimSpace(c.QueryParam("status")),
		Limit:  parseIntDefault(c.QueryParam("limit"), 0),
	}

	leads, err := h.service.List(c.Request().Context(), filter)
	if err != nil {
		return Error(c, http.StatusInternalServerError, "failed to list leads")
	}
	return Success(c, http.StatusOK, "leads retrieved", leads)
}

// Get handles GET /api/leads/:id requests.
func (h *LeadsHandler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return Error(c, http.StatusBadRequest, "invalid lead id")
	}

	lead, err := h.service.Get(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrLeadNotFound) {
			return Error(c, http.StatusNotFound, "lead not found")
		}
		return Error(c, http.StatusInternalServerError, "failed to load lead")
	}
	return Success(c, http.StatusOK, "lead retrieved", lead)
}

// MarkResponse handles POST /api/leads/:id/response requests.
func (h *LeadsHandler) MarkResponse(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return Error(c, http.StatusBadRequest, "invalid lead id")
	}

	var req dto.MarkResponseRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "invalid payload")
	}

	if err := h.service.MarkResponse(c.Request().Context(), id, req.Notes); err != nil {
		if errors.Is(err, repository.ErrLeadNotFound) {
			return Error(c, http.StatusNotFound, "lead not found")
		}
		return Error(c, http.StatusInternalServerError, "failed to record response")
	}
	return Success(c, http.StatusOK, "response recorded", nil)
}

// UpdateNotes handles PATCH /api/leads/:id/notes requests.
func (h *LeadsHandler) UpdateNotes(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return Error(c, http.StatusBadRequest, "invalid lead id")
	}

	var req dto.UpdateNotesRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "invalid payload")
	}

	if err := h.service.UpdateNotes(c.Request().Context(), id, req.Notes); err != nil {
		if errors.Is(err, repository.ErrLeadNotFound) {
			return Error(c, http.StatusNotFound, "lead not found")
		}
		return Error(c, http.StatusInternalServerError, "failed to update notes")
	}
	return Success(c, http.StatusOK, "notes updated", nil)
}

// Timeline handles GET /api/timeline requests.
func (h *LeadsHandler) Timeline(c echo.Context) error {
	days := parseIntDefault(c.QueryParam("days"), 0)

	entries, err := h.service.Timeline(c.Request().Context(), days)
	if err != nil {
		return Error(c, http.StatusInternalServerError, "failed to load timeline")
	}
	return Success(c, http.StatusOK, "timeline retrieved", entries)
}

// TopPerformers handles GET /api/leads/top requests.
func (h *LeadsHandler) TopPerformers(c echo.Context) error {
	limit := parseIntDefault(c.QueryParam("limit"), 0)

	leads, err := h.service.TopPerformers(c.Request().Context(), limit)
	if err != nil {
		return Error(c, http.StatusInternalServerError, "failed to load top performers")
	}
	return Success(c, http.StatusOK, "top performers retrieved", leads)
}

// Search handles GET /api/leads/search requests.
func (h *LeadsHandler) Search(c echo.Context) error {
	query := strings.TrimSpace(c.QueryParam("q"))
	if query == "" {
		return Error(c, http.StatusBadRequest, "query parameter q is required")
	}

	leads, err := h.service.Search(c.Request().Context(), query, parseIntDefault(c.QueryParam("limit"), 0))
	if err != nil {
		return Error(c, http.StatusInternalServerError, "failed to search leads")
	}
	return Success(c, http.StatusOK, "search results retrieved", leads)
}

// ExportCSV handles GET /admin/export requests.
func (h *LeadsHandler) ExportCSV(c echo.Context) error {
	filename := fmt.Sprintf("leads_export_%s.csv", time.Now().Format("2006-01-02"))
	c.Response().Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	c.Response().WriteHeader(http.StatusOK)

	return h.service.ExportCSV(c.Request().Context(), c.Response())
}

// Health handles GET /health requests. The store check runs on every call
// so the probe reflects actual connectivity.
func (h *LeadsHandler) Health(c echo.Context) error {
	if err := h.service.Health(c.Request().Context()); err != nil {
		return Error(c, http.StatusServiceUnavailable, "database unreachable")
	}
	return Success(c, http.StatusOK, "service healthy", map[string]any{"database": "ok"})
}

func parseID(c echo.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}

func parseIntDefault(input string, fallback int) int {
	if input == "" {
		return fallback
	}
	if value, err := strconv.Atoi(input); err == nil {
		return value
	}
	return fallback
}
