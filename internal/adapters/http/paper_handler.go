package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/studyflow/core/internal/application/services"
	"github.com/studyflow/core/internal/domain/entities"
	"github.com/studyflow/core/internal/infrastructure/logger"
	"github.com/studyflow/core/internal/ports"
)

// PaperHandler handles past-paper metadata requests
type PaperHandler struct {
	paperService *services.PaperService
	logger       *logger.Logger
}

// NewPaperHandler creates a new paper handler
func NewPaperHandler(paperService *services.PaperService, logger *logger.Logger) *PaperHandler {
	return &PaperHandler{
		paperService: paperService,
		logger:       logger,
	}
}

// CreatePaper handles paper metadata creation
func (h *PaperHandler) CreatePaper(c echo.Context) error {
	var req ports.CreatePaperRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	paper, err := h.paperService.CreatePaper(c.Request().Context(), req, getUserIDFromContext(c))
	if err != nil {
		h.logger.Error("Create paper failed", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	return c.JSON(http.StatusCreated, paper)
}

// GetPaper handles getting paper by ID
func (h *PaperHandler) GetPaper(c echo.Context) error {
	paperID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid paper ID")
	}

	paper, err := h.paperService.GetPaper(c.Request().Context(), paperID)
	if err != nil {
		if errors.Is(err, entities.ErrPaperNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Paper not found")
		}
		h.logger.Error("Get paper failed", "error", err, "paper_id", paperID)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to retrieve paper")
	}

	return c.JSON(http.StatusOK, paper)
}

// ListPapers handles listing papers with filters
func (h *PaperHandler) ListPapers(c echo.Context) error {
	filter := ports.PaperFilter{Limit: 50}

	if subjectID := c.QueryParam("subject_id"); subjectID != "" {
		filter.SubjectID = &subjectID
	}

	if session := c.QueryParam("session"); session != "" {
		filter.Session = &session
	}

	if yearStr := c.QueryParam("year"); yearStr != "" {
		year, err := strconv.Atoi(yearStr)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid year parameter")
		}
		filter.Year = &year
	}

	if limitStr := c.QueryParam("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid limit parameter")
		}
		filter.Limit = limit
	}

	if offsetStr := c.QueryParam("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil || offset < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid offset parameter")
		}
		filter.Offset = offset
	}

	papers, total, err := h.paperService.ListPapers(c.Request().Context(), filter)
	if err != nil {
		h.logger.Error("List papers failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to retrieve papers")
	}

	response := ports.PaginatedResponse[*entities.Paper]{
		Data:   papers,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	return c.JSON(http.StatusOK, response)
}

// DeletePaper handles paper metadata deletion
func (h *PaperHandler) DeletePaper(c echo.Context) error {
	paperID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid paper ID")
	}

	if err := h.paperService.DeletePaper(c.Request().Context(), paperID); err != nil {
		if errors.Is(err, entities.ErrPaperNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Paper not found")
		}
		h.logger.Error("Delete paper failed", "error", err, "paper_id", paperID)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to delete paper")
	}

	return c.JSON(http.StatusOK, ports.MessageResponse{Message: "Paper deleted successfully"})
}
