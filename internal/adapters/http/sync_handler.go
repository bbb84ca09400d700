package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/studyflow/core/internal/application/services"
	"github.com/studyflow/core/internal/domain/entities"
	"github.com/studyflow/core/internal/infrastructure/logger"
	"github.com/studyflow/core/internal/ports"
)

// SyncHandler exposes the snapshot read/write endpoints clients sync against.
type SyncHandler struct {
	snapshotService *services.SnapshotService
	logger          *logger.Logger
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(snapshotService *services.SnapshotService, logger *logger.Logger) *SyncHandler {
	return &SyncHandler{
		snapshotService: snapshotService,
		logger:          logger,
	}
}

// GetSnapshot returns the caller's full snapshot document. 404 means the
// user has never pushed; clients treat that as "seed from local data".
func (h *SyncHandler) GetSnapshot(c echo.Context) error {
	userID := getUserIDFromContext(c)

	response, err := h.snapshotService.GetSnapshot(c.Request().Context(), userID)
	if err != nil {
		if errors.Is(err, entities.ErrSnapshotNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "No snapshot stored")
		}
		h.logger.Error("Get snapshot failed", "error", err, "user_id", userID)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to retrieve snapshot")
	}

	return c.JSON(http.StatusOK, response)
}

// GetStatus returns only the snapshot's updated_at marker
func (h *SyncHandler) GetStatus(c echo.Context) error {
	userID := getUserIDFromContext(c)

	response, err := h.snapshotService.GetStatus(c.Request().Context(), userID)
	if err != nil {
		if errors.Is(err, entities.ErrSnapshotNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "No snapshot stored")
		}
		h.logger.Error("Get snapshot status failed", "error", err, "user_id", userID)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to retrieve snapshot status")
	}

	return c.JSON(http.StatusOK, response)
}

// UpsertSnapshot replaces the caller's snapshot with the supplied document
func (h *SyncHandler) UpsertSnapshot(c echo.Context) error {
	userID := getUserIDFromContext(c)

	var req ports.UpsertSnapshotRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	response, err := h.snapshotService.UpsertSnapshot(c.Request().Context(), userID, req)
	if err != nil {
		h.logger.Error("Upsert snapshot failed", "error", err, "user_id", userID)
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	return c.JSON(http.StatusOK, response)
}
