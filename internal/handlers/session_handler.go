package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ritik-prog/Adaptive-Cognitive-Assessment-in-Middle-School-Children-server-sub000/internal/models"
	"github.com/ritik-prog/Adaptive-Cognitive-Assessment-in-Middle-School-Children-server-sub000/internal/repositories"
	"github.com/ritik-prog/Adaptive-Cognitive-Assessment-in-Middle-School-Children-server-sub000/internal/services"
	"github.com/ritik-prog/Adaptive-Cognitive-Assessment-in-Middle-School-Children-server-sub000/internal/utils"
)

type SessionHandler struct {
	BaseHandler
	sessionService services.SessionService
	exportService  services.ExportService
}

func NewSessionHandler(
	sessionService services.SessionService,
	exportService services.ExportService,
	logger utils.Logger,
) *SessionHandler {
	return &SessionHandler{
		BaseHandler:    NewBaseHandler(logger),
		sessionService: sessionService,
		exportService:  exportService,
	}
}

// StartSession starts a new adaptive or fixed session
// @Summary Start session
// @Tags sessions
// @Accept json
// @Produce json
// @Param session body services.StartSessionRequest true "Session parameters"
// @Success 201 {object} services.StartSessionResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /sessions [post]
func (h *SessionHandler) StartSession(c *gin.Context) {
	h.LogRequest(c, "Starting assessment session")

	userID, _, ok := h.currentUser(c)
	if !ok {
		return
	}

	var req services.StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	resp, err := h.sessionService.Start(c.Request.Context(), userID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// GetActiveSession returns the caller's active session with its current question
// @Summary Get active session
// @Tags sessions
// @Produce json
// @Success 200 {object} services.SessionResponse
// @Failure 404 {object} ErrorResponse
// @Router /sessions/active [get]
func (h *SessionHandler) GetActiveSession(c *gin.Context) {
	userID, _, ok := h.currentUser(c)
	if !ok {
		return
	}

	resp, err := h.sessionService.GetActive(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	if resp == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "No active session",
			Code:    services.ErrSessionNotFound.Code,
		})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// AbandonSession abandons the caller's active session
// @Summary Abandon active session
// @Tags sessions
// @Produce json
// @Success 200 {object} models.AssessmentSession
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /sessions/abandon [post]
func (h *SessionHandler) AbandonSession(c *gin.Context) {
	h.LogRequest(c, "Abandoning assessment session")

	userID, _, ok := h.currentUser(c)
	if !ok {
		return
	}

	session, err := h.sessionService.Abandon(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

// CleanupStaleSessions abandons the caller's active sessions past the staleness window
// @Summary Cleanup stale sessions
// @Tags sessions
// @Produce json
// @Success 200 {object} SuccessResponse
// @Router /sessions/cleanup [post]
func (h *SessionHandler) CleanupStaleSessions(c *gin.Context) {
	userID, _, ok := h.currentUser(c)
	if !ok {
		return
	}

	count, err := h.sessionService.CleanupStaleSessions(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Stale sessions cleaned up",
		Data:    gin.H{"abandoned": count},
	})
}

// ListSessions lists the caller's sessions, newest first
// @Summary List sessions
// @Tags sessions
// @Produce json
// @Param status query string false "Filter by status"
// @Param chapter_id query string false "Filter by chapter"
// @Param page query int false "Page number"
// @Param size query int false "Page size"
// @Success 200 {object} services.SessionListResponse
// @Router /sessions [get]
func (h *SessionHandler) ListSessions(c *gin.Context) {
	userID, _, ok := h.currentUser(c)
	if !ok {
		return
	}

	resp, err := h.sessionService.List(c.Request.Context(), userID, h.parseSessionFilters(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetSessionStats summarizes the caller's session history
// @Summary Session statistics
// @Tags sessions
// @Produce json
// @Success 200 {object} repositories.StudentSessionStats
// @Router /sessions/stats [get]
func (h *SessionHandler) GetSessionStats(c *gin.Context) {
	userID, _, ok := h.currentUser(c)
	if !ok {
		return
	}

	stats, err := h.sessionService.GetStats(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetSession returns one session; teachers and admins may read any session
// @Summary Get session
// @Tags sessions
// @Produce json
// @Param id path uint true "Session ID"
// @Success 200 {object} services.SessionResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id} [get]
func (h *SessionHandler) GetSession(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}
	userID, role, ok := h.currentUser(c)
	if !ok {
		return
	}

	resp, err := h.sessionService.GetSession(c.Request.Context(), id, userID, role)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// SubmitAnswer judges the answer to the current question
// @Summary Submit answer
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path uint true "Session ID"
// @Param answer body services.SubmitAnswerRequest true "Answer"
// @Success 200 {object} services.SubmitAnswerResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /sessions/{id}/answer [post]
func (h *SessionHandler) SubmitAnswer(c *gin.Context) {
	h.LogRequest(c, "Submitting answer")

	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}
	userID, _, ok := h.currentUser(c)
	if !ok {
		return
	}

	var req services.SubmitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	resp, err := h.sessionService.SubmitAnswer(c.Request.Context(), id, userID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ExportSession downloads the session report as an xlsx workbook
// @Summary Export session
// @Tags sessions
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path uint true "Session ID"
// @Success 200 {file} file
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id}/export [get]
func (h *SessionHandler) ExportSession(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}
	userID, role, ok := h.currentUser(c)
	if !ok {
		return
	}

	file, err := h.exportService.ExportSession(c.Request.Context(), id, userID, role)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

func (h *SessionHandler) parseSessionFilters(c *gin.Context) repositories.SessionFilters {
	page := h.parseIntQuery(c, "page", 1)
	size := h.parseIntQuery(c, "size", 20)
	if page < 1 {
		page = 1
	}

	filters := repositories.SessionFilters{
		Limit:     size,
		Offset:    (page - 1) * size,
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}

	if status := strings.TrimSpace(c.Query("status")); status != "" {
		sessionStatus := models.SessionStatus(status)
		filters.Status = &sessionStatus
	}
	if chapterID := strings.TrimSpace(c.Query("chapter_id")); chapterID != "" {
		filters.ChapterID = &chapterID
	}

	return filters
}
