package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ritik-prog/Adaptive-Cognitive-Assessment-in-Middle-School-Children-server-sub000/internal/services"
	"github.com/ritik-prog/Adaptive-Cognitive-Assessment-in-Middle-School-Children-server-sub000/internal/utils"
)

type TopicPerformanceHandler struct {
	BaseHandler
	topicPerformanceService services.TopicPerformanceService
}

func NewTopicPerformanceHandler(topicPerformanceService services.TopicPerformanceService, logger utils.Logger) *TopicPerformanceHandler {
	return &TopicPerformanceHandler{
		BaseHandler:             NewBaseHandler(logger),
		topicPerformanceService: topicPerformanceService,
	}
}

// ListMyPerformance lists the caller's per-topic records
// @Summary List own topic performance
// @Tags topics
// @Produce json
// @Success 200 {object} SuccessResponse{data=[]models.TopicPerformance}
// @Router /topics/performance [get]
func (h *TopicPerformanceHandler) ListMyPerformance(c *gin.Context) {
	userID, _, ok := h.currentUser(c)
	if !ok {
		return
	}

	records, err := h.topicPerformanceService.ListForStudent(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Data: records})
}

// GetTopicPerformance returns one record. Teachers and admins may pass student_id.
// @Summary Get topic performance
// @Tags topics
// @Produce json
// @Param topic_id path string true "Topic ID"
// @Param student_id query string false "Student ID (teacher/admin)"
// @Success 200 {object} models.TopicPerformance
// @Failure 404 {object} ErrorResponse
// @Router /topics/{topic_id}/performance [get]
func (h *TopicPerformanceHandler) GetTopicPerformance(c *gin.Context) {
	userID, role, ok := h.currentUser(c)
	if !ok {
		return
	}

	studentID := userID
	if requested := strings.TrimSpace(c.Query("student_id")); requested != "" && requested != userID {
		if !role.IsElevated() {
			c.JSON(http.StatusForbidden, ErrorResponse{
				Message: "Access denied",
				Code:    services.ErrSessionAccessDenied.Code,
			})
			return
		}
		studentID = requested
	}

	record, err := h.topicPerformanceService.Get(c.Request.Context(), studentID, c.Param("topic_id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

// ResetTopicPerformance resets a student's record for one topic
// @Summary Reset topic performance
// @Tags topics
// @Produce json
// @Param topic_id path string true "Topic ID"
// @Param student_id query string true "Student ID"
// @Success 200 {object} models.TopicPerformance
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /topics/{topic_id}/performance/reset [post]
func (h *TopicPerformanceHandler) ResetTopicPerformance(c *gin.Context) {
	h.LogRequest(c, "Resetting topic performance")

	studentID := strings.TrimSpace(c.Query("student_id"))
	if studentID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "student_id is required",
			Code:    "INVALID_PARAMETER",
		})
		return
	}

	record, err := h.topicPerformanceService.Reset(c.Request.Context(), studentID, c.Param("topic_id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

// ListStudentPerformance lists another student's records
// @Summary List a student's topic performance
// @Tags topics
// @Produce json
// @Param student_id path string true "Student ID"
// @Success 200 {object} SuccessResponse{data=[]models.TopicPerformance}
// @Router /students/{student_id}/topics/performance [get]
func (h *TopicPerformanceHandler) ListStudentPerformance(c *gin.Context) {
	records, err := h.topicPerformanceService.ListForStudent(c.Request.Context(), c.Param("student_id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Data: records})
}
