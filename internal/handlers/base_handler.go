package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ritik-prog/Adaptive-Cognitive-Assessment-in-Middle-School-Children-server-sub000/internal/models"
	"github.com/ritik-prog/Adaptive-Cognitive-Assessment-in-Middle-School-Children-server-sub000/internal/services"
	"github.com/ritik-prog/Adaptive-Cognitive-Assessment-in-Middle-School-Children-server-sub000/internal/utils"
)

type ErrorResponse struct {
	Message string      `json:"message"`
	Code    string      `json:"code,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

type SuccessResponse struct {
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

func (h *BaseHandler) requestLogger(c *gin.Context) utils.Logger {
	return utils.FromContext(c.Request.Context(), h.logger)
}

func (h *BaseHandler) LogRequest(c *gin.Context, msg string) {
	h.requestLogger(c).Debug(msg,
		"method", c.Request.Method,
		"path", c.FullPath(),
		"user_id", c.GetString("user_id"))
}

func (h *BaseHandler) LogError(c *gin.Context, err error, msg string) {
	h.requestLogger(c).Error(msg,
		"error", err,
		"method", c.Request.Method,
		"path", c.FullPath(),
		"user_id", c.GetString("user_id"))
}

// currentUser returns the authenticated user id and role, writing a 401 when absent.
func (h *BaseHandler) currentUser(c *gin.Context) (string, models.UserRole, bool) {
	userID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return "", "", false
	}
	role, err := GetUserRoleFromContext(c)
	if err != nil {
		role = models.RoleStudent
	}
	return userID, role, true
}

func (h *BaseHandler) parseIDParam(c *gin.Context, param string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + param,
			Code:    "INVALID_PARAMETER",
		})
		return 0, false
	}
	return uint(id), true
}

func (h *BaseHandler) parseIntQuery(c *gin.Context, param string, defaultValue int) int {
	valueStr := c.Query(param)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// handleServiceError maps the service error taxonomy onto HTTP statuses.
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Code:    "VALIDATION_FAILED",
			Details: validationErrors,
		})
		return
	}

	var permissionError *services.PermissionError
	if errors.As(err, &permissionError) {
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: "Access denied",
			Code:    services.ErrSessionAccessDenied.Code,
			Details: map[string]interface{}{
				"resource": permissionError.Resource,
				"action":   permissionError.Action,
				"reason":   permissionError.Reason,
			},
		})
		return
	}

	var serviceError *services.ServiceError
	if errors.As(err, &serviceError) && serviceError.Kind != services.KindInternal {
		resp := ErrorResponse{Message: serviceError.Message, Code: serviceError.Code}
		// wrapped sentinels carry extra context in their message
		if err.Error() != serviceError.Message {
			resp.Details = err.Error()
		}
		c.JSON(statusForKind(serviceError.Kind), resp)
		return
	}

	h.LogError(c, err, "Unexpected service error")
	resp := ErrorResponse{Message: "Internal server error", Code: "INTERNAL_ERROR"}
	if serviceError != nil {
		resp.Code = serviceError.Code
	}
	c.JSON(http.StatusInternalServerError, resp)
}

func statusForKind(kind services.ErrorKind) int {
	switch kind {
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindForbidden:
		return http.StatusForbidden
	case services.KindConflict:
		return http.StatusConflict
	case services.KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
