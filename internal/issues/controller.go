package issues

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"issuetrack/internal/shared/middleware"
	"issuetrack/internal/shared/utils/response"
)

type Controller interface {
	CreateIssue(c *gin.Context)
	GetIssue(c *gin.Context)
	ListIssues(c *gin.Context)
	UpdateIssue(c *gin.Context)
	DeleteIssue(c *gin.Context)
}

type controller struct {
	service   Service
	validator *validator.Validate
}

func NewController(service Service) Controller {
	return &controller{
		service:   service,
		validator: validator.New(),
	}
}

func (ctrl *controller) CreateIssue(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		response.RespondJSON(c, response.StatusError, http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	var req CreateIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(c, response.StatusError, http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}
	if err := ctrl.validator.Struct(&req); err != nil {
		response.RespondJSON(c, response.StatusError, http.StatusBadRequest, "Validation failed", nil, err.Error())
		return
	}

	issue, err := ctrl.service.CreateIssue(c.Request.Context(), claims, req)
	if err != nil {
		ctrl.respondError(c, err, "Failed to create issue")
		return
	}

	response.RespondJSON(c, response.StatusSuccess, http.StatusCreated, "Issue created successfully", issue, nil)
}

func (ctrl *controller) GetIssue(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	issue, err := ctrl.service.GetIssue(c.Request.Context(), id)
	if err != nil {
		ctrl.respondError(c, err, "Failed to get issue")
		return
	}

	response.RespondJSON(c, response.StatusSuccess, http.StatusOK, "Issue retrieved successfully", issue, nil)
}

func (ctrl *controller) ListIssues(c *gin.Context) {
	var query ListIssuesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.RespondJSON(c, response.StatusError, http.StatusBadRequest, "Invalid query parameters", nil, err.Error())
		return
	}

	list, err := ctrl.service.ListIssues(c.Request.Context(), query)
	if err != nil {
		ctrl.respondError(c, err, "Failed to list issues")
		return
	}

	response.RespondJSON(c, response.StatusSuccess, http.StatusOK, "Issues retrieved successfully", list, nil)
}

func (ctrl *controller) UpdateIssue(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		response.RespondJSON(c, response.StatusError, http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req UpdateIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(c, response.StatusError, http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}
	if err := ctrl.validator.Struct(&req); err != nil {
		response.RespondJSON(c, response.StatusError, http.StatusBadRequest, "Validation failed", nil, err.Error())
		return
	}

	issue, err := ctrl.service.UpdateIssue(c.Request.Context(), claims, id, req)
	if err != nil {
		ctrl.respondError(c, err, "Failed to update issue")
		return
	}

	response.RespondJSON(c, response.StatusSuccess, http.StatusOK, "Issue updated successfully", issue, nil)
}

func (ctrl *controller) DeleteIssue(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		response.RespondJSON(c, response.StatusError, http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := ctrl.service.DeleteIssue(c.Request.Context(), claims, id); err != nil {
		ctrl.respondError(c, err, "Failed to delete issue")
		return
	}

	response.RespondJSON(c, response.StatusSuccess, http.StatusOK, "Issue deleted successfully", nil, nil)
}

func (ctrl *controller) respondError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrIssueNotFound):
		response.RespondJSON(c, response.StatusError, http.StatusNotFound, "Issue not found", nil, nil)
	case errors.Is(err, ErrNotIssueOwner):
		response.RespondJSON(c, response.StatusError, http.StatusForbidden, "Forbidden: not your issue", nil, nil)
	case errors.Is(err, ErrInvalidPriority), errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrInvalidFilter):
		response.RespondJSON(c, response.StatusError, http.StatusBadRequest, err.Error(), nil, nil)
	default:
		response.RespondJSON(c, response.StatusError, http.StatusInternalServerError, fallback, nil, nil)
	}
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondJSON(c, response.StatusError, http.StatusBadRequest, "Invalid issue ID", nil, err.Error())
		return uuid.Nil, false
	}
	return id, true
}
