package runtime

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/copier"
	"github.com/kurslab/tutorium/internal/dto"
	"github.com/kurslab/tutorium/internal/service"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// RuntimeController exposes the learner-facing session operations. It binds
// requests and maps errors; all behavior lives in the session runtime.
type RuntimeController struct {
	runtime  service.SessionRuntime
	homework service.HomeworkService
}

func NewRuntimeController(runtime service.SessionRuntime, homework service.HomeworkService) *RuntimeController {
	return &RuntimeController{runtime: runtime, homework: homework}
}

// ProcessMessage godoc
// @Summary Route a learner message through the session
// @Tags Runtime
// @Accept json
// @Produce json
// @Param request body dto.MessageRequest true "Learner message"
// @Success 200 {object} dto.ActionsResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /runtime/message [post]
func (c *RuntimeController) ProcessMessage(ctx *gin.Context) {
	var req dto.MessageRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}

	actions, err := c.runtime.ProcessMessage(ctx.Request.Context(), req.ProjectID, req.UserID, req.Text)
	if err != nil {
		respondError(ctx, err, "ProcessMessage")
		return
	}
	ctx.JSON(http.StatusOK, dto.ActionsResponse{Actions: actions})
}

// StartTest godoc
// @Summary Start a test attempt
// @Tags Runtime
// @Accept json
// @Produce json
// @Param request body dto.StartTestRequest true "Test selection"
// @Success 200 {object} dto.ActionsResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /runtime/tests/start [post]
func (c *RuntimeController) StartTest(ctx *gin.Context) {
	var req dto.StartTestRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}

	actions, err := c.runtime.StartTest(ctx.Request.Context(), req.ProjectID, req.UserID, req.TestID)
	if err != nil {
		respondError(ctx, err, "StartTest")
		return
	}
	ctx.JSON(http.StatusOK, dto.ActionsResponse{Actions: actions})
}

// SubmitTest godoc
// @Summary Submit test answers for grading
// @Tags Runtime
// @Accept json
// @Produce json
// @Param request body dto.SubmitTestRequest true "Answers keyed by question id"
// @Success 200 {object} dto.ActionsResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /runtime/tests/submit [post]
func (c *RuntimeController) SubmitTest(ctx *gin.Context) {
	var req dto.SubmitTestRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}

	actions, err := c.runtime.SubmitTest(ctx.Request.Context(), req.ProjectID, req.UserID, req.AttemptID, req.Answers)
	if err != nil {
		respondError(ctx, err, "SubmitTest")
		return
	}
	ctx.JSON(http.StatusOK, dto.ActionsResponse{Actions: actions})
}

// RequestHomework godoc
// @Summary Request a homework assignment
// @Tags Runtime
// @Accept json
// @Produce json
// @Param request body dto.MessageRequest true "Session identity"
// @Success 200 {object} dto.ActionsResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /runtime/homework/request [post]
func (c *RuntimeController) RequestHomework(ctx *gin.Context) {
	var req struct {
		ProjectID string `json:"project_id" binding:"required,uuid"`
		UserID    string `json:"user_id" binding:"required,uuid"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}

	actions, err := c.runtime.RequestHomework(ctx.Request.Context(), req.ProjectID, req.UserID)
	if err != nil {
		respondError(ctx, err, "RequestHomework")
		return
	}
	ctx.JSON(http.StatusOK, dto.ActionsResponse{Actions: actions})
}

// SubmitHomework godoc
// @Summary Submit homework
// @Tags Runtime
// @Accept json
// @Produce json
// @Param request body dto.SubmitHomeworkRequest true "Homework content"
// @Success 200 {object} dto.HomeworkSubmissionResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /runtime/homework/submit [post]
func (c *RuntimeController) SubmitHomework(ctx *gin.Context) {
	var req dto.SubmitHomeworkRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}

	submission, err := c.homework.Submit(ctx.Request.Context(), req.ProjectID, req.UserID, req.ContentType, req.ContentText, req.FileURL)
	if err != nil {
		respondError(ctx, err, "SubmitHomework")
		return
	}

	var resp dto.HomeworkSubmissionResponse
	if err := copier.Copy(&resp, submission); err != nil {
		log.Error().Err(err).Msg("SubmitHomework: response mapping failed")
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "Internal server error"})
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// ListHomework godoc
// @Summary List the learner's homework submissions
// @Tags Runtime
// @Produce json
// @Param project_id query string true "Project ID"
// @Param user_id query string true "User ID"
// @Success 200 {array} dto.HomeworkSubmissionResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /runtime/homework [get]
func (c *RuntimeController) ListHomework(ctx *gin.Context) {
	projectID := ctx.Query("project_id")
	userID := ctx.Query("user_id")
	if projectID == "" || userID == "" {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "project_id and user_id are required"})
		return
	}

	submissions, err := c.homework.ListForUser(ctx.Request.Context(), projectID, userID)
	if err != nil {
		respondError(ctx, err, "ListHomework")
		return
	}

	resp := make([]dto.HomeworkSubmissionResponse, len(submissions))
	for i := range submissions {
		if err := copier.Copy(&resp[i], &submissions[i]); err != nil {
			log.Error().Err(err).Msg("ListHomework: response mapping failed")
			ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "Internal server error"})
			return
		}
	}
	ctx.JSON(http.StatusOK, resp)
}

// CompleteSession godoc
// @Summary Finish the learning session
// @Tags Runtime
// @Accept json
// @Produce json
// @Success 200 {object} dto.ActionsResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /runtime/session/complete [post]
func (c *RuntimeController) CompleteSession(ctx *gin.Context) {
	var req struct {
		ProjectID string `json:"project_id" binding:"required,uuid"`
		UserID    string `json:"user_id" binding:"required,uuid"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}

	actions, err := c.runtime.CompleteSession(ctx.Request.Context(), req.ProjectID, req.UserID)
	if err != nil {
		respondError(ctx, err, "CompleteSession")
		return
	}
	ctx.JSON(http.StatusOK, dto.ActionsResponse{Actions: actions})
}

// GetSession godoc
// @Summary Get the current session and its legal events
// @Tags Runtime
// @Produce json
// @Param project_id query string true "Project ID"
// @Param user_id query string true "User ID"
// @Success 200 {object} dto.SessionResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /runtime/session [get]
func (c *RuntimeController) GetSession(ctx *gin.Context) {
	projectID := ctx.Query("project_id")
	userID := ctx.Query("user_id")
	if projectID == "" || userID == "" {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "project_id and user_id are required"})
		return
	}

	session, events, err := c.runtime.GetSession(ctx.Request.Context(), projectID, userID)
	if err != nil {
		respondError(ctx, err, "GetSession")
		return
	}

	var resp dto.SessionResponse
	if err := copier.Copy(&resp, session); err != nil {
		log.Error().Err(err).Msg("GetSession: response mapping failed")
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "Internal server error"})
		return
	}
	resp.State = string(session.State)
	resp.AvailableEvents = events
	ctx.JSON(http.StatusOK, resp)
}

func respondError(ctx *gin.Context, err error, op string) {
	switch {
	case errors.Is(err, service.ErrIllegalTransition), errors.Is(err, service.ErrUnknownEvent):
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: err.Error()})
	case errors.Is(err, service.ErrNoTests),
		errors.Is(err, service.ErrAttemptNotFound),
		errors.Is(err, service.ErrSubmissionNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Message: err.Error()})
	default:
		log.Error().Err(err).Str("operation", op).Msg("Runtime operation failed")
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "Internal server error"})
	}
}
