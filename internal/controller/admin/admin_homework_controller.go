package admin

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/copier"
	"github.com/kurslab/tutorium/internal/dto"
	"github.com/kurslab/tutorium/internal/model"
	"github.com/kurslab/tutorium/internal/service"
	"github.com/rs/zerolog/log"
)

type AdminHomeworkController struct {
	homework service.HomeworkService
}

func NewAdminHomeworkController(homework service.HomeworkService) *AdminHomeworkController {
	return &AdminHomeworkController{homework: homework}
}

// ListPending godoc
// @Summary List homework awaiting review
// @Tags Admin - Homework
// @Produce json
// @Param project_id query string true "Project ID"
// @Success 200 {array} dto.HomeworkSubmissionResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /admin/homework [get]
func (c *AdminHomeworkController) ListPending(ctx *gin.Context) {
	projectID := ctx.Query("project_id")
	if projectID == "" {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "project_id is required"})
		return
	}

	submissions, err := c.homework.ListPending(ctx.Request.Context(), projectID)
	if err != nil {
		log.Error().Err(err).Msg("ListPending: service error")
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "Failed to list homework"})
		return
	}

	resp := make([]dto.HomeworkSubmissionResponse, len(submissions))
	for i := range submissions {
		resp[i] = submissionResponse(&submissions[i])
	}
	ctx.JSON(http.StatusOK, resp)
}

// Review godoc
// @Summary Record a homework review
// @Tags Admin - Homework
// @Accept json
// @Produce json
// @Param submission_id path string true "Submission ID"
// @Param request body dto.ReviewHomeworkRequest true "Review verdict"
// @Success 200 {object} dto.HomeworkSubmissionResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /admin/homework/{submission_id}/review [post]
func (c *AdminHomeworkController) Review(ctx *gin.Context) {
	var req dto.ReviewHomeworkRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}

	submission, err := c.homework.Review(ctx.Request.Context(), service.ReviewParams{
		SubmissionID: ctx.Param("submission_id"),
		AdminUserID:  req.AdminUserID,
		Decision:     req.Decision,
		Score:        req.Score,
		Comment:      req.Comment,
	})
	if errors.Is(err, service.ErrSubmissionNotFound) {
		ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Message: "Homework submission not found"})
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("Review: service error")
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "Failed to record review"})
		return
	}
	ctx.JSON(http.StatusOK, submissionResponse(submission))
}

// Analyze godoc
// @Summary AI pre-read of a homework submission
// @Tags Admin - Homework
// @Produce json
// @Param submission_id path string true "Submission ID"
// @Success 200 {object} dto.HomeworkAnalysisResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /admin/homework/{submission_id}/analysis [get]
func (c *AdminHomeworkController) Analyze(ctx *gin.Context) {
	analysis, err := c.homework.Analyze(ctx.Request.Context(), ctx.Param("submission_id"))
	if errors.Is(err, service.ErrSubmissionNotFound) {
		ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Message: "Homework submission not found"})
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("Analyze: service error")
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "Failed to analyze submission"})
		return
	}
	ctx.JSON(http.StatusOK, dto.HomeworkAnalysisResponse{
		Summary:           analysis.Summary,
		SuggestedFeedback: analysis.SuggestedFeedback,
	})
}

func submissionResponse(submission *model.HomeworkSubmission) dto.HomeworkSubmissionResponse {
	var resp dto.HomeworkSubmissionResponse
	if err := copier.Copy(&resp, submission); err != nil {
		log.Error().Err(err).Msg("Homework submission mapping failed")
	}
	return resp
}
