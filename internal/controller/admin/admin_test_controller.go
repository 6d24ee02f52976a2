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
	"gorm.io/gorm"
)

type AdminTestController struct {
	tests service.TestService
}

func NewAdminTestController(tests service.TestService) *AdminTestController {
	return &AdminTestController{tests: tests}
}

// GenerateTests godoc
// @Summary Start background AI test generation
// @Tags Admin - Tests
// @Accept json
// @Produce json
// @Param request body dto.GenerateTestsRequest true "Generation parameters"
// @Success 202 {object} dto.GenerationJobResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /admin/tests/generate [post]
func (c *AdminTestController) GenerateTests(ctx *gin.Context) {
	var req dto.GenerateTestsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}

	job, err := c.tests.GenerateTests(service.GenerateTestsParams{
		ProjectID:     req.ProjectID,
		Topic:         req.Topic,
		Difficulty:    req.Difficulty,
		Count:         req.Count,
		QuestionCount: req.QuestionCount,
	})
	if err != nil {
		log.Error().Err(err).Msg("GenerateTests: failed to start job")
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "Failed to start generation"})
		return
	}
	ctx.JSON(http.StatusAccepted, jobResponse(job))
}

// GetGenerationJob godoc
// @Summary Poll a generation job
// @Tags Admin - Tests
// @Produce json
// @Param job_id path string true "Job ID"
// @Success 200 {object} dto.GenerationJobResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /admin/tests/jobs/{job_id} [get]
func (c *AdminTestController) GetGenerationJob(ctx *gin.Context) {
	job, ok := c.tests.GetJob(ctx.Param("job_id"))
	if !ok {
		ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Message: "Generation job not found"})
		return
	}
	ctx.JSON(http.StatusOK, jobResponse(job))
}

// PublishTest godoc
// @Summary Publish a draft test
// @Tags Admin - Tests
// @Produce json
// @Param test_id path string true "Test ID"
// @Success 200 {object} dto.TestResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /admin/tests/{test_id}/publish [post]
func (c *AdminTestController) PublishTest(ctx *gin.Context) {
	test, err := c.tests.Publish(ctx.Request.Context(), ctx.Param("test_id"))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Message: "Test not found"})
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("PublishTest: service error")
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "Failed to publish test"})
		return
	}
	ctx.JSON(http.StatusOK, testResponse(test))
}

// ListTests godoc
// @Summary List tests for a project
// @Tags Admin - Tests
// @Produce json
// @Param project_id query string true "Project ID"
// @Param status query string false "Filter by status (DRAFT, PUBLISHED, ARCHIVED)"
// @Success 200 {array} dto.TestResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /admin/tests [get]
func (c *AdminTestController) ListTests(ctx *gin.Context) {
	projectID := ctx.Query("project_id")
	if projectID == "" {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "project_id is required"})
		return
	}

	tests, err := c.tests.List(ctx.Request.Context(), projectID, ctx.Query("status"))
	if err != nil {
		log.Error().Err(err).Msg("ListTests: service error")
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "Failed to list tests"})
		return
	}

	resp := make([]dto.TestResponse, len(tests))
	for i := range tests {
		resp[i] = testResponse(&tests[i])
	}
	ctx.JSON(http.StatusOK, resp)
}

// GetTest godoc
// @Summary Get one test
// @Tags Admin - Tests
// @Produce json
// @Param test_id path string true "Test ID"
// @Success 200 {object} dto.TestResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /admin/tests/{test_id} [get]
func (c *AdminTestController) GetTest(ctx *gin.Context) {
	test, err := c.tests.Get(ctx.Request.Context(), ctx.Param("test_id"))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Message: "Test not found"})
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("GetTest: service error")
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "Failed to load test"})
		return
	}
	ctx.JSON(http.StatusOK, testResponse(test))
}

func jobResponse(job *service.GenerationJob) dto.GenerationJobResponse {
	var resp dto.GenerationJobResponse
	if err := copier.Copy(&resp, job); err != nil {
		log.Error().Err(err).Msg("Generation job mapping failed")
	}
	return resp
}

func testResponse(test *model.Test) dto.TestResponse {
	var resp dto.TestResponse
	if err := copier.Copy(&resp, test); err != nil {
		log.Error().Err(err).Msg("Test mapping failed")
	}
	resp.Spec = []byte(test.Spec)
	return resp
}
