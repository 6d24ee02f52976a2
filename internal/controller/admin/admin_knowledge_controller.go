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

type AdminKnowledgeController struct {
	knowledge service.KnowledgeService
}

func NewAdminKnowledgeController(knowledge service.KnowledgeService) *AdminKnowledgeController {
	return &AdminKnowledgeController{knowledge: knowledge}
}

// CreateDocument godoc
// @Summary Register a knowledge document upload
// @Tags Admin - Knowledge
// @Accept json
// @Produce json
// @Param request body dto.CreateDocumentRequest true "Document metadata"
// @Success 201 {object} dto.DocumentResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /admin/knowledge/documents [post]
func (c *AdminKnowledgeController) CreateDocument(ctx *gin.Context) {
	var req dto.CreateDocumentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}

	doc, err := c.knowledge.CreateDocument(ctx.Request.Context(), req.ProjectID, req.Filename, req.StorageURL)
	if err != nil {
		log.Error().Err(err).Msg("CreateDocument: service error")
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "Failed to create document"})
		return
	}
	ctx.JSON(http.StatusCreated, documentResponse(doc))
}

// ConfirmUpload godoc
// @Summary Confirm an upload and start indexing
// @Tags Admin - Knowledge
// @Accept json
// @Produce json
// @Param document_id path string true "Document ID"
// @Param request body dto.ConfirmUploadRequest true "Document content"
// @Success 202 {object} dto.DocumentResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /admin/knowledge/documents/{document_id}/confirm [post]
func (c *AdminKnowledgeController) ConfirmUpload(ctx *gin.Context) {
	var req dto.ConfirmUploadRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}

	doc, err := c.knowledge.ConfirmUpload(ctx.Request.Context(), ctx.Param("document_id"), req.Content)
	if errors.Is(err, service.ErrDocumentNotFound) {
		ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Message: "Document not found"})
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("ConfirmUpload: service error")
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "Failed to start indexing"})
		return
	}
	ctx.JSON(http.StatusAccepted, documentResponse(doc))
}

// ListDocuments godoc
// @Summary List knowledge documents
// @Tags Admin - Knowledge
// @Produce json
// @Param project_id query string true "Project ID"
// @Success 200 {array} dto.DocumentResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /admin/knowledge/documents [get]
func (c *AdminKnowledgeController) ListDocuments(ctx *gin.Context) {
	projectID := ctx.Query("project_id")
	if projectID == "" {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "project_id is required"})
		return
	}

	docs, err := c.knowledge.ListDocuments(ctx.Request.Context(), projectID)
	if err != nil {
		log.Error().Err(err).Msg("ListDocuments: service error")
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "Failed to list documents"})
		return
	}

	resp := make([]dto.DocumentResponse, len(docs))
	for i := range docs {
		resp[i] = documentResponse(&docs[i])
	}
	ctx.JSON(http.StatusOK, resp)
}

func documentResponse(doc *model.KnowledgeDocument) dto.DocumentResponse {
	var resp dto.DocumentResponse
	if err := copier.Copy(&resp, doc); err != nil {
		log.Error().Err(err).Msg("Document mapping failed")
	}
	return resp
}
