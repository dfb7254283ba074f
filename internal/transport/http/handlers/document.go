package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/docmesh/docman-service/internal/transport/http/middleware"
	"github.com/docmesh/docman-service/internal/usecase"
)

// DocumentHandler exposes document and file endpoints.
type DocumentHandler struct {
	documents *usecase.DocumentService
}

// NewDocumentHandler constructs DocumentHandler.
func NewDocumentHandler(documents *usecase.DocumentService) *DocumentHandler {
	return &DocumentHandler{documents: documents}
}

// RegisterRoutes binds document and file routes.
func (h *DocumentHandler) RegisterRoutes(docs, files *gin.RouterGroup) {
	docs.PUT("", h.Create)
	docs.GET("/list", h.List)
	docs.GET("/:id", h.Get)
	docs.DELETE("/:id", h.Delete)

	files.PUT("", h.UploadFile)
	files.GET("/:id/data", h.ReadFile)
}

// Create adds a new document owned by the authenticated user.
func (h *DocumentHandler) Create(c *gin.Context) {
	user, ok := middleware.AuthenticatedUser(c)
	if !ok {
		c.JSON(http.StatusForbidden, NewErrorResponse(c, "forbidden"))
		return
	}

	var req DocumentCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "title is required"))
		return
	}

	doc, err := h.documents.Create(c.Request.Context(), user, usecase.CreateDocumentInput{
		Title:       req.Title,
		Description: req.Description,
		Language:    req.Language,
	})
	if err != nil {
		RespondWithMappedError(c, err, nil, http.StatusInternalServerError, "failed to create document")
		return
	}

	c.JSON(http.StatusCreated, newDocumentPayload(*doc))
}

// Get returns a document owned by the authenticated user.
func (h *DocumentHandler) Get(c *gin.Context) {
	user, ok := middleware.AuthenticatedUser(c)
	if !ok {
		c.JSON(http.StatusForbidden, NewErrorResponse(c, "forbidden"))
		return
	}

	doc, err := h.documents.Get(c.Request.Context(), user, c.Param("id"))
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrDocumentNotFound, Status: http.StatusNotFound, Message: "document not found"},
		}, http.StatusInternalServerError, "failed to load document")
		return
	}

	c.JSON(http.StatusOK, newDocumentPayload(*doc))
}

// List returns the authenticated user's documents.
func (h *DocumentHandler) List(c *gin.Context) {
	user, ok := middleware.AuthenticatedUser(c)
	if !ok {
		c.JSON(http.StatusForbidden, NewErrorResponse(c, "forbidden"))
		return
	}

	docs, err := h.documents.List(c.Request.Context(), user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to list documents"))
		return
	}

	payloads := make([]DocumentPayload, 0, len(docs))
	for _, doc := range docs {
		payloads = append(payloads, newDocumentPayload(doc))
	}

	c.JSON(http.StatusOK, DocumentListResponse{Documents: payloads, Total: len(payloads)})
}

// Delete removes a document and tombstones its files. Stored content is
// reclaimed asynchronously by the cleanup consumer.
func (h *DocumentHandler) Delete(c *gin.Context) {
	user, ok := middleware.AuthenticatedUser(c)
	if !ok {
		c.JSON(http.StatusForbidden, NewErrorResponse(c, "forbidden"))
		return
	}

	err := h.documents.Delete(c.Request.Context(), user, c.Param("id"))
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrDocumentNotFound, Status: http.StatusNotFound, Message: "document not found"},
		}, http.StatusInternalServerError, "failed to delete document")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "document deleted"})
}

// UploadFile stores a multipart upload and attaches it to a document.
func (h *DocumentHandler) UploadFile(c *gin.Context) {
	user, ok := middleware.AuthenticatedUser(c)
	if !ok {
		c.JSON(http.StatusForbidden, NewErrorResponse(c, "forbidden"))
		return
	}

	documentID := strings.TrimSpace(c.PostForm("document_id"))
	if documentID == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "document_id is required"))
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "file is required"))
		return
	}

	content, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "failed to read upload"))
		return
	}
	defer content.Close()

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	file, err := h.documents.UploadFile(c.Request.Context(), user, usecase.UploadFileInput{
		DocumentID: documentID,
		Name:       header.Filename,
		MimeType:   mimeType,
		Size:       header.Size,
		Content:    content,
	})
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrDocumentNotFound, Status: http.StatusNotFound, Message: "document not found"},
			{Err: usecase.ErrQuotaExceeded, Status: http.StatusRequestEntityTooLarge, Message: "storage quota exceeded"},
		}, http.StatusInternalServerError, "failed to store file")
		return
	}

	c.JSON(http.StatusCreated, newFilePayload(*file))
}

// ReadFile streams stored file content back to the owner.
func (h *DocumentHandler) ReadFile(c *gin.Context) {
	user, ok := middleware.AuthenticatedUser(c)
	if !ok {
		c.JSON(http.StatusForbidden, NewErrorResponse(c, "forbidden"))
		return
	}

	file, content, err := h.documents.ReadFile(c.Request.Context(), user, c.Param("id"))
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrFileNotFound, Status: http.StatusNotFound, Message: "file not found"},
		}, http.StatusInternalServerError, "failed to read file")
		return
	}
	defer content.Close()

	c.DataFromReader(http.StatusOK, file.Size, file.MimeType, content, map[string]string{
		"Content-Disposition": `inline; filename="` + file.Name + `"`,
	})
}
