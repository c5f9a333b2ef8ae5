package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ecologiciel/gemini-rag-master/internal/documents"
)

// DocumentsHandler manages the knowledge documents grounding chat answers.
type DocumentsHandler struct {
	service  *documents.Service
	maxBytes int64
	logger   *slog.Logger
}

func NewDocumentsHandler(log *slog.Logger, service *documents.Service, maxBytes int64) *DocumentsHandler {
	if maxBytes <= 0 {
		maxBytes = documents.MaxDocumentBytes
	}
	return &DocumentsHandler{
		service:  service,
		maxBytes: maxBytes,
		logger:   log.With(slog.String("handler", "documents")),
	}
}

func (h *DocumentsHandler) Register(e *echo.Echo) {
	group := e.Group("/documents")
	group.GET("", h.List)
	group.POST("", h.Upload)
	group.DELETE("/:id", h.Delete)
}

type documentConflictResponse struct {
	Message  string             `json:"message"`
	Existing documents.Document `json:"existing"`
}

// List godoc
// @Summary List knowledge documents
// @Tags documents
// @Success 200 {array} documents.Document
// @Failure 500 {object} ErrorResponse
// @Router /documents [get]
func (h *DocumentsHandler) List(c echo.Context) error {
	docs, err := h.service.List(c.Request().Context())
	if err != nil {
		h.logger.Error("list failed", slog.String("error", err.Error()))
		return httpError(err)
	}
	if docs == nil {
		docs = []documents.Document{}
	}
	return c.JSON(http.StatusOK, docs)
}

// Upload godoc
// @Summary Ingest a knowledge document
// @Description Accepts a multipart file, stores it in the provider file
// store and records its metadata. Duplicate content answers 409 with the
// existing record.
// @Tags documents
// @Accept multipart/form-data
// @Param file formData file true "Document file"
// @Success 201 {object} documents.Document
// @Failure 409 {object} documentConflictResponse
// @Failure 413 {object} ErrorResponse
// @Router /documents [post]
func (h *DocumentsHandler) Upload(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file field is required")
	}
	file, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "cannot read upload")
	}
	defer file.Close()

	doc, err := h.service.Ingest(c.Request().Context(), documents.IngestInput{
		Name:     fileHeader.Filename,
		Mime:     fileHeader.Header.Get("Content-Type"),
		Reader:   file,
		MaxBytes: h.maxBytes,
	})
	if err != nil {
		if errors.Is(err, documents.ErrDuplicate) {
			return c.JSON(http.StatusConflict, documentConflictResponse{
				Message:  "document already ingested",
				Existing: doc,
			})
		}
		h.logger.Error("ingest failed",
			slog.String("name", fileHeader.Filename),
			slog.String("error", err.Error()))
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, doc)
}

// Delete godoc
// @Summary Delete a knowledge document
// @Tags documents
// @Param id path string true "Document ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /documents/{id} [delete]
func (h *DocumentsHandler) Delete(c echo.Context) error {
	if err := h.service.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
