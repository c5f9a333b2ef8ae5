package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ecologiciel/gemini-rag-master/internal/accounts"
	"github.com/ecologiciel/gemini-rag-master/internal/documents"
	"github.com/ecologiciel/gemini-rag-master/internal/genai"
	"github.com/ecologiciel/gemini-rag-master/internal/whatsapp"
)

// ErrorResponse is the JSON error body returned to the console.
type ErrorResponse struct {
	Message string `json:"message"`
}

// httpError maps service errors onto HTTP status codes. Unknown errors stay
// generic; details live in the server log, not the response.
func httpError(err error) error {
	switch {
	case errors.Is(err, documents.ErrNotFound),
		errors.Is(err, accounts.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, documents.ErrTooLarge),
		errors.Is(err, whatsapp.ErrMediaTooLarge):
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, documents.ErrEmpty),
		errors.Is(err, accounts.ErrInvalidRole),
		errors.Is(err, accounts.ErrInvalidStatus):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, accounts.ErrEmailTaken):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, genai.ErrInvalidCredentials):
		return echo.NewHTTPError(http.StatusBadGateway,
			"model API rejected the configured key; update it in settings")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}
