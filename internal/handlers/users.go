package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ecologiciel/gemini-rag-master/internal/accounts"
	"github.com/ecologiciel/gemini-rag-master/internal/auth"
)

// UsersHandler manages console profiles via REST API.
type UsersHandler struct {
	service *accounts.Service
	logger  *slog.Logger
}

func NewUsersHandler(log *slog.Logger, service *accounts.Service) *UsersHandler {
	return &UsersHandler{
		service: service,
		logger:  log.With(slog.String("handler", "users")),
	}
}

func (h *UsersHandler) Register(e *echo.Echo, adminOnly echo.MiddlewareFunc) {
	e.GET("/users/me", h.GetMe)

	group := e.Group("/users", adminOnly)
	group.GET("", h.List)
	group.POST("", h.Create)
	group.PUT("/:id", h.Update)
	group.DELETE("/:id", h.Delete)
}

// GetMe godoc
// @Summary Get the calling identity
// @Tags users
// @Success 200 {object} accounts.Profile
// @Router /users/me [get]
func (h *UsersHandler) GetMe(c echo.Context) error {
	identity, ok := auth.IdentityFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	h.service.TouchLastActive(c.Request().Context(), identity.UserID)

	profile, err := h.service.Get(c.Request().Context(), identity.UserID)
	if err != nil {
		// No profile yet: answer with the identity itself so the console can
		// render something.
		return c.JSON(http.StatusOK, accounts.Profile{
			ID:    identity.UserID,
			Email: identity.Email,
			Role:  identity.Role,
		})
	}
	return c.JSON(http.StatusOK, profile)
}

// List godoc
// @Summary List profiles
// @Tags users
// @Success 200 {array} accounts.Profile
// @Router /users [get]
func (h *UsersHandler) List(c echo.Context) error {
	profiles, err := h.service.List(c.Request().Context())
	if err != nil {
		h.logger.Error("list failed", slog.String("error", err.Error()))
		return httpError(err)
	}
	if profiles == nil {
		profiles = []accounts.Profile{}
	}
	return c.JSON(http.StatusOK, profiles)
}

// Create godoc
// @Summary Create a profile
// @Tags users
// @Param payload body accounts.CreateRequest true "Profile payload"
// @Success 201 {object} accounts.Profile
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /users [post]
func (h *UsersHandler) Create(c echo.Context) error {
	var req accounts.CreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	profile, err := h.service.Create(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, profile)
}

// Update godoc
// @Summary Update a profile
// @Tags users
// @Param id path string true "Profile ID"
// @Param payload body accounts.UpdateRequest true "Partial profile payload"
// @Success 200 {object} accounts.Profile
// @Failure 404 {object} ErrorResponse
// @Router /users/{id} [put]
func (h *UsersHandler) Update(c echo.Context) error {
	var req accounts.UpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	profile, err := h.service.Update(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, profile)
}

// Delete godoc
// @Summary Delete a profile
// @Tags users
// @Param id path string true "Profile ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /users/{id} [delete]
func (h *UsersHandler) Delete(c echo.Context) error {
	if err := h.service.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
