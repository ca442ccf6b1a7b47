package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wiremap-server/internal/auth"
	"github.com/vovakirdan/wiremap-server/internal/profile"
	"github.com/vovakirdan/wiremap-server/internal/service/users"
	"github.com/vovakirdan/wiremap-server/internal/store"
)

// UserHandlers provides HTTP handlers for profile operations.
type UserHandlers struct {
	users *users.Service
	log   *zerolog.Logger
}

// NewUserHandlers creates a new user handlers instance.
func NewUserHandlers(userService *users.Service, logger *zerolog.Logger) *UserHandlers {
	return &UserHandlers{
		users: userService,
		log:   logger,
	}
}

// UserResponse represents the authenticated user's profile.
type UserResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	AvatarRef string    `json:"avatarRef,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// UpdateMeRequest carries optional profile edits.
type UpdateMeRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AvatarRequest sets or clears the avatar reference.
type AvatarRequest struct {
	AvatarRef string `json:"avatarRef"`
}

func userResponse(u *store.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		AvatarRef: u.AvatarRef,
		CreatedAt: u.CreatedAt,
	}
}

// Me returns the authenticated user's profile.
// GET /api/users/me
func (h *UserHandlers) Me(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	user, err := h.users.Get(c.Request.Context(), uid)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, userResponse(user))
}

// UpdateMe edits name, email or password.
// PUT /api/users/me
func (h *UserHandlers) UpdateMe(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req UpdateMeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	user, err := h.users.Update(c.Request.Context(), uid, users.ProfileChanges{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, userResponse(user))
}

// SetAvatar stores the avatar reference used to enrich presence records.
// PUT /api/users/me/avatar
func (h *UserHandlers) SetAvatar(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req AvatarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if err := h.users.SetAvatar(c.Request.Context(), uid, req.AvatarRef); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteMe removes the authenticated user's account.
// DELETE /api/users/me
func (h *UserHandlers) DeleteMe(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	if err := h.users.Delete(c.Request.Context(), uid); err != nil {
		h.writeError(c, err)
		return
	}
	h.log.Info().Str("user_id", uid).Msg("user deleted")
	c.Status(http.StatusNoContent)
}

// PublicProfile returns the enrichment view of a user.
// GET /api/users/:id/profile
func (h *UserHandlers) PublicProfile(c *gin.Context) {
	user, err := h.users.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	if user.AvatarRef == "" {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "profile not found"})
		return
	}
	c.JSON(http.StatusOK, profile.Profile{ID: user.ID, AvatarRef: user.AvatarRef})
}

func (h *UserHandlers) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, users.ErrUserNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "user not found"})
	case errors.Is(err, users.ErrEmailTaken):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	case errors.Is(err, users.ErrNothingToApply),
		errors.Is(err, users.ErrInvalidAvatar),
		errors.Is(err, auth.ErrInvalidName),
		errors.Is(err, auth.ErrInvalidEmail),
		errors.Is(err, auth.ErrInvalidPassword):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	default:
		h.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("user request failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}
