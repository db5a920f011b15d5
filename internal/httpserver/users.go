package httpserver

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"storefront-api/internal/domain"
	"storefront-api/internal/logger"
	usersvc "storefront-api/internal/service/user"
)

// UserService is the account surface used by the user handlers.
type UserService interface {
	Create(ctx context.Context, in usersvc.CreateInput) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*usersvc.Session, error)
	Refresh(ctx context.Context, refreshToken string) (*usersvc.Session, error)
	Logout(ctx context.Context, refreshToken string) error
	List(ctx context.Context) ([]domain.User, error)
	Get(ctx context.Context, id string) (*domain.User, error)
	UpdateProfile(ctx context.Context, id string, in usersvc.ProfileInput) (*domain.User, error)
	ChangePassword(ctx context.Context, id, current, next string) error
	Delete(ctx context.Context, id string) error
}

type createUserRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type logoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type profileRequest struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Phone     *string `json:"phone"`
}

type passwordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
}

type sessionResponse struct {
	User         *domain.User `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	TokenType    string       `json:"tokenType"`
	ExpiresIn    int          `json:"expiresIn"`
}

type userHandler struct {
	svc          UserService
	log          *logger.Logger
	cookieSecure bool
}

func (h *userHandler) create(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.log, bindError(err))
		return
	}
	u, err := h.svc.Create(c.Request.Context(), usersvc.CreateInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	respond(c, http.StatusCreated, "user created", u)
}

func (h *userHandler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.log, bindError(err))
		return
	}
	session, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	h.writeSession(c, "logged in", session)
}

func (h *userHandler) refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.log, bindError(err))
		return
	}
	session, err := h.svc.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	h.writeSession(c, "token refreshed", session)
}

func (h *userHandler) logout(c *gin.Context) {
	var req logoutRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, h.log, bindError(err))
			return
		}
	}
	if err := h.svc.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(tokenCookie, "", -1, "/", "", h.cookieSecure, true)
	respond(c, http.StatusOK, "logged out", nil)
}

func (h *userHandler) list(c *gin.Context) {
	users, err := h.svc.List(c.Request.Context())
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, "", users)
}

func (h *userHandler) me(c *gin.Context) {
	u, err := h.svc.Get(c.Request.Context(), currentUserID(c))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, "", u)
}

func (h *userHandler) get(c *gin.Context) {
	id, ok := pathID(c, h.log, "id", "user")
	if !ok {
		return
	}
	u, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, "", u)
}

func (h *userHandler) updateMe(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.log, bindError(err))
		return
	}
	u, err := h.svc.UpdateProfile(c.Request.Context(), currentUserID(c), usersvc.ProfileInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, "profile updated", u)
}

func (h *userHandler) changePassword(c *gin.Context) {
	var req passwordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.log, bindError(err))
		return
	}
	if err := h.svc.ChangePassword(c.Request.Context(), currentUserID(c), req.CurrentPassword, req.NewPassword); err != nil {
		writeError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, "password changed", nil)
}

func (h *userHandler) delete(c *gin.Context) {
	id, ok := pathID(c, h.log, "id", "user")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		writeError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, "user deleted", nil)
}

func (h *userHandler) writeSession(c *gin.Context, message string, s *usersvc.Session) {
	c.Header("Authorization", "Bearer "+s.AccessToken)
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(tokenCookie, s.AccessToken, s.ExpiresIn, "/", "", h.cookieSecure, true)
	respond(c, http.StatusOK, message, sessionResponse{
		User:         s.User,
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    s.ExpiresIn,
	})
}
