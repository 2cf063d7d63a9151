package auth

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/anoixa/shock-panel/api/common"
	"github.com/anoixa/shock-panel/config"
	svcAuth "github.com/anoixa/shock-panel/internal/auth"
	"github.com/anoixa/shock-panel/utils"
	"github.com/gin-gonic/gin"
)

// Handler 认证处理器
type Handler struct {
	loginService *svcAuth.LoginService
	cfg          *config.Config
}

// NewHandler 创建新的认证处理器
func NewHandler(loginService *svcAuth.LoginService, cfg *config.Config) *Handler {
	return &Handler{
		loginService: loginService,
		cfg:          cfg,
	}
}

type userAuthRequestBody struct {
	Username string `json:"username" binding:"required,max=64"`
	Password string `json:"password" binding:"required"`
}

type registerRequestBody struct {
	Username        string `json:"username" binding:"required,max=64"`
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
}

type loginResponse struct {
	AccessToken       string `json:"access_token"`
	AccessTokenExpiry int64  `json:"access_token_expiry"`
}

// RegisterHandlerFunc user registration
func (h *Handler) RegisterHandlerFunc(c *gin.Context) {
	var req registerRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondError(c, http.StatusBadRequest, err.Error())
		return
	}

	if req.Password != req.ConfirmPassword {
		common.RespondError(c, http.StatusBadRequest, "Passwords do not match")
		return
	}

	result, err := h.loginService.Register(req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, svcAuth.ErrUsernameTaken),
			errors.Is(err, svcAuth.ErrWeakPassword),
			errors.Is(err, svcAuth.ErrMissingField):
			common.RespondError(c, http.StatusBadRequest, err.Error())
		default:
			log.Printf("Failed to register user %s: %v", utils.SanitizeLogUsername(req.Username), err)
			common.RespondError(c, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	refreshTokenMaxAge := int(time.Until(result.RefreshTokenExpiry).Seconds())
	h.setAuthCookies(c, result.RefreshToken, result.SessionID, refreshTokenMaxAge)

	common.RespondSuccessMessage(c, "Registration successful", loginResponse{
		AccessToken:       "Bearer " + result.AccessToken,
		AccessTokenExpiry: result.AccessTokenExpiry.Unix(),
	})
}

// LoginHandlerFunc user login
func (h *Handler) LoginHandlerFunc(c *gin.Context) {
	var req userAuthRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondError(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.loginService.Login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, svcAuth.ErrInvalidCredentials) {
			common.RespondError(c, http.StatusUnauthorized, "Invalid username or password")
			return
		}
		log.Printf("Login failed for user %s: %v", utils.SanitizeLogUsername(req.Username), err)
		common.RespondError(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	// 设置 HttpOnly Cookie
	refreshTokenMaxAge := int(time.Until(result.RefreshTokenExpiry).Seconds())
	h.setAuthCookies(c, result.RefreshToken, result.SessionID, refreshTokenMaxAge)

	common.RespondSuccessMessage(c, "Login successful", loginResponse{
		AccessToken:       "Bearer " + result.AccessToken,
		AccessTokenExpiry: result.AccessTokenExpiry.Unix(),
	})
}

// RefreshTokenHandlerFunc Refresh token authentication
func (h *Handler) RefreshTokenHandlerFunc(c *gin.Context) {
	refreshToken, err := c.Cookie("refresh_token")
	if err != nil {
		common.RespondError(c, http.StatusUnauthorized, "Refresh token not found")
		return
	}

	sessionID, err := c.Cookie("session_id")
	if err != nil {
		common.RespondError(c, http.StatusUnauthorized, "Session ID not found")
		return
	}

	result, err := h.loginService.RefreshToken(refreshToken, sessionID)
	if err != nil {
		common.RespondError(c, http.StatusUnauthorized, "Invalid refresh token")
		return
	}

	newRefreshTokenMaxAge := int(time.Until(result.RefreshTokenExpiry).Seconds())
	h.setAuthCookies(c, result.RefreshToken, sessionID, newRefreshTokenMaxAge)

	common.RespondSuccessMessage(c, "Refresh token successful", loginResponse{
		AccessToken:       "Bearer " + result.AccessToken,
		AccessTokenExpiry: result.AccessTokenExpiry.Unix(),
	})
}

// LogoutHandlerFunc user logout
func (h *Handler) LogoutHandlerFunc(c *gin.Context) {
	sessionID, err := c.Cookie("session_id")
	if err != nil {
		common.RespondSuccessMessage(c, "Already logged out or session invalid", nil)
		return
	}

	if h.loginService != nil {
		_ = h.loginService.Logout(sessionID)
	}

	h.clearAuthCookies(c)

	common.RespondSuccessMessage(c, "Logout successful", nil)
}

// setAuthCookies 设置 refresh_token 和 session_id 的 cookie
func (h *Handler) setAuthCookies(c *gin.Context, refreshToken, sessionID string, maxAge int) {
	path := "/api/auth/"
	secure := config.IsProduction()

	refreshTokenCookie := http.Cookie{
		Name:     "refresh_token",
		Value:    refreshToken,
		MaxAge:   maxAge,
		Path:     path,
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	sessionIDCookie := http.Cookie{
		Name:     "session_id",
		Value:    sessionID,
		MaxAge:   maxAge,
		Path:     path,
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	http.SetCookie(c.Writer, &refreshTokenCookie)
	http.SetCookie(c.Writer, &sessionIDCookie)
}

// clearAuthCookies 清除认证相关的 cookie
func (h *Handler) clearAuthCookies(c *gin.Context) {
	path := "/api/auth/"
	domain := ""
	if h.cfg != nil {
		domain = h.cfg.ServerDomain
	}

	// 将 MaxAge 设置为 -1 来让浏览器删除 Cookie
	c.SetCookie("refresh_token", "", -1, path, domain, false, true)
	c.SetCookie("session_id", "", -1, path, domain, false, true)
}
