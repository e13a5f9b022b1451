package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"shop_back_end/internal/config"
	"shop_back_end/internal/middleware"
	"shop_back_end/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/markbates/goth/gothic"
)

type AuthHandler struct {
	users   Users
	tokens  TokenIssuer
	revoker TokenRevoker
	ttl     time.Duration
}

// NewAuthHandler : revoker peut être nil (logout sans révocation)
func NewAuthHandler(users Users, tokens TokenIssuer, revoker TokenRevoker, ttl time.Duration) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens, revoker: revoker, ttl: ttl}
}

type registerRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=100"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) session(c *gin.Context, status int, u *models.User) {
	token, err := h.tokens.Issue(*u)
	if err != nil {
		log.Printf("❌ Erreur génération JWT: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(status, gin.H{"token": token, "user": u})
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if !bindJSON(c, &req) {
		return
	}
	u, err := h.users.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	h.session(c, http.StatusCreated, u)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}
	u, err := h.users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	log.Printf("🔓 Connexion: %s", u.Email)
	h.session(c, http.StatusOK, u)
}

// Logout révoque le token courant jusqu'à son expiration
func (h *AuthHandler) Logout(c *gin.Context) {
	p := middleware.CurrentPrincipal(c)
	if h.revoker != nil && p.TokenID != "" {
		ttl := h.ttl
		if !p.ExpiresAt.IsZero() {
			ttl = p.Remaining(time.Now())
		}
		if err := h.revoker.BlacklistToken(c.Request.Context(), p.TokenID, ttl); err != nil {
			log.Printf("⚠️ Révocation du token %s: %v", p.TokenID, err)
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

func (h *AuthHandler) Me(c *gin.Context) {
	u, err := h.users.Get(c.Request.Context(), middleware.CurrentPrincipal(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func withProvider(c *gin.Context) {
	c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), config.ProviderContextKey, c.Param("provider")))
}

// BeginOAuth redirige vers le provider (goth)
func (h *AuthHandler) BeginOAuth(c *gin.Context) {
	withProvider(c)
	gothic.BeginAuthHandler(c.Writer, c.Request)
}

// OAuthCallback rattache ou crée le compte puis émet un JWT
func (h *AuthHandler) OAuthCallback(c *gin.Context) {
	withProvider(c)
	gu, err := gothic.CompleteUserAuth(c.Writer, c.Request)
	if err != nil {
		log.Printf("❌ OAuth %s: %v", c.Param("provider"), err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "OAuth authentication failed"})
		return
	}
	u, err := h.users.FindOrCreateOAuth(c.Request.Context(), gu.Email, gu.Name, gu.Provider)
	if err != nil {
		respondError(c, err)
		return
	}
	h.session(c, http.StatusOK, u)
}
