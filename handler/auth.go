package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jorellortega/covionpartners-sub001/config"
	"github.com/jorellortega/covionpartners-sub001/middleware"
	"github.com/jorellortega/covionpartners-sub001/pkg/logger"
	"github.com/jorellortega/covionpartners-sub001/service"
)

type AuthHandler struct {
	config    *config.Config
	identity  *service.ConfigIdentityProvider
	contracts *service.ContractService
}

func NewAuthHandler(cfg *config.Config, identity *service.ConfigIdentityProvider, contracts *service.ContractService) *AuthHandler {
	return &AuthHandler{config: cfg, identity: identity, contracts: contracts}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
	Username  string `json:"username"`
	UserID    string `json:"user_id"`
	Org       string `json:"org"`
}

// Login handles user login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	user, err := h.identity.Authenticate(req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		return
	}

	token, expiresAt, err := middleware.GenerateToken(user, &h.config.Auth)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt.Format("2006-01-02T15:04:05Z07:00"),
		Username:  user.Username,
		UserID:    user.ID(),
		Org:       user.PrimaryOrg(),
	})
}

// GetCurrentUser returns the current user info
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}
	if claims.Kind == middleware.TokenExternal {
		c.JSON(http.StatusOK, gin.H{"kind": claims.Kind, "contract_id": claims.ContractID})
		return
	}

	resp := gin.H{
		"kind":     claims.Kind,
		"username": claims.Username,
		"user_id":  claims.UserID,
		"org":      claims.Org,
	}
	if user := h.config.FindUserByID(claims.UserID); user != nil {
		orgs := make([]gin.H, 0, len(user.Memberships))
		for _, m := range user.Memberships {
			orgs = append(orgs, gin.H{"org": m.Org, "role": m.Role, "level": m.Level})
		}
		resp["memberships"] = orgs
	}
	c.JSON(http.StatusOK, resp)
}

type RedeemRequest struct {
	ContractID string `json:"contract_id" binding:"required"`
	Code       string `json:"code" binding:"required"`
}

// Redeem exchanges an access code for a view token bound to one contract.
// Every successful call consumes one use of the code.
func (h *AuthHandler) Redeem(c *gin.Context) {
	var req RedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	contract, grant, err := h.contracts.Redeem(c.Request.Context(), req.ContractID, req.Code)
	if err != nil {
		logger.Warn(c.Request.Context(), "access code redemption failed", "contract_id", req.ContractID, "error", err)
		respondError(c, err)
		return
	}

	token, expiresAt, err := middleware.GenerateAccessToken(contract.ID, &h.config.Auth)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_at": expiresAt.Format("2006-01-02T15:04:05Z07:00"),
		"contract":   gin.H{"id": contract.ID, "title": contract.Title, "status": contract.Status},
		"grant":      grant,
	})
}
