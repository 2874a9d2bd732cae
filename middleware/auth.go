package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/jorellortega/covionpartners-sub001/access"
	"github.com/jorellortega/covionpartners-sub001/config"
	"github.com/jorellortega/covionpartners-sub001/pkg/logger"
)

// Token kinds.
const (
	TokenUser     = "user"
	TokenExternal = "external"
)

// Claims represents the JWT claims. User tokens carry the user identity; external
// tokens are view tokens bound to one contract after an access code was redeemed.
type Claims struct {
	Kind       string `json:"kind"`
	Username   string `json:"username,omitempty"`
	UserID     string `json:"uid,omitempty"`
	Org        string `json:"org,omitempty"`
	ContractID string `json:"cid,omitempty"`
	jwt.RegisteredClaims
}

// Principal converts the claims into the identity the access gate resolves.
func (c *Claims) Principal() access.Principal {
	if c.Kind == TokenExternal {
		return access.Principal{ExternalContractID: c.ContractID}
	}
	return access.Principal{UserID: c.UserID}
}

// GenerateToken generates a new JWT token for a user
func GenerateToken(user *config.User, cfg *config.AuthConfig) (string, time.Time, error) {
	expiresAt := time.Now().Add(time.Duration(cfg.TokenExpireHours) * time.Hour)
	return sign(Claims{
		Kind:     TokenUser,
		Username: user.Username,
		UserID:   user.ID(),
		Org:      user.PrimaryOrg(),
	}, expiresAt, cfg)
}

// GenerateAccessToken issues a view token for an external holder of contractID.
func GenerateAccessToken(contractID string, cfg *config.AuthConfig) (string, time.Time, error) {
	expiresAt := time.Now().Add(time.Duration(cfg.AccessTokenExpireHours) * time.Hour)
	return sign(Claims{Kind: TokenExternal, ContractID: contractID}, expiresAt, cfg)
}

func sign(claims Claims, expiresAt time.Time, cfg *config.AuthConfig) (string, time.Time, error) {
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseToken validates a signed token and returns its claims.
func ParseToken(tokenString string, cfg *config.AuthConfig) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(cfg.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	switch claims.Kind {
	case TokenUser:
		if claims.UserID == "" {
			return nil, errors.New("user token without user id")
		}
	case TokenExternal:
		if claims.ContractID == "" {
			return nil, errors.New("view token without contract")
		}
	default:
		return nil, errors.New("unknown token kind")
	}
	return claims, nil
}

// AuthMiddleware validates JWT token and extracts user info
func AuthMiddleware(cfg *config.AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			c.Abort()
			return
		}

		claims, err := ParseToken(parts[1], cfg)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		c.Set("claims", claims)
		c.Set("username", claims.Username)
		c.Set("user_id", claims.UserID)
		c.Set("org", claims.Org)

		ctx := c.Request.Context()
		if claims.UserID != "" {
			ctx = context.WithValue(ctx, logger.UserIDKey, claims.UserID)
			ctx = context.WithValue(ctx, logger.UsernameKey, claims.Username)
		}
		if claims.Org != "" {
			ctx = context.WithValue(ctx, logger.OrgKey, claims.Org)
		}
		if claims.ContractID != "" {
			ctx = context.WithValue(ctx, logger.ContractIDKey, claims.ContractID)
		}
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// RequireUser rejects external view tokens.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil || claims.Kind != TokenUser {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "A user session is required"})
			return
		}
		c.Next()
	}
}

// GetClaims returns the validated claims, or nil on unauthenticated routes.
func GetClaims(c *gin.Context) *Claims {
	if v, exists := c.Get("claims"); exists {
		if claims, ok := v.(*Claims); ok {
			return claims
		}
	}
	return nil
}

// GetPrincipal returns the caller identity for access resolution.
func GetPrincipal(c *gin.Context) access.Principal {
	if claims := GetClaims(c); claims != nil {
		return claims.Principal()
	}
	return access.Principal{}
}

// GetUsername gets the username from context
func GetUsername(c *gin.Context) string {
	return getString(c, "username")
}

// GetUserID gets the stable user id from context
func GetUserID(c *gin.Context) string {
	return getString(c, "user_id")
}

// GetOrg gets the caller's primary organization from context
func GetOrg(c *gin.Context) string {
	return getString(c, "org")
}

func getString(c *gin.Context, key string) string {
	if v, exists := c.Get(key); exists {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
