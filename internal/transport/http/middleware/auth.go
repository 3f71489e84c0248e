package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"stonemarket/internal/service"
	"stonemarket/internal/transport/http/dto"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Gin context keys for the authenticated actor.
const (
	CtxActorID    = "actor_id"
	CtxIndustryID = "industry_id"
	CtxRole       = "role"
)

type JWTConfig struct {
	Secret   string
	Issuer   string
	Audience string
}

// TokenClaims is the claim set the platform issues: subject is the actor
// id; industry_id is empty for brokers and admins.
type TokenClaims struct {
	Role       string `json:"role"`
	IndustryID string `json:"industry_id,omitempty"`
	jwt.RegisteredClaims
}

// AuthRequired validates the Bearer token and puts the actor's identity
// into both the gin context and the request context the services read.
func AuthRequired(cfg JWTConfig, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if authz == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewUnauthorizedError("missing Authorization header"))
			return
		}
		token, ok := ExtractBearerToken(authz)
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewUnauthorizedError("invalid Authorization header"))
			return
		}

		claims, err := ParseToken(token, cfg)
		if err != nil {
			log.Warn("token rejected", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewUnauthorizedError("invalid token"))
			return
		}

		actorID, err := uuid.Parse(claims.Subject)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewUnauthorizedError("invalid subject"))
			return
		}
		role := service.Role(claims.Role)
		switch role {
		case service.RoleAdmin, service.RoleIndustry, service.RoleSeller, service.RoleBroker:
		default:
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewUnauthorizedError("unknown role"))
			return
		}
		industryID := uuid.Nil
		if claims.IndustryID != "" {
			industryID, err = uuid.Parse(claims.IndustryID)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewUnauthorizedError("invalid industry id"))
				return
			}
		}

		c.Set(CtxActorID, actorID)
		c.Set(CtxIndustryID, industryID)
		c.Set(CtxRole, role)

		ctx := c.Request.Context()
		ctx = service.WithActorID(ctx, actorID)
		ctx = service.WithIndustryID(ctx, industryID)
		ctx = service.WithRole(ctx, role)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// ParseToken verifies signature, issuer and audience and returns the claims.
func ParseToken(tokenStr string, cfg JWTConfig) (*TokenClaims, error) {
	claims := &TokenClaims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	tok, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(cfg.Secret), nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !tok.Valid {
		return nil, fmt.Errorf("token not valid")
	}
	return claims, nil
}

// ExtractBearerToken pulls the token out of an Authorization header,
// tolerating stray quotes and trailing garbage.
func ExtractBearerToken(authz string) (string, bool) {
	parts := strings.SplitN(authz, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	t := strings.Trim(strings.TrimSpace(parts[1]), " \"'")
	if i := strings.IndexRune(t, ','); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	if i := strings.IndexByte(t, ' '); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	return strings.Trim(t, " \"'"), true
}
