package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/signaldesk/backend/internal/infrastructure/auth"
	"github.com/signaldesk/backend/internal/interfaces/http/dto"
)

// JWT context keys
const (
	JWTClaimsKey  = "jwt_claims"
	JWTUserIDKey  = "jwt_user_id"
	JWTEmailKey   = "jwt_email"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
	// AccessTokenCookie carries the session token on browser-initiated
	// requests that cannot set an Authorization header, such as the OAuth
	// redirect back from a provider.
	AccessTokenCookie = "access_token"
)

// ExtractToken pulls the bearer token from the Authorization header, falling
// back to the access_token cookie
func ExtractToken(c *gin.Context) string {
	authHeader := c.GetHeader(AuthHeaderKey)
	if strings.HasPrefix(authHeader, BearerPrefix) {
		if token := strings.TrimPrefix(authHeader, BearerPrefix); token != "" {
			return token
		}
	}
	if token, err := c.Cookie(AccessTokenCookie); err == nil {
		return token
	}
	return ""
}

// Authenticate validates the request's session token and returns its claims.
// It does not write a response; callers decide between a 401 and a redirect.
func Authenticate(c *gin.Context, jwtService *auth.JWTService) (*auth.Claims, error) {
	token := ExtractToken(c)
	if token == "" {
		return nil, auth.ErrInvalidToken
	}
	return jwtService.ValidateAccessToken(token)
}

// JWTAuthMiddleware requires a valid session token and stores its claims in
// the request context
func JWTAuthMiddleware(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := Authenticate(c, jwtService)
		if err != nil {
			code := dto.ErrCodeUnauthorized
			message := "Authentication required"
			if errors.Is(err, auth.ErrExpiredToken) {
				code = dto.ErrCodeTokenExpired
				message = "Session has expired"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(code, message))
			return
		}

		c.Set(JWTClaimsKey, claims)
		c.Set(JWTUserIDKey, claims.UserID)
		c.Set(JWTEmailKey, claims.Email)
		c.Next()
	}
}

// GetJWTClaims returns the validated claims stored by the middleware
func GetJWTClaims(c *gin.Context) *auth.Claims {
	if v, ok := c.Get(JWTClaimsKey); ok {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}

// GetJWTUserID returns the authenticated user's id, or an empty string
func GetJWTUserID(c *gin.Context) string {
	return c.GetString(JWTUserIDKey)
}

// GetJWTUserEmail returns the authenticated user's email, or an empty string
func GetJWTUserEmail(c *gin.Context) string {
	return c.GetString(JWTEmailKey)
}

// GetUserUUID parses the authenticated user's id as a UUID
func GetUserUUID(c *gin.Context) (uuid.UUID, error) {
	id := GetJWTUserID(c)
	if id == "" {
		return uuid.Nil, errors.New("user id not found in context")
	}
	return uuid.Parse(id)
}
