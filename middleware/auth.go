package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"

	"github.com/fvorders/fvorders-api/config"
	"github.com/fvorders/fvorders-api/logging"
)

const adminEmailKey = "admin_email"

// AdminTokenClaims contains the custom data carried by an admin token.
type AdminTokenClaims struct {
	Email string `json:"email"`
}

// Validate rejects tokens that do not name an admin.
func (c *AdminTokenClaims) Validate(context.Context) error {
	if c.Email == "" {
		return errors.New("token has no email claim")
	}
	return nil
}

// RequireAdmin is a middleware that only lets requests with a valid admin token through.
// A missing token is answered with 401, any other token problem with 403.
func RequireAdmin(cfg *config.Config) (gin.HandlerFunc, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required for the admin gate")
	}

	keyFunc := func(context.Context) (interface{}, error) {
		return []byte(cfg.JWTSecret), nil
	}

	jwtValidator, err := validator.New(
		keyFunc,
		validator.HS256,
		cfg.JWTIssuer,
		[]string{cfg.JWTAudience},
		validator.WithCustomClaims(
			func() validator.CustomClaims {
				return &AdminTokenClaims{}
			},
		),
		validator.WithAllowedClockSkew(30*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to set up the jwt validator: %w", err)
	}

	errorHandler := func(w http.ResponseWriter, r *http.Request, err error) {
		status, code, message := http.StatusForbidden, "INVALID_TOKEN", "Invalid or expired token"
		if errors.Is(err, jwtmiddleware.ErrJWTMissing) {
			status, code, message = http.StatusUnauthorized, "MISSING_TOKEN", "Authorization token is required"
		}
		logging.FromContext(r.Context()).Info("admin token rejected", "status", status, "error", err)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		body := fmt.Sprintf(`{"success":false,"error":{"code":%q,"message":%q}}`, code, message)
		if _, writeErr := w.Write([]byte(body)); writeErr != nil {
			logging.FromContext(r.Context()).Warn("failed to write error response", "error", writeErr)
		}
	}

	middleware := jwtmiddleware.New(
		jwtValidator.ValidateToken,
		jwtmiddleware.WithErrorHandler(errorHandler),
	)

	return func(c *gin.Context) {
		authorized := false
		var handler http.HandlerFunc = func(w http.ResponseWriter, r *http.Request) {
			claims, ok := r.Context().Value(jwtmiddleware.ContextKey{}).(*validator.ValidatedClaims)
			if !ok {
				return
			}
			authorized = true

			email := claims.RegisteredClaims.Subject
			if custom, ok := claims.CustomClaims.(*AdminTokenClaims); ok && custom.Email != "" {
				email = custom.Email
			}
			c.Request = r
			c.Set(adminEmailKey, email)
		}

		middleware.CheckJWT(handler).ServeHTTP(c.Writer, c.Request)
		if !authorized {
			c.Abort()
			return
		}
		c.Next()
	}, nil
}

// GetAdminEmail extracts the authenticated admin email from the Gin context
func GetAdminEmail(c *gin.Context) (string, error) {
	email, exists := c.Get(adminEmailKey)
	if !exists {
		return "", &AuthError{Code: "MISSING_ADMIN", Message: "Admin identity not found in context"}
	}

	emailStr, ok := email.(string)
	if !ok {
		return "", &AuthError{Code: "INVALID_ADMIN", Message: "Admin identity is not a string"}
	}

	return emailStr, nil
}

// AuthError represents an authentication error
type AuthError struct {
	Code    string
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}
