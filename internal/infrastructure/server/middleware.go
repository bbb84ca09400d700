package server

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/studyflow/core/internal/application/services"
	"github.com/studyflow/core/internal/domain/entities"
)

// authMiddleware validates JWT tokens
func (s *Server) authMiddleware(authService *services.AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Missing authorization header")
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid authorization header format")
			}

			claims, err := authService.ValidateToken(tokenString)
			if err != nil {
				s.logger.LogSecurityEvent("invalid_token", "", c.RealIP(), map[string]interface{}{
					"error": err.Error(),
				})
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
			}

			// Set user claims in context
			c.Set("user", claims.UserID)
			c.Set("user_role", claims.Role)
			c.Set("user_email", claims.Email)

			return next(c)
		}
	}
}

// requireRole checks if user has required role
func (s *Server) requireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userRole, ok := c.Get("user_role").(entities.UserRole)
			if !ok {
				return echo.NewHTTPError(http.StatusForbidden, "Role information not found")
			}

			for _, requiredRole := range roles {
				if string(userRole) == requiredRole {
					return next(c)
				}
			}

			userID, _ := c.Get("user").(string)
			s.logger.LogSecurityEvent("insufficient_permissions",
				userID,
				c.RealIP(),
				map[string]interface{}{
					"required_roles": roles,
					"user_role":      userRole,
					"endpoint":       c.Request().URL.Path,
				})

			return echo.NewHTTPError(http.StatusForbidden, "Insufficient permissions")
		}
	}
}
