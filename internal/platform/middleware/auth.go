package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

// OperatorValidator defines the interface for validating operator bearer tokens.
type OperatorValidator interface {
	Validate(tokenString string) (operator string, err error)
}

type contextKeyOperator struct{}

// ContextKeyOperator is exported for use in handlers and tests.
var ContextKeyOperator = contextKeyOperator{}

// GetOperator retrieves the authenticated operator name from the context.
func GetOperator(ctx context.Context) string {
	if operator, ok := ctx.Value(ContextKeyOperator).(string); ok {
		return operator
	}
	return ""
}

// RequireOperator enforces a valid operator bearer token on institute routes.
func RequireOperator(validator OperatorValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || token == "" {
				writeUnauthorized(w, "Bearer token required")
				return
			}

			operator, err := validator.Validate(token)
			if err != nil {
				ctx := r.Context()
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", GetRequestID(ctx),
				)
				writeUnauthorized(w, "Invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyOperator, operator)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}
