package auth

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jedmesilva/mobistory-backend/internal/usecase"
)

// HeaderAuthenticator trusts the identity headers set by the gateway in front
// of this service. Callers without headers proceed as anonymous.
type HeaderAuthenticator struct{}

func NewHeaderAuthenticator() *HeaderAuthenticator {
	return &HeaderAuthenticator{}
}

func (h *HeaderAuthenticator) Authenticate(c *gin.Context) (usecase.Actor, error) {
	actor := usecase.Actor{
		EntityID: strings.TrimSpace(c.GetHeader("X-Entity-ID")),
	}
	for _, role := range splitCSV(c.GetHeader("X-Roles")) {
		if role == "admin" {
			actor.Admin = true
		}
	}
	return actor, nil
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}
