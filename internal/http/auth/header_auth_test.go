package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestHeaderAuthenticator(t *testing.T) {
	gin.SetMode(gin.TestMode)
	authn := NewHeaderAuthenticator()

	cases := []struct {
		name     string
		entityID string
		roles    string
		wantID   string
		admin    bool
	}{
		{name: "identified", entityID: "entity-1", wantID: "entity-1"},
		{name: "admin role", entityID: "entity-1", roles: "support, admin", wantID: "entity-1", admin: true},
		{name: "anonymous", entityID: "", wantID: ""},
		{name: "whitespace trimmed", entityID: "  entity-2  ", wantID: "entity-2"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)
			c.Request = httptest.NewRequest(http.MethodGet, "/test", nil)
			c.Request.Header.Set("X-Entity-ID", tc.entityID)
			if tc.roles != "" {
				c.Request.Header.Set("X-Roles", tc.roles)
			}

			actor, err := authn.Authenticate(c)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if actor.EntityID != tc.wantID {
				t.Fatalf("expected entity %q, got %q", tc.wantID, actor.EntityID)
			}
			if actor.Admin != tc.admin {
				t.Fatalf("expected admin=%v, got %v", tc.admin, actor.Admin)
			}
		})
	}
}
