package common

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jedmesilva/mobistory-backend/internal/domain"
	"github.com/jedmesilva/mobistory-backend/internal/usecase"
)

const actorKey = "actor"

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type Authenticator interface {
	Authenticate(*gin.Context) (usecase.Actor, error)
}

// ActorMiddleware resolves the caller's identity and stores it on the
// request context. An unidentified caller proceeds as an anonymous actor;
// endpoints that need an identity reject it themselves.
func ActorMiddleware(authenticator Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authenticator == nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Code: "INTERNAL", Message: "auth misconfigured"})
			return
		}
		actor, err := authenticator.Authenticate(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Code: "UNAUTHORIZED", Message: "authentication failed"})
			return
		}
		c.Set(actorKey, actor)
		c.Next()
	}
}

func ActorFrom(c *gin.Context) usecase.Actor {
	if value, ok := c.Get(actorKey); ok {
		if actor, ok := value.(usecase.Actor); ok {
			return actor
		}
	}
	return usecase.Actor{}
}

// RequireActor aborts with 401 when the caller carries no identity.
func RequireActor(c *gin.Context) (usecase.Actor, bool) {
	actor := ActorFrom(c)
	if actor.EntityID == "" && !actor.Admin {
		WriteErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "an identity is required")
		return usecase.Actor{}, false
	}
	return actor, true
}

func ParseUUIDParam(c *gin.Context, name string) (string, bool) {
	value := strings.TrimSpace(c.Param(name))
	if value == "" {
		WriteErrorCode(c, http.StatusBadRequest, "INVALID_ARGUMENT", name+" is required")
		return "", false
	}
	if _, err := uuid.Parse(value); err != nil {
		WriteErrorCode(c, http.StatusBadRequest, "INVALID_ARGUMENT", name+" must be a UUID")
		return "", false
	}
	return value, true
}

type EntityResponse struct {
	ID        string `json:"id"`
	Code      string `json:"code"`
	Type      string `json:"type"`
	LegalID   string `json:"legal_id,omitempty"`
	Active    bool   `json:"active"`
	Verified  bool   `json:"verified"`
	Anonymous bool   `json:"anonymous"`
	CreatedAt string `json:"created_at"`
}

func ToEntityResponse(entity domain.Entity) EntityResponse {
	return EntityResponse{
		ID:        entity.ID,
		Code:      entity.Code,
		Type:      string(entity.TypeCode),
		LegalID:   entity.LegalID,
		Active:    entity.Active,
		Verified:  entity.Verified,
		Anonymous: entity.Anonymous,
		CreatedAt: entity.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

type LinkResponse struct {
	ID           string  `json:"id"`
	Code         string  `json:"code"`
	EntityID     string  `json:"entity_id"`
	VehicleID    string  `json:"vehicle_id"`
	Type         string  `json:"type"`
	Status       string  `json:"status"`
	ValidatedAt  *string `json:"validated_at,omitempty"`
	ValidatedBy  string  `json:"validated_by,omitempty"`
	StartDate    string  `json:"start_date"`
	EndDate      *string `json:"end_date,omitempty"`
	Observations string  `json:"observations,omitempty"`
	CreatedAt    string  `json:"created_at"`
}

func ToLinkResponse(link domain.Link) LinkResponse {
	resp := LinkResponse{
		ID:           link.ID,
		Code:         link.Code,
		EntityID:     link.EntityID,
		VehicleID:    link.VehicleID,
		Type:         string(link.LinkTypeCode),
		Status:       string(link.Status),
		ValidatedBy:  link.ValidatedBy,
		StartDate:    link.StartDate.UTC().Format(time.RFC3339Nano),
		Observations: link.Observations,
		CreatedAt:    link.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if link.ValidatedAt != nil {
		formatted := link.ValidatedAt.UTC().Format(time.RFC3339Nano)
		resp.ValidatedAt = &formatted
	}
	if link.EndDate != nil {
		formatted := link.EndDate.UTC().Format(time.RFC3339Nano)
		resp.EndDate = &formatted
	}
	return resp
}

type LinkStatusResponse struct {
	From      string `json:"from,omitempty"`
	To        string `json:"to"`
	ChangedBy string `json:"changed_by,omitempty"`
	Reason    string `json:"reason,omitempty"`
	CreatedAt string `json:"created_at"`
}

func ToLinkStatusResponse(change domain.LinkStatusChange) LinkStatusResponse {
	return LinkStatusResponse{
		From:      string(change.From),
		To:        string(change.To),
		ChangedBy: change.ChangedBy,
		Reason:    change.Reason,
		CreatedAt: change.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

type EventResponse struct {
	ID          string         `json:"id"`
	VehicleID   string         `json:"vehicle_id"`
	EntityID    string         `json:"entity_id,omitempty"`
	Category    string         `json:"category"`
	Type        string         `json:"type"`
	Timestamp   string         `json:"timestamp"`
	Severity    string         `json:"severity,omitempty"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Data        map[string]any `json:"data,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
	Visibility  string         `json:"visibility"`
}

func ToEventResponse(event domain.VehicleEvent) EventResponse {
	return EventResponse{
		ID:          event.ID,
		VehicleID:   event.VehicleID,
		EntityID:    event.EntityID,
		Category:    string(event.Category),
		Type:        event.Type,
		Timestamp:   event.Timestamp.UTC().Format(time.RFC3339Nano),
		Severity:    string(event.Severity),
		Title:       event.Title,
		Description: event.Description,
		Data:        event.Data,
		Tags:        event.Tags,
		Visibility:  string(event.Visibility),
	}
}

// WriteError maps domain sentinels to HTTP statuses. Sentinel messages carry
// their wrapping detail to the caller; anything unrecognized stays a generic
// 500 so internals do not leak.
func WriteError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		WriteErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", err.Error())
	case errors.Is(err, domain.ErrForbidden):
		WriteErrorCode(c, http.StatusForbidden, "FORBIDDEN", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		WriteErrorCode(c, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, domain.ErrConflict):
		WriteErrorCode(c, http.StatusConflict, "CONFLICT", err.Error())
	case errors.Is(err, domain.ErrInvalidState):
		WriteErrorCode(c, http.StatusConflict, "INVALID_STATE", err.Error())
	case errors.Is(err, domain.ErrInvalidArgument):
		WriteErrorCode(c, http.StatusBadRequest, "INVALID_ARGUMENT", err.Error())
	default:
		WriteErrorCode(c, http.StatusInternalServerError, "INTERNAL", "internal error")
	}
}

func WriteErrorCode(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Code: code, Message: message})
}
