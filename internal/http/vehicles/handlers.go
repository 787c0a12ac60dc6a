package vehicles

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jedmesilva/mobistory-backend/internal/domain"
	"github.com/jedmesilva/mobistory-backend/internal/http/common"
	"github.com/jedmesilva/mobistory-backend/internal/usecase"
)

type Handler struct {
	Vehicles   usecase.VehicleRepository
	Links      *usecase.LinkService
	Events     *usecase.EventService
	Partitions usecase.PartitionAdmin
}

func NewHandler(vehicles usecase.VehicleRepository, links *usecase.LinkService, events *usecase.EventService, partitions usecase.PartitionAdmin) *Handler {
	return &Handler{Vehicles: vehicles, Links: links, Events: events, Partitions: partitions}
}

func (h *Handler) HandleCreate(c *gin.Context) {
	if _, ok := common.RequireActor(c); !ok {
		return
	}
	var req struct {
		VIN        string `json:"vin"`
		Renavam    string `json:"renavam"`
		BrandID    string `json:"brand_id"`
		ModelID    string `json:"model_id"`
		VersionID  string `json:"version_id"`
		Visibility string `json:"visibility"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.WriteErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}
	now := time.Now().UTC()
	vehicle, err := h.Vehicles.Create(c.Request.Context(), domain.Vehicle{
		ID:         uuid.NewString(),
		VIN:        req.VIN,
		Renavam:    req.Renavam,
		BrandID:    req.BrandID,
		ModelID:    req.ModelID,
		VersionID:  req.VersionID,
		Visibility: req.Visibility,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"vehicle": gin.H{
		"id":  vehicle.ID,
		"vin": vehicle.VIN,
	}})
}

func (h *Handler) HandleGet(c *gin.Context) {
	vehicleID, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	vehicle, err := h.Vehicles.Get(c.Request.Context(), vehicleID)
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vehicle": gin.H{
		"id":         vehicle.ID,
		"vin":        vehicle.VIN,
		"renavam":    vehicle.Renavam,
		"visibility": vehicle.Visibility,
		"active":     vehicle.Active,
	}})
}

func (h *Handler) HandleLinks(c *gin.Context) {
	vehicleID, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	filter := usecase.LinkFilter{
		Status:   domain.LinkStatus(strings.TrimSpace(c.Query("status"))),
		TypeCode: domain.LinkTypeCode(strings.TrimSpace(c.Query("type"))),
	}
	items, err := h.Links.VehicleLinks(c.Request.Context(), vehicleID, filter)
	if err != nil {
		common.WriteError(c, err)
		return
	}
	resp := make([]common.LinkResponse, 0, len(items))
	for _, link := range items {
		resp = append(resp, common.ToLinkResponse(link))
	}
	c.JSON(http.StatusOK, gin.H{"items": resp})
}

func (h *Handler) HandleOwners(c *gin.Context) {
	vehicleID, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	owners, err := h.Links.Owners(c.Request.Context(), vehicleID)
	if err != nil {
		common.WriteError(c, err)
		return
	}
	resp := make([]common.LinkResponse, 0, len(owners))
	for _, link := range owners {
		resp = append(resp, common.ToLinkResponse(link))
	}
	c.JSON(http.StatusOK, gin.H{"items": resp})
}

func (h *Handler) HandleTimeline(c *gin.Context) {
	actor := common.ActorFrom(c)
	vehicleID, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	filter := usecase.TimelineFilter{
		Category: domain.EventCategory(strings.TrimSpace(c.Query("category"))),
		Type:     strings.TrimSpace(c.Query("type")),
		Severity: domain.EventSeverity(strings.TrimSpace(c.Query("severity"))),
		Tag:      strings.TrimSpace(c.Query("tag")),
		Cursor:   strings.TrimSpace(c.Query("cursor")),
	}
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil {
			filter.Limit = limit
		}
	}
	if raw := strings.TrimSpace(c.Query("since")); raw != "" {
		if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
			filter.Since = &parsed
		}
	}
	if raw := strings.TrimSpace(c.Query("until")); raw != "" {
		if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
			filter.Until = &parsed
		}
	}
	items, next, err := h.Events.Timeline(c.Request.Context(), vehicleID, filter, actor.EntityID)
	if err != nil {
		common.WriteError(c, err)
		return
	}
	resp := make([]common.EventResponse, 0, len(items))
	for _, event := range items {
		resp = append(resp, common.ToEventResponse(event))
	}
	payload := gin.H{"items": resp}
	if next != "" {
		payload["next_cursor"] = next
	}
	c.JSON(http.StatusOK, payload)
}

// Partition admin endpoints. Admin role only; these change physical storage.

func (h *Handler) HandleEnsurePartition(c *gin.Context) {
	actor := common.ActorFrom(c)
	if !actor.Admin {
		common.WriteErrorCode(c, http.StatusForbidden, "FORBIDDEN", "admin role required")
		return
	}
	year, quarter, ok := partitionParams(c)
	if !ok {
		return
	}
	if err := h.Partitions.EnsurePartition(c.Request.Context(), year, quarter); err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"partition": partitionLabel(year, quarter)})
}

func (h *Handler) HandleDropPartition(c *gin.Context) {
	actor := common.ActorFrom(c)
	if !actor.Admin {
		common.WriteErrorCode(c, http.StatusForbidden, "FORBIDDEN", "admin role required")
		return
	}
	year, quarter, ok := partitionParams(c)
	if !ok {
		return
	}
	if err := h.Partitions.DropPartition(c.Request.Context(), year, quarter); err != nil {
		common.WriteError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) HandleListPartitions(c *gin.Context) {
	actor := common.ActorFrom(c)
	if !actor.Admin {
		common.WriteErrorCode(c, http.StatusForbidden, "FORBIDDEN", "admin role required")
		return
	}
	names, err := h.Partitions.ListPartitions(c.Request.Context())
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": names})
}

func partitionParams(c *gin.Context) (int, int, bool) {
	year, err := strconv.Atoi(strings.TrimSpace(c.Param("year")))
	if err != nil {
		common.WriteErrorCode(c, http.StatusBadRequest, "INVALID_ARGUMENT", "year must be a number")
		return 0, 0, false
	}
	quarter, err := strconv.Atoi(strings.TrimSpace(c.Param("quarter")))
	if err != nil {
		common.WriteErrorCode(c, http.StatusBadRequest, "INVALID_ARGUMENT", "quarter must be a number")
		return 0, 0, false
	}
	return year, quarter, true
}

func partitionLabel(year, quarter int) string {
	return "vehicle_events_" + strconv.Itoa(year) + "_q" + strconv.Itoa(quarter)
}
