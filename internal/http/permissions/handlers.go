package permissions

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jedmesilva/mobistory-backend/internal/http/common"
	"github.com/jedmesilva/mobistory-backend/internal/usecase"
)

type Handler struct {
	Service *usecase.PermissionService
}

func NewHandler(service *usecase.PermissionService) *Handler {
	return &Handler{Service: service}
}

func (h *Handler) HandleCatalog(c *gin.Context) {
	items, err := h.Service.Catalog(c.Request.Context())
	if err != nil {
		common.WriteError(c, err)
		return
	}
	resp := make([]gin.H, 0, len(items))
	for _, p := range items {
		resp = append(resp, gin.H{
			"code":        p.Code,
			"name":        p.Name,
			"description": p.Description,
			"active":      p.Active,
		})
	}
	c.JSON(http.StatusOK, gin.H{"items": resp})
}

// HandleCheck answers whether an entity holds a permission on a vehicle.
// entity_id defaults to the caller.
func (h *Handler) HandleCheck(c *gin.Context) {
	actor := common.ActorFrom(c)
	entityID := strings.TrimSpace(c.Query("entity_id"))
	if entityID == "" {
		entityID = actor.EntityID
	}
	vehicleID := strings.TrimSpace(c.Query("vehicle_id"))
	code := strings.TrimSpace(c.Query("code"))
	if vehicleID == "" || code == "" {
		common.WriteErrorCode(c, http.StatusBadRequest, "INVALID_ARGUMENT", "vehicle_id and code are required")
		return
	}
	allowed, err := h.Service.HasPermission(c.Request.Context(), entityID, vehicleID, code)
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"entity_id":  entityID,
		"vehicle_id": vehicleID,
		"code":       code,
		"allowed":    allowed,
	})
}
