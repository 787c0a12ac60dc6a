package links

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jedmesilva/mobistory-backend/internal/domain"
	"github.com/jedmesilva/mobistory-backend/internal/http/common"
	"github.com/jedmesilva/mobistory-backend/internal/usecase"
)

type Handler struct {
	Service *usecase.LinkService
}

func NewHandler(service *usecase.LinkService) *Handler {
	return &Handler{Service: service}
}

func (h *Handler) HandleGrant(c *gin.Context) {
	actor, ok := common.RequireActor(c)
	if !ok {
		return
	}
	var req struct {
		EntityID     string `json:"entity_id"`
		VehicleID    string `json:"vehicle_id"`
		Type         string `json:"type"`
		StartDate    string `json:"start_date"`
		EndDate      string `json:"end_date"`
		Observations string `json:"observations"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.WriteErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}
	input := usecase.GrantInput{
		EntityID:     req.EntityID,
		VehicleID:    req.VehicleID,
		TypeCode:     domain.LinkTypeCode(req.Type),
		Observations: req.Observations,
	}
	var ok2 bool
	if input.StartDate, ok2 = parseOptionalTime(c, req.StartDate, "start_date"); !ok2 {
		return
	}
	if input.EndDate, ok2 = parseOptionalTime(c, req.EndDate, "end_date"); !ok2 {
		return
	}
	link, err := h.Service.Grant(c.Request.Context(), actor, input)
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"link": common.ToLinkResponse(link)})
}

func (h *Handler) HandleRequest(c *gin.Context) {
	actor, ok := common.RequireActor(c)
	if !ok {
		return
	}
	var req struct {
		EntityID     string `json:"entity_id"`
		VehicleID    string `json:"vehicle_id"`
		Type         string `json:"type"`
		Observations string `json:"observations"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.WriteErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}
	link, err := h.Service.Request(c.Request.Context(), actor, usecase.RequestInput{
		EntityID:     req.EntityID,
		VehicleID:    req.VehicleID,
		TypeCode:     domain.LinkTypeCode(req.Type),
		Observations: req.Observations,
	})
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"link": common.ToLinkResponse(link)})
}

func (h *Handler) HandleClaim(c *gin.Context) {
	actor, ok := common.RequireActor(c)
	if !ok {
		return
	}
	var req struct {
		VehicleID     string `json:"vehicle_id"`
		Type          string `json:"type"`
		DocumentProof string `json:"document_proof"`
		Observations  string `json:"observations"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.WriteErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}
	link, err := h.Service.Claim(c.Request.Context(), actor, usecase.ClaimInput{
		VehicleID:     req.VehicleID,
		TypeCode:      domain.LinkTypeCode(req.Type),
		DocumentProof: req.DocumentProof,
		Observations:  req.Observations,
	})
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"link": common.ToLinkResponse(link)})
}

func (h *Handler) HandleGet(c *gin.Context) {
	linkID, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	link, err := h.Service.Get(c.Request.Context(), linkID)
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"link": common.ToLinkResponse(link)})
}

func (h *Handler) HandleHistory(c *gin.Context) {
	linkID, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	history, err := h.Service.History(c.Request.Context(), linkID)
	if err != nil {
		common.WriteError(c, err)
		return
	}
	items := make([]common.LinkStatusResponse, 0, len(history))
	for _, change := range history {
		items = append(items, common.ToLinkStatusResponse(change))
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// transition wraps the shared shape of the status-changing endpoints.
func (h *Handler) transition(c *gin.Context, apply func(actor usecase.Actor, linkID, reason string) (domain.Link, error)) {
	actor, ok := common.RequireActor(c)
	if !ok {
		return
	}
	linkID, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			common.WriteErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
			return
		}
	}
	link, err := apply(actor, linkID, req.Reason)
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"link": common.ToLinkResponse(link)})
}

func (h *Handler) HandleApprove(c *gin.Context) {
	h.transition(c, func(actor usecase.Actor, linkID, reason string) (domain.Link, error) {
		return h.Service.Approve(c.Request.Context(), actor, linkID, reason)
	})
}

func (h *Handler) HandleReject(c *gin.Context) {
	h.transition(c, func(actor usecase.Actor, linkID, reason string) (domain.Link, error) {
		return h.Service.Reject(c.Request.Context(), actor, linkID, reason)
	})
}

func (h *Handler) HandleValidate(c *gin.Context) {
	h.transition(c, func(actor usecase.Actor, linkID, reason string) (domain.Link, error) {
		return h.Service.Validate(c.Request.Context(), actor, linkID, reason)
	})
}

func (h *Handler) HandleTerminate(c *gin.Context) {
	h.transition(c, func(actor usecase.Actor, linkID, reason string) (domain.Link, error) {
		return h.Service.Terminate(c.Request.Context(), actor, linkID, reason)
	})
}

func (h *Handler) HandleRevoke(c *gin.Context) {
	h.transition(c, func(actor usecase.Actor, linkID, reason string) (domain.Link, error) {
		return h.Service.Revoke(c.Request.Context(), actor, linkID, reason)
	})
}

func (h *Handler) HandleSuspend(c *gin.Context) {
	h.transition(c, func(actor usecase.Actor, linkID, reason string) (domain.Link, error) {
		return h.Service.Suspend(c.Request.Context(), actor, linkID, reason)
	})
}

func (h *Handler) HandleReactivate(c *gin.Context) {
	h.transition(c, func(actor usecase.Actor, linkID, reason string) (domain.Link, error) {
		return h.Service.Reactivate(c.Request.Context(), actor, linkID, reason)
	})
}

func (h *Handler) HandleScheduleEnd(c *gin.Context) {
	actor, ok := common.RequireActor(c)
	if !ok {
		return
	}
	linkID, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		EndDate string `json:"end_date"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.WriteErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}
	endDate, err := time.Parse(time.RFC3339, strings.TrimSpace(req.EndDate))
	if err != nil {
		common.WriteErrorCode(c, http.StatusBadRequest, "INVALID_ARGUMENT", "end_date must be RFC 3339")
		return
	}
	link, err := h.Service.ScheduleEnd(c.Request.Context(), actor, linkID, endDate)
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"link": common.ToLinkResponse(link)})
}

func (h *Handler) HandleListByEntity(c *gin.Context) {
	entityID, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	filter := usecase.LinkFilter{
		Status:   domain.LinkStatus(strings.TrimSpace(c.Query("status"))),
		TypeCode: domain.LinkTypeCode(strings.TrimSpace(c.Query("type"))),
	}
	items, err := h.Service.EntityLinks(c.Request.Context(), entityID, filter)
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

func parseOptionalTime(c *gin.Context, raw, field string) (*time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, true
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		common.WriteErrorCode(c, http.StatusBadRequest, "INVALID_ARGUMENT", field+" must be RFC 3339")
		return nil, false
	}
	return &parsed, true
}
