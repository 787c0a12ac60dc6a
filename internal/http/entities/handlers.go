package entities

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jedmesilva/mobistory-backend/internal/domain"
	"github.com/jedmesilva/mobistory-backend/internal/http/common"
	"github.com/jedmesilva/mobistory-backend/internal/usecase"
)

type Handler struct {
	Service *usecase.EntityService
}

func NewHandler(service *usecase.EntityService) *Handler {
	return &Handler{Service: service}
}

func (h *Handler) HandleCreate(c *gin.Context) {
	var req struct {
		Type    string `json:"type"`
		Name    string `json:"name"`
		Email   string `json:"email"`
		Phone   string `json:"phone"`
		LegalID string `json:"legal_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.WriteErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}
	entity, err := h.Service.Create(c.Request.Context(), usecase.CreateEntityInput{
		TypeCode: domain.EntityTypeCode(req.Type),
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		LegalID:  req.LegalID,
	})
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"entity": common.ToEntityResponse(entity)})
}

func (h *Handler) HandleCreateAnonymous(c *gin.Context) {
	var req struct {
		Fingerprint string `json:"fingerprint"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.WriteErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}
	entity, err := h.Service.CreateAnonymous(c.Request.Context(), req.Fingerprint)
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"entity": common.ToEntityResponse(entity)})
}

func (h *Handler) HandleGet(c *gin.Context) {
	entityID, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	entity, err := h.Service.Get(c.Request.Context(), entityID)
	if err != nil {
		common.WriteError(c, err)
		return
	}
	name, err := h.Service.DisplayName(c.Request.Context(), entityID)
	if err != nil && !isNotFound(err) {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"entity":       common.ToEntityResponse(entity),
		"display_name": name,
	})
}

func (h *Handler) HandleList(c *gin.Context) {
	offset := queryInt(c, "offset", 0)
	limit := queryInt(c, "limit", 100)
	items, err := h.Service.List(c.Request.Context(), offset, limit)
	if err != nil {
		common.WriteError(c, err)
		return
	}
	resp := make([]common.EntityResponse, 0, len(items))
	for _, entity := range items {
		resp = append(resp, common.ToEntityResponse(entity))
	}
	c.JSON(http.StatusOK, gin.H{"items": resp})
}

func (h *Handler) HandleUpdateName(c *gin.Context) {
	actor, ok := common.RequireActor(c)
	if !ok {
		return
	}
	entityID, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		NameType string `json:"name_type"`
		Value    string `json:"value"`
		Reason   string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.WriteErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}
	name, err := h.Service.UpdateName(c.Request.Context(), entityID, req.NameType, req.Value, req.Reason, actor.EntityID)
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"name_type": name.NameType,
		"value":     name.Value,
	})
}

func (h *Handler) HandleUpdateContact(c *gin.Context) {
	if _, ok := common.RequireActor(c); !ok {
		return
	}
	entityID, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		ContactType string `json:"contact_type"`
		Value       string `json:"value"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.WriteErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}
	contact, err := h.Service.UpdateContact(c.Request.Context(), entityID, req.ContactType, req.Value)
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"contact_type": contact.ContactType,
		"value":        contact.Value,
	})
}

func (h *Handler) HandleConvert(c *gin.Context) {
	entityID, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		Email   string `json:"email"`
		Phone   string `json:"phone"`
		LegalID string `json:"legal_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.WriteErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}
	entity, err := h.Service.ConvertAnonymousToVerified(c.Request.Context(), entityID, usecase.ConvertInput{
		Email:   req.Email,
		Phone:   req.Phone,
		LegalID: req.LegalID,
	})
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entity": common.ToEntityResponse(entity)})
}

func (h *Handler) HandleDeactivate(c *gin.Context) {
	if _, ok := common.RequireActor(c); !ok {
		return
	}
	entityID, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	entity, err := h.Service.Deactivate(c.Request.Context(), entityID)
	if err != nil {
		common.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entity": common.ToEntityResponse(entity)})
}

func (h *Handler) HandleNameHistory(c *gin.Context) {
	entityID, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	names, err := h.Service.NameHistory(c.Request.Context(), entityID)
	if err != nil {
		common.WriteError(c, err)
		return
	}
	items := make([]gin.H, 0, len(names))
	for _, name := range names {
		item := gin.H{
			"name_type":  name.NameType,
			"value":      name.Value,
			"current":    name.Current,
			"start_date": name.StartDate,
		}
		if name.EndDate != nil {
			item["end_date"] = name.EndDate
		}
		if name.Reason != "" {
			item["reason"] = name.Reason
		}
		items = append(items, item)
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) HandleContactHistory(c *gin.Context) {
	entityID, ok := common.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	contacts, err := h.Service.ContactHistory(c.Request.Context(), entityID)
	if err != nil {
		common.WriteError(c, err)
		return
	}
	items := make([]gin.H, 0, len(contacts))
	for _, contact := range contacts {
		item := gin.H{
			"contact_type": contact.ContactType,
			"value":        contact.Value,
			"current":      contact.Current,
			"start_date":   contact.StartDate,
		}
		if contact.EndDate != nil {
			item["end_date"] = contact.EndDate
		}
		items = append(items, item)
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func queryInt(c *gin.Context, name string, def int) int {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
