package events

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jedmesilva/mobistory-backend/internal/domain"
	"github.com/jedmesilva/mobistory-backend/internal/http/common"
	"github.com/jedmesilva/mobistory-backend/internal/usecase"
)

// Handler ingests source-record changes and projects them onto the vehicle
// timeline. Producers report the row they wrote; projection decides whether
// an event fires, and retries dedupe on the source key.
type Handler struct {
	Projector *usecase.Projector
}

func NewHandler(projector *usecase.Projector) *Handler {
	return &Handler{Projector: projector}
}

func (h *Handler) HandleRefuel(c *gin.Context) {
	vehicleID, ok := ingestPrelude(c)
	if !ok {
		return
	}
	var req struct {
		RecordID      string    `json:"record_id"`
		EntityID      string    `json:"entity_id"`
		Date          time.Time `json:"date"`
		Liters        float64   `json:"liters"`
		PricePerLiter float64   `json:"price_per_liter"`
		TotalPrice    float64   `json:"total_price"`
		OdometerKM    int       `json:"odometer_km"`
		FullTank      bool      `json:"full_tank"`
		Observations  string    `json:"observations"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.WriteErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}
	event, emitted, err := h.Projector.RefuelRecorded(c.Request.Context(), usecase.RefuelChange{
		RecordID:      req.RecordID,
		VehicleID:     vehicleID,
		EntityID:      req.EntityID,
		Date:          req.Date,
		Liters:        req.Liters,
		PricePerLiter: req.PricePerLiter,
		TotalPrice:    req.TotalPrice,
		OdometerKM:    req.OdometerKM,
		FullTank:      req.FullTank,
		Observations:  req.Observations,
	})
	writeProjection(c, event, emitted, err)
}

func (h *Handler) HandleMileage(c *gin.Context) {
	vehicleID, ok := ingestPrelude(c)
	if !ok {
		return
	}
	var req struct {
		RecordID        string    `json:"record_id"`
		OdometerID      string    `json:"odometer_id"`
		RecordedAt      time.Time `json:"recorded_at"`
		Mileage         int       `json:"mileage"`
		PreviousMileage int       `json:"previous_mileage"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.WriteErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}
	event, emitted, err := h.Projector.MileageRecorded(c.Request.Context(), usecase.MileageChange{
		RecordID:        req.RecordID,
		VehicleID:       vehicleID,
		OdometerID:      req.OdometerID,
		RecordedAt:      req.RecordedAt,
		Mileage:         req.Mileage,
		PreviousMileage: req.PreviousMileage,
	})
	writeProjection(c, event, emitted, err)
}

func (h *Handler) HandleClaim(c *gin.Context) {
	vehicleID, ok := ingestPrelude(c)
	if !ok {
		return
	}
	var req struct {
		RecordID        string    `json:"record_id"`
		ClaimType       string    `json:"claim_type"`
		Severity        string    `json:"severity"`
		Date            time.Time `json:"date"`
		ClaimKM         int       `json:"claim_km"`
		LocationLat     float64   `json:"location_lat"`
		LocationLng     float64   `json:"location_lng"`
		Address         string    `json:"address"`
		PoliceReport    string    `json:"police_report"`
		InsuranceStatus string    `json:"insurance_status"`
		TotalRepairCost float64   `json:"total_repair_cost"`
		Status          string    `json:"status"`
		Description     string    `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.WriteErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}
	event, emitted, err := h.Projector.ClaimReported(c.Request.Context(), usecase.ClaimChange{
		RecordID:        req.RecordID,
		VehicleID:       vehicleID,
		ClaimType:       req.ClaimType,
		Severity:        req.Severity,
		Date:            req.Date,
		ClaimKM:         req.ClaimKM,
		LocationLat:     req.LocationLat,
		LocationLng:     req.LocationLng,
		Address:         req.Address,
		PoliceReport:    req.PoliceReport,
		InsuranceStatus: req.InsuranceStatus,
		TotalRepairCost: req.TotalRepairCost,
		Status:          req.Status,
		Description:     req.Description,
	})
	writeProjection(c, event, emitted, err)
}

func (h *Handler) HandlePlate(c *gin.Context) {
	vehicleID, ok := ingestPrelude(c)
	if !ok {
		return
	}
	var req struct {
		Op             string     `json:"op"`
		RecordID       string     `json:"record_id"`
		EntityID       string     `json:"entity_id"`
		PlateNumber    string     `json:"plate_number"`
		State          string     `json:"state"`
		City           string     `json:"city"`
		LicensingStart *time.Time `json:"licensing_start"`
		LicensingEnd   *time.Time `json:"licensing_end"`
		Status         string     `json:"status"`
		PrevStatus     string     `json:"prev_status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.WriteErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}
	event, emitted, err := h.Projector.PlateChanged(c.Request.Context(), usecase.PlateChange{
		Op:             usecase.ChangeOp(req.Op),
		RecordID:       req.RecordID,
		VehicleID:      vehicleID,
		EntityID:       req.EntityID,
		PlateNumber:    req.PlateNumber,
		State:          req.State,
		City:           req.City,
		LicensingStart: req.LicensingStart,
		LicensingEnd:   req.LicensingEnd,
		Status:         req.Status,
		PrevStatus:     req.PrevStatus,
	})
	writeProjection(c, event, emitted, err)
}

func (h *Handler) HandleOdometer(c *gin.Context) {
	vehicleID, ok := ingestPrelude(c)
	if !ok {
		return
	}
	var req struct {
		Op               string     `json:"op"`
		RecordID         string     `json:"record_id"`
		Brand            string     `json:"brand"`
		Model            string     `json:"model"`
		PartNumber       string     `json:"part_number"`
		InstallationDate *time.Time `json:"installation_date"`
		RemovalDate      *time.Time `json:"removal_date"`
		PrevRemovalDate  *time.Time `json:"prev_removal_date"`
		Cost             float64    `json:"cost"`
		WarrantyMonths   int        `json:"warranty_months"`
		ReasonForChange  string     `json:"reason_for_change"`
		DamageType       string     `json:"damage_type"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.WriteErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}
	event, emitted, err := h.Projector.OdometerChanged(c.Request.Context(), usecase.OdometerChange{
		Op:               usecase.ChangeOp(req.Op),
		RecordID:         req.RecordID,
		VehicleID:        vehicleID,
		Brand:            req.Brand,
		Model:            req.Model,
		PartNumber:       req.PartNumber,
		InstallationDate: req.InstallationDate,
		RemovalDate:      req.RemovalDate,
		PrevRemovalDate:  req.PrevRemovalDate,
		Cost:             req.Cost,
		WarrantyMonths:   req.WarrantyMonths,
		ReasonForChange:  req.ReasonForChange,
		DamageType:       req.DamageType,
	})
	writeProjection(c, event, emitted, err)
}

func (h *Handler) HandleColor(c *gin.Context) {
	vehicleID, ok := ingestPrelude(c)
	if !ok {
		return
	}
	var req struct {
		RecordID  string    `json:"record_id"`
		ColorID   string    `json:"color_id"`
		ColorName string    `json:"color_name"`
		Primary   bool      `json:"is_primary"`
		At        time.Time `json:"at"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.WriteErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}
	event, emitted, err := h.Projector.PrimaryColorSet(c.Request.Context(), usecase.ColorChange{
		RecordID:  req.RecordID,
		VehicleID: vehicleID,
		ColorID:   req.ColorID,
		ColorName: req.ColorName,
		Primary:   req.Primary,
		At:        req.At,
	})
	writeProjection(c, event, emitted, err)
}

func (h *Handler) HandleCover(c *gin.Context) {
	vehicleID, ok := ingestPrelude(c)
	if !ok {
		return
	}
	var req struct {
		RecordID     string    `json:"record_id"`
		FileID       string    `json:"file_id"`
		FileURL      string    `json:"file_url"`
		Primary      bool      `json:"is_primary"`
		DisplayOrder int       `json:"display_order"`
		At           time.Time `json:"at"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.WriteErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}
	event, emitted, err := h.Projector.PrimaryCoverSet(c.Request.Context(), usecase.CoverChange{
		RecordID:     req.RecordID,
		VehicleID:    vehicleID,
		FileID:       req.FileID,
		FileURL:      req.FileURL,
		Primary:      req.Primary,
		DisplayOrder: req.DisplayOrder,
		At:           req.At,
	})
	writeProjection(c, event, emitted, err)
}

func (h *Handler) HandleAction(c *gin.Context) {
	vehicleID, ok := ingestPrelude(c)
	if !ok {
		return
	}
	var req struct {
		RecordID     string     `json:"record_id"`
		EntityID     string     `json:"entity_id"`
		Status       string     `json:"status"`
		PrevStatus   string     `json:"prev_status"`
		ActionTypeID string     `json:"action_type_id"`
		Title        string     `json:"title"`
		Description  string     `json:"description"`
		Priority     string     `json:"priority"`
		ScheduledFor *time.Time `json:"scheduled_for"`
		ExecutedAt   *time.Time `json:"executed_at"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.WriteErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}
	event, emitted, err := h.Projector.ActionCompleted(c.Request.Context(), usecase.ActionChange{
		RecordID:     req.RecordID,
		VehicleID:    vehicleID,
		EntityID:     req.EntityID,
		Status:       req.Status,
		PrevStatus:   req.PrevStatus,
		ActionTypeID: req.ActionTypeID,
		Title:        req.Title,
		Description:  req.Description,
		Priority:     req.Priority,
		ScheduledFor: req.ScheduledFor,
		ExecutedAt:   req.ExecutedAt,
	})
	writeProjection(c, event, emitted, err)
}

func ingestPrelude(c *gin.Context) (string, bool) {
	if _, ok := common.RequireActor(c); !ok {
		return "", false
	}
	return common.ParseUUIDParam(c, "id")
}

func writeProjection(c *gin.Context, event domain.VehicleEvent, emitted bool, err error) {
	if err != nil {
		common.WriteError(c, err)
		return
	}
	if !emitted {
		// Either the change does not produce an event, or a retry hit an
		// already recorded one; the existing event is returned when present.
		payload := gin.H{"emitted": false}
		if event.ID != "" {
			payload["event"] = common.ToEventResponse(event)
		}
		c.JSON(http.StatusOK, payload)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"emitted": true, "event": common.ToEventResponse(event)})
}
