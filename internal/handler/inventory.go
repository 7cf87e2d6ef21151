package handler

import (
	"net/http"
	"strconv"

	"recipestock/internal/apierror"
	"recipestock/internal/dto"
	"recipestock/internal/service"

	"github.com/gin-gonic/gin"
)

type InventoryHandler struct{ svc service.InventoryService }

func NewInventoryHandler(svc service.InventoryService) *InventoryHandler {
	return &InventoryHandler{svc: svc}
}

// Alerts GET /v1/inventory/alerts
func (h *InventoryHandler) Alerts(c *gin.Context) {
	resp, err := h.svc.Alerts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Expiring GET /v1/inventory/expiring?days=N
func (h *InventoryHandler) Expiring(c *gin.Context) {
	days := 0
	if s := c.Query("days"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, apierror.New("days must be a non-negative integer"))
			return
		}
		days = n
	}
	resp, err := h.svc.Expiring(c.Request.Context(), days)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Report godoc
// @Summary      Inventory report
// @Description  Stock value, per-level and per-category counts, expiring items and the ten most valuable items.
// @Tags         inventory
// @Produce      json
// @Success      200 {object} dto.InventoryReport
// @Router       /v1/inventory/report [get]
func (h *InventoryHandler) Report(c *gin.Context) {
	resp, err := h.svc.Report(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Stocktake POST /v1/inventory/stocktake
func (h *InventoryHandler) Stocktake(c *gin.Context) {
	var req dto.StocktakeRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Stocktake(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// BulkUpdate POST /v1/inventory/bulk-update
func (h *InventoryHandler) BulkUpdate(c *gin.Context) {
	var req dto.BulkUpdateRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.BulkUpdate(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Movements GET /v1/inventory/movements
func (h *InventoryHandler) Movements(c *gin.Context) {
	var filter dto.MovementFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.Movements(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
