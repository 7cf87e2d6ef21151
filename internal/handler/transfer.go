package handler

import (
	"net/http"

	"recipestock/internal/dto"
	"recipestock/internal/service"

	"github.com/gin-gonic/gin"
)

type TransferHandler struct{ svc service.TransferService }

func NewTransferHandler(svc service.TransferService) *TransferHandler {
	return &TransferHandler{svc: svc}
}

// Export godoc
// @Summary      Export ingredients, recipes and sales
// @Tags         transfer
// @Produce      json
// @Success      200 {object} dto.InventoryDocument
// @Router       /v1/export [get]
func (h *TransferHandler) Export(c *gin.Context) {
	doc, err := h.svc.Export(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// Import godoc
// @Summary      Import a previously exported document
// @Description  Upserts ingredients and recipes by id; sales already in the ledger are skipped. One transaction.
// @Tags         transfer
// @Accept       json
// @Produce      json
// @Param        body body     dto.InventoryDocument true "Export document"
// @Success      200  {object} dto.ImportResult
// @Failure      400  {object} apierror.APIError
// @Router       /v1/import [post]
func (h *TransferHandler) Import(c *gin.Context) {
	var doc dto.InventoryDocument
	if !bindAndValidate(c, &doc) {
		return
	}
	res, err := h.svc.Import(c.Request.Context(), doc)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
