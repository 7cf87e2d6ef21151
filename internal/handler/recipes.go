package handler

import (
	"net/http"
	"strconv"

	"recipestock/internal/apierror"
	"recipestock/internal/dto"
	"recipestock/internal/infra"
	"recipestock/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RecipesHandler serves the recipe catalog. Cost analyses are cached in
// Redis and dropped whenever the recipe changes.
type RecipesHandler struct {
	svc   service.RecipeService
	cache *infra.CostCache
}

func NewRecipesHandler(svc service.RecipeService, cache *infra.CostCache) *RecipesHandler {
	return &RecipesHandler{svc: svc, cache: cache}
}

// Create godoc
// @Summary      Add a recipe
// @Description  Snapshots each line's ingredient name, unit and cost at authoring time.
// @Tags         recipes
// @Accept       json
// @Produce      json
// @Param        body body     dto.CreateRecipeRequest true "Recipe with at least one line"
// @Success      201  {object} dto.RecipeResponse
// @Failure      404  {object} apierror.APIError "unknown ingredient"
// @Failure      422  {object} apierror.ValidationError
// @Router       /v1/recipes [post]
func (h *RecipesHandler) Create(c *gin.Context) {
	var req dto.CreateRecipeRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *RecipesHandler) List(c *gin.Context) {
	var filter dto.RecipeFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *RecipesHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Update PATCH /v1/recipes/:id (metadata only)
func (h *RecipesHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateRecipeRequest
	if !bindAndValidate(c, &req) {
		return
	}
	h.respondMutation(c, id, func() (*dto.RecipeResponse, error) {
		return h.svc.UpdateMetadata(c.Request.Context(), id, req)
	})
}

func (h *RecipesHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	h.cache.Invalidate(c.Request.Context(), id)
	c.Status(http.StatusNoContent)
}

// ── Lines ────────────────────────────────────────────────────────────────────
// Rejected with 409 once the recipe has been sold.

// AddLine POST /v1/recipes/:id/lines
func (h *RecipesHandler) AddLine(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.RecipeLineInput
	if !bindAndValidate(c, &req) {
		return
	}
	h.respondMutation(c, id, func() (*dto.RecipeResponse, error) {
		return h.svc.AddLine(c.Request.Context(), id, req)
	})
}

// UpdateLine PUT /v1/recipes/:id/lines/:position
func (h *RecipesHandler) UpdateLine(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	pos, ok := linePosition(c)
	if !ok {
		return
	}
	var req dto.UpdateRecipeLineRequest
	if !bindAndValidate(c, &req) {
		return
	}
	h.respondMutation(c, id, func() (*dto.RecipeResponse, error) {
		return h.svc.UpdateLine(c.Request.Context(), id, pos, req)
	})
}

// RemoveLine DELETE /v1/recipes/:id/lines/:position
func (h *RecipesHandler) RemoveLine(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	pos, ok := linePosition(c)
	if !ok {
		return
	}
	h.respondMutation(c, id, func() (*dto.RecipeResponse, error) {
		return h.svc.RemoveLine(c.Request.Context(), id, pos)
	})
}

// Recalculate POST /v1/recipes/:id/recalculate
func (h *RecipesHandler) Recalculate(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	h.respondMutation(c, id, func() (*dto.RecipeResponse, error) {
		return h.svc.Recalculate(c.Request.Context(), id)
	})
}

func (h *RecipesHandler) respondMutation(c *gin.Context, id uuid.UUID, fn func() (*dto.RecipeResponse, error)) {
	resp, err := fn()
	if err != nil {
		respondError(c, err)
		return
	}
	h.cache.Invalidate(c.Request.Context(), id)
	c.JSON(http.StatusOK, resp)
}

func linePosition(c *gin.Context) (int, bool) {
	pos, err := strconv.Atoi(c.Param("position"))
	if err != nil || pos < 0 {
		c.JSON(http.StatusBadRequest, apierror.New("invalid position"))
		return 0, false
	}
	return pos, true
}

// ── Analysis ─────────────────────────────────────────────────────────────────

// CostAnalysis godoc
// @Summary      Recipe cost analysis
// @Description  Ingredient cost plus labour (30%) and overhead (20%), gross margin and profitability band. Served from cache when fresh.
// @Tags         recipes
// @Produce      json
// @Param        id  path     string true "Recipe UUID"
// @Success      200 {object} dto.RecipeCostAnalysis
// @Failure      404 {object} apierror.APIError
// @Router       /v1/recipes/{id}/cost-analysis [get]
func (h *RecipesHandler) CostAnalysis(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if cached, hit := h.cache.Get(ctx, id); hit {
		c.Header("X-Cache", "hit")
		c.JSON(http.StatusOK, cached)
		return
	}
	resp, err := h.svc.CostAnalysis(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	h.cache.Set(ctx, resp)
	c.Header("X-Cache", "miss")
	c.JSON(http.StatusOK, resp)
}

// Availability GET /v1/recipes/:id/availability
func (h *RecipesHandler) Availability(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Availability(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
