package handler

import (
	"bytes"
	"context"
	"net/http"
	"strconv"
	"time"

	"recipestock/internal/apierror"
	"recipestock/internal/dto"
	"recipestock/internal/infra"
	"recipestock/internal/service"
	"recipestock/internal/worker"

	"github.com/gin-gonic/gin"
)

// ReportQueue accepts daily report jobs.
type ReportQueue interface {
	EnqueueDailyReport(ctx context.Context, p worker.DailyReportPayload) error
}

type SalesHandler struct {
	svc       service.SaleService
	inventory service.InventoryService
	reports   ReportQueue
	now       func() time.Time
}

func NewSalesHandler(svc service.SaleService, inventory service.InventoryService, reports ReportQueue) *SalesHandler {
	return &SalesHandler{svc: svc, inventory: inventory, reports: reports, now: time.Now}
}

// ProcessSale godoc
// @Summary      Record a sale
// @Description  Deducts every ingredient of the recipe scaled by quantity in one transaction and appends the sale to the ledger. All-or-nothing: a single shortfall rejects the whole sale and every shortfall is listed.
// @Tags         sales
// @Accept       json
// @Produce      json
// @Param        body body     dto.ProcessSaleRequest true "Recipe and quantity"
// @Success      201  {object} dto.SaleResponse
// @Failure      400  {object} apierror.APIError "invalid quantity, empty or inactive recipe"
// @Failure      404  {object} apierror.APIError "unknown recipe"
// @Failure      409  {object} apierror.StockError "insufficient stock"
// @Failure      503  {object} apierror.APIError "storage unavailable, nothing was changed"
// @Router       /v1/sales [post]
func (h *SalesHandler) ProcessSale(c *gin.Context) {
	var req dto.ProcessSaleRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.ProcessSale(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// List godoc
// @Summary      List sales
// @Tags         sales
// @Produce      json
// @Param        date      query string false "Business day YYYY-MM-DD"
// @Param        recipe_id query string false "Recipe UUID"
// @Param        page      query int    false "Page (default 1)"
// @Param        limit     query int    false "Page size (default 50)"
// @Success      200       {object} dto.SaleListResponse
// @Failure      400       {object} apierror.APIError
// @Router       /v1/sales [get]
func (h *SalesHandler) List(c *gin.Context) {
	var filter dto.SaleFilter
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

func (h *SalesHandler) Get(c *gin.Context) {
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

// Recent GET /v1/sales/recent?limit=N
func (h *SalesHandler) Recent(c *gin.Context) {
	n := 0
	if s := c.Query("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, apierror.New("limit must be an integer"))
			return
		}
		n = v
	}
	resp, err := h.svc.Recent(c.Request.Context(), n)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// day resolves ?date=YYYY-MM-DD to a point inside that business day.
func (h *SalesHandler) day(c *gin.Context) (time.Time, bool) {
	s := c.Query("date")
	if s == "" {
		return h.now(), true
	}
	d, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("date must be YYYY-MM-DD"))
		return time.Time{}, false
	}
	return d.Add(12 * time.Hour), true
}

// DailySummary GET /v1/sales/daily-summary?date=YYYY-MM-DD
func (h *SalesHandler) DailySummary(c *gin.Context) {
	at, ok := h.day(c)
	if !ok {
		return
	}
	resp, err := h.svc.DailySummary(c.Request.Context(), at)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// PeriodReport godoc
// @Summary      Sales report for a date range
// @Tags         sales
// @Produce      json
// @Param        start_date query string true "First day YYYY-MM-DD"
// @Param        end_date   query string true "Last day YYYY-MM-DD, inclusive"
// @Success      200        {object} dto.PeriodReport
// @Failure      400        {object} apierror.APIError
// @Router       /v1/sales/report [get]
func (h *SalesHandler) PeriodReport(c *gin.Context) {
	var dates [2]time.Time
	for i, name := range []string{"start_date", "end_date"} {
		d, err := time.ParseInLocation("2006-01-02", c.Query(name), time.Local)
		if err != nil {
			c.JSON(http.StatusBadRequest, apierror.New(name+" must be YYYY-MM-DD"))
			return
		}
		dates[i] = d
	}
	resp, err := h.svc.PeriodReport(c.Request.Context(), dates[0], dates[1])
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// RevenueTrend godoc
// @Summary      Daily revenue series
// @Description  One point per day up to today; days without sales report zero.
// @Tags         sales
// @Produce      json
// @Param        period query string false "7d, 30d (default), 90d or 1y"
// @Success      200    {object} dto.RevenueTrend
// @Failure      400    {object} apierror.APIError
// @Router       /v1/sales/trends [get]
func (h *SalesHandler) RevenueTrend(c *gin.Context) {
	resp, err := h.svc.RevenueTrend(c.Request.Context(), c.Query("period"), h.now())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// DailyReportPDF godoc
// @Summary      Download the daily report
// @Tags         sales
// @Produce      application/pdf
// @Param        date query string false "Business day YYYY-MM-DD (default today)"
// @Success      200
// @Router       /v1/sales/daily-report [get]
func (h *SalesHandler) DailyReportPDF(c *gin.Context) {
	at, ok := h.day(c)
	if !ok {
		return
	}
	report, err := worker.BuildDailyReport(c.Request.Context(), h.svc, h.inventory, at, h.now())
	if err != nil {
		respondError(c, err)
		return
	}
	var buf bytes.Buffer
	if err := infra.WriteDailyReportPDF(&buf, report); err != nil {
		_ = c.Error(err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="daily_report_`+report.Summary.Date+`.pdf"`)
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

// EmailDailyReport POST /v1/sales/daily-report/email
// Queues the report; the worker renders and mails it.
func (h *SalesHandler) EmailDailyReport(c *gin.Context) {
	if h.reports == nil {
		c.JSON(http.StatusServiceUnavailable, apierror.New("job queue unavailable"))
		return
	}
	var p worker.DailyReportPayload
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&p); err != nil {
			c.JSON(http.StatusBadRequest, apierror.New("invalid JSON: "+err.Error()))
			return
		}
	}
	if p.Date != "" {
		if _, err := time.Parse("2006-01-02", p.Date); err != nil {
			c.JSON(http.StatusBadRequest, apierror.New("date must be YYYY-MM-DD"))
			return
		}
	} else {
		p.Date = h.now().Format("2006-01-02")
	}
	if err := h.reports.EnqueueDailyReport(c.Request.Context(), p); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"queued": true, "date": p.Date})
}
