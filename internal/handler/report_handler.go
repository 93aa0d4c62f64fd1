package handler

import (
	"net/http"

	"erp-backend/internal/middleware"
	"erp-backend/internal/rbac"
	"erp-backend/internal/service"
	"erp-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type ReportHandler struct {
	reportService service.ReportService
	auth          *middleware.Auth
}

func NewReportHandler(reportService service.ReportService, auth *middleware.Auth) *ReportHandler {
	return &ReportHandler{reportService: reportService, auth: auth}
}

func (h *ReportHandler) RegisterRoutes(router *gin.RouterGroup) {
	reports := router.Group("/api/reports")
	{
		reports.GET("/production-summary", h.auth.RequirePermission(rbac.ResourceReports, rbac.ActionRead), h.ProductionSummary)
		reports.GET("/low-stock", h.auth.RequirePermission(rbac.ResourceReports, rbac.ActionRead), h.LowStock)
	}
}

// ProductionSummary aggregates production runs per order over a date range
// @Summary      Production summary report
// @Tags         reports
// @Security     BearerAuth
// @Produce      json
// @Param        from  query     string  false  "Start date (YYYY-MM-DD, default: 30 days ago)"
// @Param        to    query     string  false  "End date (YYYY-MM-DD, inclusive, default: today)"
// @Success      200   {object}  response.Response{data=service.ProductionReport}
// @Failure      400   {object}  response.Response
// @Router       /api/reports/production-summary [get]
func (h *ReportHandler) ProductionSummary(c *gin.Context) {
	report, err := h.reportService.ProductionSummary(c.Request.Context(), c.Query("from"), c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, report))
}

// LowStock lists raw materials below their minimum stock level
// @Summary      Low stock report
// @Tags         reports
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=service.LowStockReport}
// @Failure      500  {object}  response.Response
// @Router       /api/reports/low-stock [get]
func (h *ReportHandler) LowStock(c *gin.Context) {
	report, err := h.reportService.LowStock(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, report))
}
