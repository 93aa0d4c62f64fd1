package handler

import (
	"errors"
	"net/http"

	"erp-backend/internal/middleware"
	"erp-backend/internal/production"
	"erp-backend/internal/rbac"
	"erp-backend/internal/service"
	"erp-backend/pkg/pagination"
	"erp-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type ProductionHandler struct {
	productionService service.ProductionService
	auth              *middleware.Auth
}

func NewProductionHandler(productionService service.ProductionService, auth *middleware.Auth) *ProductionHandler {
	return &ProductionHandler{productionService: productionService, auth: auth}
}

func (h *ProductionHandler) RegisterRoutes(router *gin.RouterGroup) {
	prod := router.Group("/api/production")
	{
		prod.GET("", h.auth.RequirePermission(rbac.ResourceProduction, rbac.ActionRead), h.ListLogs)
		prod.POST("", h.auth.RequirePermission(rbac.ResourceProduction, rbac.ActionCreate), h.CreateProductionLog)
	}
}

// ListLogs returns paginated production logs, optionally filtered by order
// @Summary      List production logs
// @Tags         production
// @Security     BearerAuth
// @Produce      json
// @Param        page      query     int     false  "Page number (default: 1)"
// @Param        limit     query     int     false  "Items per page (default: 20)"
// @Param        order_id  query     string  false  "Filter by order ID"
// @Success      200       {object}  response.Response
// @Router       /api/production [get]
func (h *ProductionHandler) ListLogs(c *gin.Context) {
	params := pagination.Parse(c)
	orderID := c.Query("order_id")

	logs, total, err := h.productionService.ListLogs(c.Request.Context(), params.Page, params.Limit, orderID)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, logs, params.Page, params.Limit, total))
}

// CreateProductionLog authorizes and records a production run. When raw
// materials fall short, the run is rejected with 400 and the response data
// carries the full availability decision, including per-material shortfalls,
// so the client can show exactly what is missing.
// @Summary      Create production log
// @Tags         production
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateProductionLogRequest  true  "Production payload"
// @Success      201      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Failure      500      {object}  response.Response
// @Router       /api/production [post]
func (h *ProductionHandler) CreateProductionLog(c *gin.Context) {
	var req service.CreateProductionLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	logEntry, decision, err := h.productionService.CreateProductionLog(c.Request.Context(), c.GetString("userID"), req)
	if err != nil {
		var denied *production.InsufficientMaterialsError
		if errors.As(err, &denied) {
			c.JSON(http.StatusBadRequest, response.ErrorWithData(http.StatusBadRequest, denied.Error(), denied.Decision))
			return
		}
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, gin.H{
		"production_log": logEntry,
		"decision":       decision,
	}))
}
