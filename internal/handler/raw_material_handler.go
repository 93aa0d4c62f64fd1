package handler

import (
	"net/http"
	"strconv"

	"erp-backend/internal/middleware"
	"erp-backend/internal/rbac"
	"erp-backend/internal/service"
	"erp-backend/pkg/pagination"
	"erp-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type RawMaterialHandler struct {
	materialService service.RawMaterialService
	auth            *middleware.Auth
}

func NewRawMaterialHandler(materialService service.RawMaterialService, auth *middleware.Auth) *RawMaterialHandler {
	return &RawMaterialHandler{materialService: materialService, auth: auth}
}

// Raw-material stock is production's concern, so routes are gated on the
// production resource rather than a dedicated one.
func (h *RawMaterialHandler) RegisterRoutes(router *gin.RouterGroup) {
	materials := router.Group("/api/raw-materials")
	{
		materials.GET("", h.auth.RequirePermission(rbac.ResourceProduction, rbac.ActionRead), h.ListMaterials)
		materials.GET("/check-availability", h.auth.RequirePermission(rbac.ResourceProduction, rbac.ActionRead), h.CheckAvailability)
		materials.GET("/:id", h.auth.RequirePermission(rbac.ResourceProduction, rbac.ActionRead), h.GetMaterial)
		materials.POST("", h.auth.RequirePermission(rbac.ResourceProduction, rbac.ActionCreate), h.CreateMaterial)
		materials.PUT("/:id", h.auth.RequirePermission(rbac.ResourceProduction, rbac.ActionUpdate), h.UpdateMaterial)
		materials.POST("/:id/adjust-stock", h.auth.RequirePermission(rbac.ResourceProduction, rbac.ActionUpdate), h.AdjustStock)
		materials.DELETE("/:id", h.auth.RequirePermission(rbac.ResourceProduction, rbac.ActionDelete), h.DeleteMaterial)
	}
}

// ListMaterials returns paginated raw materials with optional search
// @Summary      List raw materials
// @Tags         raw-materials
// @Security     BearerAuth
// @Produce      json
// @Param        page    query     int     false  "Page number (default: 1)"
// @Param        limit   query     int     false  "Items per page (default: 20)"
// @Param        search  query     string  false  "Search by name"
// @Success      200     {object}  response.Response
// @Router       /api/raw-materials [get]
func (h *RawMaterialHandler) ListMaterials(c *gin.Context) {
	params := pagination.Parse(c)
	search := c.Query("search")

	materials, total, err := h.materialService.ListMaterials(c.Request.Context(), params.Page, params.Limit, search)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, materials, params.Page, params.Limit, total))
}

// CheckAvailability reports whether a product can be produced at a quantity.
// It is a read-only dry run; stock is never changed. Both outcomes return
// 200 — the decision payload carries can_produce and any shortfalls.
// @Summary      Check material availability
// @Tags         raw-materials
// @Security     BearerAuth
// @Produce      json
// @Param        product_id  query     string  true  "Product ID"
// @Param        quantity    query     int     true  "Quantity to produce"
// @Success      200  {object}  response.Response{data=production.Decision}
// @Failure      400  {object}  response.Response
// @Failure      500  {object}  response.Response
// @Router       /api/raw-materials/check-availability [get]
func (h *RawMaterialHandler) CheckAvailability(c *gin.Context) {
	productID := c.Query("product_id")
	if productID == "" {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "product_id is required"))
		return
	}

	quantity, err := strconv.Atoi(c.Query("quantity"))
	if err != nil || quantity <= 0 {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "quantity must be a positive integer"))
		return
	}

	decision, err := h.materialService.CheckAvailability(c.Request.Context(), productID, quantity)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, decision))
}

// GetMaterial returns one raw material
// @Summary      Get raw material
// @Tags         raw-materials
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Raw material ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/raw-materials/{id} [get]
func (h *RawMaterialHandler) GetMaterial(c *gin.Context) {
	material, err := h.materialService.GetMaterial(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, material))
}

// CreateMaterial creates a raw material, recording initial stock as a movement
// @Summary      Create raw material
// @Tags         raw-materials
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  service.CreateRawMaterialRequest  true  "Raw material payload"
// @Success      201  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/raw-materials [post]
func (h *RawMaterialHandler) CreateMaterial(c *gin.Context) {
	var req service.CreateRawMaterialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	material, err := h.materialService.CreateMaterial(c.Request.Context(), c.GetString("userID"), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, material))
}

// UpdateMaterial updates raw material metadata (not stock)
// @Summary      Update raw material
// @Tags         raw-materials
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                            true  "Raw material ID"
// @Param        payload  body  service.UpdateRawMaterialRequest  true  "Raw material payload"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/raw-materials/{id} [put]
func (h *RawMaterialHandler) UpdateMaterial(c *gin.Context) {
	var req service.UpdateRawMaterialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	material, err := h.materialService.UpdateMaterial(c.Request.Context(), c.GetString("userID"), c.Param("id"), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, material))
}

// AdjustStock applies a manual stock adjustment and records the movement
// @Summary      Adjust stock
// @Tags         raw-materials
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                      true  "Raw material ID"
// @Param        payload  body  service.AdjustStockRequest  true  "Adjustment payload"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/raw-materials/{id}/adjust-stock [post]
func (h *RawMaterialHandler) AdjustStock(c *gin.Context) {
	var req service.AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	material, err := h.materialService.AdjustStock(c.Request.Context(), c.GetString("userID"), c.Param("id"), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, material))
}

// DeleteMaterial soft-deletes a raw material
// @Summary      Delete raw material
// @Tags         raw-materials
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Raw material ID"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/raw-materials/{id} [delete]
func (h *RawMaterialHandler) DeleteMaterial(c *gin.Context) {
	if err := h.materialService.DeleteMaterial(c.Request.Context(), c.GetString("userID"), c.Param("id")); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Raw material deleted"))
}
