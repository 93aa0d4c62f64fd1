package handler

import (
	"net/http"

	"erp-backend/internal/middleware"
	"erp-backend/internal/rbac"
	"erp-backend/internal/service"
	"erp-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type SettingHandler struct {
	settingService service.SettingService
	auth           *middleware.Auth
}

func NewSettingHandler(settingService service.SettingService, auth *middleware.Auth) *SettingHandler {
	return &SettingHandler{settingService: settingService, auth: auth}
}

func (h *SettingHandler) RegisterRoutes(router *gin.RouterGroup) {
	settings := router.Group("/api/settings")
	{
		settings.GET("", h.auth.RequirePermission(rbac.ResourceSettings, rbac.ActionRead), h.ListSettings)
		settings.PUT("", h.auth.RequirePermission(rbac.ResourceSettings, rbac.ActionUpdate), h.UpsertSetting)
		settings.GET("/permissions", h.auth.RequirePermission(rbac.ResourceSettings, rbac.ActionRead), h.PermissionTable)
	}
}

// ListSettings returns all key/value settings
// @Summary      List settings
// @Tags         settings
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /api/settings [get]
func (h *SettingHandler) ListSettings(c *gin.Context) {
	settings, err := h.settingService.ListSettings(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, settings))
}

// UpsertSetting creates or updates one key/value setting
// @Summary      Upsert setting
// @Tags         settings
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  service.UpsertSettingRequest  true  "Setting payload"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/settings [put]
func (h *SettingHandler) UpsertSetting(c *gin.Context) {
	var req service.UpsertSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	setting, err := h.settingService.UpsertSetting(c.Request.Context(), c.GetString("userID"), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, setting))
}

// PermissionTable exposes the role/resource/action matrix. It is read-only;
// changing permissions requires a code change and redeploy.
// @Summary      Get permission table
// @Tags         settings
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /api/settings/permissions [get]
func (h *SettingHandler) PermissionTable(c *gin.Context) {
	c.JSON(http.StatusOK, response.Success(http.StatusOK, h.settingService.PermissionTable()))
}
