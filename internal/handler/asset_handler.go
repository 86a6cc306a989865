package handler

import (
	"net/http"

	"stockroom/internal/middleware"
	"stockroom/internal/model"
	"stockroom/internal/service"
	"stockroom/pkg/pagination"
	"stockroom/pkg/response"

	"github.com/gin-gonic/gin"
)

type AssetHandler struct {
	assetService service.AssetService
}

func NewAssetHandler(assetService service.AssetService) *AssetHandler {
	return &AssetHandler{assetService: assetService}
}

func (h *AssetHandler) RegisterRoutes(router *gin.RouterGroup) {
	assets := router.Group("/api/assets")
	{
		assets.GET("", middleware.RequireRole(model.RoleAdmin, model.RoleStaff), h.List)
		assets.GET("/:id", middleware.RequireRole(model.RoleAdmin, model.RoleStaff), h.Get)
		assets.POST("", middleware.RequireRole(model.RoleAdmin), h.Create)
		assets.PUT("/:id", middleware.RequireRole(model.RoleAdmin), h.Update)
		assets.POST("/:id/discard", middleware.RequireRole(model.RoleAdmin), h.Discard)
	}
}

// Create registers a new asset
// @Summary      Create asset
// @Tags         assets
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateAssetRequest  true  "Asset Payload"
// @Success      201      {object}  response.Response{data=service.AssetResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/assets [post]
func (h *AssetHandler) Create(c *gin.Context) {
	var req service.CreateAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	asset, err := h.assetService.Create(c.Request.Context(), c.GetString("userID"), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, asset))
}

// Update edits descriptive fields of an asset
// @Summary      Update asset
// @Tags         assets
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                      true  "Asset ID"
// @Param        payload  body      service.UpdateAssetRequest  true  "Asset Payload"
// @Success      200      {object}  response.Response{data=service.AssetResponse}
// @Failure      404      {object}  response.Response
// @Router       /api/assets/{id} [put]
func (h *AssetHandler) Update(c *gin.Context) {
	var req service.UpdateAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	asset, err := h.assetService.Update(c.Request.Context(), c.GetString("userID"), c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, asset))
}

// Discard retires an asset permanently
// @Summary      Discard asset
// @Description  Marks the asset discarded with a reason. Discarding is terminal: a discarded asset cannot be discarded again or reactivated.
// @Tags         assets
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                       true  "Asset ID"
// @Param        payload  body      service.DiscardAssetRequest  true  "Discard Reason"
// @Success      200      {object}  response.Response{data=service.AssetResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/assets/{id}/discard [post]
func (h *AssetHandler) Discard(c *gin.Context) {
	var req service.DiscardAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	asset, err := h.assetService.Discard(c.Request.Context(), c.GetString("userID"), c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, asset))
}

// Get returns a single asset
// @Summary      Get asset
// @Tags         assets
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Asset ID"
// @Success      200  {object}  response.Response{data=service.AssetResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/assets/{id} [get]
func (h *AssetHandler) Get(c *gin.Context) {
	asset, err := h.assetService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, asset))
}

// List returns paginated assets
// @Summary      List assets
// @Tags         assets
// @Security     BearerAuth
// @Produce      json
// @Param        page    query     int     false  "Page number"
// @Param        limit   query     int     false  "Items per page"
// @Param        status  query     string  false  "Filter by status (active|discarded)"
// @Success      200  {object}  response.Response{data=object}
// @Router       /api/assets [get]
func (h *AssetHandler) List(c *gin.Context) {
	params := pagination.Parse(c)

	assets, total, err := h.assetService.List(c.Request.Context(), params.Page, params.Limit, c.Query("status"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, "assets", assets, total, params.Page, params.Limit))
}
