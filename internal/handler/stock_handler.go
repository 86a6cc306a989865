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

type StockHandler struct {
	stockService  service.StockService
	ledgerService service.LedgerService
}

func NewStockHandler(stockService service.StockService, ledgerService service.LedgerService) *StockHandler {
	return &StockHandler{stockService: stockService, ledgerService: ledgerService}
}

func (h *StockHandler) RegisterRoutes(router *gin.RouterGroup) {
	items := router.Group("/api/items")
	{
		// Any authenticated user can browse stock.
		items.GET("", middleware.RequireRole(model.RoleAdmin, model.RoleStaff), h.GetItems)
		items.GET("/:id", middleware.RequireRole(model.RoleAdmin, model.RoleStaff), h.GetItem)

		// Mutations are admin only.
		items.POST("", middleware.RequireRole(model.RoleAdmin), h.CreateItem)
		items.PUT("/:id", middleware.RequireRole(model.RoleAdmin), h.UpdateItem)
		items.DELETE("/:id", middleware.RequireRole(model.RoleAdmin), h.DeleteItem)
		items.POST("/:id/restock", middleware.RequireRole(model.RoleAdmin), h.RestockItem)
		items.POST("/:id/discard", middleware.RequireRole(model.RoleAdmin), h.DiscardItem)
	}
}

// GetItems handles retrieving paginated stock items
// @Summary      List stock items
// @Description  Retrieves a paginated list of stock items with current quantities
// @Tags         items
// @Security     BearerAuth
// @Produce      json
// @Param        page      query     int     false  "Page number (default 1)"
// @Param        limit     query     int     false  "Items per page (default 20)"
// @Param        search    query     string  false  "Search by item name"
// @Param        category  query     string  false  "Filter by category (general|medical)"
// @Success      200  {object}  response.Response{data=object}
// @Failure      500  {object}  response.Response
// @Router       /api/items [get]
func (h *StockHandler) GetItems(c *gin.Context) {
	params := pagination.Parse(c)
	search := c.Query("search")
	category := c.Query("category")

	items, total, err := h.stockService.GetItems(c.Request.Context(), params.Page, params.Limit, search, category)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, "items", items, total, params.Page, params.Limit))
}

// GetItem returns a single stock item by ID
// @Summary      Get stock item
// @Tags         items
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Item ID"
// @Success      200  {object}  response.Response{data=service.ItemResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/items/{id} [get]
func (h *StockHandler) GetItem(c *gin.Context) {
	item, err := h.stockService.GetItem(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, item))
}

// CreateItem creates a new stock item entry
// @Summary      Create stock item
// @Description  Creates a stock item; medical items require batch number and expiry date
// @Tags         items
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateItemRequest  true  "Create Item Payload"
// @Success      201      {object}  response.Response{data=service.ItemResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/items [post]
func (h *StockHandler) CreateItem(c *gin.Context) {
	var req service.CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	item, err := h.stockService.CreateItem(c.Request.Context(), c.GetString("userID"), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, item))
}

// UpdateItem updates stock item metadata (not quantity)
// @Summary      Update stock item
// @Tags         items
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                     true  "Item ID"
// @Param        payload  body      service.UpdateItemRequest  true  "Update Item Payload"
// @Success      200      {object}  response.Response{data=service.ItemResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/items/{id} [put]
func (h *StockHandler) UpdateItem(c *gin.Context) {
	var req service.UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	item, err := h.stockService.UpdateItem(c.Request.Context(), c.GetString("userID"), c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, item))
}

// DeleteItem removes a stock item softly
// @Summary      Delete stock item
// @Tags         items
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Item ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/items/{id} [delete]
func (h *StockHandler) DeleteItem(c *gin.Context) {
	if err := h.stockService.DeleteItem(c.Request.Context(), c.GetString("userID"), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Item deleted successfully"))
}

// RestockItem adds quantity to a stock item via the Ledger
// @Summary      Restock item
// @Description  Increases the item quantity and records purchase history (best-effort)
// @Tags         items
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                  true  "Item ID"
// @Param        payload  body      service.RestockRequest  true  "Restock Payload"
// @Success      200      {object}  response.Response{data=service.ItemResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/items/{id}/restock [post]
func (h *StockHandler) RestockItem(c *gin.Context) {
	var req service.RestockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	item, err := h.ledgerService.Restock(c.Request.Context(), c.GetString("userID"), c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, item))
}

// DiscardItem removes damaged/broken/expired quantity from a stock item
// @Summary      Discard stock
// @Description  Deducts quantity and records a discard audit row in one transaction
// @Tags         items
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                  true  "Item ID"
// @Param        payload  body      service.DiscardRequest  true  "Discard Payload"
// @Success      200      {object}  response.Response{data=service.ItemResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/items/{id}/discard [post]
func (h *StockHandler) DiscardItem(c *gin.Context) {
	var req service.DiscardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	item, err := h.ledgerService.Discard(c.Request.Context(), c.GetString("userID"), c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, item))
}
