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

type IssuanceHandler struct {
	issuanceService service.IssuanceService
}

func NewIssuanceHandler(issuanceService service.IssuanceService) *IssuanceHandler {
	return &IssuanceHandler{issuanceService: issuanceService}
}

func (h *IssuanceHandler) RegisterRoutes(router *gin.RouterGroup) {
	issued := router.Group("/api/issued")
	issued.Use(middleware.RequireRole(model.RoleAdmin, model.RoleStaff))
	{
		issued.GET("", h.List)
		issued.GET("/:id", h.Get)
		issued.GET("/:id/transfers", h.ListTransfers)
		issued.POST("/:id/return", h.Return)
		issued.POST("/:id/transfer", h.Transfer)
	}
}

// List returns paginated issued items
// @Summary      List issued items
// @Description  Lists issuance records. Supports overdue-only, active-only and per-holder filtering. Staff may pass holder=me to see their own custody.
// @Tags         issued
// @Security     BearerAuth
// @Produce      json
// @Param        page     query     int     false  "Page number"
// @Param        limit    query     int     false  "Items per page"
// @Param        holder   query     string  false  "Holder user ID, or 'me'"
// @Param        overdue  query     bool    false  "Only overdue records"
// @Param        active   query     bool    false  "Only not-yet-returned records"
// @Success      200  {object}  response.Response{data=object}
// @Router       /api/issued [get]
func (h *IssuanceHandler) List(c *gin.Context) {
	params := pagination.Parse(c)

	filter := service.IssuedFilter{
		OverdueOnly: c.Query("overdue") == "true",
		ActiveOnly:  c.Query("active") == "true",
	}
	if holder := c.Query("holder"); holder != "" {
		if holder == "me" {
			holder = c.GetString("userID")
		}
		filter.HolderID = holder
	}

	items, total, err := h.issuanceService.List(c.Request.Context(), params.Page, params.Limit, filter)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, "issued", items, total, params.Page, params.Limit))
}

// Get returns a single issuance record
// @Summary      Get issued item
// @Tags         issued
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Issued Item ID"
// @Success      200  {object}  response.Response{data=service.IssuedItemResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/issued/{id} [get]
func (h *IssuanceHandler) Get(c *gin.Context) {
	item, err := h.issuanceService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, item))
}

// Return marks an issued item as returned and restores its quantity to stock
// @Summary      Return issued item
// @Description  Marks the record returned and credits the stock ledger with the issued quantity. Returning an already-returned record fails.
// @Tags         issued
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string               true  "Issued Item ID"
// @Param        payload  body      service.ReturnInput  false "Return Notes"
// @Success      200      {object}  response.Response{data=service.IssuedItemResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/issued/{id}/return [post]
func (h *IssuanceHandler) Return(c *gin.Context) {
	var input service.ReturnInput
	if err := c.ShouldBindJSON(&input); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	item, err := h.issuanceService.MarkReturned(c.Request.Context(), c.GetString("userID"), c.Param("id"), input)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, item))
}

// Transfer reassigns custody of an active issued item
// @Summary      Transfer issued item
// @Description  Moves custody to another user. The caller must be the current holder and the record must not be returned.
// @Tags         issued
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                 true  "Issued Item ID"
// @Param        payload  body      service.TransferInput  true  "Transfer Target"
// @Success      200      {object}  response.Response{data=service.IssuedItemResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/issued/{id}/transfer [post]
func (h *IssuanceHandler) Transfer(c *gin.Context) {
	var input service.TransferInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	item, err := h.issuanceService.Transfer(c.Request.Context(), c.GetString("userID"), c.Param("id"), input)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, item))
}

// ListTransfers returns the custody trail of an issued item
// @Summary      List transfers
// @Tags         issued
// @Security     BearerAuth
// @Produce      json
// @Param        id     path      string  true   "Issued Item ID"
// @Param        page   query     int     false  "Page number"
// @Param        limit  query     int     false  "Items per page"
// @Success      200  {object}  response.Response{data=object}
// @Router       /api/issued/{id}/transfers [get]
func (h *IssuanceHandler) ListTransfers(c *gin.Context) {
	params := pagination.Parse(c)

	transfers, total, err := h.issuanceService.ListTransfers(c.Request.Context(), params.Page, params.Limit, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, "transfers", transfers, total, params.Page, params.Limit))
}
