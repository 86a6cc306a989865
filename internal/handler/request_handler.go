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

type RequestHandler struct {
	requestService  service.RequestService
	issuanceService service.IssuanceService
}

func NewRequestHandler(requestService service.RequestService, issuanceService service.IssuanceService) *RequestHandler {
	return &RequestHandler{requestService: requestService, issuanceService: issuanceService}
}

func (h *RequestHandler) RegisterRoutes(router *gin.RouterGroup) {
	requests := router.Group("/api/requests")
	{
		requests.POST("", middleware.RequireRole(model.RoleAdmin, model.RoleStaff), h.Submit)
		requests.GET("", middleware.RequireRole(model.RoleAdmin, model.RoleStaff), h.List)
		requests.GET("/:id", middleware.RequireRole(model.RoleAdmin, model.RoleStaff), h.Get)

		// Workflow decisions and issuance are admin only.
		requests.PUT("/:id/lines", middleware.RequireRole(model.RoleAdmin), h.EditLines)
		requests.POST("/:id/approve", middleware.RequireRole(model.RoleAdmin), h.Approve)
		requests.POST("/:id/reject", middleware.RequireRole(model.RoleAdmin), h.Reject)
		requests.POST("/:id/issue", middleware.RequireRole(model.RoleAdmin), h.Issue)
	}
}

// Submit creates a new pending item request
// @Summary      Submit request
// @Description  Creates a pending request for a set of stock items. No availability check happens here.
// @Tags         requests
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.SubmitRequestInput  true  "Request Lines"
// @Success      201      {object}  response.Response{data=service.RequestResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/requests [post]
func (h *RequestHandler) Submit(c *gin.Context) {
	var input service.SubmitRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	req, err := h.requestService.Submit(c.Request.Context(), c.GetString("userID"), input)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, req))
}

// List returns paginated requests. Staff only see their own.
// @Summary      List requests
// @Tags         requests
// @Security     BearerAuth
// @Produce      json
// @Param        page    query     int     false  "Page number"
// @Param        limit   query     int     false  "Items per page"
// @Param        status  query     string  false  "Filter by status (pending|approved|rejected)"
// @Success      200  {object}  response.Response{data=object}
// @Router       /api/requests [get]
func (h *RequestHandler) List(c *gin.Context) {
	params := pagination.Parse(c)
	status := c.Query("status")

	// Staff are restricted to their own requests; admins see everything.
	requesterID := ""
	if c.GetString("userRole") != model.RoleAdmin {
		requesterID = c.GetString("userID")
	}

	requests, total, err := h.requestService.List(c.Request.Context(), params.Page, params.Limit, status, requesterID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, "requests", requests, total, params.Page, params.Limit))
}

// Get returns a single request with its derived issued flag
// @Summary      Get request
// @Tags         requests
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  response.Response{data=service.RequestResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/requests/{id} [get]
func (h *RequestHandler) Get(c *gin.Context) {
	req, err := h.requestService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, req))
}

// EditLines replaces the line items of a pending request
// @Summary      Edit request lines
// @Description  Replaces the line items. Only permitted while the request is pending.
// @Tags         requests
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                      true  "Request ID"
// @Param        payload  body      service.SubmitRequestInput  true  "Replacement Lines"
// @Success      200      {object}  response.Response{data=service.RequestResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/requests/{id}/lines [put]
func (h *RequestHandler) EditLines(c *gin.Context) {
	var input service.SubmitRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	req, err := h.requestService.EditLines(c.Request.Context(), c.GetString("userID"), c.Param("id"), input.Lines)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, req))
}

// Approve approves a pending request, deducting stock for every line atomically
// @Summary      Approve request
// @Description  Checks all lines against on-hand stock and deducts them in one transaction. Any shortfall aborts the whole approval.
// @Tags         requests
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                 true  "Request ID"
// @Param        payload  body      service.DecisionInput  true  "Approval Notes / Override Lines"
// @Success      200      {object}  response.Response{data=service.RequestResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/requests/{id}/approve [post]
func (h *RequestHandler) Approve(c *gin.Context) {
	var input service.DecisionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	req, err := h.requestService.Approve(c.Request.Context(), c.GetString("userID"), c.Param("id"), input)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, req))
}

// Reject rejects a pending request. Never touches stock.
// @Summary      Reject request
// @Tags         requests
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                 true  "Request ID"
// @Param        payload  body      service.DecisionInput  true  "Rejection Notes"
// @Success      200      {object}  response.Response{data=service.RequestResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/requests/{id}/reject [post]
func (h *RequestHandler) Reject(c *gin.Context) {
	var input service.DecisionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	req, err := h.requestService.Reject(c.Request.Context(), c.GetString("userID"), c.Param("id"), input.Notes)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, req))
}

// Issue creates issuance records for an approved request
// @Summary      Issue items
// @Description  Creates one issued-item record per request line with a return due date. Stock was already deducted at approval.
// @Tags         requests
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                     true  "Request ID"
// @Param        payload  body      service.IssueRequestInput  true  "Issue Payload"
// @Success      201      {object}  response.Response{data=[]service.IssuedItemResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/requests/{id}/issue [post]
func (h *RequestHandler) Issue(c *gin.Context) {
	var input service.IssueRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	issued, err := h.issuanceService.Issue(c.Request.Context(), c.GetString("userID"), c.Param("id"), input)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, issued))
}
