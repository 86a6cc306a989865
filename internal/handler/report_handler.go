package handler

import (
	"net/http"
	"strconv"

	"stockroom/internal/middleware"
	"stockroom/internal/model"
	"stockroom/internal/service"
	"stockroom/pkg/pagination"
	"stockroom/pkg/response"

	"github.com/gin-gonic/gin"
)

type ReportHandler struct {
	reportService service.ReportService
	auditService  service.AuditService
}

func NewReportHandler(reportService service.ReportService, auditService service.AuditService) *ReportHandler {
	return &ReportHandler{reportService: reportService, auditService: auditService}
}

func (h *ReportHandler) RegisterRoutes(router *gin.RouterGroup) {
	reports := router.Group("/api/reports")
	reports.Use(middleware.RequireRole(model.RoleAdmin))
	{
		reports.GET("/summary", h.StockSummary)
		reports.GET("/expiring", h.ExpiringItems)
		reports.GET("/discards", h.DiscardsByReason)
		reports.GET("/discard-log", h.DiscardLog)
		reports.GET("/purchases", h.PurchaseHistory)
		reports.GET("/audit-logs", h.AuditLogs)
	}
}

// StockSummary returns dashboard counts
// @Summary      Stock summary
// @Description  Item count, total on-hand quantity, low-stock items under a threshold, active and overdue issuances, pending requests.
// @Tags         reports
// @Security     BearerAuth
// @Produce      json
// @Param        low_stock_threshold  query     int  false  "Low stock threshold (default 5)"
// @Success      200  {object}  response.Response{data=service.StockSummary}
// @Router       /api/reports/summary [get]
func (h *ReportHandler) StockSummary(c *gin.Context) {
	threshold, _ := strconv.Atoi(c.DefaultQuery("low_stock_threshold", "5"))

	summary, err := h.reportService.StockSummary(c.Request.Context(), threshold)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, summary))
}

// ExpiringItems returns medical items expiring soon
// @Summary      Expiring items
// @Tags         reports
// @Security     BearerAuth
// @Produce      json
// @Param        within_days  query     int  false  "Window in days (default 30)"
// @Success      200  {object}  response.Response{data=[]service.ExpiringItem}
// @Router       /api/reports/expiring [get]
func (h *ReportHandler) ExpiringItems(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("within_days", "30"))

	items, err := h.reportService.ExpiringItems(c.Request.Context(), days)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, items))
}

// DiscardsByReason returns discard totals grouped by reason
// @Summary      Discards by reason
// @Tags         reports
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.DiscardSummary}
// @Router       /api/reports/discards [get]
func (h *ReportHandler) DiscardsByReason(c *gin.Context) {
	summaries, err := h.reportService.DiscardsByReason(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, summaries))
}

// DiscardLog returns individual discard entries
// @Summary      Discard log
// @Tags         reports
// @Security     BearerAuth
// @Produce      json
// @Param        page     query     int     false  "Page number"
// @Param        limit    query     int     false  "Items per page"
// @Param        item_id  query     string  false  "Filter by item"
// @Param        reason   query     string  false  "Filter by reason (damaged|broken|expired)"
// @Success      200  {object}  response.Response{data=object}
// @Router       /api/reports/discard-log [get]
func (h *ReportHandler) DiscardLog(c *gin.Context) {
	params := pagination.Parse(c)

	records, total, err := h.reportService.DiscardLog(c.Request.Context(), params.Page, params.Limit, c.Query("item_id"), c.Query("reason"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, "discards", records, total, params.Page, params.Limit))
}

// PurchaseHistory returns restock history entries
// @Summary      Purchase history
// @Tags         reports
// @Security     BearerAuth
// @Produce      json
// @Param        page     query     int     false  "Page number"
// @Param        limit    query     int     false  "Items per page"
// @Param        item_id  query     string  false  "Filter by item"
// @Success      200  {object}  response.Response{data=object}
// @Router       /api/reports/purchases [get]
func (h *ReportHandler) PurchaseHistory(c *gin.Context) {
	params := pagination.Parse(c)

	records, total, err := h.reportService.PurchaseHistory(c.Request.Context(), params.Page, params.Limit, c.Query("item_id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, "purchases", records, total, params.Page, params.Limit))
}

// AuditLogs returns the audit trail
// @Summary      Audit logs
// @Tags         reports
// @Security     BearerAuth
// @Produce      json
// @Param        page   query     int  false  "Page number"
// @Param        limit  query     int  false  "Items per page"
// @Success      200  {object}  response.Response{data=object}
// @Router       /api/reports/audit-logs [get]
func (h *ReportHandler) AuditLogs(c *gin.Context) {
	params := pagination.Parse(c)

	logs, total, err := h.auditService.GetAuditLogs(c.Request.Context(), params.Page, params.Limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, "logs", logs, total, params.Page, params.Limit))
}
