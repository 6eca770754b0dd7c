package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"time"

	"restaurant_pos_backend/internal/services"
	"restaurant_pos_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// ReportHandler holds the report service.
type ReportHandler struct {
	reportService services.ReportService
	now           func() time.Time
}

func NewReportHandler(rs services.ReportService) *ReportHandler {
	return &ReportHandler{reportService: rs, now: time.Now}
}

// reportRange reads ?from and ?to. Missing bounds default to the current month up to today.
func (h *ReportHandler) reportRange(c *gin.Context) (time.Time, time.Time, bool) {
	from, ok := optionalDateQuery(c, "from")
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	to, ok := optionalDateQuery(c, "to")
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	now := h.now()
	if to == nil {
		to = &now
	}
	if from == nil {
		first := time.Date(to.Year(), to.Month(), 1, 0, 0, 0, 0, to.Location())
		from = &first
	}
	return *from, *to, true
}

func (h *ReportHandler) respondError(c *gin.Context, err error) {
	if errors.Is(err, services.ErrInvalidDateRange) {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid date range.", err.Error()))
		return
	}
	respondServiceError(c, err)
}

// GetDashboard returns today's counters for the tenant.
func (h *ReportHandler) GetDashboard(c *gin.Context) {
	summary, err := h.reportService.GetDashboard(c.Request.Context(), currentTenantID(c))
	if err != nil {
		utils.LogError(err, "GetDashboard: Error from reportService.GetDashboard")
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *ReportHandler) GetSalesReport(c *gin.Context) {
	from, to, ok := h.reportRange(c)
	if !ok {
		return
	}
	report, err := h.reportService.GetSalesReport(c.Request.Context(), currentTenantID(c), from, to)
	if err != nil {
		utils.LogError(err, "GetSalesReport: Error from reportService.GetSalesReport")
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// ExportSalesReport sends the sales report for the range as an xlsx workbook.
func (h *ReportHandler) ExportSalesReport(c *gin.Context) {
	from, to, ok := h.reportRange(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := h.reportService.ExportSalesReport(c.Request.Context(), currentTenantID(c), from, to, &buf); err != nil {
		utils.LogError(err, "ExportSalesReport: Error from reportService.ExportSalesReport")
		h.respondError(c, err)
		return
	}
	filename := fmt.Sprintf("sales-%s-%s.xlsx", from.Format(dateLayout), to.Format(dateLayout))
	sendWorkbook(c, filename, &buf)
}
