package http

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/expense-manager/internal/application/service"
)

const reportDateLayout = "2006-01-02"

// reportRequest parses the optional from/to query dates. to is inclusive of
// the whole day.
func reportRequest(c *gin.Context) (service.ReportRequest, error) {
	var req service.ReportRequest
	if raw := c.Query("from"); raw != "" {
		from, err := time.Parse(reportDateLayout, raw)
		if err != nil {
			return req, fmt.Errorf("from must be YYYY-MM-DD")
		}
		req.From = from
	}
	if raw := c.Query("to"); raw != "" {
		to, err := time.Parse(reportDateLayout, raw)
		if err != nil {
			return req, fmt.Errorf("to must be YYYY-MM-DD")
		}
		req.To = to.AddDate(0, 0, 1)
	}
	return req, nil
}

// ReportSummary handles GET /api/v1/reports/summary
func (h *Handlers) ReportSummary(c *gin.Context) {
	req, err := reportRequest(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	summary, err := h.services.Reports.Summary(c.Request.Context(), principal(c), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, summary)
}

// ExportReport handles GET /api/v1/reports/export?format=csv|xlsx
func (h *Handlers) ExportReport(c *gin.Context) {
	req, err := reportRequest(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	format := c.DefaultQuery("format", "csv")
	writer, err := h.services.Reports.Writer(format)
	if err != nil {
		h.writeError(c, err)
		return
	}

	// Buffered so a failure can still be reported as JSON
	var buf bytes.Buffer
	if err := h.services.Reports.Export(c.Request.Context(), principal(c), format, req, &buf); err != nil {
		h.writeError(c, err)
		return
	}

	filename := fmt.Sprintf("expenses-%s%s", time.Now().UTC().Format("20060102"), writer.Extension())
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, writer.ContentType(), buf.Bytes())
}

// Dashboard handles GET /api/v1/dashboard
func (h *Handlers) Dashboard(c *gin.Context) {
	d, err := h.services.Dashboard.Get(c.Request.Context(), principal(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, d)
}
