package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tm-acme-shop/clubhouse-orders-service/internal/middleware"
	"github.com/tm-acme-shop/clubhouse-orders-service/internal/models"
)

const (
	dateLayout          = "2006-01-02"
	defaultReportWindow = 30 * 24 * time.Hour
)

func adminID(c *gin.Context) string {
	if id := c.GetString(middleware.AdminIDKey); id != "" {
		return id
	}
	return "admin"
}

// UpdateOrderStatus handles PATCH /api/v1/admin/orders/:id/status
func (h *Handlers) UpdateOrderStatus(c *gin.Context) {
	var req models.UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	if !req.Status.Valid() {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "unknown status", Field: "status"})
		return
	}
	req.ChangedBy = adminID(c)

	order, err := h.orders.UpdateOrderStatus(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// CancelOrder handles POST /api/v1/admin/orders/:id/cancel. The body is
// optional.
func (h *Handlers) CancelOrder(c *gin.Context) {
	var req struct {
		Reason string `json:"reason"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request body")
			return
		}
	}

	order, err := h.orders.CancelOrder(c.Request.Context(), c.Param("id"), req.Reason, adminID(c))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// AssignDriver handles PUT /api/v1/admin/orders/:id/driver
func (h *Handlers) AssignDriver(c *gin.Context) {
	var req models.AssignDriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	order, err := h.orders.AssignDriver(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// RequeuePOSSync handles POST /api/v1/admin/orders/:id/pos-sync
func (h *Handlers) RequeuePOSSync(c *gin.Context) {
	if err := h.orders.RequeuePOSSync(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}

// GetFinances handles GET /api/v1/admin/finances?from=&to=. Dates are
// YYYY-MM-DD in UTC or RFC 3339; a date-only to includes that whole day.
func (h *Handlers) GetFinances(c *gin.Context) {
	to := h.now().UTC()
	if s := c.Query("to"); s != "" {
		t, dateOnly, err := parseReportTime(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid date", Field: "to"})
			return
		}
		if dateOnly {
			t = t.Add(24 * time.Hour)
		}
		to = t
	}

	from := to.Add(-defaultReportWindow)
	if s := c.Query("from"); s != "" {
		t, _, err := parseReportTime(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid date", Field: "from"})
			return
		}
		from = t
	}

	report, err := h.finance.Report(c.Request.Context(), from, to)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

func parseReportTime(s string) (time.Time, bool, error) {
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, true, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	return t, false, err
}

// GetDeliveryConfig handles GET /api/v1/admin/delivery-config
func (h *Handlers) GetDeliveryConfig(c *gin.Context) {
	cfg, err := h.deliveryConfig.Current(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, cfg)
}

// UpdateDeliveryConfig handles PUT /api/v1/admin/delivery-config
func (h *Handlers) UpdateDeliveryConfig(c *gin.Context) {
	var req models.UpdateDeliveryConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	req.UpdatedBy = adminID(c)

	cfg, err := h.deliveryConfig.Update(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, cfg)
}
