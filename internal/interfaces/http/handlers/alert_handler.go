package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vigiamx/satavisos/internal/application/alerting"
	"github.com/vigiamx/satavisos/internal/domain/alert"
	"github.com/vigiamx/satavisos/internal/interfaces/http/middleware"
	"github.com/vigiamx/satavisos/pkg/types/common"
)

// AlertHandler exposes the alert lifecycle endpoints.
type AlertHandler struct {
	svc *alerting.Service
}

// NewAlertHandler builds the handler.
func NewAlertHandler(svc *alerting.Service) *AlertHandler {
	return &AlertHandler{svc: svc}
}

// Register mounts the alert routes on the tenant-scoped group.
func (h *AlertHandler) Register(g *gin.RouterGroup) {
	g.POST("/alerts", h.create)
	g.GET("/alerts", h.list)
	g.GET("/alerts/:id", h.get)
	g.POST("/alerts/:id/file-generated", h.markFileGenerated)
	g.POST("/alerts/:id/submit", h.submit)
	g.POST("/alerts/:id/cancel", h.cancel)
	g.POST("/alerts/:id/review", h.review)
	g.POST("/alerts/sweep", h.sweep)
}

type createAlertRequest struct {
	IdempotencyKey string        `json:"idempotency_key" binding:"required"`
	ContextHash    string        `json:"context_hash"`
	RuleID         string        `json:"rule_id" binding:"required"`
	ClientID       string        `json:"client_id" binding:"required"`
	TransactionID  *string       `json:"transaction_id"`
	Severity       string        `json:"severity" binding:"required"`
	IsManual       bool          `json:"is_manual"`
	Payload        alert.Payload `json:"payload"`
	Deadline       *time.Time    `json:"deadline"`
}

func (h *AlertHandler) create(c *gin.Context) {
	var req createAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	in := alerting.CreateInput{
		OrgID:          middleware.OrgFrom(c),
		IdempotencyKey: req.IdempotencyKey,
		ContextHash:    req.ContextHash,
		RuleID:         common.ID(req.RuleID),
		ClientID:       common.ID(req.ClientID),
		Severity:       alert.Severity(req.Severity),
		IsManual:       req.IsManual,
		Payload:        req.Payload,
		Deadline:       req.Deadline,
	}
	if req.TransactionID != nil {
		id := common.ID(*req.TransactionID)
		in.TransactionID = &id
	}

	a, created, err := h.svc.Create(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	respond(c, status, a)
}

func (h *AlertHandler) list(c *gin.Context) {
	org := middleware.OrgFrom(c)
	page, pageSize := pageParams(c)

	opts := []alert.QueryOption{
		alert.WithLimit(pageSize),
		alert.WithOffset(common.Pagination{Page: page, PageSize: pageSize}.Offset()),
	}
	if statuses, ok := c.GetQueryArray("status"); ok {
		parsed := make([]alert.Status, 0, len(statuses))
		for _, s := range statuses {
			status := alert.Status(s)
			if !status.Valid() {
				respondBadRequest(c, "unknown status "+s)
				return
			}
			parsed = append(parsed, status)
		}
		opts = append(opts, alert.WithStatuses(parsed...))
	}
	if ruleID := c.Query("rule_id"); ruleID != "" {
		opts = append(opts, alert.WithRule(common.ID(ruleID)))
	}
	if noticeID := c.Query("notice_id"); noticeID != "" {
		opts = append(opts, alert.WithNotice(common.ID(noticeID)))
	}
	if raw := c.Query("overdue"); raw != "" {
		overdue, err := strconv.ParseBool(raw)
		if err != nil {
			respondBadRequest(c, "overdue must be a boolean")
			return
		}
		opts = append(opts, alert.WithOverdue(overdue))
	}

	alerts, total, err := h.svc.List(c.Request.Context(), org, opts...)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, alerts, page, pageSize, total)
}

func (h *AlertHandler) get(c *gin.Context) {
	a, err := h.svc.Get(c.Request.Context(), middleware.OrgFrom(c), common.ID(c.Param("id")))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, a)
}

func (h *AlertHandler) markFileGenerated(c *gin.Context) {
	a, err := h.svc.MarkFileGenerated(c.Request.Context(), middleware.OrgFrom(c), common.ID(c.Param("id")))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, a)
}

type submitAlertRequest struct {
	Folio string `json:"folio"`
}

func (h *AlertHandler) submit(c *gin.Context) {
	var req submitAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	a, err := h.svc.Submit(c.Request.Context(), middleware.OrgFrom(c), common.ID(c.Param("id")), req.Folio)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, a)
}

type cancelAlertRequest struct {
	CancelledBy string `json:"cancelled_by" binding:"required"`
	Reason      string `json:"reason"`
}

func (h *AlertHandler) cancel(c *gin.Context) {
	var req cancelAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	a, err := h.svc.Cancel(c.Request.Context(), middleware.OrgFrom(c), common.ID(c.Param("id")), req.CancelledBy, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, a)
}

type reviewAlertRequest struct {
	ReviewedBy string `json:"reviewed_by" binding:"required"`
}

func (h *AlertHandler) review(c *gin.Context) {
	var req reviewAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	a, err := h.svc.Review(c.Request.Context(), middleware.OrgFrom(c), common.ID(c.Param("id")), req.ReviewedBy)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, a)
}

func (h *AlertHandler) sweep(c *gin.Context) {
	n, err := h.svc.SweepOverdue(c.Request.Context(), middleware.OrgFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"swept": n})
}
