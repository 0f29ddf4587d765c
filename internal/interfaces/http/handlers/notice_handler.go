package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vigiamx/satavisos/internal/application/notices"
	"github.com/vigiamx/satavisos/internal/domain/notice"
	"github.com/vigiamx/satavisos/internal/interfaces/http/middleware"
	"github.com/vigiamx/satavisos/pkg/types/common"
)

// NoticeHandler exposes the notice workflow endpoints.
type NoticeHandler struct {
	svc *notices.Service
}

// NewNoticeHandler builds the handler.
func NewNoticeHandler(svc *notices.Service) *NoticeHandler {
	return &NoticeHandler{svc: svc}
}

// Register mounts the notice routes on the tenant-scoped group.
func (h *NoticeHandler) Register(g *gin.RouterGroup) {
	g.POST("/notices", h.create)
	g.GET("/notices", h.list)
	g.GET("/notices/:id", h.get)
	g.GET("/notices/:id/alerts", h.members)
	g.POST("/notices/:id/generate", h.generate)
	g.POST("/notices/:id/submit", h.submit)
	g.POST("/notices/:id/acknowledge", h.acknowledge)
	g.DELETE("/notices/:id", h.delete)
}

type createNoticeRequest struct {
	Year  int    `json:"year" binding:"required"`
	Month int    `json:"month" binding:"required"`
	Name  string `json:"name"`
}

func (h *NoticeHandler) create(c *gin.Context) {
	var req createNoticeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	n, err := h.svc.CreateForPeriod(c.Request.Context(), middleware.OrgFrom(c), req.Year, time.Month(req.Month), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, n)
}

func (h *NoticeHandler) list(c *gin.Context) {
	org := middleware.OrgFrom(c)
	page, pageSize := pageParams(c)

	opts := []notice.QueryOption{
		notice.WithLimit(pageSize),
		notice.WithOffset(common.Pagination{Page: page, PageSize: pageSize}.Offset()),
	}
	if statuses, ok := c.GetQueryArray("status"); ok {
		parsed := make([]notice.Status, 0, len(statuses))
		for _, s := range statuses {
			status := notice.Status(s)
			if !status.Valid() {
				respondBadRequest(c, "unknown status "+s)
				return
			}
			parsed = append(parsed, status)
		}
		opts = append(opts, notice.WithStatuses(parsed...))
	}
	if month := c.Query("reported_month"); month != "" {
		opts = append(opts, notice.WithReportedMonth(month))
	}

	items, total, err := h.svc.List(c.Request.Context(), org, opts...)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, items, page, pageSize, total)
}

func (h *NoticeHandler) get(c *gin.Context) {
	n, err := h.svc.Get(c.Request.Context(), middleware.OrgFrom(c), common.ID(c.Param("id")))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, n)
}

func (h *NoticeHandler) members(c *gin.Context) {
	alerts, err := h.svc.Members(c.Request.Context(), middleware.OrgFrom(c), common.ID(c.Param("id")))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, alerts)
}

func (h *NoticeHandler) generate(c *gin.Context) {
	n, err := h.svc.Generate(c.Request.Context(), middleware.OrgFrom(c), common.ID(c.Param("id")))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, n)
}

type submitNoticeRequest struct {
	Folio string `json:"folio"`
}

func (h *NoticeHandler) submit(c *gin.Context) {
	var req submitNoticeRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	n, err := h.svc.Submit(c.Request.Context(), middleware.OrgFrom(c), common.ID(c.Param("id")), req.Folio)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, n)
}

type acknowledgeRequest struct {
	Folio string `json:"folio" binding:"required"`
}

func (h *NoticeHandler) acknowledge(c *gin.Context) {
	var req acknowledgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	n, err := h.svc.Acknowledge(c.Request.Context(), middleware.OrgFrom(c), common.ID(c.Param("id")), req.Folio)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, n)
}

func (h *NoticeHandler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), middleware.OrgFrom(c), common.ID(c.Param("id"))); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"deleted": true})
}
