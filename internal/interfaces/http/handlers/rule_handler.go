package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vigiamx/satavisos/internal/domain/rule"
	"github.com/vigiamx/satavisos/internal/interfaces/http/middleware"
	"github.com/vigiamx/satavisos/pkg/types/common"
)

// RuleHandler exposes the rule registry.  The registry is administrative
// CRUD; it talks to the repository directly.
type RuleHandler struct {
	rules rule.Repository
}

// NewRuleHandler builds the handler.
func NewRuleHandler(rules rule.Repository) *RuleHandler {
	return &RuleHandler{rules: rules}
}

// Register mounts the rule routes on the tenant-scoped group.
func (h *RuleHandler) Register(g *gin.RouterGroup) {
	g.POST("/rules", h.create)
	g.GET("/rules", h.list)
	g.GET("/rules/:id", h.get)
	g.PATCH("/rules/:id/active", h.setActive)
}

type createRuleRequest struct {
	Key          string `json:"key" binding:"required"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	ManualOnly   bool   `json:"manual_only"`
	DeadlineDays *int   `json:"deadline_days"`
}

func (h *RuleHandler) create(c *gin.Context) {
	var req createRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}
	if req.DeadlineDays != nil && *req.DeadlineDays <= 0 {
		respondBadRequest(c, "deadline_days must be positive")
		return
	}

	r, err := rule.NewRule(middleware.OrgFrom(c), req.Key, req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	r.Description = req.Description
	r.ManualOnly = req.ManualOnly
	r.DeadlineDays = req.DeadlineDays

	if err := h.rules.Create(c.Request.Context(), r); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, r)
}

func (h *RuleHandler) list(c *gin.Context) {
	rules, err := h.rules.List(c.Request.Context(), middleware.OrgFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, rules)
}

func (h *RuleHandler) get(c *gin.Context) {
	r, err := h.rules.FindByID(c.Request.Context(), middleware.OrgFrom(c), common.ID(c.Param("id")))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, r)
}

type setActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

func (h *RuleHandler) setActive(c *gin.Context) {
	var req setActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	org := middleware.OrgFrom(c)
	id := common.ID(c.Param("id"))
	if err := h.rules.SetActive(c.Request.Context(), org, id, *req.Active); err != nil {
		respondError(c, err)
		return
	}

	r, err := h.rules.FindByID(c.Request.Context(), org, id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, r)
}
