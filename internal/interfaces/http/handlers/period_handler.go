package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vigiamx/satavisos/internal/application/period"
)

// PeriodHandler exposes the reporting-cycle calculator.  The endpoints are
// read-only and tenant-independent; they still sit behind the tenant
// middleware so every API call carries an organization for the access log.
type PeriodHandler struct{}

// NewPeriodHandler builds the handler.
func NewPeriodHandler() *PeriodHandler {
	return &PeriodHandler{}
}

// Register mounts the period routes.
func (h *PeriodHandler) Register(g *gin.RouterGroup) {
	g.GET("/periods/candidates", h.candidates)
	g.GET("/periods/:month", h.resolve)
}

func (h *PeriodHandler) candidates(c *gin.Context) {
	count, _ := strconv.Atoi(c.DefaultQuery("count", "3"))
	respond(c, http.StatusOK, period.CandidateMonths(time.Now(), count))
}

func (h *PeriodHandler) resolve(c *gin.Context) {
	p, err := period.Parse(c.Param("month"))
	if err != nil {
		respondError(c, err)
		return
	}
	deadline, err := period.DeadlineFor(p.Year, p.Month)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{
		"period":   p,
		"deadline": deadline,
	})
}
