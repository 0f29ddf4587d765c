// Package middleware holds the gin middleware chain: request logging,
// request identifiers, and tenant extraction.
package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vigiamx/satavisos/pkg/types/common"
)

// orgHeader carries the tenant on every request.
const orgHeader = "X-Org-ID"

// orgContextKey is the gin context key the handlers read.
const orgContextKey = "org_id"

// Tenant extracts the organization from the request header and rejects
// requests without one.  Handlers never see an ambient default tenant.
func Tenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		org := c.GetHeader(orgHeader)
		if org == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, common.APIResponse[any]{
				Success: false,
				Error: &common.ErrorDetail{
					Code:    "COMMON_002",
					Message: orgHeader + " header is required",
				},
				RequestID: RequestIDFrom(c),
				Timestamp: time.Now().UTC(),
			})
			return
		}
		c.Set(orgContextKey, common.OrgID(org))
		c.Next()
	}
}

// OrgFrom returns the tenant set by Tenant.  Routes behind the middleware
// always have one.
func OrgFrom(c *gin.Context) common.OrgID {
	if v, ok := c.Get(orgContextKey); ok {
		if org, ok := v.(common.OrgID); ok {
			return org
		}
	}
	return ""
}
