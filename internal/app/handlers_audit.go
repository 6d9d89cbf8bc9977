package app

import (
	"github.com/ak/millboard/internal/domain/services"
	"github.com/gin-gonic/gin"
)

// ==================== Audit handlers ====================

// listAuditLogs answers GET /api/audit-logs?resource_type=&resource_id=&page=
func (a *Application) listAuditLogs(c *gin.Context) {
	filter := getListFilter(c)
	logs, total, err := a.services.Audit.List(c.Request.Context(), services.AuditQuery{
		ResourceType: c.Query("resource_type"),
		ResourceID:   c.Query("resource_id"),
		Page:         filter.Page,
		Limit:        filter.Limit,
	})
	if err != nil {
		a.handleError(c, err)
		return
	}
	paginatedResponse(c, logs, filter.Page, filter.Limit, total)
}
