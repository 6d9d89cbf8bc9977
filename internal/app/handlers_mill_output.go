package app

import (
	"fmt"
	"time"

	"github.com/ak/millboard/internal/domain/services"
	"github.com/gin-gonic/gin"
)

// ==================== Mill output handlers ====================

func (a *Application) listMillOutputs(c *gin.Context) {
	filter := getListFilter(c)
	outputs, total, err := a.services.MillOutputs.List(c.Request.Context(), filter)
	if err != nil {
		a.handleError(c, err)
		return
	}
	paginatedResponse(c, outputs, filter.Page, filter.Limit, total)
}

func (a *Application) createMillOutput(c *gin.Context) {
	var req services.MillOutputRequest
	if !bindJSON(c, &req) {
		return
	}
	output, err := a.services.MillOutputs.Create(c.Request.Context(), actor(c), req)
	if err != nil {
		a.handleError(c, err)
		return
	}
	createdResponse(c, output)
}

func (a *Application) getMillOutput(c *gin.Context) {
	id, ok := getObjectID(c, "id")
	if !ok {
		return
	}
	output, err := a.services.MillOutputs.GetByID(c.Request.Context(), id)
	if err != nil {
		a.handleError(c, err)
		return
	}
	successResponse(c, output)
}

func (a *Application) updateMillOutput(c *gin.Context) {
	id, ok := getObjectID(c, "id")
	if !ok {
		return
	}
	var req services.MillOutputRequest
	if !bindJSON(c, &req) {
		return
	}
	output, err := a.services.MillOutputs.Update(c.Request.Context(), actor(c), id, req)
	if err != nil {
		a.handleError(c, err)
		return
	}
	successResponse(c, output)
}

func (a *Application) deleteMillOutput(c *gin.Context) {
	id, ok := getObjectID(c, "id")
	if !ok {
		return
	}
	if err := a.services.MillOutputs.Delete(c.Request.Context(), actor(c), id); err != nil {
		a.handleError(c, err)
		return
	}
	successResponse(c, gin.H{"message": "Mill output deleted"})
}

func reportQuery(c *gin.Context) services.ReportQuery {
	return services.ReportQuery{
		OrderID: c.Query("order_id"),
		From:    c.Query("from"),
		To:      c.Query("to"),
	}
}

func (a *Application) millOutputReport(c *gin.Context) {
	summaries, err := a.services.MillOutputs.Report(c.Request.Context(), reportQuery(c))
	if err != nil {
		a.handleError(c, err)
		return
	}
	successResponse(c, summaries)
}

func (a *Application) exportMillOutputs(c *gin.Context) {
	f, err := a.services.MillOutputs.Export(c.Request.Context(), reportQuery(c))
	if err != nil {
		a.handleError(c, err)
		return
	}
	defer f.Close()

	filename := fmt.Sprintf("mill-report-%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	if err := f.Write(c.Writer); err != nil {
		a.logError(c, "Failed to write workbook", err)
	}
}
