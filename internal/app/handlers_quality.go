package app

import (
	"github.com/ak/millboard/internal/domain/services"
	"github.com/gin-gonic/gin"
)

// ==================== Quality handlers ====================

func (a *Application) listQualities(c *gin.Context) {
	filter := getListFilter(c)
	qualities, total, err := a.services.Qualities.List(c.Request.Context(), filter)
	if err != nil {
		a.handleError(c, err)
		return
	}
	paginatedResponse(c, qualities, filter.Page, filter.Limit, total)
}

func (a *Application) createQuality(c *gin.Context) {
	var req services.QualityRequest
	if !bindJSON(c, &req) {
		return
	}
	quality, err := a.services.Qualities.Create(c.Request.Context(), actor(c), req)
	if err != nil {
		a.handleError(c, err)
		return
	}
	createdResponse(c, quality)
}

func (a *Application) getQuality(c *gin.Context) {
	id, ok := getObjectID(c, "id")
	if !ok {
		return
	}
	quality, err := a.services.Qualities.GetByID(c.Request.Context(), id)
	if err != nil {
		a.handleError(c, err)
		return
	}
	successResponse(c, quality)
}

func (a *Application) updateQuality(c *gin.Context) {
	id, ok := getObjectID(c, "id")
	if !ok {
		return
	}
	var req services.QualityRequest
	if !bindJSON(c, &req) {
		return
	}
	quality, err := a.services.Qualities.Update(c.Request.Context(), actor(c), id, req)
	if err != nil {
		a.handleError(c, err)
		return
	}
	successResponse(c, quality)
}

func (a *Application) deleteQuality(c *gin.Context) {
	id, ok := getObjectID(c, "id")
	if !ok {
		return
	}
	if err := a.services.Qualities.Delete(c.Request.Context(), actor(c), id); err != nil {
		a.handleError(c, err)
		return
	}
	successResponse(c, gin.H{"message": "Quality deleted"})
}

// ==================== Fabric handlers ====================

func (a *Application) listFabrics(c *gin.Context) {
	filter := getListFilter(c)
	fabrics, total, err := a.services.Fabrics.List(c.Request.Context(), filter)
	if err != nil {
		a.handleError(c, err)
		return
	}
	paginatedResponse(c, fabrics, filter.Page, filter.Limit, total)
}

func (a *Application) createFabric(c *gin.Context) {
	var req services.FabricRequest
	if !bindJSON(c, &req) {
		return
	}
	fabric, err := a.services.Fabrics.Create(c.Request.Context(), actor(c), req)
	if err != nil {
		a.handleError(c, err)
		return
	}
	createdResponse(c, fabric)
}

func (a *Application) getFabric(c *gin.Context) {
	id, ok := getObjectID(c, "id")
	if !ok {
		return
	}
	fabric, err := a.services.Fabrics.GetByID(c.Request.Context(), id)
	if err != nil {
		a.handleError(c, err)
		return
	}
	successResponse(c, fabric)
}

func (a *Application) updateFabric(c *gin.Context) {
	id, ok := getObjectID(c, "id")
	if !ok {
		return
	}
	var req services.FabricRequest
	if !bindJSON(c, &req) {
		return
	}
	fabric, err := a.services.Fabrics.Update(c.Request.Context(), actor(c), id, req)
	if err != nil {
		a.handleError(c, err)
		return
	}
	successResponse(c, fabric)
}

func (a *Application) deleteFabric(c *gin.Context) {
	id, ok := getObjectID(c, "id")
	if !ok {
		return
	}
	if err := a.services.Fabrics.Delete(c.Request.Context(), actor(c), id); err != nil {
		a.handleError(c, err)
		return
	}
	successResponse(c, gin.H{"message": "Fabric deleted"})
}
