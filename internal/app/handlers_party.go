package app

import (
	"github.com/ak/millboard/internal/domain/services"
	"github.com/gin-gonic/gin"
)

// ==================== Party handlers ====================

func (a *Application) listParties(c *gin.Context) {
	filter := getListFilter(c)
	parties, total, err := a.services.Parties.List(c.Request.Context(), filter)
	if err != nil {
		a.handleError(c, err)
		return
	}
	paginatedResponse(c, parties, filter.Page, filter.Limit, total)
}

func (a *Application) createParty(c *gin.Context) {
	var req services.PartyRequest
	if !bindJSON(c, &req) {
		return
	}
	party, err := a.services.Parties.Create(c.Request.Context(), actor(c), req)
	if err != nil {
		a.handleError(c, err)
		return
	}
	createdResponse(c, party)
}

func (a *Application) getParty(c *gin.Context) {
	id, ok := getObjectID(c, "id")
	if !ok {
		return
	}
	party, err := a.services.Parties.GetByID(c.Request.Context(), id)
	if err != nil {
		a.handleError(c, err)
		return
	}
	successResponse(c, party)
}

func (a *Application) updateParty(c *gin.Context) {
	id, ok := getObjectID(c, "id")
	if !ok {
		return
	}
	var req services.PartyRequest
	if !bindJSON(c, &req) {
		return
	}
	party, err := a.services.Parties.Update(c.Request.Context(), actor(c), id, req)
	if err != nil {
		a.handleError(c, err)
		return
	}
	successResponse(c, party)
}

func (a *Application) deleteParty(c *gin.Context) {
	id, ok := getObjectID(c, "id")
	if !ok {
		return
	}
	if err := a.services.Parties.Delete(c.Request.Context(), actor(c), id); err != nil {
		a.handleError(c, err)
		return
	}
	successResponse(c, gin.H{"message": "Party deleted"})
}

// ==================== Mill handlers ====================

func (a *Application) listMills(c *gin.Context) {
	filter := getListFilter(c)
	mills, total, err := a.services.Mills.List(c.Request.Context(), filter)
	if err != nil {
		a.handleError(c, err)
		return
	}
	paginatedResponse(c, mills, filter.Page, filter.Limit, total)
}

func (a *Application) createMill(c *gin.Context) {
	var req services.MillRequest
	if !bindJSON(c, &req) {
		return
	}
	mill, err := a.services.Mills.Create(c.Request.Context(), actor(c), req)
	if err != nil {
		a.handleError(c, err)
		return
	}
	createdResponse(c, mill)
}

func (a *Application) getMill(c *gin.Context) {
	id, ok := getObjectID(c, "id")
	if !ok {
		return
	}
	mill, err := a.services.Mills.GetByID(c.Request.Context(), id)
	if err != nil {
		a.handleError(c, err)
		return
	}
	successResponse(c, mill)
}

func (a *Application) updateMill(c *gin.Context) {
	id, ok := getObjectID(c, "id")
	if !ok {
		return
	}
	var req services.MillRequest
	if !bindJSON(c, &req) {
		return
	}
	mill, err := a.services.Mills.Update(c.Request.Context(), actor(c), id, req)
	if err != nil {
		a.handleError(c, err)
		return
	}
	successResponse(c, mill)
}

func (a *Application) deleteMill(c *gin.Context) {
	id, ok := getObjectID(c, "id")
	if !ok {
		return
	}
	if err := a.services.Mills.Delete(c.Request.Context(), actor(c), id); err != nil {
		a.handleError(c, err)
		return
	}
	successResponse(c, gin.H{"message": "Mill deleted"})
}
