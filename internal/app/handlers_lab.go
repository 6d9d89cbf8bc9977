package app

import (
	"net/http"

	"github.com/ak/millboard/internal/domain/services"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ==================== Lab handlers ====================

func (a *Application) getLabForm(c *gin.Context) {
	orderID, ok := getObjectID(c, "id")
	if !ok {
		return
	}
	form, err := a.services.Labs.BuildForm(c.Request.Context(), orderID)
	if err != nil {
		a.handleError(c, err)
		return
	}
	successResponse(c, form)
}

func (a *Application) submitLabBatch(c *gin.Context) {
	orderID, ok := getObjectID(c, "id")
	if !ok {
		return
	}
	var req services.LabBatchRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := a.services.Labs.SubmitBatch(c.Request.Context(), actor(c), orderID, req)
	if err != nil {
		a.handleError(c, err)
		return
	}
	successResponse(c, result)
}

func (a *Application) listLabs(c *gin.Context) {
	orderID, err := primitive.ObjectIDFromHex(c.Query("order_id"))
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_ID", "A valid order_id is required")
		return
	}
	labs, err := a.services.Labs.ListByOrder(c.Request.Context(), orderID)
	if err != nil {
		a.handleError(c, err)
		return
	}
	successResponse(c, labs)
}

func (a *Application) createLab(c *gin.Context) {
	var req services.LabRequest
	if !bindJSON(c, &req) {
		return
	}
	lab, err := a.services.Labs.Create(c.Request.Context(), actor(c), req)
	if err != nil {
		a.handleError(c, err)
		return
	}
	createdResponse(c, lab)
}

func (a *Application) getLab(c *gin.Context) {
	id, ok := getObjectID(c, "id")
	if !ok {
		return
	}
	lab, err := a.services.Labs.GetByID(c.Request.Context(), id)
	if err != nil {
		a.handleError(c, err)
		return
	}
	successResponse(c, lab)
}

func (a *Application) updateLab(c *gin.Context) {
	id, ok := getObjectID(c, "id")
	if !ok {
		return
	}
	var req services.LabRequest
	if !bindJSON(c, &req) {
		return
	}
	lab, err := a.services.Labs.Update(c.Request.Context(), actor(c), id, req)
	if err != nil {
		a.handleError(c, err)
		return
	}
	successResponse(c, lab)
}

func (a *Application) deleteLab(c *gin.Context) {
	id, ok := getObjectID(c, "id")
	if !ok {
		return
	}
	if err := a.services.Labs.Delete(c.Request.Context(), actor(c), id); err != nil {
		a.handleError(c, err)
		return
	}
	successResponse(c, gin.H{"message": "Lab deleted"})
}
