package app

import (
	"net/http"
	"strings"

	"github.com/ak/millboard/internal/domain/services"
	"github.com/gin-gonic/gin"
)

// ==================== Order handlers ====================

func (a *Application) listOrders(c *gin.Context) {
	filter := getListFilter(c)
	orders, total, err := a.services.Orders.List(c.Request.Context(), filter)
	if err != nil {
		a.handleError(c, err)
		return
	}
	paginatedResponse(c, orders, filter.Page, filter.Limit, total)
}

func (a *Application) createOrder(c *gin.Context) {
	var req services.OrderRequest
	if !bindJSON(c, &req) {
		return
	}
	order, err := a.services.Orders.Create(c.Request.Context(), actor(c), req)
	if err != nil {
		a.handleError(c, err)
		return
	}
	createdResponse(c, order)
}

func (a *Application) getOrder(c *gin.Context) {
	id, ok := getObjectID(c, "id")
	if !ok {
		return
	}
	order, err := a.services.Orders.GetByID(c.Request.Context(), id)
	if err != nil {
		a.handleError(c, err)
		return
	}
	successResponse(c, order)
}

func (a *Application) updateOrder(c *gin.Context) {
	id, ok := getObjectID(c, "id")
	if !ok {
		return
	}
	var req services.OrderRequest
	if !bindJSON(c, &req) {
		return
	}
	order, err := a.services.Orders.Update(c.Request.Context(), actor(c), id, req)
	if err != nil {
		a.handleError(c, err)
		return
	}
	successResponse(c, order)
}

func (a *Application) deleteOrder(c *gin.Context) {
	id, ok := getObjectID(c, "id")
	if !ok {
		return
	}
	if err := a.services.Orders.Delete(c.Request.Context(), actor(c), id); err != nil {
		a.handleError(c, err)
		return
	}
	successResponse(c, gin.H{"message": "Order deleted"})
}

// uploadItemImage accepts a multipart "image" file for one order item
func (a *Application) uploadItemImage(c *gin.Context) {
	orderID, ok := getObjectID(c, "id")
	if !ok {
		return
	}
	itemID, ok := getObjectID(c, "itemId")
	if !ok {
		return
	}

	// Leave room for multipart framing around the file itself
	limit := a.config.Storage.MaxUploadBytes
	if limit > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+1<<20)
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_INPUT", "An image file is required")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_INPUT", "Could not read the uploaded file")
		return
	}
	defer file.Close()

	order, err := a.services.Orders.AddItemImage(c.Request.Context(), actor(c), orderID, itemID, file, fileHeader.Size)
	if err != nil {
		a.handleError(c, err)
		return
	}
	createdResponse(c, order)
}

func (a *Application) deleteItemImage(c *gin.Context) {
	orderID, ok := getObjectID(c, "id")
	if !ok {
		return
	}
	itemID, ok := getObjectID(c, "itemId")
	if !ok {
		return
	}
	key := strings.TrimSpace(c.Query("key"))
	if key == "" {
		errorResponse(c, http.StatusBadRequest, "INVALID_INPUT", "key is required")
		return
	}

	order, err := a.services.Orders.RemoveItemImage(c.Request.Context(), actor(c), orderID, itemID, key)
	if err != nil {
		a.handleError(c, err)
		return
	}
	successResponse(c, order)
}
