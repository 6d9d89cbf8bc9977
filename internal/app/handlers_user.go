package app

import (
	"github.com/ak/millboard/internal/domain/services"
	"github.com/gin-gonic/gin"
)

// ==================== User handlers ====================

func (a *Application) listUsers(c *gin.Context) {
	filter := getListFilter(c)
	users, total, err := a.services.Users.List(c.Request.Context(), filter)
	if err != nil {
		a.handleError(c, err)
		return
	}
	paginatedResponse(c, users, filter.Page, filter.Limit, total)
}

func (a *Application) createUser(c *gin.Context) {
	var req services.UserRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := a.services.Users.Create(c.Request.Context(), actor(c), req)
	if err != nil {
		a.handleError(c, err)
		return
	}
	createdResponse(c, user)
}

func (a *Application) getUser(c *gin.Context) {
	id, ok := getObjectID(c, "id")
	if !ok {
		return
	}
	user, err := a.services.Users.GetByID(c.Request.Context(), id)
	if err != nil {
		a.handleError(c, err)
		return
	}
	successResponse(c, user)
}

func (a *Application) updateUser(c *gin.Context) {
	id, ok := getObjectID(c, "id")
	if !ok {
		return
	}
	var req services.UserRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := a.services.Users.Update(c.Request.Context(), actor(c), id, req)
	if err != nil {
		a.handleError(c, err)
		return
	}
	successResponse(c, user)
}

func (a *Application) deleteUser(c *gin.Context) {
	id, ok := getObjectID(c, "id")
	if !ok {
		return
	}
	if err := a.services.Users.Delete(c.Request.Context(), actor(c), id); err != nil {
		a.handleError(c, err)
		return
	}
	successResponse(c, gin.H{"message": "User deleted"})
}
