package app

import "github.com/gin-gonic/gin"

func (a *Application) getDashboard(c *gin.Context) {
	summary, err := a.services.Dashboard.Summary(c.Request.Context())
	if err != nil {
		a.handleError(c, err)
		return
	}
	successResponse(c, summary)
}
