package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ak/millboard/internal/app/middleware"
	"github.com/ak/millboard/internal/domain/models"
	"github.com/ak/millboard/internal/domain/repositories"
	"github.com/ak/millboard/internal/domain/services"
	apperrors "github.com/ak/millboard/internal/pkg/errors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// APIResponse is the standard API response format
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	Meta      *APIMeta    `json:"meta,omitempty"`
	Timestamp string      `json:"timestamp"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type APIMeta struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

func successResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func createdResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, APIResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func paginatedResponse(c *gin.Context, data interface{}, page, perPage int, total int64) {
	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
		Meta: &APIMeta{
			Page:       page,
			PerPage:    perPage,
			Total:      total,
			TotalPages: totalPages(total, perPage),
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func totalPages(total int64, perPage int) int {
	if perPage <= 0 {
		return 0
	}
	pages := int(total) / perPage
	if int(total)%perPage > 0 {
		pages++
	}
	return pages
}

func errorResponse(c *gin.Context, status int, code, message string) {
	c.JSON(status, APIResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// handleError maps a service error to the envelope. Anything that is not an
// *APIError is logged and answered with a generic 500.
func (a *Application) handleError(c *gin.Context, err error) {
	var apiErr *apperrors.APIError
	if !errors.As(err, &apiErr) {
		if errors.Is(err, context.DeadlineExceeded) || mongo.IsTimeout(err) {
			a.logError(c, "Request timed out", err)
			apiErr = apperrors.Timeout()
		} else {
			a.logError(c, "Request failed", err)
			apiErr = apperrors.As(err)
		}
	}

	c.JSON(apiErr.HTTPStatus, APIResponse{
		Success: false,
		Error: &APIError{
			Code:    string(apiErr.Code),
			Message: apiErr.Message,
			Details: apiErr.Details,
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// bindJSON decodes the request body and runs its binding tags, answering
// 400 on failure
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			details := make(map[string]string, len(fieldErrs))
			for _, fe := range fieldErrs {
				details[fieldPath(fe)] = fieldMessage(fe)
			}
			c.JSON(http.StatusBadRequest, APIResponse{
				Success: false,
				Error: &APIError{
					Code:    string(apperrors.ErrValidation),
					Message: fieldMessage(fieldErrs[0]),
					Details: details,
				},
				Timestamp: time.Now().UTC().Format(time.RFC3339),
			})
			return false
		}

		message := "Invalid request body"
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.Is(err, io.EOF):
			message = "Request body is required"
		case errors.As(err, &syntaxErr):
			message = "Request body is not valid JSON"
		case errors.As(err, &typeErr):
			message = "Invalid value for " + typeErr.Field
		}
		errorResponse(c, http.StatusBadRequest, string(apperrors.ErrInvalidInput), message)
		return false
	}
	return true
}

func getObjectID(c *gin.Context, param string) (primitive.ObjectID, bool) {
	idStr := c.Param(param)
	id, err := primitive.ObjectIDFromHex(idStr)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_ID", "Invalid ID format")
		return primitive.NilObjectID, false
	}
	return id, true
}

// getListFilter reads the shared list query: search, status, sort, order,
// page and limit. Pages are 10 rows unless limit asks for up to 100.
func getListFilter(c *gin.Context) repositories.ListFilter {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageSize)))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > maxPageSize {
		limit = defaultPageSize
	}

	dir := 0
	switch strings.ToLower(c.Query("order")) {
	case "asc":
		dir = 1
	case "desc":
		dir = -1
	}

	return repositories.ListFilter{
		Search:  strings.TrimSpace(c.Query("search")),
		Status:  strings.TrimSpace(c.Query("status")),
		SortBy:  strings.TrimSpace(c.Query("sort")),
		SortDir: dir,
		Page:    page,
		Limit:   limit,
	}
}

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// actor identifies the authenticated caller for auditing
func actor(c *gin.Context) services.Actor {
	act := services.Actor{
		Username: middleware.GetUsername(c),
		Role:     models.UserRole(middleware.GetRole(c)),
		IP:       c.ClientIP(),
	}
	if id, err := primitive.ObjectIDFromHex(middleware.GetUserID(c)); err == nil {
		act.UserID = id
	}
	return act
}

// Health endpoints

func (a *Application) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *Application) readinessCheck(c *gin.Context) {
	if a.ready != nil {
		if err := a.ready(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "not ready",
				"reason":    "database unavailable",
				"timestamp": time.Now().UTC().Format(time.RFC3339),
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "ready",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
