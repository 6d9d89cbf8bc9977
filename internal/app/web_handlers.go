package app

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ak/millboard/internal/app/middleware"
	"github.com/ak/millboard/internal/domain/models"
	"github.com/ak/millboard/internal/domain/repositories"
	"github.com/ak/millboard/web"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Template cache
var templates *template.Template

// WebHandlers handles web UI requests
type WebHandlers struct {
	app *Application
}

// templateFuncMap returns the common template functions
func templateFuncMap() template.FuncMap {
	return template.FuncMap{
		"add": func(a, b int) int { return a + b },
		"sub": func(a, b int) int { return a - b },
		"json": func(v interface{}) template.JS {
			b, err := json.Marshal(v)
			if err != nil {
				return template.JS("null")
			}
			return template.JS(b)
		},
		"attrJSON": func(v interface{}) string {
			b, err := json.Marshal(v)
			if err != nil {
				return "{}"
			}
			return string(b)
		},
		"title": statusTitle,
		"dict": func(values ...interface{}) map[string]interface{} {
			if len(values)%2 != 0 {
				return nil
			}
			dict := make(map[string]interface{}, len(values)/2)
			for i := 0; i < len(values); i += 2 {
				key, ok := values[i].(string)
				if !ok {
					return nil
				}
				dict[key] = values[i+1]
			}
			return dict
		},
		"iterate": func(count int) []int {
			result := make([]int, count)
			for i := range result {
				result[i] = i + 1
			}
			return result
		},
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return "-"
			}
			return t.Format("02 Jan 2006")
		},
		"inputDate": func(t interface{}) string {
			switch v := t.(type) {
			case time.Time:
				if !v.IsZero() {
					return v.Format("2006-01-02")
				}
			case *time.Time:
				if v != nil && !v.IsZero() {
					return v.Format("2006-01-02")
				}
			}
			return ""
		},
		"decimal": func(d decimal.Decimal) string {
			return d.StringFixed(2)
		},
		"hex": func(id primitive.ObjectID) string {
			return id.Hex()
		},
		"cell":          cellValue,
		"sortDirection": nextSortDirection,
		"query":         pageQuery,
	}
}

// statusTitle turns in_progress into "In Progress"
func statusTitle(s interface{}) string {
	words := strings.Fields(strings.ReplaceAll(fmt.Sprint(s), "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// initTemplates parses every embedded template, layouts first
func initTemplates() error {
	templatesFS := web.Templates()
	tmpl := template.New("").Funcs(templateFuncMap())

	var templateFiles []string
	err := fs.WalkDir(templatesFS, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, ".html") {
			templateFiles = append(templateFiles, path)
		}
		return nil
	})
	if err != nil {
		return err
	}

	sort.Slice(templateFiles, func(i, j int) bool {
		iLayout := strings.HasPrefix(templateFiles[i], "layouts/")
		jLayout := strings.HasPrefix(templateFiles[j], "layouts/")
		if iLayout != jLayout {
			return iLayout
		}
		return templateFiles[i] < templateFiles[j]
	})

	for _, path := range templateFiles {
		content, readErr := fs.ReadFile(templatesFS, path)
		if readErr != nil {
			return fmt.Errorf("error reading template %s: %w", path, readErr)
		}
		if _, parseErr := tmpl.Parse(string(content)); parseErr != nil {
			return fmt.Errorf("error parsing template %s: %w", path, parseErr)
		}
	}

	templates = tmpl
	return nil
}

// NewWebHandlers creates a new web handlers instance
func NewWebHandlers(app *Application) (*WebHandlers, error) {
	if templates == nil {
		if err := initTemplates(); err != nil {
			return nil, fmt.Errorf("failed to initialize templates: %w", err)
		}
	}
	return &WebHandlers{app: app}, nil
}

// RegisterRoutes registers web UI routes
func (w *WebHandlers) RegisterRoutes(r *gin.Engine) {
	staticFS := web.Static()
	r.StaticFS("/static", http.FS(staticFS))

	// The service worker must be served from the root to control every page
	r.GET("/sw.js", func(c *gin.Context) {
		c.Header("Service-Worker-Allowed", "/")
		c.Header("Cache-Control", "no-cache")
		w.asset(c, "sw.js", "application/javascript")
	})
	r.GET("/manifest.json", func(c *gin.Context) {
		w.asset(c, "manifest.json", "application/manifest+json")
	})

	r.GET("/login", w.Login)
	r.GET("/logout", w.Logout)

	protected := r.Group("/")
	protected.Use(middleware.PageAuth(w.app.jwtConfig))
	protected.Use(middleware.Timeout(w.app.config.Server.ReportTimeout))
	{
		protected.GET("/", w.Dashboard)
		protected.GET("/dashboard", w.Dashboard)
		protected.GET("/users", w.entityList(usersPage))
		protected.GET("/parties", w.entityList(partiesPage))
		protected.GET("/mills", w.entityList(millsPage))
		protected.GET("/qualities", w.entityList(qualitiesPage))
		protected.GET("/fabrics", w.entityList(fabricsPage))
		protected.GET("/orders", w.entityList(ordersPage))
		protected.GET("/orders/:id", w.OrderDetail)
		protected.GET("/mill-outputs", w.entityList(millOutputsPage))
		protected.GET("/audit", w.entityList(auditPage))
		protected.GET("/mill-outputs/report", w.MillReport)
	}
}

// renderTemplate renders a page inside the base layout
func (w *WebHandlers) renderTemplate(c *gin.Context, tmplName string, data gin.H) {
	w.render(c, http.StatusOK, "base", tmplName, data)
}

// renderAuth renders auth pages using the auth layout
func (w *WebHandlers) renderAuth(c *gin.Context, data gin.H) {
	w.render(c, http.StatusOK, "auth", "auth-login", data)
}

func (w *WebHandlers) asset(c *gin.Context, name, contentType string) {
	data, err := web.Asset(name)
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}
	c.Data(http.StatusOK, contentType, data)
}

func (w *WebHandlers) render(c *gin.Context, status int, layout, tmplName string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["AppName"] = w.app.config.App.Name
	data["Year"] = time.Now().Year()
	if claims := middleware.GetClaims(c); claims != nil {
		data["User"] = claims
		data["IsAdmin"] = claims.Role == string(models.RoleAdmin)
	}

	if templates.Lookup(tmplName) == nil {
		c.String(http.StatusInternalServerError, "Template not found: %s", tmplName)
		return
	}

	// "content" resolves to the requested page inside the layout
	contentWrapper := template.Must(template.New("content").Funcs(templateFuncMap()).Parse(`{{template "` + tmplName + `" .}}`))
	for _, t := range templates.Templates() {
		if t.Name() != "content" && t.Tree != nil {
			contentWrapper.AddParseTree(t.Name(), t.Tree)
		}
	}

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(status)
	if err := contentWrapper.ExecuteTemplate(c.Writer, layout, data); err != nil {
		w.app.logger.Error("Template error", zap.String("template", tmplName), zap.Error(err))
	}
}

// Login renders the login page
func (w *WebHandlers) Login(c *gin.Context) {
	next := c.Query("next")
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		next = "/"
	}
	w.renderAuth(c, gin.H{
		"Next":  next,
		"Error": c.Query("error"),
	})
}

// Logout clears the token cookie and returns to the login page
func (w *WebHandlers) Logout(c *gin.Context) {
	middleware.ClearTokenCookie(c, w.app.cookie)
	c.Redirect(http.StatusSeeOther, "/login")
}

// Dashboard renders the dashboard page
func (w *WebHandlers) Dashboard(c *gin.Context) {
	summary, err := w.app.services.Dashboard.Summary(c.Request.Context())
	if err != nil {
		w.app.logError(c, "Failed to build dashboard", err)
		w.renderTemplate(c, "dashboard", gin.H{"CurrentPage": "dashboard", "Error": "Could not load the dashboard"})
		return
	}
	w.renderTemplate(c, "dashboard", gin.H{
		"CurrentPage": "dashboard",
		"Summary":     summary,
	})
}

// OrderDetail renders one order with its items, images and the lab form
func (w *WebHandlers) OrderDetail(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.Redirect(http.StatusSeeOther, "/orders")
		return
	}
	ctx := c.Request.Context()

	order, err := w.app.services.Orders.GetByID(ctx, id)
	if err != nil {
		w.app.logError(c, "Failed to load order", err)
		c.Redirect(http.StatusSeeOther, "/orders?error=Order+not+found")
		return
	}
	form, err := w.app.services.Labs.BuildForm(ctx, id)
	if err != nil {
		w.app.logError(c, "Failed to build lab form", err)
	}

	w.renderTemplate(c, "order-detail", gin.H{
		"CurrentPage":  "orders",
		"Order":        order,
		"LabForm":      form,
		"LabStatuses":  []models.LabStatus{models.LabStatusSent, models.LabStatusApproved, models.LabStatusRejected},
		"StorageReady": w.app.config.Storage.Bucket != "",
	})
}

// MillReport renders the per-order mill output summary with an export link
func (w *WebHandlers) MillReport(c *gin.Context) {
	query := reportQuery(c)
	data := gin.H{
		"CurrentPage": "mill-report",
		"Query":       query,
		"ExportQuery": template.URL(""),
	}
	if raw := c.Request.URL.RawQuery; raw != "" {
		data["ExportQuery"] = template.URL("?" + raw)
	}

	summaries, err := w.app.services.MillOutputs.Report(c.Request.Context(), query)
	if err != nil {
		data["Error"] = errorMessage(err)
	}
	data["Summaries"] = summaries

	totalMtr, totalAmount := decimal.Zero, decimal.Zero
	for _, s := range summaries {
		totalMtr = totalMtr.Add(s.FinishedMtr)
		totalAmount = totalAmount.Add(s.Amount)
	}
	data["TotalMtr"] = totalMtr
	data["TotalAmount"] = totalAmount

	orders, _, err := w.app.services.Orders.List(c.Request.Context(), repositories.ListFilter{Limit: maxPageSize, SortBy: "order_id", SortDir: 1})
	if err == nil {
		data["Orders"] = orders
	}
	w.renderTemplate(c, "mill-report", data)
}

// pageQuery builds list page links that keep the current filters
func pageQuery(f repositories.ListFilter, overrides ...interface{}) template.URL {
	values := map[string]string{
		"search": f.Search,
		"status": f.Status,
		"sort":   f.SortBy,
		"page":   strconv.Itoa(f.Page),
	}
	switch f.SortDir {
	case 1:
		values["order"] = "asc"
	case -1:
		values["order"] = "desc"
	}
	for i := 0; i+1 < len(overrides); i += 2 {
		values[fmt.Sprint(overrides[i])] = fmt.Sprint(overrides[i+1])
	}

	keys := make([]string, 0, len(values))
	for k, v := range values {
		if v != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+template.URLQueryEscaper(values[k]))
	}
	return template.URL("?" + strings.Join(parts, "&"))
}

// nextSortDirection flips the direction when the column is already sorted
func nextSortDirection(f repositories.ListFilter, key string) string {
	if f.SortBy == key && f.SortDir == 1 {
		return "desc"
	}
	return "asc"
}
