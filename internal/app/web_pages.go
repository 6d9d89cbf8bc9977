package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ak/millboard/internal/app/middleware"
	"github.com/ak/millboard/internal/domain/models"
	"github.com/ak/millboard/internal/domain/repositories"
	"github.com/ak/millboard/internal/domain/services"
	apperrors "github.com/ak/millboard/internal/pkg/errors"
	"github.com/gin-gonic/gin"
)

// pageColumn is one table column of an entity list page
type pageColumn struct {
	Key      string
	Label    string
	Kind     string // text, date, datetime, decimal, status, bool, count
	Sortable bool
}

type fieldOption struct {
	Value string
	Label string
}

// pageField is one input of the create/edit modal
type pageField struct {
	Name      string
	Label     string
	Type      string // text, textarea, email, password, date, decimal, select, checkbox, items
	Required  bool
	MinLength int
	MaxLength int
	// CreateOnly fields are required on create and optional on edit
	CreateOnly bool
	Options    []fieldOption
	// OptionsFrom names a lookup loaded per request, e.g. "parties"
	OptionsFrom string
}

type loadFunc func(ctx context.Context, s *Services, f repositories.ListFilter) ([]map[string]interface{}, int64, error)

// entityPage describes a list page over one REST resource
type entityPage struct {
	Key        string
	Title      string
	Singular   string
	Endpoint   string
	DetailPath string
	AdminOnly  bool
	// ReadOnly pages have no create, edit or delete actions
	ReadOnly   bool
	Statuses   []fieldOption
	Columns    []pageColumn
	Fields     []pageField
	load       loadFunc
}

// rowsOf turns models into the generic maps the list template walks
func rowsOf[T any](items []T, total int64, err error) ([]map[string]interface{}, int64, error) {
	if err != nil {
		return nil, 0, err
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to encode rows: %w", err)
	}
	var rows []map[string]interface{}
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, 0, fmt.Errorf("failed to decode rows: %w", err)
	}
	return rows, total, nil
}

func statusOptions[T ~string](values ...T) []fieldOption {
	opts := make([]fieldOption, 0, len(values))
	for _, v := range values {
		opts = append(opts, fieldOption{Value: string(v), Label: statusTitle(v)})
	}
	return opts
}

var usersPage = &entityPage{
	Key:       "users",
	Title:     "Users",
	Singular:  "User",
	Endpoint:  "/api/users",
	AdminOnly: true,
	Columns: []pageColumn{
		{Key: "name", Label: "Name", Sortable: true},
		{Key: "username", Label: "Username", Sortable: true},
		{Key: "role", Label: "Role", Kind: "status", Sortable: true},
		{Key: "email", Label: "Email"},
		{Key: "is_active", Label: "Active", Kind: "bool"},
		{Key: "last_login_at", Label: "Last Login", Kind: "date"},
	},
	Fields: []pageField{
		{Name: "name", Label: "Name", Type: "text", Required: true, MinLength: 2, MaxLength: 100},
		{Name: "username", Label: "Username", Type: "text", Required: true, MinLength: 3, MaxLength: 50},
		{Name: "password", Label: "Password", Type: "password", CreateOnly: true, MinLength: models.MinPasswordLength},
		{Name: "role", Label: "Role", Type: "select", Required: true, Options: statusOptions(models.RoleStaff, models.RoleManager, models.RoleAdmin)},
		{Name: "email", Label: "Email", Type: "email"},
		{Name: "phone", Label: "Phone", Type: "text"},
		{Name: "is_active", Label: "Active", Type: "checkbox"},
	},
	Statuses: statusOptions(models.RoleAdmin, models.RoleManager, models.RoleStaff),
	load: func(ctx context.Context, s *Services, f repositories.ListFilter) ([]map[string]interface{}, int64, error) {
		return rowsOf(s.Users.List(ctx, f))
	},
}

var partiesPage = &entityPage{
	Key:      "parties",
	Title:    "Parties",
	Singular: "Party",
	Endpoint: "/api/parties",
	Columns: []pageColumn{
		{Key: "name", Label: "Name", Sortable: true},
		{Key: "contact_name", Label: "Contact"},
		{Key: "phone", Label: "Phone"},
		{Key: "gst_number", Label: "GST"},
		{Key: "created_at", Label: "Created", Kind: "date", Sortable: true},
	},
	Fields: []pageField{
		{Name: "name", Label: "Name", Type: "text", Required: true, MinLength: 2, MaxLength: 100},
		{Name: "contact_name", Label: "Contact Name", Type: "text"},
		{Name: "phone", Label: "Phone", Type: "text"},
		{Name: "email", Label: "Email", Type: "email"},
		{Name: "address", Label: "Address", Type: "textarea"},
		{Name: "gst_number", Label: "GST Number", Type: "text"},
	},
	load: func(ctx context.Context, s *Services, f repositories.ListFilter) ([]map[string]interface{}, int64, error) {
		return rowsOf(s.Parties.List(ctx, f))
	},
}

var millsPage = &entityPage{
	Key:      "mills",
	Title:    "Mills",
	Singular: "Mill",
	Endpoint: "/api/mills",
	Columns: []pageColumn{
		{Key: "name", Label: "Name", Sortable: true},
		{Key: "location", Label: "Location", Sortable: true},
		{Key: "contact_name", Label: "Contact"},
		{Key: "phone", Label: "Phone"},
	},
	Fields: []pageField{
		{Name: "name", Label: "Name", Type: "text", Required: true, MinLength: 2, MaxLength: 100},
		{Name: "location", Label: "Location", Type: "text"},
		{Name: "contact_name", Label: "Contact Name", Type: "text"},
		{Name: "phone", Label: "Phone", Type: "text"},
	},
	load: func(ctx context.Context, s *Services, f repositories.ListFilter) ([]map[string]interface{}, int64, error) {
		return rowsOf(s.Mills.List(ctx, f))
	},
}

var qualitiesPage = &entityPage{
	Key:      "qualities",
	Title:    "Qualities",
	Singular: "Quality",
	Endpoint: "/api/qualities",
	Columns: []pageColumn{
		{Key: "name", Label: "Name", Sortable: true},
		{Key: "description", Label: "Description"},
		{Key: "updated_at", Label: "Updated", Kind: "date", Sortable: true},
	},
	Fields: []pageField{
		{Name: "name", Label: "Name", Type: "text", Required: true, MinLength: models.QualityNameMin, MaxLength: models.QualityNameMax},
		{Name: "description", Label: "Description", Type: "textarea", MaxLength: models.QualityDescriptionMax},
	},
	load: func(ctx context.Context, s *Services, f repositories.ListFilter) ([]map[string]interface{}, int64, error) {
		return rowsOf(s.Qualities.List(ctx, f))
	},
}

var fabricsPage = &entityPage{
	Key:      "fabrics",
	Title:    "Fabrics",
	Singular: "Fabric",
	Endpoint: "/api/fabrics",
	Columns: []pageColumn{
		{Key: "weaver", Label: "Weaver", Sortable: true},
		{Key: "quality_name", Label: "Quality"},
		{Key: "width", Label: "Width", Kind: "decimal", Sortable: true},
		{Key: "gsm", Label: "GSM", Kind: "decimal", Sortable: true},
		{Key: "rate", Label: "Rate", Kind: "decimal", Sortable: true},
	},
	Fields: []pageField{
		{Name: "weaver", Label: "Weaver", Type: "text", Required: true, MinLength: 2},
		{Name: "quality_id", Label: "Quality", Type: "select", OptionsFrom: "qualities"},
		{Name: "width", Label: "Width (in)", Type: "decimal"},
		{Name: "weight", Label: "Weight (g/m)", Type: "decimal"},
		{Name: "gsm", Label: "GSM", Type: "decimal"},
		{Name: "rate", Label: "Rate", Type: "decimal"},
	},
	load: func(ctx context.Context, s *Services, f repositories.ListFilter) ([]map[string]interface{}, int64, error) {
		return rowsOf(s.Fabrics.List(ctx, f))
	},
}

var ordersPage = &entityPage{
	Key:        "orders",
	Title:      "Orders",
	Singular:   "Order",
	Endpoint:   "/api/orders",
	DetailPath: "/orders/",
	Statuses:   statusOptions(models.OrderStatuses...),
	Columns: []pageColumn{
		{Key: "order_id", Label: "Order", Sortable: true},
		{Key: "party_name", Label: "Party"},
		{Key: "status", Label: "Status", Kind: "status", Sortable: true},
		{Key: "order_date", Label: "Order Date", Kind: "date", Sortable: true},
		{Key: "delivery_date", Label: "Delivery", Kind: "date", Sortable: true},
		{Key: "items", Label: "Items", Kind: "count"},
	},
	Fields: []pageField{
		{Name: "order_id", Label: "Order ID", Type: "text"},
		{Name: "party_id", Label: "Party", Type: "select", Required: true, OptionsFrom: "parties"},
		{Name: "status", Label: "Status", Type: "select", Options: statusOptions(models.OrderStatuses...)},
		{Name: "order_date", Label: "Order Date", Type: "date", Required: true},
		{Name: "delivery_date", Label: "Delivery Date", Type: "date"},
		{Name: "notes", Label: "Notes", Type: "textarea"},
		{Name: "items", Label: "Items", Type: "items", OptionsFrom: "qualities"},
	},
	load: func(ctx context.Context, s *Services, f repositories.ListFilter) ([]map[string]interface{}, int64, error) {
		return rowsOf(s.Orders.List(ctx, f))
	},
}

var millOutputsPage = &entityPage{
	Key:      "mill-outputs",
	Title:    "Mill Outputs",
	Singular: "Mill Output",
	Endpoint: "/api/mill-outputs",
	Columns: []pageColumn{
		{Key: "order_code", Label: "Order"},
		{Key: "mill_name", Label: "Mill"},
		{Key: "bill_no", Label: "Bill No", Sortable: true},
		{Key: "recd_date", Label: "Received", Kind: "date", Sortable: true},
		{Key: "finished_mtr", Label: "Finished Mtr", Kind: "decimal", Sortable: true},
		{Key: "mill_rate", Label: "Rate", Kind: "decimal"},
	},
	Fields: []pageField{
		{Name: "order_id", Label: "Order", Type: "select", Required: true, OptionsFrom: "orders"},
		{Name: "mill_id", Label: "Mill", Type: "select", OptionsFrom: "mills"},
		{Name: "recd_date", Label: "Received Date", Type: "date", Required: true},
		{Name: "bill_no", Label: "Bill No", Type: "text", Required: true},
		{Name: "finished_mtr", Label: "Finished Meters", Type: "decimal", Required: true},
		{Name: "mill_rate", Label: "Mill Rate", Type: "decimal"},
	},
	load: func(ctx context.Context, s *Services, f repositories.ListFilter) ([]map[string]interface{}, int64, error) {
		return rowsOf(s.MillOutputs.List(ctx, f))
	},
}

// auditPage lists the audit trail. The status select filters by resource
// type and search matches a resource id.
var auditPage = &entityPage{
	Key:       "audit",
	Title:     "Audit Log",
	Singular:  "Entry",
	Endpoint:  "/api/audit-logs",
	AdminOnly: true,
	ReadOnly:  true,
	Statuses: []fieldOption{
		{Value: "order", Label: "Order"},
		{Value: "lab", Label: "Lab"},
		{Value: "mill_output", Label: "Mill Output"},
		{Value: "party", Label: "Party"},
		{Value: "mill", Label: "Mill"},
		{Value: "quality", Label: "Quality"},
		{Value: "fabric", Label: "Fabric"},
		{Value: "user", Label: "User"},
	},
	Columns: []pageColumn{
		{Key: "created_at", Label: "When", Kind: "datetime"},
		{Key: "username", Label: "User"},
		{Key: "action", Label: "Action", Kind: "status"},
		{Key: "resource_type", Label: "Resource", Kind: "status"},
		{Key: "resource_id", Label: "Record"},
		{Key: "ip_address", Label: "IP"},
	},
	Fields: []pageField{},
	load: func(ctx context.Context, s *Services, f repositories.ListFilter) ([]map[string]interface{}, int64, error) {
		return rowsOf(s.Audit.List(ctx, services.AuditQuery{
			ResourceType: f.Status,
			ResourceID:   f.Search,
			Page:         f.Page,
			Limit:        f.Limit,
		}))
	},
}

// lookupFilter pulls the first page of a lookup sorted by name
var lookupFilter = repositories.ListFilter{Page: 1, Limit: maxPageSize, SortBy: "name", SortDir: 1}

// lookupOptions loads the select options a page's fields refer to
func lookupOptions(ctx context.Context, s *Services, fields []pageField) (map[string][]fieldOption, error) {
	out := make(map[string][]fieldOption)
	for _, field := range fields {
		from := field.OptionsFrom
		if from == "" {
			continue
		}
		if _, done := out[from]; done {
			continue
		}

		var opts []fieldOption
		switch from {
		case "parties":
			parties, _, err := s.Parties.List(ctx, lookupFilter)
			if err != nil {
				return nil, err
			}
			for _, p := range parties {
				opts = append(opts, fieldOption{Value: p.ID.Hex(), Label: p.Name})
			}
		case "qualities":
			qualities, _, err := s.Qualities.List(ctx, lookupFilter)
			if err != nil {
				return nil, err
			}
			for _, q := range qualities {
				opts = append(opts, fieldOption{Value: q.ID.Hex(), Label: q.Name})
			}
		case "mills":
			mills, _, err := s.Mills.List(ctx, lookupFilter)
			if err != nil {
				return nil, err
			}
			for _, m := range mills {
				opts = append(opts, fieldOption{Value: m.ID.Hex(), Label: m.Name})
			}
		case "orders":
			orders, _, err := s.Orders.List(ctx, repositories.ListFilter{Page: 1, Limit: maxPageSize, SortBy: "order_date", SortDir: -1})
			if err != nil {
				return nil, err
			}
			for _, o := range orders {
				label := o.OrderID
				if o.PartyName != "" {
					label += " - " + o.PartyName
				}
				opts = append(opts, fieldOption{Value: o.ID.Hex(), Label: label})
			}
		}
		out[from] = opts
	}
	return out, nil
}

// entityList renders the generic list page for one entity
func (w *WebHandlers) entityList(page *entityPage) gin.HandlerFunc {
	return func(c *gin.Context) {
		if page.AdminOnly && middleware.GetRole(c) != string(models.RoleAdmin) {
			c.Redirect(http.StatusSeeOther, "/?error=Admin+access+required")
			return
		}

		ctx := c.Request.Context()
		filter := getListFilter(c)
		filter.Limit = defaultPageSize

		data := gin.H{
			"CurrentPage":   page.Key,
			"Page":          page,
			"Filter":        filter,
			"Error":         c.Query("error"),
			"CurrentUserID": middleware.GetUserID(c),
		}

		rows, total, err := page.load(ctx, w.app.services, filter)
		if err != nil {
			w.app.logError(c, "Failed to list "+page.Key, err)
			data["Error"] = errorMessage(err)
		}
		data["Rows"] = rows
		data["Total"] = total
		data["TotalPages"] = totalPages(total, filter.Limit)

		options, err := lookupOptions(ctx, w.app.services, page.Fields)
		if err != nil {
			w.app.logError(c, "Failed to load options for "+page.Key, err)
		}
		data["Options"] = options

		w.renderTemplate(c, "entity-list", data)
	}
}

// cellValue formats one decoded JSON value for a table cell
func cellValue(row map[string]interface{}, col pageColumn) string {
	v, ok := row[col.Key]
	if !ok || v == nil || v == "" {
		if col.Kind == "count" {
			return "0"
		}
		return "-"
	}
	switch col.Kind {
	case "date", "datetime":
		s, _ := v.(string)
		t, err := time.Parse(time.RFC3339, s)
		if err != nil || t.IsZero() {
			return "-"
		}
		if col.Kind == "datetime" {
			return t.Local().Format("02 Jan 2006 15:04")
		}
		return t.Format("02 Jan 2006")
	case "status":
		return statusTitle(v)
	case "bool":
		if b, _ := v.(bool); b {
			return "Yes"
		}
		return "No"
	case "count":
		if list, ok := v.([]interface{}); ok {
			return fmt.Sprint(len(list))
		}
		return "0"
	}
	return fmt.Sprint(v)
}

// errorMessage is the user facing text for err
func errorMessage(err error) string {
	return apperrors.As(err).Message
}
