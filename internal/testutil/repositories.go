package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ak/millboard/internal/domain/models"
	"github.com/ak/millboard/internal/domain/repositories"
	infrarepos "github.com/ak/millboard/internal/infrastructure/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

// Repos exposes the concrete in-memory repositories so tests can seed and
// inspect them directly.
type Repos struct {
	Users       *UserRepo
	Parties     *PartyRepo
	Mills       *MillRepo
	Qualities   *QualityRepo
	Fabrics     *FabricRepo
	Orders      *OrderRepo
	Labs        *LabRepo
	MillOutputs *MillOutputRepo
	AuditLogs   *AuditLogRepo
}

// NewRepos returns empty in-memory repositories
func NewRepos() *Repos {
	return &Repos{
		Users:       &UserRepo{c: newCollection(func(u *models.User) primitive.ObjectID { return u.ID })},
		Parties:     &PartyRepo{c: newCollection(func(p *models.Party) primitive.ObjectID { return p.ID })},
		Mills:       &MillRepo{c: newCollection(func(m *models.Mill) primitive.ObjectID { return m.ID })},
		Qualities:   &QualityRepo{c: newCollection(func(q *models.Quality) primitive.ObjectID { return q.ID })},
		Fabrics:     &FabricRepo{c: newCollection(func(f *models.Fabric) primitive.ObjectID { return f.ID })},
		Orders:      &OrderRepo{c: newCollection(func(o *models.Order) primitive.ObjectID { return o.ID })},
		Labs:        &LabRepo{c: newCollection(func(l *models.Lab) primitive.ObjectID { return l.ID })},
		MillOutputs: &MillOutputRepo{c: newCollection(func(m *models.MillOutput) primitive.ObjectID { return m.ID })},
		AuditLogs:   &AuditLogRepo{c: newCollection(func(a *repositories.AuditLog) primitive.ObjectID { return a.ID })},
	}
}

// Provider wraps the repositories the way the Mongo provider does
func (r *Repos) Provider() *infrarepos.Provider {
	return &infrarepos.Provider{
		User:       r.Users,
		Party:      r.Parties,
		Mill:       r.Mills,
		Quality:    r.Qualities,
		Fabric:     r.Fabrics,
		Order:      r.Orders,
		Lab:        r.Labs,
		MillOutput: r.MillOutputs,
		AuditLog:   r.AuditLogs,
	}
}

func stamp(id *primitive.ObjectID, created, updated *time.Time) {
	if id.IsZero() {
		*id = primitive.NewObjectID()
	}
	now := time.Now()
	*created = now
	*updated = now
}

// Users

type UserRepo struct {
	c *collection[models.User]
}

var userListing = listing[models.User]{
	search: func(u *models.User) []string { return []string{u.Name, u.Username, u.Email, u.Phone} },
	status: func(u *models.User) string { return string(u.Role) },
	sortKeys: map[string]func(*models.User) interface{}{
		"name":       func(u *models.User) interface{} { return u.Name },
		"username":   func(u *models.User) interface{} { return u.Username },
		"role":       func(u *models.User) interface{} { return string(u.Role) },
		"created_at": func(u *models.User) interface{} { return u.CreatedAt },
		"last_login": func(u *models.User) interface{} { return derefTime(u.LastLoginAt) },
	},
	defaultSort: "created_at",
	defaultDir:  -1,
}

func (r *UserRepo) Create(_ context.Context, user *models.User) error {
	stamp(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	r.c.put(user)
	return nil
}

func (r *UserRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.c.get(id), nil
}

func (r *UserRepo) GetByUsername(_ context.Context, username string) (*models.User, error) {
	return r.c.first(func(u *models.User) bool { return equalFold(u.Username, username) }), nil
}

func (r *UserRepo) Update(_ context.Context, user *models.User) error {
	user.UpdatedAt = time.Now()
	r.c.replace(user)
	return nil
}

func (r *UserRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	r.c.remove(id)
	return nil
}

func (r *UserRepo) List(_ context.Context, filter repositories.ListFilter) ([]*models.User, int64, error) {
	users, total := userListing.page(r.c, filter)
	return users, total, nil
}

func (r *UserRepo) TouchLogin(_ context.Context, id primitive.ObjectID, at time.Time) error {
	if user := r.c.get(id); user != nil {
		user.LastLoginAt = &at
		r.c.replace(user)
	}
	return nil
}

// Parties

type PartyRepo struct {
	c *collection[models.Party]
}

var partyListing = listing[models.Party]{
	search: func(p *models.Party) []string { return []string{p.Name, p.ContactName, p.Phone, p.Email, p.GSTNumber} },
	sortKeys: map[string]func(*models.Party) interface{}{
		"name":       func(p *models.Party) interface{} { return p.Name },
		"contact":    func(p *models.Party) interface{} { return p.ContactName },
		"created_at": func(p *models.Party) interface{} { return p.CreatedAt },
	},
	defaultSort: "name",
	defaultDir:  1,
}

func (r *PartyRepo) Create(_ context.Context, party *models.Party) error {
	stamp(&party.ID, &party.CreatedAt, &party.UpdatedAt)
	r.c.put(party)
	return nil
}

func (r *PartyRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.Party, error) {
	return r.c.get(id), nil
}

func (r *PartyRepo) FindByName(_ context.Context, name string, excludeID primitive.ObjectID) (*models.Party, error) {
	return r.c.first(func(p *models.Party) bool { return p.ID != excludeID && equalFold(p.Name, name) }), nil
}

func (r *PartyRepo) GetByIDs(_ context.Context, ids []primitive.ObjectID) ([]*models.Party, error) {
	return r.c.byIDs(ids), nil
}

func (r *PartyRepo) Update(_ context.Context, party *models.Party) error {
	party.UpdatedAt = time.Now()
	r.c.replace(party)
	return nil
}

func (r *PartyRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	r.c.remove(id)
	return nil
}

func (r *PartyRepo) List(_ context.Context, filter repositories.ListFilter) ([]*models.Party, int64, error) {
	parties, total := partyListing.page(r.c, filter)
	return parties, total, nil
}

func (r *PartyRepo) All(_ context.Context) ([]*models.Party, error) {
	return r.c.find(nil), nil
}

// Mills

type MillRepo struct {
	c *collection[models.Mill]
}

var millListing = listing[models.Mill]{
	search: func(m *models.Mill) []string { return []string{m.Name, m.Location, m.ContactName, m.Phone} },
	sortKeys: map[string]func(*models.Mill) interface{}{
		"name":       func(m *models.Mill) interface{} { return m.Name },
		"location":   func(m *models.Mill) interface{} { return m.Location },
		"created_at": func(m *models.Mill) interface{} { return m.CreatedAt },
	},
	defaultSort: "name",
	defaultDir:  1,
}

func (r *MillRepo) Create(_ context.Context, mill *models.Mill) error {
	stamp(&mill.ID, &mill.CreatedAt, &mill.UpdatedAt)
	r.c.put(mill)
	return nil
}

func (r *MillRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.Mill, error) {
	return r.c.get(id), nil
}

func (r *MillRepo) FindByName(_ context.Context, name string, excludeID primitive.ObjectID) (*models.Mill, error) {
	return r.c.first(func(m *models.Mill) bool { return m.ID != excludeID && equalFold(m.Name, name) }), nil
}

func (r *MillRepo) GetByIDs(_ context.Context, ids []primitive.ObjectID) ([]*models.Mill, error) {
	return r.c.byIDs(ids), nil
}

func (r *MillRepo) Update(_ context.Context, mill *models.Mill) error {
	mill.UpdatedAt = time.Now()
	r.c.replace(mill)
	return nil
}

func (r *MillRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	r.c.remove(id)
	return nil
}

func (r *MillRepo) List(_ context.Context, filter repositories.ListFilter) ([]*models.Mill, int64, error) {
	mills, total := millListing.page(r.c, filter)
	return mills, total, nil
}

// Qualities

type QualityRepo struct {
	c *collection[models.Quality]
}

var qualityListing = listing[models.Quality]{
	search: func(q *models.Quality) []string { return []string{q.Name, q.Description} },
	sortKeys: map[string]func(*models.Quality) interface{}{
		"name":       func(q *models.Quality) interface{} { return q.Name },
		"created_at": func(q *models.Quality) interface{} { return q.CreatedAt },
		"updated_at": func(q *models.Quality) interface{} { return q.UpdatedAt },
	},
	defaultSort: "name",
	defaultDir:  1,
}

func (r *QualityRepo) Create(_ context.Context, quality *models.Quality) error {
	stamp(&quality.ID, &quality.CreatedAt, &quality.UpdatedAt)
	r.c.put(quality)
	return nil
}

func (r *QualityRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.Quality, error) {
	return r.c.get(id), nil
}

func (r *QualityRepo) FindByName(_ context.Context, name string, excludeID primitive.ObjectID) (*models.Quality, error) {
	return r.c.first(func(q *models.Quality) bool { return q.ID != excludeID && equalFold(q.Name, name) }), nil
}

func (r *QualityRepo) GetByIDs(_ context.Context, ids []primitive.ObjectID) ([]*models.Quality, error) {
	return r.c.byIDs(ids), nil
}

func (r *QualityRepo) Update(_ context.Context, quality *models.Quality) error {
	quality.UpdatedAt = time.Now()
	r.c.replace(quality)
	return nil
}

func (r *QualityRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	r.c.remove(id)
	return nil
}

func (r *QualityRepo) List(_ context.Context, filter repositories.ListFilter) ([]*models.Quality, int64, error) {
	qualities, total := qualityListing.page(r.c, filter)
	return qualities, total, nil
}

// Fabrics

type FabricRepo struct {
	c *collection[models.Fabric]
}

var fabricListing = listing[models.Fabric]{
	search: func(f *models.Fabric) []string { return []string{f.Weaver} },
	sortKeys: map[string]func(*models.Fabric) interface{}{
		"weaver":     func(f *models.Fabric) interface{} { return f.Weaver },
		"width":      func(f *models.Fabric) interface{} { return f.Width },
		"weight":     func(f *models.Fabric) interface{} { return f.Weight },
		"gsm":        func(f *models.Fabric) interface{} { return f.GSM },
		"rate":       func(f *models.Fabric) interface{} { return f.Rate },
		"created_at": func(f *models.Fabric) interface{} { return f.CreatedAt },
	},
	defaultSort: "created_at",
	defaultDir:  -1,
}

func (r *FabricRepo) Create(_ context.Context, fabric *models.Fabric) error {
	stamp(&fabric.ID, &fabric.CreatedAt, &fabric.UpdatedAt)
	r.c.put(fabric)
	return nil
}

func (r *FabricRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.Fabric, error) {
	return r.c.get(id), nil
}

func (r *FabricRepo) Update(_ context.Context, fabric *models.Fabric) error {
	fabric.UpdatedAt = time.Now()
	r.c.replace(fabric)
	return nil
}

func (r *FabricRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	r.c.remove(id)
	return nil
}

func (r *FabricRepo) List(_ context.Context, filter repositories.ListFilter) ([]*models.Fabric, int64, error) {
	fabrics, total := fabricListing.page(r.c, filter)
	return fabrics, total, nil
}

// Orders

type OrderRepo struct {
	c   *collection[models.Order]
	mu  sync.Mutex
	seq int64
}

var orderListing = listing[models.Order]{
	search: func(o *models.Order) []string {
		fields := []string{o.OrderID, o.Notes}
		for _, item := range o.Items {
			fields = append(fields, item.Description)
		}
		return fields
	},
	status: func(o *models.Order) string { return string(o.Status) },
	sortKeys: map[string]func(*models.Order) interface{}{
		"order_id":      func(o *models.Order) interface{} { return o.OrderID },
		"order_date":    func(o *models.Order) interface{} { return o.OrderDate },
		"delivery_date": func(o *models.Order) interface{} { return derefTime(o.DeliveryDate) },
		"status":        func(o *models.Order) interface{} { return string(o.Status) },
		"created_at":    func(o *models.Order) interface{} { return o.CreatedAt },
	},
	defaultSort: "created_at",
	defaultDir:  -1,
}

func (r *OrderRepo) Create(_ context.Context, order *models.Order) error {
	stamp(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if order.Status == "" {
		order.Status = models.OrderStatusPending
	}
	for i := range order.Items {
		if order.Items[i].ID.IsZero() {
			order.Items[i].ID = primitive.NewObjectID()
		}
	}
	r.c.put(order)
	return nil
}

func (r *OrderRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.Order, error) {
	return r.c.get(id), nil
}

func (r *OrderRepo) GetByOrderID(_ context.Context, orderID string) (*models.Order, error) {
	return r.c.first(func(o *models.Order) bool { return o.OrderID == orderID }), nil
}

func (r *OrderRepo) GetByIDs(_ context.Context, ids []primitive.ObjectID) ([]*models.Order, error) {
	return r.c.byIDs(ids), nil
}

func (r *OrderRepo) Update(_ context.Context, order *models.Order) error {
	order.UpdatedAt = time.Now()
	for i := range order.Items {
		if order.Items[i].ID.IsZero() {
			order.Items[i].ID = primitive.NewObjectID()
		}
	}
	r.c.replace(order)
	return nil
}

func (r *OrderRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	r.c.remove(id)
	return nil
}

func (r *OrderRepo) List(_ context.Context, filter repositories.ListFilter) ([]*models.Order, int64, error) {
	orders, total := orderListing.page(r.c, filter)
	return orders, total, nil
}

func (r *OrderRepo) All(_ context.Context) ([]*models.Order, error) {
	orders := r.c.find(nil)
	sort.SliceStable(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })
	return orders, nil
}

func (r *OrderRepo) CountByQuality(_ context.Context, qualityID primitive.ObjectID) (int64, error) {
	return r.c.count(func(o *models.Order) bool {
		for _, item := range o.Items {
			if item.QualityID == qualityID {
				return true
			}
		}
		return false
	}), nil
}

func (r *OrderRepo) CountByParty(_ context.Context, partyID primitive.ObjectID) (int64, error) {
	return r.c.count(func(o *models.Order) bool { return o.PartyID == partyID }), nil
}

func (r *OrderRepo) NextSequence(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	return r.seq, nil
}

// Labs

type LabRepo struct {
	c *collection[models.Lab]
}

func (r *LabRepo) Create(_ context.Context, lab *models.Lab) error {
	stamp(&lab.ID, &lab.CreatedAt, &lab.UpdatedAt)
	if lab.Status == "" {
		lab.Status = models.LabStatusSent
	}
	r.c.put(lab)
	return nil
}

func (r *LabRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.Lab, error) {
	return r.c.get(id), nil
}

func (r *LabRepo) Update(_ context.Context, lab *models.Lab) error {
	lab.UpdatedAt = time.Now()
	r.c.replace(lab)
	return nil
}

func (r *LabRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	r.c.remove(id)
	return nil
}

func (r *LabRepo) ListByOrder(_ context.Context, orderID primitive.ObjectID) ([]*models.Lab, error) {
	labs := r.c.find(func(l *models.Lab) bool { return l.OrderID == orderID })
	sort.SliceStable(labs, func(i, j int) bool {
		if !labs[i].CreatedAt.Equal(labs[j].CreatedAt) {
			return labs[i].CreatedAt.Before(labs[j].CreatedAt)
		}
		return labs[i].ID.Hex() < labs[j].ID.Hex()
	})
	return labs, nil
}

func (r *LabRepo) DeleteByOrder(_ context.Context, orderID primitive.ObjectID) (int64, error) {
	return r.c.removeWhere(func(l *models.Lab) bool { return l.OrderID == orderID }), nil
}

// Seed stores a lab as is, keeping the caller's timestamps
func (r *LabRepo) Seed(lab *models.Lab) {
	if lab.ID.IsZero() {
		lab.ID = primitive.NewObjectID()
	}
	r.c.put(lab)
}

// Mill outputs

type MillOutputRepo struct {
	c *collection[models.MillOutput]
}

var millOutputListing = listing[models.MillOutput]{
	search: func(m *models.MillOutput) []string { return []string{m.BillNo} },
	sortKeys: map[string]func(*models.MillOutput) interface{}{
		"recd_date":    func(m *models.MillOutput) interface{} { return m.RecdDate },
		"bill_no":      func(m *models.MillOutput) interface{} { return m.BillNo },
		"finished_mtr": func(m *models.MillOutput) interface{} { return m.FinishedMtr },
		"mill_rate":    func(m *models.MillOutput) interface{} { return m.MillRate },
		"created_at":   func(m *models.MillOutput) interface{} { return m.CreatedAt },
	},
	defaultSort: "recd_date",
	defaultDir:  -1,
}

func (r *MillOutputRepo) Create(_ context.Context, output *models.MillOutput) error {
	stamp(&output.ID, &output.CreatedAt, &output.UpdatedAt)
	r.c.put(output)
	return nil
}

func (r *MillOutputRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.MillOutput, error) {
	return r.c.get(id), nil
}

func (r *MillOutputRepo) Update(_ context.Context, output *models.MillOutput) error {
	output.UpdatedAt = time.Now()
	r.c.replace(output)
	return nil
}

func (r *MillOutputRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	r.c.remove(id)
	return nil
}

func (r *MillOutputRepo) List(_ context.Context, filter repositories.ListFilter) ([]*models.MillOutput, int64, error) {
	outputs, total := millOutputListing.page(r.c, filter)
	return outputs, total, nil
}

func (r *MillOutputRepo) Find(_ context.Context, filter repositories.MillOutputFilter) ([]*models.MillOutput, error) {
	outputs := r.c.find(func(m *models.MillOutput) bool {
		if filter.OrderID != nil && m.OrderID != *filter.OrderID {
			return false
		}
		if filter.From != nil && m.RecdDate.Before(*filter.From) {
			return false
		}
		if filter.To != nil && m.RecdDate.After(*filter.To) {
			return false
		}
		return true
	})
	sort.SliceStable(outputs, func(i, j int) bool { return outputs[i].RecdDate.Before(outputs[j].RecdDate) })
	return outputs, nil
}

func (r *MillOutputRepo) CountByMill(_ context.Context, millID primitive.ObjectID) (int64, error) {
	return r.c.count(func(m *models.MillOutput) bool { return m.MillID != nil && *m.MillID == millID }), nil
}

func (r *MillOutputRepo) DeleteByOrder(_ context.Context, orderID primitive.ObjectID) (int64, error) {
	return r.c.removeWhere(func(m *models.MillOutput) bool { return m.OrderID == orderID }), nil
}

// Audit logs

type AuditLogRepo struct {
	c *collection[repositories.AuditLog]
}

func (r *AuditLogRepo) Create(_ context.Context, log *repositories.AuditLog) error {
	if log.ID.IsZero() {
		log.ID = primitive.NewObjectID()
	}
	log.CreatedAt = primitive.NewDateTimeFromTime(time.Now())
	r.c.put(log)
	return nil
}

func (r *AuditLogRepo) ListByResource(_ context.Context, resourceType, resourceID string, page, limit int) ([]*repositories.AuditLog, int64, error) {
	logs := newestFirst(r.c.find(func(a *repositories.AuditLog) bool {
		return a.ResourceType == resourceType && (resourceID == "" || a.ResourceID == resourceID)
	}))
	return paginate(logs, page, limit), int64(len(logs)), nil
}

func (r *AuditLogRepo) List(_ context.Context, page, limit int) ([]*repositories.AuditLog, int64, error) {
	logs := newestFirst(r.c.find(nil))
	return paginate(logs, page, limit), int64(len(logs)), nil
}

func newestFirst(logs []*repositories.AuditLog) []*repositories.AuditLog {
	for i, j := 0, len(logs)-1; i < j; i, j = i+1, j-1 {
		logs[i], logs[j] = logs[j], logs[i]
	}
	return logs
}

// Entries returns every recorded audit entry oldest first
func (r *AuditLogRepo) Entries() []*repositories.AuditLog {
	return r.c.find(nil)
}

func paginate[T any](docs []*T, page, limit int) []*T {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	start := (page - 1) * limit
	if start >= len(docs) {
		return nil
	}
	end := start + limit
	if end > len(docs) {
		end = len(docs)
	}
	return docs[start:end]
}
