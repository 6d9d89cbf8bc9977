package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ak/millboard/internal/domain/models"
	"github.com/ak/millboard/internal/domain/repositories"
	"github.com/ak/millboard/internal/infrastructure/storage"
	apperrors "github.com/ak/millboard/internal/pkg/errors"
	"github.com/ak/millboard/internal/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// OrderService handles orders, their line items and item images
type OrderService interface {
	Create(ctx context.Context, actor Actor, req OrderRequest) (*models.Order, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	Update(ctx context.Context, actor Actor, id primitive.ObjectID, req OrderRequest) (*models.Order, error)
	Delete(ctx context.Context, actor Actor, id primitive.ObjectID) error
	List(ctx context.Context, filter repositories.ListFilter) ([]*models.Order, int64, error)
	AddItemImage(ctx context.Context, actor Actor, orderID, itemID primitive.ObjectID, body io.Reader, size int64) (*models.Order, error)
	RemoveItemImage(ctx context.Context, actor Actor, orderID, itemID primitive.ObjectID, key string) (*models.Order, error)
}

type OrderRequest struct {
	OrderID      string             `json:"order_id"`
	PartyID      string             `json:"party_id" binding:"required"`
	Status       models.OrderStatus `json:"status" binding:"omitempty,oneof=pending in_progress completed cancelled"`
	OrderDate    string             `json:"order_date"`
	DeliveryDate string             `json:"delivery_date"`
	Notes        string             `json:"notes"`
	Items        []OrderItemRequest `json:"items" binding:"required,min=1,dive"`
}

// OrderItemRequest is one submitted line. ID is empty or a client placeholder
// for new lines and the stored item id for existing ones.
type OrderItemRequest struct {
	ID          string          `json:"id"`
	QualityID   string          `json:"quality_id" binding:"required"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	Rate        decimal.Decimal `json:"rate"`
}

// OrderServiceDeps groups the collaborators of the order service
type OrderServiceDeps struct {
	Orders      repositories.OrderRepository
	Parties     repositories.PartyRepository
	Qualities   repositories.QualityRepository
	Labs        repositories.LabRepository
	MillOutputs repositories.MillOutputRepository

	// Images is nil when object storage is not configured
	Images        storage.ImageStore
	MaxImageBytes int64

	Auditor     *Auditor
	Invalidator Invalidator
	Logger      *logger.Logger
}

const (
	msgOrderExists   = "An order with this order ID already exists"
	resourceOrder    = "order"
	orderCodeFormat  = "ORD-%04d"
	defaultImageSize = 5 << 20
)

var imageExtensions = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
}

type orderService struct {
	orders      repositories.OrderRepository
	parties     repositories.PartyRepository
	qualities   repositories.QualityRepository
	labs        repositories.LabRepository
	outputs     repositories.MillOutputRepository
	images      storage.ImageStore
	maxImage    int64
	auditor     *Auditor
	invalidator Invalidator
	logger      *logger.Logger
	now         func() time.Time
}

func NewOrderService(deps OrderServiceDeps) OrderService {
	maxImage := deps.MaxImageBytes
	if maxImage <= 0 {
		maxImage = defaultImageSize
	}
	log := deps.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &orderService{
		orders:      deps.Orders,
		parties:     deps.Parties,
		qualities:   deps.Qualities,
		labs:        deps.Labs,
		outputs:     deps.MillOutputs,
		images:      deps.Images,
		maxImage:    maxImage,
		auditor:     deps.Auditor,
		invalidator: invalidatorOrNoop(deps.Invalidator),
		logger:      log.WithComponent("orders"),
		now:         time.Now,
	}
}

// build validates req into a new order. Items keep their submitted id when
// it is a valid ObjectID; the caller decides whether that id is trusted.
func (s *orderService) build(ctx context.Context, req OrderRequest) (*models.Order, error) {
	partyID, err := parseObjectID(req.PartyID, "party_id")
	if err != nil {
		return nil, apperrors.Validation("Party is required")
	}
	party, err := s.parties.GetByID(ctx, partyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get party: %w", err)
	}
	if party == nil {
		return nil, apperrors.Validation("Selected party does not exist")
	}

	status := req.Status
	if status == "" {
		status = models.OrderStatusPending
	}
	if !status.Valid() {
		return nil, apperrors.Validation("Status must be one of pending, in_progress, completed, cancelled")
	}

	orderDate, err := parseDate(req.OrderDate, "order_date")
	if err != nil {
		return nil, err
	}
	deliveryDate, err := parseDate(req.DeliveryDate, "delivery_date")
	if err != nil {
		return nil, err
	}
	if orderDate == nil {
		today := s.now().UTC().Truncate(24 * time.Hour)
		orderDate = &today
	}
	if deliveryDate != nil && deliveryDate.Before(*orderDate) {
		return nil, apperrors.Validation("Delivery date cannot be before the order date")
	}

	if len(req.Items) == 0 {
		return nil, apperrors.Validation("An order needs at least one item")
	}

	items := make([]models.OrderItem, 0, len(req.Items))
	qualityIDs := make([]primitive.ObjectID, 0, len(req.Items))
	for i, in := range req.Items {
		qualityID, err := parseObjectID(in.QualityID, "quality_id")
		if err != nil {
			return nil, apperrors.Validation(fmt.Sprintf("Item %d: quality is required", i+1))
		}
		if !in.Quantity.IsPositive() {
			return nil, apperrors.Validation(fmt.Sprintf("Item %d: quantity must be greater than zero", i+1))
		}
		if in.Rate.IsNegative() {
			return nil, apperrors.Validation(fmt.Sprintf("Item %d: rate cannot be negative", i+1))
		}
		item := models.OrderItem{
			QualityID:   qualityID,
			Description: strings.TrimSpace(in.Description),
			Quantity:    in.Quantity,
			Rate:        in.Rate,
		}
		if id, err := primitive.ObjectIDFromHex(strings.TrimSpace(in.ID)); err == nil {
			item.ID = id
		}
		items = append(items, item)
		qualityIDs = append(qualityIDs, qualityID)
	}

	names, err := qualityNames(ctx, s.qualities, qualityIDs)
	if err != nil {
		return nil, err
	}
	for i := range items {
		name, ok := names[items[i].QualityID]
		if !ok {
			return nil, apperrors.Validation(fmt.Sprintf("Item %d: selected quality does not exist", i+1))
		}
		items[i].QualityName = name
	}

	return &models.Order{
		OrderID:      strings.ToUpper(strings.TrimSpace(req.OrderID)),
		PartyID:      partyID,
		PartyName:    party.Name,
		Status:       status,
		OrderDate:    *orderDate,
		DeliveryDate: deliveryDate,
		Notes:        strings.TrimSpace(req.Notes),
		Items:        items,
	}, nil
}

func (s *orderService) Create(ctx context.Context, actor Actor, req OrderRequest) (*models.Order, error) {
	order, err := s.build(ctx, req)
	if err != nil {
		return nil, err
	}

	// Submitted item ids mean nothing on a new order
	for i := range order.Items {
		order.Items[i].ID = primitive.NewObjectID()
	}

	if order.OrderID == "" {
		seq, err := s.orders.NextSequence(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to allocate order id: %w", err)
		}
		order.OrderID = fmt.Sprintf(orderCodeFormat, seq)
	} else {
		existing, err := s.orders.GetByOrderID(ctx, order.OrderID)
		if err != nil {
			return nil, fmt.Errorf("failed to check order id: %w", err)
		}
		if existing != nil {
			return nil, apperrors.AlreadyExists(msgOrderExists)
		}
	}
	order.CreatedBy = actor.Username

	if err := s.orders.Create(ctx, order); err != nil {
		return nil, conflictOr(err, msgOrderExists, "create order")
	}

	s.logger.WithOrder(order.OrderID).Info("Order created", zap.Int("items", len(order.Items)))
	s.auditor.Record(ctx, actor, AuditCreate, resourceOrder, order.ID.Hex(), nil, order)
	s.invalidator.Invalidate()
	return order, nil
}

func (s *orderService) get(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil {
		return nil, apperrors.NotFound("Order")
	}
	return order, nil
}

func (s *orderService) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	order, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.populate(ctx, []*models.Order{order}); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *orderService) Update(ctx context.Context, actor Actor, id primitive.ObjectID, req OrderRequest) (*models.Order, error) {
	order, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	updated, err := s.build(ctx, req)
	if err != nil {
		return nil, err
	}

	if updated.OrderID == "" {
		updated.OrderID = order.OrderID
	}
	if updated.OrderID != order.OrderID {
		other, err := s.orders.GetByOrderID(ctx, updated.OrderID)
		if err != nil {
			return nil, fmt.Errorf("failed to check order id: %w", err)
		}
		if other != nil && other.ID != id {
			return nil, apperrors.AlreadyExists(msgOrderExists)
		}
	}

	// Existing lines keep their id and images so labs stay linked. Anything
	// else is a new line.
	kept := make(map[primitive.ObjectID]bool, len(updated.Items))
	for i := range updated.Items {
		item := &updated.Items[i]
		current := order.Item(item.ID)
		if item.ID.IsZero() || current == nil || kept[item.ID] {
			item.ID = primitive.NewObjectID()
			continue
		}
		item.Images = current.Images
		kept[item.ID] = true
	}

	var orphanedImages []string
	for _, item := range order.Items {
		if !kept[item.ID] {
			orphanedImages = append(orphanedImages, item.Images...)
		}
	}

	before := *order
	updated.ID = order.ID
	updated.CreatedAt = order.CreatedAt
	updated.CreatedBy = order.CreatedBy

	if err := s.orders.Update(ctx, updated); err != nil {
		return nil, conflictOr(err, msgOrderExists, "update order")
	}
	s.deleteImages(ctx, orphanedImages)

	s.auditor.Record(ctx, actor, AuditUpdate, resourceOrder, id.Hex(), before, updated)
	s.invalidator.Invalidate()

	if err := s.populate(ctx, []*models.Order{updated}); err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes the order together with its labs, mill outputs and images
func (s *orderService) Delete(ctx context.Context, actor Actor, id primitive.ObjectID) error {
	order, err := s.get(ctx, id)
	if err != nil {
		return err
	}

	labs, err := s.labs.DeleteByOrder(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete order labs: %w", err)
	}
	outputs, err := s.outputs.DeleteByOrder(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete order mill outputs: %w", err)
	}
	if err := s.orders.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}

	var keys []string
	for _, item := range order.Items {
		keys = append(keys, item.Images...)
	}
	s.deleteImages(ctx, keys)

	s.logger.WithOrder(order.OrderID).Info("Order deleted",
		zap.Int64("labs", labs),
		zap.Int64("mill_outputs", outputs))
	s.auditor.Record(ctx, actor, AuditDelete, resourceOrder, id.Hex(), order, nil)
	s.invalidator.Invalidate()
	return nil
}

func (s *orderService) List(ctx context.Context, filter repositories.ListFilter) ([]*models.Order, int64, error) {
	orders, total, err := s.orders.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	if err := s.populate(ctx, orders); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (s *orderService) AddItemImage(ctx context.Context, actor Actor, orderID, itemID primitive.ObjectID, body io.Reader, size int64) (*models.Order, error) {
	if s.images == nil {
		return nil, apperrors.StorageDisabled()
	}
	if size > s.maxImage {
		return nil, apperrors.Validation(fmt.Sprintf("Image must be %d MB or smaller", s.maxImage>>20))
	}

	order, err := s.get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	item := order.Item(itemID)
	if item == nil {
		return nil, apperrors.NotFound("Order item")
	}

	data, err := io.ReadAll(io.LimitReader(body, s.maxImage+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if int64(len(data)) > s.maxImage {
		return nil, apperrors.Validation(fmt.Sprintf("Image must be %d MB or smaller", s.maxImage>>20))
	}
	if len(data) == 0 {
		return nil, apperrors.Validation("Image is empty")
	}

	contentType := http.DetectContentType(data)
	ext, ok := imageExtensions[contentType]
	if !ok {
		return nil, apperrors.Validation("Only PNG and JPEG images are allowed")
	}

	key := fmt.Sprintf("orders/%s/%s/%s.%s", orderID.Hex(), itemID.Hex(), uuid.NewString(), ext)
	if err := s.images.Put(ctx, key, contentType, bytes.NewReader(data), int64(len(data))); err != nil {
		return nil, err
	}

	before := *item
	item.Images = append(item.Images, key)
	if err := s.orders.Update(ctx, order); err != nil {
		s.deleteImages(ctx, []string{key})
		return nil, fmt.Errorf("failed to update order: %w", err)
	}

	s.auditor.Record(ctx, actor, AuditUpdate, resourceOrder, orderID.Hex(), before, item)
	if err := s.populate(ctx, []*models.Order{order}); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *orderService) RemoveItemImage(ctx context.Context, actor Actor, orderID, itemID primitive.ObjectID, key string) (*models.Order, error) {
	order, err := s.get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	item := order.Item(itemID)
	if item == nil {
		return nil, apperrors.NotFound("Order item")
	}

	before := *item
	remaining := make([]string, 0, len(item.Images))
	for _, k := range item.Images {
		if k != key {
			remaining = append(remaining, k)
		}
	}
	if len(remaining) == len(item.Images) {
		return nil, apperrors.NotFound("Image")
	}
	item.Images = remaining

	if err := s.orders.Update(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to update order: %w", err)
	}
	s.deleteImages(ctx, []string{key})

	s.auditor.Record(ctx, actor, AuditUpdate, resourceOrder, orderID.Hex(), before, item)
	if err := s.populate(ctx, []*models.Order{order}); err != nil {
		return nil, err
	}
	return order, nil
}

// deleteImages removes objects best effort; a leftover object is only wasted space
func (s *orderService) deleteImages(ctx context.Context, keys []string) {
	if s.images == nil {
		return
	}
	for _, key := range keys {
		if err := s.images.Delete(ctx, key); err != nil {
			s.logger.Warn("Failed to delete image", zap.String("key", key), zap.Error(err))
		}
	}
}

// populate resolves party names, quality names and presigned image URLs
func (s *orderService) populate(ctx context.Context, orders []*models.Order) error {
	if len(orders) == 0 {
		return nil
	}

	partyIDs := make([]primitive.ObjectID, 0, len(orders))
	var qualityIDs []primitive.ObjectID
	for _, o := range orders {
		partyIDs = append(partyIDs, o.PartyID)
		for _, item := range o.Items {
			qualityIDs = append(qualityIDs, item.QualityID)
		}
	}

	parties, err := s.parties.GetByIDs(ctx, uniqueIDs(partyIDs))
	if err != nil {
		return fmt.Errorf("failed to load parties: %w", err)
	}
	partyNames := make(map[primitive.ObjectID]string, len(parties))
	for _, p := range parties {
		partyNames[p.ID] = p.Name
	}

	names, err := qualityNames(ctx, s.qualities, qualityIDs)
	if err != nil {
		return err
	}

	for _, o := range orders {
		o.PartyName = partyNames[o.PartyID]
		for i := range o.Items {
			item := &o.Items[i]
			item.QualityName = names[item.QualityID]
			item.ImageURLs = s.presign(ctx, item.Images)
		}
	}
	return nil
}

func (s *orderService) presign(ctx context.Context, keys []string) []string {
	if s.images == nil || len(keys) == 0 {
		return nil
	}
	urls := make([]string, 0, len(keys))
	for _, key := range keys {
		url, err := s.images.PresignGet(ctx, key)
		if err != nil {
			s.logger.Warn("Failed to presign image", zap.String("key", key), zap.Error(err))
			continue
		}
		urls = append(urls, url)
	}
	return urls
}
