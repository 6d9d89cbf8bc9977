package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ak/millboard/internal/domain/models"
	"github.com/ak/millboard/internal/domain/repositories"
	apperrors "github.com/ak/millboard/internal/pkg/errors"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LabService manages lab samples and the per-order lab form
type LabService interface {
	BuildForm(ctx context.Context, orderID primitive.ObjectID) (*LabForm, error)
	SubmitBatch(ctx context.Context, actor Actor, orderID primitive.ObjectID, req LabBatchRequest) (*LabBatchResult, error)

	ListByOrder(ctx context.Context, orderID primitive.ObjectID) ([]*models.Lab, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Lab, error)
	Create(ctx context.Context, actor Actor, req LabRequest) (*models.Lab, error)
	Update(ctx context.Context, actor Actor, id primitive.ObjectID, req LabRequest) (*models.Lab, error)
	Delete(ctx context.Context, actor Actor, id primitive.ObjectID) error
}

// LabForm is one row per order item, pre-filled from the matched lab
type LabForm struct {
	OrderID   primitive.ObjectID `json:"order_id"`
	OrderCode string             `json:"order_code"`
	Rows      []LabFormRow       `json:"rows"`
	// Unmatched labs could not be paired with any item
	Unmatched []*models.Lab `json:"unmatched,omitempty"`
}

type LabFormRow struct {
	Position    int                `json:"position"`
	ItemID      primitive.ObjectID `json:"order_item_id"`
	QualityName string             `json:"quality_name"`
	Description string             `json:"description,omitempty"`
	Quantity    decimal.Decimal    `json:"quantity"`
	Lab         *models.Lab        `json:"lab,omitempty"`
	MatchedBy   string             `json:"matched_by,omitempty"`
}

// LabRequest is a single lab write. In a batch, an empty ID creates.
type LabRequest struct {
	ID           string           `json:"id"`
	OrderID      string           `json:"order_id"`
	OrderItemID  string           `json:"order_item_id"`
	LabSendDate  string           `json:"lab_send_date"`
	ApprovalDate string           `json:"approval_date"`
	SampleNumber string           `json:"sample_number"`
	Status       models.LabStatus `json:"status" binding:"omitempty,oneof=sent approved rejected"`
	Remarks      string           `json:"remarks"`
}

// blank reports an untouched form row, which a batch skips
func (r LabRequest) blank() bool {
	return strings.TrimSpace(r.ID+r.LabSendDate+r.ApprovalDate+r.SampleNumber+r.Remarks) == "" && r.Status == ""
}

type LabBatchRequest struct {
	Rows []LabRequest `json:"rows" binding:"dive"`
}

type LabBatchResult struct {
	Created []*models.Lab `json:"created"`
	Updated []*models.Lab `json:"updated"`
}

const resourceLab = "lab"

type labService struct {
	labs      repositories.LabRepository
	orders    repositories.OrderRepository
	qualities repositories.QualityRepository
	auditor   *Auditor
}

func NewLabService(labs repositories.LabRepository, orders repositories.OrderRepository, qualities repositories.QualityRepository, auditor *Auditor) LabService {
	return &labService{
		labs:      labs,
		orders:    orders,
		qualities: qualities,
		auditor:   auditor,
	}
}

func (s *labService) order(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil {
		return nil, apperrors.NotFound("Order")
	}
	return order, nil
}

func (s *labService) BuildForm(ctx context.Context, orderID primitive.ObjectID) (*LabForm, error) {
	order, err := s.order(ctx, orderID)
	if err != nil {
		return nil, err
	}
	labs, err := s.labs.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list labs: %w", err)
	}

	qualityIDs := make([]primitive.ObjectID, 0, len(order.Items))
	for _, item := range order.Items {
		qualityIDs = append(qualityIDs, item.QualityID)
	}
	names, err := qualityNames(ctx, s.qualities, qualityIDs)
	if err != nil {
		return nil, err
	}

	matches := Reconcile(order.Items, labs)
	form := &LabForm{
		OrderID:   order.ID,
		OrderCode: order.OrderID,
		Rows:      make([]LabFormRow, len(order.Items)),
		Unmatched: Unclaimed(labs, matches),
	}
	for i, item := range order.Items {
		form.Rows[i] = LabFormRow{
			Position:    i,
			ItemID:      item.ID,
			QualityName: names[item.QualityID],
			Description: item.Description,
			Quantity:    item.Quantity,
			Lab:         matches[i].Lab,
			MatchedBy:   matches[i].MatchedBy,
		}
	}
	return form, nil
}

// labFields is a validated row, not yet bound to a stored lab
type labFields struct {
	itemID       primitive.ObjectID
	sendDate     time.Time
	approvalDate *time.Time
	sampleNumber string
	status       models.LabStatus
	remarks      string
}

func parseLabFields(order *models.Order, req LabRequest) (*labFields, error) {
	itemID, err := primitive.ObjectIDFromHex(strings.TrimSpace(req.OrderItemID))
	if err != nil || order.Item(itemID) == nil {
		return nil, apperrors.Validation("Save the order before adding labs for new items")
	}

	sendDate, err := parseDate(req.LabSendDate, "lab_send_date")
	if err != nil {
		return nil, err
	}
	if sendDate == nil {
		return nil, apperrors.Validation("Lab send date is required")
	}
	approvalDate, err := parseDate(req.ApprovalDate, "approval_date")
	if err != nil {
		return nil, err
	}
	if approvalDate != nil && approvalDate.Before(*sendDate) {
		return nil, apperrors.Validation("Approval date cannot be before the lab send date")
	}

	if req.Status != "" && req.Status != models.LabStatusSent &&
		req.Status != models.LabStatusApproved && req.Status != models.LabStatusRejected {
		return nil, apperrors.Validation("Status must be one of sent, approved, rejected")
	}
	status := models.ResolveLabStatus(req.Status, approvalDate)
	if req.Status == models.LabStatusApproved && approvalDate == nil {
		return nil, apperrors.Validation("Approval date is required for an approved lab")
	}

	return &labFields{
		itemID:       itemID,
		sendDate:     *sendDate,
		approvalDate: approvalDate,
		sampleNumber: strings.TrimSpace(req.SampleNumber),
		status:       status,
		remarks:      strings.TrimSpace(req.Remarks),
	}, nil
}

func (f *labFields) applyTo(lab *models.Lab) {
	lab.OrderItemID = f.itemID
	lab.LabSendDate = f.sendDate
	lab.ApprovalDate = f.approvalDate
	lab.SampleNumber = f.sampleNumber
	lab.Status = f.status
	lab.Remarks = f.remarks
}

type batchUpdate struct {
	lab    *models.Lab
	fields *labFields
}

// SubmitBatch validates every row before writing anything. Updates run
// first so re-linked labs free or claim their items before creates.
func (s *labService) SubmitBatch(ctx context.Context, actor Actor, orderID primitive.ObjectID, req LabBatchRequest) (*LabBatchResult, error) {
	order, err := s.order(ctx, orderID)
	if err != nil {
		return nil, err
	}
	existing, err := s.labs.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list labs: %w", err)
	}
	byID := make(map[primitive.ObjectID]*models.Lab, len(existing))
	for _, lab := range existing {
		byID[lab.ID] = lab
	}

	var (
		updates    []batchUpdate
		creates    []*labFields
		seenItems  = make(map[primitive.ObjectID]int)
		seenLabs   = make(map[primitive.ObjectID]bool)
		finalLinks = make(map[primitive.ObjectID]primitive.ObjectID, len(existing))
	)
	for _, lab := range existing {
		finalLinks[lab.ID] = lab.OrderItemID
	}

	for i, row := range req.Rows {
		if row.blank() {
			continue
		}
		fields, err := parseLabFields(order, row)
		if err != nil {
			return nil, rowError(i, err)
		}
		if first, dup := seenItems[fields.itemID]; dup {
			return nil, apperrors.Validation(fmt.Sprintf("Row %d: item already has a lab in row %d", i+1, first+1))
		}
		seenItems[fields.itemID] = i

		if strings.TrimSpace(row.ID) == "" {
			creates = append(creates, fields)
			continue
		}

		labID, err := parseObjectID(row.ID, "lab id")
		if err != nil {
			return nil, rowError(i, err)
		}
		lab, ok := byID[labID]
		if !ok {
			return nil, apperrors.Validation(fmt.Sprintf("Row %d: lab does not belong to this order", i+1))
		}
		if seenLabs[labID] {
			return nil, apperrors.Validation(fmt.Sprintf("Row %d: lab is submitted twice", i+1))
		}
		seenLabs[labID] = true
		finalLinks[labID] = fields.itemID
		updates = append(updates, batchUpdate{lab: lab, fields: fields})
	}

	// After the updates land, no item may end up with a second lab
	linked := func(itemID, except primitive.ObjectID) bool {
		for labID, target := range finalLinks {
			if labID != except && target == itemID {
				return true
			}
		}
		return false
	}
	for _, u := range updates {
		if linked(u.fields.itemID, u.lab.ID) {
			return nil, apperrors.Validation("Another lab is already linked to that item")
		}
	}
	for _, c := range creates {
		if linked(c.itemID, primitive.NilObjectID) {
			return nil, apperrors.Validation("Item already has a lab")
		}
	}

	result := &LabBatchResult{
		Created: make([]*models.Lab, 0, len(creates)),
		Updated: make([]*models.Lab, 0, len(updates)),
	}
	for _, u := range updates {
		before := *u.lab
		u.fields.applyTo(u.lab)
		if err := s.labs.Update(ctx, u.lab); err != nil {
			return nil, fmt.Errorf("failed to update lab: %w", err)
		}
		s.auditor.Record(ctx, actor, AuditUpdate, resourceLab, u.lab.ID.Hex(), before, u.lab)
		result.Updated = append(result.Updated, u.lab)
	}
	for _, c := range creates {
		lab := &models.Lab{OrderID: orderID}
		c.applyTo(lab)
		if err := s.labs.Create(ctx, lab); err != nil {
			return nil, fmt.Errorf("failed to create lab: %w", err)
		}
		s.auditor.Record(ctx, actor, AuditCreate, resourceLab, lab.ID.Hex(), nil, lab)
		result.Created = append(result.Created, lab)
	}
	return result, nil
}

// rowError prefixes a validation message with its 1-based row number
func rowError(i int, err error) error {
	apiErr := apperrors.As(err)
	if apiErr.HTTPStatus >= 500 {
		return err
	}
	return apperrors.New(apiErr.Code, fmt.Sprintf("Row %d: %s", i+1, apiErr.Message), apiErr.HTTPStatus)
}

func (s *labService) ListByOrder(ctx context.Context, orderID primitive.ObjectID) ([]*models.Lab, error) {
	if _, err := s.order(ctx, orderID); err != nil {
		return nil, err
	}
	labs, err := s.labs.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list labs: %w", err)
	}
	return labs, nil
}

func (s *labService) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Lab, error) {
	lab, err := s.labs.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get lab: %w", err)
	}
	if lab == nil {
		return nil, apperrors.NotFound("Lab")
	}
	return lab, nil
}

// itemTaken reports whether another lab of the order is linked to itemID
func (s *labService) itemTaken(ctx context.Context, orderID, itemID, except primitive.ObjectID) (bool, error) {
	labs, err := s.labs.ListByOrder(ctx, orderID)
	if err != nil {
		return false, fmt.Errorf("failed to list labs: %w", err)
	}
	for _, lab := range labs {
		if lab.ID != except && lab.OrderItemID == itemID {
			return true, nil
		}
	}
	return false, nil
}

func (s *labService) Create(ctx context.Context, actor Actor, req LabRequest) (*models.Lab, error) {
	orderID, err := parseObjectID(req.OrderID, "order_id")
	if err != nil {
		return nil, err
	}
	order, err := s.order(ctx, orderID)
	if err != nil {
		return nil, err
	}
	fields, err := parseLabFields(order, req)
	if err != nil {
		return nil, err
	}

	taken, err := s.itemTaken(ctx, orderID, fields.itemID, primitive.NilObjectID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperrors.Validation("Item already has a lab")
	}

	lab := &models.Lab{OrderID: orderID}
	fields.applyTo(lab)
	if err := s.labs.Create(ctx, lab); err != nil {
		return nil, fmt.Errorf("failed to create lab: %w", err)
	}
	s.auditor.Record(ctx, actor, AuditCreate, resourceLab, lab.ID.Hex(), nil, lab)
	return lab, nil
}

func (s *labService) Update(ctx context.Context, actor Actor, id primitive.ObjectID, req LabRequest) (*models.Lab, error) {
	lab, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	order, err := s.order(ctx, lab.OrderID)
	if err != nil {
		return nil, err
	}
	fields, err := parseLabFields(order, req)
	if err != nil {
		return nil, err
	}

	taken, err := s.itemTaken(ctx, lab.OrderID, fields.itemID, lab.ID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperrors.Validation("Another lab is already linked to that item")
	}

	before := *lab
	fields.applyTo(lab)
	if err := s.labs.Update(ctx, lab); err != nil {
		return nil, fmt.Errorf("failed to update lab: %w", err)
	}
	s.auditor.Record(ctx, actor, AuditUpdate, resourceLab, id.Hex(), before, lab)
	return lab, nil
}

func (s *labService) Delete(ctx context.Context, actor Actor, id primitive.ObjectID) error {
	lab, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.labs.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete lab: %w", err)
	}
	s.auditor.Record(ctx, actor, AuditDelete, resourceLab, id.Hex(), lab, nil)
	return nil
}
