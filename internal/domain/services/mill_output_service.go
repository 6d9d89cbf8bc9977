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
	"github.com/xuri/excelize/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MillOutputService records finished material from mills and reports on it
type MillOutputService interface {
	Create(ctx context.Context, actor Actor, req MillOutputRequest) (*models.MillOutput, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.MillOutput, error)
	Update(ctx context.Context, actor Actor, id primitive.ObjectID, req MillOutputRequest) (*models.MillOutput, error)
	Delete(ctx context.Context, actor Actor, id primitive.ObjectID) error
	List(ctx context.Context, filter repositories.ListFilter) ([]*models.MillOutput, int64, error)
	Report(ctx context.Context, query ReportQuery) ([]*models.MillOutputSummary, error)
	Export(ctx context.Context, query ReportQuery) (*excelize.File, error)
}

type MillOutputRequest struct {
	OrderID     string          `json:"order_id" binding:"required"`
	MillID      string          `json:"mill_id"`
	RecdDate    string          `json:"recd_date" binding:"required"`
	BillNo      string          `json:"bill_no" binding:"required"`
	FinishedMtr decimal.Decimal `json:"finished_mtr"`
	MillRate    decimal.Decimal `json:"mill_rate"`
}

// ReportQuery holds raw report parameters; dates are YYYY-MM-DD and To is inclusive
type ReportQuery struct {
	OrderID string `form:"order_id"`
	From    string `form:"from"`
	To      string `form:"to"`
}

const resourceMillOutput = "mill_output"

type millOutputService struct {
	outputs repositories.MillOutputRepository
	orders  repositories.OrderRepository
	mills   repositories.MillRepository
	parties repositories.PartyRepository
	auditor *Auditor
}

func NewMillOutputService(
	outputs repositories.MillOutputRepository,
	orders repositories.OrderRepository,
	mills repositories.MillRepository,
	parties repositories.PartyRepository,
	auditor *Auditor,
) MillOutputService {
	return &millOutputService{
		outputs: outputs,
		orders:  orders,
		mills:   mills,
		parties: parties,
		auditor: auditor,
	}
}

func (s *millOutputService) build(ctx context.Context, req MillOutputRequest) (*models.MillOutput, error) {
	orderID, err := parseObjectID(req.OrderID, "order_id")
	if err != nil {
		return nil, apperrors.Validation("Order is required")
	}
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil {
		return nil, apperrors.Validation("Selected order does not exist")
	}

	output := &models.MillOutput{
		OrderID:     orderID,
		OrderCode:   order.OrderID,
		BillNo:      strings.TrimSpace(req.BillNo),
		FinishedMtr: req.FinishedMtr,
		MillRate:    req.MillRate,
	}

	if strings.TrimSpace(req.MillID) != "" {
		millID, err := parseObjectID(req.MillID, "mill_id")
		if err != nil {
			return nil, err
		}
		mill, err := s.mills.GetByID(ctx, millID)
		if err != nil {
			return nil, fmt.Errorf("failed to get mill: %w", err)
		}
		if mill == nil {
			return nil, apperrors.Validation("Selected mill does not exist")
		}
		output.MillID = &millID
		output.MillName = mill.Name
	}

	recd, err := parseDate(req.RecdDate, "recd_date")
	if err != nil {
		return nil, err
	}
	if recd == nil {
		return nil, apperrors.Validation("Received date is required")
	}
	output.RecdDate = *recd

	if output.BillNo == "" {
		return nil, apperrors.Validation("Bill number is required")
	}
	if !output.FinishedMtr.IsPositive() {
		return nil, apperrors.Validation("Finished meters must be greater than zero")
	}
	if output.MillRate.IsNegative() {
		return nil, apperrors.Validation("Mill rate cannot be negative")
	}
	return output, nil
}

func (s *millOutputService) Create(ctx context.Context, actor Actor, req MillOutputRequest) (*models.MillOutput, error) {
	output, err := s.build(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.outputs.Create(ctx, output); err != nil {
		return nil, fmt.Errorf("failed to create mill output: %w", err)
	}
	s.auditor.Record(ctx, actor, AuditCreate, resourceMillOutput, output.ID.Hex(), nil, output)
	return output, nil
}

func (s *millOutputService) GetByID(ctx context.Context, id primitive.ObjectID) (*models.MillOutput, error) {
	output, err := s.outputs.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get mill output: %w", err)
	}
	if output == nil {
		return nil, apperrors.NotFound("Mill output")
	}
	if err := s.populate(ctx, []*models.MillOutput{output}); err != nil {
		return nil, err
	}
	return output, nil
}

func (s *millOutputService) Update(ctx context.Context, actor Actor, id primitive.ObjectID, req MillOutputRequest) (*models.MillOutput, error) {
	output, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	updated, err := s.build(ctx, req)
	if err != nil {
		return nil, err
	}

	before := *output
	updated.ID = output.ID
	updated.CreatedAt = output.CreatedAt
	if err := s.outputs.Update(ctx, updated); err != nil {
		return nil, fmt.Errorf("failed to update mill output: %w", err)
	}
	s.auditor.Record(ctx, actor, AuditUpdate, resourceMillOutput, id.Hex(), before, updated)
	return updated, nil
}

func (s *millOutputService) Delete(ctx context.Context, actor Actor, id primitive.ObjectID) error {
	output, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.outputs.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete mill output: %w", err)
	}
	s.auditor.Record(ctx, actor, AuditDelete, resourceMillOutput, id.Hex(), output, nil)
	return nil
}

func (s *millOutputService) List(ctx context.Context, filter repositories.ListFilter) ([]*models.MillOutput, int64, error) {
	outputs, total, err := s.outputs.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list mill outputs: %w", err)
	}
	if err := s.populate(ctx, outputs); err != nil {
		return nil, 0, err
	}
	return outputs, total, nil
}

// populate fills order codes and mill names
func (s *millOutputService) populate(ctx context.Context, outputs []*models.MillOutput) error {
	if len(outputs) == 0 {
		return nil
	}
	orderIDs := make([]primitive.ObjectID, 0, len(outputs))
	var millIDs []primitive.ObjectID
	for _, o := range outputs {
		orderIDs = append(orderIDs, o.OrderID)
		if o.MillID != nil {
			millIDs = append(millIDs, *o.MillID)
		}
	}

	orders, err := s.orders.GetByIDs(ctx, uniqueIDs(orderIDs))
	if err != nil {
		return fmt.Errorf("failed to load orders: %w", err)
	}
	codes := make(map[primitive.ObjectID]string, len(orders))
	for _, o := range orders {
		codes[o.ID] = o.OrderID
	}

	millNames := make(map[primitive.ObjectID]string)
	if ids := uniqueIDs(millIDs); len(ids) > 0 {
		mills, err := s.mills.GetByIDs(ctx, ids)
		if err != nil {
			return fmt.Errorf("failed to load mills: %w", err)
		}
		for _, m := range mills {
			millNames[m.ID] = m.Name
		}
	}

	for _, o := range outputs {
		o.OrderCode = codes[o.OrderID]
		if o.MillID != nil {
			o.MillName = millNames[*o.MillID]
		}
	}
	return nil
}

func (q ReportQuery) filter() (repositories.MillOutputFilter, error) {
	var f repositories.MillOutputFilter
	if strings.TrimSpace(q.OrderID) != "" {
		id, err := parseObjectID(q.OrderID, "order_id")
		if err != nil {
			return f, err
		}
		f.OrderID = &id
	}
	from, err := parseDate(q.From, "from")
	if err != nil {
		return f, err
	}
	to, err := parseDate(q.To, "to")
	if err != nil {
		return f, err
	}
	if to != nil {
		// Inclusive of the whole last day
		end := to.Add(24*time.Hour - time.Nanosecond)
		to = &end
	}
	if from != nil && to != nil && to.Before(*from) {
		return f, apperrors.Validation("The end date cannot be before the start date")
	}
	f.From, f.To = from, to
	return f, nil
}
