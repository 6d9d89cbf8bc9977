package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/ak/millboard/internal/domain/models"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const reportSheet = "Mill Report"

var reportHeaders = []string{
	"Order", "Party", "Bills", "Finished Mtr", "Amount", "Average Rate", "First Received", "Last Received",
}

// Summarize groups outputs by order. AverageRate is amount over meters, so
// large bills weigh more than small ones. Summaries are ordered by order code.
func Summarize(outputs []*models.MillOutput) []*models.MillOutputSummary {
	byOrder := make(map[primitive.ObjectID]*models.MillOutputSummary)
	for _, o := range outputs {
		sum, ok := byOrder[o.OrderID]
		if !ok {
			sum = &models.MillOutputSummary{
				OrderID:     o.OrderID,
				OrderCode:   o.OrderCode,
				FinishedMtr: decimal.Zero,
				Amount:      decimal.Zero,
				AverageRate: decimal.Zero,
				FirstRecd:   o.RecdDate,
				LastRecd:    o.RecdDate,
			}
			byOrder[o.OrderID] = sum
		}
		sum.BillCount++
		sum.FinishedMtr = sum.FinishedMtr.Add(o.FinishedMtr)
		sum.Amount = sum.Amount.Add(o.Amount())
		if o.RecdDate.Before(sum.FirstRecd) {
			sum.FirstRecd = o.RecdDate
		}
		if o.RecdDate.After(sum.LastRecd) {
			sum.LastRecd = o.RecdDate
		}
	}

	out := make([]*models.MillOutputSummary, 0, len(byOrder))
	for _, sum := range byOrder {
		if !sum.FinishedMtr.IsZero() {
			sum.AverageRate = sum.Amount.DivRound(sum.FinishedMtr, 2)
		}
		out = append(out, sum)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OrderCode != out[j].OrderCode {
			return out[i].OrderCode < out[j].OrderCode
		}
		return out[i].OrderID.Hex() < out[j].OrderID.Hex()
	})
	return out
}

func (s *millOutputService) Report(ctx context.Context, query ReportQuery) ([]*models.MillOutputSummary, error) {
	filter, err := query.filter()
	if err != nil {
		return nil, err
	}
	outputs, err := s.outputs.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to load mill outputs: %w", err)
	}
	if err := s.populate(ctx, outputs); err != nil {
		return nil, err
	}
	summaries := Summarize(outputs)
	if err := s.fillPartyNames(ctx, summaries); err != nil {
		return nil, err
	}
	return summaries, nil
}

func (s *millOutputService) fillPartyNames(ctx context.Context, summaries []*models.MillOutputSummary) error {
	if len(summaries) == 0 {
		return nil
	}
	orderIDs := make([]primitive.ObjectID, 0, len(summaries))
	for _, sum := range summaries {
		orderIDs = append(orderIDs, sum.OrderID)
	}
	orders, err := s.orders.GetByIDs(ctx, orderIDs)
	if err != nil {
		return fmt.Errorf("failed to load orders: %w", err)
	}
	partyOf := make(map[primitive.ObjectID]primitive.ObjectID, len(orders))
	partyIDs := make([]primitive.ObjectID, 0, len(orders))
	for _, o := range orders {
		partyOf[o.ID] = o.PartyID
		partyIDs = append(partyIDs, o.PartyID)
	}
	parties, err := s.parties.GetByIDs(ctx, uniqueIDs(partyIDs))
	if err != nil {
		return fmt.Errorf("failed to load parties: %w", err)
	}
	names := make(map[primitive.ObjectID]string, len(parties))
	for _, p := range parties {
		names[p.ID] = p.Name
	}
	for _, sum := range summaries {
		sum.PartyName = names[partyOf[sum.OrderID]]
	}
	return nil
}

// Export renders the report as a workbook with a totals row
func (s *millOutputService) Export(ctx context.Context, query ReportQuery) (*excelize.File, error) {
	summaries, err := s.Report(ctx, query)
	if err != nil {
		return nil, err
	}
	return ReportWorkbook(summaries)
}

// ReportWorkbook writes summaries to a new workbook
func ReportWorkbook(summaries []*models.MillOutputSummary) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", reportSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create style: %w", err)
	}

	for i, h := range reportHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(reportSheet, cell, h)
		f.SetCellStyle(reportSheet, cell, cell, headerStyle)
	}

	totalMtr, totalAmount, totalBills := decimal.Zero, decimal.Zero, 0
	for i, sum := range summaries {
		row := i + 2
		f.SetCellValue(reportSheet, fmt.Sprintf("A%d", row), sum.OrderCode)
		f.SetCellValue(reportSheet, fmt.Sprintf("B%d", row), sum.PartyName)
		f.SetCellValue(reportSheet, fmt.Sprintf("C%d", row), sum.BillCount)
		f.SetCellValue(reportSheet, fmt.Sprintf("D%d", row), sum.FinishedMtr.InexactFloat64())
		f.SetCellValue(reportSheet, fmt.Sprintf("E%d", row), sum.Amount.InexactFloat64())
		f.SetCellValue(reportSheet, fmt.Sprintf("F%d", row), sum.AverageRate.InexactFloat64())
		f.SetCellValue(reportSheet, fmt.Sprintf("G%d", row), sum.FirstRecd.Format("2006-01-02"))
		f.SetCellValue(reportSheet, fmt.Sprintf("H%d", row), sum.LastRecd.Format("2006-01-02"))

		totalMtr = totalMtr.Add(sum.FinishedMtr)
		totalAmount = totalAmount.Add(sum.Amount)
		totalBills += sum.BillCount
	}

	totalRow := len(summaries) + 2
	f.SetCellValue(reportSheet, fmt.Sprintf("A%d", totalRow), "Total")
	f.SetCellValue(reportSheet, fmt.Sprintf("C%d", totalRow), totalBills)
	f.SetCellValue(reportSheet, fmt.Sprintf("D%d", totalRow), totalMtr.InexactFloat64())
	f.SetCellValue(reportSheet, fmt.Sprintf("E%d", totalRow), totalAmount.InexactFloat64())
	if !totalMtr.IsZero() {
		f.SetCellValue(reportSheet, fmt.Sprintf("F%d", totalRow), totalAmount.DivRound(totalMtr, 2).InexactFloat64())
	}
	f.SetCellStyle(reportSheet, fmt.Sprintf("A%d", totalRow), fmt.Sprintf("H%d", totalRow), headerStyle)

	f.SetColWidth(reportSheet, "A", "B", 18)
	f.SetColWidth(reportSheet, "C", "H", 14)
	return f, nil
}
