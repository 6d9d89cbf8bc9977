package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MillOutput records finished material received from a mill against an order
type MillOutput struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	OrderID     primitive.ObjectID  `bson:"order_id" json:"order_id"`
	OrderCode   string              `bson:"-" json:"order_code,omitempty"`
	MillID      *primitive.ObjectID `bson:"mill_id,omitempty" json:"mill_id,omitempty"`
	MillName    string              `bson:"-" json:"mill_name,omitempty"`
	RecdDate    time.Time           `bson:"recd_date" json:"recd_date"`
	BillNo      string              `bson:"bill_no" json:"bill_no"`
	FinishedMtr decimal.Decimal     `bson:"finished_mtr" json:"finished_mtr"`
	MillRate    decimal.Decimal     `bson:"mill_rate" json:"mill_rate"`
	CreatedAt   time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time           `bson:"updated_at" json:"updated_at"`
}

// Amount is finished meters times the mill's rate
func (m *MillOutput) Amount() decimal.Decimal {
	return m.FinishedMtr.Mul(m.MillRate)
}

// MillOutputSummary aggregates mill outputs for one order
type MillOutputSummary struct {
	OrderID     primitive.ObjectID `json:"order_id"`
	OrderCode   string             `json:"order_code"`
	PartyName   string             `json:"party_name,omitempty"`
	BillCount   int                `json:"bill_count"`
	FinishedMtr decimal.Decimal    `json:"finished_mtr"`
	Amount      decimal.Decimal    `json:"amount"`
	AverageRate decimal.Decimal    `json:"average_rate"`
	FirstRecd   time.Time          `json:"first_recd"`
	LastRecd    time.Time          `json:"last_recd"`
}
