package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Order is a party's order made of one or more fabric line items
type Order struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrderID      string             `bson:"order_id" json:"order_id"` // Human readable, e.g. ORD-0042
	PartyID      primitive.ObjectID `bson:"party_id" json:"party_id"`
	PartyName    string             `bson:"-" json:"party_name,omitempty"`
	Status       OrderStatus        `bson:"status" json:"status"`
	OrderDate    time.Time          `bson:"order_date" json:"order_date"`
	DeliveryDate *time.Time         `bson:"delivery_date,omitempty" json:"delivery_date,omitempty"`
	Notes        string             `bson:"notes,omitempty" json:"notes,omitempty"`
	Items        []OrderItem        `bson:"items" json:"items"`
	CreatedBy    string             `bson:"created_by,omitempty" json:"created_by,omitempty"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updated_at"`
}

// OrderItem is one line of an order. Labs reference it by ID.
type OrderItem struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	QualityID   primitive.ObjectID `bson:"quality_id" json:"quality_id"`
	QualityName string             `bson:"-" json:"quality_name,omitempty"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Quantity    decimal.Decimal    `bson:"quantity" json:"quantity"` // meters
	Rate        decimal.Decimal    `bson:"rate" json:"rate"`
	Images      []string           `bson:"images,omitempty" json:"images,omitempty"` // object storage keys
	ImageURLs   []string           `bson:"-" json:"image_urls,omitempty"`
}

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusInProgress OrderStatus = "in_progress"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// OrderStatuses lists statuses in display order
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusInProgress,
	OrderStatusCompleted,
	OrderStatusCancelled,
}

// Valid reports whether s is a known status
func (s OrderStatus) Valid() bool {
	for _, known := range OrderStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Item returns the line item with the given ID, or nil
func (o *Order) Item(id primitive.ObjectID) *OrderItem {
	for i := range o.Items {
		if o.Items[i].ID == id {
			return &o.Items[i]
		}
	}
	return nil
}

// TotalQuantity sums item quantities
func (o *Order) TotalQuantity() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Quantity)
	}
	return total
}

// Amount is quantity times rate for the line
func (i OrderItem) Amount() decimal.Decimal {
	return i.Quantity.Mul(i.Rate)
}
