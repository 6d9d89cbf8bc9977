package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestResolveLabStatus(t *testing.T) {
	approved := time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC)
	zero := time.Time{}

	tests := []struct {
		name      string
		requested LabStatus
		approval  *time.Time
		want      LabStatus
	}{
		{"plain send", LabStatusSent, nil, LabStatusSent},
		{"approval date approves", LabStatusSent, &approved, LabStatusApproved},
		{"empty status with date", "", &approved, LabStatusApproved},
		{"rejection wins over date", LabStatusRejected, &approved, LabStatusRejected},
		{"zero date is no date", LabStatusSent, &zero, LabStatusSent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveLabStatus(tt.requested, tt.approval))
		})
	}
}

func TestOrderTotals(t *testing.T) {
	first := primitive.NewObjectID()
	order := &Order{Items: []OrderItem{
		{ID: first, Quantity: decimal.RequireFromString("120.5"), Rate: decimal.NewFromInt(40)},
		{ID: primitive.NewObjectID(), Quantity: decimal.NewFromInt(80), Rate: decimal.RequireFromString("12.25")},
	}}

	assert.Equal(t, "200.5", order.TotalQuantity().String())
	assert.Equal(t, "4820", order.Items[0].Amount().String())
	assert.Equal(t, "980", order.Items[1].Amount().String())

	item := order.Item(first)
	require.NotNil(t, item)
	item.Description = "edited"
	assert.Equal(t, "edited", order.Items[0].Description, "Item returns a pointer into the slice")
	assert.Nil(t, order.Item(primitive.NewObjectID()))
}

func TestStatusValidity(t *testing.T) {
	assert.True(t, OrderStatusInProgress.Valid())
	assert.False(t, OrderStatus("shipped").Valid())
	assert.True(t, UserRole("admin").Valid())
	assert.False(t, UserRole("root").Valid())
}

func TestMillOutputAmount(t *testing.T) {
	m := &MillOutput{FinishedMtr: decimal.NewFromInt(250), MillRate: decimal.RequireFromString("7.4")}
	assert.Equal(t, "1850", m.Amount().String())
}
