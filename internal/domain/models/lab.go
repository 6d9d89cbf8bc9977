package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Lab is a sample-testing record tied to one order line item
type Lab struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrderID      primitive.ObjectID `bson:"order_id" json:"order_id"`
	OrderItemID  primitive.ObjectID `bson:"order_item_id" json:"order_item_id"`
	LabSendDate  time.Time          `bson:"lab_send_date" json:"lab_send_date"`
	ApprovalDate *time.Time         `bson:"approval_date,omitempty" json:"approval_date,omitempty"`
	SampleNumber string             `bson:"sample_number,omitempty" json:"sample_number,omitempty"`
	Status       LabStatus          `bson:"status" json:"status"`
	Remarks      string             `bson:"remarks,omitempty" json:"remarks,omitempty"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updated_at"`
}

type LabStatus string

const (
	LabStatusSent     LabStatus = "sent"
	LabStatusApproved LabStatus = "approved"
	LabStatusRejected LabStatus = "rejected"
)

// ResolveLabStatus picks the stored status for a lab. An explicit rejection
// wins; otherwise an approval date means approved.
func ResolveLabStatus(requested LabStatus, approvalDate *time.Time) LabStatus {
	if requested == LabStatusRejected {
		return LabStatusRejected
	}
	if approvalDate != nil && !approvalDate.IsZero() {
		return LabStatusApproved
	}
	return LabStatusSent
}
