package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Party is a customer that orders are placed for
type Party struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	ContactName string             `bson:"contact_name,omitempty" json:"contact_name,omitempty"`
	Phone       string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Email       string             `bson:"email,omitempty" json:"email,omitempty"`
	Address     string             `bson:"address,omitempty" json:"address,omitempty"`
	GSTNumber   string             `bson:"gst_number,omitempty" json:"gst_number,omitempty"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}

// Mill is a processing house that returns finished material against orders
type Mill struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Location    string             `bson:"location,omitempty" json:"location,omitempty"`
	ContactName string             `bson:"contact_name,omitempty" json:"contact_name,omitempty"`
	Phone       string             `bson:"phone,omitempty" json:"phone,omitempty"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}
