package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Quality is a named fabric specification referenced by order line items
type Quality struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}

const (
	QualityNameMin        = 2
	QualityNameMax        = 100
	QualityDescriptionMax = 500
)

// Fabric is a woven fabric offered by a weaver
type Fabric struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Weaver      string              `bson:"weaver" json:"weaver"`
	QualityID   *primitive.ObjectID `bson:"quality_id,omitempty" json:"quality_id,omitempty"`
	QualityName string              `bson:"-" json:"quality_name,omitempty"`
	Width       decimal.Decimal     `bson:"width" json:"width"`   // inches
	Weight      decimal.Decimal     `bson:"weight" json:"weight"` // grams per linear meter
	GSM         decimal.Decimal     `bson:"gsm" json:"gsm"`
	Rate        decimal.Decimal     `bson:"rate" json:"rate"` // per meter
	CreatedAt   time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time           `bson:"updated_at" json:"updated_at"`
}
