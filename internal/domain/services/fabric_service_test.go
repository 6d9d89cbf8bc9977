package services

import (
	"context"
	"net/http"
	"testing"

	"github.com/ak/millboard/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestFabricService_Create(t *testing.T) {
	repos := testutil.NewRepos()
	quality := repos.SeedQuality(t, "Twill")
	svc := NewFabricService(repos.Fabrics, repos.Qualities, nil)

	fabric, err := svc.Create(context.Background(), testActor, FabricRequest{
		Weaver:    " Shree Looms ",
		QualityID: quality.ID.Hex(),
		Width:     decimal.NewFromInt(58),
		GSM:       decimal.NewFromInt(120),
	})
	require.NoError(t, err)
	assert.Equal(t, "Shree Looms", fabric.Weaver)
	require.NotNil(t, fabric.QualityID)
	assert.Equal(t, quality.ID, *fabric.QualityID)

	got, err := svc.GetByID(context.Background(), fabric.ID)
	require.NoError(t, err)
	assert.Equal(t, "Twill", got.QualityName)
}

func TestFabricService_Validation(t *testing.T) {
	repos := testutil.NewRepos()
	svc := NewFabricService(repos.Fabrics, repos.Qualities, nil)
	tests := []struct {
		name string
		req  FabricRequest
		msg  string
	}{
		{"no weaver", FabricRequest{}, "Weaver is required"},
		{"negative gsm", FabricRequest{Weaver: "Shree", GSM: decimal.NewFromInt(-1)}, "GSM cannot be negative"},
		{"unknown quality", FabricRequest{Weaver: "Shree", QualityID: primitive.NewObjectID().Hex()}, "Selected quality does not exist"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), testActor, tt.req)
			requireAPIError(t, err, http.StatusBadRequest, tt.msg)
		})
	}
}
