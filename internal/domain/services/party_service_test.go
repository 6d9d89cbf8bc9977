package services

import (
	"context"
	"net/http"
	"testing"

	"github.com/ak/millboard/internal/domain/models"
	"github.com/ak/millboard/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingInvalidator struct{ calls int }

func (c *countingInvalidator) Invalidate() { c.calls++ }

func TestPartyService_CreateNormalizes(t *testing.T) {
	repos := testutil.NewRepos()
	svc := NewPartyService(repos.Parties, repos.Orders, nil, nil, "IN")

	party, err := svc.Create(context.Background(), testActor, PartyRequest{
		Name:  "  Acme Textiles ",
		Phone: "98765 43210",
	})
	require.NoError(t, err)
	assert.Equal(t, "Acme Textiles", party.Name)
	assert.Equal(t, "+919876543210", party.Phone)

	_, err = svc.Create(context.Background(), testActor, PartyRequest{Name: "ACME textiles"})
	requireAPIError(t, err, http.StatusBadRequest, msgPartyExists)
}

func TestPartyService_Email(t *testing.T) {
	repos := testutil.NewRepos()
	svc := NewPartyService(repos.Parties, repos.Orders, nil, nil, "IN")

	party, err := svc.Create(context.Background(), testActor, PartyRequest{Name: "Acme", Email: " Sales@Acme.IN "})
	require.NoError(t, err)
	assert.Equal(t, "sales@acme.in", party.Email)

	_, err = svc.Create(context.Background(), testActor, PartyRequest{Name: "Zenith", Email: "sales at zenith"})
	requireAPIError(t, err, http.StatusBadRequest, "Invalid email address")
}

func TestPartyService_DeleteInUse(t *testing.T) {
	repos := testutil.NewRepos()
	inv := &countingInvalidator{}
	svc := NewPartyService(repos.Parties, repos.Orders, nil, inv, "IN")
	party := repos.SeedParty(t, "Acme Textiles")
	repos.SeedOrder(t, "ORD-0001", party, repos.SeedQuality(t, "Twill"))

	err := svc.Delete(context.Background(), testActor, party.ID)
	apiErr := requireAPIError(t, err, http.StatusBadRequest, "Cannot delete party. It is used in 1 order(s).")
	assert.Equal(t, map[string]int64{"count": 1}, apiErr.Details)
	assert.Zero(t, inv.calls)

	unused := repos.SeedParty(t, "Zenith")
	require.NoError(t, svc.Delete(context.Background(), testActor, unused.ID))
	assert.Equal(t, 1, inv.calls)
}

func TestMillService_DeleteInUse(t *testing.T) {
	repos := testutil.NewRepos()
	svc := NewMillService(repos.Mills, repos.MillOutputs, nil, "IN")
	mill := repos.SeedMill(t, "Sunrise Processors")
	order := repos.SeedOrder(t, "ORD-0001", repos.SeedParty(t, "Acme"), repos.SeedQuality(t, "Twill"))
	millID := mill.ID
	require.NoError(t, repos.MillOutputs.Create(context.Background(), &models.MillOutput{
		OrderID:     order.ID,
		MillID:      &millID,
		BillNo:      "B-1",
		FinishedMtr: decimal.NewFromInt(10),
	}))

	err := svc.Delete(context.Background(), testActor, mill.ID)
	requireAPIError(t, err, http.StatusBadRequest, "Cannot delete mill. It is used in 1 mill output(s).")
}
