package services

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/ak/millboard/internal/domain/models"
	"github.com/ak/millboard/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type labFixture struct {
	repos *testutil.Repos
	svc   LabService
	order *models.Order
}

func newLabFixture(t *testing.T, itemCount int) *labFixture {
	repos := testutil.NewRepos()
	party := repos.SeedParty(t, "Acme Textiles")
	qualities := make([]*models.Quality, itemCount)
	for i := range qualities {
		qualities[i] = repos.SeedQuality(t, "Quality "+string(rune('A'+i)))
	}
	order := repos.SeedOrder(t, "ORD-0001", party, qualities...)
	return &labFixture{
		repos: repos,
		svc:   NewLabService(repos.Labs, repos.Orders, repos.Qualities, NewAuditor(repos.AuditLogs, nil)),
		order: order,
	}
}

func (f *labFixture) labs(t *testing.T) []*models.Lab {
	t.Helper()
	labs, err := f.repos.Labs.ListByOrder(context.Background(), f.order.ID)
	require.NoError(t, err)
	return labs
}

func (f *labFixture) row(i int, sent string) LabRequest {
	return LabRequest{OrderItemID: f.order.Items[i].ID.Hex(), LabSendDate: sent}
}

func TestLabService_BuildForm(t *testing.T) {
	f := newLabFixture(t, 2)
	linked := f.repos.SeedLab(f.order, f.order.Items[1].ID, labEpoch, labEpoch)
	orphan := f.repos.SeedLab(f.order, primitive.NewObjectID(), labEpoch, labEpoch.Add(time.Minute))

	form, err := f.svc.BuildForm(context.Background(), f.order.ID)
	require.NoError(t, err)
	assert.Equal(t, "ORD-0001", form.OrderCode)
	require.Len(t, form.Rows, 2)

	assert.Equal(t, "Quality A", form.Rows[0].QualityName)
	assert.Nil(t, form.Rows[0].Lab, "position 0 holds the linked lab, which is claimed by item 1")
	require.NotNil(t, form.Rows[1].Lab)
	assert.Equal(t, linked.ID, form.Rows[1].Lab.ID)
	assert.Equal(t, MatchByID, form.Rows[1].MatchedBy)

	require.Len(t, form.Unmatched, 1)
	assert.Equal(t, orphan.ID, form.Unmatched[0].ID)
}

func TestLabService_BuildFormPositionalHeal(t *testing.T) {
	f := newLabFixture(t, 2)
	first := f.repos.SeedLab(f.order, primitive.NewObjectID(), labEpoch, labEpoch)
	second := f.repos.SeedLab(f.order, primitive.NewObjectID(), labEpoch, labEpoch.Add(time.Minute))

	form, err := f.svc.BuildForm(context.Background(), f.order.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, form.Rows[0].Lab.ID)
	assert.Equal(t, MatchByPosition, form.Rows[0].MatchedBy)
	assert.Equal(t, second.ID, form.Rows[1].Lab.ID)

	// submitting the form re-links both labs to their items
	_, err = f.svc.SubmitBatch(context.Background(), testActor, f.order.ID, LabBatchRequest{Rows: []LabRequest{
		{ID: first.ID.Hex(), OrderItemID: f.order.Items[0].ID.Hex(), LabSendDate: "2024-05-01"},
		{ID: second.ID.Hex(), OrderItemID: f.order.Items[1].ID.Hex(), LabSendDate: "2024-05-02"},
	}})
	require.NoError(t, err)

	form, err = f.svc.BuildForm(context.Background(), f.order.ID)
	require.NoError(t, err)
	assert.Equal(t, MatchByID, form.Rows[0].MatchedBy)
	assert.Equal(t, MatchByID, form.Rows[1].MatchedBy)
}

func TestLabService_SubmitBatchCreates(t *testing.T) {
	f := newLabFixture(t, 3)
	approved := f.row(1, "2024-05-01")
	approved.ApprovalDate = "2024-05-06"
	approved.SampleNumber = " S-12 "

	result, err := f.svc.SubmitBatch(context.Background(), testActor, f.order.ID, LabBatchRequest{Rows: []LabRequest{
		f.row(0, "2024-05-01"),
		approved,
		{OrderItemID: f.order.Items[2].ID.Hex()}, // untouched row
	}})
	require.NoError(t, err)
	assert.Len(t, result.Created, 2)
	assert.Empty(t, result.Updated)

	labs := f.labs(t)
	require.Len(t, labs, 2)
	byItem := map[primitive.ObjectID]*models.Lab{}
	for _, lab := range labs {
		byItem[lab.OrderItemID] = lab
	}
	assert.Equal(t, models.LabStatusSent, byItem[f.order.Items[0].ID].Status)
	assert.Equal(t, models.LabStatusApproved, byItem[f.order.Items[1].ID].Status)
	assert.Equal(t, "S-12", byItem[f.order.Items[1].ID].SampleNumber)
	assert.Len(t, f.repos.AuditLogs.Entries(), 2)
}

func TestLabService_SubmitBatchRejectsWholeBatch(t *testing.T) {
	tests := []struct {
		name string
		rows func(f *labFixture) []LabRequest
		msg  string
	}{
		{
			name: "placeholder item id",
			rows: func(f *labFixture) []LabRequest {
				return []LabRequest{f.row(0, "2024-05-01"), {OrderItemID: "new-1", LabSendDate: "2024-05-01"}}
			},
			msg: "Row 2: Save the order before adding labs for new items",
		},
		{
			name: "item from another order",
			rows: func(f *labFixture) []LabRequest {
				return []LabRequest{{OrderItemID: primitive.NewObjectID().Hex(), LabSendDate: "2024-05-01"}}
			},
			msg: "Row 1: Save the order before adding labs for new items",
		},
		{
			name: "missing send date",
			rows: func(f *labFixture) []LabRequest {
				r := f.row(1, "")
				r.SampleNumber = "S-1"
				return []LabRequest{f.row(0, "2024-05-01"), r}
			},
			msg: "Row 2: Lab send date is required",
		},
		{
			name: "two creates for one item",
			rows: func(f *labFixture) []LabRequest {
				return []LabRequest{f.row(0, "2024-05-01"), f.row(0, "2024-05-02")}
			},
			msg: "Row 2: item already has a lab in row 1",
		},
		{
			name: "approval before send",
			rows: func(f *labFixture) []LabRequest {
				r := f.row(0, "2024-05-05")
				r.ApprovalDate = "2024-05-01"
				return []LabRequest{r}
			},
			msg: "Row 1: Approval date cannot be before the lab send date",
		},
		{
			name: "approved without date",
			rows: func(f *labFixture) []LabRequest {
				r := f.row(0, "2024-05-05")
				r.Status = models.LabStatusApproved
				return []LabRequest{r}
			},
			msg: "Row 1: Approval date is required for an approved lab",
		},
		{
			name: "bad date",
			rows: func(f *labFixture) []LabRequest {
				return []LabRequest{f.row(0, "05/01/2024")}
			},
			msg: "Row 1: Invalid lab_send_date, expected YYYY-MM-DD",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newLabFixture(t, 2)
			_, err := f.svc.SubmitBatch(context.Background(), testActor, f.order.ID, LabBatchRequest{Rows: tt.rows(f)})
			requireAPIError(t, err, http.StatusBadRequest, tt.msg)
			assert.Empty(t, f.labs(t), "nothing is written when any row fails")
		})
	}
}

func TestLabService_SubmitBatchCreateForItemWithLab(t *testing.T) {
	f := newLabFixture(t, 2)
	f.repos.SeedLab(f.order, f.order.Items[0].ID, labEpoch, labEpoch)

	_, err := f.svc.SubmitBatch(context.Background(), testActor, f.order.ID, LabBatchRequest{Rows: []LabRequest{
		f.row(0, "2024-05-01"),
	}})
	requireAPIError(t, err, http.StatusBadRequest, "Item already has a lab")
	assert.Len(t, f.labs(t), 1)
}

func TestLabService_SubmitBatchMovesLabThenCreates(t *testing.T) {
	f := newLabFixture(t, 2)
	lab := f.repos.SeedLab(f.order, f.order.Items[0].ID, labEpoch, labEpoch)

	// the existing lab moves to item 1 and item 0 gets a new one
	result, err := f.svc.SubmitBatch(context.Background(), testActor, f.order.ID, LabBatchRequest{Rows: []LabRequest{
		f.row(0, "2024-05-03"),
		{ID: lab.ID.Hex(), OrderItemID: f.order.Items[1].ID.Hex(), LabSendDate: "2024-05-01"},
	}})
	require.NoError(t, err)
	assert.Len(t, result.Updated, 1)
	assert.Len(t, result.Created, 1)

	moved, err := f.repos.Labs.GetByID(context.Background(), lab.ID)
	require.NoError(t, err)
	assert.Equal(t, f.order.Items[1].ID, moved.OrderItemID)
	assert.Len(t, f.labs(t), 2)
}

func TestLabService_SubmitBatchForeignLab(t *testing.T) {
	f := newLabFixture(t, 1)
	_, err := f.svc.SubmitBatch(context.Background(), testActor, f.order.ID, LabBatchRequest{Rows: []LabRequest{
		{ID: primitive.NewObjectID().Hex(), OrderItemID: f.order.Items[0].ID.Hex(), LabSendDate: "2024-05-01"},
	}})
	requireAPIError(t, err, http.StatusBadRequest, "Row 1: lab does not belong to this order")
}

func TestLabService_CreateEnforcesOneLabPerItem(t *testing.T) {
	f := newLabFixture(t, 1)
	req := f.row(0, "2024-05-01")
	req.OrderID = f.order.ID.Hex()

	lab, err := f.svc.Create(context.Background(), testActor, req)
	require.NoError(t, err)
	assert.Equal(t, models.LabStatusSent, lab.Status)

	_, err = f.svc.Create(context.Background(), testActor, req)
	requireAPIError(t, err, http.StatusBadRequest, "Item already has a lab")
}

func TestLabService_RejectedWinsOverApprovalDate(t *testing.T) {
	f := newLabFixture(t, 1)
	req := f.row(0, "2024-05-01")
	req.OrderID = f.order.ID.Hex()
	req.ApprovalDate = "2024-05-04"
	req.Status = models.LabStatusRejected

	lab, err := f.svc.Create(context.Background(), testActor, req)
	require.NoError(t, err)
	assert.Equal(t, models.LabStatusRejected, lab.Status)
}
