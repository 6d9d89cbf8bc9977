package services

import (
	"context"
	"net/http"
	"strings"
	"testing"

	apperrors "github.com/ak/millboard/internal/pkg/errors"
	"github.com/ak/millboard/internal/pkg/logger"
	"github.com/ak/millboard/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var testActor = Actor{UserID: primitive.NewObjectID(), Username: "tester"}

func newQualityService(repos *testutil.Repos) QualityService {
	return NewQualityService(repos.Qualities, repos.Orders, NewAuditor(repos.AuditLogs, logger.Nop()))
}

func requireAPIError(t *testing.T, err error, status int, message string) *apperrors.APIError {
	t.Helper()
	require.Error(t, err)
	apiErr := apperrors.As(err)
	assert.Equal(t, status, apiErr.HTTPStatus)
	if message != "" {
		assert.Equal(t, message, apiErr.Message)
	}
	return apiErr
}

func TestQualityService_UpdateRejectsNameOfAnotherQuality(t *testing.T) {
	repos := testutil.NewRepos()
	repos.SeedQuality(t, "Cotton Satin")
	poplin := repos.SeedQuality(t, "Poplin")
	svc := newQualityService(repos)

	_, err := svc.Update(context.Background(), testActor, poplin.ID, QualityRequest{Name: "  cotton SATIN "})
	requireAPIError(t, err, http.StatusBadRequest, "A quality with this name already exists")

	stored, err := repos.Qualities.GetByID(context.Background(), poplin.ID)
	require.NoError(t, err)
	assert.Equal(t, "Poplin", stored.Name)
}

func TestQualityService_UpdateAllowsRecasingOwnName(t *testing.T) {
	repos := testutil.NewRepos()
	satin := repos.SeedQuality(t, "satin")
	svc := newQualityService(repos)

	updated, err := svc.Update(context.Background(), testActor, satin.ID, QualityRequest{Name: "Satin", Description: " glossy "})
	require.NoError(t, err)
	assert.Equal(t, "Satin", updated.Name)
	assert.Equal(t, "glossy", updated.Description)

	entries := repos.AuditLogs.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, AuditUpdate, entries[0].Action)
	assert.Equal(t, "quality", entries[0].ResourceType)
	assert.Equal(t, satin.ID.Hex(), entries[0].ResourceID)
}

func TestQualityService_Validation(t *testing.T) {
	repos := testutil.NewRepos()
	svc := newQualityService(repos)

	tests := []struct {
		name string
		req  QualityRequest
		msg  string
	}{
		{"missing name", QualityRequest{Name: "   "}, "Quality name is required"},
		{"short name", QualityRequest{Name: "A"}, "Quality name must be between 2 and 100 characters"},
		{"long name", QualityRequest{Name: strings.Repeat("x", 101)}, "Quality name must be between 2 and 100 characters"},
		{"long description", QualityRequest{Name: "Twill", Description: strings.Repeat("d", 501)}, "Description cannot exceed 500 characters"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), testActor, tt.req)
			requireAPIError(t, err, http.StatusBadRequest, tt.msg)
		})
	}
}

func TestQualityService_UpdateUnknownIsNotFound(t *testing.T) {
	svc := newQualityService(testutil.NewRepos())
	_, err := svc.Update(context.Background(), testActor, primitive.NewObjectID(), QualityRequest{Name: "Twill"})
	requireAPIError(t, err, http.StatusNotFound, "Quality not found")
}

func TestQualityService_DeleteInUse(t *testing.T) {
	repos := testutil.NewRepos()
	quality := repos.SeedQuality(t, "Twill")
	party := repos.SeedParty(t, "Acme Textiles")
	repos.SeedOrder(t, "ORD-0001", party, quality)
	repos.SeedOrder(t, "ORD-0002", party, quality, quality)
	svc := newQualityService(repos)

	err := svc.Delete(context.Background(), testActor, quality.ID)
	apiErr := requireAPIError(t, err, http.StatusBadRequest, "Cannot delete quality. It is used in 2 order(s).")
	assert.Equal(t, apperrors.ErrInUse, apiErr.Code)
	assert.Equal(t, map[string]int64{"count": 2}, apiErr.Details)

	stored, err := repos.Qualities.GetByID(context.Background(), quality.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored)
}

func TestQualityService_DeleteUnused(t *testing.T) {
	repos := testutil.NewRepos()
	quality := repos.SeedQuality(t, "Twill")
	svc := newQualityService(repos)

	require.NoError(t, svc.Delete(context.Background(), testActor, quality.ID))

	stored, err := repos.Qualities.GetByID(context.Background(), quality.ID)
	require.NoError(t, err)
	assert.Nil(t, stored)

	entries := repos.AuditLogs.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, AuditDelete, entries[0].Action)
	assert.Equal(t, testActor.Username, entries[0].Username)
}

func TestQualityService_CreateDuplicate(t *testing.T) {
	repos := testutil.NewRepos()
	repos.SeedQuality(t, "Denim")
	svc := newQualityService(repos)

	_, err := svc.Create(context.Background(), testActor, QualityRequest{Name: "DENIM"})
	requireAPIError(t, err, http.StatusBadRequest, "A quality with this name already exists")
}
