// Package testutil provides in-memory repositories and HTTP helpers for tests.
package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ak/millboard/internal/domain/models"
	"github.com/ak/millboard/internal/infrastructure/config"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const JWTSecret = "millboard-test-secret"

// Config returns a configuration suitable for handler tests
func Config() *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "millboard", Env: "test", DefaultRegion: "IN"},
		Server: config.ServerConfig{
			AuthTimeout:    3 * time.Second,
			RequestTimeout: 10 * time.Second,
			ReportTimeout:  15 * time.Second,
		},
		JWT: config.JWTConfig{
			Secret:         JWTSecret,
			AccessTokenTTL: time.Hour,
			Issuer:         "millboard",
			CookieName:     "token",
		},
		Storage: config.StorageConfig{MaxUploadBytes: 5 << 20},
		Logging: config.LoggingConfig{Level: "error", Format: "console", Output: "stdout"},
		CORS: config.CORSConfig{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
		},
	}
}

// DoRequest executes an HTTP request against the handler
func DoRequest(h http.Handler, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var reqBody io.Reader = http.NoBody
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewReader(jsonBytes)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// ParseResponse decodes the response envelope into a map
func ParseResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result), w.Body.String())
	return result
}

// ErrorMessage pulls error.message out of an envelope
func ErrorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	resp := ParseResponse(t, w)
	apiErr, ok := resp["error"].(map[string]interface{})
	require.True(t, ok, "response has no error: %s", w.Body.String())
	msg, _ := apiErr["message"].(string)
	return msg
}

// MemoryImages is an in-memory ImageStore
type MemoryImages struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func NewMemoryImages() *MemoryImages {
	return &MemoryImages{objects: make(map[string][]byte)}
}

func (m *MemoryImages) Put(_ context.Context, key, _ string, body io.Reader, _ int64) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.objects[key] = data
	m.mu.Unlock()
	return nil
}

func (m *MemoryImages) PresignGet(_ context.Context, key string) (string, error) {
	return fmt.Sprintf("https://test-bucket.example.com/%s?mock=true", key), nil
}

func (m *MemoryImages) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.objects, key)
	m.mu.Unlock()
	return nil
}

// Has reports whether key is stored
func (m *MemoryImages) Has(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[key]
	return ok
}

// Seed helpers

func (r *Repos) SeedQuality(t *testing.T, name string) *models.Quality {
	t.Helper()
	q := &models.Quality{Name: name}
	require.NoError(t, r.Qualities.Create(context.Background(), q))
	return q
}

func (r *Repos) SeedParty(t *testing.T, name string) *models.Party {
	t.Helper()
	p := &models.Party{Name: name}
	require.NoError(t, r.Parties.Create(context.Background(), p))
	return p
}

func (r *Repos) SeedMill(t *testing.T, name string) *models.Mill {
	t.Helper()
	m := &models.Mill{Name: name}
	require.NoError(t, r.Mills.Create(context.Background(), m))
	return m
}

// SeedOrder creates an order for the party with one item per quality
func (r *Repos) SeedOrder(t *testing.T, code string, party *models.Party, qualities ...*models.Quality) *models.Order {
	t.Helper()
	order := &models.Order{
		OrderID:   code,
		PartyID:   party.ID,
		Status:    models.OrderStatusPending,
		OrderDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	for _, q := range qualities {
		order.Items = append(order.Items, models.OrderItem{
			QualityID: q.ID,
			Quantity:  decimal.NewFromInt(100),
			Rate:      decimal.NewFromInt(50),
		})
	}
	require.NoError(t, r.Orders.Create(context.Background(), order))
	return order
}

// SeedUser stores a user with an already hashed password
func (r *Repos) SeedUser(t *testing.T, username string, role models.UserRole, passwordHash string) *models.User {
	t.Helper()
	u := &models.User{
		Name:         username,
		Username:     username,
		PasswordHash: passwordHash,
		Role:         role,
		IsActive:     true,
	}
	require.NoError(t, r.Users.Create(context.Background(), u))
	return u
}

// SeedLab stores a lab for the order item with an explicit creation time
func (r *Repos) SeedLab(order *models.Order, itemID primitive.ObjectID, sent, created time.Time) *models.Lab {
	lab := &models.Lab{
		OrderID:     order.ID,
		OrderItemID: itemID,
		LabSendDate: sent,
		Status:      models.LabStatusSent,
		CreatedAt:   created,
		UpdatedAt:   created,
	}
	r.Labs.Seed(lab)
	return lab
}
