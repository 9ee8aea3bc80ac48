package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/entregave/dispatch-backend/internal/orders"
	pkgauth "github.com/entregave/dispatch-backend/pkg/auth"
	"github.com/entregave/dispatch-backend/pkg/config"
	"github.com/entregave/dispatch-backend/pkg/db/models"
	"github.com/entregave/dispatch-backend/pkg/enums"
	"github.com/entregave/dispatch-backend/pkg/logger"
)

type stubOrdersService struct{}

func (stubOrdersService) Create(ctx context.Context, input orders.CreateInput) (*models.Order, error) {
	return nil, nil
}

func (stubOrdersService) UpdateStatus(ctx context.Context, orderID int64, status enums.OrderStatus, driverID *string, actor string) (*models.Order, error) {
	return nil, nil
}

func (stubOrdersService) Assign(ctx context.Context, orderID int64, driverID, actor string) (*models.Order, error) {
	return nil, nil
}

func (stubOrdersService) Update(ctx context.Context, orderID int64, input orders.UpdateInput) (*models.Order, error) {
	return nil, nil
}

func (stubOrdersService) Get(ctx context.Context, orderID int64) (*models.Order, error) {
	return nil, nil
}

func (stubOrdersService) List(ctx context.Context, filter orders.ListFilter) ([]models.Order, error) {
	return []models.Order{}, nil
}

func (stubOrdersService) History(ctx context.Context, orderID int64) ([]models.OrderStatusLog, error) {
	return nil, nil
}

func testRouter(t *testing.T) (http.Handler, config.JWTConfig) {
	t.Helper()
	cfg := &config.Config{}
	cfg.App.Env = "test"
	cfg.App.CORSOrigins = []string{"http://localhost:3000"}
	cfg.JWT = config.JWTConfig{Secret: "secret", Issuer: "dispatch-test", ExpirationMinutes: 5}

	handler := NewRouter(RouterParams{
		Config: cfg,
		Logger: logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Orders: stubOrdersService{},
	})
	return handler, cfg.JWT
}

func TestRouter_HealthLiveIsPublic(t *testing.T) {
	handler, _ := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("X-Dispatch-Env"); got != "test" {
		t.Fatalf("expected env header, got %q", got)
	}
}

func TestRouter_OrdersRequireCredentials(t *testing.T) {
	handler, _ := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRouter_OperatorTokenReachesOrders(t *testing.T) {
	handler, jwtCfg := testRouter(t)

	token, err := pkgauth.MintAccessToken(jwtCfg, time.Now().UTC(), pkgauth.AccessTokenPayload{
		OperatorID: "op-1",
		Role:       enums.ActorRoleOperator,
	})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRouter_AdminRoutesRejectOperators(t *testing.T) {
	handler, jwtCfg := testRouter(t)

	token, err := pkgauth.MintAccessToken(jwtCfg, time.Now().UTC(), pkgauth.AccessTokenPayload{
		OperatorID: "op-1",
		Role:       enums.ActorRoleOperator,
	})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/api-keys", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}
