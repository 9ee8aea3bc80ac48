package scheduled

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/entregave/dispatch-backend/pkg/db/models"
	"github.com/entregave/dispatch-backend/pkg/enums"
	pkgerrors "github.com/entregave/dispatch-backend/pkg/errors"
	"github.com/entregave/dispatch-backend/pkg/logger"
	"gorm.io/gorm"
)

type fakeRepo struct {
	rows    map[int64]*models.ScheduledOrder
	nextID  int64
	deleted []int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{rows: map[int64]*models.ScheduledOrder{}, nextID: 1}
}

func (f *fakeRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepo) Create(ctx context.Context, row *models.ScheduledOrder) (*models.ScheduledOrder, error) {
	row.ID = f.nextID
	f.nextID++
	f.rows[row.ID] = row
	return row, nil
}

func (f *fakeRepo) Find(ctx context.Context, id int64) (*models.ScheduledOrder, error) {
	row, ok := f.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return row, nil
}

func (f *fakeRepo) List(ctx context.Context, filter ListFilter) ([]models.ScheduledOrder, error) {
	var out []models.ScheduledOrder
	for _, row := range f.rows {
		if filter.Status != nil && row.Status != *filter.Status {
			continue
		}
		out = append(out, *row)
	}
	return out, nil
}

func (f *fakeRepo) ClaimDue(ctx context.Context, now time.Time, limit int) ([]models.ScheduledOrder, error) {
	return nil, nil
}

func (f *fakeRepo) MarkProcessed(ctx context.Context, id int64, processedAt time.Time) error {
	return nil
}

func (f *fakeRepo) MarkError(ctx context.Context, id int64, reason string, processedAt time.Time) error {
	return nil
}

func (f *fakeRepo) Delete(ctx context.Context, id int64) error {
	f.deleted = append(f.deleted, id)
	delete(f.rows, id)
	return nil
}

func testService(t *testing.T, repo Repository) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Logger: logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Repo:   repo,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func validPayload() OrderPayload {
	return OrderPayload{
		Description:     "2x lunch boxes",
		DeliveryAddress: "Cra 7 # 45-10",
		VehicleType:     enums.VehicleTypeMoto.String(),
		MerchantName:    "Cafe Andino",
	}
}

func TestCreate_PersistsPendingRow(t *testing.T) {
	repo := newFakeRepo()
	svc := testService(t, repo)

	releaseAt := time.Date(2026, 9, 2, 14, 0, 0, 0, time.UTC)
	row, err := svc.Create(context.Background(), validPayload(), releaseAt, "Maria")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if row.Status != enums.ScheduledStatusPending {
		t.Fatalf("status = %s, want pendiente", row.Status)
	}
	if !row.ReleaseAt.Equal(releaseAt) {
		t.Fatalf("release at = %s, want %s", row.ReleaseAt, releaseAt)
	}
	var decoded OrderPayload
	if err := json.Unmarshal(row.Payload, &decoded); err != nil {
		t.Fatalf("payload does not round-trip: %v", err)
	}
	if decoded.MerchantName != "Cafe Andino" {
		t.Fatalf("merchant name = %q", decoded.MerchantName)
	}
}

func TestCreate_RejectsIncompletePayload(t *testing.T) {
	repo := newFakeRepo()
	svc := testService(t, repo)

	payload := validPayload()
	payload.VehicleType = "submarine"
	_, err := svc.Create(context.Background(), payload, time.Now().Add(time.Hour), "Maria")
	if err == nil {
		t.Fatal("expected error for unknown vehicle type")
	}
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("error = %v, want validation", err)
	}
	if len(repo.rows) != 0 {
		t.Fatal("row persisted despite invalid payload")
	}
}

func TestCancel_RemovesPendingRow(t *testing.T) {
	repo := newFakeRepo()
	svc := testService(t, repo)

	row, err := svc.Create(context.Background(), validPayload(), time.Now().Add(time.Hour), "Maria")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := svc.Cancel(context.Background(), row.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if len(repo.deleted) != 1 || repo.deleted[0] != row.ID {
		t.Fatalf("deleted = %v, want [%d]", repo.deleted, row.ID)
	}
}

func TestCancel_ProcessedRowConflicts(t *testing.T) {
	repo := newFakeRepo()
	svc := testService(t, repo)

	repo.rows[7] = &models.ScheduledOrder{ID: 7, Status: enums.ScheduledStatusProcessed}
	err := svc.Cancel(context.Background(), 7)
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("error = %v, want state conflict", err)
	}
	if len(repo.deleted) != 0 {
		t.Fatal("processed row was deleted")
	}
}

func TestCancel_MissingRow(t *testing.T) {
	svc := testService(t, newFakeRepo())

	err := svc.Cancel(context.Background(), 99)
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("error = %v, want not found", err)
	}
}
