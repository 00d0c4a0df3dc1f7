package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/langchou/fleetdash/internal/models"
	"github.com/langchou/fleetdash/pkg/ws"
)

func newComplaints(t *testing.T) (*ComplaintService, *memComplaints, *recordingNotifier, *observer.ObservedLogs) {
	t.Helper()
	vehicles := &memVehicles{}
	require.NoError(t, vehicles.Create(context.Background(), &models.Vehicle{
		ChassisNumber: "CH-1",
		Depot:         strPtr("North"),
	}))

	core, logs := observer.New(zap.InfoLevel)
	complaints := &memComplaints{}
	notifier := &recordingNotifier{}
	svc := NewComplaintService(zap.New(core), complaints, vehicles, notifier)
	svc.now = fixedClock(testNow)
	return svc, complaints, notifier, logs
}

func TestComplaintService_Add(t *testing.T) {
	svc, _, notifier, _ := newComplaints(t)
	user := &models.User{ID: 3, Role: models.RoleUpload}

	c, err := svc.Add(context.Background(), ComplaintInput{
		ChassisNumber: "CH-1",
		Text:          "Rear door sensor faulty\nDoor does not close at stops",
	}, user)
	require.NoError(t, err)

	assert.Equal(t, models.ComplaintOpen, c.Status)
	assert.Equal(t, models.PriorityMedium, c.Priority)
	assert.Equal(t, "Rear door sensor faulty", c.Title)
	assert.Equal(t, "North", *c.Depot)
	assert.Equal(t, int64(3), *c.UserID)
	assert.Equal(t, []string{ws.MsgTypeComplaintUpdated}, notifier.types())
}

func TestComplaintService_AddValidation(t *testing.T) {
	svc, _, _, _ := newComplaints(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, ComplaintInput{ChassisNumber: "CH-1", Text: "  "}, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Add(ctx, ComplaintInput{ChassisNumber: "CH-1", Text: "noise", Priority: "urgent"}, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Add(ctx, ComplaintInput{ChassisNumber: "CH-9", Text: "noise"}, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestComplaintService_ClearAndReopen(t *testing.T) {
	svc, store, notifier, logs := newComplaints(t)
	ctx := context.Background()

	c, err := svc.Add(ctx, ComplaintInput{ChassisNumber: "CH-1", Text: "AC not cooling", Priority: "HIGH"}, nil)
	require.NoError(t, err)
	assert.Equal(t, models.PriorityHigh, c.Priority)

	later := testNow.Add(2 * time.Hour)
	svc.now = fixedClock(later)

	cleared, err := svc.Clear(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ComplaintCleared, cleared.Status)
	assert.Equal(t, later, cleared.UpdatedAt)

	stored, err := store.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ComplaintCleared, stored.Status)

	_, err = svc.Clear(ctx, c.ID)
	assert.ErrorIs(t, err, ErrConflict)

	reopened, err := svc.Reopen(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ComplaintOpen, reopened.Status)

	_, err = svc.Reopen(ctx, c.ID)
	assert.ErrorIs(t, err, ErrConflict)

	_, err = svc.Clear(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Len(t, notifier.types(), 3)
	assert.Equal(t, 2, logs.FilterMessage("Complaint status changed").Len())
}

func TestComplaintService_List(t *testing.T) {
	svc, _, _, _ := newComplaints(t)
	ctx := context.Background()

	first, err := svc.Add(ctx, ComplaintInput{ChassisNumber: "CH-1", Text: "wipers"}, nil)
	require.NoError(t, err)
	_, err = svc.Add(ctx, ComplaintInput{ChassisNumber: "CH-1", Text: "mirror"}, nil)
	require.NoError(t, err)
	_, err = svc.Clear(ctx, first.ID)
	require.NoError(t, err)

	all, err := svc.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	all, err = svc.List(ctx, "ALL")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	open, err := svc.List(ctx, "open")
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "mirror", open[0].Title)

	_, err = svc.List(ctx, "pending")
	assert.ErrorIs(t, err, ErrInvalidInput)

	byVehicle, err := svc.ListByChassis(ctx, "CH-1")
	require.NoError(t, err)
	assert.Len(t, byVehicle, 2)
}

func TestTitleFromText(t *testing.T) {
	assert.Equal(t, "Brake squeal", titleFromText("Brake squeal\nfront left"))

	long := strings.Repeat("ब", 100)
	title := titleFromText(long)
	assert.Equal(t, maxTitleLength, len([]rune(title)))
	assert.True(t, strings.HasSuffix(title, "..."))
}

// staleComplaints 模拟读到旧状态：另一请求已在读取之后修改了投诉
type staleComplaints struct {
	*memComplaints
	readStatus string
}

func (s *staleComplaints) GetByID(ctx context.Context, id int64) (*models.Complaint, error) {
	c, err := s.memComplaints.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Status = s.readStatus
	return c, nil
}

func TestComplaintService_ConcurrentClearConflicts(t *testing.T) {
	svc, store, notifier, _ := newComplaints(t)
	ctx := context.Background()

	c, err := svc.Add(ctx, ComplaintInput{ChassisNumber: "CH-1", Text: "HVAC fault"}, nil)
	require.NoError(t, err)
	_, err = svc.Clear(ctx, c.ID)
	require.NoError(t, err)

	svc.complaints = &staleComplaints{memComplaints: store, readStatus: models.ComplaintOpen}
	_, err = svc.Clear(ctx, c.ID)
	assert.ErrorIs(t, err, ErrConflict)

	stored, err := store.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ComplaintCleared, stored.Status)
	assert.Len(t, notifier.types(), 2)
}
