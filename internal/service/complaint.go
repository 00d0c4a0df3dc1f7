package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/langchou/fleetdash/internal/models"
	"github.com/langchou/fleetdash/internal/state"
	"github.com/langchou/fleetdash/pkg/ws"
)

const maxTitleLength = 80

// ComplaintInput 投诉录入参数
type ComplaintInput struct {
	ChassisNumber string `json:"chassis_number" validate:"required"`
	Title         string `json:"title" validate:"max=200"`
	Text          string `json:"text" validate:"required,max=5000"`
	Priority      string `json:"priority" validate:"omitempty,oneof=low medium high"`
}

// ComplaintService 维修投诉服务
type ComplaintService struct {
	logger     *zap.Logger
	complaints ComplaintStore
	vehicles   VehicleStore
	notifier   Notifier
	validate   *validator.Validate
	now        func() time.Time
}

// NewComplaintService 创建投诉服务
func NewComplaintService(logger *zap.Logger, complaints ComplaintStore, vehicles VehicleStore, notifier Notifier) *ComplaintService {
	return &ComplaintService{
		logger:     logger,
		complaints: complaints,
		vehicles:   vehicles,
		notifier:   notifier,
		validate:   newValidator(),
		now:        time.Now,
	}
}

// List 按状态列出投诉，"" 或 "all" 返回全部
func (s *ComplaintService) List(ctx context.Context, status string) ([]*models.Complaint, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	switch status {
	case "", "all":
		status = ""
	case models.ComplaintOpen, models.ComplaintCleared:
	default:
		return nil, fmt.Errorf("%w: unknown complaint status %q", ErrInvalidInput, status)
	}

	complaints, err := s.complaints.List(ctx, status)
	if err != nil {
		return nil, storeError("list complaints", err)
	}
	return complaints, nil
}

// ListByChassis 单车投诉列表
func (s *ComplaintService) ListByChassis(ctx context.Context, chassis string) ([]*models.Complaint, error) {
	vehicle, err := s.vehicle(ctx, chassis)
	if err != nil {
		return nil, err
	}
	complaints, err := s.complaints.ListByVehicleID(ctx, vehicle.ID)
	if err != nil {
		return nil, storeError("list complaints by vehicle", err)
	}
	return complaints, nil
}

// Add 新增投诉，状态为 open
func (s *ComplaintService) Add(ctx context.Context, input ComplaintInput, user *models.User) (*models.Complaint, error) {
	input.ChassisNumber = strings.TrimSpace(input.ChassisNumber)
	input.Text = strings.TrimSpace(input.Text)
	input.Title = strings.TrimSpace(input.Title)
	input.Priority = strings.ToLower(strings.TrimSpace(input.Priority))
	if err := s.validate.Struct(input); err != nil {
		return nil, validationError(err)
	}

	vehicle, err := s.vehicle(ctx, input.ChassisNumber)
	if err != nil {
		return nil, err
	}

	priority := input.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	title := input.Title
	if title == "" {
		title = titleFromText(input.Text)
	}

	now := s.now()
	c := &models.Complaint{
		VehicleID:          vehicle.ID,
		Title:              title,
		Description:        input.Text,
		Status:             models.ComplaintOpen,
		Priority:           priority,
		CreatedAt:          now,
		UpdatedAt:          now,
		ChassisNumber:      vehicle.ChassisNumber,
		RegistrationNumber: vehicle.RegistrationNumber,
		Depot:              vehicle.Depot,
	}
	if user != nil {
		c.UserID = &user.ID
	}

	if err := s.complaints.Create(ctx, c); err != nil {
		return nil, storeError("create complaint", err)
	}

	s.logger.Info("Complaint added",
		zap.Int64("complaint_id", c.ID),
		zap.Int64("vehicle_id", vehicle.ID),
		zap.String("priority", priority),
	)
	s.notify(c)
	return c, nil
}

// Clear 关闭投诉
func (s *ComplaintService) Clear(ctx context.Context, id int64) (*models.Complaint, error) {
	return s.transition(ctx, id, state.EventClear)
}

// Reopen 重新打开投诉
func (s *ComplaintService) Reopen(ctx context.Context, id int64) (*models.Complaint, error) {
	return s.transition(ctx, id, state.EventReopen)
}

func (s *ComplaintService) transition(ctx context.Context, id int64, event string) (*models.Complaint, error) {
	c, err := s.complaints.GetByID(ctx, id)
	if err != nil {
		return nil, storeError("get complaint", err)
	}

	machine := state.NewComplaintMachine(c.ID, c.Status, func(complaintID int64, from, to string) {
		s.logger.Info("Complaint status changed",
			zap.Int64("complaint_id", complaintID),
			zap.String("from", from),
			zap.String("to", to),
		)
	})

	status, err := machine.Trigger(ctx, event)
	if err != nil {
		if errors.Is(err, state.ErrInvalidTransition) {
			return nil, fmt.Errorf("%w: complaint %d is already %s", ErrConflict, id, c.Status)
		}
		return nil, err
	}

	updatedAt := s.now()
	if err := s.complaints.UpdateStatus(ctx, c.ID, c.Status, status, updatedAt); err != nil {
		return nil, storeError("update complaint status", err)
	}
	c.Status = status
	c.UpdatedAt = updatedAt

	s.notify(c)
	return c, nil
}

func (s *ComplaintService) vehicle(ctx context.Context, chassis string) (*models.Vehicle, error) {
	chassis = strings.TrimSpace(chassis)
	if chassis == "" {
		return nil, fmt.Errorf("%w: chassis_number is required", ErrInvalidInput)
	}
	v, err := s.vehicles.GetByChassis(ctx, chassis)
	if err != nil {
		return nil, storeError("get vehicle", err)
	}
	return v, nil
}

func (s *ComplaintService) notify(c *models.Complaint) {
	if s.notifier != nil {
		s.notifier.BroadcastMessage(ws.MsgTypeComplaintUpdated, c)
	}
}

// titleFromText 取首行作为标题，超长截断
func titleFromText(text string) string {
	line := text
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSpace(line)
	if utf8.RuneCountInString(line) <= maxTitleLength {
		return line
	}
	runes := []rune(line)
	return string(runes[:maxTitleLength-3]) + "..."
}
