package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/langchou/fleetdash/internal/models"
	"github.com/langchou/fleetdash/internal/repository"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrTooLarge     = errors.New("payload too large")
)

// VehicleStore 车辆存储
type VehicleStore interface {
	Create(ctx context.Context, v *models.Vehicle) error
	GetByID(ctx context.Context, id int64) (*models.Vehicle, error)
	GetByChassis(ctx context.Context, chassis string) (*models.Vehicle, error)
	List(ctx context.Context) ([]*models.Vehicle, error)
	Update(ctx context.Context, v *models.Vehicle) error
}

// ReadingStore 里程读数存储（只追加）
type ReadingStore interface {
	Create(ctx context.Context, r *models.OdometerReading) error
	List(ctx context.Context) ([]*models.OdometerReading, error)
	ListByVehicleID(ctx context.Context, vehicleID int64) ([]*models.OdometerReading, error)
}

// ComplaintStore 投诉存储
type ComplaintStore interface {
	Create(ctx context.Context, c *models.Complaint) error
	GetByID(ctx context.Context, id int64) (*models.Complaint, error)
	List(ctx context.Context, status string) ([]*models.Complaint, error)
	ListByVehicleID(ctx context.Context, vehicleID int64) ([]*models.Complaint, error)
	UpdateStatus(ctx context.Context, id int64, from, to string, updatedAt time.Time) error
}

// DocumentStore 文档存储
type DocumentStore interface {
	Create(ctx context.Context, d *models.Document) error
	GetByID(ctx context.Context, id int64) (*models.Document, error)
	List(ctx context.Context, docType string, vehicleID *int64) ([]*models.Document, error)
}

// UserStore 用户与会话存储
type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	Count(ctx context.Context) (int64, error)
	CreateSession(ctx context.Context, s *models.Session) error
	GetSession(ctx context.Context, token string) (*models.Session, error)
	DeleteSession(ctx context.Context, token string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// Notifier 实时推送（WebSocket Hub）
type Notifier interface {
	BroadcastMessage(msgType string, data interface{})
}

// storeError 将仓库错误转换为服务错误
func storeError(op string, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case errors.Is(err, repository.ErrDuplicate), errors.Is(err, repository.ErrStale):
		return fmt.Errorf("%s: %w", op, ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}

// validationError 将校验错误整理为可读信息
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(msgs, "; "))
}

// newValidator 使用 json 标签作为字段名
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}
