package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/langchou/fleetdash/internal/models"
	"github.com/langchou/fleetdash/internal/odometer"
	"github.com/langchou/fleetdash/pkg/ws"
)

const dateLayout = "2006-01-02"

// VehicleInput 车辆录入 / 更新参数
type VehicleInput struct {
	ChassisNumber      string   `json:"chassis_number" validate:"required,max=64"`
	RegistrationNumber *string  `json:"registration_number" validate:"omitempty,max=32"`
	Depot              *string  `json:"depot" validate:"omitempty,max=100"`
	MotorNumber        *string  `json:"motor_number" validate:"omitempty,max=64"`
	Model              *string  `json:"model" validate:"omitempty,max=100"`
	Colour             *string  `json:"colour" validate:"omitempty,max=50"`
	SeatingCapacity    *int     `json:"seating_capacity" validate:"omitempty,min=1,max=200"`
	MotorPowerKw       *float64 `json:"motor_power_kw" validate:"omitempty,gt=0"`
	DispatchDate       *string  `json:"dispatch_date" validate:"omitempty,datetime=2006-01-02"`
	RegistrationDate   *string  `json:"registration_date" validate:"omitempty,datetime=2006-01-02"`
	ManufactureDate    *string  `json:"manufacture_date" validate:"omitempty,datetime=2006-01-02"`
}

// ReadingInput 里程读数录入参数
type ReadingInput struct {
	ChassisNumber string   `json:"chassis_number" validate:"required"`
	Reading       *float64 `json:"reading" validate:"required,gte=0"`
	Date          string   `json:"date"` // YYYY-MM-DD 或 RFC3339，为空时取当天
	Notes         string   `json:"notes" validate:"max=1000"`
}

// Summary 里程汇总结果
type Summary struct {
	Period      odometer.Period         `json:"period"`
	Depots      []odometer.DepotSummary `json:"depots"`
	Totals      odometer.FleetTotals    `json:"totals"`
	GeneratedAt time.Time               `json:"generated_at"`
}

// ImportError 批量导入的单行错误
type ImportError struct {
	Row           int    `json:"row"`
	ChassisNumber string `json:"chassis_number,omitempty"`
	Error         string `json:"error"`
}

// ImportResult 批量导入结果
type ImportResult struct {
	Created int           `json:"created"`
	Failed  int           `json:"failed"`
	Errors  []ImportError `json:"errors"`
}

// FleetService 车辆与里程服务
type FleetService struct {
	logger     *zap.Logger
	vehicles   VehicleStore
	readings   ReadingStore
	aggregator *odometer.Aggregator
	notifier   Notifier
	validate   *validator.Validate
	now        func() time.Time
}

// NewFleetService 创建车辆服务
func NewFleetService(logger *zap.Logger, vehicles VehicleStore, readings ReadingStore, notifier Notifier) *FleetService {
	return &FleetService{
		logger:     logger,
		vehicles:   vehicles,
		readings:   readings,
		aggregator: odometer.NewAggregator(logger.Named("odometer")),
		notifier:   notifier,
		validate:   newValidator(),
		now:        time.Now,
	}
}

// ListVehicles 获取车辆列表
func (s *FleetService) ListVehicles(ctx context.Context) ([]*models.Vehicle, error) {
	vehicles, err := s.vehicles.List(ctx)
	if err != nil {
		return nil, storeError("list vehicles", err)
	}
	return vehicles, nil
}

// GetVehicle 通过底盘号获取车辆
func (s *FleetService) GetVehicle(ctx context.Context, chassis string) (*models.Vehicle, error) {
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

// AddVehicle 新增车辆
func (s *FleetService) AddVehicle(ctx context.Context, input VehicleInput) (*models.Vehicle, error) {
	input.ChassisNumber = strings.TrimSpace(input.ChassisNumber)
	if err := s.validate.Struct(input); err != nil {
		return nil, validationError(err)
	}

	v := &models.Vehicle{ChassisNumber: input.ChassisNumber}
	if err := applyVehicleInput(v, input); err != nil {
		return nil, err
	}

	if err := s.vehicles.Create(ctx, v); err != nil {
		return nil, storeError("create vehicle", err)
	}

	s.logger.Info("Vehicle added", zap.Int64("vehicle_id", v.ID), zap.String("chassis", v.ChassisNumber))
	s.notify(ws.MsgTypeVehicleUpdated, v)
	return v, nil
}

// UpdateVehicle 更新车辆档案，底盘号不可修改
func (s *FleetService) UpdateVehicle(ctx context.Context, chassis string, input VehicleInput) (*models.Vehicle, error) {
	v, err := s.GetVehicle(ctx, chassis)
	if err != nil {
		return nil, err
	}

	input.ChassisNumber = v.ChassisNumber
	if err := s.validate.Struct(input); err != nil {
		return nil, validationError(err)
	}
	if err := applyVehicleInput(v, input); err != nil {
		return nil, err
	}

	if err := s.vehicles.Update(ctx, v); err != nil {
		return nil, storeError("update vehicle", err)
	}

	s.notify(ws.MsgTypeVehicleUpdated, v)
	return v, nil
}

// ImportVehicles 从 CSV 批量导入车辆，单行失败不影响其余行
//
// 首行为表头，至少包含 chassis_number 列；其余列名与 VehicleInput 的 json 名一致。
func (s *FleetService) ImportVehicles(ctx context.Context, r io.Reader) (*ImportResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty csv", ErrInvalidInput)
		}
		return nil, fmt.Errorf("%w: read csv header: %v", ErrInvalidInput, err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	if _, ok := columns["chassis_number"]; !ok {
		return nil, fmt.Errorf("%w: csv header must contain chassis_number", ErrInvalidInput)
	}

	result := &ImportResult{Errors: []ImportError{}}
	for row := 2; ; row++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, ImportError{Row: row, Error: err.Error()})
			continue
		}

		input, err := vehicleInputFromRecord(columns, record)
		if err == nil {
			_, err = s.AddVehicle(ctx, input)
		}
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, ImportError{Row: row, ChassisNumber: input.ChassisNumber, Error: err.Error()})
			continue
		}
		result.Created++
	}

	s.logger.Info("Vehicle import finished", zap.Int("created", result.Created), zap.Int("failed", result.Failed))
	return result, nil
}

// AddReading 录入里程读数
func (s *FleetService) AddReading(ctx context.Context, input ReadingInput, user *models.User) (*models.OdometerReading, error) {
	input.ChassisNumber = strings.TrimSpace(input.ChassisNumber)
	if err := s.validate.Struct(input); err != nil {
		return nil, validationError(err)
	}

	day, err := ParseReadingDate(input.Date, s.now())
	if err != nil {
		return nil, err
	}

	vehicle, err := s.GetVehicle(ctx, input.ChassisNumber)
	if err != nil {
		return nil, err
	}

	reading := &models.OdometerReading{
		VehicleID:          vehicle.ID,
		Reading:            *input.Reading,
		Date:               day,
		Notes:              strings.TrimSpace(input.Notes),
		ChassisNumber:      vehicle.ChassisNumber,
		RegistrationNumber: vehicle.RegistrationNumber,
	}
	if user != nil {
		reading.UserID = &user.ID
	}

	if err := s.readings.Create(ctx, reading); err != nil {
		return nil, storeError("create odometer reading", err)
	}

	s.logger.Info("Odometer reading added",
		zap.Int64("vehicle_id", vehicle.ID),
		zap.Float64("reading", reading.Reading),
		zap.String("date", day.Format(dateLayout)),
	)
	s.notify(ws.MsgTypeReadingAdded, reading)
	return reading, nil
}

// ListReadings 获取全部读数（最新在前）
func (s *FleetService) ListReadings(ctx context.Context) ([]*models.OdometerReading, error) {
	readings, err := s.readings.List(ctx)
	if err != nil {
		return nil, storeError("list odometer readings", err)
	}
	return readings, nil
}

// ListReadingsByChassis 获取单车读数（最新在前）
func (s *FleetService) ListReadingsByChassis(ctx context.Context, chassis string) ([]*models.OdometerReading, error) {
	vehicle, err := s.GetVehicle(ctx, chassis)
	if err != nil {
		return nil, err
	}
	readings, err := s.readings.ListByVehicleID(ctx, vehicle.ID)
	if err != nil {
		return nil, storeError("list odometer readings by vehicle", err)
	}
	return readings, nil
}

// Summary 按车场汇总最新里程，每次请求重新计算
func (s *FleetService) Summary(ctx context.Context, period odometer.Period) (*Summary, error) {
	var (
		vehicles []*models.Vehicle
		readings []*models.OdometerReading
	)

	// 并发拉取车辆与读数
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := s.vehicles.List(gctx)
		if err != nil {
			return storeError("list vehicles", err)
		}
		vehicles = v
		return nil
	})
	g.Go(func() error {
		r, err := s.readings.List(gctx)
		if err != nil {
			return storeError("list odometer readings", err)
		}
		readings = r
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	now := s.now()
	depots := s.aggregator.Summarize(vehicles, readings)
	if period != odometer.PeriodAll {
		depots = odometer.FilterByPeriod(depots, period, now)
	}

	return &Summary{
		Period:      period,
		Depots:      depots,
		Totals:      odometer.Totals(depots),
		GeneratedAt: now,
	}, nil
}

func (s *FleetService) notify(msgType string, data interface{}) {
	if s.notifier != nil {
		s.notifier.BroadcastMessage(msgType, data)
	}
}

// ParseReadingDate 解析读数日期，只保留日期部分；为空时取 now 所在日期
func ParseReadingDate(value string, now time.Time) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	if t, err := time.Parse(dateLayout, value); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	return time.Time{}, fmt.Errorf("%w: date %q must be YYYY-MM-DD or RFC3339", ErrInvalidInput, value)
}

func applyVehicleInput(v *models.Vehicle, input VehicleInput) error {
	v.RegistrationNumber = trimmed(input.RegistrationNumber)
	v.Depot = trimmed(input.Depot)
	v.MotorNumber = trimmed(input.MotorNumber)
	v.Model = trimmed(input.Model)
	v.Colour = trimmed(input.Colour)
	v.SeatingCapacity = input.SeatingCapacity
	v.MotorPowerKw = input.MotorPowerKw

	var err error
	if v.DispatchDate, err = parseOptionalDate(input.DispatchDate); err != nil {
		return err
	}
	if v.RegistrationDate, err = parseOptionalDate(input.RegistrationDate); err != nil {
		return err
	}
	if v.ManufactureDate, err = parseOptionalDate(input.ManufactureDate); err != nil {
		return err
	}
	return nil
}

func vehicleInputFromRecord(columns map[string]int, record []string) (VehicleInput, error) {
	get := func(name string) *string {
		i, ok := columns[name]
		if !ok || i >= len(record) {
			return nil
		}
		return trimmed(&record[i])
	}

	input := VehicleInput{
		RegistrationNumber: get("registration_number"),
		Depot:              get("depot"),
		MotorNumber:        get("motor_number"),
		Model:              get("model"),
		Colour:             get("colour"),
		DispatchDate:       get("dispatch_date"),
		RegistrationDate:   get("registration_date"),
		ManufactureDate:    get("manufacture_date"),
	}
	if chassis := get("chassis_number"); chassis != nil {
		input.ChassisNumber = *chassis
	}

	if raw := get("seating_capacity"); raw != nil {
		n, err := strconv.Atoi(*raw)
		if err != nil {
			return input, fmt.Errorf("%w: seating_capacity %q is not a number", ErrInvalidInput, *raw)
		}
		input.SeatingCapacity = &n
	}
	if raw := get("motor_power_kw"); raw != nil {
		f, err := strconv.ParseFloat(*raw, 64)
		if err != nil {
			return input, fmt.Errorf("%w: motor_power_kw %q is not a number", ErrInvalidInput, *raw)
		}
		input.MotorPowerKw = &f
	}

	return input, nil
}

func parseOptionalDate(value *string) (*time.Time, error) {
	if value == nil {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, *value)
	if err != nil {
		return nil, fmt.Errorf("%w: date %q must be YYYY-MM-DD", ErrInvalidInput, *value)
	}
	return &t, nil
}

// trimmed 去除首尾空白，空字符串视为未设置
func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
