package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/langchou/fleetdash/internal/models"
	"github.com/langchou/fleetdash/internal/repository"
)

type memVehicles struct {
	mu     sync.Mutex
	nextID int64
	items  []*models.Vehicle
	err    error
}

func (m *memVehicles) Create(_ context.Context, v *models.Vehicle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.items {
		if existing.ChassisNumber == v.ChassisNumber {
			return repository.ErrDuplicate
		}
	}
	m.nextID++
	v.ID = m.nextID
	cp := *v
	m.items = append(m.items, &cp)
	return nil
}

func (m *memVehicles) GetByID(_ context.Context, id int64) (*models.Vehicle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.items {
		if v.ID == id {
			cp := *v
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memVehicles) GetByChassis(_ context.Context, chassis string) (*models.Vehicle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.items {
		if v.ChassisNumber == chassis {
			cp := *v
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memVehicles) List(context.Context) ([]*models.Vehicle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]*models.Vehicle, 0, len(m.items))
	for _, v := range m.items {
		cp := *v
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memVehicles) Update(_ context.Context, v *models.Vehicle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.items {
		if existing.ID == v.ID {
			cp := *v
			m.items[i] = &cp
			return nil
		}
	}
	return repository.ErrNotFound
}

type memReadings struct {
	mu     sync.Mutex
	nextID int64
	items  []*models.OdometerReading
}

func (m *memReadings) Create(_ context.Context, r *models.OdometerReading) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	r.ID = m.nextID
	r.CreatedAt = time.Now()
	cp := *r
	m.items = append(m.items, &cp)
	return nil
}

func (m *memReadings) List(context.Context) ([]*models.OdometerReading, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return newestFirst(m.items, func(*models.OdometerReading) bool { return true }), nil
}

func (m *memReadings) ListByVehicleID(_ context.Context, vehicleID int64) ([]*models.OdometerReading, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return newestFirst(m.items, func(r *models.OdometerReading) bool { return r.VehicleID == vehicleID }), nil
}

func newestFirst(items []*models.OdometerReading, keep func(*models.OdometerReading) bool) []*models.OdometerReading {
	out := make([]*models.OdometerReading, 0, len(items))
	for _, r := range items {
		if keep(r) {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

type memComplaints struct {
	mu     sync.Mutex
	nextID int64
	items  []*models.Complaint
}

func (m *memComplaints) Create(_ context.Context, c *models.Complaint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	c.ID = m.nextID
	cp := *c
	m.items = append(m.items, &cp)
	return nil
}

func (m *memComplaints) GetByID(_ context.Context, id int64) (*models.Complaint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.items {
		if c.ID == id {
			cp := *c
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memComplaints) List(_ context.Context, status string) ([]*models.Complaint, error) {
	return m.filter(func(c *models.Complaint) bool { return status == "" || c.Status == status }), nil
}

func (m *memComplaints) ListByVehicleID(_ context.Context, vehicleID int64) ([]*models.Complaint, error) {
	return m.filter(func(c *models.Complaint) bool { return c.VehicleID == vehicleID }), nil
}

func (m *memComplaints) UpdateStatus(_ context.Context, id int64, from, to string, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.items {
		if c.ID == id {
			if c.Status != from {
				return repository.ErrStale
			}
			c.Status = to
			c.UpdatedAt = updatedAt
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *memComplaints) filter(keep func(*models.Complaint) bool) []*models.Complaint {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Complaint, 0, len(m.items))
	for i := len(m.items) - 1; i >= 0; i-- {
		if keep(m.items[i]) {
			cp := *m.items[i]
			out = append(out, &cp)
		}
	}
	return out
}

type memDocuments struct {
	mu     sync.Mutex
	nextID int64
	items  []*models.Document
}

func (m *memDocuments) Create(_ context.Context, d *models.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	d.ID = m.nextID
	cp := *d
	m.items = append(m.items, &cp)
	return nil
}

func (m *memDocuments) GetByID(_ context.Context, id int64) (*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.items {
		if d.ID == id {
			cp := *d
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memDocuments) List(_ context.Context, docType string, vehicleID *int64) ([]*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Document, 0, len(m.items))
	for i := len(m.items) - 1; i >= 0; i-- {
		d := m.items[i]
		if docType != "" && d.Type != docType {
			continue
		}
		if vehicleID != nil && (d.VehicleID == nil || *d.VehicleID != *vehicleID) {
			continue
		}
		cp := *d
		cp.Content = nil
		out = append(out, &cp)
	}
	return out, nil
}

type memUsers struct {
	mu       sync.Mutex
	nextID   int64
	users    []*models.User
	sessions map[string]*models.Session
}

func newMemUsers() *memUsers {
	return &memUsers{sessions: make(map[string]*models.Session)}
}

func (m *memUsers) Create(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Username == u.Username {
			return repository.ErrDuplicate
		}
	}
	m.nextID++
	u.ID = m.nextID
	cp := *u
	m.users = append(m.users, &cp)
	return nil
}

func (m *memUsers) GetByUsername(_ context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memUsers) GetByID(_ context.Context, id int64) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memUsers) Count(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.users)), nil
}

func (m *memUsers) CreateSession(_ context.Context, s *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.sessions[s.Token] = &cp
	return nil
}

func (m *memUsers) GetSession(_ context.Context, token string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[token]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memUsers) DeleteSession(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
	return nil
}

func (m *memUsers) DeleteExpiredSessions(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for token, s := range m.sessions {
		if s.Expired(now) {
			delete(m.sessions, token)
			n++
		}
	}
	return n, nil
}

type recordedMessage struct {
	Type string
	Data interface{}
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []recordedMessage
}

func (n *recordingNotifier) BroadcastMessage(msgType string, data interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, recordedMessage{Type: msgType, Data: data})
}

func (n *recordingNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.messages))
	for _, m := range n.messages {
		out = append(out, m.Type)
	}
	return out
}

func strPtr(s string) *string { return &s }

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
