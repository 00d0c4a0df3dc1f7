package state

import (
	"context"
	"errors"
	"fmt"

	"github.com/looplab/fsm"

	"github.com/langchou/fleetdash/internal/models"
)

// 投诉事件
const (
	EventClear  = "clear"
	EventReopen = "reopen"
)

// ErrInvalidTransition 当前状态不允许该事件
var ErrInvalidTransition = errors.New("invalid complaint transition")

// ComplaintMachine 投诉状态机
// open --clear--> cleared --reopen--> open
type ComplaintMachine struct {
	complaintID int64
	fsm         *fsm.FSM
	onChange    func(complaintID int64, from, to string)
}

// NewComplaintMachine 以当前状态创建状态机，未知状态按 open 处理
func NewComplaintMachine(complaintID int64, current string, onChange func(complaintID int64, from, to string)) *ComplaintMachine {
	if current != models.ComplaintCleared {
		current = models.ComplaintOpen
	}

	m := &ComplaintMachine{
		complaintID: complaintID,
		onChange:    onChange,
	}

	m.fsm = fsm.NewFSM(
		current,
		fsm.Events{
			{Name: EventClear, Src: []string{models.ComplaintOpen}, Dst: models.ComplaintCleared},
			{Name: EventReopen, Src: []string{models.ComplaintCleared}, Dst: models.ComplaintOpen},
		},
		fsm.Callbacks{
			"after_event": func(ctx context.Context, e *fsm.Event) {
				if m.onChange != nil && e.Src != e.Dst {
					m.onChange(m.complaintID, e.Src, e.Dst)
				}
			},
		},
	)

	return m
}

// Current 当前状态
func (m *ComplaintMachine) Current() string {
	return m.fsm.Current()
}

// Can 是否可以触发事件
func (m *ComplaintMachine) Can(event string) bool {
	return m.fsm.Can(event)
}

// Trigger 触发事件并返回新状态
func (m *ComplaintMachine) Trigger(ctx context.Context, event string) (string, error) {
	if err := m.fsm.Event(ctx, event); err != nil {
		var invalid fsm.InvalidEventError
		var unknown fsm.UnknownEventError
		if errors.As(err, &invalid) || errors.As(err, &unknown) {
			return m.fsm.Current(), fmt.Errorf("%w: %s from %s", ErrInvalidTransition, event, m.fsm.Current())
		}
		return m.fsm.Current(), fmt.Errorf("trigger event %s: %w", event, err)
	}
	return m.fsm.Current(), nil
}
