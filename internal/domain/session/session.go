// Package session holds the state of one vocal check: live monitoring,
// submission and the resulting report. Interested parties subscribe to
// changes instead of polling shared variables.
package session

import (
	"sync"
	"time"

	model "github.com/okian/songlab/internal/domain/model"
)

// Stage models the vocal-check lifecycle.
type Stage string

const (
	StageIdle       Stage = "idle"
	StageMonitoring Stage = "monitoring"
	StageSubmitted  Stage = "submitted"
	StageScored     Stage = "scored"
	StageFailed     Stage = "failed"
)

// State is a point-in-time view of a session.
type State struct {
	ID        string                `json:"id"`
	Stage     Stage                 `json:"stage"`
	Snapshot  model.QualitySnapshot `json:"snapshot"`
	Report    *model.Report         `json:"report,omitempty"`
	Error     string                `json:"error,omitempty"`
	UpdatedAt time.Time             `json:"updatedAt"`
}

func (s State) clone() State {
	out := s
	out.Snapshot = s.Snapshot.Clone()
	if s.Report != nil {
		r := *s.Report
		r.Axes = append([]model.AxisScore(nil), s.Report.Axes...)
		r.Focus.Keywords = append([]string(nil), s.Report.Focus.Keywords...)
		out.Report = &r
	}
	return out
}

type subscriber struct {
	id uint64
	fn func(State)
}

// Store owns one session's state.
type Store struct {
	mu     sync.Mutex
	state  State
	subs   []subscriber
	nextID uint64
	now    func() time.Time

	// notifyMu keeps notifications in update order.
	notifyMu sync.Mutex
}

// New creates an idle session.
func New(id string) *Store {
	s := &Store{now: time.Now}
	s.state = State{
		ID:        id,
		Stage:     StageIdle,
		Snapshot:  model.NewQualitySnapshot(),
		UpdatedAt: s.now(),
	}
	return s
}

// State returns a copy of the current state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Update applies fn to the state and notifies subscribers with the result.
// Subscribers run on the caller's goroutine, outside the state lock, in
// subscription order. A subscriber must not call Update itself.
func (s *Store) Update(fn func(*State)) State {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	id := s.state.ID
	fn(&s.state)
	s.state.ID = id
	s.state.UpdatedAt = s.now()
	snapshot := s.state.clone()
	subs := append([]subscriber(nil), s.subs...)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.fn(snapshot.clone())
	}
	return snapshot
}

// Subscribe registers fn for future updates. The returned function removes
// the subscription and is safe to call more than once.
func (s *Store) Subscribe(fn func(State)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscriber{id: id, fn: fn})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

// SetSnapshot records a monitor snapshot.
func (s *Store) SetSnapshot(snap model.QualitySnapshot) State {
	return s.Update(func(st *State) {
		st.Snapshot = snap.Clone()
		if st.Stage == StageIdle {
			st.Stage = StageMonitoring
		}
	})
}

// SetReport records a finished report.
func (s *Store) SetReport(r model.Report) State {
	return s.Update(func(st *State) {
		st.Report = &r
		st.Stage = StageScored
		st.Error = ""
	})
}

// Fail moves the session into the failed stage.
func (s *Store) Fail(err error) State {
	return s.Update(func(st *State) {
		st.Stage = StageFailed
		if err != nil {
			st.Error = err.Error()
		}
	})
}
