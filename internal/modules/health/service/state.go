package service

import (
	"sync/atomic"
	"time"
)

// State: что видно снаружи о live-цикле.
type State struct {
	ready     atomic.Bool
	startedAt time.Time

	cycles        atomic.Int64
	lastCycleUnix atomic.Int64 // unix seconds
	lastFailed    atomic.Int64 // символов упало в последнем цикле
	totalFailed   atomic.Int64
}

func NewState() *State {
	s := &State{startedAt: time.Now()}
	s.ready.Store(false)
	return s
}

func (s *State) Ready() bool { return s.ready.Load() }

// MarkCycle фиксирует завершённый цикл; после первого сервис считается готовым.
func (s *State) MarkCycle(t time.Time, failed int) {
	s.cycles.Add(1)
	s.lastCycleUnix.Store(t.Unix())
	s.lastFailed.Store(int64(failed))
	s.totalFailed.Add(int64(failed))
	s.ready.Store(true)
}

func (s *State) Cycles() int64      { return s.cycles.Load() }
func (s *State) LastFailed() int64  { return s.lastFailed.Load() }
func (s *State) TotalFailed() int64 { return s.totalFailed.Load() }

func (s *State) LastCycle() time.Time {
	u := s.lastCycleUnix.Load()
	if u == 0 {
		return time.Time{}
	}
	return time.Unix(u, 0)
}

func (s *State) Uptime() time.Duration { return time.Since(s.startedAt) }
