package service

import "time"

// Timer is a scheduled call that can be cancelled
type Timer interface {
	Stop() bool
}

// Scheduler runs deferred phase transitions
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// RealScheduler schedules on the runtime timer
type RealScheduler struct{}

func (RealScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
