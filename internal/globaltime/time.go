// Package globaltime is the process clock. Tests freeze it with SetMockTime.
package globaltime

import (
	"sync/atomic"
	"time"
)

type nowFunc func() time.Time

var current atomic.Pointer[nowFunc]

func init() {
	ResetTime()
}

func Now() time.Time {
	return (*current.Load())()
}

func UTC() time.Time {
	return Now().UTC()
}

// DayStart returns midnight UTC of the current day.
func DayStart() time.Time {
	return DayStartOf(Now())
}

// DayStartOf returns midnight UTC of the day containing t.
func DayStartOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

func SetMockTime(t time.Time) {
	fn := nowFunc(func() time.Time { return t })
	current.Store(&fn)
}

func ResetTime() {
	fn := nowFunc(time.Now)
	current.Store(&fn)
}
