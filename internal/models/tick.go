package models

import "time"

// Tick records one occurrence of a track.
// When HasTimeInfo is false only the date part of Time is meaningful.
type Tick struct {
	ID          int64
	TrackID     int64
	Time        time.Time
	HasTimeInfo bool
}

// NewTick returns an unsaved tick for trackID at the given time.
func NewTick(trackID int64, at time.Time) *Tick {
	return &Tick{
		TrackID:     trackID,
		Time:        at,
		HasTimeInfo: true,
	}
}

// NewDayTick returns an unsaved tick that only records the calendar day.
func NewDayTick(trackID int64, year int, month time.Month, day int) *Tick {
	return &Tick{
		TrackID: trackID,
		Time:    time.Date(year, month, day, 0, 0, 0, 0, time.Local),
	}
}
