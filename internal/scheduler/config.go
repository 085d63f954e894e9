package scheduler

import (
	"time"
)

// Config controls scheduler cadence and retention windows.
type Config struct {
	// RunInterval is the tick between sweeps of the frequent jobs.
	RunInterval time.Duration
	// JobTimeout bounds a single job execution.
	JobTimeout time.Duration
	// RelaxationRetention is how long consumed or lapsed cooldown
	// bypasses are kept before pruning.
	RelaxationRetention time.Duration
	// PINReminderWindow is how far ahead of PIN expiry staff are
	// reminded to get a fresh one.
	PINReminderWindow time.Duration
	// PayrollReminderDay is the weekday the previous week's payroll
	// summary email goes out.
	PayrollReminderDay time.Weekday
}

func DefaultConfig() Config {
	return Config{
		RunInterval:         time.Minute,
		JobTimeout:          30 * time.Second,
		RelaxationRetention: 30 * 24 * time.Hour,
		PINReminderWindow:   7 * 24 * time.Hour,
		PayrollReminderDay:  time.Monday,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	if c.RelaxationRetention <= 0 {
		c.RelaxationRetention = defaults.RelaxationRetention
	}
	if c.PINReminderWindow <= 0 {
		c.PINReminderWindow = defaults.PINReminderWindow
	}
	return c
}
