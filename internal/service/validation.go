package service

import (
	"strings"
	"time"
	_ "time/tzdata"

	appErrors "github.com/unclebandit/voicecampaign-backend/internal/errors"
	"github.com/unclebandit/voicecampaign-backend/internal/model"
)

const (
	MinAMDTimeout  = 1
	MaxAMDTimeout  = 30
	MinConcurrency = 1
	MaxConcurrency = 100
)

func validateAgents(agents []model.RoutingAgent) error {
	if len(agents) == 0 {
		return appErrors.NewValidation("agents", "at least one routing agent is required")
	}
	for i, a := range agents {
		if strings.TrimSpace(a.AgentID) == "" {
			return appErrors.NewValidation("agents", "agent %d is missing agent_id", i)
		}
		if strings.TrimSpace(a.PhoneNumberID) == "" {
			return appErrors.NewValidation("agents", "agent %d is missing phone_number_id", i)
		}
	}
	return nil
}

// ValidateDispatchOptions checks AMD, concurrency and the optional time window.
func ValidateDispatchOptions(opts model.DispatchOptions) error {
	if opts.AMDTimeout < MinAMDTimeout || opts.AMDTimeout > MaxAMDTimeout {
		return appErrors.NewValidation("amd_timeout", "must be between %d and %d seconds", MinAMDTimeout, MaxAMDTimeout)
	}
	if opts.Concurrency < MinConcurrency || opts.Concurrency > MaxConcurrency {
		return appErrors.NewValidation("concurrency", "must be between %d and %d", MinConcurrency, MaxConcurrency)
	}
	if opts.TimeWindow != nil {
		return ValidateTimeWindow(*opts.TimeWindow)
	}
	return nil
}

// ValidateTimeWindow enforces an all-or-nothing weekly window. A window with
// every field empty counts as absent.
func ValidateTimeWindow(w model.TimeWindow) error {
	start := strings.TrimSpace(w.StartTime)
	end := strings.TrimSpace(w.EndTime)
	tz := strings.TrimSpace(w.Timezone)
	if start == "" && end == "" && tz == "" && w.DaysOfWeek == nil {
		return nil
	}
	if start == "" || end == "" || tz == "" || w.DaysOfWeek == nil {
		return appErrors.NewValidation("time_window", "start_time, end_time, days_of_week and timezone must be provided together")
	}

	startAt, err := time.Parse("15:04", start)
	if err != nil {
		return appErrors.NewValidation("time_window.start_time", "must be HH:MM")
	}
	endAt, err := time.Parse("15:04", end)
	if err != nil {
		return appErrors.NewValidation("time_window.end_time", "must be HH:MM")
	}
	if !startAt.Before(endAt) {
		return appErrors.NewValidation("time_window", "start_time must be before end_time")
	}

	if len(w.DaysOfWeek) == 0 {
		return appErrors.NewValidation("time_window.days_of_week", "at least one day is required")
	}
	for _, d := range w.DaysOfWeek {
		if d < 1 || d > 7 {
			return appErrors.NewValidation("time_window.days_of_week", "day %d out of range 1 (Monday) to 7 (Sunday)", d)
		}
	}

	if _, err := time.LoadLocation(tz); err != nil {
		return appErrors.NewValidation("time_window.timezone", "unknown timezone %q", tz)
	}
	return nil
}
