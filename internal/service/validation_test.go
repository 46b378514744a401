package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	appErrors "github.com/unclebandit/voicecampaign-backend/internal/errors"
	"github.com/unclebandit/voicecampaign-backend/internal/model"
	"github.com/unclebandit/voicecampaign-backend/internal/service"
)

func window(start, end string, days []int) *model.TimeWindow {
	return &model.TimeWindow{StartTime: start, EndTime: end, DaysOfWeek: days, Timezone: "America/Lima"}
}

func TestValidateDispatchOptions(t *testing.T) {
	tests := []struct {
		name    string
		opts    model.DispatchOptions
		wantErr bool
	}{
		{"amd timeout 0", model.DispatchOptions{AMDTimeout: 0, Concurrency: 10}, true},
		{"amd timeout 31", model.DispatchOptions{AMDTimeout: 31, Concurrency: 10}, true},
		{"amd timeout 1", model.DispatchOptions{AMDTimeout: 1, Concurrency: 10}, false},
		{"amd timeout 30", model.DispatchOptions{AMDTimeout: 30, Concurrency: 10}, false},
		{"concurrency 0", model.DispatchOptions{AMDTimeout: 10, Concurrency: 0}, true},
		{"concurrency 101", model.DispatchOptions{AMDTimeout: 10, Concurrency: 101}, true},
		{"concurrency 1", model.DispatchOptions{AMDTimeout: 10, Concurrency: 1}, false},
		{"concurrency 100", model.DispatchOptions{AMDTimeout: 10, Concurrency: 100}, false},
		{"window start equals end", model.DispatchOptions{AMDTimeout: 10, Concurrency: 5, TimeWindow: window("09:00", "09:00", []int{1})}, true},
		{"window start after end", model.DispatchOptions{AMDTimeout: 10, Concurrency: 5, TimeWindow: window("18:00", "09:00", []int{1})}, true},
		{"window no days", model.DispatchOptions{AMDTimeout: 10, Concurrency: 5, TimeWindow: window("09:00", "18:00", []int{})}, true},
		{"window day 0", model.DispatchOptions{AMDTimeout: 10, Concurrency: 5, TimeWindow: window("09:00", "18:00", []int{0})}, true},
		{"window day 8", model.DispatchOptions{AMDTimeout: 10, Concurrency: 5, TimeWindow: window("09:00", "18:00", []int{8})}, true},
		{"window full week", model.DispatchOptions{AMDTimeout: 10, Concurrency: 5, TimeWindow: window("09:00", "18:00", []int{1, 2, 3, 4, 5, 6, 7})}, false},
		{"window missing timezone", model.DispatchOptions{AMDTimeout: 10, Concurrency: 5, TimeWindow: &model.TimeWindow{StartTime: "09:00", EndTime: "18:00", DaysOfWeek: []int{1}}}, true},
		{"window missing days", model.DispatchOptions{AMDTimeout: 10, Concurrency: 5, TimeWindow: &model.TimeWindow{StartTime: "09:00", EndTime: "18:00", Timezone: "UTC"}}, true},
		{"window bad clock", model.DispatchOptions{AMDTimeout: 10, Concurrency: 5, TimeWindow: window("9am", "18:00", []int{1})}, true},
		{"window unknown timezone", model.DispatchOptions{AMDTimeout: 10, Concurrency: 5, TimeWindow: &model.TimeWindow{StartTime: "09:00", EndTime: "18:00", DaysOfWeek: []int{1}, Timezone: "Mars/Olympus"}}, true},
		{"empty window is absent", model.DispatchOptions{AMDTimeout: 10, Concurrency: 5, TimeWindow: &model.TimeWindow{}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := service.ValidateDispatchOptions(tt.opts)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var verr *appErrors.ValidationError
			assert.ErrorAs(t, err, &verr)
		})
	}
}
