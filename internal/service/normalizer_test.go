package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/unclebandit/voicecampaign-backend/internal/model"
	"github.com/unclebandit/voicecampaign-backend/internal/service"
)

func TestNormalizePhone(t *testing.T) {
	cases := map[string]string{
		"34600000001":     "+34600000001",
		"+34600000002":    "+34600000002",
		"  600000003  ":   "+600000003",
		"":                "",
		"   ":             "",
		"+1 (555) 010-99": "+1 (555) 010-99",
	}
	for in, want := range cases {
		assert.Equal(t, want, service.NormalizePhone(in), "input %q", in)
	}
}

func TestNormalizeRecipientsDropsEmptyAndKeepsVariables(t *testing.T) {
	vars := map[string]string{"name": "Lucía"}
	out := service.NormalizeRecipients([]model.RecipientInput{
		{PhoneNumber: "34600000001", Variables: vars},
		{PhoneNumber: ""},
		{PhoneNumber: "  "},
		{PhoneNumber: "+34600000002"},
	})

	assert.Equal(t, []model.RecipientInput{
		{PhoneNumber: "+34600000001", Variables: vars},
		{PhoneNumber: "+34600000002"},
	}, out)
}
