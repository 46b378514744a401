package service

import (
	"strings"

	"github.com/unclebandit/voicecampaign-backend/internal/model"
)

// NormalizePhone trims the input and makes sure it carries a leading '+'.
// It does not validate or rewrite digits.
func NormalizePhone(raw string) string {
	phone := strings.TrimSpace(raw)
	if phone == "" {
		return ""
	}
	if !strings.HasPrefix(phone, "+") {
		phone = "+" + phone
	}
	return phone
}

// NormalizeRecipients drops entries without a phone and formats the rest.
// Variables are passed through untouched.
func NormalizeRecipients(in []model.RecipientInput) []model.RecipientInput {
	out := make([]model.RecipientInput, 0, len(in))
	for _, r := range in {
		phone := NormalizePhone(r.PhoneNumber)
		if phone == "" {
			continue
		}
		out = append(out, model.RecipientInput{PhoneNumber: phone, Variables: r.Variables})
	}
	return out
}
