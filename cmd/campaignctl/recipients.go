package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/unclebandit/voicecampaign-backend/internal/model"
)

var phoneColumns = []string{"phone_number", "phone", "number"}

// readRecipientsCSV expects a header row with a phone column. Every other
// column becomes a per-recipient variable named after its header.
func readRecipientsCSV(r io.Reader) ([]model.RecipientInput, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("csv is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	phoneIdx := -1
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		header[i] = h
		for _, candidate := range phoneColumns {
			if h == candidate && phoneIdx == -1 {
				phoneIdx = i
			}
		}
	}
	if phoneIdx == -1 {
		return nil, fmt.Errorf("csv header needs one of %s", strings.Join(phoneColumns, ", "))
	}

	var out []model.RecipientInput
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}
		if phoneIdx >= len(record) {
			continue
		}
		rec := model.RecipientInput{PhoneNumber: strings.TrimSpace(record[phoneIdx])}
		for i, value := range record {
			if i == phoneIdx || i >= len(header) || header[i] == "" {
				continue
			}
			if rec.Variables == nil {
				rec.Variables = map[string]string{}
			}
			rec.Variables[header[i]] = strings.TrimSpace(value)
		}
		out = append(out, rec)
	}
	return out, nil
}
