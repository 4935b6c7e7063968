package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"leadcrm/pkg/domain"
)

// ImportLeads replaces the whole lead collection with the JSON array in
// payload and returns the number of leads imported. Records are not
// validated individually: scalar field values are read as their JSON text
// and a scalar tags value becomes a one-element list. Anything other than a
// JSON array of objects fails
// with *domain.ImportFormatError and leaves the store untouched.
func (s *Service) ImportLeads(ctx context.Context, payload []byte) (int, error) {
	leads, err := decodeLeadArray(payload)
	if err != nil {
		return 0, err
	}
	_, err = s.run(ctx, "import_leads", EntityLead, func(tx domain.Transaction) (string, error) {
		return "", tx.ReplaceLeads(leads)
	})
	if err != nil {
		return 0, err
	}
	return len(leads), nil
}

// ImportLeadsFrom reads r fully and imports it.
func (s *Service) ImportLeadsFrom(ctx context.Context, r io.Reader) (int, error) {
	payload, err := io.ReadAll(r)
	if err != nil {
		return 0, fmt.Errorf("read import: %w", err)
	}
	return s.ImportLeads(ctx, payload)
}

func decodeLeadArray(payload []byte) ([]Lead, error) {
	var top any
	if err := json.Unmarshal(payload, &top); err != nil {
		return nil, &domain.ImportFormatError{Reason: "payload is not valid JSON", Err: err}
	}
	if _, ok := top.([]any); !ok {
		return nil, &domain.ImportFormatError{Reason: "payload is not a JSON array"}
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(payload, &elems); err != nil {
		return nil, &domain.ImportFormatError{Reason: "payload is not a JSON array", Err: err}
	}
	leads := make([]Lead, 0, len(elems))
	for i, elem := range elems {
		var fields map[string]json.RawMessage
		if !isJSONObject(elem) || json.Unmarshal(elem, &fields) != nil {
			return nil, &domain.ImportFormatError{Reason: fmt.Sprintf("element %d is not an object", i)}
		}
		leads = append(leads, Lead{
			ID:     looseString(fields["id"]),
			Name:   looseString(fields["name"]),
			Email:  looseString(fields["email"]),
			Phone:  looseString(fields["phone"]),
			Status: looseString(fields["status"]),
			Source: looseString(fields["source"]),
			Tags:   looseTags(fields["tags"]),
			Notes:  looseString(fields["notes"]),
		})
	}
	return leads, nil
}

func isJSONObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}

// looseString reads a string field as-is. Numbers and booleans keep their
// JSON text; null and absent fields read as "".
func looseString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if raw[0] == '"' && json.Unmarshal(raw, &s) == nil {
		return s
	}
	return string(raw)
}

// looseTags reads an array of tags. A single scalar becomes a one-element list.
func looseTags(raw json.RawMessage) []string {
	raw = bytes.TrimSpace(raw)
	var items []json.RawMessage
	if len(raw) > 0 && raw[0] == '[' && json.Unmarshal(raw, &items) == nil {
		tags := make([]string, 0, len(items))
		for _, item := range items {
			tags = append(tags, looseString(item))
		}
		return tags
	}
	if s := looseString(raw); s != "" {
		return []string{s}
	}
	return []string{}
}

// ExportLeads renders the lead collection as a JSON array indented with two
// spaces.
func (s *Service) ExportLeads() ([]byte, error) {
	leads := s.ListLeads(nil)
	out, err := json.MarshalIndent(leads, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode leads: %w", err)
	}
	return out, nil
}

// ExportLeadsTo writes ExportLeads output to w.
func (s *Service) ExportLeadsTo(w io.Writer) error {
	out, err := s.ExportLeads()
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}
