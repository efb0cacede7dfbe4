package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestCredentialsValidation(t *testing.T) {
	tests := []struct {
		name    string
		creds   Credentials
		wantErr bool
	}{
		{
			name:    "valid credentials",
			creds:   Credentials{Token: "tok", User: User{ID: "1", Username: "alice"}},
			wantErr: false,
		},
		{
			name:    "missing token",
			creds:   Credentials{User: User{Username: "alice"}},
			wantErr: true,
		},
		{
			name:    "missing user",
			creds:   Credentials{Token: "tok"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.creds.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestIDAcceptsNumbersAndStrings(t *testing.T) {
	var conv Conversation
	if err := json.Unmarshal([]byte(`{"id": 42, "title": "t"}`), &conv); err != nil {
		t.Fatalf("unmarshal numeric id: %v", err)
	}
	if conv.ID != "42" {
		t.Errorf("ID = %q, want 42", conv.ID)
	}

	if err := json.Unmarshal([]byte(`{"id": "abc-1"}`), &conv); err != nil {
		t.Fatalf("unmarshal string id: %v", err)
	}
	if conv.ID != "abc-1" {
		t.Errorf("ID = %q, want abc-1", conv.ID)
	}
}

func TestTimestampLayouts(t *testing.T) {
	inputs := []string{
		`"2025-03-01T10:20:30Z"`,
		`"2025-03-01T10:20:30.123456"`,
		`"2025-03-01 10:20:30"`,
	}
	for _, in := range inputs {
		var ts Timestamp
		if err := json.Unmarshal([]byte(in), &ts); err != nil {
			t.Errorf("unmarshal %s: %v", in, err)
			continue
		}
		if ts.Year() != 2025 || ts.Month() != time.March || ts.Hour() != 10 {
			t.Errorf("unmarshal %s: got %v", in, ts.Time)
		}
	}

	var ts Timestamp
	if err := json.Unmarshal([]byte(`null`), &ts); err != nil || !ts.IsZero() {
		t.Errorf("null should decode to zero time, got %v (%v)", ts.Time, err)
	}
	if err := json.Unmarshal([]byte(`"yesterday-ish"`), &ts); err == nil {
		t.Error("expected error for garbage timestamp")
	}
}

func TestChatModeValid(t *testing.T) {
	if !ModeGeneral.Valid() || !ModeRAG.Valid() {
		t.Error("known modes should be valid")
	}
	if ChatMode("turbo").Valid() {
		t.Error("unknown mode should be invalid")
	}
}
