package models

import (
	"encoding/json"
	"testing"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name     string
		from     TripStatus
		to       TripStatus
		expected bool
	}{
		{"pending to assigned", TripPending, TripAssigned, true},
		{"pending to cancelled", TripPending, TripCancelled, true},
		{"assigned to in progress", TripAssigned, TripInProgress, true},
		{"in progress to completed", TripInProgress, TripCompleted, true},

		{"pending to in progress", TripPending, TripInProgress, false},
		{"pending to completed", TripPending, TripCompleted, false},
		{"assigned to completed", TripAssigned, TripCompleted, false},
		{"assigned to cancelled", TripAssigned, TripCancelled, false},
		{"assigned to pending", TripAssigned, TripPending, false},
		{"in progress to cancelled", TripInProgress, TripCancelled, false},
		{"in progress to assigned", TripInProgress, TripAssigned, false},
		{"completed to anything", TripCompleted, TripPending, false},
		{"cancelled to anything", TripCancelled, TripAssigned, false},
		{"unknown status", "UNKNOWN", TripAssigned, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CanTransition(tt.from, tt.to)
			if result != tt.expected {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, result, tt.expected)
			}
		})
	}
}

func TestIsTerminalStatus(t *testing.T) {
	tests := []struct {
		name     string
		status   TripStatus
		expected bool
	}{
		{"completed is terminal", TripCompleted, true},
		{"cancelled is terminal", TripCancelled, true},
		{"pending is not terminal", TripPending, false},
		{"assigned is not terminal", TripAssigned, false},
		{"in progress is not terminal", TripInProgress, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsTerminalStatus(tt.status)
			if result != tt.expected {
				t.Errorf("IsTerminalStatus(%s) = %v, want %v", tt.status, result, tt.expected)
			}
		})
	}
}

func TestTrip_OTPNotSerialized(t *testing.T) {
	otp := "123456"
	trip := Trip{
		Status:  TripAssigned,
		OTPCode: &otp,
	}

	data, err := json.Marshal(trip)
	if err != nil {
		t.Fatalf("Failed to marshal trip: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal trip JSON: %v", err)
	}

	if _, present := decoded["otp_code"]; present {
		t.Errorf("Expected otp_code to be excluded from JSON, got %s", data)
	}
}
