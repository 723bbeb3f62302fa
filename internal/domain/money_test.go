package domain

import (
	"errors"
	"testing"
)

func TestParsePaise(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr bool
	}{
		{name: "whole amount", input: "1000", want: 100000},
		{name: "two decimals", input: "250.50", want: 25050},
		{name: "one decimal", input: "0.5", want: 50},
		{name: "smallest unit", input: "0.01", want: 1},
		{name: "zero rejected", input: "0", wantErr: true},
		{name: "negative rejected", input: "-5", wantErr: true},
		{name: "sub-paise rejected", input: "1.005", wantErr: true},
		{name: "non-numeric rejected", input: "ten", wantErr: true},
		{name: "empty rejected", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePaise(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidAmount) {
					t.Fatalf("expected ErrInvalidAmount, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %d paise, got %d", tt.want, got)
			}
		})
	}
}

func TestFormatPaise(t *testing.T) {
	if got := FormatPaise(25050); got != "250.50" {
		t.Fatalf(`expected "250.50", got %q`, got)
	}
	if got := FormatPaise(0); got != "0.00" {
		t.Fatalf(`expected "0.00", got %q`, got)
	}
	if got := FormatPaise(100000); got != "1000.00" {
		t.Fatalf(`expected "1000.00", got %q`, got)
	}
}
