package extract

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		yearCtx int
		want    time.Time
		wantErr bool
	}{
		{
			name:  "full year with dashes",
			input: "12-ABR-2025",
			want:  time.Date(2025, time.April, 12, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "two digit year",
			input: "03-ENE-24",
			want:  time.Date(2024, time.January, 3, 0, 0, 0, 0, time.UTC),
		},
		{
			name:    "no year resolves from context",
			input:   "10 ABR",
			yearCtx: 2025,
			want:    time.Date(2025, time.April, 10, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "slash separators",
			input: "28/FEB/2025",
			want:  time.Date(2025, time.February, 28, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "lowercase with accents folds",
			input: "15-dic-2024",
			want:  time.Date(2024, time.December, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:    "no year and no context",
			input:   "10-ABR",
			wantErr: true,
		},
		{
			name:    "unknown month",
			input:   "10-XYZ-2025",
			wantErr: true,
		},
		{
			name:    "impossible day",
			input:   "31-ABR-2025",
			wantErr: true,
		},
		{
			name:    "day zero",
			input:   "0-ABR-2025",
			wantErr: true,
		},
		{
			name:    "not a date",
			input:   "UBER TRIP",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseDate(tt.input, tt.yearCtx)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseDate(%q, %d) error = %v, wantErr %v", tt.input, tt.yearCtx, err, tt.wantErr)
			}
			if !tt.wantErr && !got.Equal(tt.want) {
				t.Errorf("parseDate(%q, %d) = %v, want %v", tt.input, tt.yearCtx, got, tt.want)
			}
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input   string
		want    float64
		wantErr bool
	}{
		{input: "$125.50", want: 125.50},
		{input: "1,234.56", want: 1234.56},
		{input: "$1,234,567.89", want: 1234567.89},
		{input: "-$2,000.00", want: -2000},
		{input: "- $2,000.00", want: -2000},
		{input: "+300.00", want: 300},
		{input: "(500.00)", want: -500},
		{input: "($1,500.25)", want: -1500.25},
		{input: "  $45.00  ", want: 45},
		{input: "450", want: 450},
		{input: "", wantErr: true},
		{input: "$", wantErr: true},
		{input: "12-ABR-2025", wantErr: true},
		{input: "N/A", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseAmount(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseAmount(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("parseAmount(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
