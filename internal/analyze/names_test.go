package analyze

import (
	"reflect"
	"testing"
)

func TestExtractNames(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "simple two-word name",
			text: "Met with John Doe today to discuss the project.",
			want: []string{"John Doe"},
		},
		{
			name: "three-word name",
			text: "Mary Jane Smith presented the findings.",
			want: []string{"Mary Jane Smith"},
		},
		{
			name: "multiple names",
			text: "John Doe and Sarah Mitchell discussed the project with Emma Rodriguez.",
			want: []string{"Emma Rodriguez", "John Doe", "Sarah Mitchell"},
		},
		{
			name: "single capitalized words ignored",
			text: "Sarah went to Paris to meet John.",
			want: nil,
		},
		{
			name: "lowercase ignored",
			text: "met with john doe today",
			want: nil,
		},
		{
			name: "all-caps ignored",
			text: "JOHN DOE wrote this",
			want: nil,
		},
		{
			name: "sentence boundaries",
			text: "John Doe started the meeting. Sarah Mitchell presented. Emma Rodriguez concluded.",
			want: []string{"Emma Rodriguez", "John Doe", "Sarah Mitchell"},
		},
		{
			name: "leading verb stripped from longer span",
			text: "Met Sarah Mitchell and John Davis today",
			want: []string{"John Davis", "Sarah Mitchell"},
		},
		{
			name: "duplicates collapsed",
			text: "John Doe met John Doe",
			want: []string{"John Doe"},
		},
		{
			name: "empty text",
			text: "",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractNames(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExtractNames(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}
