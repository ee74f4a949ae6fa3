package validation

import "testing"

func TestIsValidCardID(t *testing.T) {
	tests := []struct {
		name   string
		cardID string
		want   bool
	}{
		{"uuid style", "3f1a9c2e-6d4b-4f0a-9b1e-8c7d5a2f3b4c", true},
		{"short id", "card-1", true},
		{"underscores", "card_01", true},
		{"empty", "", false},
		{"whitespace", "card 1", false},
		{"key separator", "card:1", false},
		{"too long", string(make([]byte, 65)), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidCardID(tt.cardID); got != tt.want {
				t.Fatalf("IsValidCardID(%q) = %v, want %v", tt.cardID, got, tt.want)
			}
		})
	}
}
