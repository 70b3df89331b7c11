package rules

import (
	"testing"

	"memepad-engine/internal/domain"
)

func TestMatches(t *testing.T) {
	tests := []struct {
		name      string
		tokenName string
		rules     []domain.Rule
		want      bool
	}{
		{
			name:      "exact match same case",
			tokenName: "Moon",
			rules:     []domain.Rule{{Pattern: "Moon", ExactMatch: true}},
			want:      true,
		},
		{
			name:      "exact match different case",
			tokenName: "MOON",
			rules:     []domain.Rule{{Pattern: "moon", ExactMatch: true}},
			want:      true,
		},
		{
			name:      "exact rule rejects superstring",
			tokenName: "ToTheMoon",
			rules:     []domain.Rule{{Pattern: "moon", ExactMatch: true}},
			want:      false,
		},
		{
			name:      "substring match",
			tokenName: "ToTheMoon",
			rules:     []domain.Rule{{Pattern: "moon", ExactMatch: false}},
			want:      true,
		},
		{
			name:      "substring match different case",
			tokenName: "TOTHEMOON",
			rules:     []domain.Rule{{Pattern: "Moon", ExactMatch: false}},
			want:      true,
		},
		{
			name:      "substring no match",
			tokenName: "Unrelated",
			rules:     []domain.Rule{{Pattern: "moon", ExactMatch: false}},
			want:      false,
		},
		{
			name:      "first satisfied rule wins",
			tokenName: "DogCoin",
			rules: []domain.Rule{
				{Pattern: "moon", ExactMatch: true},
				{Pattern: "dog", ExactMatch: false},
			},
			want: true,
		},
		{
			name:      "empty rule list never matches",
			tokenName: "Anything",
			rules:     nil,
			want:      false,
		},
		{
			name:      "empty token name with substring rule",
			tokenName: "",
			rules:     []domain.Rule{{Pattern: "moon", ExactMatch: false}},
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Matches(tt.tokenName, tt.rules)
			if got != tt.want {
				t.Errorf("Matches(%q) = %v, want %v", tt.tokenName, got, tt.want)
			}
		})
	}
}

func TestMatches_MemePadRules(t *testing.T) {
	pad := &domain.MemePad{
		Settings: domain.Settings{
			NamesToBuy: []string{"moon", "Pepe"},
			HardNames:  []bool{false, true},
		},
	}

	if !Matches("ToTheMoon", pad.Rules()) {
		t.Error("Substring rule from settings should match")
	}
	if !Matches("pepe", pad.Rules()) {
		t.Error("Exact rule from settings should match case-insensitively")
	}
	if Matches("PepeCoin", pad.Rules()) {
		t.Error("Exact rule should not match superstring")
	}
}
