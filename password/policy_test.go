package password

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestScoreKnownValues(t *testing.T) {
	hasher, err := NewHasher(fastConfig())
	if err != nil {
		t.Fatalf("NewHasher error: %v", err)
	}

	cases := []struct {
		password string
		want     int
	}{
		{"", 0},
		{"aaa", 0},
		{"password", 1},
		{"Abcdef1!", 4},
		{"Sup3r$ecur3P@ssw0rd!", 5},
	}

	for _, tc := range cases {
		got, _ := hasher.Score(tc.password)
		if got != tc.want {
			t.Errorf("Score(%q) = %d, want %d", tc.password, got, tc.want)
		}
	}
}

func TestScoreFeedback(t *testing.T) {
	hasher, err := NewHasher(fastConfig())
	if err != nil {
		t.Fatalf("NewHasher error: %v", err)
	}

	_, feedback := hasher.Score("password")
	if len(feedback) == 0 {
		t.Fatal("expected feedback for a weak password")
	}

	_, feedback = hasher.Score("Sup3r$ecur3P@ssw0rd!")
	if len(feedback) != 0 {
		t.Fatalf("expected no feedback for a strong password, got %v", feedback)
	}
}

func TestGenerateRandomSatisfiesPolicy(t *testing.T) {
	hasher, err := NewHasher(Config{Cost: bcrypt.MinCost, MinLength: 8})
	if err != nil {
		t.Fatalf("NewHasher error: %v", err)
	}

	first, err := GenerateRandom(16)
	if err != nil {
		t.Fatalf("GenerateRandom error: %v", err)
	}
	if len(first) != 16 {
		t.Fatalf("expected length 16, got %d", len(first))
	}
	if err := hasher.CheckPolicy(first); err != nil {
		t.Fatalf("generated password failed policy: %v", err)
	}

	second, err := GenerateRandom(16)
	if err != nil {
		t.Fatalf("GenerateRandom error: %v", err)
	}
	if first == second {
		t.Fatal("expected two generated passwords to differ")
	}
}

func TestGenerateRandomClampsLength(t *testing.T) {
	cases := []struct {
		request int
		want    int
	}{
		{0, 16},
		{-5, 16},
		{4, 8},
		{1000, 128},
		{32, 32},
	}

	for _, tc := range cases {
		got, err := GenerateRandom(tc.request)
		if err != nil {
			t.Fatalf("GenerateRandom(%d) error: %v", tc.request, err)
		}
		if len(got) != tc.want {
			t.Errorf("GenerateRandom(%d) length = %d, want %d", tc.request, len(got), tc.want)
		}
	}
}
