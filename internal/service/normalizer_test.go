package service

import (
	"errors"
	"testing"

	"github.com/minkyo/topiko/internal/domain"
)

func TestNormalizer_Normalize(t *testing.T) {
	n := NewNormalizer()

	tests := []struct {
		name          string
		raw           string
		wantName      string
		wantWordCount int
		wantTruncated bool
		wantErr       error
	}{
		{
			name:          "two words pass through",
			raw:           "machine learning",
			wantName:      "machine learning",
			wantWordCount: 2,
		},
		{
			name:          "leading and trailing whitespace trimmed",
			raw:           "  machine learning  ",
			wantName:      "machine learning",
			wantWordCount: 2,
		},
		{
			name:          "internal whitespace collapsed",
			raw:           "machine \t  learning",
			wantName:      "machine learning",
			wantWordCount: 2,
		},
		{
			name:          "case folded",
			raw:           "Machine LEARNING",
			wantName:      "machine learning",
			wantWordCount: 2,
		},
		{
			name:          "three words truncated to two",
			raw:           "deep machine learning",
			wantName:      "deep machine",
			wantWordCount: 2,
			wantTruncated: true,
		},
		{
			name:          "single word kept with count one",
			raw:           "learning",
			wantName:      "learning",
			wantWordCount: 1,
		},
		{
			name:    "empty input rejected",
			raw:     "",
			wantErr: domain.ErrEmptyInput,
		},
		{
			name:    "whitespace-only input rejected",
			raw:     " \t\n ",
			wantErr: domain.ErrEmptyInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := n.Normalize(tt.raw)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected error %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Name != tt.wantName {
				t.Errorf("expected name %q, got %q", tt.wantName, got.Name)
			}
			if got.WordCount != tt.wantWordCount {
				t.Errorf("expected word count %d, got %d", tt.wantWordCount, got.WordCount)
			}
			if got.Truncated != tt.wantTruncated {
				t.Errorf("expected truncated %v, got %v", tt.wantTruncated, got.Truncated)
			}
		})
	}
}

func TestNormalizer_Idempotent(t *testing.T) {
	n := NewNormalizer()

	inputs := []string{"Machine Learning", "  deep   neural networks  ", "Go"}
	for _, raw := range inputs {
		first, err := n.Normalize(raw)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		second, err := n.Normalize(first.Name)
		if err != nil {
			t.Fatalf("unexpected error on second pass: %v", err)
		}
		if second.Name != first.Name {
			t.Errorf("normalization not idempotent: %q -> %q -> %q", raw, first.Name, second.Name)
		}
		if second.Truncated {
			t.Errorf("second pass over %q should not truncate", first.Name)
		}
	}
}
