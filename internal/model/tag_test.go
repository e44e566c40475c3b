package model

import "testing"

// TestParseTag tests tag parsing for the formats the supported forums emit.
func TestParseTag(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name            string
		input           string
		wantThreadmarks int
		wantWords       string
		wantApprox      int64
	}{
		{
			name:            "sufficient velocity statistics",
			input:           "8 threadmarks, 24k",
			wantThreadmarks: 8,
			wantWords:       "24k",
			wantApprox:      24_000,
		},
		{
			name:            "questionable questing decimal thousands",
			input:           "7 threadmarks, 4.9k",
			wantThreadmarks: 7,
			wantWords:       "4.9k",
			wantApprox:      4_900,
		},
		{
			name:            "thousands separator in threadmarks and millions",
			input:           "1,234 threadmarks, 1.2M",
			wantThreadmarks: 1234,
			wantWords:       "1.2M",
			wantApprox:      1_200_000,
		},
		{
			name:            "single threadmark",
			input:           "1 threadmark, 3.1k",
			wantThreadmarks: 1,
			wantWords:       "3.1k",
			wantApprox:      3_100,
		},
		{
			name:       "bare word count with plus",
			input:      "1,000,000+",
			wantWords:  "1,000,000+",
			wantApprox: 1_000_000,
		},
		{
			name:       "surrounding whitespace",
			input:      "  512k  ",
			wantWords:  "512k",
			wantApprox: 512_000,
		},
		{
			name:            "threadmarks without words",
			input:           "12 threadmarks",
			wantThreadmarks: 12,
		},
		{
			name:  "problem text",
			input: ProblemWordCountNotFound,
		},
		{
			name:  "empty",
			input: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := ParseTag(tt.input)
			if got.Threadmarks != tt.wantThreadmarks {
				t.Errorf("Threadmarks = %d, want %d", got.Threadmarks, tt.wantThreadmarks)
			}
			if got.Words != tt.wantWords {
				t.Errorf("Words = %q, want %q", got.Words, tt.wantWords)
			}
			if got.ApproxWords != tt.wantApprox {
				t.Errorf("ApproxWords = %d, want %d", got.ApproxWords, tt.wantApprox)
			}
		})
	}
}
