package agent

import (
	"errors"
	"testing"
	"time"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{"nil", nil, ClassUnknown},
		{"context length", errors.New("this request exceeds the model's maximum context length"), ClassOverflow},
		{"auth", errors.New("Invalid API Key provided"), ClassPermanent},
		{"rate limit", errors.New("429 Too Many Requests: rate limit reached"), ClassTransient},
		{"overflow beats permanent wording", errors.New("invalid request: prompt is too long for context window"), ClassOverflow},
		{"unmatched", errors.New("something unexpected happened"), ClassUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.err); got != tc.want {
				t.Fatalf("Classify(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestDelay(t *testing.T) {
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 500 * time.Millisecond},
		{1, 500 * time.Millisecond},
		{2, 1000 * time.Millisecond},
		{3, 2000 * time.Millisecond},
		{10, 8000 * time.Millisecond},
	}
	for _, tc := range cases {
		if got := Delay(tc.attempt, 500, 8000); got != tc.want {
			t.Fatalf("Delay(%d) = %v, want %v", tc.attempt, got, tc.want)
		}
	}
}
