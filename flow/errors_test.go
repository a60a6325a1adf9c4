package flow

import (
	"errors"
	"fmt"
	"testing"
)

// TestSentinelWrapping verifies wrapped details stay comparable with
// errors.Is, which is how callers are expected to branch on kind.
func TestSentinelWrapping(t *testing.T) {
	sentinels := []error{ErrValidation, ErrNodeInput, ErrNodeAttempt, ErrScheduler, ErrMisuse}
	for _, sentinel := range sentinels {
		wrapped := fmt.Errorf("%w: extra detail", sentinel)
		if !errors.Is(wrapped, sentinel) {
			t.Errorf("wrapped %v no longer matches its sentinel", sentinel)
		}
	}
}

// TestSentinelsDistinct verifies no two kinds alias each other.
func TestSentinelsDistinct(t *testing.T) {
	sentinels := []error{ErrValidation, ErrNodeInput, ErrNodeAttempt, ErrScheduler, ErrMisuse}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j && errors.Is(a, b) {
				t.Errorf("sentinel %v matches %v", a, b)
			}
		}
	}
}
