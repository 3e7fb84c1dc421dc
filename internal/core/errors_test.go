package core

import (
	"errors"
	"testing"
)

func TestCoreErrorMatchesSentinel(t *testing.T) {
	tests := []struct {
		code string
		want error
	}{
		{code: ErrCodeUsernameTaken, want: ErrUsernameTaken},
		{code: ErrCodeUserNotFound, want: ErrUserNotFound},
		{code: ErrCodeMalformedCommand, want: ErrMalformedCommand},
		{code: ErrCodeRoomEmpty, want: ErrRoomEmpty},
	}

	for _, tt := range tests {
		var err error = coreError(tt.code, "x")
		if !errors.Is(err, tt.want) {
			t.Fatalf("%s should match %v", tt.code, tt.want)
		}
	}

	if errors.Is(RateLimitedError(), ErrMalformedCommand) {
		t.Fatal("rate_limited must not match another sentinel")
	}
}
