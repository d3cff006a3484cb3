package sensor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"permission denied", Errf(KindPermissionDenied, "no"), KindPermissionDenied},
		{"timeout", Errf(KindTimeout, "slow"), KindTimeout},
		{"unavailable", Errf(KindPositionUnavailable, "gps off"), KindPositionUnavailable},
		{"malformed coerced", Errf(KindMalformed, "empty payload"), KindPositionUnavailable},
		{"unclassified coerced", errors.New("something broke"), KindPositionUnavailable},
		{"wrapped sensor error", errors.Join(errors.New("ctx"), Errf(KindTimeout, "slow")), KindTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}
