package terminal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLines(t *testing.T) {
	tests := []struct {
		name   string
		length int
		width  int
		want   int
	}{
		{"empty", 0, 80, 2},
		{"one row", 40, 80, 2},
		{"exact row", 80, 80, 2},
		{"wraps", 81, 80, 3},
		{"unknown width", 100, 0, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Lines(tt.length, tt.width))
		})
	}
}
