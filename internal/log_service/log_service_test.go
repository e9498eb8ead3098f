package log_service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevels(t *testing.T) {
	tests := []struct {
		level string
		value int
		valid bool
	}{
		{"DEBUG", DebugLevelValue, true},
		{"info", InfoLevelValue, true},
		{" Warn ", WarnLevelValue, true},
		{"WARNING", WarnLevelValue, true},
		{"ERROR", ErrorLevelValue, true},
		{"", DebugLevelValue, false},
		{"LOUD", DebugLevelValue, false},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.value, GetLevelValue(tt.level))
			assert.Equal(t, tt.valid, ValidLevel(tt.level))
		})
	}
}
