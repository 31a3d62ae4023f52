package disclaimer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompose(t *testing.T) {
	c := NewComposer()

	tests := []struct {
		severity string
		contains string
	}{
		{SeverityMild, "Reply to this message"},
		{SeverityModerate, "not professional advice"},
		{SeverityUrgent, "emergency services"},
		{"unknown", "Reply to this message"},
	}

	for _, tt := range tests {
		t.Run(tt.severity, func(t *testing.T) {
			got := c.Compose(tt.severity)
			assert.True(t, strings.HasPrefix(got, separator))
			assert.Contains(t, got, tt.contains)
		})
	}
}

func TestComposeIsPure(t *testing.T) {
	c := NewComposer()
	assert.Equal(t, c.Compose(SeverityUrgent), c.Compose(SeverityUrgent))
	assert.NotEqual(t, c.Compose(SeverityMild), c.Compose(SeverityUrgent))
}
