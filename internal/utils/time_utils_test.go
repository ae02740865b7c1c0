package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetLocation(t *testing.T) {
	t.Cleanup(func() { _ = SetLocation("UTC") })

	require.NoError(t, SetLocation("UTC"))
	assert.Equal(t, "2024-05-01 10:00:00", FormatLocal(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)))

	assert.Error(t, SetLocation("Mars/Olympus"))
	assert.Equal(t, "UTC", GetLocation().String())

	assert.NoError(t, SetLocation(""))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "1h2m3s", FormatDuration(3723))
	assert.Equal(t, "0s", FormatDuration(0))
}
