package main

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTime(t *testing.T) {
	tests := []struct {
		value   string
		want    time.Time
		wantErr bool
	}{
		{value: "2024-03-01T12:30:00Z", want: time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)},
		{value: "2024-03-01T14:30:00+02:00", want: time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)},
		{value: "2024-03-01T12:30:00", want: time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)},
		{value: "2024-03-01 12:30:00", want: time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)},
		{value: "2024-03-01", want: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{value: "yesterday", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, err := parseTime(tt.value)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestWindow(t *testing.T) {
	now := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)

	begin, end, err := options{}.window(now)
	require.NoError(t, err)
	assert.True(t, begin.IsZero())
	assert.Equal(t, now, end)

	begin, end, err = options{begin: "2024-03-01", end: "2024-03-01T06:00:00Z"}.window(now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), begin)
	assert.Equal(t, time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC), end)

	_, _, err = options{end: "soon"}.window(now)
	assert.Error(t, err)

	assert.False(t, options{eventID: "E"}.hasWindow())
	assert.True(t, options{end: "2024-03-01"}.hasWindow())
}

func TestApplyFlagOverrides(t *testing.T) {
	cmd := newRootCommand()
	require.NoError(t, cmd.ParseFlags([]string{"--test", "--locator", "NonLinLoc", "--fixed-depth", "12.5"}))

	v := viper.New()
	v.SetDefault("locator.profile", "iasp91")
	applyFlagOverrides(cmd, v)

	assert.True(t, v.GetBool("mode.test"))
	assert.Equal(t, "NonLinLoc", v.GetString("locator.type"))
	assert.InDelta(t, 12.5, v.GetFloat64("locator.fixedDepth"), 1e-9)
	assert.Equal(t, "iasp91", v.GetString("locator.profile"))
	assert.False(t, v.IsSet("mode.removeOnly"))
}
