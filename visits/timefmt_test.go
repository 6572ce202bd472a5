package visits

import (
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTime(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", "00:00"},
		{"null literal", "null", "00:00"},
		{"three digit code", "930", "09:30"},
		{"single zero", "0", "00:00"},
		{"single digit hour", "5", "05:00"},
		{"two digit hour", "12", "12:00"},
		{"four digit code", "1230", "12:30"},
		{"four digit leading zero", "0905", "09:05"},
		{"short clock", "9:30", "09:30"},
		{"canonical clock", "09:30", "09:30"},
		{"letters", "abc", "00:00"},
		{"one digit minutes", "12:3", "00:00"},
		{"padded with spaces", " 930 ", "09:30"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeTime(tt.in, time.UTC))
		})
	}
}

func TestNormalizeTime_EpochMillis(t *testing.T) {
	at := time.Date(2024, 3, 9, 14, 7, 0, 0, time.UTC)
	got := NormalizeTime(strconv.FormatInt(at.UnixMilli(), 10), time.UTC)
	assert.Equal(t, "14:07", got)
}

func TestNormalizeTime_CanonicalRoundTrip(t *testing.T) {
	for h := 0; h < 24; h++ {
		for m := 0; m < 60; m++ {
			in := fmt.Sprintf("%02d:%02d", h, m)
			require.Equal(t, in, NormalizeTime(in, time.UTC))
		}
	}
}

func TestNormalizeTime_DigitCodes(t *testing.T) {
	for h := 1; h < 24; h++ {
		for m := 0; m < 60; m++ {
			code := strconv.Itoa(h*100 + m)
			require.Equal(t, fmt.Sprintf("%02d:%02d", h, m), NormalizeTime(code, time.UTC), "code %s", code)
		}
	}
}

func TestParseDate(t *testing.T) {
	want := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	for _, in := range []string{"2025-03-10", "2025-03-10 00:00:00.000", "2025-03-10T17:45:00Z", "2025/03/10"} {
		got, ok := ParseDate(in, time.UTC)
		require.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"", "garbage", "2025-13-40"} {
		_, ok := ParseDate(in, time.UTC)
		assert.False(t, ok, in)
	}
}

func TestScheduledInstant(t *testing.T) {
	at, ok := ScheduledInstant("2025-03-10 00:00:00", "930", time.UTC)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC), at)

	_, ok = ScheduledInstant("not a date", "930", time.UTC)
	assert.False(t, ok)
}
