package habit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestParseTargetDays(t *testing.T) {
	assert.Equal(t, []string{"mon", "wed", "fri"}, ParseTargetDays(strPtr(`["mon","wed","fri"]`)))
	assert.Nil(t, ParseTargetDays(nil))
	assert.Nil(t, ParseTargetDays(strPtr("")))
	assert.Nil(t, ParseTargetDays(strPtr("not json")))
}

func TestEncodeTargetDaysRoundTrip(t *testing.T) {
	raw, err := EncodeTargetDays([]string{"tue", "thu"})
	require.NoError(t, err)
	assert.Equal(t, []string{"tue", "thu"}, ParseTargetDays(&raw))
}

func TestScheduledOn(t *testing.T) {
	days := strPtr(`["mon","fri"]`)

	assert.True(t, ScheduledOn(FrequencyWeekly, days, "mon"))
	assert.False(t, ScheduledOn(FrequencyWeekly, days, "tue"))
	assert.False(t, ScheduledOn(FrequencyWeekly, nil, "mon"))

	// monthly habits always appear as a reminder
	assert.True(t, ScheduledOn(FrequencyMonthly, nil, "tue"))

	assert.False(t, ScheduledOn("daily", nil, "mon"))
}
