package aging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectTransitionEscalates(t *testing.T) {
	asOf := date(2026, time.March, 1)
	due := asOf.AddDate(0, 0, -45) // dpd_31_60

	tr, err := DetectTransition(BucketDPD1To30, due, asOf)
	require.NoError(t, err)
	assert.True(t, tr.Changed)
	assert.Equal(t, BucketDPD1To30, tr.Old)
	assert.Equal(t, BucketDPD31To60, tr.New)
	assert.True(t, tr.Escalation)
}

func TestDetectTransitionDeEscalates(t *testing.T) {
	// Due date extended after a partial payment: invoice moves back a tier.
	asOf := date(2026, time.March, 1)
	due := asOf.AddDate(0, 0, -45) // dpd_31_60

	tr, err := DetectTransition(BucketDPD61To90, due, asOf)
	require.NoError(t, err)
	assert.True(t, tr.Changed)
	assert.False(t, tr.Escalation)
}

func TestDetectTransitionUnchanged(t *testing.T) {
	asOf := date(2026, time.March, 1)
	due := asOf.AddDate(0, 0, -45)

	tr, err := DetectTransition(BucketDPD31To60, due, asOf)
	require.NoError(t, err)
	assert.False(t, tr.Changed)
	assert.Equal(t, BucketDPD31To60, tr.New)
}

func TestDetectTransitionFreshImport(t *testing.T) {
	asOf := date(2026, time.March, 1)
	due := asOf.AddDate(0, 0, -200)

	tr, err := DetectTransition("", due, asOf)
	require.NoError(t, err)
	assert.True(t, tr.Changed)
	assert.Equal(t, BucketDPD150Plus, tr.New)
	// No prior bucket means no escalation signal.
	assert.False(t, tr.Escalation)
}

func TestDetectTransitionInvalidDueDate(t *testing.T) {
	_, err := DetectTransition(BucketCurrent, time.Time{}, date(2026, time.March, 1))
	assert.ErrorIs(t, err, ErrInvalidDueDate)
}
