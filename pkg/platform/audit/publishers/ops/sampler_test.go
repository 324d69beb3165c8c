package ops

import (
	"testing"

	"github.com/stretchr/testify/assert"

	audit "cubby/pkg/platform/audit"
)

func TestSampler_RateZeroNeverSamples(t *testing.T) {
	s := NewSampler(0)
	for i := 0; i < 1000; i++ {
		assert.False(t, s.ShouldSample(string(audit.EventPreviewEvaluated)))
	}
}

func TestSampler_RateOneAlwaysSamples(t *testing.T) {
	s := NewSampler(1)
	for i := 0; i < 1000; i++ {
		assert.True(t, s.ShouldSample(string(audit.EventPreviewEvaluated)))
	}
}

func TestSampler_PerActionOverride(t *testing.T) {
	s := NewSampler(1)
	s.SetRate(string(audit.EventConversationStarted), 0)

	assert.False(t, s.ShouldSample(string(audit.EventConversationStarted)))
	assert.True(t, s.ShouldSample(string(audit.EventPreviewEvaluated)))
}

func TestSampler_ClampsRates(t *testing.T) {
	s := NewSampler(-0.5)
	assert.False(t, s.ShouldSample("anything"))

	s.SetRate("hot_path", 7.2)
	assert.True(t, s.ShouldSample("hot_path"))
}

func TestSampler_ApproximatesRate(t *testing.T) {
	// Justification: sampling is probabilistic; with n=10000 and p=0.5 the
	// observed rate should land well inside [0.4, 0.6].
	s := NewSampler(0.5)

	sampled := 0
	const n = 10000
	for i := 0; i < n; i++ {
		if s.ShouldSample("event") {
			sampled++
		}
	}
	rate := float64(sampled) / float64(n)
	assert.InDelta(t, 0.5, rate, 0.1)
}
