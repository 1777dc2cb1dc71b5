package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetricsRegistration(t *testing.T) {
	// Metrics are package globals registered on import; a nil check is the
	// extent of what can be asserted without a custom registry.
	assert.NotNil(t, SearchesTotal)
	assert.NotNil(t, SearchDuration)
	assert.NotNil(t, FlowchartsCompiled)
	assert.NotNil(t, DetectionParses)
	assert.NotNil(t, IndexRules)
	assert.NotNil(t, ActiveSessions)
	assert.NotNil(t, HTTPRequestDuration)
}
