package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScoreFromDistanceBounds(t *testing.T) {
	assert.InDelta(t, 1.0, scoreFromDistance(0), 1e-9)
	assert.InDelta(t, 0.5, scoreFromDistance(1), 1e-9)
	assert.InDelta(t, 0.0, scoreFromDistance(2), 1e-9)
}

func TestScoreFromDistanceMonotonic(t *testing.T) {
	// Smaller distance must always mean a higher score.
	distances := []float64{0, 0.1, 0.25, 0.5, 1.0, 1.5, 1.99, 2.0}
	for i := 1; i < len(distances); i++ {
		assert.Greater(t, scoreFromDistance(distances[i-1]), scoreFromDistance(distances[i]),
			"d=%v vs d=%v", distances[i-1], distances[i])
	}
}
