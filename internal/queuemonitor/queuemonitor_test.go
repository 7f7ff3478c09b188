package queuemonitor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOccupancy(t *testing.T) {
	assert.Equal(t, "empty", occupancy(0, 10))
	assert.Equal(t, "full", occupancy(10, 10))
	assert.Equal(t, "3/10", occupancy(3, 10))
	assert.Equal(t, "0/0", occupancy(0, 0))
}
