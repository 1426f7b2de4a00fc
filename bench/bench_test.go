package bench

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResultQueriesPerSecond(t *testing.T) {
	r := Result{Elapsed: 2 * time.Second, QueriesCompleted: 1000}
	assert.InDelta(t, 500.0, r.QueriesPerSecond(), 0.001)
}

func TestResultQueriesPerSecondZeroElapsedIsZero(t *testing.T) {
	r := Result{Elapsed: 0, QueriesCompleted: 1000}
	assert.Equal(t, 0.0, r.QueriesPerSecond())
}

func TestQueryParamCyclesAcrossIterations(t *testing.T) {
	q := Query{SQL: "SELECT id FROM harbors LIMIT $1", Param: func(i int) any { return (i % 10) + 1 }}
	assert.Equal(t, 1, q.Param(0))
	assert.Equal(t, 10, q.Param(9))
	assert.Equal(t, 1, q.Param(10))
}
