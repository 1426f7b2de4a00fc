package qail

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeParamBatchRendersTextFormatAndNull(t *testing.T) {
	batch := [][]Value{
		{IntValue(1), StringValue("alice")},
		{IntValue(2), NullValue()},
	}
	encoded := encodeParamBatch(batch)
	assert.Equal(t, [][]byte{[]byte("1"), []byte("alice")}, encoded[0])
	assert.Equal(t, []byte("2"), encoded[1][0])
	assert.Nil(t, encoded[1][1])
}
