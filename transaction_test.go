package qail

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuoteSavepointEscapesDoubleQuotes(t *testing.T) {
	assert.Equal(t, `"my_sp"`, quoteSavepoint("my_sp"))
	assert.Equal(t, `"weird""name"`, quoteSavepoint(`weird"name`))
}

func TestCheckActiveRejectsErroredState(t *testing.T) {
	tx := &Tx{state: TxErrored}
	assert.ErrorIs(t, tx.checkActive(), ErrInTransactionErrored)

	tx.state = TxActive
	assert.NoError(t, tx.checkActive())
}

func TestCommitRejectsAlreadyErroredTransaction(t *testing.T) {
	tx := &Tx{state: TxErrored}
	assert.ErrorIs(t, tx.Commit(), ErrInTransactionErrored)
}
