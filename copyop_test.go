package qail

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyTextEncodesEachValueKind(t *testing.T) {
	assert.Equal(t, `\N`, copyText(NullValue()))
	assert.Equal(t, "t", copyText(BoolValue(true)))
	assert.Equal(t, "f", copyText(BoolValue(false)))
	assert.Equal(t, "42", copyText(IntValue(42)))
	assert.Equal(t, "-7", copyText(IntValue(-7)))
	assert.Equal(t, "3.5", copyText(FloatValue(3.5)))
}

func TestEscapeCopyTextEscapesSpecialBytes(t *testing.T) {
	assert.Equal(t, `a\\b\tc\nd\re`, escapeCopyText("a\\b\tc\nd\re"))
	assert.Equal(t, "plain", escapeCopyText("plain"))
}

func TestEncodeCopyRowsProducesTabSeparatedNewlineTerminatedText(t *testing.T) {
	rows := [][]Value{
		{IntValue(1), StringValue("alice"), NullValue()},
		{IntValue(2), StringValue("bo\tb"), BoolValue(true)},
	}
	out := string(encodeCopyRows(rows))
	assert.Equal(t, "1\talice\t\\N\n2\tbo\\tb\tt\n", out)
}

func TestCopyInStatementQuotesTableAndColumns(t *testing.T) {
	cmd := Add("users").Columns("id", "name")
	sql, err := copyInStatement(cmd)
	require.NoError(t, err)
	assert.Equal(t, `COPY "users" ("id", "name") FROM STDIN`, sql)
}

func TestCopyInStatementOmitsColumnListWhenNoneGiven(t *testing.T) {
	cmd := Add("users")
	sql, err := copyInStatement(cmd)
	require.NoError(t, err)
	assert.Equal(t, `COPY "users" FROM STDIN`, sql)
}

func TestCopyInStatementRejectsNonPlainColumns(t *testing.T) {
	cmd := Add("users")
	cmd.Projections = []Expr{StarExpr()}
	_, err := copyInStatement(cmd)
	assert.Error(t, err)
}
