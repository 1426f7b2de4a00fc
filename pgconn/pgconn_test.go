package pgconn

import (
	"bufio"
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatementCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewStatementCache(2)
	c.Insert(1, StatementName(1))
	c.Insert(2, StatementName(2))
	_, ok := c.Lookup(1) // touch 1, making 2 the LRU victim
	require.True(t, ok)

	c.Insert(3, StatementName(3))
	assert.Equal(t, 2, c.Len())

	_, ok = c.Lookup(2)
	assert.False(t, ok, "2 should have been evicted")
	_, ok = c.Lookup(1)
	assert.True(t, ok)
	_, ok = c.Lookup(3)
	assert.True(t, ok)
}

func TestStatementNameIsDeterministicHex(t *testing.T) {
	h := HashSQL(`SELECT "id" FROM "users"`)
	name := StatementName(h)
	assert.Equal(t, name, StatementName(h))
	assert.Regexp(t, `^qail_[0-9a-f]{16}$`, name)
}

func TestAffectedFromTag(t *testing.T) {
	assert.Equal(t, int64(3), affectedFromTag("UPDATE 3"))
	assert.Equal(t, int64(1), affectedFromTag("INSERT 0 1"))
	assert.Equal(t, int64(5), affectedFromTag("SELECT 5"))
	assert.Equal(t, int64(0), affectedFromTag(""))
}

// newTestConn wires a Conn directly to one end of a net.Pipe, skipping
// Connect's dial/handshake so tests can play the server role by hand.
func newTestConn(t *testing.T) (*Conn, net.Conn) {
	t.Helper()
	client, server := net.Pipe()
	c := &Conn{
		netConn: client,
		br:      bufio.NewReaderSize(client, 4096),
		stmts:   NewStatementCache(1000),
		params:  make(map[string]string),
	}
	t.Cleanup(func() { client.Close(); server.Close() })
	return c, server
}

func writeFrame(t *testing.T, conn net.Conn, msgType byte, payload []byte) {
	t.Helper()
	header := make([]byte, 5)
	header[0] = msgType
	binary.BigEndian.PutUint32(header[1:5], uint32(4+len(payload)))
	_, err := conn.Write(append(header, payload...))
	require.NoError(t, err)
}

func TestSimpleExecParsesCommandTagAndReadyForQuery(t *testing.T) {
	c, server := newTestConn(t)

	done := make(chan struct{})
	go func() {
		defer close(done)
		buf := make([]byte, 4096)
		server.Read(buf) // drain the Query message
		writeFrame(t, server, 'C', []byte("UPDATE 2\x00"))
		writeFrame(t, server, 'Z', []byte{'I'})
	}()

	tag, err := c.SimpleExec(`UPDATE "users" SET "active" = true`)
	require.NoError(t, err)
	assert.Equal(t, "UPDATE 2", tag)
	assert.Equal(t, TxIdle, c.TxStatus())

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("server goroutine did not finish")
	}
}

func TestSimpleExecReturnsQueryErrorButStaysReady(t *testing.T) {
	c, server := newTestConn(t)

	go func() {
		buf := make([]byte, 4096)
		server.Read(buf)
		writeFrame(t, server, 'E', []byte("SERROR\x00C42P01\x00Mrelation does not exist\x00\x00"))
		writeFrame(t, server, 'Z', []byte{'I'})
	}()

	_, err := c.SimpleExec(`SELECT * FROM "missing"`)
	require.Error(t, err)
	qe, ok := err.(*QueryError)
	require.True(t, ok)
	assert.Equal(t, "42P01", qe.SQLState)
}

func TestFetchCachesStatementOnSecondCall(t *testing.T) {
	c, server := newTestConn(t)
	sql := `SELECT "id" FROM "users" WHERE "active" = $1`

	serverTurn := func() {
		buf := make([]byte, 4096)
		server.Read(buf)
		writeFrame(t, server, '1', nil) // ParseComplete
		writeFrame(t, server, '2', nil) // BindComplete
		var rd []byte
		rd = append(rd, 0, 1)
		rd = append(rd, []byte("id\x00")...)
		rd = append(rd, make([]byte, 18)...)
		writeFrame(t, server, 'T', rd)
		var dr []byte
		dr = append(dr, 0, 1)
		dr = append(dr, 0, 0, 0, 1)
		dr = append(dr, '7')
		writeFrame(t, server, 'D', dr)
		writeFrame(t, server, 'C', []byte("SELECT 1\x00"))
		writeFrame(t, server, 'Z', []byte{'I'})
	}

	go serverTurn()
	rs, err := c.Fetch(sql, [][]byte{[]byte("t")}, nil, true)
	require.NoError(t, err)
	require.Len(t, rs.Rows, 1)
	assert.Equal(t, []byte("7"), rs.Rows[0][0])
	assert.Equal(t, 1, c.stmts.Len())

	go serverTurn()
	_, err = c.Fetch(sql, [][]byte{[]byte("f")}, nil, true)
	require.NoError(t, err)
	assert.Equal(t, 1, c.stmts.Len(), "second call with the same SQL must not grow the cache")
}
