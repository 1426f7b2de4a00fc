package pgconn

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/qail-lang/qail/protocol"
)

// ResultSet is the decoded reply to one extended-protocol query: its
// column metadata, every row's raw text-format column bytes, and the
// final command tag ("SELECT 5", "UPDATE 3", ...).
type ResultSet struct {
	Fields     []protocol.FieldDescription
	Rows       [][][]byte
	CommandTag string
}

// AffectedRows extracts the numeric tail of the command tag (spec §4.H
// execute: "extracts the numeric tail of CommandComplete"), e.g. "UPDATE
// 3" -> 3, "INSERT 0 1" -> 1.
func (r ResultSet) AffectedRows() int64 {
	return affectedFromTag(r.CommandTag)
}

func affectedFromTag(tag string) int64 {
	fields := strings.Fields(tag)
	if len(fields) == 0 {
		return 0
	}
	n, err := strconv.ParseInt(fields[len(fields)-1], 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// SimpleExec runs sql through the simple query protocol (spec §4.H:
// transaction control and execute_raw dispatch a simple-query frame).
// It returns the final command tag, or a *qail-facing error wrapping the
// server's ErrorResponse — the caller still observes ReadyForQuery
// immediately after, since the simple protocol never aborts the
// connection on a query error.
func (c *Conn) SimpleExec(sql string) (string, error) {
	if err := c.write(protocol.Query(sql)); err != nil {
		return "", err
	}

	var tag string
	var queryErr error
	for {
		msg, err := c.next()
		if err != nil {
			return "", err
		}
		switch msg.Type {
		case protocol.CommandComplete:
			tag = protocol.ParseCommandComplete(msg.Data)
		case protocol.RowDescription, protocol.DataRow, protocol.EmptyQueryResp, protocol.NoticeResponse:
			continue
		case protocol.ErrorResponse:
			ef := protocol.ParseErrorResponse(msg.Data)
			queryErr = &QueryError{Message: ef.Message, Severity: ef.Severity, SQLState: ef.Code}
		case protocol.ReadyForQuery:
			c.txStatus = TxStatus(protocol.ParseReadyForQuery(msg.Data))
			return tag, queryErr
		}
	}
}

// QueryError mirrors the shape of the root package's QueryError without
// importing it (pgconn sits below the root package; importing it back
// would cycle). The driver facade translates this into qail.QueryError.
type QueryError struct {
	Message  string
	Severity string
	SQLState string
}

func (e *QueryError) Error() string {
	if e.SQLState != "" {
		return fmt.Sprintf("%s: %s (SQLSTATE %s)", e.Severity, e.Message, e.SQLState)
	}
	return e.Message
}

// Fetch runs sql with params through the extended protocol, using the
// statement cache when cached is true (spec §4.G's fetch_all policy): on
// a cache hit, only Bind+Execute+Sync are sent; on a miss, Parse is sent
// first and the new statement is recorded in the LRU under
// "qail_<hex hash>". paramOids may be nil to let the server infer types.
func (c *Conn) Fetch(sql string, params [][]byte, paramOids []uint32, cached bool) (*ResultSet, error) {
	stmtName, mustParse := c.resolveStatement(sql, paramOids, cached)

	msgs := make([][]byte, 0, 4)
	if mustParse {
		msgs = append(msgs, protocol.ParseMessage(stmtName, sql, paramOids))
	}
	paramFormats := []protocol.FormatCode{protocol.FormatText}
	msgs = append(msgs,
		protocol.BindMessage("", stmtName, paramFormats, params, nil),
		protocol.ExecuteMessage("", 0),
		protocol.Sync(),
	)
	if err := c.send(msgs...); err != nil {
		return nil, err
	}

	return c.readResultSet()
}

// resolveStatement decides whether a Parse message is needed and returns
// the statement name to bind against. Uncached callers always get an
// unnamed statement (name ""), which PostgreSQL re-parses on every Parse
// and never needs explicit caching.
func (c *Conn) resolveStatement(sql string, paramOids []uint32, cached bool) (name string, mustParse bool) {
	if !cached {
		return "", true
	}
	hash := HashSQL(sql)
	if name, ok := c.stmts.Lookup(hash); ok {
		return name, false
	}
	name = StatementName(hash)
	c.stmts.Insert(hash, name)
	return name, true
}

func (c *Conn) readResultSet() (*ResultSet, error) {
	rs := &ResultSet{}
	var queryErr error
	for {
		msg, err := c.next()
		if err != nil {
			return nil, err
		}
		switch msg.Type {
		case protocol.ParseComplete, protocol.BindComplete, protocol.NoData, protocol.NoticeResponse, protocol.ParameterDesc:
			continue
		case protocol.RowDescription:
			rs.Fields = protocol.ParseRowDescription(msg.Data)
		case protocol.DataRow:
			cols := protocol.ParseDataRow(msg.Data)
			row := make([][]byte, len(cols))
			for i, col := range cols {
				if col != nil {
					cp := make([]byte, len(col))
					copy(cp, col)
					row[i] = cp
				}
			}
			rs.Rows = append(rs.Rows, row)
		case protocol.CommandComplete:
			rs.CommandTag = protocol.ParseCommandComplete(msg.Data)
		case protocol.ErrorResponse:
			ef := protocol.ParseErrorResponse(msg.Data)
			queryErr = &QueryError{Message: ef.Message, Severity: ef.Severity, SQLState: ef.Code}
		case protocol.ReadyForQuery:
			c.txStatus = TxStatus(protocol.ParseReadyForQuery(msg.Data))
			if queryErr != nil {
				return nil, queryErr
			}
			return rs, nil
		}
	}
}

// PipelineBatch encodes every (sql, params) pair back-to-back with a
// single trailing Sync (spec §4.H pipeline_batch: "highest-throughput
// path"), then counts the CommandComplete (or NoData) replies, returning
// that count when the trailing ReadyForQuery arrives. The first
// ErrorResponse ends the read: it is returned together with the number
// of commands completed before it, without reading on to ReadyForQuery.
func (c *Conn) PipelineBatch(sqls []string, paramsBatch [][][]byte) (int, error) {
	msgs := make([][]byte, 0, len(sqls)*3+1)
	for i, sql := range sqls {
		msgs = append(msgs,
			protocol.ParseMessage("", sql, nil),
			protocol.BindMessage("", "", []protocol.FormatCode{protocol.FormatText}, paramsBatch[i], nil),
			protocol.ExecuteMessage("", 0),
		)
	}
	msgs = append(msgs, protocol.Sync())
	if err := c.send(msgs...); err != nil {
		return 0, err
	}

	completed := 0
	for {
		msg, err := c.next()
		if err != nil {
			return completed, err
		}
		switch msg.Type {
		case protocol.CommandComplete, protocol.NoData:
			completed++
		case protocol.ReadyForQuery:
			c.txStatus = TxStatus(protocol.ParseReadyForQuery(msg.Data))
			return completed, nil
		case protocol.ErrorResponse:
			ef := protocol.ParseErrorResponse(msg.Data)
			return completed, &QueryError{Message: ef.Message, Severity: ef.Severity, SQLState: ef.Code}
		}
	}
}

// PipelinePreparedFast issues a single Parse for stmt followed by one
// Bind+Execute per entry in paramsBatch and a single trailing Sync (spec
// §4.H pipeline_prepared_fast: "matches server's parse-once-bind-many
// pipeline"), returning the count of completed executions.
func (c *Conn) PipelinePreparedFast(sql string, paramsBatch [][][]byte) (int, error) {
	msgs := make([][]byte, 0, len(paramsBatch)*2+2)
	msgs = append(msgs, protocol.ParseMessage("", sql, nil))
	for _, params := range paramsBatch {
		msgs = append(msgs,
			protocol.BindMessage("", "", []protocol.FormatCode{protocol.FormatText}, params, nil),
			protocol.ExecuteMessage("", 0),
		)
	}
	msgs = append(msgs, protocol.Sync())
	if err := c.send(msgs...); err != nil {
		return 0, err
	}

	completed := 0
	for {
		msg, err := c.next()
		if err != nil {
			return completed, err
		}
		switch msg.Type {
		case protocol.CommandComplete, protocol.NoData:
			completed++
		case protocol.ReadyForQuery:
			c.txStatus = TxStatus(protocol.ParseReadyForQuery(msg.Data))
			return completed, nil
		case protocol.ErrorResponse:
			ef := protocol.ParseErrorResponse(msg.Data)
			return completed, &QueryError{Message: ef.Message, Severity: ef.Severity, SQLState: ef.Code}
		}
	}
}
