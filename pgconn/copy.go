package pgconn

import (
	"fmt"

	"github.com/qail-lang/qail/protocol"
)

// BeginCopyIn issues sql (a "COPY target (cols) FROM STDIN" statement)
// through the simple query protocol and waits for CopyInResponse (spec
// §4.H copy_bulk: "issues COPY ... FROM STDIN, transitions to CopyIn
// state").
func (c *Conn) BeginCopyIn(sql string) error {
	if err := c.write(protocol.Query(sql)); err != nil {
		return err
	}
	for {
		msg, err := c.next()
		if err != nil {
			return err
		}
		switch msg.Type {
		case protocol.CopyInResponse:
			return nil
		case protocol.ErrorResponse:
			ef := protocol.ParseErrorResponse(msg.Data)
			return &QueryError{Message: ef.Message, Severity: ef.Severity, SQLState: ef.Code}
		}
	}
}

// WriteCopyData sends one CopyData frame.
func (c *Conn) WriteCopyData(chunk []byte) error {
	return c.write(protocol.CopyDataMessage(chunk))
}

// EndCopyIn sends CopyDone and reads through CommandComplete/
// ReadyForQuery, returning the row count carried by the command tag.
func (c *Conn) EndCopyIn() (int64, error) {
	if err := c.write(protocol.CopyDoneMessage()); err != nil {
		return 0, err
	}
	var tag string
	var copyErr error
	for {
		msg, err := c.next()
		if err != nil {
			return 0, err
		}
		switch msg.Type {
		case protocol.CommandComplete:
			tag = protocol.ParseCommandComplete(msg.Data)
		case protocol.ErrorResponse:
			ef := protocol.ParseErrorResponse(msg.Data)
			copyErr = &QueryError{Message: ef.Message, Severity: ef.Severity, SQLState: ef.Code}
		case protocol.ReadyForQuery:
			c.txStatus = TxStatus(protocol.ParseReadyForQuery(msg.Data))
			if copyErr != nil {
				return 0, copyErr
			}
			return affectedFromTag(tag), nil
		}
	}
}

// AbortCopyIn sends CopyFail, causing the server to roll the in-progress
// COPY back, then drains through ReadyForQuery.
func (c *Conn) AbortCopyIn(reason string) error {
	if err := c.write(protocol.CopyFailMessage(reason)); err != nil {
		return err
	}
	for {
		msg, err := c.next()
		if err != nil {
			return err
		}
		if msg.Type == protocol.ReadyForQuery {
			c.txStatus = TxStatus(protocol.ParseReadyForQuery(msg.Data))
			return nil
		}
	}
}

// BeginCopyOut issues a "COPY source TO STDOUT" statement and waits for
// CopyOutResponse.
func (c *Conn) BeginCopyOut(sql string) error {
	if err := c.write(protocol.Query(sql)); err != nil {
		return err
	}
	for {
		msg, err := c.next()
		if err != nil {
			return err
		}
		switch msg.Type {
		case protocol.CopyOutResponse:
			return nil
		case protocol.ErrorResponse:
			ef := protocol.ParseErrorResponse(msg.Data)
			return &QueryError{Message: ef.Message, Severity: ef.Severity, SQLState: ef.Code}
		}
	}
}

// ReadCopyData returns the next chunk of COPY OUT data, or done=true once
// CopyDone/CommandComplete/ReadyForQuery has been observed.
func (c *Conn) ReadCopyData() (chunk []byte, done bool, err error) {
	for {
		msg, err := c.next()
		if err != nil {
			return nil, false, err
		}
		switch msg.Type {
		case protocol.CopyData:
			out := make([]byte, len(msg.Data))
			copy(out, msg.Data)
			return out, false, nil
		case protocol.CopyDone, protocol.CommandComplete:
			continue
		case protocol.ReadyForQuery:
			c.txStatus = TxStatus(protocol.ParseReadyForQuery(msg.Data))
			return nil, true, nil
		case protocol.ErrorResponse:
			ef := protocol.ParseErrorResponse(msg.Data)
			return nil, false, &QueryError{Message: ef.Message, Severity: ef.Severity, SQLState: ef.Code}
		default:
			return nil, false, fmt.Errorf("pgconn: unexpected message %q during COPY OUT", msg.Type)
		}
	}
}
