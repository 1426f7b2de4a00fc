// Package protocol implements the PostgreSQL frontend/backend wire protocol,
// version 3 (spec §6.1): message framing, the startup/auth handshake
// messages, SCRAM-SHA-256 authentication, and the Oid-to-Go-type decode
// table. It has no knowledge of qail's AST or SQL text — package pgconn
// owns the socket and the read/write loop, and calls into protocol to build
// and parse individual messages.
package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
)

// BackendType identifies a parsed backend message (spec §6.1 message type
// bytes; 'R' covers several Authentication* sub-messages distinguished by
// their first four payload bytes, decoded by ParseAuthRequest in
// backend.go).
type BackendType byte

const (
	Authentication   BackendType = 'R'
	BackendKeyData   BackendType = 'K'
	BindComplete     BackendType = '2'
	CloseComplete    BackendType = '3'
	CommandComplete  BackendType = 'C'
	CopyData         BackendType = 'd'
	CopyDone         BackendType = 'c'
	CopyInResponse   BackendType = 'G'
	CopyOutResponse  BackendType = 'H'
	CopyBothResponse BackendType = 'W'
	DataRow          BackendType = 'D'
	EmptyQueryResp   BackendType = 'I'
	ErrorResponse    BackendType = 'E'
	NoData           BackendType = 'n'
	NoticeResponse   BackendType = 'N'
	ParameterDesc    BackendType = 't'
	ParameterStatus  BackendType = 'S'
	ParseComplete    BackendType = '1'
	PortalSuspended  BackendType = 's'
	ReadyForQuery    BackendType = 'Z'
	RowDescription   BackendType = 'T'
)

// Message is one parsed backend message: a type byte and its payload, with
// the 5-byte header already stripped.
type Message struct {
	Type BackendType
	Data []byte
}

// ReadMessage reads one backend message from r as a standalone, reusable
// framer. The payload is read into buf when its capacity is large
// enough; otherwise a new, larger slice replaces it. The slice in use is
// returned so the caller can pass it back on the next call; callers
// that need to retain Data past the next ReadMessage call must copy it.
func ReadMessage(r io.Reader, buf []byte) (Message, []byte, error) {
	var header [5]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return Message{}, buf, err
	}

	msgType := BackendType(header[0])
	length := binary.BigEndian.Uint32(header[1:5])
	if length < 4 {
		return Message{}, buf, fmt.Errorf("protocol: invalid message length %d for type %q", length, msgType)
	}
	dataLen := int(length) - 4
	if dataLen == 0 {
		return Message{Type: msgType}, buf, nil
	}

	if cap(buf) < dataLen {
		buf = make([]byte, dataLen)
	}
	buf = buf[:dataLen]
	if _, err := io.ReadFull(r, buf); err != nil {
		return Message{}, buf, err
	}
	return Message{Type: msgType, Data: buf}, buf, nil
}

// frame prepends a type byte and 4-byte big-endian length (length field
// counts itself but not the type byte, per spec §6.1) to payload.
func frame(msgType byte, payload []byte) []byte {
	out := make([]byte, 1+4+len(payload))
	out[0] = msgType
	binary.BigEndian.PutUint32(out[1:5], uint32(4+len(payload)))
	copy(out[5:], payload)
	return out
}

// Terminate is the fixed 5-byte Terminate message (no payload).
func Terminate() []byte {
	return []byte{'X', 0, 0, 0, 4}
}

// Sync is the fixed 5-byte Sync message that ends an extended-protocol
// pipeline and forces a ReadyForQuery reply.
func Sync() []byte {
	return []byte{'S', 0, 0, 0, 4}
}

// Flush is the fixed 5-byte Flush message.
func Flush() []byte {
	return []byte{'H', 0, 0, 0, 4}
}
