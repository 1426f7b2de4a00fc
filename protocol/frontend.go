package protocol

import "encoding/binary"

// SSLRequestBytes is the fixed 8-byte SSLRequest: length(8) + the SSL
// negotiation code 80877103, a magic constant from the wire protocol
// itself, not something worth deriving at runtime.
var SSLRequestBytes = []byte{0, 0, 0, 8, 4, 210, 22, 47}

// StartupVersion is protocol version 3.0, sent as the first 4 bytes of a
// StartupMessage's body.
const StartupVersion = 196608

// StartupMessage builds the frontend startup packet: version plus a set of
// key/value parameters, each NUL-terminated, ending in a double NUL.
// user is always sent and database only when non-empty; extra carries
// any additional run-time parameters (e.g. "application_name").
func StartupMessage(user, database string, extra map[string]string) []byte {
	params := "user\x00" + user + "\x00"
	if database != "" {
		params += "database\x00" + database + "\x00"
	}
	for k, v := range extra {
		params += k + "\x00" + v + "\x00"
	}
	params += "\x00"

	length := 4 + 4 + len(params)
	buf := make([]byte, length)
	binary.BigEndian.PutUint32(buf[0:4], uint32(length))
	binary.BigEndian.PutUint32(buf[4:8], StartupVersion)
	copy(buf[8:], params)
	return buf
}

// PasswordMessage builds a PasswordMessage ('p') carrying a cleartext or
// already-hashed (MD5) password string.
func PasswordMessage(password string) []byte {
	return frame('p', []byte(password+"\x00"))
}

// SASLInitialResponse builds the SASLInitialResponse ('p') message that
// begins a SCRAM exchange: mechanism name, then a length-prefixed
// client-first-message.
func SASLInitialResponse(mechanism string, clientFirst []byte) []byte {
	payload := make([]byte, 0, len(mechanism)+1+4+len(clientFirst))
	payload = append(payload, mechanism...)
	payload = append(payload, 0)
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(clientFirst)))
	payload = append(payload, lenBuf[:]...)
	payload = append(payload, clientFirst...)
	return frame('p', payload)
}

// SASLResponse builds a SASLResponse ('p') message carrying the raw
// client-final-message bytes.
func SASLResponse(data []byte) []byte {
	return frame('p', data)
}

// Query builds a simple-query message ('Q'): a single NUL-terminated SQL
// string. pgconn sends it for SimpleExec (transaction control, raw SQL,
// SET, cursor DECLARE/CLOSE, health checks) and to start a COPY; the
// commands run through Fetch use Parse/Bind/Execute instead.
func Query(sql string) []byte {
	return frame('Q', []byte(sql+"\x00"))
}

// ParseMessage builds an extended-protocol Parse message ('P'): an
// optional statement name, the SQL text, and a count of explicitly typed
// parameter Oids (0 lets the server infer types, which qail always does —
// wireenc never declares parameter types up front).
func ParseMessage(stmtName, sql string, paramOids []uint32) []byte {
	payload := make([]byte, 0, len(stmtName)+1+len(sql)+1+2+4*len(paramOids))
	payload = append(payload, stmtName...)
	payload = append(payload, 0)
	payload = append(payload, sql...)
	payload = append(payload, 0)
	payload = appendUint16(payload, uint16(len(paramOids)))
	for _, oid := range paramOids {
		payload = appendUint32(payload, oid)
	}
	return frame('P', payload)
}

// FormatCode selects text (0) or binary (1) wire format for a parameter or
// result column.
type FormatCode int16

const (
	FormatText   FormatCode = 0
	FormatBinary FormatCode = 1
)

// BindMessage builds an extended-protocol Bind message ('B'): binds
// portalName to the prepared statement stmtName, with one format code per
// parameter (or a single shared one), the parameter values themselves
// (nil means SQL NULL), and one format code per result column (empty
// means every result column comes back in text format).
func BindMessage(portalName, stmtName string, paramFormats []FormatCode, params [][]byte, resultFormats []FormatCode) []byte {
	payload := make([]byte, 0, 64)
	payload = append(payload, portalName...)
	payload = append(payload, 0)
	payload = append(payload, stmtName...)
	payload = append(payload, 0)

	payload = appendUint16(payload, uint16(len(paramFormats)))
	for _, f := range paramFormats {
		payload = appendUint16(payload, uint16(f))
	}

	payload = appendUint16(payload, uint16(len(params)))
	for _, p := range params {
		if p == nil {
			payload = appendInt32(payload, -1)
			continue
		}
		payload = appendInt32(payload, int32(len(p)))
		payload = append(payload, p...)
	}

	payload = appendUint16(payload, uint16(len(resultFormats)))
	for _, f := range resultFormats {
		payload = appendUint16(payload, uint16(f))
	}
	return frame('B', payload)
}

// DescribeKind distinguishes a Describe message's target.
type DescribeKind byte

const (
	DescribeStatement DescribeKind = 'S'
	DescribePortal    DescribeKind = 'P'
)

// DescribeMessage builds a Describe message ('D') for either a prepared
// statement or a portal.
func DescribeMessage(kind DescribeKind, name string) []byte {
	payload := make([]byte, 0, 2+len(name))
	payload = append(payload, byte(kind))
	payload = append(payload, name...)
	payload = append(payload, 0)
	return frame('D', payload)
}

// ExecuteMessage builds an Execute message ('E') for portalName, asking
// for at most maxRows rows (0 means "no limit", per spec §6.1).
func ExecuteMessage(portalName string, maxRows int32) []byte {
	payload := make([]byte, 0, len(portalName)+1+4)
	payload = append(payload, portalName...)
	payload = append(payload, 0)
	payload = appendInt32(payload, maxRows)
	return frame('E', payload)
}

// CloseKind distinguishes a Close message's target.
type CloseKind byte

const (
	CloseStatement CloseKind = 'S'
	ClosePortal    CloseKind = 'P'
)

// CloseMessage builds a Close message ('C') for either a prepared
// statement or a portal.
func CloseMessage(kind CloseKind, name string) []byte {
	payload := make([]byte, 0, 2+len(name))
	payload = append(payload, byte(kind))
	payload = append(payload, name...)
	payload = append(payload, 0)
	return frame('C', payload)
}

// CopyDataMessage wraps a chunk of COPY payload bytes in a CopyData
// ('d') message.
func CopyDataMessage(chunk []byte) []byte {
	return frame('d', chunk)
}

// CopyDoneMessage is the fixed CopyDone ('c') message with no payload.
func CopyDoneMessage() []byte {
	return frame('c', nil)
}

// CopyFailMessage aborts an in-progress COPY with an explanatory message,
// causing the server to roll the COPY back and return an ErrorResponse.
func CopyFailMessage(reason string) []byte {
	return frame('f', []byte(reason+"\x00"))
}

func appendUint16(b []byte, v uint16) []byte {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], v)
	return append(b, tmp[:]...)
}

func appendUint32(b []byte, v uint32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	return append(b, tmp[:]...)
}

func appendInt32(b []byte, v int32) []byte {
	return appendUint32(b, uint32(v))
}
