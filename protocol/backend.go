package protocol

import (
	"encoding/binary"
	"strings"
)

// AuthRequest is a parsed Authentication* backend message (all share
// message type 'R', distinguished by a leading int32 code).
type AuthRequest struct {
	Code int32
	Data []byte // remaining bytes, meaning depends on Code
}

const (
	AuthOK                = 0
	AuthKerberosV5        = 2
	AuthCleartextPassword = 3
	AuthMD5Password       = 5
	AuthSCMCredential     = 6
	AuthGSS               = 7
	AuthSSPI              = 9
	AuthSASL              = 10
	AuthSASLContinue      = 11
	AuthSASLFinal         = 12
)

// ParseAuthRequest splits an Authentication message's payload into its
// code and remaining data (e.g. the 4-byte MD5 salt, or the server's list
// of supported SASL mechanisms).
func ParseAuthRequest(data []byte) AuthRequest {
	code := int32(binary.BigEndian.Uint32(data[:4]))
	return AuthRequest{Code: code, Data: data[4:]}
}

// SASLMechanisms parses the NUL-terminated, double-NUL-ended list of
// mechanism names the server offers in an AuthenticationSASL message.
func SASLMechanisms(data []byte) []string {
	var out []string
	for _, s := range strings.Split(string(data), "\x00") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// FieldDescription describes one column of a RowDescription ('T')
// message (spec §6.1).
type FieldDescription struct {
	Name         string
	TableOid     uint32
	ColumnAttNum int16
	DataTypeOid  uint32
	DataTypeSize int16
	TypeModifier int32
	FormatCode   int16
}

// ParseRowDescription parses a 'T' message's payload into one
// FieldDescription per column, carrying the full field metadata pgconn
// needs to pick a value decoder per column.
func ParseRowDescription(data []byte) []FieldDescription {
	count := binary.BigEndian.Uint16(data[:2])
	fields := make([]FieldDescription, 0, count)
	offset := 2

	for i := 0; i < int(count); i++ {
		start := offset
		for data[offset] != 0 {
			offset++
		}
		name := string(data[start:offset])
		offset++ // NUL

		f := FieldDescription{
			Name:         name,
			TableOid:     binary.BigEndian.Uint32(data[offset:]),
			ColumnAttNum: int16(binary.BigEndian.Uint16(data[offset+4:])),
			DataTypeOid:  binary.BigEndian.Uint32(data[offset+6:]),
			DataTypeSize: int16(binary.BigEndian.Uint16(data[offset+10:])),
			TypeModifier: int32(binary.BigEndian.Uint32(data[offset+12:])),
			FormatCode:   int16(binary.BigEndian.Uint16(data[offset+16:])),
		}
		fields = append(fields, f)
		offset += 18
	}
	return fields
}

// ParseDataRow parses a 'D' message's payload into one byte slice per
// column (nil for SQL NULL). The returned slices alias data and must be
// copied by the caller if retained past the next read.
func ParseDataRow(data []byte) [][]byte {
	count := binary.BigEndian.Uint16(data[:2])
	cols := make([][]byte, 0, count)
	offset := 2

	for i := 0; i < int(count); i++ {
		length := int32(binary.BigEndian.Uint32(data[offset : offset+4]))
		offset += 4
		if length == -1 {
			cols = append(cols, nil)
			continue
		}
		cols = append(cols, data[offset:offset+int(length)])
		offset += int(length)
	}
	return cols
}

// ErrorFields holds the named fields of an ErrorResponse/NoticeResponse
// message. On the wire each field is a one-byte code followed by a
// NUL-terminated string; the list ends with a zero byte.
type ErrorFields struct {
	Severity string
	Code     string // SQLSTATE
	Message  string
	Detail   string
	Hint     string
	Position string
}

// ParseErrorResponse parses an 'E' or 'N' message's payload into its
// named fields (spec §6.1's ErrorResponse field codes: S severity,
// C sqlstate, M message, D detail, H hint, P position).
func ParseErrorResponse(data []byte) ErrorFields {
	var ef ErrorFields
	i := 0
	for i < len(data) && data[i] != 0 {
		fieldType := data[i]
		i++
		start := i
		for i < len(data) && data[i] != 0 {
			i++
		}
		value := string(data[start:i])
		i++ // NUL

		switch fieldType {
		case 'S':
			ef.Severity = value
		case 'C':
			ef.Code = value
		case 'M':
			ef.Message = value
		case 'D':
			ef.Detail = value
		case 'H':
			ef.Hint = value
		case 'P':
			ef.Position = value
		}
	}
	return ef
}

// ParseBackendKeyData parses a 'K' message into the process ID and secret
// key used to issue a CancelRequest on a separate connection.
func ParseBackendKeyData(data []byte) (pid, secretKey uint32) {
	return binary.BigEndian.Uint32(data[:4]), binary.BigEndian.Uint32(data[4:8])
}

// ParseParameterStatus parses an 'S' message into its name/value pair
// (e.g. "server_version" -> "16.2").
func ParseParameterStatus(data []byte) (name, value string) {
	i := 0
	for data[i] != 0 {
		i++
	}
	name = string(data[:i])
	value = string(data[i+1 : len(data)-1])
	return name, value
}

// TransactionStatus is the single byte ReadyForQuery carries.
type TransactionStatus byte

const (
	TxIdle       TransactionStatus = 'I'
	TxInBlock    TransactionStatus = 'T'
	TxInFailed   TransactionStatus = 'E'
)

// ParseReadyForQuery parses a 'Z' message's single status byte.
func ParseReadyForQuery(data []byte) TransactionStatus {
	return TransactionStatus(data[0])
}

// ParseCommandComplete extracts the command tag string from a 'C'
// message ("SELECT 5", "INSERT 0 1", "UPDATE 3", ...).
func ParseCommandComplete(data []byte) string {
	if n := len(data); n > 0 && data[n-1] == 0 {
		return string(data[:n-1])
	}
	return string(data)
}
