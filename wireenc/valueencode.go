package wireenc

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/qail-lang/qail"
)

// encodeText renders v in PostgreSQL's text wire format (spec §4.E): the
// same textual representation psql itself would print, without SQL
// quoting, since these bytes travel as a Bind parameter rather than as
// inline SQL. A nil return with ValNull is never reached here (ValNull is
// handled by the caller before a parameter slot is ever allocated).
func encodeText(v qail.Value) ([]byte, error) {
	switch v.Kind {
	case qail.ValBool:
		if v.Bool {
			return []byte("t"), nil
		}
		return []byte("f"), nil
	case qail.ValInt:
		return []byte(formatInt(v.Int)), nil
	case qail.ValFloat:
		return []byte(strconv.FormatFloat(v.Float, 'g', -1, 64)), nil
	case qail.ValString:
		return []byte(v.Str), nil
	case qail.ValUuid:
		return []byte(v.Uuid.String()), nil
	case qail.ValTimestamp:
		return []byte(v.Time.UTC().Format("2006-01-02 15:04:05.999999Z07")), nil
	case qail.ValInterval:
		return []byte(fmt.Sprintf("%g %s", v.Interval.Amount, v.Interval.Unit)), nil
	case qail.ValBytes:
		return []byte("\\x" + hexEncode(v.Bytes)), nil
	case qail.ValVector:
		parts := make([]string, len(v.Vector))
		for i, f := range v.Vector {
			parts[i] = strconv.FormatFloat(float64(f), 'g', -1, 32)
		}
		return []byte("[" + strings.Join(parts, ",") + "]"), nil
	case qail.ValArray:
		parts := make([]string, len(v.Array))
		for i, elem := range v.Array {
			b, err := encodeText(elem)
			if err != nil {
				return nil, err
			}
			parts[i] = arrayQuote(string(b))
		}
		return []byte("{" + strings.Join(parts, ",") + "}"), nil
	}
	return nil, qail.NewEncodeError(qail.EncodeErrUnknown, fmt.Sprintf("wireenc: value kind %d cannot be encoded as a bind parameter", v.Kind))
}

const hexDigits = "0123456789abcdef"

func hexEncode(b []byte) string {
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = hexDigits[c>>4]
		out[i*2+1] = hexDigits[c&0xf]
	}
	return string(out)
}

// arrayQuote wraps an array element in double quotes per Postgres array
// literal syntax whenever it contains a character that would otherwise be
// ambiguous (comma, brace, quote, backslash, or leading/trailing space).
func arrayQuote(s string) string {
	if s != "" && !strings.ContainsAny(s, `,{}"\ `) {
		return s
	}
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '"' || c == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	b.WriteByte('"')
	return b.String()
}
