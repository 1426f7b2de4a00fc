package pgconn

import (
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

// DecodeText converts a text-format column's raw bytes to a UTF-8 string
// using the server's negotiated client_encoding ParameterStatus. qail
// always requests client_encoding=UTF8 at startup (startup.go), so this
// only does real work against a server configured to ignore the request
// or a pre-existing session variable; otherwise it is a cheap passthrough.
func (c *Conn) DecodeText(raw []byte) (string, error) {
	enc := c.textEncoding()
	if enc == nil || isUTF8(c.params["client_encoding"]) {
		return string(raw), nil
	}
	out, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func isUTF8(name string) bool {
	return name == "" || name == "UTF8" || name == "UTF-8"
}

func (c *Conn) textEncoding() encoding.Encoding {
	name := c.params["client_encoding"]
	if isUTF8(name) {
		return nil
	}
	enc, err := htmlindex.Get(pgEncodingAlias(name))
	if err != nil {
		return nil
	}
	return enc
}

// pgEncodingAlias maps a handful of PostgreSQL encoding names that differ
// from their IANA/htmlindex spelling onto the name htmlindex.Get expects.
func pgEncodingAlias(pgName string) string {
	switch pgName {
	case "LATIN1":
		return "iso-8859-1"
	case "LATIN9":
		return "iso-8859-15"
	case "WIN1252":
		return "windows-1252"
	case "SQL_ASCII":
		return "us-ascii"
	case "EUC_JP":
		return "euc-jp"
	case "SJIS":
		return "shift_jis"
	case "KOI8R":
		return "koi8-r"
	default:
		return pgName
	}
}
