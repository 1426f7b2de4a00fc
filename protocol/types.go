package protocol

// Well-known PostgreSQL type Oids (pg_catalog.pg_type), the subset the
// decoder in pgconn needs to pick a parser for a DataRow column. Mirrors
// the set jackc/pgx/v5's pgtype package hardcodes for the same reason:
// these values are stable across PostgreSQL versions by protocol
// convention, not looked up per-connection.
const (
	OidBool        = 16
	OidBytea       = 17
	OidInt8        = 20
	OidInt2        = 21
	OidInt4        = 23
	OidText        = 25
	OidOid         = 26
	OidJSON        = 114
	OidFloat4      = 700
	OidFloat8      = 701
	OidUnknown     = 705
	OidInet        = 869
	OidVarcharArr  = 1015
	OidTextArr     = 1009
	OidInt4Arr     = 1007
	OidInt8Arr     = 1016
	OidFloat8Arr   = 1022
	OidBpchar      = 1042
	OidVarchar     = 1043
	OidDate        = 1082
	OidTime        = 1083
	OidTimestamp   = 1114
	OidTimestampTz = 1184
	OidInterval    = 1186
	OidNumeric     = 1700
	OidUUID        = 2950
	OidJSONB       = 3802
)

// GoKind classifies an Oid into the handful of shapes the decoder needs to
// distinguish (exact numeric type is not preserved, only scanning shape).
type GoKind int

const (
	KindString GoKind = iota
	KindInt
	KindFloat
	KindBool
	KindBytes
	KindTime
	KindUnknown
)

var oidKinds = map[uint32]GoKind{
	OidBool:        KindBool,
	OidBytea:       KindBytes,
	OidInt8:        KindInt,
	OidInt2:        KindInt,
	OidInt4:        KindInt,
	OidText:        KindString,
	OidOid:         KindInt,
	OidJSON:        KindString,
	OidFloat4:      KindFloat,
	OidFloat8:      KindFloat,
	OidBpchar:      KindString,
	OidVarchar:     KindString,
	OidDate:        KindTime,
	OidTime:        KindTime,
	OidTimestamp:   KindTime,
	OidTimestampTz: KindTime,
	OidInterval:    KindString,
	OidNumeric:     KindFloat,
	OidUUID:        KindString,
	OidJSONB:       KindString,
}

// KindForOid reports the decode shape for a column's data type Oid,
// defaulting to KindUnknown for anything not in the table above (text
// format values can still be read as strings; binary format would
// need an exact match, but qail never requests binary result format).
func KindForOid(oid uint32) GoKind {
	if k, ok := oidKinds[oid]; ok {
		return k
	}
	return KindUnknown
}
