// Package pgconn owns a single PostgreSQL socket: dialing, the startup and
// SSL-upgrade handshake, the read/write loop, the prepared-statement
// cache, COPY framing, and cursor-based fetch. It knows nothing about
// qail's AST — callers (the root driver facade) hand it already-rendered
// SQL text and parameter bytes, produced by package wireenc or transpile.
// Pooling lives in package pool and command encoding in package wireenc,
// leaving this package the single responsibility of owning one socket.
package pgconn

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"github.com/qail-lang/qail/protocol"
)

// Config configures a single connection.
type Config struct {
	Host     string
	Port     string
	User     string
	Database string
	Password string
	SSLMode  string // "disable", "prefer", "require", "verify-full"

	ApplicationName  string
	ConnectTimeout   time.Duration
	StatementTimeout time.Duration // applied via SET statement_timeout after startup
}

func (c Config) withDefaults() Config {
	if c.Port == "" {
		c.Port = "5432"
	}
	if c.SSLMode == "" {
		c.SSLMode = "prefer"
	}
	return c
}

// TxStatus mirrors the single status byte ReadyForQuery carries (spec
// §3.6's "current transaction state").
type TxStatus byte

const (
	TxIdle     TxStatus = TxStatus(protocol.TxIdle)
	TxInBlock  TxStatus = TxStatus(protocol.TxInBlock)
	TxInFailed TxStatus = TxStatus(protocol.TxInFailed)
)

// Conn is a single, exclusively-owned PostgreSQL connection (spec §5:
// "never used by two tasks concurrently").
type Conn struct {
	netConn net.Conn
	br      *bufio.Reader
	readBuf []byte // reused slab for protocol.ReadMessage

	stmts *StatementCache

	cursorSeq uint64
	params    map[string]string
	pid       uint32
	secretKey uint32

	txStatus TxStatus
}

// Connect dials, optionally upgrades to TLS, and performs the startup/auth
// handshake as one context-aware entry point.
func Connect(ctx context.Context, cfg Config) (*Conn, error) {
	cfg = cfg.withDefaults()

	dialer := &net.Dialer{}
	if cfg.ConnectTimeout > 0 {
		dialer.Timeout = cfg.ConnectTimeout
	}
	addr := net.JoinHostPort(cfg.Host, cfg.Port)
	netConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("pgconn: dial %s: %w", addr, err)
	}

	if cfg.SSLMode != "disable" {
		upgraded, err := upgradeToSSL(netConn, cfg)
		if err != nil {
			if cfg.SSLMode == "require" || cfg.SSLMode == "verify-full" {
				netConn.Close()
				return nil, fmt.Errorf("pgconn: SSL required but failed: %w", err)
			}
			// prefer/allow: continue over the unencrypted connection.
		} else {
			netConn = upgraded
		}
	}

	c := &Conn{
		netConn: netConn,
		br:      bufio.NewReaderSize(netConn, 16*1024),
		stmts:   NewStatementCache(1000),
		params:  make(map[string]string),
	}

	if err := c.startup(cfg); err != nil {
		netConn.Close()
		return nil, err
	}

	if cfg.StatementTimeout > 0 {
		ms := cfg.StatementTimeout.Milliseconds()
		if _, err := c.SimpleExec(fmt.Sprintf("SET statement_timeout = %d", ms)); err != nil {
			netConn.Close()
			return nil, fmt.Errorf("pgconn: setting statement_timeout: %w", err)
		}
	}

	return c, nil
}

func upgradeToSSL(conn net.Conn, cfg Config) (net.Conn, error) {
	if _, err := conn.Write(protocol.SSLRequestBytes); err != nil {
		return nil, err
	}
	var resp [1]byte
	if _, err := conn.Read(resp[:]); err != nil {
		return nil, err
	}
	if resp[0] != 'S' {
		return nil, fmt.Errorf("pgconn: server does not support SSL")
	}

	tlsConfig := &tls.Config{ServerName: cfg.Host}
	if cfg.SSLMode != "verify-full" {
		tlsConfig.InsecureSkipVerify = true
	}
	tlsConn := tls.Client(conn, tlsConfig)
	if err := tlsConn.Handshake(); err != nil {
		return nil, err
	}
	return tlsConn, nil
}

// write sends raw bytes in a single syscall (spec §4.G: "flushes the
// reusable buffer in a single syscall per logical operation").
func (c *Conn) write(b []byte) error {
	_, err := c.netConn.Write(b)
	return err
}

// send concatenates every frame in msgs and writes them in one syscall,
// so a whole Parse+Bind+Execute+Sync group reaches the wire together.
func (c *Conn) send(msgs ...[]byte) error {
	total := 0
	for _, m := range msgs {
		total += len(m)
	}
	buf := make([]byte, 0, total)
	for _, m := range msgs {
		buf = append(buf, m...)
	}
	return c.write(buf)
}

// next reads the next backend message, reusing c.readBuf as scratch space.
func (c *Conn) next() (protocol.Message, error) {
	msg, buf, err := protocol.ReadMessage(c.br, c.readBuf)
	c.readBuf = buf
	return msg, err
}

// Close sends Terminate and closes the socket (spec §4.F Terminate).
func (c *Conn) Close() error {
	c.write(protocol.Terminate())
	return c.netConn.Close()
}

// TxStatus reports the connection's last-observed transaction state.
func (c *Conn) TxStatus() TxStatus { return c.txStatus }

// ParameterStatus returns the negotiated value of a backend parameter
// (e.g. "server_version", "client_encoding"), or "" if never sent.
func (c *Conn) ParameterStatus(name string) string { return c.params[name] }

// BackendPID and BackendSecretKey identify this connection for a
// CancelRequest issued on a separate connection (spec §5 "Cancellation").
func (c *Conn) BackendPID() uint32       { return c.pid }
func (c *Conn) BackendSecretKey() uint32 { return c.secretKey }

// nextCursorName returns a fresh, monotonically-numbered cursor name
// (spec §4.H stream_cmd: "declares cursor qail_cursor_<n>").
func (c *Conn) nextCursorName() string {
	c.cursorSeq++
	return fmt.Sprintf("qail_cursor_%d", c.cursorSeq)
}

// Healthy issues a lightweight SELECT 1 (spec §4.I pool health check).
func (c *Conn) Healthy() bool {
	_, err := c.SimpleExec("SELECT 1")
	return err == nil
}
