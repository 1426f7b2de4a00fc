package pgconn

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"github.com/qail-lang/qail/protocol"
)

// startup performs the PostgreSQL v3 startup handshake: StartupMessage,
// the authentication loop (cleartext, MD5, and full SASL/SCRAM), and the
// ParameterStatus/BackendKeyData drain up to ReadyForQuery.
func (c *Conn) startup(cfg Config) error {
	extra := map[string]string{"client_encoding": "UTF8"}
	if cfg.ApplicationName != "" {
		extra["application_name"] = cfg.ApplicationName
	}
	if err := c.write(protocol.StartupMessage(cfg.User, cfg.Database, extra)); err != nil {
		return err
	}

	for {
		msg, err := c.next()
		if err != nil {
			return fmt.Errorf("pgconn: startup: %w", err)
		}

		switch msg.Type {
		case protocol.Authentication:
			if err := c.handleAuth(msg.Data, cfg); err != nil {
				return err
			}
		case protocol.BackendKeyData:
			c.pid, c.secretKey = protocol.ParseBackendKeyData(msg.Data)
		case protocol.ParameterStatus:
			name, value := protocol.ParseParameterStatus(msg.Data)
			c.params[name] = value
		case protocol.ReadyForQuery:
			c.txStatus = TxStatus(protocol.ParseReadyForQuery(msg.Data))
			return nil
		case protocol.ErrorResponse:
			ef := protocol.ParseErrorResponse(msg.Data)
			return fmt.Errorf("pgconn: startup auth failed: %s", ef.Message)
		}
	}
}

func (c *Conn) handleAuth(data []byte, cfg Config) error {
	req := protocol.ParseAuthRequest(data)
	switch req.Code {
	case protocol.AuthOK:
		return nil
	case protocol.AuthCleartextPassword:
		return c.write(protocol.PasswordMessage(cfg.Password))
	case protocol.AuthMD5Password:
		salt := req.Data[:4]
		return c.write(protocol.PasswordMessage(md5Password(cfg.User, cfg.Password, salt)))
	case protocol.AuthSASL:
		return c.doScram(cfg.User, cfg.Password)
	default:
		return fmt.Errorf("pgconn: unsupported authentication method %d", req.Code)
	}
}

// md5Password computes "md5" + hex(md5(hex(md5(password+user)) + salt)),
// PostgreSQL's MD5 challenge-response scheme.
func md5Password(user, password string, salt []byte) string {
	inner := md5.Sum([]byte(password + user))
	innerHex := hex.EncodeToString(inner[:])
	outer := md5.Sum([]byte(innerHex + string(salt)))
	return "md5" + hex.EncodeToString(outer[:])
}

// doScram drives a full SCRAM-SHA-256 exchange (RFC 5802/7677) against an
// AuthenticationSASL challenge.
func (c *Conn) doScram(user, password string) error {
	client := protocol.NewScramClient(user, password)
	if err := c.write(protocol.SASLInitialResponse("SCRAM-SHA-256", client.ClientFirstMessage())); err != nil {
		return err
	}

	msg, err := c.next()
	if err != nil {
		return fmt.Errorf("pgconn: SCRAM server-first: %w", err)
	}
	if msg.Type != protocol.Authentication {
		return fmt.Errorf("pgconn: expected AuthenticationSASLContinue, got %q", msg.Type)
	}
	req := protocol.ParseAuthRequest(msg.Data)
	if req.Code != protocol.AuthSASLContinue {
		return fmt.Errorf("pgconn: expected AuthenticationSASLContinue, got code %d", req.Code)
	}

	clientFinal, err := client.HandleServerFirst(req.Data)
	if err != nil {
		return err
	}
	if err := c.write(protocol.SASLResponse(clientFinal)); err != nil {
		return err
	}

	msg, err = c.next()
	if err != nil {
		return fmt.Errorf("pgconn: SCRAM server-final: %w", err)
	}
	if msg.Type != protocol.Authentication {
		return fmt.Errorf("pgconn: expected AuthenticationSASLFinal, got %q", msg.Type)
	}
	req = protocol.ParseAuthRequest(msg.Data)
	if req.Code != protocol.AuthSASLFinal {
		return fmt.Errorf("pgconn: expected AuthenticationSASLFinal, got code %d", req.Code)
	}
	if err := client.VerifyServerFinal(req.Data); err != nil {
		return err
	}

	// Server sends AuthenticationOk next; let the startup loop read it.
	return nil
}
