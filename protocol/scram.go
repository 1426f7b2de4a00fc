package protocol

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// ScramClient drives one SCRAM-SHA-256 exchange (RFC 5802, channel binding
// disabled per RFC 7677's "SCRAM-SHA-256" mechanism rather than
// "SCRAM-SHA-256-PLUS"), PostgreSQL's default authentication method from
// v10 on.
type ScramClient struct {
	user     string
	password string

	clientNonce string
	serverNonce string
	salt        []byte
	iterations  int

	clientFirstBare string
	saltedPassword  []byte
	authMessage     string
}

// NewScramClient starts a new exchange for the given user and password.
// The user name is sent, escaped, in the client-first-message; the
// password only feeds the salted-password derivation.
func NewScramClient(user, password string) *ScramClient {
	return &ScramClient{user: user, password: password, clientNonce: newNonce()}
}

func newNonce() string {
	var raw [18]byte
	if _, err := rand.Read(raw[:]); err != nil {
		panic("protocol: failed to read random nonce: " + err.Error())
	}
	return base64.RawStdEncoding.EncodeToString(raw[:])
}

// ClientFirstMessage builds the "n,,n=<user>,r=<nonce>" message sent as
// the SASLInitialResponse payload. The GS2 header "n,," means "no channel
// binding, no authzid".
func (s *ScramClient) ClientFirstMessage() []byte {
	s.clientFirstBare = "n=" + escapeSaslName(s.user) + ",r=" + s.clientNonce
	return []byte("n,," + s.clientFirstBare)
}

// escapeSaslName escapes ',' and '=' per RFC 5802 section 5.1's saslname
// production.
func escapeSaslName(name string) string {
	name = strings.ReplaceAll(name, "=", "=3D")
	name = strings.ReplaceAll(name, ",", "=2C")
	return name
}

// HandleServerFirst parses the server-first-message carried by an
// AuthenticationSASLContinue message and returns the client-final-message
// to send back as the SASLResponse payload.
func (s *ScramClient) HandleServerFirst(data []byte) ([]byte, error) {
	fields, err := parseScramFields(string(data))
	if err != nil {
		return nil, err
	}

	s.serverNonce = fields["r"]
	if !strings.HasPrefix(s.serverNonce, s.clientNonce) {
		return nil, errors.New("protocol: server nonce does not extend client nonce")
	}

	saltB64, ok := fields["s"]
	if !ok {
		return nil, errors.New("protocol: server-first-message missing salt")
	}
	s.salt, err = base64.StdEncoding.DecodeString(saltB64)
	if err != nil {
		return nil, fmt.Errorf("protocol: invalid SCRAM salt: %w", err)
	}

	iterStr, ok := fields["i"]
	if !ok {
		return nil, errors.New("protocol: server-first-message missing iteration count")
	}
	s.iterations, err = strconv.Atoi(iterStr)
	if err != nil || s.iterations <= 0 {
		return nil, errors.New("protocol: invalid SCRAM iteration count")
	}

	s.saltedPassword = pbkdf2.Key([]byte(s.password), s.salt, s.iterations, sha256.Size, sha256.New)

	channelBinding := base64.StdEncoding.EncodeToString([]byte("n,,"))
	clientFinalWithoutProof := "c=" + channelBinding + ",r=" + s.serverNonce

	serverFirst := string(data)
	s.authMessage = s.clientFirstBare + "," + serverFirst + "," + clientFinalWithoutProof

	clientKey := hmacSHA256(s.saltedPassword, []byte("Client Key"))
	storedKey := sha256.Sum256(clientKey)
	clientSignature := hmacSHA256(storedKey[:], []byte(s.authMessage))

	clientProof := xorBytes(clientKey, clientSignature)
	proofB64 := base64.StdEncoding.EncodeToString(clientProof)

	final := clientFinalWithoutProof + ",p=" + proofB64
	return []byte(final), nil
}

// VerifyServerFinal checks the server-final-message's "v=" signature
// against the ServerKey this client derived, confirming the server also
// knows the salted password (mutual authentication, not just the server
// authenticating the client).
func (s *ScramClient) VerifyServerFinal(data []byte) error {
	fields, err := parseScramFields(string(data))
	if err != nil {
		return err
	}
	if errMsg, ok := fields["e"]; ok {
		return fmt.Errorf("protocol: SCRAM error: %s", errMsg)
	}
	sigB64, ok := fields["v"]
	if !ok {
		return errors.New("protocol: server-final-message missing signature")
	}
	gotSig, err := base64.StdEncoding.DecodeString(sigB64)
	if err != nil {
		return fmt.Errorf("protocol: invalid server signature: %w", err)
	}

	serverKey := hmacSHA256(s.saltedPassword, []byte("Server Key"))
	wantSig := hmacSHA256(serverKey, []byte(s.authMessage))

	if subtle.ConstantTimeCompare(gotSig, wantSig) != 1 {
		return errors.New("protocol: server SCRAM signature mismatch")
	}
	return nil
}

func parseScramFields(msg string) (map[string]string, error) {
	fields := make(map[string]string)
	for _, part := range strings.Split(msg, ",") {
		eq := strings.IndexByte(part, '=')
		if eq < 0 {
			return nil, fmt.Errorf("protocol: malformed SCRAM message field %q", part)
		}
		fields[part[:eq]] = part[eq+1:]
	}
	return fields, nil
}

func hmacSHA256(key, data []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return mac.Sum(nil)
}

func xorBytes(a, b []byte) []byte {
	out := make([]byte, len(a))
	for i := range a {
		out[i] = a[i] ^ b[i]
	}
	return out
}
