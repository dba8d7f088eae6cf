package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrTokenMalformed = errors.New("invalid token format")
	ErrTokenSignature = errors.New("invalid token signature")
	ErrTokenExpired   = errors.New("token expired")
)

// SignedClaims is the content recovered from a valid token.
type SignedClaims struct {
	Subject   string
	Payload   string
	ExpiresAt time.Time
}

// SignedURLSigner issues HMAC tokens binding a subject to a payload until a
// deadline. Media downloads and close confirmations both use it.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSignedURLSigner constructs a signer with the provided secret and TTL.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SignedURLSigner{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// TTL reports how long issued tokens stay valid.
func (s *SignedURLSigner) TTL() time.Duration {
	return s.ttl
}

// Generate returns a token binding subject to payload.
func (s *SignedURLSigner) Generate(subject, payload string) (string, time.Time, error) {
	if subject == "" || payload == "" {
		return "", time.Time{}, fmt.Errorf("subject and payload required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl)
	encSubject := base64.RawURLEncoding.EncodeToString([]byte(subject))
	encPayload := base64.RawURLEncoding.EncodeToString([]byte(payload))
	ts := strconv.FormatInt(expiresAt.Unix(), 10)
	signature := s.sign(encSubject, ts, encPayload)
	return strings.Join([]string{encSubject, ts, encPayload, signature}, "."), expiresAt, nil
}

// Parse validates a token. allowExpired skips the deadline check.
func (s *SignedURLSigner) Parse(token string, allowExpired bool) (SignedClaims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 {
		return SignedClaims{}, ErrTokenMalformed
	}
	encSubject, ts, encPayload, signature := parts[0], parts[1], parts[2], parts[3]

	if !hmac.Equal([]byte(s.sign(encSubject, ts, encPayload)), []byte(signature)) {
		return SignedClaims{}, ErrTokenSignature
	}

	subject, err := base64.RawURLEncoding.DecodeString(encSubject)
	if err != nil {
		return SignedClaims{}, ErrTokenMalformed
	}
	payload, err := base64.RawURLEncoding.DecodeString(encPayload)
	if err != nil {
		return SignedClaims{}, ErrTokenMalformed
	}
	expUnix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return SignedClaims{}, ErrTokenMalformed
	}
	expiresAt := time.Unix(expUnix, 0)
	if !allowExpired && s.now().After(expiresAt) {
		return SignedClaims{}, ErrTokenExpired
	}
	return SignedClaims{Subject: string(subject), Payload: string(payload), ExpiresAt: expiresAt}, nil
}

// Verify reports whether token is valid and bound to exactly subject and payload.
func (s *SignedURLSigner) Verify(token, subject, payload string) error {
	claims, err := s.Parse(token, false)
	if err != nil {
		return err
	}
	if claims.Subject != subject || claims.Payload != payload {
		return ErrTokenSignature
	}
	return nil
}

func (s *SignedURLSigner) sign(parts ...string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(mac.Sum(nil))
}
