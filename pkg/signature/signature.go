package signature

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/subtle"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"smileid/pkg/domain"
	dErrors "smileid/pkg/domain-errors"
)

// Separator joins the encrypted and hashed halves of a sec_key.
const Separator = "|"

// Token is a single-use security token. It embeds the timestamp it was computed with.
type Token struct {
	SecKey    string `json:"sec_key"`
	Timestamp int64  `json:"timestamp"`
}

// Signer produces and confirms tokens for one partner. It holds no per-request
// state and is safe for concurrent use.
type Signer struct {
	partnerID domain.PartnerID
	publicKey *rsa.PublicKey
	now       func() time.Time
	random    io.Reader
}

// Option configures a Signer.
type Option func(*Signer)

// WithClock overrides the wall clock used when no timestamp is supplied.
func WithClock(now func() time.Time) Option {
	return func(s *Signer) {
		s.now = now
	}
}

// WithRandom overrides the entropy source used for RSA padding.
func WithRandom(r io.Reader) Option {
	return func(s *Signer) {
		s.random = r
	}
}

// NewSigner parses partner credentials. apiKey is the service RSA public key,
// accepted as PEM, base64 encoded PEM, or base64 encoded DER (PKIX or PKCS#1).
func NewSigner(partnerID, apiKey string, opts ...Option) (*Signer, error) {
	pid, err := domain.ParsePartnerID(partnerID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "api_key cannot be empty")
	}
	pub, err := ParsePublicKey(apiKey)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "api_key is not a valid RSA public key")
	}

	s := &Signer{
		partnerID: pid,
		publicKey: pub,
		now:       time.Now,
		random:    rand.Reader,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// PartnerID returns the partner id the signer was built with.
func (s *Signer) PartnerID() domain.PartnerID {
	return s.partnerID
}

// Generate computes a fresh token. With no argument the current epoch second is
// used; a supplied timestamp is used verbatim.
func (s *Signer) Generate(timestamp ...int64) (Token, error) {
	ts := s.now().Unix()
	if len(timestamp) > 0 {
		ts = timestamp[0]
	}

	hashed := s.hash(ts)
	encrypted, err := rsa.EncryptPKCS1v15(s.random, s.publicKey, []byte(hashed))
	if err != nil {
		return Token{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encrypt sec_key")
	}

	return Token{
		SecKey:    base64.StdEncoding.EncodeToString(encrypted) + Separator + hashed,
		Timestamp: ts,
	}, nil
}

// Hash returns the deterministic hash half for a timestamp.
func (s *Signer) Hash(timestamp int64) string {
	return s.hash(timestamp)
}

// Confirm reports whether serverSignature authenticates timestamp. The
// signature may be a bare hash or a full "encrypted|hashed" sec_key.
// It never fails: an unparseable timestamp simply does not confirm.
func (s *Signer) Confirm(timestamp string, serverSignature string) bool {
	ts, err := strconv.ParseInt(strings.TrimSpace(timestamp), 10, 64)
	if err != nil {
		return false
	}
	got := serverSignature
	if _, hashed, ok := SplitSecKey(serverSignature); ok {
		got = hashed
	}
	want := s.hash(ts)
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

func (s *Signer) hash(ts int64) string {
	sum := sha256.Sum256([]byte(s.partnerID.Canonical() + ":" + strconv.FormatInt(ts, 10)))
	return hex.EncodeToString(sum[:])
}

// SplitSecKey separates a sec_key into its encrypted and hashed halves.
func SplitSecKey(secKey string) (encrypted, hashed string, ok bool) {
	encrypted, hashed, ok = strings.Cut(secKey, Separator)
	if !ok || encrypted == "" || hashed == "" {
		return "", "", false
	}
	return encrypted, hashed, true
}

// ParsePublicKey decodes an RSA public key in any of the accepted encodings.
func ParsePublicKey(material string) (*rsa.PublicKey, error) {
	material = strings.TrimSpace(material)

	der, err := keyDER(material)
	if err != nil {
		return nil, err
	}

	if pub, err := x509.ParsePKIXPublicKey(der); err == nil {
		rsaPub, ok := pub.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("key type %T is not RSA", pub)
		}
		return rsaPub, nil
	}
	if pub, err := x509.ParsePKCS1PublicKey(der); err == nil {
		return pub, nil
	}
	if cert, err := x509.ParseCertificate(der); err == nil {
		rsaPub, ok := cert.PublicKey.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("certificate key type %T is not RSA", cert.PublicKey)
		}
		return rsaPub, nil
	}
	return nil, errors.New("unrecognized public key encoding")
}

func keyDER(material string) ([]byte, error) {
	if block, _ := pem.Decode([]byte(material)); block != nil {
		return block.Bytes, nil
	}
	raw, err := base64.StdEncoding.DecodeString(material)
	if err != nil {
		return nil, fmt.Errorf("decode base64 key: %w", err)
	}
	if block, _ := pem.Decode(raw); block != nil {
		return block.Bytes, nil
	}
	return raw, nil
}
