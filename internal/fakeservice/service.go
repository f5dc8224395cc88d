// Package fakeservice is an in-process stand-in for the verification
// service. It checks sec_keys with the service private key, allocates upload
// slots, accepts archives and answers job status and id verification
// requests with signed responses. It backs the client tests and the
// smileid-fake development server.
package fakeservice

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"

	"smileid/pkg/domain"
	"smileid/pkg/signature"
	"smileid/pkg/validation"
)

// Config controls the fake's behavior.
type Config struct {
	PartnerID domain.PartnerID
	Key       *rsa.PrivateKey
	// CompleteAfter is the number of job status queries answered with
	// job_complete=false before a job completes. Negative means never.
	CompleteAfter int
	// ResultCode is returned by id verification; empty means success.
	ResultCode string
	// Schema is served by /services; nil serves the default schema.
	Schema validation.Schema
	// BaseURL prefixes upload URLs; empty derives it from the request host.
	BaseURL string
}

// Archive is an uploaded job archive.
type Archive struct {
	SmileJobID  string
	ContentType string
	Bytes       []byte
}

// Service holds the fake's state. It is safe for concurrent use.
type Service struct {
	cfg    Config
	apiKey string
	signer *signature.Signer

	mu            sync.Mutex
	calls         map[string]int
	polls         map[domain.JobID]int
	slots         map[string]domain.PartnerParams
	archives      map[string]Archive
	failures      map[string]int
	badSignatures bool
	nextJob       int
}

// New creates a fake. A nil key generates a fresh 2048-bit key.
func New(cfg Config) (*Service, error) {
	if cfg.PartnerID == "" {
		return nil, errors.New("fakeservice: partner id is required")
	}
	if cfg.Key == nil {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			return nil, fmt.Errorf("fakeservice: generate key: %w", err)
		}
		cfg.Key = key
	}
	if cfg.Schema == nil {
		cfg.Schema = validation.DefaultSchema()
	}
	der, err := x509.MarshalPKIXPublicKey(&cfg.Key.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("fakeservice: marshal public key: %w", err)
	}
	apiKey := base64.StdEncoding.EncodeToString(der)
	signer, err := signature.NewSigner(cfg.PartnerID.String(), apiKey)
	if err != nil {
		return nil, fmt.Errorf("fakeservice: build signer: %w", err)
	}
	return &Service{
		cfg:      cfg,
		apiKey:   apiKey,
		signer:   signer,
		calls:    make(map[string]int),
		polls:    make(map[domain.JobID]int),
		slots:    make(map[string]domain.PartnerParams),
		archives: make(map[string]Archive),
		failures: make(map[string]int),
	}, nil
}

// PublicKey returns the service public key.
func (s *Service) PublicKey() *rsa.PublicKey {
	return &s.cfg.Key.PublicKey
}

// APIKey returns the public key in the base64 DER form partners are issued.
func (s *Service) APIKey() string {
	return s.apiKey
}

// FailNext makes the next n calls to endpoint answer 500.
func (s *Service) FailNext(endpoint string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[endpoint] = n
}

// SignResponsesBadly makes job status responses carry a signature for the
// wrong timestamp.
func (s *Service) SignResponsesBadly(bad bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.badSignatures = bad
}

// Calls returns how often endpoint was called.
func (s *Service) Calls(endpoint string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[endpoint]
}

// Archive returns the archive uploaded for a smile job id.
func (s *Service) Archive(smileJobID string) (Archive, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.archives[smileJobID]
	return a, ok
}

// record counts a call and reports whether it should fail.
func (s *Service) record(endpoint string) (fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[endpoint]++
	if s.failures[endpoint] > 0 {
		s.failures[endpoint]--
		return true
	}
	return false
}

func (s *Service) allocateSlot(params domain.PartnerParams) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextJob++
	id := fmt.Sprintf("%010d", s.nextJob)
	s.slots[id] = params
	return id
}

func (s *Service) storeArchive(a Archive) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.slots[a.SmileJobID]; !ok {
		return false
	}
	s.archives[a.SmileJobID] = a
	return true
}

// poll counts a status query and reports whether the job is complete.
func (s *Service) poll(jobID domain.JobID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.polls[jobID]++
	if s.cfg.CompleteAfter < 0 {
		return false
	}
	return s.polls[jobID] > s.cfg.CompleteAfter
}

func (s *Service) signBadly() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.badSignatures
}

// hash computes the hash half the partner must present for timestamp.
func (s *Service) hash(timestamp int64) string {
	return s.signer.Hash(timestamp)
}

// verifySecKey checks both halves of a sec_key against the timestamp.
func (s *Service) verifySecKey(secKey string, timestamp int64) error {
	encrypted, hashed, ok := signature.SplitSecKey(secKey)
	if !ok {
		return errors.New("malformed sec_key")
	}
	raw, err := base64.StdEncoding.DecodeString(encrypted)
	if err != nil {
		return errors.New("encrypted half is not base64")
	}
	plain, err := rsa.DecryptPKCS1v15(rand.Reader, s.cfg.Key, raw)
	if err != nil {
		return errors.New("encrypted half does not decrypt")
	}
	if string(plain) != hashed {
		return errors.New("sec_key halves disagree")
	}
	if hashed != s.hash(timestamp) {
		return errors.New("sec_key does not match partner and timestamp")
	}
	return nil
}
