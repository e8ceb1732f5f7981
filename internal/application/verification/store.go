package verification

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/go-passwordless/internal/domain"
)

const (
	DefaultCodeDigits = 4
	DefaultCodeTTL    = 5 * time.Minute

	maxCodeDigits = 18
)

// CodeStore holds at most one outstanding code per address.
type CodeStore interface {
	CreateCode(address string) (string, error)
	VerifyCode(address, code string) bool
	RemoveCode(address, code string) error
	Destroy()
}

// Options configures a MemoryStore. Zero values select the defaults.
type Options struct {
	Digits int
	TTL    time.Duration
	// SweepInterval enables a background goroutine that drops expired
	// entries. Expiry is always enforced on read regardless.
	SweepInterval time.Duration
	Now           func() time.Time
	Rand          io.Reader
}

// MemoryStore is an in-process CodeStore. All operations on the map happen
// under one mutex, so verify-and-consume is atomic per address.
type MemoryStore struct {
	mu    sync.Mutex
	codes map[string]domain.VerificationCode

	digits int
	ttl    time.Duration
	now    func() time.Time
	rand   io.Reader

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func NewMemoryStore(opts Options) *MemoryStore {
	s := &MemoryStore{
		codes:  make(map[string]domain.VerificationCode),
		digits: opts.Digits,
		ttl:    opts.TTL,
		now:    opts.Now,
		rand:   opts.Rand,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	if s.digits <= 0 {
		s.digits = DefaultCodeDigits
	}
	if s.ttl <= 0 {
		s.ttl = DefaultCodeTTL
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.rand == nil {
		s.rand = rand.Reader
	}
	if opts.SweepInterval > 0 {
		go s.sweep(opts.SweepInterval)
	} else {
		close(s.done)
	}
	return s
}

// CreateCode generates a new code for address, replacing any previous one.
func (s *MemoryStore) CreateCode(address string) (string, error) {
	if address == "" {
		return "", fmt.Errorf("address is required: %w", domain.ErrInvalidArgument)
	}
	code, err := GenerateCode(s.rand, s.digits)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.codes[address] = domain.VerificationCode{
		Address:   address,
		Code:      code,
		ExpiresAt: s.now().Add(s.ttl),
	}
	s.mu.Unlock()
	slog.Debug("verification code created", "address", address)
	return code, nil
}

// VerifyCode reports whether code is the outstanding, unexpired code for
// address. A successful match consumes the code.
func (s *MemoryStore) VerifyCode(address, code string) bool {
	if address == "" || code == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.codes[address]
	if !ok {
		return false
	}
	if entry.Expired(s.now()) {
		delete(s.codes, address)
		slog.Debug("verification code expired", "address", address)
		return false
	}
	if subtle.ConstantTimeCompare([]byte(entry.Code), []byte(code)) != 1 {
		return false
	}
	delete(s.codes, address)
	slog.Debug("verification code consumed", "address", address)
	return true
}

// RemoveCode drops the code for address if it is still code. Removing a code
// that is absent or already replaced is a no-op.
func (s *MemoryStore) RemoveCode(address, code string) error {
	if address == "" {
		return fmt.Errorf("address is required: %w", domain.ErrInvalidArgument)
	}
	if code == "" {
		return fmt.Errorf("code is required: %w", domain.ErrInvalidArgument)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.codes[address]; ok && entry.Code == code {
		delete(s.codes, address)
		slog.Debug("verification code removed", "address", address)
	}
	return nil
}

// Destroy stops the sweep goroutine and drops every entry.
func (s *MemoryStore) Destroy() {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
	s.mu.Lock()
	s.codes = make(map[string]domain.VerificationCode)
	s.mu.Unlock()
}

// Len returns the number of stored entries, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.codes)
}

func (s *MemoryStore) sweep(interval time.Duration) {
	defer close(s.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if n := s.removeExpired(); n > 0 {
				slog.Debug("expired verification codes swept", "count", n)
			}
		}
	}
}

func (s *MemoryStore) removeExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	n := 0
	for address, entry := range s.codes {
		if entry.Expired(now) {
			delete(s.codes, address)
			n++
		}
	}
	return n
}

// GenerateCode returns a zero-padded decimal string of the given width drawn
// uniformly from [0, 10^digits). Values above the largest multiple of 10^digits
// are rejected to avoid modulo bias.
func GenerateCode(r io.Reader, digits int) (string, error) {
	if digits <= 0 || digits > maxCodeDigits {
		return "", fmt.Errorf("code width must be between 1 and %d, got %d: %w", maxCodeDigits, digits, domain.ErrInvalidArgument)
	}
	limit := uint64(1)
	for i := 0; i < digits; i++ {
		limit *= 10
	}
	ceiling := math.MaxUint64 - math.MaxUint64%limit
	var b [8]byte
	for {
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return "", fmt.Errorf("generate code: %w", err)
		}
		if v := binary.BigEndian.Uint64(b[:]); v < ceiling {
			return fmt.Sprintf("%0*d", digits, v%limit), nil
		}
	}
}
