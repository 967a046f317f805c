package filestore

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/jrsteele09/go-session-client/session"
	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"
)

const (
	fileVersion = 1

	keyLength        = 32
	saltLength       = 16
	nonceLength      = 24
	defaultScryptN   = 1 << 15
	scryptR, scryptP = 8, 1
)

// ErrDecrypt is returned when a sealed session file cannot be opened with
// the configured passphrase.
var ErrDecrypt = errors.New("session file could not be decrypted")

var _ session.Storage = (*Store)(nil)

type fileFormat struct {
	Version int            `json:"version"`
	Record  session.Record `json:"record,omitempty"`
	Salt    []byte         `json:"salt,omitempty"`
	Nonce   []byte         `json:"nonce,omitempty"`
	Sealed  []byte         `json:"sealed,omitempty"`
}

// Store keeps the session in a single JSON file. Writes go to a temporary
// file that is renamed over the target, so readers see either the old or
// the new session. With a passphrase the record is sealed with secretbox
// under an scrypt-derived key.
type Store struct {
	path       string
	passphrase []byte
	scryptN    int

	mu      sync.Mutex
	keySalt []byte
	key     *[keyLength]byte
}

type Option func(*Store)

// WithPassphrase enables at-rest encryption.
func WithPassphrase(passphrase string) Option {
	return func(s *Store) {
		if passphrase != "" {
			s.passphrase = []byte(passphrase)
		}
	}
}

// WithKeyDerivationCost overrides the scrypt N parameter (power of two).
func WithKeyDerivationCost(n int) Option {
	return func(s *Store) {
		s.scryptN = n
	}
}

func New(path string, options ...Option) *Store {
	s := &Store{path: path, scryptN: defaultScryptN}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) Encrypted() bool {
	return len(s.passphrase) > 0
}

func (s *Store) Load(_ context.Context) (session.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return session.Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("[filestore Load] read %s: %w", s.path, err)
	}

	var f fileFormat
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("[filestore Load] decode %s: %w", s.path, err)
	}
	if f.Sealed == nil {
		if f.Record == nil {
			return session.Record{}, nil
		}
		return f.Record, nil
	}
	if !s.Encrypted() {
		return nil, fmt.Errorf("[filestore Load] %s is encrypted and no passphrase is configured: %w", s.path, ErrDecrypt)
	}
	return s.open(f)
}

func (s *Store) Save(_ context.Context, record session.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := fileFormat{Version: fileVersion, Record: record}
	if s.Encrypted() {
		sealed, err := s.seal(record)
		if err != nil {
			return err
		}
		f = sealed
	}

	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("[filestore Save] encode: %w", err)
	}
	return s.writeAtomic(data)
}

func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("[filestore Clear] remove %s: %w", s.path, err)
	}
	return nil
}

func (s *Store) writeAtomic(data []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("[filestore Save] mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".session-*.tmp")
	if err != nil {
		return fmt.Errorf("[filestore Save] create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("[filestore Save] write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("[filestore Save] sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("[filestore Save] close: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return fmt.Errorf("[filestore Save] chmod: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("[filestore Save] rename: %w", err)
	}
	return nil
}

func (s *Store) seal(record session.Record) (fileFormat, error) {
	plain, err := json.Marshal(record)
	if err != nil {
		return fileFormat{}, fmt.Errorf("[filestore seal] encode: %w", err)
	}

	if s.keySalt == nil {
		salt := make([]byte, saltLength)
		if _, err := io.ReadFull(rand.Reader, salt); err != nil {
			return fileFormat{}, fmt.Errorf("[filestore seal] salt: %w", err)
		}
		if _, err := s.deriveKey(salt); err != nil {
			return fileFormat{}, err
		}
	}

	var nonce [nonceLength]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return fileFormat{}, fmt.Errorf("[filestore seal] nonce: %w", err)
	}

	return fileFormat{
		Version: fileVersion,
		Salt:    s.keySalt,
		Nonce:   nonce[:],
		Sealed:  secretbox.Seal(nil, plain, &nonce, s.key),
	}, nil
}

func (s *Store) open(f fileFormat) (session.Record, error) {
	if len(f.Nonce) != nonceLength || len(f.Salt) == 0 {
		return nil, fmt.Errorf("[filestore open] invalid envelope: %w", ErrDecrypt)
	}
	key, err := s.deriveKey(f.Salt)
	if err != nil {
		return nil, err
	}

	var nonce [nonceLength]byte
	copy(nonce[:], f.Nonce)
	plain, ok := secretbox.Open(nil, f.Sealed, &nonce, key)
	if !ok {
		return nil, fmt.Errorf("[filestore open] %s: %w", s.path, ErrDecrypt)
	}

	record := session.Record{}
	if err := json.Unmarshal(plain, &record); err != nil {
		return nil, fmt.Errorf("[filestore open] decode: %w", err)
	}
	return record, nil
}

// deriveKey caches the key for the most recent salt; scrypt is slow on purpose.
func (s *Store) deriveKey(salt []byte) (*[keyLength]byte, error) {
	if s.key != nil && string(salt) == string(s.keySalt) {
		return s.key, nil
	}
	derived, err := scrypt.Key(s.passphrase, salt, s.scryptN, scryptR, scryptP, keyLength)
	if err != nil {
		return nil, fmt.Errorf("[filestore deriveKey] scrypt: %w", err)
	}
	var key [keyLength]byte
	copy(key[:], derived)
	s.key = &key
	s.keySalt = append([]byte(nil), salt...)
	return s.key, nil
}
