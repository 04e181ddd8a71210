package credentials

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"
)

const (
	saltLength  = 16
	nonceLength = 24
	keyLength   = 32

	// scrypt parameters recommended for interactive logins
	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
)

var ErrSealedDataInvalid = errors.New("sealed credential is invalid or the passphrase is wrong")

// Sealer encrypts credential records with a key derived from a passphrase.
// Layout: salt | nonce | secretbox(ciphertext).
type Sealer struct {
	passphrase []byte
	rand       io.Reader
}

// NewSealer creates a sealer for a non-empty passphrase
func NewSealer(passphrase string) (*Sealer, error) {
	if passphrase == "" {
		return nil, errors.New("[NewSealer] passphrase is required")
	}
	return &Sealer{passphrase: []byte(passphrase), rand: rand.Reader}, nil
}

func (s *Sealer) deriveKey(salt []byte) (*[keyLength]byte, error) {
	k, err := scrypt.Key(s.passphrase, salt, scryptN, scryptR, scryptP, keyLength)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	var key [keyLength]byte
	copy(key[:], k)
	return &key, nil
}

func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	var salt [saltLength]byte
	var nonce [nonceLength]byte
	if _, err := io.ReadFull(s.rand, salt[:]); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	if _, err := io.ReadFull(s.rand, nonce[:]); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	key, err := s.deriveKey(salt[:])
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, saltLength+nonceLength+len(plaintext)+secretbox.Overhead)
	out = append(out, salt[:]...)
	out = append(out, nonce[:]...)
	return secretbox.Seal(out, plaintext, &nonce, key), nil
}

func (s *Sealer) Open(sealed []byte) ([]byte, error) {
	if len(sealed) < saltLength+nonceLength+secretbox.Overhead {
		return nil, ErrSealedDataInvalid
	}
	var nonce [nonceLength]byte
	copy(nonce[:], sealed[saltLength:saltLength+nonceLength])

	key, err := s.deriveKey(sealed[:saltLength])
	if err != nil {
		return nil, err
	}
	plaintext, ok := secretbox.Open(nil, sealed[saltLength+nonceLength:], &nonce, key)
	if !ok {
		return nil, ErrSealedDataInvalid
	}
	return plaintext, nil
}
