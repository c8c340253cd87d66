package secwcrypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSize       = 16
	nonceSize      = 12
	pbkdf2Rounds   = 100_000
	derivedKeySize = 32
)

// ErrBadPassphrase is returned by Unwrap when the supplied key cannot
// authenticate the ciphertext (wrong passphrase or corrupted opaque
// string).
var ErrBadPassphrase = errors.New("bad passphrase")

// Wrap implements the SRR symmetric wrap contract: pairs (plaintext, key)
// map to an opaque string such that Unwrap(Wrap(k, k), k) == k. The key is
// passed through PBKDF2-SHA256 with a random salt to derive an AES-256-GCM
// key; the opaque string is base64(salt || nonce || ciphertext).
func Wrap(plaintext []byte, key string) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	derived := pbkdf2.Key([]byte(key), salt, pbkdf2Rounds, derivedKeySize, sha256.New)

	block, err := aes.NewCipher(derived)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)

	out := make([]byte, 0, len(salt)+len(nonce)+len(ciphertext))
	out = append(out, salt...)
	out = append(out, nonce...)
	out = append(out, ciphertext...)

	return base64.StdEncoding.EncodeToString(out), nil
}

// Unwrap reverses Wrap. Returns ErrBadPassphrase if key does not
// authenticate the ciphertext or the opaque string is malformed.
func Unwrap(opaque string, key string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(opaque)
	if err != nil {
		return nil, ErrBadPassphrase
	}
	if len(raw) < saltSize+nonceSize {
		return nil, ErrBadPassphrase
	}

	salt := raw[:saltSize]
	nonce := raw[saltSize : saltSize+nonceSize]
	ciphertext := raw[saltSize+nonceSize:]

	derived := pbkdf2.Key([]byte(key), salt, pbkdf2Rounds, derivedKeySize, sha256.New)

	block, err := aes.NewCipher(derived)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrBadPassphrase
	}
	return plaintext, nil
}

// WrapString is a convenience wrapper around Wrap for string plaintexts
// (the passphrase-check and platform-check fields in the SRR save payload).
func WrapString(plaintext string, key string) (string, error) {
	return Wrap([]byte(plaintext), key)
}

// UnwrapString is the string counterpart of Unwrap.
func UnwrapString(opaque string, key string) (string, error) {
	data, err := Unwrap(opaque, key)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
