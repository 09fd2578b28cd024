package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// ====================================================================
// SecretBox - симметричный бокс с ключом, выведенным из пароля
// ====================================================================
//
// Деривация: Argon2id с фиксированной доменной солью.
// Используется для локального хранения токенов (ключ выводится из
// отпечатка платформы) и для запароленных комнат.
//
// Формат сообщения совпадает с Box: [nonce 24][ciphertext][tag 16],
// обе стороны используют один и тот же ключ.
// ====================================================================

const (
	// argon2Time / argon2Memory / argon2Threads - параметры Argon2id.
	// Ключ деривируется редко (логин, смена пароля), можно позволить дорого
	argon2Time    = 1
	argon2Memory  = 64 * 1024
	argon2Threads = 4

	// secretboxSalt - доменная соль деривации пароля
	secretboxSalt = "Globed-secretbox-v1"
)

// SecretBox - бокс с общим ключом для обоих направлений
type SecretBox struct {
	inner *Box
}

// NewSecretBox создаёт бокс из готового 32-байтного ключа
func NewSecretBox(key [KeySize]byte) (*SecretBox, error) {
	inner, err := NewBox(key, key)
	if err != nil {
		return nil, err
	}
	return &SecretBox{inner: inner}, nil
}

// NewSecretBoxFromPassword деривирует ключ из пароля через Argon2id
func NewSecretBoxFromPassword(password string) (*SecretBox, error) {
	if password == "" {
		return nil, fmt.Errorf("%w: empty password", ErrBadKeyMaterial)
	}

	var key [KeySize]byte
	derived := argon2.IDKey([]byte(password), []byte(secretboxSalt),
		argon2Time, argon2Memory, argon2Threads, KeySize)
	copy(key[:], derived)

	return NewSecretBox(key)
}

// NewSecretBoxFromFingerprint деривирует локальный ключ из отпечатка
// платформы. Отпечаток никогда не уходит на провод, ключ чисто локальный
func NewSecretBoxFromFingerprint(fingerprint [32]byte) (*SecretBox, error) {
	// Доменное разделение от остальных применений отпечатка
	key := sha256.Sum256(append([]byte("globed-local-token-key:"), fingerprint[:]...))
	return NewSecretBox(key)
}

// Seal шифрует сообщение
func (sb *SecretBox) Seal(plaintext []byte) ([]byte, error) {
	return sb.inner.Seal(plaintext)
}

// Open расшифровывает сообщение
func (sb *SecretBox) Open(box []byte) ([]byte, error) {
	return sb.inner.Open(box)
}

// RandomKey генерирует случайный ключ бокса
func RandomKey() ([KeySize]byte, error) {
	var key [KeySize]byte
	if _, err := rand.Read(key[:]); err != nil {
		return key, fmt.Errorf("generate key: %w", err)
	}
	return key, nil
}
