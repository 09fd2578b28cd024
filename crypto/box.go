package crypto

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"
)

// ====================================================================
// Криптография Globed
// ====================================================================
//
// Обмен ключами: X25519 (Curve25519 ECDH)
//   - Клиент и сервер генерируют эфемерные пары ключей
//   - Публичные ключи пересылаются в пакетах хэндшейка
//   - Общий секрет вычисляется через ECDH
//
// Деривация ключей: HKDF-SHA256
//   - Из общего секрета выводятся два ключа:
//     - Client → Server key
//     - Server → Client key
//   - Каждое направление имеет свой ключ (предотвращает reflection attacks)
//
// Шифрование: XChaCha20-Poly1305
//   - AEAD: шифрование + аутентификация в одном
//   - Nonce: 24 байта, случайный, передаётся префиксом шифротекста
//     (у пакетов Globed нет счётчика на проводе, поэтому расширенный
//     nonce обязателен — коллизии 24-байтных случайных nonce нереальны)
//
// ====================================================================

const (
	// KeySize - размер ключа XChaCha20-Poly1305
	KeySize = chacha20poly1305.KeySize // 32 bytes

	// NonceSize - размер nonce XChaCha20-Poly1305
	NonceSize = chacha20poly1305.NonceSizeX // 24 bytes

	// TagSize - размер Poly1305 authentication tag
	TagSize = chacha20poly1305.Overhead // 16 bytes

	// PublicKeySize - размер ключа Curve25519
	PublicKeySize = 32

	// PrefixSize - накладные расходы бокса на одно сообщение
	PrefixSize = NonceSize + TagSize

	// HKDFInfoClient - HKDF info для ключа клиент → сервер
	HKDFInfoClient = "globed client-to-server"

	// HKDFInfoServer - HKDF info для ключа сервер → клиент
	HKDFInfoServer = "globed server-to-client"

	// HKDFSalt - статическая соль для HKDF
	HKDFSalt = "Globed-v1-salt"
)

var (
	ErrDecryptFailed  = errors.New("crypto: decrypt failed (tampering or wrong key)")
	ErrShortBox       = errors.New("crypto: box too short")
	ErrZeroSharedKey  = errors.New("crypto: computed shared secret is zero (possible attack)")
	ErrBadKeyMaterial = errors.New("crypto: bad key material")
)

// KeyPair - пара ключей Curve25519 для обмена ключами
type KeyPair struct {
	// PrivateKey - секретный ключ (32 байта)
	PrivateKey [PublicKeySize]byte

	// PublicKey - публичный ключ (32 байта)
	PublicKey [PublicKeySize]byte
}

// GenerateKeyPair создаёт новую пару ключей Curve25519
func GenerateKeyPair() (*KeyPair, error) {
	kp := &KeyPair{}

	if _, err := rand.Read(kp.PrivateKey[:]); err != nil {
		return nil, fmt.Errorf("generate private key: %w", err)
	}

	// Clamp private key (стандартная процедура для Curve25519)
	kp.PrivateKey[0] &= 248
	kp.PrivateKey[31] &= 127
	kp.PrivateKey[31] |= 64

	pub, err := curve25519.X25519(kp.PrivateKey[:], curve25519.Basepoint)
	if err != nil {
		return nil, fmt.Errorf("compute public key: %w", err)
	}
	copy(kp.PublicKey[:], pub)

	return kp, nil
}

// ComputeSharedSecret вычисляет общий секрет ECDH
func ComputeSharedSecret(myPrivate, theirPublic [PublicKeySize]byte) ([PublicKeySize]byte, error) {
	var shared [PublicKeySize]byte

	result, err := curve25519.X25519(myPrivate[:], theirPublic[:])
	if err != nil {
		return shared, fmt.Errorf("ECDH: %w", err)
	}

	// Проверяем, что результат не нулевой (low-order point attack)
	allZero := true
	for _, b := range result {
		if b != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		return shared, ErrZeroSharedKey
	}

	copy(shared[:], result)
	return shared, nil
}

// Box - симметричный AEAD-бокс с отдельными ключами на направление.
// Формат сообщения: [nonce 24][ciphertext][tag 16]
type Box struct {
	sendCipher cipher.AEAD
	recvCipher cipher.AEAD
}

// NewBox создаёт бокс из готовых ключей направлений
func NewBox(sendKey, recvKey [KeySize]byte) (*Box, error) {
	send, err := chacha20poly1305.NewX(sendKey[:])
	if err != nil {
		return nil, fmt.Errorf("create send cipher: %w", err)
	}
	recv, err := chacha20poly1305.NewX(recvKey[:])
	if err != nil {
		return nil, fmt.Errorf("create recv cipher: %w", err)
	}
	return &Box{sendCipher: send, recvCipher: recv}, nil
}

// DeriveBox выводит ключи шифрования из общего секрета ECDH.
// isClient определяет порядок ключей:
//   - Client: SendKey = client-to-server, RecvKey = server-to-client
//   - Server: SendKey = server-to-client, RecvKey = client-to-server
func DeriveBox(sharedSecret [PublicKeySize]byte, isClient bool) (*Box, error) {
	salt := []byte(HKDFSalt)

	clientToServer, err := deriveKey(sharedSecret[:], salt, HKDFInfoClient)
	if err != nil {
		return nil, fmt.Errorf("derive client-to-server key: %w", err)
	}
	serverToClient, err := deriveKey(sharedSecret[:], salt, HKDFInfoServer)
	if err != nil {
		return nil, fmt.Errorf("derive server-to-client key: %w", err)
	}

	if isClient {
		return NewBox(clientToServer, serverToClient)
	}
	return NewBox(serverToClient, clientToServer)
}

func deriveKey(ikm, salt []byte, info string) ([KeySize]byte, error) {
	var key [KeySize]byte
	r := hkdf.New(sha256.New, ikm, salt, []byte(info))
	if _, err := io.ReadFull(r, key[:]); err != nil {
		return key, err
	}
	return key, nil
}

// Seal шифрует сообщение. Nonce генерируется случайно и кладётся префиксом
func (b *Box) Seal(plaintext []byte) ([]byte, error) {
	out := make([]byte, NonceSize, NonceSize+len(plaintext)+TagSize)
	if _, err := rand.Read(out); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	return b.sendCipher.Seal(out, out[:NonceSize], plaintext, nil), nil
}

// Open расшифровывает сообщение, созданное Seal на другой стороне
func (b *Box) Open(box []byte) ([]byte, error) {
	if len(box) < PrefixSize {
		return nil, ErrShortBox
	}

	plaintext, err := b.recvCipher.Open(nil, box[:NonceSize], box[NonceSize:], nil)
	if err != nil {
		return nil, ErrDecryptFailed
	}

	return plaintext, nil
}
