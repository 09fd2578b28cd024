package crypto

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// Base64Variant - вариант алфавита base64
type Base64Variant int

const (
	// Base64Standard - стандартный алфавит с padding
	Base64Standard Base64Variant = iota

	// Base64Urlsafe - url-safe алфавит с padding (для query-параметров)
	Base64Urlsafe
)

func base64Encoding(variant Base64Variant) *base64.Encoding {
	if variant == Base64Urlsafe {
		return base64.URLEncoding
	}
	return base64.StdEncoding
}

// Base64Encode кодирует данные в base64
func Base64Encode(data []byte, variant Base64Variant) string {
	return base64Encoding(variant).EncodeToString(data)
}

// Base64Decode декодирует base64-строку алфавитом заданного варианта;
// символы другого алфавита не принимаются
func Base64Decode(s string, variant Base64Variant) ([]byte, error) {
	out, err := base64Encoding(variant).DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("base64 decode: %w", err)
	}
	return out, nil
}

// HexEncode кодирует данные в нижний регистр hex
func HexEncode(data []byte) string {
	return hex.EncodeToString(data)
}

// HexDecode декодирует hex-строку
func HexDecode(s string) ([]byte, error) {
	out, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("hex decode: %w", err)
	}
	return out, nil
}

// Adler32 - чексумма Adler-32 (RFC 1950). Протокол использует её для
// хэшей строк ошибок и контроля целостности маленьких блобов
func Adler32(data []byte) uint32 {
	const mod = 65521

	a, b := uint32(1), uint32(0)
	for _, c := range data {
		a = (a + uint32(c)) % mod
		b = (b + a) % mod
	}

	return b<<16 | a
}

// HashAuthKey превращает сырой authkey центрального сервера в хранимый
// долговременный ключ. Доменное разделение, чтобы утёкший хэш нельзя было
// перепутать ни с одним другим применением SHA-256 в протоколе
func HashAuthKey(raw []byte) [32]byte {
	return sha256.Sum256(append([]byte("globed-authkey-v1:"), raw...))
}
