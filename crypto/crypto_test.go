package crypto

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// ====================================================================
// Тесты криптографии
// ====================================================================

func TestBoxRoundTrip(t *testing.T) {
	alice, err := GenerateKeyPair()
	require.NoError(t, err)
	bob, err := GenerateKeyPair()
	require.NoError(t, err)

	sharedA, err := ComputeSharedSecret(alice.PrivateKey, bob.PublicKey)
	require.NoError(t, err)
	sharedB, err := ComputeSharedSecret(bob.PrivateKey, alice.PublicKey)
	require.NoError(t, err)

	// Общий секрет одинаков на обеих сторонах
	require.Equal(t, sharedA, sharedB)

	client, err := DeriveBox(sharedA, true)
	require.NoError(t, err)
	server, err := DeriveBox(sharedB, false)
	require.NoError(t, err)

	msg := []byte("hello from the client")

	box, err := client.Seal(msg)
	require.NoError(t, err)

	out, err := server.Open(box)
	require.NoError(t, err)
	require.Equal(t, msg, out)

	// И в обратную сторону
	box2, err := server.Seal([]byte("hello from the server"))
	require.NoError(t, err)
	out2, err := client.Open(box2)
	require.NoError(t, err)
	require.Equal(t, []byte("hello from the server"), out2)
}

func TestBoxDirectionality(t *testing.T) {
	alice, _ := GenerateKeyPair()
	bob, _ := GenerateKeyPair()

	shared, _ := ComputeSharedSecret(alice.PrivateKey, bob.PublicKey)

	client, _ := DeriveBox(shared, true)

	// Reflection: клиент не должен уметь расшифровать собственное сообщение
	box, err := client.Seal([]byte("reflected"))
	require.NoError(t, err)

	_, err = client.Open(box)
	require.ErrorIs(t, err, ErrDecryptFailed)
}

func TestBoxTamper(t *testing.T) {
	alice, _ := GenerateKeyPair()
	bob, _ := GenerateKeyPair()

	shared, _ := ComputeSharedSecret(alice.PrivateKey, bob.PublicKey)
	client, _ := DeriveBox(shared, true)
	server, _ := DeriveBox(shared, false)

	box, _ := client.Seal([]byte("payload"))

	// Флипаем один байт шифротекста
	box[len(box)-1] ^= 0x01

	_, err := server.Open(box)
	require.ErrorIs(t, err, ErrDecryptFailed)
}

func TestBoxShort(t *testing.T) {
	key, _ := RandomKey()
	sb, _ := NewSecretBox(key)

	_, err := sb.Open([]byte{1, 2, 3})
	require.ErrorIs(t, err, ErrShortBox)
}

func TestSecretBoxPassword(t *testing.T) {
	sb1, err := NewSecretBoxFromPassword("hunter2")
	require.NoError(t, err)
	sb2, err := NewSecretBoxFromPassword("hunter2")
	require.NoError(t, err)

	box, err := sb1.Seal([]byte("same password, same key"))
	require.NoError(t, err)

	out, err := sb2.Open(box)
	require.NoError(t, err)
	require.Equal(t, []byte("same password, same key"), out)

	// Другой пароль - другой ключ
	sb3, _ := NewSecretBoxFromPassword("hunter3")
	_, err = sb3.Open(box)
	require.ErrorIs(t, err, ErrDecryptFailed)

	_, err = NewSecretBoxFromPassword("")
	require.Error(t, err)
}

func TestAdler32(t *testing.T) {
	// Известный вектор: "Wikipedia" -> 0x11E60398
	if got := Adler32([]byte("Wikipedia")); got != 0x11E60398 {
		t.Errorf("Adler32: got 0x%08x, want 0x11E60398", got)
	}

	if got := Adler32(nil); got != 1 {
		t.Errorf("Adler32(nil): got %d, want 1", got)
	}
}

func TestBase64Variants(t *testing.T) {
	data := []byte{0xfb, 0xff, 0x00, 0x7e, 0x3d}

	std := Base64Encode(data, Base64Standard)
	url := Base64Encode(data, Base64Urlsafe)

	out1, err := Base64Decode(std, Base64Standard)
	require.NoError(t, err)
	out2, err := Base64Decode(url, Base64Urlsafe)
	require.NoError(t, err)

	require.True(t, bytes.Equal(data, out1))
	require.True(t, bytes.Equal(data, out2))
}

func TestTOTP(t *testing.T) {
	// Фиксированный момент - детерминированный код
	key := []byte("0123456789abcdef0123456789abcdef")
	at := time.Unix(1_700_000_000, 0)

	code := TOTP(key, at)
	require.Len(t, code, TOTPDigits)
	require.Equal(t, code, TOTP(key, at.Add(time.Second)))

	// Код валиден в пределах шага и допуска
	require.True(t, TOTPVerify(key, code, at))
	require.True(t, TOTPVerify(key, code, at.Add(TOTPStep)))

	// Через три шага - уже нет
	require.False(t, TOTPVerify(key, code, at.Add(3*TOTPStep)))
}

func TestHashAuthKeyStable(t *testing.T) {
	a := HashAuthKey([]byte("key material"))
	b := HashAuthKey([]byte("key material"))
	require.Equal(t, a, b)

	c := HashAuthKey([]byte("other material"))
	require.NotEqual(t, a, c)
}
