package core

import (
	"os"
	"runtime"

	"lukechampine.com/blake3"

	"github.com/GlobedGD/globed2-core/crypto"
)

// ====================================================================
// Отпечаток платформы
// ====================================================================
//
// 32-байтный идентификатор машины. Используется РОВНО для одного:
// деривации локального симметричного ключа, которым шифруются
// сохранённые токены в KV-хранилище. На провод не уходит никогда
// и не должен - это не телеметрия и не fingerprinting пользователя.
// ====================================================================

// machineIdPaths - источники стабильного id машины по платформам
var machineIdPaths = []string{
	"/etc/machine-id",
	"/var/lib/dbus/machine-id",
}

// Fingerprint собирает отпечаток платформы
func Fingerprint() [32]byte {
	h := blake3.New(32, nil)

	h.Write([]byte("globed-fingerprint-v1"))
	h.Write([]byte(runtime.GOOS))
	h.Write([]byte(runtime.GOARCH))

	if hostname, err := os.Hostname(); err == nil {
		h.Write([]byte(hostname))
	}

	for _, path := range machineIdPaths {
		if raw, err := os.ReadFile(path); err == nil {
			h.Write(raw)
			break
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		h.Write([]byte(home))
	}

	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// LocalBox возвращает бокс для локально сохраняемых секретов
func LocalBox() (*crypto.SecretBox, error) {
	return crypto.NewSecretBoxFromFingerprint(Fingerprint())
}
