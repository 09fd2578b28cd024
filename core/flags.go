package core

import "strings"

// ====================================================================
// Флаги запуска
// ====================================================================
//
// Отладочные рычаги с префиксом globed-. Понимаются и как аргументы
// командной строки ("--globed-no-ssl-verify"), и как переменные
// окружения ("GLOBED_NO_SSL_VERIFY=1").
// ====================================================================

// Flags - разобранные флаги запуска
type Flags struct {
	// SkipResourceCheck выключает фоновую проверку ресурсов
	SkipResourceCheck bool

	// NoSSLVerify выключает верификацию сертификатов (дев-серверы)
	NoSSLVerify bool

	// DebugInterpolation включает покадровый лог интерполятора
	DebugInterpolation bool
}

var knownFlags = map[string]func(*Flags){
	"globed-skip-resource-check": func(f *Flags) { f.SkipResourceCheck = true },
	"globed-no-ssl-verify":       func(f *Flags) { f.NoSSLVerify = true },
	"globed-debug-interpolation": func(f *Flags) { f.DebugInterpolation = true },
}

// ParseFlags разбирает аргументы и окружение
func ParseFlags(args []string, getenv func(string) string) Flags {
	var flags Flags

	for _, arg := range args {
		name := strings.TrimLeft(arg, "-")
		if apply, ok := knownFlags[name]; ok {
			apply(&flags)
		}
	}

	for name, apply := range knownFlags {
		env := strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
		if v := getenv(env); v != "" && v != "0" && v != "false" {
			apply(&flags)
		}
	}

	return flags
}
