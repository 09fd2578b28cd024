package core

import (
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	"lukechampine.com/blake3"

	"github.com/GlobedGD/globed2-core/crypto"
	"github.com/GlobedGD/globed2-core/session"
)

// ====================================================================
// Проверка целостности ресурсов
// ====================================================================
//
// Побитые или подменённые текстуры мода - источник трудноотлаживаемых
// крашей и жалоб "у меня всё белое". Фоновая проверка хэширует
// файлы ресурсов blake3 и сравнивает с манифестом сборки; расхождения
// всплывают через очередь диагностики на главном тике.
// ====================================================================

// ResourceReader - порт к файлам ресурсов мода
type ResourceReader interface {
	ReadResource(path string) ([]byte, error)
}

// IntegrityChecker - фоновая проверка ресурсов
type IntegrityChecker struct {
	log    *zap.Logger
	reader ResourceReader

	// manifest: путь → hex blake3-хэша из сборки
	manifest map[string]string

	queue *ErrorQueue

	running int32
	done    int32

	// broken - счётчик найденных расхождений
	broken atomic.Int32
}

// NewIntegrityChecker создаёт проверку по манифесту сборки
func NewIntegrityChecker(reader ResourceReader, manifest map[string]string, queue *ErrorQueue, log *zap.Logger) *IntegrityChecker {
	return &IntegrityChecker{
		log:      log,
		reader:   reader,
		manifest: manifest,
		queue:    queue,
	}
}

// Start запускает проверку в фоне. Повторный запуск - no-op
func (c *IntegrityChecker) Start() {
	if !atomic.CompareAndSwapInt32(&c.running, 0, 1) {
		return
	}

	go func() {
		defer atomic.StoreInt32(&c.done, 1)

		for path, expected := range c.manifest {
			raw, err := c.reader.ReadResource(path)
			if err != nil {
				c.broken.Add(1)
				c.queue.Push(session.SeverityWarn,
					fmt.Sprintf("resource check: %s is missing (%v)", path, err))
				continue
			}

			sum := blake3.Sum256(raw)
			if crypto.HexEncode(sum[:]) != expected {
				c.broken.Add(1)
				c.queue.Push(session.SeverityWarn,
					fmt.Sprintf("resource check: %s is corrupt or modified", path))
			}
		}

		c.log.Info("resource integrity check finished",
			zap.Int("files", len(c.manifest)),
			zap.Int32("broken", c.broken.Load()))
	}()
}

// Done сообщает, завершилась ли проверка
func (c *IntegrityChecker) Done() bool { return atomic.LoadInt32(&c.done) == 1 }

// Broken возвращает число расхождений
func (c *IntegrityChecker) Broken() int { return int(c.broken.Load()) }
