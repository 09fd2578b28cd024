package core

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/GlobedGD/globed2-core/session"
)

// ====================================================================
// ErrorQueue - отложенная диагностика
// ====================================================================
//
// Ошибки копятся из любых потоков (сеть, аудио, фоновые проверки)
// и выгребаются главным тиком. Ядро никогда не кидает в пользовательский
// код - всё видимое пользователю проходит через эту очередь.
// ====================================================================

// maxQueuedErrors - потолок очереди; дальше старые вытесняются
const maxQueuedErrors = 64

// ErrorEntry - одна запись диагностики
type ErrorEntry struct {
	Id       uuid.UUID
	Severity session.Severity
	Message  string
	At       time.Time
}

// ErrorQueue - потокобезопасная очередь диагностики
type ErrorQueue struct {
	mu      sync.Mutex
	entries []ErrorEntry
}

// NewErrorQueue создаёт пустую очередь
func NewErrorQueue() *ErrorQueue {
	return &ErrorQueue{}
}

// Push кладёт запись. Безопасен из любого потока
func (q *ErrorQueue) Push(sev session.Severity, message string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) >= maxQueuedErrors {
		q.entries = q.entries[1:]
	}
	q.entries = append(q.entries, ErrorEntry{
		Id:       uuid.New(),
		Severity: sev,
		Message:  message,
		At:       time.Now(),
	})
}

// PushError кладёт ошибку
func (q *ErrorQueue) PushError(sev session.Severity, err error) {
	if err != nil {
		q.Push(sev, err.Error())
	}
}

// Drain забирает все накопленные записи. Зовётся раз в тик
func (q *ErrorQueue) Drain() []ErrorEntry {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) == 0 {
		return nil
	}
	out := q.entries
	q.entries = nil
	return out
}

// Len возвращает размер очереди
func (q *ErrorQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}
