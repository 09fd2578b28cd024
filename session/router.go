package session

import (
	"sort"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/GlobedGD/globed2-core/data"
)

// ====================================================================
// Router - диспетчер входящих пакетов
// ====================================================================
//
// Таблица id → список слушателей, упорядоченных по приоритету
// (меньше - раньше). Слушатель возвращает Continue или Stop;
// Stop прекращает дальнейшую доставку этого пакета.
//
// Диспетчеризация только на главном тике, поэтому внутри никаких
// локов: регистрация и снятие слушателей видны между пакетами,
// но не посреди доставки одного пакета.
// ====================================================================

// DispatchResult - решение слушателя о дальнейшей доставке
type DispatchResult int

const (
	// Continue - передать пакет следующим слушателям
	Continue DispatchResult = iota

	// Stop - прекратить доставку пакета
	Stop
)

// Handler - обработчик пакета
type Handler func(packet data.Packet) DispatchResult

type listenerEntry struct {
	id       uint64
	priority int32
	handler  Handler
}

// ListenerHandle - снимает слушателя при Unregister.
// Повторный Unregister безопасен
type ListenerHandle struct {
	router   *Router
	packetId data.PacketId
	id       uint64
	dead     atomic.Bool
}

// Unregister снимает слушателя. Конкурентная доставка видит снятие
// только между пакетами
func (h *ListenerHandle) Unregister() {
	if h == nil || h.dead.Swap(true) {
		return
	}
	h.router.remove(h.packetId, h.id)
}

// Router - реестр слушателей пакетов
type Router struct {
	listeners map[data.PacketId][]listenerEntry
	nextId    uint64
	log       *zap.Logger
}

// NewRouter создаёт пустой роутер
func NewRouter(log *zap.Logger) *Router {
	return &Router{
		listeners: make(map[data.PacketId][]listenerEntry),
		log:       log,
	}
}

// Listen регистрирует слушателя пакета с данным id.
// Меньший priority вызывается раньше
func (r *Router) Listen(id data.PacketId, priority int32, handler Handler) *ListenerHandle {
	r.nextId++
	entry := listenerEntry{id: r.nextId, priority: priority, handler: handler}

	list := append(r.listeners[id], entry)
	sort.SliceStable(list, func(i, j int) bool { return list[i].priority < list[j].priority })
	r.listeners[id] = list

	return &ListenerHandle{router: r, packetId: id, id: entry.id}
}

func (r *Router) remove(packetId data.PacketId, id uint64) {
	list := r.listeners[packetId]
	for i, entry := range list {
		if entry.id == id {
			r.listeners[packetId] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

// Dispatch доставляет пакет слушателям в порядке приоритета
func (r *Router) Dispatch(packet data.Packet) {
	// Копия списка: слушатель может снять себя или зарегистрировать
	// нового прямо из обработчика
	list := r.listeners[packet.PacketId()]
	if len(list) == 0 {
		r.log.Debug("packet without listeners",
			zap.Uint16("id", uint16(packet.PacketId())))
		return
	}

	snapshot := make([]listenerEntry, len(list))
	copy(snapshot, list)

	for _, entry := range snapshot {
		if entry.handler(packet) == Stop {
			return
		}
	}
}

// Clear снимает всех слушателей
func (r *Router) Clear() {
	r.listeners = make(map[data.PacketId][]listenerEntry)
}
