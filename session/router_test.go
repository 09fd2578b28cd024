package session

import (
	"testing"

	"go.uber.org/zap"

	"github.com/GlobedGD/globed2-core/data"
)

// ====================================================================
// Тесты роутера
// ====================================================================

func TestRouterPriorityOrder(t *testing.T) {
	r := NewRouter(zap.NewNop())

	var order []int

	r.Listen(data.IdPingResponse, 10, func(data.Packet) DispatchResult {
		order = append(order, 10)
		return Continue
	})
	r.Listen(data.IdPingResponse, -5, func(data.Packet) DispatchResult {
		order = append(order, -5)
		return Continue
	})
	r.Listen(data.IdPingResponse, 0, func(data.Packet) DispatchResult {
		order = append(order, 0)
		return Continue
	})

	r.Dispatch(&data.PingResponsePacket{})

	if len(order) != 3 || order[0] != -5 || order[1] != 0 || order[2] != 10 {
		t.Fatalf("dispatch order: %v", order)
	}
}

func TestRouterStop(t *testing.T) {
	r := NewRouter(zap.NewNop())

	var calls []string
	r.Listen(data.IdLevelData, 0, func(data.Packet) DispatchResult {
		calls = append(calls, "first")
		return Stop
	})
	r.Listen(data.IdLevelData, 1, func(data.Packet) DispatchResult {
		calls = append(calls, "second")
		return Continue
	})

	r.Dispatch(&data.LevelDataPacket{})

	if len(calls) != 1 || calls[0] != "first" {
		t.Fatalf("stop must halt dispatch: %v", calls)
	}
}

func TestRouterUnregister(t *testing.T) {
	r := NewRouter(zap.NewNop())

	count := 0
	handle := r.Listen(data.IdPingResponse, 0, func(data.Packet) DispatchResult {
		count++
		return Continue
	})

	r.Dispatch(&data.PingResponsePacket{})
	handle.Unregister()
	handle.Unregister() // повторное снятие безопасно
	r.Dispatch(&data.PingResponsePacket{})

	if count != 1 {
		t.Fatalf("unregistered listener invoked: count=%d", count)
	}
}

func TestRouterUnregisterDuringDispatch(t *testing.T) {
	r := NewRouter(zap.NewNop())

	count := 0
	var handle *ListenerHandle
	handle = r.Listen(data.IdPingResponse, 0, func(data.Packet) DispatchResult {
		count++
		handle.Unregister()
		return Continue
	})

	// Слушатель снимает себя из собственного обработчика
	r.Dispatch(&data.PingResponsePacket{})
	r.Dispatch(&data.PingResponsePacket{})

	if count != 1 {
		t.Fatalf("self-unregistering listener: count=%d", count)
	}
}
