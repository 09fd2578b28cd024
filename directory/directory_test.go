package directory

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/GlobedGD/globed2-core/data"
	"github.com/GlobedGD/globed2-core/settings"
)

// ====================================================================
// Тесты реестра серверов
// ====================================================================

func sampleEntries() []data.GameServerEntry {
	return []data.GameServerEntry{
		{Id: "eu-1", Name: "Europe 1", Address: "eu1.globed.dev:4201", Region: "EU"},
		{Id: "us-1", Name: "US 1", Address: "us1.globed.dev:4201", Region: "US"},
	}
}

func TestSetServersAssignsNumericIds(t *testing.T) {
	d := New(settings.NewMemoryStore(), zap.NewNop())
	d.SetServers(sampleEntries(), nil)

	srv, ok := d.Server("us-1")
	require.True(t, ok)
	require.Equal(t, uint8(1), srv.NumericId)
	require.Equal(t, int32(-1), srv.Ping)

	byNum, ok := d.ServerByNumericId(0)
	require.True(t, ok)
	require.Equal(t, "eu-1", byNum.Entry.Id)
}

func TestActivePersisted(t *testing.T) {
	store := settings.NewMemoryStore()

	d := New(store, zap.NewNop())
	d.SetServers(sampleEntries(), nil)
	d.SetActiveServer("us-1")
	require.NoError(t, d.SetActiveCentral(0))

	// Новый реестр поверх того же стора помнит выбор
	d2 := New(store, zap.NewNop())
	d2.SetServers(sampleEntries(), nil)

	srv, ok := d2.ActiveServer()
	require.True(t, ok)
	require.Equal(t, "us-1", srv.Entry.Id)
}

func TestServersCache(t *testing.T) {
	store := settings.NewMemoryStore()
	entries := sampleEntries()
	payload, _ := json.Marshal(entries)

	d := New(store, zap.NewNop())
	d.SetServers(entries, payload)

	// Оффлайн-старт: список поднимается из кэша
	d2 := New(store, zap.NewNop())
	require.NoError(t, d2.InitFromCache())
	require.Len(t, d2.Servers(), 2)

	_, ok := d2.Server("eu-1")
	require.True(t, ok)
}

func TestPingRoundTrip(t *testing.T) {
	d := New(settings.NewMemoryStore(), zap.NewNop())
	d.SetServers(sampleEntries(), nil)

	start := time.Unix(1_700_000_000, 0)
	d.RecordPingSent("eu-1", 7, start)

	rtt, ok := d.RecordPingReply("eu-1", 7, 25, start.Add(42*time.Millisecond))
	require.True(t, ok)
	require.Equal(t, 42*time.Millisecond, rtt)

	srv, _ := d.Server("eu-1")
	require.Equal(t, int32(42), srv.Ping)
	require.Equal(t, uint32(25), srv.PlayerCount)

	// Неизвестный пинг игнорируется
	_, ok = d.RecordPingReply("eu-1", 999, 0, start)
	require.False(t, ok)
}

func TestPendingPingEviction(t *testing.T) {
	d := New(settings.NewMemoryStore(), zap.NewNop())
	d.SetServers(sampleEntries(), nil)

	start := time.Unix(1_700_000_000, 0)
	for i := uint32(0); i < maxPendingPings+5; i++ {
		d.RecordPingSent("eu-1", i, start.Add(time.Duration(i)*time.Millisecond))
	}

	srv, _ := d.Server("eu-1")
	require.LessOrEqual(t, len(srv.pending), maxPendingPings)

	// Самые старые вытеснены
	_, ok := srv.pending[0]
	require.False(t, ok)
}

func TestPingSurvivesServerListRefresh(t *testing.T) {
	d := New(settings.NewMemoryStore(), zap.NewNop())
	d.SetServers(sampleEntries(), nil)

	start := time.Unix(1_700_000_000, 0)
	d.RecordPingSent("eu-1", 1, start)
	d.RecordPingReply("eu-1", 1, 10, start.Add(30*time.Millisecond))

	d.SetServers(sampleEntries(), nil)

	srv, _ := d.Server("eu-1")
	require.Equal(t, int32(30), srv.Ping)
}

func TestPickServerId(t *testing.T) {
	d := New(settings.NewMemoryStore(), zap.NewNop())
	d.SetServers(sampleEntries(), nil)
	d.SetActiveServer("us-1")

	// Глобальная комната: активный сервер
	id, ok := d.PickServerId(0, nil)
	require.True(t, ok)
	require.Equal(t, uint8(1), id)

	// Комната: серверный id из её настроек
	id, ok = d.PickServerId(42, &data.RoomSettings{ServerId: 0})
	require.True(t, ok)
	require.Equal(t, uint8(0), id)
}

func TestStandalone(t *testing.T) {
	store := settings.NewMemoryStore()
	d := New(store, zap.NewNop())

	d.SetStandalone("192.0.2.9:4201")
	require.True(t, d.IsStandalone())

	srv, ok := d.ActiveServer()
	require.True(t, ok)
	require.Equal(t, "192.0.2.9:4201", srv.Entry.Address)

	_, err := d.ActiveCentral()
	require.ErrorIs(t, err, ErrNoActiveCentral)
}

func TestRelaySelection(t *testing.T) {
	store := settings.NewMemoryStore()
	d := New(store, zap.NewNop())

	d.SetRelays([]Relay{{Id: "r1", Name: "Relay 1", Address: "wss://relay.globed.dev"}})
	d.SetActiveRelay("r1")

	relay, ok := d.ActiveRelay()
	require.True(t, ok)
	require.Equal(t, "wss://relay.globed.dev", relay.Address)

	// Сброс релея возвращает прямое подключение
	d.SetActiveRelay("")
	_, ok = d.ActiveRelay()
	require.False(t, ok)

	_, persisted := store.Get("_server-relay")
	require.False(t, persisted)
}
