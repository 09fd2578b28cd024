package directory

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/GlobedGD/globed2-core/crypto"
	"github.com/GlobedGD/globed2-core/data"
	"github.com/GlobedGD/globed2-core/settings"
)

// ====================================================================
// Directory - реестр центральных и игровых серверов
// ====================================================================
//
// Держит список центральных серверов, активный центральный, выведенный
// из него список игровых серверов и пинги. Активный центральный,
// последний игровой сервер и кэш ответа /servers переживают рестарт
// в KV-хранилище: клиент умеет подняться оффлайн.
//
// Числовые id серверов (8 бит, поле SessionId) назначаются порядком
// в ответе центрального сервера.
// ====================================================================

// Ключи персистентности
const (
	keyCentralList      = "_central-server-list"
	keyCentralActive    = "_central-server-active"
	keyGameServerActive = "_game-server-active"
	keyStandaloneAddr   = "_standalone-address"
	keyRelayActive      = "_server-relay"
	keyServersCache     = "_servers-cache"
)

// maxPendingPings - потолок неотвеченных пингов на сервер
const maxPendingPings = 16

// StandaloneIndex - индекс-сентинель standalone-режима
const StandaloneIndex = -2

var ErrNoActiveCentral = errors.New("directory: no active central server")

// CentralServer - запись о центральном сервере
type CentralServer struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Relay - запись о релее
type Relay struct {
	Id      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

// GameServer - игровой сервер со статистикой живости
type GameServer struct {
	Entry data.GameServerEntry

	// NumericId - 8-битный id для SessionId, порядок в ответе центрального
	NumericId uint8

	// Ping - RTT в миллисекундах, -1 = неизвестно
	Ping int32

	PlayerCount uint32

	// pending - неотвеченные пинги: id → момент отправки
	pending map[uint32]time.Time
}

// Directory - реестр серверов
type Directory struct {
	log   *zap.Logger
	store settings.KVStore

	centrals      []CentralServer
	activeCentral int

	servers []*GameServer

	activeServer string

	relays      []Relay
	activeRelay string

	standaloneAddr string
}

// New поднимает реестр из KV-хранилища
func New(store settings.KVStore, log *zap.Logger) *Directory {
	d := &Directory{
		log:           log,
		store:         store,
		activeCentral: -1,
	}

	if raw, ok := store.Get(keyCentralList); ok {
		if err := json.Unmarshal([]byte(raw), &d.centrals); err != nil {
			log.Warn("corrupt central server list", zap.Error(err))
			d.centrals = nil
		}
	}
	if len(d.centrals) == 0 {
		d.centrals = []CentralServer{{Name: "Main", URL: "https://main.globed.dev"}}
	}

	if raw, ok := store.Get(keyCentralActive); ok {
		var idx int
		if _, err := fmt.Sscanf(raw, "%d", &idx); err == nil {
			d.activeCentral = idx
		}
	}
	if d.activeCentral == -1 {
		d.activeCentral = 0
	}

	if raw, ok := store.Get(keyGameServerActive); ok {
		d.activeServer = raw
	}
	if raw, ok := store.Get(keyRelayActive); ok {
		d.activeRelay = raw
	}
	if raw, ok := store.Get(keyStandaloneAddr); ok {
		d.standaloneAddr = raw
	}

	return d
}

// --------------------------------------------------------------------
// Центральные серверы
// --------------------------------------------------------------------

// Centrals возвращает все центральные серверы
func (d *Directory) Centrals() []CentralServer { return d.centrals }

// ActiveCentral возвращает активный центральный сервер
func (d *Directory) ActiveCentral() (CentralServer, error) {
	if d.activeCentral == StandaloneIndex {
		return CentralServer{}, ErrNoActiveCentral
	}
	if d.activeCentral < 0 || d.activeCentral >= len(d.centrals) {
		return CentralServer{}, ErrNoActiveCentral
	}
	return d.centrals[d.activeCentral], nil
}

// SetActiveCentral переключает активный центральный и сохраняет выбор
func (d *Directory) SetActiveCentral(index int) error {
	if index != StandaloneIndex && (index < 0 || index >= len(d.centrals)) {
		return fmt.Errorf("directory: central index %d out of range", index)
	}
	d.activeCentral = index
	d.store.Set(keyCentralActive, fmt.Sprintf("%d", index))

	// Смена центрального обнуляет производный список
	d.servers = nil
	d.relays = nil
	return nil
}

// AddCentral добавляет центральный сервер и сохраняет список
func (d *Directory) AddCentral(server CentralServer) {
	d.centrals = append(d.centrals, server)
	d.saveCentrals()
}

// RemoveCentral убирает центральный сервер по индексу
func (d *Directory) RemoveCentral(index int) {
	if index < 0 || index >= len(d.centrals) {
		return
	}
	d.centrals = append(d.centrals[:index], d.centrals[index+1:]...)
	if d.activeCentral >= len(d.centrals) {
		d.activeCentral = 0
		d.store.Set(keyCentralActive, "0")
	}
	d.saveCentrals()
}

func (d *Directory) saveCentrals() {
	raw, err := json.Marshal(d.centrals)
	if err != nil {
		return
	}
	d.store.Set(keyCentralList, string(raw))
}

// --------------------------------------------------------------------
// Standalone
// --------------------------------------------------------------------

// SetStandalone включает прямое подключение к одиночному серверу
func (d *Directory) SetStandalone(address string) {
	d.standaloneAddr = address
	d.activeCentral = StandaloneIndex
	d.store.Set(keyStandaloneAddr, address)
	d.store.Set(keyCentralActive, fmt.Sprintf("%d", StandaloneIndex))

	d.servers = []*GameServer{{
		Entry: data.GameServerEntry{
			Id:      "standalone",
			Name:    "Standalone",
			Address: address,
			Region:  "local",
		},
		NumericId: 0,
		Ping:      -1,
		pending:   make(map[uint32]time.Time),
	}}
	d.activeServer = "standalone"
}

// IsStandalone сообщает, включён ли standalone-режим
func (d *Directory) IsStandalone() bool { return d.activeCentral == StandaloneIndex }

// --------------------------------------------------------------------
// Игровые серверы
// --------------------------------------------------------------------

// SetServers применяет список из ответа центрального сервера.
// rawPayload кэшируется для оффлайн-старта
func (d *Directory) SetServers(entries []data.GameServerEntry, rawPayload []byte) {
	old := make(map[string]*GameServer, len(d.servers))
	for _, s := range d.servers {
		old[s.Entry.Id] = s
	}

	d.servers = make([]*GameServer, 0, len(entries))
	for i, entry := range entries {
		srv := &GameServer{
			Entry:     entry,
			NumericId: uint8(i),
			Ping:      -1,
			pending:   make(map[uint32]time.Time),
		}
		// Пинги переживают обновление списка
		if prev, ok := old[entry.Id]; ok {
			srv.Ping = prev.Ping
			srv.PlayerCount = prev.PlayerCount
		}
		d.servers = append(d.servers, srv)
	}

	if rawPayload != nil {
		d.store.Set(keyServersCache, crypto.Base64Encode(rawPayload, crypto.Base64Standard))
	}
}

// InitFromCache поднимает список серверов из кэша прошлого запуска
func (d *Directory) InitFromCache() error {
	raw, ok := d.store.Get(keyServersCache)
	if !ok {
		return errors.New("directory: no cached server list")
	}
	payload, err := crypto.Base64Decode(raw, crypto.Base64Standard)
	if err != nil {
		return fmt.Errorf("decode server cache: %w", err)
	}

	var entries []data.GameServerEntry
	if err := json.Unmarshal(payload, &entries); err != nil {
		return fmt.Errorf("parse server cache: %w", err)
	}

	d.SetServers(entries, nil)
	return nil
}

// Servers возвращает игровые серверы
func (d *Directory) Servers() []*GameServer { return d.servers }

// Server возвращает сервер по строковому id
func (d *Directory) Server(id string) (*GameServer, bool) {
	for _, s := range d.servers {
		if s.Entry.Id == id {
			return s, true
		}
	}
	return nil, false
}

// ServerByNumericId возвращает сервер по 8-битному id
func (d *Directory) ServerByNumericId(id uint8) (*GameServer, bool) {
	for _, s := range d.servers {
		if s.NumericId == id {
			return s, true
		}
	}
	return nil, false
}

// ActiveServer возвращает выбранный игровой сервер
func (d *Directory) ActiveServer() (*GameServer, bool) {
	return d.Server(d.activeServer)
}

// SetActiveServer выбирает игровой сервер и сохраняет выбор
func (d *Directory) SetActiveServer(id string) {
	d.activeServer = id
	d.store.Set(keyGameServerActive, id)
}

// PickServerId выбирает 8-битный id сервера для SessionId:
// в глобальной комнате - активный сервер, в комнате - серверный id
// из настроек комнаты
func (d *Directory) PickServerId(roomId uint32, roomSettings *data.RoomSettings) (uint8, bool) {
	if roomId != 0 && roomSettings != nil {
		return roomSettings.ServerId, true
	}
	if srv, ok := d.ActiveServer(); ok {
		return srv.NumericId, true
	}
	return 0, false
}

// --------------------------------------------------------------------
// Пинги
// --------------------------------------------------------------------

// RecordPingSent запоминает отправленный пинг
func (d *Directory) RecordPingSent(serverId string, pingId uint32, at time.Time) {
	srv, ok := d.Server(serverId)
	if !ok {
		return
	}

	// Вытесняем самый старый, если набралось сверх капа
	if len(srv.pending) >= maxPendingPings {
		var oldestId uint32
		var oldestAt time.Time
		first := true
		for id, t := range srv.pending {
			if first || t.Before(oldestAt) {
				oldestId, oldestAt = id, t
				first = false
			}
		}
		delete(srv.pending, oldestId)
	}

	srv.pending[pingId] = at
}

// RecordPingReply применяет ответ на пинг, возвращает RTT
func (d *Directory) RecordPingReply(serverId string, pingId uint32, playerCount uint32, at time.Time) (time.Duration, bool) {
	srv, ok := d.Server(serverId)
	if !ok {
		return 0, false
	}
	sent, ok := srv.pending[pingId]
	if !ok {
		return 0, false
	}
	delete(srv.pending, pingId)

	rtt := at.Sub(sent)
	srv.Ping = int32(rtt.Milliseconds())
	srv.PlayerCount = playerCount
	return rtt, true
}

// UpdateActivePlayerCount обновляет счётчик игроков активного сервера
// (из keepalive установленной сессии)
func (d *Directory) UpdateActivePlayerCount(count uint32) {
	if srv, ok := d.ActiveServer(); ok {
		srv.PlayerCount = count
	}
}

// --------------------------------------------------------------------
// Релеи
// --------------------------------------------------------------------

// SetRelays применяет список релеев из meta-ответа центрального
func (d *Directory) SetRelays(relays []Relay) { d.relays = relays }

// Relays возвращает известные релеи
func (d *Directory) Relays() []Relay { return d.relays }

// SetActiveRelay выбирает релей; пустая строка - прямое подключение
func (d *Directory) SetActiveRelay(id string) {
	d.activeRelay = id
	if id == "" {
		d.store.Delete(keyRelayActive)
	} else {
		d.store.Set(keyRelayActive, id)
	}
}

// ActiveRelay возвращает выбранный релей
func (d *Directory) ActiveRelay() (Relay, bool) {
	for _, r := range d.relays {
		if r.Id == d.activeRelay {
			return r, true
		}
	}
	return Relay{}, false
}
