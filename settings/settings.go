package settings

import (
	"errors"
	"fmt"

	"github.com/pelletier/go-toml"
)

// ====================================================================
// Settings - типизированные настройки клиента
// ====================================================================
//
// Сериализуются в TOML и лежат в KV-хранилище. Слоты профилей
// позволяют держать несколько наборов и переключаться между ними.
// ====================================================================

// InvitesFrom - от кого принимать приглашения в комнаты
type InvitesFrom int

const (
	// InvitesFromNobody - не принимать ни от кого
	InvitesFromNobody InvitesFrom = iota

	// InvitesFromFriends - только от друзей
	InvitesFromFriends

	// InvitesFromAnyone - от всех
	InvitesFromAnyone
)

// Settings - все настройки клиента
type Settings struct {
	// Globed - общие настройки
	Globed struct {
		// TpsOverride - переопределение тикрейта, 0 = серверный
		TpsOverride uint32 `toml:"tps_override"`

		// AutoconnectLast - подключаться к последнему серверу при старте
		AutoconnectLast bool `toml:"autoconnect_last"`

		// InvitesFrom - фильтр приглашений
		InvitesFrom int `toml:"invites_from"`
	} `toml:"globed"`

	// Players - отображение удалённых игроков
	Players struct {
		HidePracticing bool `toml:"hide_practicing"`
		HideNearby     bool `toml:"hide_nearby"`
		HideStale      bool `toml:"hide_stale"`

		// ShowProgress - индикаторы прогресса
		ShowProgress bool `toml:"show_progress"`

		// RealtimeInterpolation - реалтайм-режим интерполятора
		RealtimeInterpolation bool `toml:"realtime_interpolation"`
	} `toml:"players"`

	// Voice - голосовой чат
	Voice struct {
		Enabled   bool `toml:"enabled"`
		Deafened  bool `toml:"deafened"`
		Proximity bool `toml:"proximity"`

		// Volume - общая громкость входящего голоса, [0..2]
		Volume float64 `toml:"volume"`

		// InputDevice - идентификатор устройства записи
		InputDevice string `toml:"input_device"`
	} `toml:"voice"`
}

// Default возвращает настройки по умолчанию
func Default() Settings {
	var s Settings
	s.Globed.InvitesFrom = int(InvitesFromAnyone)
	s.Players.ShowProgress = true
	s.Voice.Enabled = true
	s.Voice.Proximity = true
	s.Voice.Volume = 1.0
	return s
}

// InvitesFilter возвращает типизированный фильтр приглашений
func (s *Settings) InvitesFilter() InvitesFrom {
	switch InvitesFrom(s.Globed.InvitesFrom) {
	case InvitesFromNobody, InvitesFromFriends, InvitesFromAnyone:
		return InvitesFrom(s.Globed.InvitesFrom)
	default:
		return InvitesFromAnyone
	}
}

var ErrNoSuchSlot = errors.New("settings: no such profile slot")

// MaxSlots - число слотов профилей
const MaxSlots = 4

const (
	keyActive     = "_settings-active"
	keySlotPrefix = "_settings-slot-"
)

// Manager - загрузка и сохранение настроек в KV-хранилище
type Manager struct {
	store   KVStore
	current Settings
}

// NewManager создаёт менеджер и поднимает активный профиль
func NewManager(store KVStore) *Manager {
	m := &Manager{store: store, current: Default()}

	if raw, ok := store.Get(keyActive); ok {
		if s, err := decode(raw); err == nil {
			m.current = s
		}
	}
	return m
}

// Current возвращает активные настройки
func (m *Manager) Current() *Settings { return &m.current }

// Save сохраняет активные настройки
func (m *Manager) Save() error {
	raw, err := encode(&m.current)
	if err != nil {
		return err
	}
	m.store.Set(keyActive, raw)
	return nil
}

// SaveSlot кладёт активные настройки в слот
func (m *Manager) SaveSlot(slot int) error {
	if slot < 0 || slot >= MaxSlots {
		return fmt.Errorf("%w: %d", ErrNoSuchSlot, slot)
	}
	raw, err := encode(&m.current)
	if err != nil {
		return err
	}
	m.store.Set(slotKey(slot), raw)
	return nil
}

// LoadSlot делает слот активным профилем
func (m *Manager) LoadSlot(slot int) error {
	if slot < 0 || slot >= MaxSlots {
		return fmt.Errorf("%w: %d", ErrNoSuchSlot, slot)
	}
	raw, ok := m.store.Get(slotKey(slot))
	if !ok {
		return fmt.Errorf("%w: %d is empty", ErrNoSuchSlot, slot)
	}
	s, err := decode(raw)
	if err != nil {
		return err
	}
	m.current = s
	return m.Save()
}

// SlotUsed сообщает, занят ли слот
func (m *Manager) SlotUsed(slot int) bool {
	if slot < 0 || slot >= MaxSlots {
		return false
	}
	_, ok := m.store.Get(slotKey(slot))
	return ok
}

// Reset сбрасывает активные настройки в дефолт
func (m *Manager) Reset() error {
	m.current = Default()
	return m.Save()
}

func slotKey(slot int) string { return fmt.Sprintf("%s%d", keySlotPrefix, slot) }

func encode(s *Settings) (string, error) {
	out, err := toml.Marshal(*s)
	if err != nil {
		return "", fmt.Errorf("marshal settings: %w", err)
	}
	return string(out), nil
}

func decode(raw string) (Settings, error) {
	s := Default()
	if err := toml.Unmarshal([]byte(raw), &s); err != nil {
		return s, fmt.Errorf("unmarshal settings: %w", err)
	}
	return s, nil
}
