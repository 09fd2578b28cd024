package room

import (
	"go.uber.org/zap"

	"github.com/GlobedGD/globed2-core/data"
	"github.com/GlobedGD/globed2-core/settings"
)

// ====================================================================
// Manager - состояние комнаты
// ====================================================================
//
// Единственная in-memory копия RoomState. Применяет серверные пакеты
// комнат, отвечает на вопросы про команды и закреплённый уровень,
// фильтрует приглашения по локальной политике и чёрному списку.
//
// roomId == 0 - глобальная комната.
// ====================================================================

// FriendList - порт к списку друзей игры (для фильтра приглашений)
type FriendList interface {
	IsFriend(accountId int32) bool
}

// Events - колбэки для UI-слоя
type Events struct {
	// OnRoomChanged - состояние комнаты обновилось
	OnRoomChanged func()

	// OnInvite - входящее приглашение прошло фильтры
	OnInvite func(invite *data.RoomInvitePacket)

	// OnRoomListing - пришёл список публичных комнат
	OnRoomListing func(rooms []data.RoomListingInfo)

	// OnJoinFailed / OnCreateFailed - отказ сервера
	OnJoinFailed   func(reason string)
	OnCreateFailed func(reason string)
}

// Outbound шлёт пакет серверу
type Outbound func(packet data.OutPacket)

// Manager - контроль-плейн комнат
type Manager struct {
	log      *zap.Logger
	send     Outbound
	settings *settings.Manager
	friends  FriendList
	events   Events

	// localAccount - аккаунт локального игрока (владелец?)
	localAccount int32

	state data.RoomStateInfo

	// localTeam - команда локального игрока
	localTeam uint16

	// blocked - локальный чёрный список для приглашений
	blocked map[int32]struct{}
}

// NewManager создаёт контроль-плейн комнат
func NewManager(send Outbound, sets *settings.Manager, friends FriendList, localAccount int32, log *zap.Logger) *Manager {
	return &Manager{
		log:          log,
		send:         send,
		settings:     sets,
		friends:      friends,
		localAccount: localAccount,
		blocked:      make(map[int32]struct{}),
	}
}

// SetEvents задаёт колбэки UI
func (m *Manager) SetEvents(events Events) { m.events = events }

// --------------------------------------------------------------------
// Запросы состояния
// --------------------------------------------------------------------

// RoomId возвращает id текущей комнаты (0 - глобальная)
func (m *Manager) RoomId() uint32 { return m.state.RoomId }

// IsGlobal сообщает, в глобальной ли комнате игрок
func (m *Manager) IsGlobal() bool { return m.state.RoomId == 0 }

// IsOwner сообщает, владеет ли комнатой локальный игрок
func (m *Manager) IsOwner() bool {
	return m.state.RoomId != 0 && m.state.RoomOwner == m.localAccount
}

// State возвращает состояние комнаты
func (m *Manager) State() *data.RoomStateInfo { return &m.state }

// Settings возвращает настройки комнаты
func (m *Manager) Settings() data.RoomSettings { return m.state.Settings }

// PinnedLevel возвращает закреплённый уровень (0 - нет)
func (m *Manager) PinnedLevel() data.SessionId { return m.state.PinnedLevel }

// Team возвращает команду по id. Команды валидны только при
// settings.Teams = true
func (m *Manager) Team(id uint16) (data.RoomTeam, bool) {
	if !m.state.Settings.Teams || int(id) >= len(m.state.Teams) {
		return data.RoomTeam{}, false
	}
	return m.state.Teams[id], true
}

// CurrentTeam возвращает команду локального игрока
func (m *Manager) CurrentTeam() (data.RoomTeam, bool) {
	return m.Team(m.localTeam)
}

// TeamFor возвращает id команды игрока
func (m *Manager) TeamFor(accountId int32) (uint16, bool) {
	if !m.state.Settings.Teams {
		return 0, false
	}
	if accountId == m.localAccount {
		return m.localTeam, true
	}
	for teamId, members := range m.state.TeamMembers {
		for _, member := range members {
			if member == accountId {
				return teamId, true
			}
		}
	}
	return 0, false
}

// MakeSessionId собирает SessionId уровня в текущей комнате
func (m *Manager) MakeSessionId(serverId uint8, levelId uint32) data.SessionId {
	return data.SessionIdFromParts(serverId, m.state.RoomId, levelId)
}

// --------------------------------------------------------------------
// Действия
// --------------------------------------------------------------------

// CreateRoom шлёт запрос на создание комнаты
func (m *Manager) CreateRoom(name, passcode string, roomSettings data.RoomSettings) {
	m.send(data.CreateRoomPacket{Name: name, Passcode: passcode, Settings: roomSettings})
}

// JoinRoom шлёт запрос на вход
func (m *Manager) JoinRoom(roomId uint32, passcode string) {
	m.send(data.JoinRoomPacket{RoomId: roomId, Passcode: passcode})
}

// LeaveRoom возвращает в глобальную комнату
func (m *Manager) LeaveRoom() {
	m.send(data.LeaveRoomPacket{})
	m.resetToGlobal()
	m.roomChanged()
}

// UpdateSettings шлёт новые настройки (владелец)
func (m *Manager) UpdateSettings(roomSettings data.RoomSettings) {
	m.send(data.UpdateRoomSettingsPacket{Settings: roomSettings})
}

// InvitePlayer приглашает игрока
func (m *Manager) InvitePlayer(accountId int32) {
	m.send(data.RoomInvitePlayerPacket{AccountId: accountId})
}

// RequestRoomList запрашивает список публичных комнат
func (m *Manager) RequestRoomList() {
	m.send(data.RequestRoomListPacket{})
}

// PinLevel закрепляет уровень (владелец)
func (m *Manager) PinLevel(session data.SessionId) {
	m.send(data.PinLevelPacket{Session: session})
}

// SelectTeam выбирает команду
func (m *Manager) SelectTeam(teamId uint16) {
	if !m.state.Settings.Teams {
		return
	}
	if m.state.Settings.LockedTeams && m.localTeam != 0 {
		// Залоченные команды не переключаются
		return
	}
	m.localTeam = teamId
	m.send(data.SelectTeamPacket{TeamId: teamId})
}

// Block добавляет игрока в чёрный список приглашений
func (m *Manager) Block(accountId int32) { m.blocked[accountId] = struct{}{} }

// Unblock убирает игрока из чёрного списка
func (m *Manager) Unblock(accountId int32) { delete(m.blocked, accountId) }

// --------------------------------------------------------------------
// Входящие пакеты
// --------------------------------------------------------------------

// HandleRoomState применяет состояние комнаты
func (m *Manager) HandleRoomState(state *data.RoomStateInfo) {
	m.state = *state
	m.roomChanged()
}

// HandleJoinFailed обрабатывает отказ на вход
func (m *Manager) HandleJoinFailed(reason string) {
	if m.events.OnJoinFailed != nil {
		m.events.OnJoinFailed(reason)
	}
}

// HandleCreateFailed обрабатывает отказ на создание
func (m *Manager) HandleCreateFailed(reason string) {
	if m.events.OnCreateFailed != nil {
		m.events.OnCreateFailed(reason)
	}
}

// HandleLevelPinned применяет закреплённый уровень
func (m *Manager) HandleLevelPinned(session data.SessionId) {
	m.state.PinnedLevel = session
	m.roomChanged()
}

// HandleRoomList отдаёт список комнат в UI
func (m *Manager) HandleRoomList(rooms []data.RoomListingInfo) {
	if m.events.OnRoomListing != nil {
		m.events.OnRoomListing(rooms)
	}
}

// HandleInvite фильтрует и отдаёт приглашение в UI.
// Возвращает true, если приглашение дошло до пользователя
func (m *Manager) HandleInvite(invite *data.RoomInvitePacket) bool {
	inviter := invite.Inviter.AccountId

	if _, blocked := m.blocked[inviter]; blocked {
		m.log.Debug("invite dropped: blocked inviter", zap.Int32("from", inviter))
		return false
	}

	switch m.settings.Current().InvitesFilter() {
	case settings.InvitesFromNobody:
		m.log.Debug("invite dropped: invites disabled", zap.Int32("from", inviter))
		return false

	case settings.InvitesFromFriends:
		if m.friends == nil || !m.friends.IsFriend(inviter) {
			m.log.Debug("invite dropped: not a friend", zap.Int32("from", inviter))
			return false
		}
	}

	if m.events.OnInvite != nil {
		m.events.OnInvite(invite)
	}
	return true
}

// Reset сбрасывает состояние (дисконнект)
func (m *Manager) Reset() {
	m.resetToGlobal()
	m.roomChanged()
}

func (m *Manager) resetToGlobal() {
	m.state = data.RoomStateInfo{}
	m.localTeam = 0
}

func (m *Manager) roomChanged() {
	if m.events.OnRoomChanged != nil {
		m.events.OnRoomChanged()
	}
}
