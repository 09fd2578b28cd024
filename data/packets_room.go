package data

// ====================================================================
// Пакеты комнат и событий: 12xxx (клиент) / 22xxx (сервер)
// ====================================================================

// Идентификаторы клиентских пакетов комнат
const (
	IdCreateRoom         PacketId = 12000
	IdJoinRoom           PacketId = 12001
	IdLeaveRoom          PacketId = 12002
	IdUpdateRoomSettings PacketId = 12003
	IdRoomInvitePlayer   PacketId = 12004
	IdRequestRoomList    PacketId = 12005
	IdPinLevel           PacketId = 12006
	IdSelectTeam         PacketId = 12007
	IdCloseRoom          PacketId = 12008
	IdFireEvent          PacketId = 12010
)

// Идентификаторы серверных пакетов комнат
const (
	IdRoomCreated      PacketId = 22000
	IdRoomJoined       PacketId = 22001
	IdRoomJoinFailed   PacketId = 22002
	IdRoomState        PacketId = 22003
	IdRoomInvite       PacketId = 22004
	IdRoomList         PacketId = 22005
	IdRoomCreateFailed PacketId = 22006
	IdLevelPinned      PacketId = 22007
	IdEventBroadcast   PacketId = 22010
)

// --------------------------------------------------------------------
// Клиент → сервер
// --------------------------------------------------------------------

// CreateRoomPacket - создание комнаты
type CreateRoomPacket struct {
	Name     string
	Passcode string
	Settings RoomSettings
}

func (p CreateRoomPacket) Encode(buf *ByteBuffer) {
	buf.WriteString(p.Name)
	buf.WriteString(p.Passcode)
	p.Settings.Encode(buf)
}

func (p *CreateRoomPacket) Decode(buf *ByteBuffer) error {
	var err error
	if p.Name, err = buf.ReadString(); err != nil {
		return err
	}
	if p.Passcode, err = buf.ReadString(); err != nil {
		return err
	}
	return p.Settings.Decode(buf)
}
func (CreateRoomPacket) PacketId() PacketId { return IdCreateRoom }
func (CreateRoomPacket) Encrypted() bool    { return false }

// JoinRoomPacket - вход в комнату
type JoinRoomPacket struct {
	RoomId   uint32
	Passcode string
}

func (p JoinRoomPacket) Encode(buf *ByteBuffer) {
	buf.WriteU32(p.RoomId)
	buf.WriteString(p.Passcode)
}

func (p *JoinRoomPacket) Decode(buf *ByteBuffer) error {
	var err error
	if p.RoomId, err = buf.ReadU32(); err != nil {
		return err
	}
	p.Passcode, err = buf.ReadString()
	return err
}
func (JoinRoomPacket) PacketId() PacketId { return IdJoinRoom }
func (JoinRoomPacket) Encrypted() bool    { return false }

// LeaveRoomPacket - выход в глобальную комнату
type LeaveRoomPacket struct{}

func (LeaveRoomPacket) Encode(*ByteBuffer)        {}
func (*LeaveRoomPacket) Decode(*ByteBuffer) error { return nil }
func (LeaveRoomPacket) PacketId() PacketId        { return IdLeaveRoom }
func (LeaveRoomPacket) Encrypted() bool           { return false }

// UpdateRoomSettingsPacket - смена настроек (только владелец)
type UpdateRoomSettingsPacket struct {
	Settings RoomSettings
}

func (p UpdateRoomSettingsPacket) Encode(buf *ByteBuffer)        { p.Settings.Encode(buf) }
func (p *UpdateRoomSettingsPacket) Decode(buf *ByteBuffer) error { return p.Settings.Decode(buf) }
func (UpdateRoomSettingsPacket) PacketId() PacketId              { return IdUpdateRoomSettings }
func (UpdateRoomSettingsPacket) Encrypted() bool                 { return false }

// RoomInvitePlayerPacket - приглашение игрока в комнату
type RoomInvitePlayerPacket struct {
	AccountId int32
}

func (p RoomInvitePlayerPacket) Encode(buf *ByteBuffer) { buf.WriteI32(p.AccountId) }
func (p *RoomInvitePlayerPacket) Decode(buf *ByteBuffer) error {
	var err error
	p.AccountId, err = buf.ReadI32()
	return err
}
func (RoomInvitePlayerPacket) PacketId() PacketId { return IdRoomInvitePlayer }
func (RoomInvitePlayerPacket) Encrypted() bool    { return false }

// RequestRoomListPacket - запрос списка публичных комнат
type RequestRoomListPacket struct{}

func (RequestRoomListPacket) Encode(*ByteBuffer)        {}
func (*RequestRoomListPacket) Decode(*ByteBuffer) error { return nil }
func (RequestRoomListPacket) PacketId() PacketId        { return IdRequestRoomList }
func (RequestRoomListPacket) Encrypted() bool           { return false }

// PinLevelPacket - закрепить уровень в комнате (владелец)
type PinLevelPacket struct {
	Session SessionId
}

func (p PinLevelPacket) Encode(buf *ByteBuffer) { p.Session.Encode(buf) }
func (p *PinLevelPacket) Decode(buf *ByteBuffer) error {
	return p.Session.Decode(buf)
}
func (PinLevelPacket) PacketId() PacketId { return IdPinLevel }
func (PinLevelPacket) Encrypted() bool    { return false }

// SelectTeamPacket - выбор команды
type SelectTeamPacket struct {
	TeamId uint16
}

func (p SelectTeamPacket) Encode(buf *ByteBuffer) { buf.WriteU16(p.TeamId) }
func (p *SelectTeamPacket) Decode(buf *ByteBuffer) error {
	var err error
	p.TeamId, err = buf.ReadU16()
	return err
}
func (SelectTeamPacket) PacketId() PacketId { return IdSelectTeam }
func (SelectTeamPacket) Encrypted() bool    { return false }

// CloseRoomPacket - закрыть комнату (владелец)
type CloseRoomPacket struct{}

func (CloseRoomPacket) Encode(*ByteBuffer)        {}
func (*CloseRoomPacket) Decode(*ByteBuffer) error { return nil }
func (CloseRoomPacket) PacketId() PacketId        { return IdCloseRoom }
func (CloseRoomPacket) Encrypted() bool           { return false }

// FireEventPacket - событие уровня от триггера FireServerObject
type FireEventPacket struct {
	Event Event
}

func (p FireEventPacket) Encode(buf *ByteBuffer)        { p.Event.Encode(buf) }
func (p *FireEventPacket) Decode(buf *ByteBuffer) error { return p.Event.Decode(buf) }
func (FireEventPacket) PacketId() PacketId              { return IdFireEvent }
func (FireEventPacket) Encrypted() bool                 { return false }

// --------------------------------------------------------------------
// Сервер → клиент
// --------------------------------------------------------------------

// RoomCreatedPacket - комната создана, внутри полное состояние
type RoomCreatedPacket struct {
	State RoomStateInfo
}

func (p RoomCreatedPacket) Encode(buf *ByteBuffer)        { p.State.Encode(buf) }
func (p *RoomCreatedPacket) Decode(buf *ByteBuffer) error { return p.State.Decode(buf) }
func (RoomCreatedPacket) PacketId() PacketId              { return IdRoomCreated }
func (RoomCreatedPacket) Encrypted() bool                 { return false }

// RoomJoinedPacket - вход в комнату принят
type RoomJoinedPacket struct {
	State RoomStateInfo
}

func (p RoomJoinedPacket) Encode(buf *ByteBuffer)        { p.State.Encode(buf) }
func (p *RoomJoinedPacket) Decode(buf *ByteBuffer) error { return p.State.Decode(buf) }
func (RoomJoinedPacket) PacketId() PacketId              { return IdRoomJoined }
func (RoomJoinedPacket) Encrypted() bool                 { return false }

// RoomJoinFailedPacket - вход отклонён
type RoomJoinFailedPacket struct {
	Reason string
}

func (p RoomJoinFailedPacket) Encode(buf *ByteBuffer) { buf.WriteString(p.Reason) }
func (p *RoomJoinFailedPacket) Decode(buf *ByteBuffer) error {
	var err error
	p.Reason, err = buf.ReadString()
	return err
}
func (RoomJoinFailedPacket) PacketId() PacketId { return IdRoomJoinFailed }
func (RoomJoinFailedPacket) Encrypted() bool    { return false }

// RoomStatePacket - апдейт состояния текущей комнаты
type RoomStatePacket struct {
	State RoomStateInfo
}

func (p RoomStatePacket) Encode(buf *ByteBuffer)        { p.State.Encode(buf) }
func (p *RoomStatePacket) Decode(buf *ByteBuffer) error { return p.State.Decode(buf) }
func (RoomStatePacket) PacketId() PacketId              { return IdRoomState }
func (RoomStatePacket) Encrypted() bool                 { return false }

// RoomInvitePacket - входящее приглашение
type RoomInvitePacket struct {
	RoomId   uint32
	RoomName string
	Passcode string
	Inviter  RoomPlayer
}

func (p RoomInvitePacket) Encode(buf *ByteBuffer) {
	buf.WriteU32(p.RoomId)
	buf.WriteString(p.RoomName)
	buf.WriteString(p.Passcode)
	p.Inviter.Encode(buf)
}

func (p *RoomInvitePacket) Decode(buf *ByteBuffer) error {
	var err error
	if p.RoomId, err = buf.ReadU32(); err != nil {
		return err
	}
	if p.RoomName, err = buf.ReadString(); err != nil {
		return err
	}
	if p.Passcode, err = buf.ReadString(); err != nil {
		return err
	}
	return p.Inviter.Decode(buf)
}
func (RoomInvitePacket) PacketId() PacketId { return IdRoomInvite }
func (RoomInvitePacket) Encrypted() bool    { return false }

// RoomListPacket - список публичных комнат
type RoomListPacket struct {
	Rooms []RoomListingInfo
}

func (p RoomListPacket) Encode(buf *ByteBuffer) {
	WriteVec(buf, p.Rooms, func(b *ByteBuffer, v RoomListingInfo) { v.Encode(b) })
}

func (p *RoomListPacket) Decode(buf *ByteBuffer) error {
	var err error
	p.Rooms, err = ReadVec(buf, func(b *ByteBuffer) (RoomListingInfo, error) {
		var v RoomListingInfo
		err := v.Decode(b)
		return v, err
	})
	return err
}
func (RoomListPacket) PacketId() PacketId { return IdRoomList }
func (RoomListPacket) Encrypted() bool    { return false }

// RoomCreateFailedPacket - создание комнаты отклонено
type RoomCreateFailedPacket struct {
	Reason string
}

func (p RoomCreateFailedPacket) Encode(buf *ByteBuffer) { buf.WriteString(p.Reason) }
func (p *RoomCreateFailedPacket) Decode(buf *ByteBuffer) error {
	var err error
	p.Reason, err = buf.ReadString()
	return err
}
func (RoomCreateFailedPacket) PacketId() PacketId { return IdRoomCreateFailed }
func (RoomCreateFailedPacket) Encrypted() bool    { return false }

// LevelPinnedPacket - владелец закрепил уровень
type LevelPinnedPacket struct {
	Session SessionId
}

func (p LevelPinnedPacket) Encode(buf *ByteBuffer)        { p.Session.Encode(buf) }
func (p *LevelPinnedPacket) Decode(buf *ByteBuffer) error { return p.Session.Decode(buf) }
func (LevelPinnedPacket) PacketId() PacketId              { return IdLevelPinned }
func (LevelPinnedPacket) Encrypted() bool                 { return false }

// EventBroadcastPacket - событие уровня от другого игрока
type EventBroadcastPacket struct {
	Sender int32
	Event  Event
}

func (p EventBroadcastPacket) Encode(buf *ByteBuffer) {
	buf.WriteI32(p.Sender)
	p.Event.Encode(buf)
}

func (p *EventBroadcastPacket) Decode(buf *ByteBuffer) error {
	var err error
	if p.Sender, err = buf.ReadI32(); err != nil {
		return err
	}
	return p.Event.Decode(buf)
}
func (EventBroadcastPacket) PacketId() PacketId { return IdEventBroadcast }
func (EventBroadcastPacket) Encrypted() bool    { return false }
