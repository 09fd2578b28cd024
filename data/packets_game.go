package data

// ====================================================================
// Геймплейные пакеты: 11xxx (клиент) / 21xxx (сервер)
// ====================================================================

// Идентификаторы клиентских геймплейных пакетов
const (
	IdSyncIcons          PacketId = 11000
	IdRequestProfiles    PacketId = 11001
	IdLevelJoin          PacketId = 11002
	IdLevelLeave         PacketId = 11003
	IdPlayerData         PacketId = 11004
	IdRequestPlayerList  PacketId = 11005
	IdSyncPlayerMetadata PacketId = 11006
	IdVoice              PacketId = 11010
	IdChatMessage        PacketId = 11011
)

// Идентификаторы серверных геймплейных пакетов
const (
	IdPlayerProfiles       PacketId = 21000
	IdLevelData            PacketId = 21001
	IdPlayerList           PacketId = 21002
	IdLevelPlayerMetadata  PacketId = 21003
	IdRolesUpdated         PacketId = 21004
	IdVoiceBroadcast       PacketId = 21010
	IdChatMessageBroadcast PacketId = 21011
)

// MaxProfilesRequested - максимум профилей в одном запросе
const MaxProfilesRequested = 128

// --------------------------------------------------------------------
// Клиент → сервер
// --------------------------------------------------------------------

// SyncIconsPacket - синхронизация косметики после её смены
type SyncIconsPacket struct {
	Icons PlayerIconData
}

func (p SyncIconsPacket) Encode(buf *ByteBuffer)        { p.Icons.Encode(buf) }
func (p *SyncIconsPacket) Decode(buf *ByteBuffer) error { return p.Icons.Decode(buf) }
func (SyncIconsPacket) PacketId() PacketId              { return IdSyncIcons }
func (SyncIconsPacket) Encrypted() bool                 { return false }

// RequestProfilesPacket - запрос данных отображения по аккаунтам
type RequestProfilesPacket struct {
	Ids []int32
}

func (p RequestProfilesPacket) Encode(buf *ByteBuffer) {
	WriteVec(buf, p.Ids, func(b *ByteBuffer, v int32) { b.WriteI32(v) })
}

func (p *RequestProfilesPacket) Decode(buf *ByteBuffer) error {
	var err error
	p.Ids, err = ReadVec(buf, func(b *ByteBuffer) (int32, error) { return b.ReadI32() })
	return err
}
func (RequestProfilesPacket) PacketId() PacketId { return IdRequestProfiles }
func (RequestProfilesPacket) Encrypted() bool    { return false }

// LevelJoinPacket - вход в сессию уровня
type LevelJoinPacket struct {
	Session      SessionId
	AuthorId     int32
	Platformer   bool
	EditorCollab bool
}

func (p LevelJoinPacket) Encode(buf *ByteBuffer) {
	p.Session.Encode(buf)
	buf.WriteI32(p.AuthorId)
	buf.WriteBool(p.Platformer)
	buf.WriteBool(p.EditorCollab)
}

func (p *LevelJoinPacket) Decode(buf *ByteBuffer) error {
	if err := p.Session.Decode(buf); err != nil {
		return err
	}
	var err error
	if p.AuthorId, err = buf.ReadI32(); err != nil {
		return err
	}
	if p.Platformer, err = buf.ReadBool(); err != nil {
		return err
	}
	p.EditorCollab, err = buf.ReadBool()
	return err
}
func (LevelJoinPacket) PacketId() PacketId { return IdLevelJoin }
func (LevelJoinPacket) Encrypted() bool    { return false }

// LevelLeavePacket - выход из сессии уровня
type LevelLeavePacket struct{}

func (LevelLeavePacket) Encode(*ByteBuffer)        {}
func (*LevelLeavePacket) Decode(*ByteBuffer) error { return nil }
func (LevelLeavePacket) PacketId() PacketId        { return IdLevelLeave }
func (LevelLeavePacket) Encrypted() bool           { return false }

// PlayerDataPacket - кадр состояния игрока, шлётся по UDP на тикрейте
type PlayerDataPacket struct {
	Data PlayerState
}

func (p PlayerDataPacket) Encode(buf *ByteBuffer)        { p.Data.Encode(buf) }
func (p *PlayerDataPacket) Decode(buf *ByteBuffer) error { return p.Data.Decode(buf) }
func (PlayerDataPacket) PacketId() PacketId              { return IdPlayerData }
func (PlayerDataPacket) Encrypted() bool                 { return false }

// RequestPlayerListPacket - запрос полного списка игроков сервера
type RequestPlayerListPacket struct{}

func (RequestPlayerListPacket) Encode(*ByteBuffer)        {}
func (*RequestPlayerListPacket) Decode(*ByteBuffer) error { return nil }
func (RequestPlayerListPacket) PacketId() PacketId        { return IdRequestPlayerList }
func (RequestPlayerListPacket) Encrypted() bool           { return false }

// SyncPlayerMetadataPacket - метаданные игрока для текущего уровня
type SyncPlayerMetadataPacket struct {
	LocalBest  int32
	Attempts   int32
}

func (p SyncPlayerMetadataPacket) Encode(buf *ByteBuffer) {
	buf.WriteI32(p.LocalBest)
	buf.WriteI32(p.Attempts)
}

func (p *SyncPlayerMetadataPacket) Decode(buf *ByteBuffer) error {
	var err error
	if p.LocalBest, err = buf.ReadI32(); err != nil {
		return err
	}
	p.Attempts, err = buf.ReadI32()
	return err
}
func (SyncPlayerMetadataPacket) PacketId() PacketId { return IdSyncPlayerMetadata }
func (SyncPlayerMetadataPacket) Encrypted() bool    { return false }

// VoicePacket - закодированный голосовой кадр. Шифруется всегда
type VoicePacket struct {
	Frame []byte
}

func (p VoicePacket) Encode(buf *ByteBuffer) { buf.WriteByteVec(p.Frame) }
func (p *VoicePacket) Decode(buf *ByteBuffer) error {
	var err error
	p.Frame, err = buf.ReadByteVec()
	return err
}
func (VoicePacket) PacketId() PacketId { return IdVoice }
func (VoicePacket) Encrypted() bool    { return true }

// ChatMessagePacket - текстовое сообщение. Шифруется всегда
type ChatMessagePacket struct {
	Message string
}

func (p ChatMessagePacket) Encode(buf *ByteBuffer) { buf.WriteString(p.Message) }
func (p *ChatMessagePacket) Decode(buf *ByteBuffer) error {
	var err error
	p.Message, err = buf.ReadString()
	return err
}
func (ChatMessagePacket) PacketId() PacketId { return IdChatMessage }
func (ChatMessagePacket) Encrypted() bool    { return true }

// --------------------------------------------------------------------
// Сервер → клиент
// --------------------------------------------------------------------

// PlayerProfilesPacket - данные отображения по запросу RequestProfiles
type PlayerProfilesPacket struct {
	Profiles []PlayerDisplayData
}

func (p PlayerProfilesPacket) Encode(buf *ByteBuffer) {
	WriteVec(buf, p.Profiles, func(b *ByteBuffer, v PlayerDisplayData) { v.Encode(b) })
}

func (p *PlayerProfilesPacket) Decode(buf *ByteBuffer) error {
	var err error
	p.Profiles, err = ReadVec(buf, func(b *ByteBuffer) (PlayerDisplayData, error) {
		var v PlayerDisplayData
		err := v.Decode(b)
		return v, err
	})
	return err
}
func (PlayerProfilesPacket) PacketId() PacketId { return IdPlayerProfiles }
func (PlayerProfilesPacket) Encrypted() bool    { return false }

// LevelDataPacket - состояние всех игроков уровня за один серверный тик
type LevelDataPacket struct {
	Players []PlayerState

	// Culled - аккаунты, чьи кадры сервер в этот тик не прислал
	// (далеко от игрока), но которые всё ещё на уровне
	Culled []int32

	// Events - события уровня за тик
	Events []Event
}

func (p LevelDataPacket) Encode(buf *ByteBuffer) {
	WriteVec(buf, p.Players, func(b *ByteBuffer, v PlayerState) { v.Encode(b) })
	WriteVec(buf, p.Culled, func(b *ByteBuffer, v int32) { b.WriteI32(v) })
	WriteVec(buf, p.Events, func(b *ByteBuffer, v Event) { v.Encode(b) })
}

func (p *LevelDataPacket) Decode(buf *ByteBuffer) error {
	var err error
	if p.Players, err = ReadVec(buf, func(b *ByteBuffer) (PlayerState, error) {
		var v PlayerState
		err := v.Decode(b)
		return v, err
	}); err != nil {
		return err
	}
	if p.Culled, err = ReadVec(buf, func(b *ByteBuffer) (int32, error) { return b.ReadI32() }); err != nil {
		return err
	}
	p.Events, err = ReadVec(buf, func(b *ByteBuffer) (Event, error) {
		var v Event
		err := v.Decode(b)
		return v, err
	})
	return err
}
func (LevelDataPacket) PacketId() PacketId { return IdLevelData }
func (LevelDataPacket) Encrypted() bool    { return false }

// PlayerListPacket - список игроков сервера
type PlayerListPacket struct {
	Profiles []PlayerDisplayData
}

func (p PlayerListPacket) Encode(buf *ByteBuffer) {
	WriteVec(buf, p.Profiles, func(b *ByteBuffer, v PlayerDisplayData) { v.Encode(b) })
}

func (p *PlayerListPacket) Decode(buf *ByteBuffer) error {
	var err error
	p.Profiles, err = ReadVec(buf, func(b *ByteBuffer) (PlayerDisplayData, error) {
		var v PlayerDisplayData
		err := v.Decode(b)
		return v, err
	})
	return err
}
func (PlayerListPacket) PacketId() PacketId { return IdPlayerList }
func (PlayerListPacket) Encrypted() bool    { return false }

// LevelPlayerMetadataPacket - метаданные игроков уровня
type LevelPlayerMetadataPacket struct {
	Entries []LevelPlayerMetadataEntry
}

// LevelPlayerMetadataEntry - метаданные одного игрока
type LevelPlayerMetadataEntry struct {
	AccountId int32
	LocalBest int32
	Attempts  int32
}

func (e LevelPlayerMetadataEntry) Encode(buf *ByteBuffer) {
	buf.WriteI32(e.AccountId)
	buf.WriteI32(e.LocalBest)
	buf.WriteI32(e.Attempts)
}

func (e *LevelPlayerMetadataEntry) Decode(buf *ByteBuffer) error {
	var err error
	if e.AccountId, err = buf.ReadI32(); err != nil {
		return err
	}
	if e.LocalBest, err = buf.ReadI32(); err != nil {
		return err
	}
	e.Attempts, err = buf.ReadI32()
	return err
}

func (p LevelPlayerMetadataPacket) Encode(buf *ByteBuffer) {
	WriteVec(buf, p.Entries, func(b *ByteBuffer, v LevelPlayerMetadataEntry) { v.Encode(b) })
}

func (p *LevelPlayerMetadataPacket) Decode(buf *ByteBuffer) error {
	var err error
	p.Entries, err = ReadVec(buf, func(b *ByteBuffer) (LevelPlayerMetadataEntry, error) {
		var v LevelPlayerMetadataEntry
		err := v.Decode(b)
		return v, err
	})
	return err
}
func (LevelPlayerMetadataPacket) PacketId() PacketId { return IdLevelPlayerMetadata }
func (LevelPlayerMetadataPacket) Encrypted() bool    { return false }

// RolesUpdatedPacket - сервер обновил роли игрока
type RolesUpdatedPacket struct {
	Special SpecialUserData
}

func (p RolesUpdatedPacket) Encode(buf *ByteBuffer)        { p.Special.Encode(buf) }
func (p *RolesUpdatedPacket) Decode(buf *ByteBuffer) error { return p.Special.Decode(buf) }
func (RolesUpdatedPacket) PacketId() PacketId              { return IdRolesUpdated }
func (RolesUpdatedPacket) Encrypted() bool                 { return false }

// VoiceBroadcastPacket - голосовой кадр другого игрока
type VoiceBroadcastPacket struct {
	Sender int32
	Frame  []byte
}

func (p VoiceBroadcastPacket) Encode(buf *ByteBuffer) {
	buf.WriteI32(p.Sender)
	buf.WriteByteVec(p.Frame)
}

func (p *VoiceBroadcastPacket) Decode(buf *ByteBuffer) error {
	var err error
	if p.Sender, err = buf.ReadI32(); err != nil {
		return err
	}
	p.Frame, err = buf.ReadByteVec()
	return err
}
func (VoiceBroadcastPacket) PacketId() PacketId { return IdVoiceBroadcast }
func (VoiceBroadcastPacket) Encrypted() bool    { return true }

// ChatMessageBroadcastPacket - сообщение чата другого игрока
type ChatMessageBroadcastPacket struct {
	Sender  int32
	Message string
}

func (p ChatMessageBroadcastPacket) Encode(buf *ByteBuffer) {
	buf.WriteI32(p.Sender)
	buf.WriteString(p.Message)
}

func (p *ChatMessageBroadcastPacket) Decode(buf *ByteBuffer) error {
	var err error
	if p.Sender, err = buf.ReadI32(); err != nil {
		return err
	}
	p.Message, err = buf.ReadString()
	return err
}
func (ChatMessageBroadcastPacket) PacketId() PacketId { return IdChatMessageBroadcast }
func (ChatMessageBroadcastPacket) Encrypted() bool    { return true }
