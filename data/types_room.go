package data

// ====================================================================
// Типы комнат
// ====================================================================

// RoomSettings - настройки комнаты, задаются владельцем
type RoomSettings struct {
	// ServerId - предпочитаемый игровой сервер комнаты
	ServerId uint8

	// PlayerLimit - лимит игроков, 0 = без лимита
	PlayerLimit uint16

	FasterReset    bool
	Hidden         bool
	PrivateInvites bool
	IsFollower     bool
	LevelIntegrity bool
	Teams          bool
	LockedTeams    bool
	ManualPinning  bool

	Collision     bool
	TwoPlayerMode bool
	Deathlink     bool
}

const (
	roomFlagFasterReset = 1 << iota
	roomFlagHidden
	roomFlagPrivateInvites
	roomFlagIsFollower
	roomFlagLevelIntegrity
	roomFlagTeams
	roomFlagLockedTeams
	roomFlagManualPinning
	roomFlagCollision
	roomFlagTwoPlayerMode
	roomFlagDeathlink
)

func (s RoomSettings) Encode(buf *ByteBuffer) {
	buf.WriteU8(s.ServerId)
	buf.WriteU16(s.PlayerLimit)

	var f uint16
	set := func(bit uint16, v bool) {
		if v {
			f |= bit
		}
	}
	set(roomFlagFasterReset, s.FasterReset)
	set(roomFlagHidden, s.Hidden)
	set(roomFlagPrivateInvites, s.PrivateInvites)
	set(roomFlagIsFollower, s.IsFollower)
	set(roomFlagLevelIntegrity, s.LevelIntegrity)
	set(roomFlagTeams, s.Teams)
	set(roomFlagLockedTeams, s.LockedTeams)
	set(roomFlagManualPinning, s.ManualPinning)
	set(roomFlagCollision, s.Collision)
	set(roomFlagTwoPlayerMode, s.TwoPlayerMode)
	set(roomFlagDeathlink, s.Deathlink)
	buf.WriteU16(f)
}

func (s *RoomSettings) Decode(buf *ByteBuffer) error {
	var err error
	if s.ServerId, err = buf.ReadU8(); err != nil {
		return err
	}
	if s.PlayerLimit, err = buf.ReadU16(); err != nil {
		return err
	}
	f, err := buf.ReadU16()
	if err != nil {
		return err
	}
	s.FasterReset = f&roomFlagFasterReset != 0
	s.Hidden = f&roomFlagHidden != 0
	s.PrivateInvites = f&roomFlagPrivateInvites != 0
	s.IsFollower = f&roomFlagIsFollower != 0
	s.LevelIntegrity = f&roomFlagLevelIntegrity != 0
	s.Teams = f&roomFlagTeams != 0
	s.LockedTeams = f&roomFlagLockedTeams != 0
	s.ManualPinning = f&roomFlagManualPinning != 0
	s.Collision = f&roomFlagCollision != 0
	s.TwoPlayerMode = f&roomFlagTwoPlayerMode != 0
	s.Deathlink = f&roomFlagDeathlink != 0
	return nil
}

// RoomTeam - команда внутри комнаты
type RoomTeam struct {
	Color Color3

	// Index - порядок отображения
	Index uint16
}

func (t RoomTeam) Encode(buf *ByteBuffer) {
	t.Color.Encode(buf)
	buf.WriteU16(t.Index)
}

func (t *RoomTeam) Decode(buf *ByteBuffer) error {
	if err := t.Color.Decode(buf); err != nil {
		return err
	}
	var err error
	t.Index, err = buf.ReadU16()
	return err
}

// RoomPlayer - игрок в списке комнаты: учётные данные + превью иконки
type RoomPlayer struct {
	AccountId int32
	Username  string
	Cube      int16
	Color1    uint16
	Color2    uint16
	Session   SessionId
}

func (p RoomPlayer) Encode(buf *ByteBuffer) {
	buf.WriteI32(p.AccountId)
	buf.WriteString(p.Username)
	buf.WriteI16(p.Cube)
	buf.WriteU16(p.Color1)
	buf.WriteU16(p.Color2)
	p.Session.Encode(buf)
}

func (p *RoomPlayer) Decode(buf *ByteBuffer) error {
	var err error
	if p.AccountId, err = buf.ReadI32(); err != nil {
		return err
	}
	if p.Username, err = buf.ReadString(); err != nil {
		return err
	}
	if p.Cube, err = buf.ReadI16(); err != nil {
		return err
	}
	if p.Color1, err = buf.ReadU16(); err != nil {
		return err
	}
	if p.Color2, err = buf.ReadU16(); err != nil {
		return err
	}
	return p.Session.Decode(buf)
}

// RoomListingInfo - строка в списке публичных комнат
type RoomListingInfo struct {
	RoomId          uint32
	RoomName        string
	Owner           RoomPlayer
	OriginalOwnerId int32
	PlayerCount     uint32
	HasPassword     bool
	Settings        RoomSettings
}

func (r RoomListingInfo) Encode(buf *ByteBuffer) {
	buf.WriteU32(r.RoomId)
	buf.WriteString(r.RoomName)
	r.Owner.Encode(buf)
	buf.WriteI32(r.OriginalOwnerId)
	buf.WriteU32(r.PlayerCount)
	buf.WriteBool(r.HasPassword)
	r.Settings.Encode(buf)
}

func (r *RoomListingInfo) Decode(buf *ByteBuffer) error {
	var err error
	if r.RoomId, err = buf.ReadU32(); err != nil {
		return err
	}
	if r.RoomName, err = buf.ReadString(); err != nil {
		return err
	}
	if err = r.Owner.Decode(buf); err != nil {
		return err
	}
	if r.OriginalOwnerId, err = buf.ReadI32(); err != nil {
		return err
	}
	if r.PlayerCount, err = buf.ReadU32(); err != nil {
		return err
	}
	if r.HasPassword, err = buf.ReadBool(); err != nil {
		return err
	}
	return r.Settings.Decode(buf)
}

// RoomStateInfo - полное состояние комнаты, приходит при входе и апдейтах
type RoomStateInfo struct {
	RoomId    uint32
	RoomOwner int32
	RoomName  string
	Passcode  string

	// PinnedLevel - закреплённый уровень, 0 = нет
	PinnedLevel SessionId

	Settings RoomSettings
	Players  []RoomPlayer
	Teams    []RoomTeam

	// TeamMembers - соответствие teamId -> аккаунты
	TeamMembers map[uint16][]int32
}

func (r RoomStateInfo) Encode(buf *ByteBuffer) {
	buf.WriteU32(r.RoomId)
	buf.WriteI32(r.RoomOwner)
	buf.WriteString(r.RoomName)
	buf.WriteString(r.Passcode)
	r.PinnedLevel.Encode(buf)
	r.Settings.Encode(buf)
	WriteVec(buf, r.Players, func(b *ByteBuffer, v RoomPlayer) { v.Encode(b) })
	WriteVec(buf, r.Teams, func(b *ByteBuffer, v RoomTeam) { v.Encode(b) })

	buf.WriteU32(uint32(len(r.TeamMembers)))
	for teamId, members := range r.TeamMembers {
		buf.WriteU16(teamId)
		WriteVec(buf, members, func(b *ByteBuffer, v int32) { b.WriteI32(v) })
	}
}

func (r *RoomStateInfo) Decode(buf *ByteBuffer) error {
	var err error
	if r.RoomId, err = buf.ReadU32(); err != nil {
		return err
	}
	if r.RoomOwner, err = buf.ReadI32(); err != nil {
		return err
	}
	if r.RoomName, err = buf.ReadString(); err != nil {
		return err
	}
	if r.Passcode, err = buf.ReadString(); err != nil {
		return err
	}
	if err = r.PinnedLevel.Decode(buf); err != nil {
		return err
	}
	if err = r.Settings.Decode(buf); err != nil {
		return err
	}
	if r.Players, err = ReadVec(buf, func(b *ByteBuffer) (RoomPlayer, error) {
		var v RoomPlayer
		err := v.Decode(b)
		return v, err
	}); err != nil {
		return err
	}
	if r.Teams, err = ReadVec(buf, func(b *ByteBuffer) (RoomTeam, error) {
		var v RoomTeam
		err := v.Decode(b)
		return v, err
	}); err != nil {
		return err
	}

	count, err := buf.ReadU32()
	if err != nil {
		return err
	}
	if count > MaxSequenceLen {
		return ErrDecodeOverflow
	}
	r.TeamMembers = make(map[uint16][]int32, count)
	for i := uint32(0); i < count; i++ {
		teamId, err := buf.ReadU16()
		if err != nil {
			return err
		}
		members, err := ReadVec(buf, func(b *ByteBuffer) (int32, error) { return b.ReadI32() })
		if err != nil {
			return err
		}
		r.TeamMembers[teamId] = members
	}
	return nil
}
