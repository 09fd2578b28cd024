package data

// ====================================================================
// Админские пакеты: 19xxx (клиент) / 29xxx (сервер)
// ====================================================================

// Идентификаторы клиентских админских пакетов
const (
	IdAdminAuth       PacketId = 19000
	IdAdminNotice     PacketId = 19001
	IdAdminFetchUser  PacketId = 19002
	IdAdminUpdateUser PacketId = 19003
)

// Идентификаторы серверных админских пакетов
const (
	IdAdminAuthSuccess    PacketId = 29000
	IdAdminAuthFailed     PacketId = 29001
	IdAdminError          PacketId = 29002
	IdAdminUserData       PacketId = 29003
	IdAdminSuccessMessage PacketId = 29004
)

// NoticeTarget - кому адресовано админское уведомление
type NoticeTarget uint8

const (
	// NoticeTargetPlayer - один игрок
	NoticeTargetPlayer NoticeTarget = iota

	// NoticeTargetLevel - все на уровне
	NoticeTargetLevel

	// NoticeTargetEveryone - весь сервер
	NoticeTargetEveryone
)

// AdminAuthPacket - авторизация админки. Шифруется: пароль
type AdminAuthPacket struct {
	Password string
}

func (p AdminAuthPacket) Encode(buf *ByteBuffer) { buf.WriteString(p.Password) }
func (p *AdminAuthPacket) Decode(buf *ByteBuffer) error {
	var err error
	p.Password, err = buf.ReadString()
	return err
}
func (AdminAuthPacket) PacketId() PacketId { return IdAdminAuth }
func (AdminAuthPacket) Encrypted() bool    { return true }

// AdminNoticePacket - отправка уведомления игрокам
type AdminNoticePacket struct {
	Target  NoticeTarget
	Player  int32
	Level   SessionId
	Message string
}

func (p AdminNoticePacket) Encode(buf *ByteBuffer) {
	buf.WriteU8(uint8(p.Target))
	buf.WriteI32(p.Player)
	p.Level.Encode(buf)
	buf.WriteString(p.Message)
}

func (p *AdminNoticePacket) Decode(buf *ByteBuffer) error {
	t, err := buf.ReadU8()
	if err != nil {
		return err
	}
	p.Target = NoticeTarget(t)
	if p.Player, err = buf.ReadI32(); err != nil {
		return err
	}
	if err = p.Level.Decode(buf); err != nil {
		return err
	}
	p.Message, err = buf.ReadString()
	return err
}
func (AdminNoticePacket) PacketId() PacketId { return IdAdminNotice }
func (AdminNoticePacket) Encrypted() bool    { return true }

// AdminFetchUserPacket - запрос данных пользователя
type AdminFetchUserPacket struct {
	Query string
}

func (p AdminFetchUserPacket) Encode(buf *ByteBuffer) { buf.WriteString(p.Query) }
func (p *AdminFetchUserPacket) Decode(buf *ByteBuffer) error {
	var err error
	p.Query, err = buf.ReadString()
	return err
}
func (AdminFetchUserPacket) PacketId() PacketId { return IdAdminFetchUser }
func (AdminFetchUserPacket) Encrypted() bool    { return true }

// AdminUpdateUserPacket - изменение пользователя (бан, мьют, роли)
type AdminUpdateUserPacket struct {
	AccountId   int32
	Banned      bool
	Muted       bool
	BanExpires  int64
	MuteExpires int64
	Reason      string
	RoleIds     []uint8
}

func (p AdminUpdateUserPacket) Encode(buf *ByteBuffer) {
	buf.WriteI32(p.AccountId)
	buf.WriteBool(p.Banned)
	buf.WriteBool(p.Muted)
	buf.WriteI64(p.BanExpires)
	buf.WriteI64(p.MuteExpires)
	buf.WriteString(p.Reason)
	buf.WriteByteVec(p.RoleIds)
}

func (p *AdminUpdateUserPacket) Decode(buf *ByteBuffer) error {
	var err error
	if p.AccountId, err = buf.ReadI32(); err != nil {
		return err
	}
	if p.Banned, err = buf.ReadBool(); err != nil {
		return err
	}
	if p.Muted, err = buf.ReadBool(); err != nil {
		return err
	}
	if p.BanExpires, err = buf.ReadI64(); err != nil {
		return err
	}
	if p.MuteExpires, err = buf.ReadI64(); err != nil {
		return err
	}
	if p.Reason, err = buf.ReadString(); err != nil {
		return err
	}
	p.RoleIds, err = buf.ReadByteVec()
	return err
}
func (AdminUpdateUserPacket) PacketId() PacketId { return IdAdminUpdateUser }
func (AdminUpdateUserPacket) Encrypted() bool    { return true }

// AdminAuthSuccessPacket - админка открыта, внутри права
type AdminAuthSuccessPacket struct {
	Permissions UserPermissions
}

func (p AdminAuthSuccessPacket) Encode(buf *ByteBuffer)        { p.Permissions.Encode(buf) }
func (p *AdminAuthSuccessPacket) Decode(buf *ByteBuffer) error { return p.Permissions.Decode(buf) }
func (AdminAuthSuccessPacket) PacketId() PacketId              { return IdAdminAuthSuccess }
func (AdminAuthSuccessPacket) Encrypted() bool                 { return false }

// AdminAuthFailedPacket - авторизация админки отклонена
type AdminAuthFailedPacket struct{}

func (AdminAuthFailedPacket) Encode(*ByteBuffer)        {}
func (*AdminAuthFailedPacket) Decode(*ByteBuffer) error { return nil }
func (AdminAuthFailedPacket) PacketId() PacketId        { return IdAdminAuthFailed }
func (AdminAuthFailedPacket) Encrypted() bool           { return false }

// AdminErrorPacket - ошибка админской операции
type AdminErrorPacket struct {
	Message string
}

func (p AdminErrorPacket) Encode(buf *ByteBuffer) { buf.WriteString(p.Message) }
func (p *AdminErrorPacket) Decode(buf *ByteBuffer) error {
	var err error
	p.Message, err = buf.ReadString()
	return err
}
func (AdminErrorPacket) PacketId() PacketId { return IdAdminError }
func (AdminErrorPacket) Encrypted() bool    { return false }

// AdminUserDataPacket - данные пользователя для админки
type AdminUserDataPacket struct {
	AccountId  int32
	Username   string
	Banned     bool
	Muted      bool
	BanExpires int64
	MuteExpires int64
	Reason     string
	RoleIds    []uint8
}

func (p AdminUserDataPacket) Encode(buf *ByteBuffer) {
	buf.WriteI32(p.AccountId)
	buf.WriteString(p.Username)
	buf.WriteBool(p.Banned)
	buf.WriteBool(p.Muted)
	buf.WriteI64(p.BanExpires)
	buf.WriteI64(p.MuteExpires)
	buf.WriteString(p.Reason)
	buf.WriteByteVec(p.RoleIds)
}

func (p *AdminUserDataPacket) Decode(buf *ByteBuffer) error {
	var err error
	if p.AccountId, err = buf.ReadI32(); err != nil {
		return err
	}
	if p.Username, err = buf.ReadString(); err != nil {
		return err
	}
	if p.Banned, err = buf.ReadBool(); err != nil {
		return err
	}
	if p.Muted, err = buf.ReadBool(); err != nil {
		return err
	}
	if p.BanExpires, err = buf.ReadI64(); err != nil {
		return err
	}
	if p.MuteExpires, err = buf.ReadI64(); err != nil {
		return err
	}
	if p.Reason, err = buf.ReadString(); err != nil {
		return err
	}
	p.RoleIds, err = buf.ReadByteVec()
	return err
}
func (AdminUserDataPacket) PacketId() PacketId { return IdAdminUserData }
func (AdminUserDataPacket) Encrypted() bool    { return false }

// AdminSuccessMessagePacket - операция выполнена
type AdminSuccessMessagePacket struct {
	Message string
}

func (p AdminSuccessMessagePacket) Encode(buf *ByteBuffer) { buf.WriteString(p.Message) }
func (p *AdminSuccessMessagePacket) Decode(buf *ByteBuffer) error {
	var err error
	p.Message, err = buf.ReadString()
	return err
}
func (AdminSuccessMessagePacket) PacketId() PacketId { return IdAdminSuccessMessage }
func (AdminSuccessMessagePacket) Encrypted() bool    { return false }
