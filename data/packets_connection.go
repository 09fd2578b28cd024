package data

import "github.com/GlobedGD/globed2-core/crypto"

// ====================================================================
// Пакеты соединения: 10xxx (клиент) / 20xxx (сервер)
// ====================================================================

// Идентификаторы клиентских пакетов соединения
const (
	IdPing                 PacketId = 10000
	IdCryptoHandshakeStart PacketId = 10001
	IdKeepalive            PacketId = 10002
	IdLogin                PacketId = 10003
	IdDisconnect           PacketId = 10004
	IdConnectionTest       PacketId = 10005
	IdKeepaliveTCP         PacketId = 10006
)

// Идентификаторы серверных пакетов соединения
const (
	IdPingResponse             PacketId = 20000
	IdCryptoHandshakeResponse  PacketId = 20001
	IdKeepaliveResponse        PacketId = 20002
	IdServerDisconnect         PacketId = 20003
	IdLoggedIn                 PacketId = 20004
	IdLoginFailed              PacketId = 20005
	IdProtocolMismatch         PacketId = 20006
	IdKeepaliveTCPResponse     PacketId = 20007
	IdServerNotice             PacketId = 20008
	IdServerBanned             PacketId = 20009
	IdServerMuted              PacketId = 20010
	IdConnectionTestResponse   PacketId = 20011
)

// --------------------------------------------------------------------
// Клиент → сервер
// --------------------------------------------------------------------

// PingPacket - UDP-пинг, id коррелирует ответ с отправкой
type PingPacket struct {
	Id uint32
}

func (p PingPacket) Encode(buf *ByteBuffer) { buf.WriteU32(p.Id) }
func (p *PingPacket) Decode(buf *ByteBuffer) error {
	var err error
	p.Id, err = buf.ReadU32()
	return err
}
func (PingPacket) PacketId() PacketId { return IdPing }
func (PingPacket) Encrypted() bool    { return false }

// CryptoHandshakeStartPacket - начало хэндшейка: версия протокола и
// публичный ключ клиента
type CryptoHandshakeStartPacket struct {
	Protocol  uint16
	PublicKey [crypto.PublicKeySize]byte
}

func (p CryptoHandshakeStartPacket) Encode(buf *ByteBuffer) {
	buf.WriteU16(p.Protocol)
	buf.WriteBytes(p.PublicKey[:])
}

func (p *CryptoHandshakeStartPacket) Decode(buf *ByteBuffer) error {
	var err error
	if p.Protocol, err = buf.ReadU16(); err != nil {
		return err
	}
	key, err := buf.ReadBytes(crypto.PublicKeySize)
	if err != nil {
		return err
	}
	copy(p.PublicKey[:], key)
	return nil
}
func (CryptoHandshakeStartPacket) PacketId() PacketId { return IdCryptoHandshakeStart }
func (CryptoHandshakeStartPacket) Encrypted() bool    { return false }

// KeepalivePacket - UDP keepalive
type KeepalivePacket struct{}

func (KeepalivePacket) Encode(*ByteBuffer)        {}
func (*KeepalivePacket) Decode(*ByteBuffer) error { return nil }
func (KeepalivePacket) PacketId() PacketId        { return IdKeepalive }
func (KeepalivePacket) Encrypted() bool           { return false }

// KeepaliveTCPPacket - keepalive надёжного канала
type KeepaliveTCPPacket struct{}

func (KeepaliveTCPPacket) Encode(*ByteBuffer)        {}
func (*KeepaliveTCPPacket) Decode(*ByteBuffer) error { return nil }
func (KeepaliveTCPPacket) PacketId() PacketId        { return IdKeepaliveTCP }
func (KeepaliveTCPPacket) Encrypted() bool           { return false }

// LoginPacket - аутентификация на игровом сервере.
// Несёт TOTP-код, выведенный из authkey центрального сервера.
// Шифруется: токен не должен утекать наблюдателю канала
type LoginPacket struct {
	AccountId int32
	UserId    int32
	Username  string
	Token     string
	Icons     PlayerIconData
	Privacy   UserPrivacyFlags
}

func (p LoginPacket) Encode(buf *ByteBuffer) {
	buf.WriteI32(p.AccountId)
	buf.WriteI32(p.UserId)
	buf.WriteString(p.Username)
	buf.WriteString(p.Token)
	p.Icons.Encode(buf)
	p.Privacy.Encode(buf)
}

func (p *LoginPacket) Decode(buf *ByteBuffer) error {
	var err error
	if p.AccountId, err = buf.ReadI32(); err != nil {
		return err
	}
	if p.UserId, err = buf.ReadI32(); err != nil {
		return err
	}
	if p.Username, err = buf.ReadString(); err != nil {
		return err
	}
	if p.Token, err = buf.ReadString(); err != nil {
		return err
	}
	if err = p.Icons.Decode(buf); err != nil {
		return err
	}
	return p.Privacy.Decode(buf)
}
func (LoginPacket) PacketId() PacketId { return IdLogin }
func (LoginPacket) Encrypted() bool    { return true }

// DisconnectPacket - вежливое закрытие сессии
type DisconnectPacket struct{}

func (DisconnectPacket) Encode(*ByteBuffer)        {}
func (*DisconnectPacket) Decode(*ByteBuffer) error { return nil }
func (DisconnectPacket) PacketId() PacketId        { return IdDisconnect }
func (DisconnectPacket) Encrypted() bool           { return false }

// ConnectionTestPacket - проверка прохождения UDP. Сервер обязан
// вернуть uid и данные без изменений
type ConnectionTestPacket struct {
	Uid  uint32
	Data []byte
}

func (p ConnectionTestPacket) Encode(buf *ByteBuffer) {
	buf.WriteU32(p.Uid)
	buf.WriteByteVec(p.Data)
}

func (p *ConnectionTestPacket) Decode(buf *ByteBuffer) error {
	var err error
	if p.Uid, err = buf.ReadU32(); err != nil {
		return err
	}
	p.Data, err = buf.ReadByteVec()
	return err
}
func (ConnectionTestPacket) PacketId() PacketId { return IdConnectionTest }
func (ConnectionTestPacket) Encrypted() bool    { return false }

// --------------------------------------------------------------------
// Сервер → клиент
// --------------------------------------------------------------------

// PingResponsePacket - ответ на UDP-пинг, несёт счётчик игроков
type PingResponsePacket struct {
	Id          uint32
	PlayerCount uint32
}

func (p PingResponsePacket) Encode(buf *ByteBuffer) {
	buf.WriteU32(p.Id)
	buf.WriteU32(p.PlayerCount)
}

func (p *PingResponsePacket) Decode(buf *ByteBuffer) error {
	var err error
	if p.Id, err = buf.ReadU32(); err != nil {
		return err
	}
	p.PlayerCount, err = buf.ReadU32()
	return err
}
func (PingResponsePacket) PacketId() PacketId { return IdPingResponse }
func (PingResponsePacket) Encrypted() bool    { return false }

// CryptoHandshakeResponsePacket - ответ хэндшейка: публичный ключ
// сервера и флаг secure mode
type CryptoHandshakeResponsePacket struct {
	PublicKey  [crypto.PublicKeySize]byte
	SecureMode bool
}

func (p CryptoHandshakeResponsePacket) Encode(buf *ByteBuffer) {
	buf.WriteBytes(p.PublicKey[:])
	buf.WriteBool(p.SecureMode)
}

func (p *CryptoHandshakeResponsePacket) Decode(buf *ByteBuffer) error {
	key, err := buf.ReadBytes(crypto.PublicKeySize)
	if err != nil {
		return err
	}
	copy(p.PublicKey[:], key)
	p.SecureMode, err = buf.ReadBool()
	return err
}
func (CryptoHandshakeResponsePacket) PacketId() PacketId { return IdCryptoHandshakeResponse }
func (CryptoHandshakeResponsePacket) Encrypted() bool    { return false }

// KeepaliveResponsePacket - ответ на UDP keepalive
type KeepaliveResponsePacket struct {
	PlayerCount uint32
}

func (p KeepaliveResponsePacket) Encode(buf *ByteBuffer) { buf.WriteU32(p.PlayerCount) }
func (p *KeepaliveResponsePacket) Decode(buf *ByteBuffer) error {
	var err error
	p.PlayerCount, err = buf.ReadU32()
	return err
}
func (KeepaliveResponsePacket) PacketId() PacketId { return IdKeepaliveResponse }
func (KeepaliveResponsePacket) Encrypted() bool    { return false }

// KeepaliveTCPResponsePacket - ответ на keepalive надёжного канала
type KeepaliveTCPResponsePacket struct{}

func (KeepaliveTCPResponsePacket) Encode(*ByteBuffer)        {}
func (*KeepaliveTCPResponsePacket) Decode(*ByteBuffer) error { return nil }
func (KeepaliveTCPResponsePacket) PacketId() PacketId        { return IdKeepaliveTCPResponse }
func (KeepaliveTCPResponsePacket) Encrypted() bool           { return false }

// ServerDisconnectPacket - сервер разрывает сессию с причиной
type ServerDisconnectPacket struct {
	Message string
}

func (p ServerDisconnectPacket) Encode(buf *ByteBuffer) { buf.WriteString(p.Message) }
func (p *ServerDisconnectPacket) Decode(buf *ByteBuffer) error {
	var err error
	p.Message, err = buf.ReadString()
	return err
}
func (ServerDisconnectPacket) PacketId() PacketId { return IdServerDisconnect }
func (ServerDisconnectPacket) Encrypted() bool    { return false }

// LoggedInPacket - логин принят
type LoggedInPacket struct {
	Tps      uint32
	Extended ExtendedUserData
}

func (p LoggedInPacket) Encode(buf *ByteBuffer) {
	buf.WriteU32(p.Tps)
	p.Extended.Encode(buf)
}

func (p *LoggedInPacket) Decode(buf *ByteBuffer) error {
	var err error
	if p.Tps, err = buf.ReadU32(); err != nil {
		return err
	}
	return p.Extended.Decode(buf)
}
func (LoggedInPacket) PacketId() PacketId { return IdLoggedIn }
func (LoggedInPacket) Encrypted() bool    { return false }

// LoginFailedPacket - логин отклонён
type LoginFailedPacket struct {
	Message string
}

func (p LoginFailedPacket) Encode(buf *ByteBuffer) { buf.WriteString(p.Message) }
func (p *LoginFailedPacket) Decode(buf *ByteBuffer) error {
	var err error
	p.Message, err = buf.ReadString()
	return err
}
func (LoginFailedPacket) PacketId() PacketId { return IdLoginFailed }
func (LoginFailedPacket) Encrypted() bool    { return false }

// ProtocolMismatchPacket - версия протокола клиента не поддержана
type ProtocolMismatchPacket struct {
	ServerProtocol uint16
	MinClient      string
}

func (p ProtocolMismatchPacket) Encode(buf *ByteBuffer) {
	buf.WriteU16(p.ServerProtocol)
	buf.WriteString(p.MinClient)
}

func (p *ProtocolMismatchPacket) Decode(buf *ByteBuffer) error {
	var err error
	if p.ServerProtocol, err = buf.ReadU16(); err != nil {
		return err
	}
	p.MinClient, err = buf.ReadString()
	return err
}
func (ProtocolMismatchPacket) PacketId() PacketId { return IdProtocolMismatch }
func (ProtocolMismatchPacket) Encrypted() bool    { return false }

// ServerNoticePacket - уведомление от модерации
type ServerNoticePacket struct {
	Message string
}

func (p ServerNoticePacket) Encode(buf *ByteBuffer) { buf.WriteString(p.Message) }
func (p *ServerNoticePacket) Decode(buf *ByteBuffer) error {
	var err error
	p.Message, err = buf.ReadString()
	return err
}
func (ServerNoticePacket) PacketId() PacketId { return IdServerNotice }
func (ServerNoticePacket) Encrypted() bool    { return false }

// ServerBannedPacket - аккаунт забанен
type ServerBannedPacket struct {
	Message string

	// ExpiresAt - unix-время окончания, 0 = навсегда
	ExpiresAt int64
}

func (p ServerBannedPacket) Encode(buf *ByteBuffer) {
	buf.WriteString(p.Message)
	buf.WriteI64(p.ExpiresAt)
}

func (p *ServerBannedPacket) Decode(buf *ByteBuffer) error {
	var err error
	if p.Message, err = buf.ReadString(); err != nil {
		return err
	}
	p.ExpiresAt, err = buf.ReadI64()
	return err
}
func (ServerBannedPacket) PacketId() PacketId { return IdServerBanned }
func (ServerBannedPacket) Encrypted() bool    { return false }

// ServerMutedPacket - аккаунт замьючен
type ServerMutedPacket struct {
	Message   string
	ExpiresAt int64
}

func (p ServerMutedPacket) Encode(buf *ByteBuffer) {
	buf.WriteString(p.Message)
	buf.WriteI64(p.ExpiresAt)
}

func (p *ServerMutedPacket) Decode(buf *ByteBuffer) error {
	var err error
	if p.Message, err = buf.ReadString(); err != nil {
		return err
	}
	p.ExpiresAt, err = buf.ReadI64()
	return err
}
func (ServerMutedPacket) PacketId() PacketId { return IdServerMuted }
func (ServerMutedPacket) Encrypted() bool    { return false }

// ConnectionTestResponsePacket - эхо ConnectionTest
type ConnectionTestResponsePacket struct {
	Uid  uint32
	Data []byte
}

func (p ConnectionTestResponsePacket) Encode(buf *ByteBuffer) {
	buf.WriteU32(p.Uid)
	buf.WriteByteVec(p.Data)
}

func (p *ConnectionTestResponsePacket) Decode(buf *ByteBuffer) error {
	var err error
	if p.Uid, err = buf.ReadU32(); err != nil {
		return err
	}
	p.Data, err = buf.ReadByteVec()
	return err
}
func (ConnectionTestResponsePacket) PacketId() PacketId { return IdConnectionTestResponse }
func (ConnectionTestResponsePacket) Encrypted() bool    { return false }
