package session

import (
	"errors"
	"fmt"
	"math/rand"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/GlobedGD/globed2-core/crypto"
	"github.com/GlobedGD/globed2-core/data"
	"github.com/GlobedGD/globed2-core/transport"
)

// ====================================================================
// Session - машина состояний соединения с игровым сервером
// ====================================================================
//
// Жизненный цикл:
//
//   Disconnected → Resolving → TcpConnecting → Handshaking →
//   → Authenticating → Established → (Reconnecting → Resolving → ...)
//
// Resolve и dial выполняются в горутинах и отдают результат через
// каналы; сама машина крутится только в Update(dt) на главном тике
// и никогда не блокируется.
//
// Хэндшейк: клиент шлёт CryptoHandshakeStart со своим публичным
// ключом, сервер отвечает своим, обе стороны деривируют общий бокс.
// Дальше Login с TOTP-кодом; в secure mode код обязан быть выведен
// из свежего токена центрального сервера.
//
// Реконнект: экспоненциальный backoff с полным джиттером, кап 30 с.
// ====================================================================

// State - состояние сессии
type State int

const (
	Disconnected State = iota
	Resolving
	TcpConnecting
	Handshaking
	Authenticating
	Established
	Reconnecting
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Resolving:
		return "resolving"
	case TcpConnecting:
		return "tcp-connecting"
	case Handshaking:
		return "handshaking"
	case Authenticating:
		return "authenticating"
	case Established:
		return "established"
	case Reconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

var (
	ErrAlreadyConnected       = errors.New("session: already connected")
	ErrHandshakeTimeout       = errors.New("session: handshake timed out")
	ErrSecureModeUnsupported  = errors.New("session: server requires secure mode")
	ErrProtocolMismatch       = errors.New("session: protocol mismatch")
	ErrLoginFailed            = errors.New("session: login failed")
	ErrBanned                 = errors.New("session: banned from this server")
	ErrMuted                  = errors.New("session: muted on this server")
	ErrServerDisconnect       = errors.New("session: server closed the session")
	ErrKeepaliveExpired       = errors.New("session: keepalive expired")
)

// Severity - уровень ошибки для очереди диагностики
type Severity int

const (
	SeverityDebug Severity = iota
	SeverityWarn
	SeverityError
)

// ErrorSink принимает ошибки для показа пользователю
type ErrorSink func(sev Severity, err error)

// AuthProvider выдаёт учётные данные для пакета Login
type AuthProvider interface {
	AccountId() int32
	UserId() int32
	Username() string

	// LoginToken возвращает одноразовый код. При secure=true код
	// обязан быть выведен из свежего токена центрального сервера;
	// если это невозможно - ошибка
	LoginToken(secure bool) (string, error)

	Icons() data.PlayerIconData
	Privacy() data.UserPrivacyFlags
}

// ConnectTarget - куда подключаться
type ConnectTarget struct {
	// Address - адрес игрового сервера "host:port"
	Address string

	// RelayURL - если непустой, соединение идёт через WebSocket-релей
	RelayURL string
}

// Config - конфигурация сессии
type Config struct {
	// Protocol - версия протокола клиента
	Protocol uint16

	// Transport - конфигурация транспорта
	Transport *transport.Config

	// ReconnectBase / ReconnectCap - параметры backoff
	ReconnectBase time.Duration
	ReconnectCap  time.Duration

	// MaxPacketsPerTick - потолок обработки входящих за один тик
	MaxPacketsPerTick int
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() *Config {
	return &Config{
		Protocol:          14,
		Transport:         transport.DefaultConfig(),
		ReconnectBase:     time.Second,
		ReconnectCap:      30 * time.Second,
		MaxPacketsPerTick: 256,
	}
}

type resolveResult struct {
	addrs []*net.UDPAddr
	err   error
}

type dialResult struct {
	conn transport.Transport
	err  error
}

// Session - активное соединение с одним игровым сервером
type Session struct {
	log      *zap.Logger
	config   *Config
	resolver *transport.Resolver
	auth     AuthProvider
	errors   ErrorSink

	router *Router

	state  State
	target ConnectTarget

	conn    transport.Transport
	keypair *crypto.KeyPair
	box     *crypto.Box

	resolveCh chan resolveResult
	dialCh    chan dialResult
	resolved  []*net.UDPAddr

	// stateDeadline - таймаут текущей фазы (хэндшейк, аутентификация)
	stateDeadline time.Time

	lastKeepaliveSent time.Time
	pingCounter       uint32

	// реконнект
	attempts     int
	backoffUntil time.Time
	wasConnected bool
	rng          *rand.Rand

	// tps - тикрейт, продиктованный сервером в LoggedIn
	tps uint32

	// secureMode - сервер потребовал secure mode в хэндшейке
	secureMode bool

	// playerCount - счётчик игроков из последнего keepalive-ответа
	playerCount uint32

	// now подменяется в тестах
	now func() time.Time

	onStateChange func(old, new State)
}

// New создаёт сессию. errSink может быть nil; колбэк смены состояния
// задаётся через SetStateListener
func New(
	config *Config,
	resolver *transport.Resolver,
	auth AuthProvider,
	errSink ErrorSink,
	log *zap.Logger,
) *Session {
	if config == nil {
		config = DefaultConfig()
	}
	return &Session{
		log:       log,
		config:    config,
		resolver:  resolver,
		auth:      auth,
		errors:    errSink,
		router:    NewRouter(log),
		state:     Disconnected,
		resolveCh: make(chan resolveResult, 1),
		dialCh:    make(chan dialResult, 1),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		now:       time.Now,
	}
}

// Router возвращает диспетчер пакетов для регистрации слушателей
func (s *Session) Router() *Router { return s.router }

// State возвращает текущее состояние
func (s *Session) State() State { return s.state }

// Tps возвращает тикрейт, продиктованный сервером (0 до логина)
func (s *Session) Tps() uint32 { return s.tps }

// PlayerCount возвращает счётчик игроков сервера из keepalive
func (s *Session) PlayerCount() uint32 { return s.playerCount }

// SetStateListener задаёт колбэк смены состояния
func (s *Session) SetStateListener(fn func(old, new State)) { s.onStateChange = fn }

func (s *Session) setState(next State) {
	if s.state == next {
		return
	}
	old := s.state
	s.state = next
	s.log.Info("session state",
		zap.String("from", old.String()),
		zap.String("to", next.String()))
	if s.onStateChange != nil {
		s.onStateChange(old, next)
	}
}

// Connect начинает подключение к серверу
func (s *Session) Connect(target ConnectTarget) error {
	if s.state != Disconnected {
		return ErrAlreadyConnected
	}

	s.target = target
	s.attempts = 0
	s.wasConnected = false
	s.startResolve()
	return nil
}

// Disconnect закрывает сессию. Идемпотентен; во время хэндшейка
// просто закрывает сокеты
func (s *Session) Disconnect() {
	if s.state == Disconnected {
		return
	}

	if s.state == Established {
		// Вежливое прощание, best effort
		s.Send(data.DisconnectPacket{})
	}

	s.teardown()
	s.setState(Disconnected)
}

func (s *Session) teardown() {
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.box = nil
	s.keypair = nil
	s.tps = 0
	s.secureMode = false

	// Сливаем устаревшие результаты resolve/dial
	select {
	case <-s.resolveCh:
	default:
	}
	select {
	case res := <-s.dialCh:
		if res.conn != nil {
			res.conn.Close()
		}
	default:
	}
}

// Send кодирует и отправляет пакет. В Disconnected пакеты молча
// дропаются. Шифрованные пакеты требуют установленного бокса
func (s *Session) Send(packet data.OutPacket) {
	if s.state == Disconnected || s.conn == nil {
		return
	}

	var seal data.Sealer
	if s.box != nil {
		seal = s.box.Seal
	}

	frame, err := data.EncodePacket(packet, seal)
	if err != nil {
		s.post(SeverityWarn, fmt.Errorf("encode packet %d: %w", packet.PacketId(), err))
		return
	}

	if isDatagramPacket(packet.PacketId()) {
		err = s.conn.SendDatagram(frame)
	} else {
		err = s.conn.SendReliable(frame)
	}
	if err != nil {
		s.post(SeverityDebug, fmt.Errorf("send packet %d: %w", packet.PacketId(), err))
	}
}

// isDatagramPacket: горячие пакеты тикрейта идут по UDP,
// всё остальное - по надёжному каналу
func isDatagramPacket(id data.PacketId) bool {
	switch id {
	case data.IdPlayerData, data.IdPing, data.IdKeepalive, data.IdConnectionTest:
		return true
	default:
		return false
	}
}

// Update крутит машину состояний. Вызывается каждый тик главного треда
func (s *Session) Update(dt float64) {
	_ = dt

	switch s.state {
	case Disconnected:
		return

	case Resolving:
		select {
		case res := <-s.resolveCh:
			if res.err != nil {
				s.connectFailed(fmt.Errorf("resolve %s: %w", s.target.Address, res.err))
				return
			}
			s.resolved = res.addrs
			s.setState(TcpConnecting)
			s.startDial()
		default:
		}

	case TcpConnecting:
		select {
		case res := <-s.dialCh:
			if res.err != nil {
				s.connectFailed(fmt.Errorf("connect %s: %w", s.target.Address, res.err))
				return
			}
			s.conn = res.conn
			s.beginHandshake()
		default:
		}

	case Handshaking, Authenticating:
		s.pumpInbound()
		if s.state != Handshaking && s.state != Authenticating {
			return
		}
		if s.now().After(s.stateDeadline) {
			s.connectFailed(ErrHandshakeTimeout)
			return
		}
		s.checkConnDead()

	case Established:
		s.pumpInbound()
		if s.state != Established {
			return
		}
		s.runKeepalive()
		s.checkConnDead()

	case Reconnecting:
		if s.now().After(s.backoffUntil) {
			s.startResolve()
		}
	}
}

func (s *Session) startResolve() {
	s.setState(Resolving)

	address := s.target.Address
	go func() {
		addrs, err := s.resolver.Resolve(address)
		select {
		case s.resolveCh <- resolveResult{addrs: addrs, err: err}:
		default:
		}
	}()
}

func (s *Session) startDial() {
	target := s.target
	addrs := s.resolved
	config := s.config.Transport
	log := s.log

	go func() {
		var res dialResult
		if target.RelayURL != "" {
			conn, err := transport.DialRelay(target.RelayURL, target.Address, config, log)
			if err == nil {
				res.conn = conn
			}
			res.err = err
		} else {
			var lastErr error
			for _, addr := range addrs {
				conn, err := transport.Dial(addr, config, log)
				if err == nil {
					res.conn = conn
					break
				}
				lastErr = err
			}
			if res.conn == nil {
				res.err = lastErr
				if res.err == nil {
					res.err = errors.New("no addresses to dial")
				}
			}
		}

		select {
		case s.dialCh <- res:
		default:
			if res.conn != nil {
				res.conn.Close()
			}
		}
	}()
}

func (s *Session) beginHandshake() {
	keypair, err := crypto.GenerateKeyPair()
	if err != nil {
		s.connectFailed(fmt.Errorf("generate keypair: %w", err))
		return
	}
	s.keypair = keypair

	s.setState(Handshaking)
	s.stateDeadline = s.now().Add(s.config.Transport.HandshakeTimeout)

	s.Send(data.CryptoHandshakeStartPacket{
		Protocol:  s.config.Protocol,
		PublicKey: keypair.PublicKey,
	})
}

// pumpInbound разбирает входящие кадры и доставляет пакеты.
// Ограничен потолком пакетов за тик, чтобы не залипнуть
func (s *Session) pumpInbound() {
	if s.conn == nil {
		return
	}

	for i := 0; i < s.config.MaxPacketsPerTick; i++ {
		select {
		case frame := <-s.conn.Inbound():
			s.handleFrame(frame)
			if s.conn == nil {
				return
			}
		default:
			return
		}
	}
}

func (s *Session) handleFrame(frame transport.InboundFrame) {
	var open data.Opener
	if s.box != nil {
		open = s.box.Open
	}

	packet, err := data.DecodePacket(frame.Data, open)
	if err != nil {
		// Ошибка декодирования роняет только этот кадр
		s.post(SeverityDebug, fmt.Errorf("drop %s frame: %w", frame.Kind, err))
		return
	}
	if packet == nil {
		return
	}

	if s.handleConnectionPacket(packet) {
		return
	}

	s.router.Dispatch(packet)
}

// handleConnectionPacket обрабатывает пакеты уровня соединения.
// Возвращает true, если пакет полностью поглощён машиной состояний
func (s *Session) handleConnectionPacket(packet data.Packet) bool {
	switch p := packet.(type) {
	case *data.CryptoHandshakeResponsePacket:
		if s.state != Handshaking {
			return true
		}
		s.finishHandshake(p)
		return true

	case *data.LoggedInPacket:
		if s.state != Authenticating {
			return true
		}
		s.tps = p.Tps
		s.attempts = 0
		s.wasConnected = true
		s.setState(Established)
		s.lastKeepaliveSent = s.now()
		// LoggedIn интересен и остальным (роли, токен) - отдать дальше
		s.router.Dispatch(packet)
		return true

	case *data.LoginFailedPacket:
		s.fatal(fmt.Errorf("%w: %s", ErrLoginFailed, p.Message))
		return true

	case *data.ServerBannedPacket:
		s.fatal(fmt.Errorf("%w: %s", ErrBanned, p.Message))
		return true

	case *data.ServerMutedPacket:
		// Мьют не рвёт соединение, но пользователь должен узнать
		s.post(SeverityWarn, fmt.Errorf("%w: %s", ErrMuted, p.Message))
		s.router.Dispatch(packet)
		return true

	case *data.ProtocolMismatchPacket:
		s.fatal(fmt.Errorf("%w: server speaks protocol %d, minimum client %s",
			ErrProtocolMismatch, p.ServerProtocol, p.MinClient))
		return true

	case *data.ServerDisconnectPacket:
		s.fatal(fmt.Errorf("%w: %s", ErrServerDisconnect, p.Message))
		return true

	case *data.KeepaliveResponsePacket:
		s.playerCount = p.PlayerCount
		return true

	case *data.KeepaliveTCPResponsePacket:
		return true
	}

	return false
}

func (s *Session) finishHandshake(p *data.CryptoHandshakeResponsePacket) {
	shared, err := crypto.ComputeSharedSecret(s.keypair.PrivateKey, p.PublicKey)
	if err != nil {
		s.connectFailed(fmt.Errorf("handshake: %w", err))
		return
	}

	box, err := crypto.DeriveBox(shared, true)
	if err != nil {
		s.connectFailed(fmt.Errorf("derive session keys: %w", err))
		return
	}
	s.box = box
	s.secureMode = p.SecureMode

	token, err := s.auth.LoginToken(p.SecureMode)
	if err != nil {
		if p.SecureMode {
			s.fatal(fmt.Errorf("%w: %v", ErrSecureModeUnsupported, err))
		} else {
			s.fatal(fmt.Errorf("login token: %w", err))
		}
		return
	}

	s.setState(Authenticating)
	s.stateDeadline = s.now().Add(s.config.Transport.HandshakeTimeout)

	s.Send(data.LoginPacket{
		AccountId: s.auth.AccountId(),
		UserId:    s.auth.UserId(),
		Username:  s.auth.Username(),
		Token:     token,
		Icons:     s.auth.Icons(),
		Privacy:   s.auth.Privacy(),
	})
}

func (s *Session) runKeepalive() {
	interval := s.config.Transport.KeepaliveInterval
	now := s.now()

	if now.Sub(s.lastKeepaliveSent) >= interval {
		s.lastKeepaliveSent = now
		s.Send(data.KeepaliveTCPPacket{})
		s.Send(data.KeepalivePacket{})
	}

	// Пропущенные ответы: тишина на надёжном канале дольше 3 интервалов
	if now.Sub(s.conn.LastReliableRecv()) > 3*interval {
		s.post(SeverityWarn, ErrKeepaliveExpired)
		s.enterReconnect()
	}
}

func (s *Session) checkConnDead() {
	if s.conn == nil {
		return
	}
	select {
	case <-s.conn.Done():
		err := s.conn.Err()
		if err == nil {
			err = transport.ErrConnClosed
		}
		s.post(SeverityWarn, err)
		if s.state == Established || s.wasConnected {
			s.enterReconnect()
		} else {
			s.connectFailed(err)
		}
	default:
	}
}

// connectFailed - ошибка во время установки соединения.
// При реконнекте уходим в очередной backoff, при первичном
// подключении - сдаёмся и отдаём ошибку пользователю
func (s *Session) connectFailed(err error) {
	s.teardown()

	if s.wasConnected {
		s.post(SeverityWarn, err)
		s.enterReconnect()
		return
	}

	s.post(SeverityError, err)
	s.setState(Disconnected)
}

// fatal - невосстановимая ошибка (бан, несовместимый протокол)
func (s *Session) fatal(err error) {
	s.post(SeverityError, err)
	s.teardown()
	s.setState(Disconnected)
}

func (s *Session) enterReconnect() {
	s.teardown()

	// Экспоненциальный backoff с полным джиттером
	backoff := s.config.ReconnectBase << uint(s.attempts)
	if backoff > s.config.ReconnectCap || backoff <= 0 {
		backoff = s.config.ReconnectCap
	}
	jittered := time.Duration(s.rng.Int63n(int64(backoff) + 1))

	s.attempts++
	s.backoffUntil = s.now().Add(jittered)
	s.setState(Reconnecting)

	s.log.Info("reconnect scheduled",
		zap.Int("attempt", s.attempts),
		zap.Duration("delay", jittered))
}

func (s *Session) post(sev Severity, err error) {
	if s.errors != nil {
		s.errors(sev, err)
	}
}

// NextPingId выдаёт id для исходящего пинга
func (s *Session) NextPingId() uint32 {
	s.pingCounter++
	return s.pingCounter
}
