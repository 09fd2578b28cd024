package core

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/GlobedGD/globed2-core/crypto"
	"github.com/GlobedGD/globed2-core/data"
	"github.com/GlobedGD/globed2-core/directory"
	"github.com/GlobedGD/globed2-core/game"
	"github.com/GlobedGD/globed2-core/room"
	"github.com/GlobedGD/globed2-core/session"
	"github.com/GlobedGD/globed2-core/settings"
	"github.com/GlobedGD/globed2-core/transport"
	"github.com/GlobedGD/globed2-core/voice"
	"github.com/GlobedGD/globed2-core/web"
)

// ====================================================================
// Core - сборка клиентского ядра
// ====================================================================
//
// Единственное значение, связывающее все компоненты: никаких
// синглтонов, тесты собирают собственный Core с фейковыми портами.
// Владение: Core владеет сессией, реестром серверов, отправителем
// и голосовым менеджером с потоками говорящих; реестр удалённых
// игроков голосовых потоков не держит; интерполятор живёт у реестра.
//
// Движок зовёт Tick(dt) каждый кадр; всё остальное - реакция.
// ====================================================================

// ProtocolVersion - версия протокола клиента
const ProtocolVersion uint16 = 14

// Ключ сохранённого authkey (запечатан локальным боксом)
const keyAuthkeySealed = "_authkey-sealed"

// Options - порты и параметры сборки ядра
type Options struct {
	Surface game.GameSurface
	Store   settings.KVStore

	// Messages - мессаджинг игры для шага верификации
	Messages web.MessageBackend

	// Audio - аудио-подсистема платформы
	Audio          voice.AudioPort
	AudioOutput    voice.Output
	DecoderFactory voice.DecoderFactory
	Encoder        voice.Encoder

	// Friends - список друзей для фильтра приглашений
	Friends room.FriendList

	Identity web.Identity

	// ResourceReader / ResourceManifest - фоновая проверка ресурсов
	ResourceReader   ResourceReader
	ResourceManifest map[string]string

	Args   []string
	Getenv func(string) string

	Logger *zap.Logger
}

// ChatHandler - колбэк входящего чата
type ChatHandler func(sender int32, message string)

// Core - клиентское ядро
type Core struct {
	log   *zap.Logger
	flags Flags

	surface  game.GameSurface
	store    settings.KVStore
	settings *settings.Manager
	errors   *ErrorQueue

	resolver  *transport.Resolver
	directory *directory.Directory
	pinger    *directory.Pinger

	webClient *web.Client
	auth      *web.Authenticator

	session *session.Session
	sender  *session.Sender

	interp   *game.Interpolator
	registry *game.Registry

	voice    *voice.Manager
	recorder *voice.Recorder

	rooms  *room.Manager
	events *room.EventDispatcher

	integrity *IntegrityChecker
	localBox  *crypto.SecretBox

	// localIcons / localPrivacy - что уходит в Login и SyncIcons
	localIcons   data.PlayerIconData
	localPrivacy data.UserPrivacyFlags

	// localState - флаги локального игрока для кадров PlayerData
	localFrame          uint8
	localDeathCount     uint8
	localDead           bool
	localLastDeathReal  bool
	localPracticing     bool
	localInEditor       bool

	// levelTime - серверное время уровня (секунды с входа)
	levelTime float64

	currentLevel data.SessionId
	platformer   bool

	// userData - роли и права, выданные сервером после логина
	userData data.ExtendedUserData

	// adminOpen - админка авторизована на этом сервере
	adminOpen bool

	onChat ChatHandler
}

// New собирает ядро
func New(opts Options) (*Core, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	getenv := opts.Getenv
	if getenv == nil {
		getenv = func(string) string { return "" }
	}

	c := &Core{
		log:        log,
		flags:      ParseFlags(opts.Args, getenv),
		surface:    opts.Surface,
		store:      opts.Store,
		errors:     NewErrorQueue(),
		localIcons: data.DefaultPlayerIconData(),
	}

	c.settings = settings.NewManager(opts.Store)

	transportConfig := transport.DefaultConfig()
	c.resolver = transport.NewResolver(transportConfig.ResolveTTL)
	c.directory = directory.New(opts.Store, log.Named("directory"))

	pinger, err := directory.NewPinger(c.resolver, log.Named("pinger"))
	if err != nil {
		return nil, fmt.Errorf("start pinger: %w", err)
	}
	c.pinger = pinger

	baseURL := ""
	if central, err := c.directory.ActiveCentral(); err == nil {
		baseURL = central.URL
	}
	c.webClient = web.NewClient(baseURL, ProtocolVersion, c.flags.NoSSLVerify, log.Named("web"))
	c.auth = web.NewAuthenticator(c.webClient, opts.Messages, opts.Identity, log.Named("auth"))

	localBox, err := LocalBox()
	if err != nil {
		return nil, fmt.Errorf("derive local box: %w", err)
	}
	c.localBox = localBox
	c.loadStoredAuthkey()

	sessionConfig := session.DefaultConfig()
	sessionConfig.Protocol = ProtocolVersion
	sessionConfig.Transport = transportConfig

	c.session = session.New(sessionConfig, c.resolver, &authProvider{core: c},
		func(sev session.Severity, err error) { c.errors.PushError(sev, err) },
		log.Named("session"))
	c.session.SetStateListener(c.onSessionState)

	c.sender = session.NewSender(c.session, &stateSource{core: c}, log.Named("sender"))

	c.voice = voice.NewManager(opts.AudioOutput, opts.DecoderFactory,
		func(err error) { c.errors.PushError(session.SeverityWarn, err) },
		log.Named("voice"))
	c.recorder = voice.NewRecorder(opts.Audio, opts.Encoder,
		func(err error) { c.errors.PushError(session.SeverityWarn, err) },
		log.Named("recorder"))

	// Интерполятор и реестр зависят от настроек и голосового менеджера
	c.rebuildInterpolator()

	c.rooms = room.NewManager(c.session.Send, c.settings, opts.Friends,
		opts.Identity.AccountId, log.Named("room"))
	c.events = room.NewEventDispatcher()

	if opts.ResourceReader != nil && !c.flags.SkipResourceCheck {
		c.integrity = NewIntegrityChecker(opts.ResourceReader, opts.ResourceManifest,
			c.errors, log.Named("integrity"))
		c.integrity.Start()
	}

	c.registerListeners()
	return c, nil
}

// rebuildInterpolator пересобирает интерполятор и реестр под текущий
// уровень (режим и ожидаемую дельту)
func (c *Core) rebuildInterpolator() {
	expected := float32(1.0 / 30.0)
	if tps := c.session.Tps(); tps > 0 {
		expected = 1.0 / float32(tps)
	}

	c.interp = game.NewInterpolator(game.InterpolatorSettings{
		Realtime:      c.settings.Current().Players.RealtimeInterpolation,
		Platformer:    c.platformer,
		ExpectedDelta: expected,
	}, c.log.Named("interp"))

	if c.flags.DebugInterpolation {
		c.interp.EnableDebugLog(game.NewLerpLogger(c.log.Named("lerp")))
	}

	c.registry = game.NewRegistry(c.surface, c.interp, c.session.Send, c.log.Named("registry"))
	c.applyPolicies()
}

func (c *Core) applyPolicies() {
	s := c.settings.Current()
	c.registry.SetPolicies(game.Policies{
		HidePracticing: s.Players.HidePracticing,
		HideNearby:     s.Players.HideNearby,
		HideStale:      s.Players.HideStale,
	})
	c.voice.Volume = float32(s.Voice.Volume)
	c.voice.Deafened = s.Voice.Deafened
	c.voice.ProximityEnabled = s.Voice.Proximity
}

// --------------------------------------------------------------------
// Доступ к компонентам
// --------------------------------------------------------------------

func (c *Core) Session() *session.Session      { return c.session }
func (c *Core) Directory() *directory.Directory { return c.directory }
func (c *Core) Settings() *settings.Manager    { return c.settings }
func (c *Core) Rooms() *room.Manager           { return c.rooms }
func (c *Core) Events() *room.EventDispatcher  { return c.events }
func (c *Core) Voice() *voice.Manager          { return c.voice }
func (c *Core) Errors() *ErrorQueue            { return c.errors }
func (c *Core) Auth() *web.Authenticator       { return c.auth }
func (c *Core) Web() *web.Client               { return c.webClient }
func (c *Core) Registry() *game.Registry       { return c.registry }

// SetChatHandler задаёт обработчик входящего чата
func (c *Core) SetChatHandler(handler ChatHandler) { c.onChat = handler }

// SetIcons обновляет косметику и синхронизирует её с сервером
func (c *Core) SetIcons(icons data.PlayerIconData) {
	c.localIcons = icons
	if c.session.State() == session.Established {
		c.session.Send(data.SyncIconsPacket{Icons: icons})
	}
}

// SetPrivacy обновляет флаги приватности
func (c *Core) SetPrivacy(privacy data.UserPrivacyFlags) { c.localPrivacy = privacy }

// SetEditorState сообщает ядру, что игрок в редакторе
func (c *Core) SetEditorState(inEditor bool) {
	c.localInEditor = inEditor
	c.voice.InEditor = inEditor
}

// NotifyDeath учитывает смерть локального игрока. real=false для
// смертей, которые не должны проигрывать эффект у других (нойклип)
func (c *Core) NotifyDeath(real bool) {
	c.localDeathCount++
	c.localDead = true
	c.localLastDeathReal = real
}

// NotifyRespawn сбрасывает флаг смерти
func (c *Core) NotifyRespawn() { c.localDead = false }

// SetPracticing сообщает о практис-моде
func (c *Core) SetPracticing(practicing bool) { c.localPracticing = practicing }

// --------------------------------------------------------------------
// Подключение
// --------------------------------------------------------------------

// RefreshServers запрашивает список серверов у центрального.
// При сетевой ошибке поднимает кэш прошлого запуска
func (c *Core) RefreshServers(ctx context.Context) error {
	entries, raw, err := c.webClient.FetchServers(ctx)
	if err != nil {
		c.log.Warn("server list fetch failed, trying cache", zap.Error(err))
		if cacheErr := c.directory.InitFromCache(); cacheErr != nil {
			return fmt.Errorf("fetch servers: %w", err)
		}
		return nil
	}

	c.directory.SetServers(entries, raw)
	return nil
}

// Authenticate проходит challenge/verify и сохраняет authkey локально
func (c *Core) Authenticate(ctx context.Context) error {
	if err := c.auth.RunChallenge(ctx); err != nil {
		return err
	}
	c.storeAuthkey()
	return nil
}

// ConnectTo подключается к игровому серверу по id
func (c *Core) ConnectTo(serverId string) error {
	srv, ok := c.directory.Server(serverId)
	if !ok {
		return fmt.Errorf("unknown server %q", serverId)
	}
	c.directory.SetActiveServer(serverId)

	target := session.ConnectTarget{Address: srv.Entry.Address}
	if relay, ok := c.directory.ActiveRelay(); ok {
		target.RelayURL = relay.Address
	}

	return c.session.Connect(target)
}

// ConnectStandalone подключается к одиночному серверу напрямую
func (c *Core) ConnectStandalone(address string) error {
	c.directory.SetStandalone(address)
	return c.session.Connect(session.ConnectTarget{Address: address})
}

// Disconnect закрывает сессию
func (c *Core) Disconnect() { c.session.Disconnect() }

// --------------------------------------------------------------------
// Уровни
// --------------------------------------------------------------------

// JoinLevel входит в сессию уровня
func (c *Core) JoinLevel(levelId uint32, authorId int32, platformer bool, editorCollab bool) {
	roomSettings := c.rooms.Settings()
	serverId, ok := c.directory.PickServerId(c.rooms.RoomId(), &roomSettings)
	if !ok {
		c.errors.Push(session.SeverityWarn, "cannot join level: no active server")
		return
	}

	sessionId := c.rooms.MakeSessionId(serverId, levelId)

	c.platformer = platformer
	c.rebuildInterpolator()
	c.levelTime = 0
	c.localFrame = 0
	c.localDeathCount = 0

	c.session.Send(data.LevelJoinPacket{
		Session:      sessionId,
		AuthorId:     authorId,
		Platformer:   platformer,
		EditorCollab: editorCollab,
	})

	c.currentLevel = sessionId
	c.sender.NotifyLevelJoin(sessionId)
}

// LeaveLevel выходит из сессии уровня
func (c *Core) LeaveLevel() {
	if c.currentLevel.IsNone() {
		return
	}

	c.session.Send(data.LevelLeavePacket{})
	c.sender.NotifyLevelLeave()
	c.registry.Clear()
	c.voice.Clear()
	c.events.Clear()
	c.currentLevel = 0
}

// SendChat шлёт сообщение чата (шифруется)
func (c *Core) SendChat(message string) {
	if message == "" {
		return
	}
	c.session.Send(data.ChatMessagePacket{Message: message})
}

// RequestPlayerList запрашивает полный список игроков сервера
func (c *Core) RequestPlayerList() {
	c.session.Send(data.RequestPlayerListPacket{})
}

// SyncLevelMetadata шлёт метаданные прохождения текущего уровня
func (c *Core) SyncLevelMetadata(localBest, attempts int32) {
	if c.currentLevel.IsNone() {
		return
	}
	c.session.Send(data.SyncPlayerMetadataPacket{LocalBest: localBest, Attempts: attempts})
}

// FireEvent шлёт событие уровня серверу (триггер FireServerObject)
func (c *Core) FireEvent(event data.Event) {
	if event.IsReserved() {
		c.errors.Push(session.SeverityWarn,
			fmt.Sprintf("refusing to fire reserved event 0x%04x", event.Type))
		return
	}
	c.session.Send(data.FireEventPacket{Event: event})
}

// --------------------------------------------------------------------
// Голос
// --------------------------------------------------------------------

// StartVoice начинает запись (PTT key-down)
func (c *Core) StartVoice() {
	if !c.settings.Current().Voice.Enabled {
		return
	}
	if err := c.recorder.Start(c.settings.Current().Voice.InputDevice); err != nil {
		c.errors.PushError(session.SeverityError, err)
	}
}

// StopVoice останавливает запись (PTT key-up)
func (c *Core) StopVoice() { c.recorder.Stop() }

// --------------------------------------------------------------------
// Админка
// --------------------------------------------------------------------

// Permissions возвращает права, выданные сервером
func (c *Core) Permissions() data.UserPermissions { return c.userData.Permissions }

// AdminOpen сообщает, авторизована ли админка
func (c *Core) AdminOpen() bool { return c.adminOpen }

// AdminLogin авторизует админку. Пакет шифруется сессионным боксом
func (c *Core) AdminLogin(password string) {
	if !c.userData.Permissions.CanModerate() {
		c.errors.Push(session.SeverityWarn, "admin login without any permissions")
		return
	}
	c.session.Send(data.AdminAuthPacket{Password: password})
}

// AdminNotice шлёт уведомление игрокам (после AdminLogin)
func (c *Core) AdminNotice(target data.NoticeTarget, player int32, level data.SessionId, message string) {
	if !c.adminOpen {
		c.errors.Push(session.SeverityWarn, "admin notice before admin login")
		return
	}
	c.session.Send(data.AdminNoticePacket{
		Target:  target,
		Player:  player,
		Level:   level,
		Message: message,
	})
}

// --------------------------------------------------------------------
// Главный тик
// --------------------------------------------------------------------

// Tick продвигает ядро на dt секунд. Зовётся движком каждый кадр
func (c *Core) Tick(dt float64) {
	c.session.Update(dt)
	c.sender.Update(dt)

	if !c.currentLevel.IsNone() {
		c.levelTime += dt
		c.registry.Tick(float32(dt))
		c.voice.Tick(c.voiceDistance)
	}

	c.recorder.Drain(c.session.Send)
	c.pinger.Drain(c.directory)
	c.directory.UpdateActivePlayerCount(c.session.PlayerCount())

	c.drainErrors()
}

// PingServers рассылает пинги всем серверам (экран выбора)
func (c *Core) PingServers() { c.pinger.PingAll(c.directory) }

func (c *Core) voiceDistance(accountId int32) (float32, bool) {
	state, ok := c.interp.PlayerState(accountId)
	if !ok {
		return 0, false
	}
	local := c.surface.Player1Transform()
	dx := float64(state.Player1.Position.X - local.Position.X)
	dy := float64(state.Player1.Position.Y - local.Position.Y)
	return float32(math.Sqrt(dx*dx + dy*dy)), true
}

func (c *Core) drainErrors() {
	for _, entry := range c.errors.Drain() {
		switch entry.Severity {
		case session.SeverityError:
			c.log.Error(entry.Message)
			c.surface.ShowToast(entry.Message, game.ToastError, 4)
		case session.SeverityWarn:
			c.log.Warn(entry.Message)
		default:
			c.log.Debug(entry.Message)
		}
	}
}

// Shutdown закрывает ядро
func (c *Core) Shutdown() {
	c.session.Disconnect()
	c.recorder.Stop()
	c.pinger.Close()
}

// --------------------------------------------------------------------
// Слушатели пакетов
// --------------------------------------------------------------------

func (c *Core) registerListeners() {
	router := c.session.Router()

	router.Listen(data.IdLoggedIn, 0, func(p data.Packet) session.DispatchResult {
		logged := p.(*data.LoggedInPacket)

		tps := logged.Tps
		if override := c.settings.Current().Globed.TpsOverride; override != 0 {
			tps = override
		}
		c.sender.SetTps(tps)

		c.userData = logged.Extended
		c.adminOpen = false

		c.session.Send(data.SyncIconsPacket{Icons: c.localIcons})
		return session.Continue
	})

	router.Listen(data.IdRolesUpdated, 0, func(p data.Packet) session.DispatchResult {
		special := p.(*data.RolesUpdatedPacket).Special
		c.userData.RoleIds = special.RoleIds
		c.userData.NameColor = special.NameColor
		return session.Continue
	})

	router.Listen(data.IdAdminAuthSuccess, 0, func(p data.Packet) session.DispatchResult {
		c.adminOpen = true
		c.userData.Permissions = p.(*data.AdminAuthSuccessPacket).Permissions
		return session.Continue
	})

	router.Listen(data.IdAdminAuthFailed, 0, func(p data.Packet) session.DispatchResult {
		c.adminOpen = false
		c.errors.Push(session.SeverityError, "admin authentication rejected")
		return session.Continue
	})

	router.Listen(data.IdAdminError, 0, func(p data.Packet) session.DispatchResult {
		c.errors.Push(session.SeverityError, p.(*data.AdminErrorPacket).Message)
		return session.Continue
	})

	router.Listen(data.IdLevelData, 0, func(p data.Packet) session.DispatchResult {
		packet := p.(*data.LevelDataPacket)
		c.registry.HandleLevelData(packet)

		// Голосовые потоки игроков, ушедших с уровня
		c.pruneVoiceStreams()

		for i := range packet.Events {
			c.events.Dispatch(&packet.Events[i])
		}
		return session.Continue
	})

	router.Listen(data.IdPlayerProfiles, 0, func(p data.Packet) session.DispatchResult {
		c.registry.HandleProfiles(p.(*data.PlayerProfilesPacket).Profiles)
		return session.Continue
	})

	router.Listen(data.IdVoiceBroadcast, 0, func(p data.Packet) session.DispatchResult {
		c.voice.HandleBroadcast(p.(*data.VoiceBroadcastPacket))
		return session.Continue
	})

	router.Listen(data.IdChatMessageBroadcast, 0, func(p data.Packet) session.DispatchResult {
		packet := p.(*data.ChatMessageBroadcastPacket)
		if c.onChat != nil {
			c.onChat(packet.Sender, packet.Message)
		}
		return session.Continue
	})

	roomState := func(p data.Packet) session.DispatchResult {
		switch packet := p.(type) {
		case *data.RoomCreatedPacket:
			c.rooms.HandleRoomState(&packet.State)
		case *data.RoomJoinedPacket:
			c.rooms.HandleRoomState(&packet.State)
		case *data.RoomStatePacket:
			c.rooms.HandleRoomState(&packet.State)
		}
		return session.Continue
	}
	router.Listen(data.IdRoomCreated, 0, roomState)
	router.Listen(data.IdRoomJoined, 0, roomState)
	router.Listen(data.IdRoomState, 0, roomState)

	router.Listen(data.IdRoomJoinFailed, 0, func(p data.Packet) session.DispatchResult {
		c.rooms.HandleJoinFailed(p.(*data.RoomJoinFailedPacket).Reason)
		return session.Continue
	})

	router.Listen(data.IdRoomCreateFailed, 0, func(p data.Packet) session.DispatchResult {
		c.rooms.HandleCreateFailed(p.(*data.RoomCreateFailedPacket).Reason)
		return session.Continue
	})

	router.Listen(data.IdRoomInvite, 0, func(p data.Packet) session.DispatchResult {
		c.rooms.HandleInvite(p.(*data.RoomInvitePacket))
		return session.Continue
	})

	router.Listen(data.IdRoomList, 0, func(p data.Packet) session.DispatchResult {
		c.rooms.HandleRoomList(p.(*data.RoomListPacket).Rooms)
		return session.Continue
	})

	router.Listen(data.IdLevelPinned, 0, func(p data.Packet) session.DispatchResult {
		c.rooms.HandleLevelPinned(p.(*data.LevelPinnedPacket).Session)
		return session.Continue
	})

	router.Listen(data.IdEventBroadcast, 0, func(p data.Packet) session.DispatchResult {
		c.events.Dispatch(&p.(*data.EventBroadcastPacket).Event)
		return session.Continue
	})

	router.Listen(data.IdServerNotice, 0, func(p data.Packet) session.DispatchResult {
		c.surface.ShowToast(p.(*data.ServerNoticePacket).Message, game.ToastInfo, 6)
		return session.Continue
	})
}

// pruneVoiceStreams закрывает потоки говорящих, ушедших с уровня
func (c *Core) pruneVoiceStreams() {
	alive := make(map[int32]struct{})
	for _, id := range c.registry.Ids() {
		alive[id] = struct{}{}
	}
	for _, id := range c.voice.Speakers() {
		if _, ok := alive[id]; !ok {
			c.voice.RemoveSpeaker(id)
		}
	}
}

func (c *Core) onSessionState(old, next session.State) {
	if next == session.Disconnected {
		c.rooms.Reset()
		c.registry.Clear()
		c.voice.Clear()
		c.sender.NotifyLevelLeave()
		c.currentLevel = 0
		c.adminOpen = false
		c.userData = data.ExtendedUserData{}
	}
	_ = old
}

// --------------------------------------------------------------------
// Сохранение authkey
// --------------------------------------------------------------------

func (c *Core) storeAuthkey() {
	key := c.auth.Authkey()
	sealed, err := c.localBox.Seal(key[:])
	if err != nil {
		c.log.Warn("failed to seal authkey", zap.Error(err))
		return
	}
	c.store.Set(keyAuthkeySealed, crypto.Base64Encode(sealed, crypto.Base64Standard))
}

func (c *Core) loadStoredAuthkey() {
	raw, ok := c.store.Get(keyAuthkeySealed)
	if !ok {
		return
	}
	sealed, err := crypto.Base64Decode(raw, crypto.Base64Standard)
	if err != nil {
		return
	}
	plain, err := c.localBox.Open(sealed)
	if err != nil || len(plain) != 32 {
		// Другая машина или битые данные - challenge пройдём заново
		c.store.Delete(keyAuthkeySealed)
		return
	}

	var key [32]byte
	copy(key[:], plain)
	c.auth.SetAuthkey(key)
}

// --------------------------------------------------------------------
// Адаптеры портов сессии
// --------------------------------------------------------------------

// authProvider - session.AuthProvider поверх ядра
type authProvider struct {
	core *Core
}

func (a *authProvider) AccountId() int32 { return a.core.auth.Identity().AccountId }
func (a *authProvider) UserId() int32    { return a.core.auth.Identity().UserId }
func (a *authProvider) Username() string { return a.core.auth.Identity().AccountName }

func (a *authProvider) LoginToken(secure bool) (string, error) {
	if secure {
		// Secure mode: серверу нужен свежий токен центрального.
		// Единственное санкционированное блокирование главного треда
		ctx, cancel := context.WithTimeout(context.Background(), web.DefaultTimeout)
		defer cancel()
		return a.core.auth.RequestAuthToken(ctx)
	}
	return a.core.auth.TotpCode()
}

func (a *authProvider) Icons() data.PlayerIconData     { return a.core.localIcons }
func (a *authProvider) Privacy() data.UserPrivacyFlags { return a.core.localPrivacy }

// stateSource - session.StateSource поверх ядра и поверхности
type stateSource struct {
	core *Core
}

func (s *stateSource) CurrentLevel() (data.SessionId, bool) {
	level, ok := s.core.surface.CurrentLevel()
	if !ok {
		return 0, false
	}
	// Поверхность знает только id уровня; если он совпадает с
	// заявленной сессией - отдаём её целиком
	if level.LevelId() == s.core.currentLevel.LevelId() && !s.core.currentLevel.IsNone() {
		return s.core.currentLevel, true
	}
	return level, true
}

func (s *stateSource) TimeScale() float64 { return s.core.surface.TimeScale() }

func (s *stateSource) GatherState() data.PlayerState {
	c := s.core
	c.localFrame++

	p1 := c.surface.Player1Transform()
	p2 := c.surface.Player2Transform()

	return data.PlayerState{
		AccountId:        c.auth.Identity().AccountId,
		Timestamp:        float32(c.levelTime),
		FrameNumber:      c.localFrame,
		DeathCount:       c.localDeathCount,
		IsDead:           c.localDead,
		IsPaused:         c.surface.IsPaused(),
		IsPracticing:     c.localPracticing,
		IsInEditor:       c.localInEditor,
		IsEditorBuilding: false,
		IsLastDeathReal:  c.localLastDeathReal,
		Player1: &data.PlayerObjectData{
			Position:  p1.Position,
			Rotation:  p1.Rotation,
			IconType:  data.IconCube,
			IsVisible: true,
		},
		Player2: &data.PlayerObjectData{
			Position: p2.Position,
			Rotation: p2.Rotation,
			IconType: data.IconCube,
		},
	}
}
