package game

import (
	"math"

	"go.uber.org/zap"

	"github.com/GlobedGD/globed2-core/data"
)

// ====================================================================
// Registry - реестр удалённых игроков
// ====================================================================
//
// Владеет сущностями RemotePlayer по account id. На каждый LevelData:
//
//   - игроки из пакета, которых нет в реестре → создать аватар,
//     запросить данные отображения
//   - игроки реестра, которых нет в пакете → снести аватар
//   - выжившим скормить снапшот интерполятору
//
// Каждый тик вытягивает интерполированное состояние и применяет его
// к аватару вместе с политиками видимости. Разовые события (смерть,
// телепорт паука, прыжок) выводятся диффом последовательных
// снапшотов и уходят в GameSurface.
// ====================================================================

const (
	// hideNearbyRadius - с этого расстояния начинается прозрачность
	hideNearbyRadius float32 = 150

	// spiderTeleportDistance - скачок позиции, считающийся
	// телепортом паука
	spiderTeleportDistance float32 = 60
)

// Policies - локальные политики видимости
type Policies struct {
	// HidePracticing - прятать игроков в практис-моде
	HidePracticing bool

	// HideNearby - плавная прозрачность вплотную к локальному игроку
	HideNearby bool

	// HideStale - прятать игроков без свежих кадров
	HideStale bool
}

// RemotePlayer - один удалённый игрок
type RemotePlayer struct {
	AccountId int32

	// Display - данные отображения; nil пока не пришёл профиль
	Display *data.PlayerDisplayData

	// last - последний сырой снапшот для диффа событий
	last    data.PlayerState
	hasLast bool

	// ForceVisible / ForceHidden - пользовательские оверрайды
	ForceVisible bool
	ForceHidden  bool
}

// Outbound шлёт пакет серверу; подключается к Session.Send
type Outbound func(packet data.OutPacket)

// Registry - реестр удалённых игроков уровня
type Registry struct {
	log     *zap.Logger
	surface GameSurface
	interp  *Interpolator
	send    Outbound

	players map[int32]*RemotePlayer

	policies Policies

	// lastServerTick - метка последнего серверного тика, по ней
	// считается свежесть игроков
	lastServerTick float32
}

// NewRegistry создаёт реестр
func NewRegistry(surface GameSurface, interp *Interpolator, send Outbound, log *zap.Logger) *Registry {
	return &Registry{
		log:     log,
		surface: surface,
		interp:  interp,
		send:    send,
		players: make(map[int32]*RemotePlayer),
	}
}

// SetPolicies задаёт политики видимости
func (r *Registry) SetPolicies(p Policies) { r.policies = p }

// Player возвращает игрока по id
func (r *Registry) Player(accountId int32) (*RemotePlayer, bool) {
	p, ok := r.players[accountId]
	return p, ok
}

// Count возвращает число игроков
func (r *Registry) Count() int { return len(r.players) }

// Ids возвращает id всех игроков
func (r *Registry) Ids() []int32 {
	out := make([]int32, 0, len(r.players))
	for id := range r.players {
		out = append(out, id)
	}
	return out
}

// HandleLevelData применяет входящий пакет LevelData
func (r *Registry) HandleLevelData(packet *data.LevelDataPacket) {
	seen := make(map[int32]struct{}, len(packet.Players)+len(packet.Culled))

	var missingProfiles []int32

	for i := range packet.Players {
		state := &packet.Players[i]
		id := state.AccountId
		seen[id] = struct{}{}

		player, ok := r.players[id]
		if !ok {
			player = r.addPlayer(id)
			if player.Display == nil {
				missingProfiles = append(missingProfiles, id)
			}
		}

		if state.Timestamp > r.lastServerTick {
			r.lastServerTick = state.Timestamp
		}

		r.diffEvents(player, state)
		r.interp.UpdatePlayer(id, state, state.Timestamp)

		player.last = *state
		player.hasLast = true
	}

	// Отсечённые сервером игроки живы, но кадров в этот тик нет
	for _, id := range packet.Culled {
		seen[id] = struct{}{}
		if _, ok := r.players[id]; !ok {
			player := r.addPlayer(id)
			if player.Display == nil {
				missingProfiles = append(missingProfiles, id)
			}
		}
	}

	// Игроки, пропавшие из пакета, ушли с уровня
	for id := range r.players {
		if _, ok := seen[id]; !ok {
			r.removePlayer(id)
		}
	}

	if len(missingProfiles) > 0 {
		if len(missingProfiles) > data.MaxProfilesRequested {
			missingProfiles = missingProfiles[:data.MaxProfilesRequested]
		}
		r.send(data.RequestProfilesPacket{Ids: missingProfiles})
	}
}

// HandleProfiles применяет пришедшие данные отображения
func (r *Registry) HandleProfiles(profiles []data.PlayerDisplayData) {
	for i := range profiles {
		profile := profiles[i]
		if player, ok := r.players[profile.AccountId]; ok {
			player.Display = &profile
		}
	}
}

// Clear сносит всех игроков (выход с уровня)
func (r *Registry) Clear() {
	for id := range r.players {
		r.removePlayer(id)
	}
	r.lastServerTick = 0
}

func (r *Registry) addPlayer(id int32) *RemotePlayer {
	player := &RemotePlayer{AccountId: id}
	r.players[id] = player
	r.interp.AddPlayer(id)
	r.surface.SpawnAvatar(id)

	r.log.Debug("remote player joined", zap.Int32("player", id))
	return player
}

func (r *Registry) removePlayer(id int32) {
	delete(r.players, id)
	r.interp.RemovePlayer(id)
	r.surface.DespawnAvatar(id)

	r.log.Debug("remote player left", zap.Int32("player", id))
}

// diffEvents выводит разовые события из пары последовательных снапшотов
func (r *Registry) diffEvents(player *RemotePlayer, state *data.PlayerState) {
	if !player.hasLast {
		return
	}
	prev := &player.last

	// Смерть: счётчик смертей вырос или поднялся флаг isDead
	if state.DeathCount != prev.DeathCount || (state.IsDead && !prev.IsDead) {
		if state.IsLastDeathReal {
			r.surface.PlayDeathEffect(player.AccountId)
		}
	}

	r.diffObjectEvents(player.AccountId, prev.Player1, state.Player1, PlayerOne)
	r.diffObjectEvents(player.AccountId, prev.Player2, state.Player2, PlayerTwo)
}

func (r *Registry) diffObjectEvents(accountId int32, prev, cur *data.PlayerObjectData, which WhichPlayer) {
	if prev == nil || cur == nil {
		return
	}

	// Прыжок: отрыв от земли вверх
	if prev.IsGrounded && !cur.IsGrounded && !cur.IsFalling {
		r.surface.PlayJumpEffect(accountId, which)
	}

	// Телепорт паука: скачок позиции у паука между соседними кадрами
	if cur.IconType == data.IconSpider {
		if distance(prev.Position, cur.Position) >= spiderTeleportDistance {
			r.surface.PlaySpiderTeleport(accountId, which)
		}
	}
}

func distance(a, b data.Point) float32 {
	dx := float64(a.X - b.X)
	dy := float64(a.Y - b.Y)
	return float32(math.Sqrt(dx*dx + dy*dy))
}

// Tick продвигает интерполяцию и применяет состояния к аватарам
func (r *Registry) Tick(dt float32) {
	r.interp.Tick(dt)

	local1 := r.surface.Player1Transform()
	local2 := r.surface.Player2Transform()

	for id, player := range r.players {
		state, ok := r.interp.PlayerState(id)
		if !ok {
			continue
		}

		opacity := r.opacityFor(player, &state, local1, local2)
		r.surface.SetAvatarState(id, state, opacity)

		if player.hasLast {
			r.surface.UpdateProgress(id, player.last.Progress())
		}
	}
}

// opacityFor применяет политики видимости. 0 - скрыт полностью
func (r *Registry) opacityFor(player *RemotePlayer, state *VisualPlayerState, local1, local2 Transform) float32 {
	// Оверрайды пользователя сильнее всех политик
	if player.ForceHidden {
		return 0
	}
	if player.ForceVisible {
		return 1
	}

	if r.policies.HidePracticing && state.IsPracticing {
		return 0
	}

	if r.policies.HideStale && r.interp.IsPlayerStale(player.AccountId, r.lastServerTick) {
		return 0
	}

	if r.policies.HideNearby {
		d1 := distance(state.Player1.Position, local1.Position)
		d2 := distance(state.Player1.Position, local2.Position)
		min := d1
		if d2 < min {
			min = d2
		}

		// Линейный спад: 1 на radius и дальше, 0 вплотную
		if min < hideNearbyRadius {
			return min / hideNearbyRadius
		}
	}

	return 1
}
