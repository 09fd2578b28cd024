package game

import (
	"math"

	"go.uber.org/zap"

	"github.com/GlobedGD/globed2-core/data"
)

// ====================================================================
// Interpolator - восстановление плавного движения из снапшотов
// ====================================================================
//
// Сервер шлёт кадры с частотой ≈TPS, движок рисует с частотой кадра.
// Интерполятор держит на игрока пару кадров (older, newer) и бегущий
// счётчик времени; каждый визуальный кадр выдаёт lerp между ними.
//
// Правила приёма нового снапшота:
//
//   - повторная метка времени (== newer): сервер подвис; фабрикуем
//     синтетический кадр на t=2.0 (продолжение отрезка), сдвигаем
//     newer → older, синтетику в newer. Прячет короткие стопы
//   - метка в пределах 0.2*expectedDelta от newer: поздняя правка
//     того же кадра, newer переписывается на месте
//   - иначе: обычный сдвиг newer → older, снапшот в newer,
//     timeCounter = older.timestamp
//
// При выдаче t зажимается в [0,1]: неограниченной экстраполяции нет,
// продление возможно только через правило повторного кадра.
// Деление на ноль и NaN подменяются нулём.
// ====================================================================

// InterpolatorSettings - режимы интерполятора
type InterpolatorSettings struct {
	// Realtime - без интерполяции, выдаётся последний пришедший кадр
	Realtime bool

	// Platformer - платформерный уровень (движение в обе стороны)
	Platformer bool

	// ExpectedDelta - ожидаемый интервал между серверными кадрами,
	// обычно 1/TPS
	ExpectedDelta float32
}

// LerpFrame - один кадр для интерполяции
type LerpFrame struct {
	Timestamp float32
	Visual    VisualPlayerState
}

func makeLerpFrame(state *data.PlayerState) LerpFrame {
	frame := LerpFrame{Timestamp: state.Timestamp}
	if state.Player1 != nil {
		frame.Visual.Player1 = *state.Player1
	}
	if state.Player2 != nil {
		frame.Visual.Player2 = *state.Player2
	}
	frame.Visual.IsDead = state.IsDead
	frame.Visual.IsPaused = state.IsPaused
	frame.Visual.IsPracticing = state.IsPracticing
	return frame
}

type playerInterpState struct {
	olderFrame LerpFrame
	newerFrame LerpFrame
	hasFrames  bool

	timeCounter   float32
	updateCounter float32

	interpolated VisualPlayerState
}

// Interpolator - интерполятор состояний всех удалённых игроков
type Interpolator struct {
	settings InterpolatorSettings
	players  map[int32]*playerInterpState

	// deltaAllowance - допуск "того же кадра", 0.2*expectedDelta
	deltaAllowance float32

	log   *zap.Logger
	debug *LerpLogger
}

// NewInterpolator создаёт интерполятор
func NewInterpolator(settings InterpolatorSettings, log *zap.Logger) *Interpolator {
	if settings.ExpectedDelta <= 0 {
		settings.ExpectedDelta = 1.0 / 30.0
	}
	return &Interpolator{
		settings:       settings,
		players:        make(map[int32]*playerInterpState),
		deltaAllowance: settings.ExpectedDelta * 0.2,
		log:            log,
	}
}

// EnableDebugLog включает покадровый лог интерполяции
func (in *Interpolator) EnableDebugLog(logger *LerpLogger) { in.debug = logger }

// AddPlayer регистрирует игрока
func (in *Interpolator) AddPlayer(playerId int32) {
	in.players[playerId] = &playerInterpState{}
	if in.debug != nil {
		in.debug.Reset(playerId)
	}
}

// RemovePlayer убирает игрока
func (in *Interpolator) RemovePlayer(playerId int32) {
	delete(in.players, playerId)
}

// HasPlayer сообщает, известен ли игрок
func (in *Interpolator) HasPlayer(playerId int32) bool {
	_, ok := in.players[playerId]
	return ok
}

func lerp32(a, b, t float32) float32 { return a + (b-a)*t }

// snan подменяет NaN и бесконечности нулём
func snan(v float32) float32 {
	if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
		return 0
	}
	return v
}

func lerpObject(older, newer *data.PlayerObjectData, out *data.PlayerObjectData, t float32) {
	out.Position = older.Position.Lerp(newer.Position, t)
	// Повороты в GD - неограниченные скаляры, кратчайшей дуги нет
	out.Rotation = lerp32(older.Rotation, newer.Rotation, t)
	out.CopyFlagsFrom(newer)
}

// extrapolateFrame фабрикует кадр на продолжении отрезка (t=2.0)
func extrapolateFrame(older, newer *LerpFrame) LerpFrame {
	var out LerpFrame
	lerpObject(&older.Visual.Player1, &newer.Visual.Player1, &out.Visual.Player1, 2.0)
	lerpObject(&older.Visual.Player2, &newer.Visual.Player2, &out.Visual.Player2, 2.0)
	out.Visual.IsDead = newer.Visual.IsDead
	out.Visual.IsPaused = newer.Visual.IsPaused
	out.Visual.IsPracticing = newer.Visual.IsPracticing

	// Метка времени экстраполируется тем же правилом
	out.Timestamp = lerp32(older.Timestamp, newer.Timestamp, 2.0)
	return out
}

// UpdatePlayer принимает новый снапшот. Зовётся только при приходе
// данных с сервера. updateCounter - метка последнего серверного тика
func (in *Interpolator) UpdatePlayer(playerId int32, state *data.PlayerState, updateCounter float32) {
	player, ok := in.players[playerId]
	if !ok {
		return
	}
	player.updateCounter = updateCounter

	if in.settings.Realtime {
		frame := makeLerpFrame(state)
		player.interpolated = frame.Visual
		return
	}

	incoming := makeLerpFrame(state)

	switch {
	case !player.hasFrames:
		// Первый снапшот: оба кадра из него, лерпать пока нечего
		player.olderFrame = incoming
		player.newerFrame = incoming
		player.timeCounter = incoming.Timestamp
		player.hasFrames = true
		player.interpolated = incoming.Visual

	case state.Timestamp == player.newerFrame.Timestamp:
		// Повторный кадр - сервер подвис, продлеваем отрезок
		extrapolated := extrapolateFrame(&player.olderFrame, &player.newerFrame)
		player.olderFrame = player.newerFrame
		player.newerFrame = extrapolated
		player.timeCounter = player.olderFrame.Timestamp

		if in.debug != nil {
			in.debug.LogExtrapolated(playerId, state.Timestamp, extrapolated.Timestamp, &extrapolated.Visual.Player1)
		}

	case state.Timestamp-player.newerFrame.Timestamp < in.deltaAllowance:
		// Поздняя правка того же кадра
		player.newerFrame = incoming

		if in.debug != nil {
			in.debug.LogRealFrame(playerId, state.Timestamp, &incoming.Visual.Player1)
		}

	default:
		player.olderFrame = player.newerFrame
		player.newerFrame = incoming
		player.timeCounter = player.olderFrame.Timestamp

		if in.debug != nil {
			in.debug.LogRealFrame(playerId, state.Timestamp, &incoming.Visual.Player1)
		}
	}
}

// Tick продвигает интерполяцию на dt визуальных секунд.
// Зовётся каждый кадр движка
func (in *Interpolator) Tick(dt float32) {
	if in.settings.Realtime {
		return
	}

	for playerId, player := range in.players {
		if !player.hasFrames {
			continue
		}

		player.timeCounter += dt

		frameDiff := player.newerFrame.Timestamp - player.olderFrame.Timestamp

		// Нет пары кадров или мусорная разница - держим последний выход
		if math.IsNaN(float64(frameDiff)) || frameDiff <= 0 {
			if in.debug != nil {
				in.debug.LogSkip(playerId, player.timeCounter, &player.interpolated.Player1)
			}
			continue
		}

		diffFromOlder := player.timeCounter - player.olderFrame.Timestamp

		t := snan(diffFromOlder / frameDiff)
		if t < 0 {
			t = 0
		}
		if t > 1 {
			// Дальше newer не экстраполируем
			t = 1
		}

		lerpObject(&player.olderFrame.Visual.Player1, &player.newerFrame.Visual.Player1,
			&player.interpolated.Player1, t)
		lerpObject(&player.olderFrame.Visual.Player2, &player.newerFrame.Visual.Player2,
			&player.interpolated.Player2, t)
		player.interpolated.IsDead = player.newerFrame.Visual.IsDead
		player.interpolated.IsPaused = player.newerFrame.Visual.IsPaused
		player.interpolated.IsPracticing = player.newerFrame.Visual.IsPracticing

		if in.debug != nil {
			in.debug.LogLerp(playerId, player.timeCounter, &player.interpolated.Player1)
		}
	}
}

// PlayerState возвращает текущее интерполированное состояние
func (in *Interpolator) PlayerState(playerId int32) (VisualPlayerState, bool) {
	player, ok := in.players[playerId]
	if !ok {
		return VisualPlayerState{}, false
	}
	return player.interpolated, true
}

// IsPlayerStale: метка последнего снапшота игрока не совпадает с
// меткой последнего серверного тика - игрок "застыл", потребитель
// может его спрятать
func (in *Interpolator) IsPlayerStale(playerId int32, lastServerPacket float32) bool {
	player, ok := in.players[playerId]
	if !ok {
		return false
	}
	return player.updateCounter != 0 && player.updateCounter != lastServerPacket
}
