package game

import (
	"github.com/GlobedGD/globed2-core/data"
)

// ====================================================================
// GameSurface - порт к игровому движку
// ====================================================================
//
// Ядро не знает ни о сцене, ни о нодах, ни о рендере. Всё общение
// с движком идёт через этот интерфейс: ядро спрашивает трансформы
// и уровень, движок получает команды на аватары и эффекты.
// Обратных ссылок нет - движок зовёт ядро через Core.Tick, ядро
// зовёт движок через GameSurface.
// ====================================================================

// Transform - позиция и поворот объекта игрока
type Transform struct {
	Position data.Point
	Rotation float32
}

// VisualPlayerState - то, что реально видно на экране: результат
// интерполяции, готовый к передаче движку
type VisualPlayerState struct {
	Player1 data.PlayerObjectData
	Player2 data.PlayerObjectData

	IsDead       bool
	IsPaused     bool
	IsPracticing bool
}

// ToastIcon - иконка всплывающего уведомления
type ToastIcon int

const (
	ToastInfo ToastIcon = iota
	ToastWarn
	ToastError
)

// WhichPlayer - какой из двух объектов игрока
type WhichPlayer int

const (
	PlayerOne WhichPlayer = iota
	PlayerTwo
)

// GameSurface - порт, который обязан реализовать слой интеграции
// с движком. Все методы зовутся только с главного тика
type GameSurface interface {
	// Player1Transform / Player2Transform - текущие трансформы
	// локального игрока
	Player1Transform() Transform
	Player2Transform() Transform

	// CurrentLevel возвращает сессию текущего уровня и false в меню
	CurrentLevel() (data.SessionId, bool)

	// IsPaused - открыто ли меню паузы
	IsPaused() bool

	// TimeScale - движковый множитель времени
	TimeScale() float64

	// SpawnAvatar / DespawnAvatar - создание и снос визуального
	// аватара удалённого игрока
	SpawnAvatar(accountId int32)
	DespawnAvatar(accountId int32)

	// SetAvatarState применяет интерполированное состояние.
	// opacity в [0,1], 0 - полностью скрыт
	SetAvatarState(accountId int32, state VisualPlayerState, opacity float32)

	// UpdateProgress двигает индикатор прогресса игрока, progress в [0,1]
	UpdateProgress(accountId int32, progress float64)

	// PlayDeathEffect / PlayJumpEffect / PlaySpiderTeleport -
	// разовые эффекты, выведенные из диффа снапшотов
	PlayDeathEffect(accountId int32)
	PlayJumpEffect(accountId int32, which WhichPlayer)
	PlaySpiderTeleport(accountId int32, which WhichPlayer)

	// ShowToast показывает всплывающее уведомление
	ShowToast(text string, icon ToastIcon, seconds float32)
}
