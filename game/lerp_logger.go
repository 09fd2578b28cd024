package game

import (
	"go.uber.org/zap"

	"github.com/GlobedGD/globed2-core/data"
)

// ====================================================================
// LerpLogger - покадровый лог интерполяции
// ====================================================================
//
// Включается флагом globed-debug-interpolation. Пишет каждый реальный,
// экстраполированный и интерполированный кадр - по этому логу удобно
// разбирать дёрганое движение у конкретного игрока.
// ====================================================================

// LerpLogger - отладочный лог интерполятора
type LerpLogger struct {
	log *zap.Logger
}

// NewLerpLogger создаёт лог поверх zap
func NewLerpLogger(log *zap.Logger) *LerpLogger {
	return &LerpLogger{log: log}
}

// Reset отмечает сброс состояния игрока
func (l *LerpLogger) Reset(playerId int32) {
	l.log.Debug("lerp reset", zap.Int32("player", playerId))
}

// LogRealFrame - принят настоящий серверный кадр
func (l *LerpLogger) LogRealFrame(playerId int32, timestamp float32, p1 *data.PlayerObjectData) {
	l.log.Debug("lerp real frame",
		zap.Int32("player", playerId),
		zap.Float32("ts", timestamp),
		zap.Float32("x", p1.Position.X),
		zap.Float32("y", p1.Position.Y))
}

// LogExtrapolated - повторный кадр заменён синтетическим
func (l *LerpLogger) LogExtrapolated(playerId int32, realTs, extrapolatedTs float32, p1 *data.PlayerObjectData) {
	l.log.Debug("lerp extrapolated frame",
		zap.Int32("player", playerId),
		zap.Float32("real_ts", realTs),
		zap.Float32("synthetic_ts", extrapolatedTs),
		zap.Float32("x", p1.Position.X),
		zap.Float32("y", p1.Position.Y))
}

// LogLerp - выдан интерполированный кадр
func (l *LerpLogger) LogLerp(playerId int32, timeCounter float32, p1 *data.PlayerObjectData) {
	l.log.Debug("lerp output",
		zap.Int32("player", playerId),
		zap.Float32("time", timeCounter),
		zap.Float32("x", p1.Position.X),
		zap.Float32("y", p1.Position.Y))
}

// LogSkip - кадр пропущен (нет пары кадров)
func (l *LerpLogger) LogSkip(playerId int32, timeCounter float32, p1 *data.PlayerObjectData) {
	l.log.Debug("lerp skip",
		zap.Int32("player", playerId),
		zap.Float32("time", timeCounter),
		zap.Float32("x", p1.Position.X))
}
