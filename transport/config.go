package transport

import "time"

// ====================================================================
// Конфигурация транспорта
// ====================================================================

// Config - конфигурация транспорта Globed.
// Используется и для прямого соединения, и для relay
type Config struct {
	// ConnectTimeout - таймаут установки TCP-соединения
	ConnectTimeout time.Duration

	// HandshakeTimeout - таймаут криптографического хэндшейка
	HandshakeTimeout time.Duration

	// KeepaliveInterval - интервал keepalive надёжного канала.
	// Пропуск ответа в течение 3*интервала считается обрывом
	KeepaliveInterval time.Duration

	// InboundQueueSize - размер очереди входящих кадров (net → main)
	InboundQueueSize int

	// OutboundQueueSize - размер очереди исходящих кадров (main → net)
	OutboundQueueSize int

	// SendTimeout - сколько ждать места в исходящей очереди прежде
	// чем вернуть ошибку backpressure
	SendTimeout time.Duration

	// MaxFrameSize - максимальный размер кадра на надёжном канале.
	// Больший префикс длины - заведомо рассинхрон потока
	MaxFrameSize int

	// ReadBufferSize / WriteBufferSize - буферы сокетов
	ReadBufferSize  int
	WriteBufferSize int

	// ResolveTTL - время жизни записи в кэше резолвера
	ResolveTTL time.Duration
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() *Config {
	return &Config{
		ConnectTimeout:    3 * time.Second,
		HandshakeTimeout:  3 * time.Second,
		KeepaliveInterval: 5 * time.Second,
		InboundQueueSize:  256,
		OutboundQueueSize: 256,
		SendTimeout:       time.Second,
		MaxFrameSize:      1 << 20,
		ReadBufferSize:    256 * 1024,
		WriteBufferSize:   256 * 1024,
		ResolveTTL:        5 * time.Minute,
	}
}

// Validate чинит заведомо некорректные значения
func (c *Config) Validate() error {
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 3 * time.Second
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = 3 * time.Second
	}
	if c.KeepaliveInterval <= 0 {
		c.KeepaliveInterval = 5 * time.Second
	}
	if c.InboundQueueSize <= 0 {
		c.InboundQueueSize = 256
	}
	if c.OutboundQueueSize <= 0 {
		c.OutboundQueueSize = 256
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = time.Second
	}
	if c.MaxFrameSize <= 0 || c.MaxFrameSize > 16<<20 {
		c.MaxFrameSize = 1 << 20
	}
	if c.ResolveTTL <= 0 {
		c.ResolveTTL = 5 * time.Minute
	}
	return nil
}
