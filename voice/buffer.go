package voice

import (
	"sync"

	"github.com/pion/rtp"
)

// ====================================================================
// JitterBuffer - буфер упорядочивания голосовых кадров
// ====================================================================
//
// Кадры прилетают по сети с перестановками и потерями. Буфер держит
// небольшое окно пакетов по RTP sequence number и выдаёт их строго
// по порядку. Опоздавшие кадры (за головкой воспроизведения)
// отбрасываются; при дыре больше допуска головка перескакивает.
//
// Единственное место в голосовом конвейере с внутренним локом:
// push зовётся с сетевого тика, pop - с аудио-потока. Лок держится
// только на время вставки/выемки.
// ====================================================================

const (
	// jitterCapacity - максимум кадров в окне
	jitterCapacity = 32

	// jitterMaxGap - дыра, после которой головка перескакивает
	jitterMaxGap = 8
)

// seqLess сравнивает RTP sequence numbers с учётом переполнения u16
func seqLess(a, b uint16) bool {
	return int16(a-b) < 0
}

// JitterBuffer - окно переупорядочивания кадров одного говорящего
type JitterBuffer struct {
	mu sync.Mutex

	frames map[uint16]*rtp.Packet

	// playhead - следующий ожидаемый sequence number
	playhead uint16
	started  bool

	// lateDropped - счётчик отброшенных опоздавших кадров
	lateDropped uint64
}

// NewJitterBuffer создаёт пустой буфер
func NewJitterBuffer() *JitterBuffer {
	return &JitterBuffer{frames: make(map[uint16]*rtp.Packet)}
}

// Push кладёт кадр в окно. Опоздавшие и дубликаты отбрасываются
func (j *JitterBuffer) Push(packet *rtp.Packet) {
	j.mu.Lock()
	defer j.mu.Unlock()

	seq := packet.SequenceNumber

	if !j.started {
		j.playhead = seq
		j.started = true
	}

	// Кадр за головкой воспроизведения опоздал
	if seqLess(seq, j.playhead) {
		j.lateDropped++
		return
	}

	if _, dup := j.frames[seq]; dup {
		return
	}

	if len(j.frames) >= jitterCapacity {
		// Окно переполнено: выбрасываем самый дальний кадр
		var farthest uint16
		first := true
		for s := range j.frames {
			if first || seqLess(farthest, s) {
				farthest = s
				first = false
			}
		}
		if seqLess(seq, farthest) {
			delete(j.frames, farthest)
		} else {
			return
		}
	}

	j.frames[seq] = packet
}

// Pop выдаёт следующий по порядку кадр, если он уже пришёл.
// При дыре больше jitterMaxGap перескакивает на ближайший имеющийся
func (j *JitterBuffer) Pop() (*rtp.Packet, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if len(j.frames) == 0 {
		return nil, false
	}

	if packet, ok := j.frames[j.playhead]; ok {
		delete(j.frames, j.playhead)
		j.playhead++
		return packet, true
	}

	// Ищем ближайший кадр впереди головки
	var nearest uint16
	first := true
	for s := range j.frames {
		if first || seqLess(s, nearest) {
			nearest = s
			first = false
		}
	}

	// Дыра невелика - ждём потерянный кадр
	if nearest-j.playhead < jitterMaxGap {
		return nil, false
	}

	// Дыра большая: перескакиваем
	packet := j.frames[nearest]
	delete(j.frames, nearest)
	j.playhead = nearest + 1
	return packet, true
}

// LateDropped возвращает счётчик опоздавших кадров
func (j *JitterBuffer) LateDropped() uint64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.lateDropped
}

// Len возвращает размер окна
func (j *JitterBuffer) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.frames)
}
