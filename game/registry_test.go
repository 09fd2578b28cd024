package game

import (
	"testing"

	"go.uber.org/zap"

	"github.com/GlobedGD/globed2-core/data"
)

// ====================================================================
// Тесты реестра удалённых игроков
// ====================================================================

type surfaceCall struct {
	name string
	id   int32
}

// fakeSurface записывает вызовы, изображая движок
type fakeSurface struct {
	calls   []surfaceCall
	spawned map[int32]bool

	opacity  map[int32]float32
	progress map[int32]float64

	level   data.SessionId
	inLevel bool

	p1 Transform
	p2 Transform
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{
		spawned:  make(map[int32]bool),
		opacity:  make(map[int32]float32),
		progress: make(map[int32]float64),
	}
}

func (f *fakeSurface) Player1Transform() Transform             { return f.p1 }
func (f *fakeSurface) Player2Transform() Transform             { return f.p2 }
func (f *fakeSurface) CurrentLevel() (data.SessionId, bool)    { return f.level, f.inLevel }
func (f *fakeSurface) IsPaused() bool                          { return false }
func (f *fakeSurface) TimeScale() float64                      { return 1 }
func (f *fakeSurface) SpawnAvatar(id int32) {
	f.spawned[id] = true
	f.calls = append(f.calls, surfaceCall{"spawn", id})
}
func (f *fakeSurface) DespawnAvatar(id int32) {
	delete(f.spawned, id)
	f.calls = append(f.calls, surfaceCall{"despawn", id})
}
func (f *fakeSurface) SetAvatarState(id int32, state VisualPlayerState, opacity float32) {
	f.opacity[id] = opacity
}
func (f *fakeSurface) UpdateProgress(id int32, progress float64) { f.progress[id] = progress }
func (f *fakeSurface) PlayDeathEffect(id int32) {
	f.calls = append(f.calls, surfaceCall{"death", id})
}
func (f *fakeSurface) PlayJumpEffect(id int32, which WhichPlayer) {
	f.calls = append(f.calls, surfaceCall{"jump", id})
}
func (f *fakeSurface) PlaySpiderTeleport(id int32, which WhichPlayer) {
	f.calls = append(f.calls, surfaceCall{"spider-teleport", id})
}
func (f *fakeSurface) ShowToast(string, ToastIcon, float32) {}

func (f *fakeSurface) count(name string) int {
	n := 0
	for _, c := range f.calls {
		if c.name == name {
			n++
		}
	}
	return n
}

func makeRegistry(t *testing.T) (*Registry, *fakeSurface, *[]data.OutPacket) {
	t.Helper()

	surface := newFakeSurface()
	interp := NewInterpolator(InterpolatorSettings{ExpectedDelta: 1.0 / 30.0}, zap.NewNop())

	var sent []data.OutPacket
	reg := NewRegistry(surface, interp, func(p data.OutPacket) { sent = append(sent, p) }, zap.NewNop())
	return reg, surface, &sent
}

func levelData(ids ...int32) *data.LevelDataPacket {
	packet := &data.LevelDataPacket{}
	for _, id := range ids {
		packet.Players = append(packet.Players, data.PlayerState{
			AccountId: id,
			Timestamp: 1.0,
			Player1:   &data.PlayerObjectData{},
			Player2:   &data.PlayerObjectData{},
		})
	}
	return packet
}

func TestRegistryParity(t *testing.T) {
	reg, surface, _ := makeRegistry(t)

	// Произвольная последовательность доставок: множество ключей
	// реестра равно множеству id последней доставки
	sequences := [][]int32{
		{1, 2, 3},
		{2, 3, 4, 5},
		{5},
		{7, 8},
	}

	for _, ids := range sequences {
		reg.HandleLevelData(levelData(ids...))

		if reg.Count() != len(ids) {
			t.Fatalf("after %v: count=%d", ids, reg.Count())
		}
		for _, id := range ids {
			if _, ok := reg.Player(id); !ok {
				t.Fatalf("after %v: player %d missing", ids, id)
			}
			if !surface.spawned[id] {
				t.Fatalf("after %v: avatar %d not spawned", ids, id)
			}
		}
		if len(surface.spawned) != len(ids) {
			t.Fatalf("after %v: %d avatars alive", ids, len(surface.spawned))
		}
	}
}

func TestRegistryRequestsMissingProfiles(t *testing.T) {
	reg, _, sent := makeRegistry(t)

	reg.HandleLevelData(levelData(10, 20))

	if len(*sent) != 1 {
		t.Fatalf("want one RequestProfiles, got %d packets", len(*sent))
	}
	req, ok := (*sent)[0].(data.RequestProfilesPacket)
	if !ok {
		t.Fatalf("wrong packet type %T", (*sent)[0])
	}
	if len(req.Ids) != 2 {
		t.Fatalf("requested ids: %v", req.Ids)
	}

	// Профили пришли - повторных запросов нет
	reg.HandleProfiles([]data.PlayerDisplayData{
		{AccountId: 10, Username: "a"},
		{AccountId: 20, Username: "b"},
	})
	reg.HandleLevelData(levelData(10, 20))

	if len(*sent) != 1 {
		t.Fatalf("unexpected extra requests: %d", len(*sent))
	}

	player, _ := reg.Player(10)
	if player.Display == nil || player.Display.Username != "a" {
		t.Error("display data not applied")
	}
}

func TestRegistryCulledPlayersSurvive(t *testing.T) {
	reg, surface, _ := makeRegistry(t)

	reg.HandleLevelData(levelData(1, 2))

	// Игрок 2 отсечён, но жив - аватар не сносится
	packet := levelData(1)
	packet.Culled = []int32{2}
	reg.HandleLevelData(packet)

	if reg.Count() != 2 {
		t.Fatalf("count=%d, want 2", reg.Count())
	}
	if surface.count("despawn") != 0 {
		t.Error("culled player must not despawn")
	}
}

func TestRegistryDeathEvent(t *testing.T) {
	reg, surface, _ := makeRegistry(t)

	first := levelData(1)
	reg.HandleLevelData(first)

	second := levelData(1)
	second.Players[0].DeathCount = 1
	second.Players[0].IsLastDeathReal = true
	second.Players[0].Timestamp = 2.0
	reg.HandleLevelData(second)

	if surface.count("death") != 1 {
		t.Fatalf("death effects: %d, want 1", surface.count("death"))
	}

	// Ненастоящая смерть эффекта не даёт
	third := levelData(1)
	third.Players[0].DeathCount = 2
	third.Players[0].IsLastDeathReal = false
	third.Players[0].Timestamp = 3.0
	reg.HandleLevelData(third)

	if surface.count("death") != 1 {
		t.Fatalf("fake death must not fire effect")
	}
}

func TestRegistryJumpAndSpiderEvents(t *testing.T) {
	reg, surface, _ := makeRegistry(t)

	first := levelData(1)
	first.Players[0].Player1.IsGrounded = true
	reg.HandleLevelData(first)

	// Отрыв от земли → прыжок
	second := levelData(1)
	second.Players[0].Timestamp = 2.0
	second.Players[0].Player1.IsGrounded = false
	reg.HandleLevelData(second)

	if surface.count("jump") != 1 {
		t.Fatalf("jump events: %d, want 1", surface.count("jump"))
	}

	// Скачок позиции у паука → телепорт
	third := levelData(1)
	third.Players[0].Timestamp = 3.0
	third.Players[0].Player1.IconType = data.IconSpider
	third.Players[0].Player1.Position = data.Point{X: 500, Y: 0}
	reg.HandleLevelData(third)

	fourth := levelData(1)
	fourth.Players[0].Timestamp = 4.0
	fourth.Players[0].Player1.IconType = data.IconSpider
	fourth.Players[0].Player1.Position = data.Point{X: 500, Y: 300}
	reg.HandleLevelData(fourth)

	if surface.count("spider-teleport") != 2 {
		// третий пакет тоже телепорт: скачок 0 → 500
		t.Fatalf("spider teleports: %d, want 2", surface.count("spider-teleport"))
	}
}

func TestRegistryHidePracticing(t *testing.T) {
	reg, surface, _ := makeRegistry(t)
	reg.SetPolicies(Policies{HidePracticing: true})

	packet := levelData(1)
	packet.Players[0].IsPracticing = true
	reg.HandleLevelData(packet)

	reg.Tick(1.0 / 60.0)

	if surface.opacity[1] != 0 {
		t.Errorf("practicing player opacity=%v, want 0", surface.opacity[1])
	}
}

func TestRegistryHideNearbyRamp(t *testing.T) {
	reg, surface, _ := makeRegistry(t)
	reg.SetPolicies(Policies{HideNearby: true})

	cases := []struct {
		x    float32
		want float32
	}{
		{0, 0},
		{75, 0.5},
		{150, 1},
		{400, 1},
	}

	for _, c := range cases {
		packet := levelData(1)
		packet.Players[0].Player1.Position = data.Point{X: c.x, Y: 0}
		reg.HandleLevelData(packet)

		// Реалтайм-обновление: интерполятор ещё без пары кадров,
		// выход - сам снапшот
		reg.Tick(1.0 / 60.0)

		got := surface.opacity[1]
		if diff := got - c.want; diff > 0.01 || diff < -0.01 {
			t.Errorf("x=%v: opacity=%v, want %v", c.x, got, c.want)
		}

		reg.Clear()
	}
}

func TestRegistryForceOverrides(t *testing.T) {
	reg, surface, _ := makeRegistry(t)
	reg.SetPolicies(Policies{HidePracticing: true})

	packet := levelData(1)
	packet.Players[0].IsPracticing = true
	reg.HandleLevelData(packet)

	player, _ := reg.Player(1)
	player.ForceVisible = true

	reg.Tick(1.0 / 60.0)
	if surface.opacity[1] != 1 {
		t.Errorf("force-visible opacity=%v, want 1", surface.opacity[1])
	}

	player.ForceVisible = false
	player.ForceHidden = true
	reg.Tick(1.0 / 60.0)
	if surface.opacity[1] != 0 {
		t.Errorf("force-hidden opacity=%v, want 0", surface.opacity[1])
	}
}

func TestRegistryProgress(t *testing.T) {
	reg, surface, _ := makeRegistry(t)

	packet := levelData(1)
	packet.Players[0].Percentage = 32767 // ≈ 0.5
	reg.HandleLevelData(packet)

	reg.Tick(1.0 / 60.0)

	got := surface.progress[1]
	if got < 0.49 || got > 0.51 {
		t.Errorf("progress=%v, want ≈0.5", got)
	}
}

func TestRegistryClear(t *testing.T) {
	reg, surface, _ := makeRegistry(t)

	reg.HandleLevelData(levelData(1, 2, 3))
	reg.Clear()

	if reg.Count() != 0 {
		t.Fatalf("count after clear: %d", reg.Count())
	}
	if len(surface.spawned) != 0 {
		t.Fatal("avatars must despawn on clear")
	}
}
