package room

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/GlobedGD/globed2-core/data"
	"github.com/GlobedGD/globed2-core/settings"
)

// ====================================================================
// Тесты контроль-плейна комнат
// ====================================================================

type fakeFriends struct {
	friends map[int32]bool
}

func (f fakeFriends) IsFriend(id int32) bool { return f.friends[id] }

func newTestManager(localAccount int32) (*Manager, *[]data.OutPacket, *settings.Manager) {
	var sent []data.OutPacket
	sets := settings.NewManager(settings.NewMemoryStore())
	m := NewManager(func(p data.OutPacket) { sent = append(sent, p) }, sets,
		fakeFriends{friends: map[int32]bool{500: true}}, localAccount, zap.NewNop())
	return m, &sent, sets
}

func sampleState(roomId uint32, owner int32) *data.RoomStateInfo {
	return &data.RoomStateInfo{
		RoomId:    roomId,
		RoomOwner: owner,
		RoomName:  "room",
		Settings:  data.RoomSettings{Teams: true},
		Teams: []data.RoomTeam{
			{Color: data.Color3{R: 255}, Index: 0},
			{Color: data.Color3{B: 255}, Index: 1},
		},
		TeamMembers: map[uint16][]int32{1: {777}},
	}
}

func TestGlobalRoomInvariant(t *testing.T) {
	m, _, _ := newTestManager(100)

	// Пустое состояние - глобальная комната
	require.True(t, m.IsGlobal())
	require.False(t, m.IsOwner())

	m.HandleRoomState(sampleState(42, 100))
	require.False(t, m.IsGlobal())
	require.True(t, m.IsOwner())

	m.Reset()
	require.True(t, m.IsGlobal())
}

func TestTeamsOnlyWhenEnabled(t *testing.T) {
	m, _, _ := newTestManager(100)
	state := sampleState(42, 100)
	m.HandleRoomState(state)

	_, ok := m.Team(1)
	require.True(t, ok)

	teamId, ok := m.TeamFor(777)
	require.True(t, ok)
	require.Equal(t, uint16(1), teamId)

	// Выключаем команды: id перестают быть валидными
	state.Settings.Teams = false
	m.HandleRoomState(state)

	_, ok = m.Team(1)
	require.False(t, ok)
	_, ok = m.TeamFor(777)
	require.False(t, ok)
}

func TestLockedTeamsBlockSwitch(t *testing.T) {
	m, sent, _ := newTestManager(100)
	state := sampleState(42, 100)
	state.Settings.LockedTeams = true
	m.HandleRoomState(state)

	m.SelectTeam(1)
	require.Len(t, *sent, 1) // первый выбор разрешён

	m.SelectTeam(0)
	require.Len(t, *sent, 1) // переключение залочено
}

func TestMakeSessionId(t *testing.T) {
	m, _, _ := newTestManager(100)
	m.HandleRoomState(sampleState(42, 100))

	id := m.MakeSessionId(3, 91283881)
	srv, room, level := id.Parts()
	require.Equal(t, uint8(3), srv)
	require.Equal(t, uint32(42), room)
	require.Equal(t, uint32(91283881), level)
}

func TestInviteFilter(t *testing.T) {
	m, _, sets := newTestManager(100)

	var received []*data.RoomInvitePacket
	m.SetEvents(Events{OnInvite: func(inv *data.RoomInvitePacket) { received = append(received, inv) }})

	inviteFrom := func(id int32) *data.RoomInvitePacket {
		return &data.RoomInvitePacket{RoomId: 7, Inviter: data.RoomPlayer{AccountId: id}}
	}

	// Anyone: проходит всё, кроме чёрного списка
	sets.Current().Globed.InvitesFrom = int(settings.InvitesFromAnyone)
	require.True(t, m.HandleInvite(inviteFrom(1)))

	m.Block(666)
	require.False(t, m.HandleInvite(inviteFrom(666)))

	// Friends: не-друг дропается до UI
	sets.Current().Globed.InvitesFrom = int(settings.InvitesFromFriends)
	require.False(t, m.HandleInvite(inviteFrom(1)))
	require.True(t, m.HandleInvite(inviteFrom(500)))

	// Nobody: дропается всё
	sets.Current().Globed.InvitesFrom = int(settings.InvitesFromNobody)
	require.False(t, m.HandleInvite(inviteFrom(500)))

	require.Len(t, received, 2)
}

func TestRoomActionsSendPackets(t *testing.T) {
	m, sent, _ := newTestManager(100)

	m.CreateRoom("my room", "pass", data.RoomSettings{PlayerLimit: 8})
	m.JoinRoom(7, "pass")
	m.RequestRoomList()
	m.PinLevel(data.SessionIdFromParts(1, 7, 99))

	require.Len(t, *sent, 4)
	require.IsType(t, data.CreateRoomPacket{}, (*sent)[0])
	require.IsType(t, data.JoinRoomPacket{}, (*sent)[1])
	require.IsType(t, data.RequestRoomListPacket{}, (*sent)[2])
	require.IsType(t, data.PinLevelPacket{}, (*sent)[3])
}

// --------------------------------------------------------------------
// FireServer / события
// --------------------------------------------------------------------

func TestFirePayloadRoundTrip(t *testing.T) {
	payload := &FirePayload{
		EventId: 0x0042,
		Args: []FireArg{
			{Type: FireArgStatic, RawValue: 17},
			{Type: FireArgItem, RawValue: 3},
			{Type: FireArgTimer, RawValue: 300},
		},
	}

	raw, err := EncodePayload(payload)
	require.NoError(t, err)

	out, err := DecodePayload(raw)
	require.NoError(t, err)
	require.Equal(t, payload.EventId, out.EventId)
	require.Len(t, out.Args, 3)
	require.Equal(t, FireArgStatic, out.Args[0].Type)
	require.Equal(t, FireArgItem, out.Args[1].Type)
	require.Equal(t, FireArgTimer, out.Args[2].Type)
	require.Equal(t, uint64(17), out.Args[0].RawValue)
	require.Equal(t, uint64(300), out.Args[2].RawValue)
}

func TestFirePayloadChecksum(t *testing.T) {
	raw, _ := EncodePayload(&FirePayload{EventId: 1, Args: []FireArg{{Type: FireArgStatic, RawValue: 5}}})

	raw[0] ^= 0xff
	_, err := DecodePayload(raw)
	require.ErrorIs(t, err, ErrBadChecksum)
}

type fakeResolver struct{}

func (fakeResolver) ItemValue(id uint64) int32    { return int32(id) * 10 }
func (fakeResolver) TimerValue(id uint64) float32 { return float32(id) / 2 }

func TestBuildEvent(t *testing.T) {
	payload := &FirePayload{
		EventId: 0x0042,
		Args: []FireArg{
			{Type: FireArgStatic, RawValue: 7},
			{Type: FireArgTimer, RawValue: 8},
		},
	}

	event, err := BuildEvent(payload, fakeResolver{})
	require.NoError(t, err)
	require.Equal(t, uint16(0x0042), event.Type)

	buf := data.NewByteReader(event.Data)
	argCount, _ := buf.ReadU8()
	require.Equal(t, uint8(2), argCount)

	typeBits, _ := buf.ReadU8()
	// MSB - первый аргумент (int=0), следующий бит - таймер (float=1)
	require.Equal(t, uint8(0b01000000), typeBits)

	v1, _ := buf.ReadI32()
	require.Equal(t, int32(7), v1)

	v2, _ := buf.ReadF32()
	require.Equal(t, float32(4), v2)
}

func TestBuildEventReservedRejected(t *testing.T) {
	_, err := BuildEvent(&FirePayload{EventId: data.EventCounterChange}, fakeResolver{})
	require.ErrorIs(t, err, ErrReservedType)
}

func TestEventDispatcher(t *testing.T) {
	d := NewEventDispatcher()

	var triggered []int32
	d.TriggerGroup = func(groupId int32, event *data.Event) {
		triggered = append(triggered, groupId)
	}

	var counterEvents int
	d.OnCounterChange = func(*data.Event) { counterEvents++ }

	d.Listen(0x42, 10)
	d.Listen(0x42, 11)
	d.Listen(0x43, 12)

	d.Dispatch(&data.Event{Type: 0x42})
	require.Len(t, triggered, 2)

	// Зарезервированное событие не дёргает группы уровня
	d.Dispatch(&data.Event{Type: data.EventCounterChange})
	require.Len(t, triggered, 2)
	require.Equal(t, 1, counterEvents)

	d.Unlisten(0x42, 10)
	d.Dispatch(&data.Event{Type: 0x42})
	require.Len(t, triggered, 3)

	d.Clear()
	d.Dispatch(&data.Event{Type: 0x43})
	require.Len(t, triggered, 3)
}
