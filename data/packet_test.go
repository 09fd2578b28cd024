package data

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/GlobedGD/globed2-core/crypto"
)

// ====================================================================
// Тесты пакетов
// ====================================================================

func samplePlayerState() PlayerState {
	return PlayerState{
		AccountId:   1234567,
		Timestamp:   12.25,
		FrameNumber: 3,
		DeathCount:  1,
		Percentage:  32767,
		IsDead:      false,
		IsPaused:    true,
		Player1: &PlayerObjectData{
			Position:      Point{X: 120.5, Y: 385.0},
			Rotation:      90.0,
			IconType:      IconShip,
			IsVisible:     true,
			IsLookingLeft: true,
			IsMini:        true,
		},
		Player2: &PlayerObjectData{
			Position: Point{X: 100.0, Y: 385.0},
			IconType: IconCube,
			ExtData: &ExtendedPlayerData{
				VelocityX: 5.0,
				VelocityY: -2.5,
				Gravity:   1.0,
			},
		},
	}
}

func roundTrip(t *testing.T, p OutPacket, empty Packet) Packet {
	t.Helper()

	// Кодек тела симметричен независимо от конверта шифрования
	body := NewByteBuffer()
	p.Encode(body)

	reader := NewByteReader(body.Bytes())
	if err := empty.Decode(reader); err != nil {
		t.Fatalf("decode %d: %v", p.PacketId(), err)
	}
	if reader.Remaining() != 0 {
		t.Fatalf("packet %d: %d trailing bytes", p.PacketId(), reader.Remaining())
	}
	return empty
}

func TestSessionIdParts(t *testing.T) {
	cases := []struct {
		srv   uint8
		room  uint32
		level uint32
	}{
		{0, 0, 0},
		{1, 0, 1234},
		{255, 0xffffff, 0xffffffff},
		{7, 42, 91283881},
	}

	for _, c := range cases {
		id := SessionIdFromParts(c.srv, c.room, c.level)
		srv, room, level := id.Parts()
		if srv != c.srv || room != c.room || level != c.level {
			t.Errorf("parts(%d,%d,%d): got (%d,%d,%d)", c.srv, c.room, c.level, srv, room, level)
		}
	}

	if !SessionId(0).IsNone() {
		t.Error("zero session must be none")
	}
	if SessionIdFromParts(1, 2, 3).IsNone() {
		t.Error("non-zero session must not be none")
	}
}

func TestPlayerStateRoundTrip(t *testing.T) {
	in := PlayerDataPacket{Data: samplePlayerState()}
	out := roundTrip(t, in, &PlayerDataPacket{}).(*PlayerDataPacket)

	if diff := cmp.Diff(in.Data, out.Data); diff != "" {
		t.Errorf("player state mismatch (-want +got):\n%s", diff)
	}
}

func TestPacketRoundTrips(t *testing.T) {
	nameColor := MultiColor{
		Type:   MultiColorTinting,
		Colors: []Color3{{R: 255}, {G: 255}},
	}

	cases := []struct {
		in    OutPacket
		empty Packet
	}{
		{PingPacket{Id: 777}, &PingPacket{}},
		{ConnectionTestPacket{Uid: 9, Data: []byte{1, 2, 3}}, &ConnectionTestPacket{}},
		{
			LoginPacket{
				AccountId: 1, UserId: 2, Username: "player",
				Token: "123456", Icons: DefaultPlayerIconData(),
				Privacy: UserPrivacyFlags{NoInvites: true},
			},
			&LoginPacket{},
		},
		{
			LevelJoinPacket{
				Session:    SessionIdFromParts(2, 99, 12345),
				AuthorId:   71,
				Platformer: true,
			},
			&LevelJoinPacket{},
		},
		{SyncIconsPacket{Icons: DefaultPlayerIconData()}, &SyncIconsPacket{}},
		{
			LoggedInPacket{
				Tps: 30,
				Extended: ExtendedUserData{
					NewToken:  "tok",
					RoleIds:   []uint8{1, 4},
					NameColor: &nameColor,
					Permissions: UserPermissions{
						IsModerator: true,
						CanMute:     true,
					},
				},
			},
			&LoggedInPacket{},
		},
		{
			LevelDataPacket{
				Players: []PlayerState{samplePlayerState()},
				Culled:  []int32{10, 20},
				Events:  []Event{{Type: EventCounterChange, Data: []byte{0x01}}},
			},
			&LevelDataPacket{},
		},
		{
			RoomStatePacket{State: RoomStateInfo{
				RoomId:      912,
				RoomOwner:   100,
				RoomName:    "test room",
				PinnedLevel: SessionIdFromParts(1, 912, 5),
				Settings:    RoomSettings{ServerId: 1, Teams: true, Collision: true},
				Players: []RoomPlayer{
					{AccountId: 100, Username: "owner", Cube: 2, Color1: 3, Color2: 12},
				},
				Teams:       []RoomTeam{{Color: Color3{R: 255}, Index: 0}},
				TeamMembers: map[uint16][]int32{0: {100}},
			}},
			&RoomStatePacket{},
		},
		{
			RoomInvitePacket{
				RoomId:   17,
				RoomName: "come play",
				Inviter:  RoomPlayer{AccountId: 55, Username: "friend"},
			},
			&RoomInvitePacket{},
		},
		{
			AdminUserDataPacket{
				AccountId: 3, Username: "bad", Banned: true,
				BanExpires: 1700000000, Reason: "spam", RoleIds: []uint8{},
			},
			&AdminUserDataPacket{},
		},
	}

	for _, c := range cases {
		out := roundTrip(t, c.in, c.empty)

		if diff := cmp.Diff(any(c.in), derefPacket(out)); diff != "" {
			t.Errorf("packet %d mismatch (-want +got):\n%s", c.in.PacketId(), diff)
		}
	}
}

// derefPacket приводит указатель на пакет к значению для сравнения
func derefPacket(p Packet) any {
	switch v := p.(type) {
	case *PingPacket:
		return *v
	case *ConnectionTestPacket:
		return *v
	case *LoginPacket:
		return *v
	case *LevelJoinPacket:
		return *v
	case *SyncIconsPacket:
		return *v
	case *LoggedInPacket:
		return *v
	case *LevelDataPacket:
		return *v
	case *RoomStatePacket:
		return *v
	case *RoomInvitePacket:
		return *v
	case *AdminUserDataPacket:
		return *v
	default:
		return p
	}
}

func TestEncryptedPacketEnvelope(t *testing.T) {
	alice, _ := crypto.GenerateKeyPair()
	bob, _ := crypto.GenerateKeyPair()
	shared, _ := crypto.ComputeSharedSecret(alice.PrivateKey, bob.PublicKey)

	client, _ := crypto.DeriveBox(shared, true)
	server, _ := crypto.DeriveBox(shared, false)

	// Серверный шифрованный пакет: запечатан сервером, вскрыт клиентом
	in := VoiceBroadcastPacket{Sender: 42, Frame: []byte{0xde, 0xad, 0xbe, 0xef}}

	frame, err := EncodePacket(in, server.Seal)
	if err != nil {
		t.Fatal(err)
	}

	// Заголовок остаётся открытым
	var header PacketHeader
	if err := header.Decode(NewByteReader(frame)); err != nil {
		t.Fatal(err)
	}
	if header.Id != IdVoiceBroadcast || !header.Encrypted {
		t.Fatalf("header: %+v", header)
	}

	out, err := DecodePacket(frame, client.Open)
	if err != nil {
		t.Fatal(err)
	}

	vb, ok := out.(*VoiceBroadcastPacket)
	if !ok {
		t.Fatalf("wrong type %T", out)
	}
	if vb.Sender != 42 || len(vb.Frame) != 4 {
		t.Errorf("got %+v", vb)
	}

	// Без шифра шифрованный пакет не кодируется и не декодируется
	if _, err := EncodePacket(in, nil); !errors.Is(err, ErrNoCipher) {
		t.Errorf("want ErrNoCipher, got %v", err)
	}
	if _, err := DecodePacket(frame, nil); !errors.Is(err, ErrNoCipher) {
		t.Errorf("want ErrNoCipher, got %v", err)
	}
}

func TestUnknownPacketDropped(t *testing.T) {
	buf := NewByteBuffer()
	PacketHeader{Id: 29999, Encrypted: false}.Encode(buf)
	buf.WriteU32(123)

	p, err := DecodePacket(buf.Bytes(), nil)
	if err != nil {
		t.Fatalf("unknown packet must not error: %v", err)
	}
	if p != nil {
		t.Fatalf("unknown packet must decode to nil, got %T", p)
	}
}

// TestDecodeFuzz кодирует случайные состояния, портит один байт и
// проверяет, что декодер либо успешен, либо возвращает типизированную
// ошибку - но никогда не паникует
func TestDecodeFuzz(t *testing.T) {
	rng := rand.New(rand.NewSource(0x6105ed))

	for i := 0; i < 10000; i++ {
		st := PlayerState{
			AccountId:   rng.Int31(),
			Timestamp:   rng.Float32() * 1000,
			FrameNumber: uint8(rng.Intn(256)),
			DeathCount:  uint8(rng.Intn(256)),
			Percentage:  uint16(rng.Intn(65536)),
			IsDead:      rng.Intn(2) == 0,
		}
		if rng.Intn(2) == 0 {
			st.Player1 = &PlayerObjectData{
				Position: Point{X: rng.Float32(), Y: rng.Float32()},
				Rotation: rng.Float32() * 360,
				IconType: PlayerIconType(rng.Intn(int(IconJetpack) + 1)),
			}
		}

		buf := NewByteBuffer()
		st.Encode(buf)

		raw := buf.Bytes()
		raw[rng.Intn(len(raw))] ^= byte(1 + rng.Intn(255))

		var out PlayerState
		err := out.Decode(NewByteReader(raw))
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrDecodeShort) && !errors.Is(err, ErrDecodeBadTag) &&
			!errors.Is(err, ErrDecodeOverflow) {
			t.Fatalf("iteration %d: untyped decode error: %v", i, err)
		}
	}
}
