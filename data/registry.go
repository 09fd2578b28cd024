package data

// ====================================================================
// Реестр серверных пакетов
// ====================================================================
//
// Таблица id → конструктор пустого пакета, готового к Decode.
// Клиентские пакеты сюда не попадают: клиент их не принимает.
// Неизвестный id - nil, кадр дропается без ошибки.
// ====================================================================

var serverPackets = map[PacketId]func() Packet{
	// соединение
	IdPingResponse:            func() Packet { return &PingResponsePacket{} },
	IdCryptoHandshakeResponse: func() Packet { return &CryptoHandshakeResponsePacket{} },
	IdKeepaliveResponse:       func() Packet { return &KeepaliveResponsePacket{} },
	IdServerDisconnect:        func() Packet { return &ServerDisconnectPacket{} },
	IdLoggedIn:                func() Packet { return &LoggedInPacket{} },
	IdLoginFailed:             func() Packet { return &LoginFailedPacket{} },
	IdProtocolMismatch:        func() Packet { return &ProtocolMismatchPacket{} },
	IdKeepaliveTCPResponse:    func() Packet { return &KeepaliveTCPResponsePacket{} },
	IdServerNotice:            func() Packet { return &ServerNoticePacket{} },
	IdServerBanned:            func() Packet { return &ServerBannedPacket{} },
	IdServerMuted:             func() Packet { return &ServerMutedPacket{} },
	IdConnectionTestResponse:  func() Packet { return &ConnectionTestResponsePacket{} },

	// геймплей
	IdPlayerProfiles:       func() Packet { return &PlayerProfilesPacket{} },
	IdLevelData:            func() Packet { return &LevelDataPacket{} },
	IdPlayerList:           func() Packet { return &PlayerListPacket{} },
	IdLevelPlayerMetadata:  func() Packet { return &LevelPlayerMetadataPacket{} },
	IdRolesUpdated:         func() Packet { return &RolesUpdatedPacket{} },
	IdVoiceBroadcast:       func() Packet { return &VoiceBroadcastPacket{} },
	IdChatMessageBroadcast: func() Packet { return &ChatMessageBroadcastPacket{} },

	// комнаты и события
	IdRoomCreated:      func() Packet { return &RoomCreatedPacket{} },
	IdRoomJoined:       func() Packet { return &RoomJoinedPacket{} },
	IdRoomJoinFailed:   func() Packet { return &RoomJoinFailedPacket{} },
	IdRoomState:        func() Packet { return &RoomStatePacket{} },
	IdRoomInvite:       func() Packet { return &RoomInvitePacket{} },
	IdRoomList:         func() Packet { return &RoomListPacket{} },
	IdRoomCreateFailed: func() Packet { return &RoomCreateFailedPacket{} },
	IdLevelPinned:      func() Packet { return &LevelPinnedPacket{} },
	IdEventBroadcast:   func() Packet { return &EventBroadcastPacket{} },

	// админка
	IdAdminAuthSuccess:    func() Packet { return &AdminAuthSuccessPacket{} },
	IdAdminAuthFailed:     func() Packet { return &AdminAuthFailedPacket{} },
	IdAdminError:          func() Packet { return &AdminErrorPacket{} },
	IdAdminUserData:       func() Packet { return &AdminUserDataPacket{} },
	IdAdminSuccessMessage: func() Packet { return &AdminSuccessMessagePacket{} },
}

// MatchPacket возвращает пустой пакет по id или nil для неизвестного
func MatchPacket(id PacketId) Packet {
	ctor, ok := serverPackets[id]
	if !ok {
		return nil
	}
	return ctor()
}
