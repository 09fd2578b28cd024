package web

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/GlobedGD/globed2-core/crypto"
)

// ====================================================================
// Аутентификация через центральный сервер
// ====================================================================
//
// Двухшаговый challenge/response:
//
//   1. POST /challenge/new - клиент шлёт свою игровую личность и
//      эфемерный публичный ключ. Ответ: "accountId:chtoken:pubkey
//      [:secureFlag]". chtoken - base64 бокса, запечатанного на наш
//      ключ; вскрываем его ключом сервера из ответа и получаем
//      строку-ответ челленджа
//
//   2. Доказательство владения аккаунтом: одноразовое сообщение с
//      ответом уходит боту через мессаджинг самой игры (порт
//      MessageBackend). Затем POST /challenge/verify. Ответ:
//      "messageId:encodedAuthkey". authkey декодируется из base64,
//      хэшируется с доменным разделением и становится долговременным
//      ключом сессии. Загруженное сообщение удаляется
//
//   accountId == -1 в ответе первого шага означает доверенную среду:
//   шаг с сообщением пропускается
//
// TOTP от хэша authkey - то, что несёт пакет Login игрового сервера.
// ====================================================================

var (
	ErrChallengeFailed     = errors.New("auth: challenge failed")
	ErrVerifyFailed        = errors.New("auth: verification failed")
	ErrMessageUploadFailed = errors.New("auth: message upload failed")
)

// MessageBackend - порт к мессаджингу игры для шага верификации
type MessageBackend interface {
	// UploadMessage шлёт сообщение бот-аккаунту, возвращает id
	UploadMessage(botAccountId int32, subject, body string) (int64, error)

	// DeleteMessage удаляет загруженное сообщение
	DeleteMessage(messageId int64) error
}

// Identity - игровая личность клиента
type Identity struct {
	AccountId   int32
	UserId      int32
	AccountName string
}

// Authenticator - держатель авторизационного состояния
type Authenticator struct {
	log      *zap.Logger
	client   *Client
	backend  MessageBackend
	identity Identity

	// authkey - хэш ключа, выданного центральным сервером
	authkey    [32]byte
	hasAuthkey bool
}

// NewAuthenticator создаёт аутентификатор
func NewAuthenticator(client *Client, backend MessageBackend, identity Identity, log *zap.Logger) *Authenticator {
	return &Authenticator{
		log:      log,
		client:   client,
		backend:  backend,
		identity: identity,
	}
}

// Identity возвращает игровую личность
func (a *Authenticator) Identity() Identity { return a.identity }

// HasAuthkey сообщает, пройден ли challenge
func (a *Authenticator) HasAuthkey() bool { return a.hasAuthkey }

// Authkey возвращает хэш authkey
func (a *Authenticator) Authkey() [32]byte { return a.authkey }

// SetAuthkey восстанавливает сохранённый ключ (из локального стора)
func (a *Authenticator) SetAuthkey(key [32]byte) {
	a.authkey = key
	a.hasAuthkey = true
}

func (a *Authenticator) identityParams() url.Values {
	params := url.Values{}
	params.Set("aid", strconv.FormatInt(int64(a.identity.AccountId), 10))
	params.Set("uid", strconv.FormatInt(int64(a.identity.UserId), 10))
	params.Set("aname", a.identity.AccountName)
	return params
}

// challengeInfo - разобранный ответ /challenge/new
type challengeInfo struct {
	accountId int32
	answer    string
	secure    bool
}

func (a *Authenticator) startChallenge(ctx context.Context) (*challengeInfo, error) {
	keypair, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, fmt.Errorf("challenge keypair: %w", err)
	}

	params := a.identityParams()
	params.Set("protocol", strconv.Itoa(int(a.client.protocol)))
	params.Set("pkey", crypto.Base64Encode(keypair.PublicKey[:], crypto.Base64Urlsafe))

	body, err := a.client.Post(ctx, "/challenge/new", params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrChallengeFailed, err)
	}

	// "accountId:chtoken:pubkey[:secureFlag]"
	parts := strings.Split(strings.TrimSpace(body), ":")
	if len(parts) < 3 {
		return nil, fmt.Errorf("%w: malformed response", ErrChallengeFailed)
	}

	botAccount, err := strconv.ParseInt(parts[0], 10, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: bad account id %q", ErrChallengeFailed, parts[0])
	}

	chtoken, err := crypto.Base64Decode(parts[1], crypto.Base64Urlsafe)
	if err != nil {
		return nil, fmt.Errorf("%w: bad chtoken: %v", ErrChallengeFailed, err)
	}

	rawServerKey, err := crypto.Base64Decode(parts[2], crypto.Base64Urlsafe)
	if err != nil || len(rawServerKey) != crypto.PublicKeySize {
		return nil, fmt.Errorf("%w: bad server pubkey", ErrChallengeFailed)
	}
	var serverKey [crypto.PublicKeySize]byte
	copy(serverKey[:], rawServerKey)

	secure := len(parts) >= 4 && parts[3] == "1"

	// Вскрываем челлендж: бокс запечатан сервером на наш ключ
	shared, err := crypto.ComputeSharedSecret(keypair.PrivateKey, serverKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrChallengeFailed, err)
	}
	box, err := crypto.DeriveBox(shared, true)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrChallengeFailed, err)
	}
	answer, err := box.Open(chtoken)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot open chtoken: %v", ErrChallengeFailed, err)
	}

	return &challengeInfo{
		accountId: int32(botAccount),
		answer:    string(answer),
		secure:    secure,
	}, nil
}

// RunChallenge проходит полный challenge/verify и сохраняет authkey
func (a *Authenticator) RunChallenge(ctx context.Context) error {
	info, err := a.startChallenge(ctx)
	if err != nil {
		return err
	}

	var uploadedMessage int64 = -1

	// accountId == -1: доверенная среда, владение аккаунтом не
	// доказывается
	if info.accountId != -1 {
		if a.backend == nil {
			return fmt.Errorf("%w: no message backend", ErrMessageUploadFailed)
		}
		messageId, err := a.backend.UploadMessage(info.accountId, "##c## globed verification", info.answer)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMessageUploadFailed, err)
		}
		uploadedMessage = messageId
	}

	params := a.identityParams()
	params.Set("answer", info.answer)

	body, err := a.client.Post(ctx, "/challenge/verify", params)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrVerifyFailed, err)
	}

	// "messageId:encodedAuthkey"
	parts := strings.SplitN(strings.TrimSpace(body), ":", 2)
	if len(parts) != 2 {
		return fmt.Errorf("%w: malformed response", ErrVerifyFailed)
	}

	rawAuthkey, err := crypto.Base64Decode(parts[1], crypto.Base64Urlsafe)
	if err != nil {
		return fmt.Errorf("%w: bad authkey: %v", ErrVerifyFailed, err)
	}

	a.authkey = crypto.HashAuthKey(rawAuthkey)
	a.hasAuthkey = true

	// Сообщение больше не нужно
	if uploadedMessage != -1 {
		if err := a.backend.DeleteMessage(uploadedMessage); err != nil {
			a.log.Warn("failed to delete verification message",
				zap.Int64("message", uploadedMessage), zap.Error(err))
		}
	}

	return nil
}

// RequestAuthToken обменивает authkey на одноразовый токен логина
// через /totplogin
func (a *Authenticator) RequestAuthToken(ctx context.Context) (string, error) {
	if !a.hasAuthkey {
		return "", fmt.Errorf("%w: no authkey", ErrVerifyFailed)
	}

	params := a.identityParams()
	params.Set("authkey", crypto.Base64Encode(a.authkey[:], crypto.Base64Urlsafe))

	body, err := a.client.Post(ctx, "/totplogin", params)
	if err != nil {
		return "", fmt.Errorf("totp login: %w", err)
	}

	return strings.TrimSpace(body), nil
}

// TotpCode выдаёт TOTP-код от authkey для пакета Login
func (a *Authenticator) TotpCode() (string, error) {
	if !a.hasAuthkey {
		return "", fmt.Errorf("%w: no authkey", ErrVerifyFailed)
	}
	return crypto.TOTPNow(a.authkey[:]), nil
}
