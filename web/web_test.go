package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/GlobedGD/globed2-core/crypto"
)

// ====================================================================
// Тесты HTTP-клиента и аутентификации
// ====================================================================

type fakeBackend struct {
	uploaded map[int64]string
	deleted  []int64
	nextId   int64
	failNext bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{uploaded: make(map[int64]string), nextId: 100}
}

func (f *fakeBackend) UploadMessage(bot int32, subject, body string) (int64, error) {
	if f.failNext {
		return 0, errors.New("messaging down")
	}
	f.nextId++
	f.uploaded[f.nextId] = body
	return f.nextId, nil
}

func (f *fakeBackend) DeleteMessage(id int64) error {
	f.deleted = append(f.deleted, id)
	delete(f.uploaded, id)
	return nil
}

// challengeCentral - httptest-сервер, изображающий центральный
func challengeCentral(t *testing.T, botAccount int32, answer string) *httptest.Server {
	t.Helper()

	authkey := []byte("raw authkey material")

	mux := http.NewServeMux()

	mux.HandleFunc("/challenge/new", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NotEmpty(t, r.URL.Query().Get("aid"))
		require.NotEmpty(t, r.URL.Query().Get("protocol"))

		// Запечатываем ответ челленджа на ключ клиента
		rawClientKey, err := crypto.Base64Decode(r.URL.Query().Get("pkey"), crypto.Base64Urlsafe)
		require.NoError(t, err)
		var clientKey [crypto.PublicKeySize]byte
		copy(clientKey[:], rawClientKey)

		keypair, _ := crypto.GenerateKeyPair()
		shared, _ := crypto.ComputeSharedSecret(keypair.PrivateKey, clientKey)
		box, _ := crypto.DeriveBox(shared, false)
		sealed, _ := box.Seal([]byte(answer))

		fmt.Fprintf(w, "%d:%s:%s",
			botAccount,
			crypto.Base64Encode(sealed, crypto.Base64Urlsafe),
			crypto.Base64Encode(keypair.PublicKey[:], crypto.Base64Urlsafe))
	})

	mux.HandleFunc("/challenge/verify", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("answer") != answer {
			http.Error(w, "-1: wrong answer", http.StatusUnauthorized)
			return
		}
		fmt.Fprintf(w, "777:%s", crypto.Base64Encode(authkey, crypto.Base64Urlsafe))
	})

	mux.HandleFunc("/totplogin", func(w http.ResponseWriter, r *http.Request) {
		expected := crypto.Base64Encode(expectedAuthkeyHash(authkey), crypto.Base64Urlsafe)
		if r.URL.Query().Get("authkey") != expected {
			http.Error(w, "bad authkey", http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, "one-time-token")
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func expectedAuthkeyHash(raw []byte) []byte {
	h := crypto.HashAuthKey(raw)
	return h[:]
}

func newAuth(t *testing.T, baseURL string, backend MessageBackend) *Authenticator {
	client := NewClient(baseURL, 14, false, zap.NewNop())
	return NewAuthenticator(client, backend, Identity{
		AccountId:   123,
		UserId:      456,
		AccountName: "player",
	}, zap.NewNop())
}

func TestChallengeHappyPath(t *testing.T) {
	srv := challengeCentral(t, 9000, "the answer")
	backend := newFakeBackend()

	auth := newAuth(t, srv.URL, backend)
	require.NoError(t, auth.RunChallenge(context.Background()))
	require.True(t, auth.HasAuthkey())

	// Сообщение с ответом было загружено и после верификации удалено
	require.Len(t, backend.deleted, 1)
	require.Empty(t, backend.uploaded)

	// TOTP-код детерминирован от хэша authkey
	code, err := auth.TotpCode()
	require.NoError(t, err)
	require.Len(t, code, 6)

	// totplogin принимает urlsafe-base64 хэша
	token, err := auth.RequestAuthToken(context.Background())
	require.NoError(t, err)
	require.Equal(t, "one-time-token", token)
}

func TestChallengeTrustedEnvironment(t *testing.T) {
	// accountId == -1: шаг с сообщением пропускается
	srv := challengeCentral(t, -1, "trusted answer")

	auth := newAuth(t, srv.URL, nil)
	require.NoError(t, auth.RunChallenge(context.Background()))
	require.True(t, auth.HasAuthkey())
}

func TestChallengeUploadFailure(t *testing.T) {
	srv := challengeCentral(t, 9000, "answer")
	backend := newFakeBackend()
	backend.failNext = true

	auth := newAuth(t, srv.URL, backend)
	err := auth.RunChallenge(context.Background())
	require.ErrorIs(t, err, ErrMessageUploadFailed)
	require.False(t, auth.HasAuthkey())
}

func TestChallengeMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "gibberish")
	}))
	defer srv.Close()

	auth := newAuth(t, srv.URL, newFakeBackend())
	require.ErrorIs(t, auth.RunChallenge(context.Background()), ErrChallengeFailed)
}

func TestRequestCancellable(t *testing.T) {
	blocked := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-blocked
	}))
	defer srv.Close()
	defer close(blocked)

	client := NewClient(srv.URL, 14, false, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := client.Get(ctx, "/servers", nil)
	require.Error(t, err)
	require.Less(t, time.Since(start), time.Second)
}

func TestWebErrorSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusTeapot)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 14, false, zap.NewNop())
	_, err := client.Get(context.Background(), "/servers", nil)

	var webErr *WebError
	require.ErrorAs(t, err, &webErr)
	require.Equal(t, http.StatusTeapot, webErr.Code)
	require.Equal(t, "nope", webErr.Body)
}

func TestFetchServers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "14", r.URL.Query().Get("protocol"))
		fmt.Fprint(w, `[{"id":"eu-1","name":"Europe","address":"eu.globed.dev:4201","region":"EU"}]`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 14, false, zap.NewNop())
	entries, raw, err := client.FetchServers(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "eu-1", entries[0].Id)
	require.NotEmpty(t, raw)
}

func TestFeaturedHistoryPaging(t *testing.T) {
	// Сервер с тремя страницами по два уровня, id в порядке сервера
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		fmt.Fprintf(w, `{"page":%d,"total_pages":3,"levels":[{"id":%d,"level_id":%d,"rate_tier":1},{"id":%d,"level_id":%d,"rate_tier":2}]}`,
			page, page*2, 1000+page*2, page*2+1, 1000+page*2+1)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 14, false, zap.NewNop())

	seen := make(map[int32]int)
	var lastId int32 = -1

	for page := 0; page < 3; page++ {
		out, err := client.FetchFeaturedHistory(context.Background(), page)
		require.NoError(t, err)
		require.Equal(t, page, out.Page)
		require.Equal(t, 3, out.TotalPages)

		for _, level := range out.Levels {
			// Порядок серверной нумерации строго возрастает
			require.Greater(t, level.Id, lastId)
			lastId = level.Id

			// Ни один id не встречается на двух страницах
			seen[level.Id]++
			require.Equal(t, 1, seen[level.Id])
		}
	}
}
