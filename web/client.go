package web

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/GlobedGD/globed2-core/data"
)

// ====================================================================
// Client - HTTP-клиент центрального сервера
// ====================================================================
//
// Все запросы идут со стабильным user-agent и версией протокола в
// query-параметре. Таймаут по умолчанию 5 секунд, каждый запрос
// отменяем через context. Верификация сертификатов выключается
// только флагом globed-no-ssl-verify (для дев-серверов).
// ====================================================================

// DefaultTimeout - таймаут запроса по умолчанию
const DefaultTimeout = 5 * time.Second

// WebError - ошибка HTTP-запроса с кодом и телом ответа
type WebError struct {
	Code int
	Body string
}

func (e *WebError) Error() string {
	return fmt.Sprintf("web: http %d: %s", e.Code, e.Body)
}

var ErrNoBaseURL = errors.New("web: no central server url")

// Client - клиент одного центрального сервера
type Client struct {
	log     *zap.Logger
	http    *http.Client
	baseURL string

	// protocol - версия протокола клиента, уходит в каждый запрос
	protocol uint16

	userAgent string
}

// NewClient создаёт клиент. insecure выключает верификацию TLS
func NewClient(baseURL string, protocol uint16, insecure bool, log *zap.Logger) *Client {
	transport := http.DefaultTransport
	if insecure {
		t := http.DefaultTransport.(*http.Transport).Clone()
		t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		transport = t
	}

	return &Client{
		log:       log,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		protocol:  protocol,
		userAgent: fmt.Sprintf("globed-client/2 (protocol %d)", protocol),
		http: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: transport,
		},
	}
}

// SetBaseURL переключает клиент на другой центральный сервер
func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = strings.TrimSuffix(baseURL, "/")
}

func (c *Client) makeURL(path string, params url.Values) (string, error) {
	if c.baseURL == "" {
		return "", ErrNoBaseURL
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	// Версия протокола уходит в каждый запрос
	query := url.Values{}
	for k, v := range params {
		query[k] = v
	}
	if query.Get("protocol") == "" {
		query.Set("protocol", fmt.Sprintf("%d", c.protocol))
	}
	return c.baseURL + path + "?" + query.Encode(), nil
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values) (string, error) {
	full, err := c.makeURL(path, params)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, method, full, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	c.log.Debug("web request",
		zap.String("method", method),
		zap.String("url", full))

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &WebError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	return string(body), nil
}

// Get выполняет GET-запрос
func (c *Client) Get(ctx context.Context, path string, params url.Values) (string, error) {
	return c.do(ctx, http.MethodGet, path, params)
}

// Post выполняет POST-запрос с параметрами в query
func (c *Client) Post(ctx context.Context, path string, params url.Values) (string, error) {
	return c.do(ctx, http.MethodPost, path, params)
}

func (c *Client) baseParams() url.Values {
	params := url.Values{}
	params.Set("protocol", fmt.Sprintf("%d", c.protocol))
	return params
}

// FetchServers запрашивает список игровых серверов.
// Возвращает разобранные записи и сырое тело для кэша
func (c *Client) FetchServers(ctx context.Context) ([]data.GameServerEntry, []byte, error) {
	body, err := c.Get(ctx, "/servers", c.baseParams())
	if err != nil {
		return nil, nil, err
	}

	var entries []data.GameServerEntry
	if err := json.Unmarshal([]byte(body), &entries); err != nil {
		return nil, nil, fmt.Errorf("parse servers: %w", err)
	}

	return entries, []byte(body), nil
}

// TestServer проверяет живость центрального сервера
func (c *Client) TestServer(ctx context.Context) error {
	_, err := c.Get(ctx, "/version", nil)
	return err
}
