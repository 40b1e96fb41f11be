// Пакет dataclient — HTTP-клиент удалённого сервиса данных госзакупок.
// Загружает словари фильтров, страницы отчётов и полную детализацию тендеров,
// выполняет создание, изменение, дублирование и удаление записей.
//
// Поддерживает TLS с кастомным CA, статический bearer-токен и
// X-Request-ID для сквозной трассировки запросов.
package dataclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RequestIDHeader — заголовок идентификатора запроса.
const RequestIDHeader = "X-Request-ID"

// maxErrorBody — ограничение на чтение тела ответа с ошибкой.
const maxErrorBody = 64 << 10

// APIError — отказ сервиса данных (не-2xx ответ или success: false).
// Message содержит причину от сервера без изменений.
type APIError struct {
	Op      string // Операция клиента (GenerateReport, DeleteLicitacion, ...)
	Status  int    // HTTP статус-код
	Message string // Сообщение сервера
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: сервис данных вернул статус %d: %s", e.Op, e.Status, e.Message)
}

// Message возвращает текст ошибки для показа пользователю: причину отказа
// сервиса без изменений либо описание недоступности сервиса.
func Message(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return "Servicio de datos no disponible: " + err.Error()
}

// Client — HTTP-клиент сервиса данных.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string //nolint:gosec // G101: поле структуры, не содержит секрет напрямую
	logger     *slog.Logger
}

// New создаёт клиент сервиса данных.
// baseURL — базовый URL сервиса (например, http://licitaciones-api:8000).
// caCertPath — путь к CA-сертификату для TLS (пустая строка — стандартный пул).
// timeout — таймаут HTTP-запросов.
// token — статический bearer-токен (пустая строка — без авторизации).
func New(
	baseURL string,
	caCertPath string,
	timeout time.Duration,
	token string,
	logger *slog.Logger,
) (*Client, error) {
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("некорректный URL сервиса данных %q: %w", baseURL, err)
	}

	httpClient := &http.Client{Timeout: timeout}

	if caCertPath != "" {
		tlsConfig, err := buildTLSConfig(caCertPath)
		if err != nil {
			return nil, fmt.Errorf("загрузка CA-сертификата сервиса данных: %w", err)
		}
		httpClient.Transport = &http.Transport{
			TLSClientConfig:     tlsConfig,
			MaxIdleConnsPerHost: 10,
		}
		logger.Info("CA-сертификат сервиса данных добавлен в пул доверия",
			slog.String("ca_cert", caCertPath),
		)
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		logger:     logger.With(slog.String("component", "data_client")),
	}, nil
}

// BaseURL возвращает базовый URL сервиса данных.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// do выполняет JSON-запрос к сервису данных.
// body == nil — запрос без тела; out == nil — тело ответа не декодируется.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var reader io.Reader = http.NoBody
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("кодирование запроса %s: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return fmt.Errorf("создание запроса %s: %w", op, err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req) //nolint:gosec // G704: URL из конфигурации
	if err != nil {
		return fmt.Errorf("запрос %s к %s: %w", op, c.baseURL, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("Ответ сервиса данных",
		slog.String("op", op),
		slog.String("request_id", requestID),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{Op: op, Status: resp.StatusCode, Message: errorMessage(raw, resp.StatusCode)}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	// Пустое тело допустимо для операций изменения
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("декодирование ответа %s: %w", op, err)
	}
	return nil
}

// errorMessage извлекает причину отказа из тела ответа.
// Поддерживаются поля detail, error, message; иначе — тело как есть
// или текст статуса, если тело пустое.
func errorMessage(raw []byte, status int) string {
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err == nil {
		for _, key := range []string{"detail", "error", "message"} {
			if s, ok := body[key].(string); ok && s != "" {
				return s
			}
		}
	}
	if msg := strings.TrimSpace(string(raw)); msg != "" {
		return msg
	}
	return http.StatusText(status)
}

// buildTLSConfig создаёт TLS-конфигурацию с кастомным CA-сертификатом.
func buildTLSConfig(caCertPath string) (*tls.Config, error) {
	caCert, err := os.ReadFile(caCertPath)
	if err != nil {
		return nil, fmt.Errorf("чтение CA-сертификата: %w", err)
	}

	caCertPool, err := x509.SystemCertPool()
	if err != nil {
		caCertPool = x509.NewCertPool()
	}
	if !caCertPool.AppendCertsFromPEM(caCert) {
		return nil, fmt.Errorf("CA-сертификат %s не содержит PEM-блоков", caCertPath)
	}

	return &tls.Config{
		RootCAs:    caCertPool,
		MinVersion: tls.VersionTLS12,
	}, nil
}
