// Package supabase_storage реализует ObjectStoragePort поверх REST API Supabase Storage.
package supabase_storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"marketplace/pkg/contextkeys"
	"marketplace/services/listing-service/internal/core/domain"
	"marketplace/services/listing-service/internal/core/port"
)

type Config struct {
	ProjectURL string
	ServiceKey string
	Bucket     string
	Timeout    time.Duration
}

// Client ходит в Storage с service-ключом: подписанные ссылки выдаются
// только после проверки прав в use case.
type Client struct {
	storageURL string
	serviceKey string
	bucket     string
	httpClient *http.Client
}

var _ port.ObjectStoragePort = (*Client)(nil)

func NewClient(cfg Config) (*Client, error) {
	if cfg.ProjectURL == "" {
		return nil, fmt.Errorf("supabase storage: project URL is required")
	}
	if cfg.ServiceKey == "" {
		return nil, fmt.Errorf("supabase storage: service key is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("supabase storage: bucket is required")
	}
	if _, err := url.Parse(cfg.ProjectURL); err != nil {
		return nil, fmt.Errorf("supabase storage: invalid project URL: %w", err)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}

	return &Client{
		storageURL: strings.TrimRight(cfg.ProjectURL, "/") + "/storage/v1",
		serviceKey: cfg.ServiceKey,
		bucket:     cfg.Bucket,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Error - ответ Storage с кодом >= 400.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("supabase storage: status %d: %s", e.StatusCode, e.Message)
}

// CreateSignedUploadURL выдает одноразовую ссылку для загрузки файла в бакет.
func (c *Client) CreateSignedUploadURL(ctx context.Context, objectPath string) (*domain.SignedUpload, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component": "SupabaseStorageClient",
		"method":    "CreateSignedUploadURL",
		"path":      objectPath,
	})

	endpoint := fmt.Sprintf("%s/object/upload/sign/%s/%s", c.storageURL, c.bucket, escapePath(objectPath))
	respBody, err := c.do(ctx, http.MethodPost, endpoint, []byte("{}"))
	if err != nil {
		logger.Error("Failed to create signed upload URL", err, nil)
		return nil, err
	}

	var result struct {
		URL   string `json:"url"`
		Token string `json:"token"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("supabase storage: unmarshal response: %w", err)
	}
	if result.URL == "" {
		return nil, fmt.Errorf("supabase storage: empty signed url in response")
	}

	token := result.Token
	if token == "" {
		if u, err := url.Parse(result.URL); err == nil {
			token = u.Query().Get("token")
		}
	}

	signedURL := result.URL
	if strings.HasPrefix(signedURL, "/") {
		signedURL = c.storageURL + signedURL
	}

	logger.Debug("Signed upload URL created", nil)
	return &domain.SignedUpload{Path: objectPath, SignedURL: signedURL, Token: token}, nil
}

// DeleteObject удаляет файл. Отсутствующий файл ошибкой не считается.
func (c *Client) DeleteObject(ctx context.Context, objectPath string) error {
	body, err := json.Marshal(map[string]interface{}{"prefixes": []string{objectPath}})
	if err != nil {
		return fmt.Errorf("supabase storage: marshal request: %w", err)
	}

	_, err = c.do(ctx, http.MethodDelete, fmt.Sprintf("%s/object/%s", c.storageURL, c.bucket), body)
	if err != nil {
		contextkeys.LoggerFromContext(ctx).Error("Failed to delete object", err, port.Fields{
			"component": "SupabaseStorageClient",
			"path":      objectPath,
		})
		return err
	}
	return nil
}

func (c *Client) PublicURL(objectPath string) string {
	return fmt.Sprintf("%s/object/public/%s/%s", c.storageURL, c.bucket, escapePath(objectPath))
}

func (c *Client) do(ctx context.Context, method, endpoint string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("supabase storage: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("apikey", c.serviceKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("supabase storage: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("supabase storage: read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, parseError(respBody, resp.StatusCode)
	}
	return respBody, nil
}

func parseError(body []byte, statusCode int) error {
	var errResp struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &errResp); err != nil {
		return &Error{StatusCode: statusCode, Message: string(body)}
	}
	msg := errResp.Message
	if msg == "" {
		msg = errResp.Error
	}
	return &Error{StatusCode: statusCode, Message: msg}
}

// escapePath экранирует сегменты пути, сохраняя разделители.
func escapePath(p string) string {
	segments := strings.Split(strings.TrimPrefix(p, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}
