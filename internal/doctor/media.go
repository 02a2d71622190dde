package doctor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/KentSpendy/BukCare/pkg/config"
	"github.com/KentSpendy/BukCare/pkg/logger"
	"github.com/KentSpendy/BukCare/pkg/types"
)

// MediaClient uploads images to the external media host over its unsigned
// upload endpoint and returns the hosted URL.
type MediaClient struct {
	config *config.MediaConfig
	logger *logger.Logger
	client *http.Client
}

// NewMediaClient creates a new media client
func NewMediaClient(cfg *config.MediaConfig, log *logger.Logger) *MediaClient {
	return &MediaClient{
		config: cfg,
		logger: log,
		client: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSecs) * time.Second,
		},
	}
}

type uploadResponse struct {
	SecureURL string `json:"secure_url"`
	URL       string `json:"url"`
}

// Upload sends the image as multipart form data. The host replies with the
// hosted URL; nothing is stored locally.
func (c *MediaClient) Upload(ctx context.Context, filename string, content io.Reader) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if err := writer.WriteField("upload_preset", c.config.UploadPreset); err != nil {
		return "", types.NewExternalError(types.ErrCodeUploadFailed, "Failed to build upload request", err)
	}

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", types.NewExternalError(types.ErrCodeUploadFailed, "Failed to build upload request", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return "", types.NewExternalError(types.ErrCodeUploadFailed, "Failed to read photo content", err)
	}
	if err := writer.Close(); err != nil {
		return "", types.NewExternalError(types.ErrCodeUploadFailed, "Failed to build upload request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.UploadURL, &body)
	if err != nil {
		return "", types.NewExternalError(types.ErrCodeUploadFailed, "Failed to build upload request", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return "", types.NewExternalError(types.ErrCodeUploadFailed, "Media host unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", types.NewExternalError(types.ErrCodeUploadFailed,
			fmt.Sprintf("Media host returned status %d", resp.StatusCode), nil)
	}

	var result uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", types.NewExternalError(types.ErrCodeUploadFailed, "Failed to parse media host response", err)
	}

	url := result.SecureURL
	if url == "" {
		url = result.URL
	}
	if url == "" {
		return "", types.NewExternalError(types.ErrCodeUploadFailed, "Media host returned no URL", nil)
	}

	return url, nil
}
