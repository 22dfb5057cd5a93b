package media

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path"

	"github.com/go-resty/resty/v2"

	"github.com/bilgisen/firenews/internal/config"
)

const cloudinaryAPI = "https://api.cloudinary.com/v1_1"

// Cloudinary performs unsigned uploads with an upload preset.
type Cloudinary struct {
	client  *resty.Client
	baseURL string
	cloud   string
	preset  string
	folder  string
}

func NewCloudinary(cfg *config.Config) *Cloudinary {
	return &Cloudinary{
		client:  resty.New().SetTimeout(cfg.HTTPTimeout),
		baseURL: cloudinaryAPI,
		cloud:   cfg.CloudinaryCloudName,
		preset:  cfg.CloudinaryUploadPreset,
		folder:  cfg.CloudinaryFolder,
	}
}

type cloudinaryResponse struct {
	SecureURL string `json:"secure_url"`
	Error     struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Cloudinary) Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error) {
	form := map[string]string{"upload_preset": c.preset}
	folder := path.Dir(key)
	if c.folder != "" {
		folder = path.Join(c.folder, folder)
	}
	if folder != "." && folder != "" {
		form["folder"] = folder
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetFormData(form).
		SetFileReader("file", path.Base(key), body).
		Post(fmt.Sprintf("%s/%s/image/upload", c.baseURL, c.cloud))
	if err != nil {
		return "", fmt.Errorf("failed to upload to cloudinary: %w", err)
	}

	var out cloudinaryResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return "", fmt.Errorf("failed to parse cloudinary response (status %d): %w", resp.StatusCode(), err)
	}
	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("cloudinary upload failed with status %d: %s", resp.StatusCode(), out.Error.Message)
	}
	if out.SecureURL == "" {
		return "", fmt.Errorf("cloudinary response has no secure_url")
	}
	return out.SecureURL, nil
}
