package uploader

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

// Cloudinary uploads images through Cloudinary's unsigned upload endpoint
// and returns the hosted URL. Only the returned secure URL is stored; the
// image bytes never touch the tree store.
type Cloudinary struct {
	CloudName    string
	UploadPreset string
	httpc        *http.Client
}

// NewCloudinary builds an uploader for one cloud and preset.
func NewCloudinary(cloudName, uploadPreset string) *Cloudinary {
	return &Cloudinary{
		CloudName:    cloudName,
		UploadPreset: uploadPreset,
		httpc:        &http.Client{},
	}
}

// Enabled reports whether the uploader is configured.
func (u *Cloudinary) Enabled() bool {
	return u.CloudName != "" && u.UploadPreset != ""
}

// Upload sends one image and returns its secure URL.
func (u *Cloudinary) Upload(ctx context.Context, filename string, file io.Reader) (string, error) {
	if !u.Enabled() {
		return "", fmt.Errorf("cloudinary uploader not configured")
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile("file", filename)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, file); err != nil {
			pw.CloseWithError(err)
			return
		}
		if err := mw.WriteField("upload_preset", u.UploadPreset); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	endpoint := "https://api.cloudinary.com/v1_1/" + u.CloudName + "/image/upload"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, pr)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := u.httpc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("cloudinary upload failed: %s: %s", resp.Status, body)
	}

	var out struct {
		SecureURL string `json:"secure_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.SecureURL == "" {
		return "", fmt.Errorf("cloudinary upload returned no secure_url")
	}
	return out.SecureURL, nil
}
