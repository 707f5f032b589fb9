// Package ocr covers the ID-card onboarding flow: the client for the
// external text-extraction service, field parsing over the raw text, and
// the advisory fuzzy verification of user-declared identity fields.
package ocr

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"autoattend/apperr"
)

// Client talks to the external OCR sidecar.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		// Text extraction downloads models on first use and can be slow.
		http: &http.Client{Timeout: 60 * time.Second},
	}
}

type extractRequest struct {
	Image []byte `json:"image"`
}

type extractResponse struct {
	Text string `json:"text"`
}

// ExtractText returns all text recognized in the image as one string.
func (c *Client) ExtractText(image []byte) (string, error) {
	body, err := json.Marshal(extractRequest{Image: image})
	if err != nil {
		return "", err
	}

	res, err := c.http.Post(c.baseURL+"/extract", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", apperr.Wrap(apperr.Unavailable, "OCR service unreachable", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return "", apperr.New(apperr.Unavailable, fmt.Sprintf("OCR service failed (status %d): %s", res.StatusCode, msg))
	}

	var out extractResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.Text, nil
}
