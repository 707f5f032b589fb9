package recognition

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"autoattend/apperr"
)

// BoundingBox locates one detected face inside an image, in pixels.
type BoundingBox struct {
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
	Left   int `json:"left"`
}

// FaceClient talks to the external face sidecar that does the actual
// detection and embedding extraction. Those calls are CPU-bound and
// uninterruptible on the sidecar; a caller that gives up simply abandons
// the response.
type FaceClient struct {
	baseURL string
	http    *http.Client
}

func NewFaceClient(baseURL string) *FaceClient {
	return &FaceClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type detectRequest struct {
	Image []byte `json:"image"` // base64 over the wire
}

type detectResponse struct {
	Faces []BoundingBox `json:"faces"`
}

type embedRequest struct {
	Image []byte      `json:"image"`
	Box   BoundingBox `json:"box"`
}

type embedResponse struct {
	Embedding []float64 `json:"embedding"`
}

// DetectFaces returns the bounding boxes of every face in the image. Zero
// faces is a valid result; whether that is an error is up to the caller.
func (c *FaceClient) DetectFaces(image []byte) ([]BoundingBox, error) {
	var resp detectResponse
	if err := c.post("/detect", detectRequest{Image: image}, &resp); err != nil {
		return nil, err
	}
	return resp.Faces, nil
}

// EmbedFace extracts the embedding vector for one detected face.
func (c *FaceClient) EmbedFace(image []byte, box BoundingBox) ([]float64, error) {
	var resp embedResponse
	if err := c.post("/embed", embedRequest{Image: image, Box: box}, &resp); err != nil {
		return nil, err
	}
	return resp.Embedding, nil
}

// GrabFrame captures a single frame from a camera feed via the sidecar.
func (c *FaceClient) GrabFrame(sourceURL string) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+"/frame", nil)
	if err != nil {
		return nil, err
	}
	q := req.URL.Query()
	q.Set("src", sourceURL)
	req.URL.RawQuery = q.Encode()

	res, err := c.http.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.Unavailable, "face service unreachable", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, apperr.New(apperr.Input, fmt.Sprintf("face service could not read feed (status %d)", res.StatusCode))
	}
	return io.ReadAll(res.Body)
}

func (c *FaceClient) post(path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	res, err := c.http.Post(c.baseURL+path, "application/json", bytes.NewReader(body))
	if err != nil {
		return apperr.Wrap(apperr.Unavailable, "face service unreachable", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return apperr.New(apperr.Unavailable, fmt.Sprintf("face service %s failed (status %d): %s", path, res.StatusCode, msg))
	}
	return json.NewDecoder(res.Body).Decode(out)
}
