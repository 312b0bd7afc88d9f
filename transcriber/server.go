package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// ServerClient speaks the model server's streaming protocol: the request
// body is one JSON metadata line followed by the raw audio bytes.
type ServerClient struct {
	baseURL string
	client  *http.Client
}

func NewServer(baseURL string, timeout time.Duration) *ServerClient {
	return &ServerClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (s *ServerClient) Name() string { return "server" }

type streamMetadata struct {
	Rate     int    `json:"rate"`
	Encoding string `json:"encoding,omitempty"`
}

func (s *ServerClient) Transcribe(ctx context.Context, req Request) (Result, error) {
	meta, err := json.Marshal(streamMetadata{Rate: req.SampleRate, Encoding: req.Encoding})
	if err != nil {
		return Result{}, err
	}

	var body bytes.Buffer
	body.Grow(len(meta) + 1 + len(req.Audio))
	body.Write(meta)
	body.WriteByte('\n')
	body.Write(req.Audio)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/transcribe_stream", &body)
	if err != nil {
		return Result{}, err
	}
	httpReq.Header.Set("Content-Type", "application/octet-stream")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return Result{}, classify(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Result{}, fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Result{}, fmt.Errorf("malformed server response: %w", err)
	}
	result.Text = strings.TrimSpace(result.Text)
	return result, nil
}

// classify splits transport failures into the two conditions the caller
// reports differently: a server that never answered in time, and one that
// could not be reached at all.
func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return errors.Join(ErrTimeout, err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return errors.Join(ErrTimeout, err)
	}
	return errors.Join(ErrUnavailable, err)
}
