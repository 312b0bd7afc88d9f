package transcriber

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestTranscribeSendsMetadataLineThenAudio(t *testing.T) {
	audio := []byte{1, 2, 3, 4, 5, 6}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transcribe_stream" {
			t.Errorf("path = %q", r.URL.Path)
		}
		br := bufio.NewReader(r.Body)
		line, err := br.ReadBytes('\n')
		if err != nil {
			t.Fatalf("reading metadata line: %v", err)
		}
		var meta struct {
			Rate     int    `json:"rate"`
			Encoding string `json:"encoding"`
		}
		if err := json.Unmarshal(line, &meta); err != nil {
			t.Fatalf("metadata not JSON: %v", err)
		}
		if meta.Rate != 16000 || meta.Encoding != "pcm16" {
			t.Errorf("metadata = %+v", meta)
		}
		rest, _ := io.ReadAll(br)
		if len(rest) != len(audio) {
			t.Errorf("audio body = %d bytes, want %d", len(rest), len(audio))
		}
		json.NewEncoder(w).Encode(Result{Text: "  hello world \n"})
	}))
	defer srv.Close()

	c := NewServer(srv.URL, time.Second)
	res, err := c.Transcribe(context.Background(), Request{Audio: audio, SampleRate: 16000, Encoding: "pcm16"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Text != "hello world" {
		t.Fatalf("text = %q, want trimmed %q", res.Text, "hello world")
	}
}

func TestTranscribeConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening anymore

	c := NewServer(srv.URL, time.Second)
	_, err := c.Transcribe(context.Background(), Request{Audio: []byte{0}, SampleRate: 16000})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
	if errors.Is(err, ErrTimeout) {
		t.Fatal("connection refused must not classify as timeout")
	}
}

func TestTranscribeTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer func() { close(release); srv.Close() }()

	c := NewServer(srv.URL, 50*time.Millisecond)
	_, err := c.Transcribe(context.Background(), Request{Audio: []byte{0}, SampleRate: 16000})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
}

func TestTranscribeServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model exploded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewServer(srv.URL, time.Second)
	_, err := c.Transcribe(context.Background(), Request{Audio: []byte{0}, SampleRate: 16000})
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
	if errors.Is(err, ErrUnavailable) || errors.Is(err, ErrTimeout) {
		t.Fatalf("server-side failure misclassified: %v", err)
	}
}

func TestTranscribeMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "not json")
	}))
	defer srv.Close()

	c := NewServer(srv.URL, time.Second)
	if _, err := c.Transcribe(context.Background(), Request{Audio: []byte{0}, SampleRate: 16000}); err == nil {
		t.Fatal("expected error for malformed response")
	}
}
