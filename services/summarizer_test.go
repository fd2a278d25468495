package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSRT = `1
00:00:00,000 --> 00:00:02,000
hello there

2
00:00:02,000 --> 00:00:04,000
hello there
<c>general</c> kenobi

3
00:00:04,000 --> 00:00:06,000
you are a bold one
`

func TestSrtToText(t *testing.T) {
	assert.Equal(t, "hello there\ngeneral kenobi\nyou are a bold one", srtToText(sampleSRT))
	assert.Equal(t, "", srtToText(""))
}

func TestNormalizeSubtitleFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "abc123.en-US.srt"), []byte(sampleSRT), 0o644))

	require.NoError(t, normalizeSubtitleFiles(dir, "abc123"))
	assert.FileExists(t, filepath.Join(dir, "abc123.en.srt"))
}

func TestSummarizeWithExistingSubtitles(t *testing.T) {
	var got chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  A greeting.  "}}]}`))
	}))
	defer server.Close()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "abc123.en.srt"), []byte(sampleSRT), 0o644))

	s := NewLLMSummarizer(SummarizerConfig{
		Dir:      dir,
		Model:    "test-model",
		Host:     server.URL,
		Endpoint: "/v1/chat/completions",
		APIKey:   "secret",
	})
	s.run = func(ctx context.Context, name string, args []string, onLine LineFunc) error {
		t.Fatal("subtitles already on disk; yt-dlp must not run")
		return nil
	}

	var lines []string
	result, err := s.Summarize(context.Background(), "abc123", func(line string) { lines = append(lines, line) })
	require.NoError(t, err)

	assert.Equal(t, "A greeting.", result.Summary)
	assert.Equal(t, "hello there\ngeneral kenobi\nyou are a bold one", result.Transcript)
	assert.Equal(t, "test-model", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, result.Transcript, got.Messages[1].Content)
	assert.Len(t, lines, 2)
}

func TestSummarizeDownloadsSubtitles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer server.Close()

	dir := t.TempDir()
	s := NewLLMSummarizer(SummarizerConfig{Dir: dir, Host: server.URL, Endpoint: "/v1/chat/completions"})
	s.run = func(ctx context.Context, name string, args []string, onLine LineFunc) error {
		assert.Equal(t, "yt-dlp", name)
		assert.Contains(t, args, "--skip-download")
		onLine("[info] Writing video subtitles")
		return os.WriteFile(filepath.Join(dir, "abc123.en-orig.srt"), []byte(sampleSRT), 0o644)
	}

	result, err := s.Summarize(context.Background(), "abc123", func(string) {})
	require.NoError(t, err)
	assert.Equal(t, "ok", result.Summary)
}

func TestSummarizeNoSubtitles(t *testing.T) {
	s := NewLLMSummarizer(SummarizerConfig{Dir: t.TempDir()})
	s.run = func(ctx context.Context, name string, args []string, onLine LineFunc) error { return nil }

	_, err := s.Summarize(context.Background(), "abc123", func(string) {})
	assert.ErrorIs(t, err, ErrNoTranscript)
}

func TestSummarizeLLMError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"model not loaded"}}`))
	}))
	defer server.Close()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "abc123.en.srt"), []byte(sampleSRT), 0o644))
	s := NewLLMSummarizer(SummarizerConfig{Dir: dir, Host: server.URL, Endpoint: "v1/chat/completions"})

	_, err := s.Summarize(context.Background(), "abc123", func(string) {})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not loaded")
}
