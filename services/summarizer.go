package services

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// ErrNoTranscript is returned when a video has no usable subtitles
var ErrNoTranscript = errors.New("no transcript available")

const summaryPrompt = "You summarize video transcripts. Reply with a concise summary of the key points as short paragraphs or bullet points. Do not mention the transcript itself."

// SummarizerConfig configures the LLM summarizer
type SummarizerConfig struct {
	Dir         string // where subtitles are stored next to media files
	Model       string
	Host        string
	Endpoint    string
	APIKey      string
	Temperature float64
	Timeout     time.Duration
	Logger      *log.Logger
}

// LLMSummarizer downloads subtitles with yt-dlp and summarizes them with an
// OpenAI-compatible chat completions endpoint
type LLMSummarizer struct {
	cfg    SummarizerConfig
	client *http.Client
	run    commandRunner
}

// NewLLMSummarizer creates a summarizer
func NewLLMSummarizer(cfg SummarizerConfig) *LLMSummarizer {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &LLMSummarizer{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		run:    streamCommand,
	}
}

// Summarize returns the transcript of id and its summary
func (s *LLMSummarizer) Summarize(ctx context.Context, id string, onLine LineFunc) (Summary, error) {
	transcript, err := s.transcript(ctx, id, onLine)
	if err != nil {
		return Summary{}, err
	}

	onLine(fmt.Sprintf("summarizing transcript of %s with %s", id, s.cfg.Model))
	summary, err := s.complete(ctx, transcript)
	if err != nil {
		return Summary{}, err
	}
	onLine(fmt.Sprintf("summary of %s ready", id))
	return Summary{Summary: summary, Transcript: transcript}, nil
}

// transcript loads (downloading if needed) the English subtitles of id as plain text
func (s *LLMSummarizer) transcript(ctx context.Context, id string, onLine LineFunc) (string, error) {
	path := filepath.Join(s.cfg.Dir, id+".en.srt")
	if !fileExists(path) {
		if err := os.MkdirAll(s.cfg.Dir, 0o755); err != nil {
			return "", fmt.Errorf("create subtitles dir: %w", err)
		}
		args := []string{
			"--skip-download",
			"--write-subs", "--write-auto-subs",
			"--sub-langs", "en.*,en",
			"--convert-subs", "srt",
			"-o", filepath.Join(s.cfg.Dir, "%(id)s.%(ext)s"),
			"--", id,
		}
		if err := s.run(ctx, "yt-dlp", args, onLine); err != nil {
			return "", err
		}
		if err := normalizeSubtitleFiles(s.cfg.Dir, id); err != nil {
			return "", err
		}
	}

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNoTranscript
	}
	if err != nil {
		return "", fmt.Errorf("read subtitles: %w", err)
	}

	text := srtToText(string(raw))
	if text == "" {
		return "", ErrNoTranscript
	}
	return text, nil
}

// normalizeSubtitleFiles renames language-variant subtitles (en-US, en-orig) to <id>.en.srt
func normalizeSubtitleFiles(dir, id string) error {
	target := filepath.Join(dir, id+".en.srt")
	if fileExists(target) {
		return nil
	}
	matches, err := filepath.Glob(filepath.Join(dir, id+".*.srt"))
	if err != nil {
		return fmt.Errorf("search subtitles: %w", err)
	}
	if len(matches) == 0 {
		return nil
	}
	if err := os.Rename(matches[0], target); err != nil {
		return fmt.Errorf("rename subtitles: %w", err)
	}
	return nil
}

var (
	srtTimingRegexp = regexp.MustCompile(`^\d{2}:\d{2}:\d{2}[,.]\d{3} --> `)
	srtIndexRegexp  = regexp.MustCompile(`^\d+$`)
	markupRegexp    = regexp.MustCompile(`<[^>]+>`)
)

// srtToText strips cue numbers, timings and markup, dropping the repeated
// lines that auto-generated captions roll over between cues
func srtToText(srt string) string {
	var lines []string
	last := ""
	scanner := bufio.NewScanner(strings.NewReader(srt))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || srtIndexRegexp.MatchString(line) || srtTimingRegexp.MatchString(line) {
			continue
		}
		line = strings.TrimSpace(markupRegexp.ReplaceAllString(line, ""))
		if line == "" || line == last {
			continue
		}
		lines = append(lines, line)
		last = line
	}
	return strings.Join(lines, "\n")
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// complete sends the transcript to the chat completions endpoint
func (s *LLMSummarizer) complete(ctx context.Context, transcript string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       s.cfg.Model,
		Temperature: s.cfg.Temperature,
		Messages: []chatMessage{
			{Role: "system", Content: summaryPrompt},
			{Role: "user", Content: transcript},
		},
	})
	if err != nil {
		return "", fmt.Errorf("encode llm request: %w", err)
	}

	url := strings.TrimRight(s.cfg.Host, "/") + "/" + strings.TrimLeft(s.cfg.Endpoint, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build llm request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("read llm response: %w", err)
	}

	var out chatResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return "", fmt.Errorf("llm returned %s: %w", resp.Status, err)
	}
	if resp.StatusCode != http.StatusOK {
		if out.Error != nil && out.Error.Message != "" {
			return "", fmt.Errorf("llm returned %s: %s", resp.Status, out.Error.Message)
		}
		return "", fmt.Errorf("llm returned %s", resp.Status)
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("llm returned an empty summary")
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}
