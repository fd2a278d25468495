package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"

	"tubewatch/types"
)

var (
	mergerLineRegexp      = regexp.MustCompile(`^\[Merger\] Merging formats into "?(.+?)"?$`)
	destinationLineRegexp = regexp.MustCompile(`^\[download\] Destination: (.+)$`)
	alreadyLineRegexp     = regexp.MustCompile(`^\[download\] (.+) has already been downloaded`)
)

// channelWindow bounds how far back a channel listing reaches
const channelWindow = 6 * 31 * 24 * time.Hour

// FetcherConfig configures the yt-dlp fetcher
type FetcherConfig struct {
	Dir          string            // output directory for media files
	Settings     *DownloadSettings // quality and transcode, read per download
	ChannelLimit int               // entries read per channel listing
	Media        MediaFiles
	Logger       *log.Logger
}

// YTDLPFetcher downloads videos and lists channels with yt-dlp, transcoding with ffmpeg
type YTDLPFetcher struct {
	cfg     FetcherConfig
	run     commandRunner
	capture func(ctx context.Context, name string, args []string) ([]byte, error)
	now     func() time.Time
}

// NewYTDLPFetcher creates a fetcher that shells out to yt-dlp and ffmpeg
func NewYTDLPFetcher(cfg FetcherConfig) *YTDLPFetcher {
	if cfg.ChannelLimit <= 0 {
		cfg.ChannelLimit = 30
	}
	return &YTDLPFetcher{
		cfg:     cfg,
		run:     streamCommand,
		capture: captureCommand,
		now:     time.Now,
	}
}

// probeInfo is the subset of `yt-dlp -j` output we keep
type probeInfo struct {
	UploaderID     string  `json:"uploader_id"`
	Channel        string  `json:"channel"`
	Title          string  `json:"title"`
	Description    string  `json:"description"`
	UploadDate     string  `json:"upload_date"`
	Timestamp      int64   `json:"timestamp"`
	ViewCount      int64   `json:"view_count"`
	DurationString string  `json:"duration_string"`
	Duration       float64 `json:"duration"`
}

// Probe reads a single video's metadata without downloading it
func (f *YTDLPFetcher) Probe(ctx context.Context, id string) (*types.Video, error) {
	out, err := f.capture(ctx, "yt-dlp", []string{"-j", "--", id})
	if err != nil {
		return nil, err
	}

	var info probeInfo
	if err := json.Unmarshal(firstJSONLine(out), &info); err != nil {
		return nil, fmt.Errorf("parse yt-dlp metadata: %w", err)
	}

	video := &types.Video{
		ID:          id,
		ChannelName: strings.TrimPrefix(info.UploaderID, "@"),
		Title:       info.Title,
		URL:         WatchURL(id),
		Thumbnail:   ThumbnailURL(id),
		Description: info.Description,
		ViewCount:   formatViews(info.ViewCount),
		Duration:    info.DurationString,
	}
	if video.ChannelName == "" {
		video.ChannelName = info.Channel
	}
	if video.Duration == "" && info.Duration > 0 {
		video.Duration = formatDuration(info.Duration)
	}
	if len(info.UploadDate) == 8 {
		video.PublishedTime = info.UploadDate[0:4] + "-" + info.UploadDate[4:6] + "-" + info.UploadDate[6:8]
	}
	if info.Timestamp > 0 {
		t := time.Unix(info.Timestamp, 0).UTC()
		video.PublishedAt = &t
	}
	return video, nil
}

// Fetch downloads id into the output directory, streaming tool output to onLine
func (f *YTDLPFetcher) Fetch(ctx context.Context, id string, onLine LineFunc) (FetchResult, error) {
	if err := os.MkdirAll(f.cfg.Dir, 0o755); err != nil {
		return FetchResult{}, fmt.Errorf("create output dir: %w", err)
	}

	opts := f.cfg.Settings.Get()
	args := []string{
		"-f", selectFormat(opts.Quality),
		"--newline",
		"-o", filepath.Join(f.cfg.Dir, "%(id)s.%(ext)s"),
		"--", id,
	}

	var location string
	err := f.run(ctx, "yt-dlp", args, func(line string) {
		if path := parseLocation(line); path != "" {
			// the merger line names the final file; earlier destinations are fragments
			if location == "" || strings.HasPrefix(line, "[Merger]") {
				location = path
			}
		}
		onLine(line)
	})
	if err != nil {
		return FetchResult{}, err
	}

	if location == "" || !fileExists(location) {
		found, err := f.cfg.Media.Find(id)
		if err != nil {
			return FetchResult{}, err
		}
		location = found
	}

	if opts.Transcode {
		location, err = f.transcode(ctx, location, onLine)
		if err != nil {
			return FetchResult{}, err
		}
	}

	return FetchResult{
		Location: location,
		Format:   strings.TrimPrefix(filepath.Ext(location), "."),
		Title:    f.cfg.Media.ReadTitle(location),
	}, nil
}

// transcode re-encodes src to an H.264/AAC mp4 next to it and returns the new path
func (f *YTDLPFetcher) transcode(ctx context.Context, src string, onLine LineFunc) (string, error) {
	base := strings.TrimSuffix(src, filepath.Ext(src))
	tmp := base + ".tmp.mp4"
	dst := base + ".mp4"

	args := []string{"-y", "-hide_banner", "-i", src, "-c:v", "libx264", "-preset", "veryfast", "-c:a", "aac", "-movflags", "+faststart", tmp}
	if err := f.run(ctx, "ffmpeg", args, onLine); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	if err := os.Rename(tmp, dst); err != nil {
		return "", fmt.Errorf("replace transcoded file: %w", err)
	}
	if dst != src {
		_ = os.Remove(src)
	}
	onLine("successfully transcoded video " + dst)
	return dst, nil
}

// playlistInfo is the subset of `yt-dlp --flat-playlist -J` output we keep
type playlistInfo struct {
	Channel    string          `json:"channel"`
	UploaderID string          `json:"uploader_id"`
	Entries    []playlistEntry `json:"entries"`
}

type playlistEntry struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Duration    float64 `json:"duration"`
	ViewCount   int64   `json:"view_count"`
	Timestamp   int64   `json:"timestamp"`
}

// ChannelVideos lists the most recent uploads of a channel handle or UC id
func (f *YTDLPFetcher) ChannelVideos(ctx context.Context, channel string) ([]types.Video, error) {
	args := []string{
		"--flat-playlist", "-J",
		"--playlist-end", fmt.Sprint(f.cfg.ChannelLimit),
		channelURL(channel),
	}
	out, err := f.capture(ctx, "yt-dlp", args)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(out)) == 0 {
		return nil, fmt.Errorf("yt-dlp returned empty output")
	}

	var info playlistInfo
	if err := json.Unmarshal(out, &info); err != nil {
		return nil, fmt.Errorf("parse channel listing: %w", err)
	}

	cutoff := f.now().Add(-channelWindow)
	videos := make([]types.Video, 0, len(info.Entries))
	for _, e := range info.Entries {
		if e.ID == "" {
			continue
		}
		video := types.Video{
			ID:          e.ID,
			ChannelName: channel,
			Title:       e.Title,
			URL:         WatchURL(e.ID),
			Thumbnail:   ThumbnailURL(e.ID),
			Description: e.Description,
			ViewCount:   formatViews(e.ViewCount),
		}
		if e.Duration > 0 {
			video.Duration = formatDuration(e.Duration)
		}
		if e.Timestamp > 0 {
			t := time.Unix(e.Timestamp, 0).UTC()
			if t.Before(cutoff) {
				continue
			}
			video.PublishedAt = &t
			video.PublishedTime = humanize.Time(t)
		}
		videos = append(videos, video)
	}
	return videos, nil
}

func selectFormat(quality string) string {
	q := strings.TrimSuffix(strings.TrimSpace(strings.ToLower(quality)), "p")
	if q == "" || q == "best" {
		return "bv*+ba/b"
	}
	return fmt.Sprintf("bv*[height<=%s]+ba/b[height<=%s]", q, q)
}

// parseLocation extracts the output path announced by a yt-dlp line
func parseLocation(line string) string {
	for _, re := range []*regexp.Regexp{mergerLineRegexp, destinationLineRegexp, alreadyLineRegexp} {
		if m := re.FindStringSubmatch(line); m != nil {
			return strings.Trim(m[1], `"`)
		}
	}
	return ""
}

func channelURL(channel string) string {
	channel = strings.TrimSpace(channel)
	if strings.HasPrefix(channel, "UC") {
		return "https://www.youtube.com/channel/" + channel + "/videos"
	}
	if !strings.HasPrefix(channel, "@") {
		channel = "@" + channel
	}
	return "https://www.youtube.com/" + channel + "/videos"
}

func formatViews(n int64) string {
	if n <= 0 {
		return ""
	}
	return humanize.Comma(n) + " views"
}

func formatDuration(seconds float64) string {
	d := time.Duration(seconds) * time.Second
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	s := int(d % time.Minute / time.Second)
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// firstJSONLine skips warnings yt-dlp may print before the JSON document
func firstJSONLine(out []byte) []byte {
	for _, line := range bytes.Split(out, []byte("\n")) {
		if bytes.HasPrefix(bytes.TrimSpace(line), []byte("{")) {
			return line
		}
	}
	return out
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
