package services

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tubewatch/logging"
)

func TestSplitByNewlineOrCR(t *testing.T) {
	scanner := bufio.NewScanner(strings.NewReader("[download]  1.0%\r[download]  2.0%\r\n[Merger] done\nlast"))
	scanner.Split(splitByNewlineOrCR)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	assert.Equal(t, []string{"[download]  1.0%", "[download]  2.0%", "[Merger] done", "last"}, lines)
}

func TestParseLocation(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{`[Merger] Merging formats into "data/videos/abc123.webm"`, "data/videos/abc123.webm"},
		{`[download] Destination: data/videos/abc123.f137.mp4`, "data/videos/abc123.f137.mp4"},
		{`[download] data/videos/abc123.mp4 has already been downloaded`, "data/videos/abc123.mp4"},
		{`[download]  42.0% of 10.00MiB`, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLocation(tt.line), tt.line)
	}
}

func TestSelectFormat(t *testing.T) {
	assert.Equal(t, "bv*+ba/b", selectFormat(""))
	assert.Equal(t, "bv*+ba/b", selectFormat("best"))
	assert.Equal(t, "bv*[height<=720]+ba/b[height<=720]", selectFormat("720p"))
}

func TestFetchUsesMergerLocation(t *testing.T) {
	dir := t.TempDir()
	final := filepath.Join(dir, "abc123.webm")
	require.NoError(t, os.WriteFile(final, []byte("not really webm"), 0o644))

	f := NewYTDLPFetcher(FetcherConfig{Dir: dir, Media: NewMediaFiles(dir, logging.Discard())})
	var gotArgs []string
	f.run = func(ctx context.Context, name string, args []string, onLine LineFunc) error {
		gotArgs = args
		onLine("[download] Destination: " + filepath.Join(dir, "abc123.f248.webm"))
		onLine("[download] 100% of 3.00MiB")
		onLine(`[Merger] Merging formats into "` + final + `"`)
		return nil
	}

	var lines []string
	result, err := f.Fetch(context.Background(), "abc123", func(line string) { lines = append(lines, line) })
	require.NoError(t, err)

	assert.Equal(t, final, result.Location)
	assert.Equal(t, "webm", result.Format)
	assert.Len(t, lines, 3)
	assert.Equal(t, []string{"--", "abc123"}, gotArgs[len(gotArgs)-2:])
}

func TestFetchFallsBackToDirectoryScan(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "abc123.en.srt"), []byte("1"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "abc123.mp4"), []byte("x"), 0o644))

	f := NewYTDLPFetcher(FetcherConfig{Dir: dir, Media: NewMediaFiles(dir, logging.Discard())})
	f.run = func(ctx context.Context, name string, args []string, onLine LineFunc) error {
		return nil
	}

	result, err := f.Fetch(context.Background(), "abc123", func(string) {})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "abc123.mp4"), result.Location)
	assert.Equal(t, "mp4", result.Format)
}

func TestProbe(t *testing.T) {
	f := NewYTDLPFetcher(FetcherConfig{Media: NewMediaFiles(t.TempDir(), logging.Discard())})
	f.capture = func(ctx context.Context, name string, args []string) ([]byte, error) {
		return []byte("WARNING: something\n" +
			`{"uploader_id":"@somechannel","title":"A video","upload_date":"20240301","timestamp":1709294400,"view_count":1234567,"duration":3725}` + "\n"), nil
	}

	video, err := f.Probe(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, "somechannel", video.ChannelName)
	assert.Equal(t, "A video", video.Title)
	assert.Equal(t, "2024-03-01", video.PublishedTime)
	assert.Equal(t, "1,234,567 views", video.ViewCount)
	assert.Equal(t, "1:02:05", video.Duration)
	assert.Equal(t, "https://www.youtube.com/watch?v=abc123", video.URL)
	require.NotNil(t, video.PublishedAt)
}

func TestChannelVideos(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	f := NewYTDLPFetcher(FetcherConfig{Media: NewMediaFiles(t.TempDir(), logging.Discard())})
	f.now = func() time.Time { return now }

	var gotArgs []string
	f.capture = func(ctx context.Context, name string, args []string) ([]byte, error) {
		gotArgs = args
		recent := now.Add(-48 * time.Hour).Unix()
		old := now.AddDate(-1, 0, 0).Unix()
		return []byte(`{"channel":"Some Channel","entries":[
			{"id":"new1","title":"Fresh","duration":95,"view_count":10,"timestamp":` + itoa(recent) + `},
			{"id":"old1","title":"Stale","timestamp":` + itoa(old) + `},
			{"id":"nots","title":"No timestamp"},
			{"title":"no id"}
		]}`), nil
	}

	videos, err := f.ChannelVideos(context.Background(), "somechannel")
	require.NoError(t, err)
	assert.Equal(t, "https://www.youtube.com/@somechannel/videos", gotArgs[len(gotArgs)-1])

	require.Len(t, videos, 2)
	assert.Equal(t, "new1", videos[0].ID)
	assert.Equal(t, "1:35", videos[0].Duration)
	assert.Equal(t, "somechannel", videos[0].ChannelName)
	assert.Equal(t, "nots", videos[1].ID)
}

func TestChannelURL(t *testing.T) {
	assert.Equal(t, "https://www.youtube.com/channel/UCabc/videos", channelURL("UCabc"))
	assert.Equal(t, "https://www.youtube.com/@handle/videos", channelURL("@handle"))
	assert.Equal(t, "https://www.youtube.com/@handle/videos", channelURL("handle"))
}

func TestMediaFilesValidatePath(t *testing.T) {
	dir := t.TempDir()
	media := NewMediaFiles(dir, logging.Discard())

	assert.NoError(t, media.ValidatePath(filepath.Join(dir, "abc123.mp4")))
	assert.Error(t, media.ValidatePath(filepath.Join(dir, "..", "etc", "passwd")))
	assert.Error(t, media.ValidatePath(""))
	assert.Equal(t, "video/webm", media.ContentType("x.WEBM"))
	assert.Equal(t, "application/octet-stream", media.ContentType("x.txt"))
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}

func TestFetchTranscodesWhenEnabled(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "abc123.webm")
	require.NoError(t, os.WriteFile(src, []byte("webm"), 0o644))

	settings, err := NewDownloadSettings("", DownloadOptions{Quality: "720", Transcode: true})
	require.NoError(t, err)
	f := NewYTDLPFetcher(FetcherConfig{Dir: dir, Settings: settings, Media: NewMediaFiles(dir, logging.Discard())})

	var tools []string
	f.run = func(ctx context.Context, name string, args []string, onLine LineFunc) error {
		tools = append(tools, name)
		if name == "ffmpeg" {
			return os.WriteFile(args[len(args)-1], []byte("mp4"), 0o644)
		}
		assert.Equal(t, "bv*[height<=720]+ba/b[height<=720]", args[1])
		onLine(`[Merger] Merging formats into "` + src + `"`)
		return nil
	}

	var lines []string
	result, err := f.Fetch(context.Background(), "abc123", func(line string) { lines = append(lines, line) })
	require.NoError(t, err)

	assert.Equal(t, []string{"yt-dlp", "ffmpeg"}, tools)
	assert.Equal(t, filepath.Join(dir, "abc123.mp4"), result.Location)
	assert.Equal(t, "mp4", result.Format)
	assert.NoFileExists(t, src)
	assert.Equal(t, "successfully transcoded video "+result.Location, lines[len(lines)-1])
}

func TestMediaFilesRemove(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"abc123.mp4", "abc123.en.srt", "other.mp4"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	media := NewMediaFiles(dir, logging.Discard())

	removed, err := media.Remove("abc123")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"abc123.mp4", "abc123.en.srt"}, removed)
	assert.FileExists(t, filepath.Join(dir, "other.mp4"))

	_, err = media.Find("abc123")
	assert.Error(t, err)
}
