package cmd

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"

	"tubewatch/client"
	"tubewatch/logging"
	"tubewatch/types"
)

func tailCommand() *cli.Command {
	return &cli.Command{
		Name:  "tail",
		Usage: "Follow job progress and new videos from a running server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "server",
				Usage: "Base URL of the tubewatch server",
				Value: "http://localhost:3000",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error)",
				Value: "info",
			},
			&cli.BoolFlag{
				Name:  "plain",
				Usage: "Print log lines instead of a progress bar",
			},
		},
		Action: runTail,
	}
}

func runTail(ctx context.Context, cmd *cli.Command) error {
	logger := logging.New(os.Stderr, logging.Options{Level: cmd.String("log-level")})

	var display client.ProgressDisplay
	if !cmd.Bool("plain") && isTerminal(os.Stdout) {
		display = newBarDisplay(os.Stdout, logger)
	} else {
		display = &logDisplay{logger: logging.Component(logger, "job")}
	}
	progress := client.NewProgressIndicator(display, client.DefaultFreshness)
	defer progress.Stop()

	router := client.NewRouter(client.RouterConfig{
		Registry: client.NewRegistry(nil),
		Progress: progress,
		List:     &videoLog{logger: logging.Component(logger, "videos")},
		Logger:   logging.Component(logger, "router"),
	})

	stream, err := client.NewStream(client.StreamConfig{
		ServerURL: cmd.String("server"),
		Logger:    logging.Component(logger, "stream"),
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = stream.Run(ctx, router)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// barDisplay renders download progress as a terminal progress bar
type barDisplay struct {
	bar    *progressbar.ProgressBar
	logger *log.Logger
}

func newBarDisplay(w io.Writer, logger *log.Logger) *barDisplay {
	bar := progressbar.NewOptions(100,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("waiting for jobs"),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetPredictTime(false),
	)
	return &barDisplay{bar: bar, logger: logger}
}

func (d *barDisplay) Line(line string) {
	d.bar.Describe(truncate(line, 60))
}

func (d *barDisplay) Percent(pct float64) {
	if err := d.bar.Set(int(pct)); err != nil {
		d.logger.Debug("progress bar", "err", err)
	}
}

func (d *barDisplay) Reset() {
	d.bar.Reset()
	d.bar.Describe("done")
}

func (d *barDisplay) Fresh(fresh bool) {
	if !fresh {
		d.bar.Describe("idle")
	}
}

// logDisplay prints every job line through the logger
type logDisplay struct {
	logger *log.Logger
}

func (d *logDisplay) Line(line string) {
	d.logger.Info(line)
}

func (d *logDisplay) Percent(pct float64) {
	d.logger.Debug("progress", "percent", pct)
}

func (d *logDisplay) Reset() {}

func (d *logDisplay) Fresh(fresh bool) {
	if !fresh {
		d.logger.Debug("no job output for a while")
	}
}

// videoLog reports newly discovered videos
type videoLog struct {
	logger *log.Logger
}

func (v *videoLog) Prepend(channel string, videos []types.Video) {
	for _, video := range videos {
		v.logger.Info("new video", "channel", channel, "id", video.ID, "title", video.Title)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
