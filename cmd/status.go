package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/urfave/cli/v3"

	"tubewatch/types"
)

// serverStatus mirrors the /api/status response
type serverStatus struct {
	Status      string `json:"status"`
	Version     string `json:"version"`
	Connections int    `json:"connections"`
	Downloading int    `json:"downloading"`
	Summarizing int    `json:"summarizing"`
}

func statusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show connected clients and running jobs of a server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "server",
				Usage: "Base URL of the tubewatch server",
				Value: "http://localhost:3000",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return printStatus(ctx, os.Stdout, &http.Client{Timeout: 10 * time.Second}, cmd.String("server"))
		},
	}
}

func printStatus(ctx context.Context, w io.Writer, hc *http.Client, server string) error {
	base := strings.TrimRight(server, "/")

	var status serverStatus
	if err := getJSON(ctx, hc, base+"/api/status", &status); err != nil {
		return err
	}
	var state types.JobState
	if err := getJSON(ctx, hc, base+"/api/state", &state); err != nil {
		return err
	}

	fmt.Fprintf(w, "tubewatch %s: %d connected, %d downloading, %d summarizing\n",
		status.Version, status.Connections, status.Downloading, status.Summarizing)
	if state.Count() == 0 {
		fmt.Fprintln(w, "no running jobs")
		return nil
	}
	fmt.Fprintln(w, renderJobs(state))
	return nil
}

func getJSON(ctx context.Context, hc *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("request %s: unexpected status %s", url, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}

// renderJobs lays running jobs out as a table, one row per job
func renderJobs(state types.JobState) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Kind", "Video", "Lines", "Last line"})

	appendRows := func(kind types.JobKind, jobs map[string]types.JobLog) {
		ids := make([]string, 0, len(jobs))
		for id := range jobs {
			ids = append(ids, id)
		}
		slices.Sort(ids)
		for _, id := range ids {
			lines := jobs[id].Lines
			last := ""
			if len(lines) > 0 {
				last = truncate(lines[len(lines)-1], 60)
			}
			tw.AppendRow(table.Row{string(kind), id, strconv.Itoa(len(lines)), last})
		}
	}
	appendRows(types.JobKindDownload, state.Downloading)
	appendRows(types.JobKindSummarize, state.Summarizing)

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}
