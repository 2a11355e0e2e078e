package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/bilgisen/draftdesk/internal/config"
	"github.com/bilgisen/draftdesk/internal/logger"
	"github.com/bilgisen/draftdesk/internal/models"
	"github.com/bilgisen/draftdesk/internal/upstream"
	"github.com/mattn/go-runewidth"
)

const errorWidth = 60

type report struct {
	Connection models.HealthStatus    `json:"connection"`
	Endpoints  []models.EndpointCheck `json:"endpoints"`
	Drafts     int                    `json:"drafts"`
	Fallback   bool                   `json:"fallback"`
	Advisory   string                 `json:"advisory,omitempty"`
}

func main() {
	asJSON := flag.Bool("json", false, "print the report as JSON")
	fetch := flag.Bool("fetch", true, "also list drafts and report the count")
	verbose := flag.Bool("v", false, "log pipeline requests to stderr")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	level := logger.Disabled
	if *verbose {
		level = logger.DebugLevel
	}
	if err := logger.Init(logger.Config{Level: level, Output: "stderr", Pretty: true}); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	client := upstream.NewClient(cfg.Upstream(), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 4*cfg.UpstreamTimeout)
	defer cancel()

	r := report{
		Connection: client.CheckHealth(ctx),
		Endpoints:  client.ProbeEndpoints(ctx),
	}
	if *fetch {
		res := client.FetchDrafts(ctx)
		r.Drafts = len(res.Drafts)
		r.Fallback = res.Fallback
		r.Advisory = res.Advisory
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(r); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
	} else {
		printReport(os.Stdout, r, *fetch)
	}

	if r.Connection != models.HealthConnected {
		os.Exit(1)
	}
}

func printReport(w io.Writer, r report, fetched bool) {
	fmt.Fprintf(w, "connection: %s\n\n", r.Connection)

	cols := []int{len("SERVICE"), len("STATUS"), len("CODE")}
	for _, e := range r.Endpoints {
		cols[0] = max(cols[0], runewidth.StringWidth(e.Service))
		cols[1] = max(cols[1], runewidth.StringWidth(e.Status))
	}

	row := func(service, status, code, detail string) {
		fmt.Fprintf(w, "%s  %s  %s  %s\n",
			runewidth.FillRight(service, cols[0]),
			runewidth.FillRight(status, cols[1]),
			runewidth.FillRight(code, cols[2]),
			runewidth.Truncate(detail, errorWidth, "..."))
	}

	row("SERVICE", "STATUS", "CODE", "ERROR")
	for _, e := range r.Endpoints {
		code := "-"
		if e.StatusCode != 0 {
			code = strconv.Itoa(e.StatusCode)
		}
		row(e.Service, e.Status, code, e.Error)
	}

	if fetched {
		fmt.Fprintf(w, "\ndrafts: %d", r.Drafts)
		if r.Fallback {
			fmt.Fprintf(w, " (samples: %s)", r.Advisory)
		}
		fmt.Fprintln(w)
	}
}
