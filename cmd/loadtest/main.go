package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

type Config struct {
	BaseURL     string
	Concurrency int
	Duration    time.Duration
	Requests    []Request
}

// Request is one query the workers cycle through. K < 0 marks a Boolean
// query.
type Request struct {
	Query string
	K     int
}

func (r Request) kind() string {
	if r.K < 0 {
		return "boolean"
	}
	return "proximity"
}

func (r Request) path(base string) string {
	q := url.Values{"q": {r.Query}}
	if r.K >= 0 {
		q.Set("k", fmt.Sprint(r.K))
	}
	return base + "/api/v1/search/" + r.kind() + "?" + q.Encode()
}

var defaultRequests = []Request{
	{"retrieval AND system", -1},
	{"information OR data", -1},
	{"retrieval NOT model", -1},
	{"index AND query OR document", -1},
	{"boolean AND proximity", -1},
	{"search", -1},
	{"data system", 2},
	{"information retrieval", 1},
	{"query evaluation", 3},
	{"inverted index", 1},
}

// sample is the outcome of one request. status is 0 when the request never
// got a response.
type sample struct {
	kind    string
	latency time.Duration
	status  int
	cached  bool
}

func (s sample) ok() bool { return s.status >= 200 && s.status < 300 }

type recorder struct {
	mu      sync.Mutex
	samples []sample
}

func (r *recorder) add(s sample) {
	r.mu.Lock()
	r.samples = append(r.samples, s)
	r.mu.Unlock()
}

// summary is the aggregate view printed at the end of a run.
type summary struct {
	total, ok, cached int
	statuses          map[int]int
	latencies         map[string][]time.Duration // sorted, responses only
}

func (s summary) failed() int { return s.total - s.ok }

func (r *recorder) summarize() summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	sum := summary{
		total:     len(r.samples),
		statuses:  make(map[int]int),
		latencies: make(map[string][]time.Duration),
	}
	for _, s := range r.samples {
		if s.ok() {
			sum.ok++
		}
		if s.cached {
			sum.cached++
		}
		if s.status == 0 {
			continue
		}
		sum.statuses[s.status]++
		sum.latencies[s.kind] = append(sum.latencies[s.kind], s.latency)
		sum.latencies["all"] = append(sum.latencies["all"], s.latency)
	}
	for _, l := range sum.latencies {
		slices.Sort(l)
	}
	return sum
}

func main() {
	app := &cli.App{
		Name:  "loadtest",
		Usage: "Drive the retrieval API with a fixed query mix and report latency",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Usage: "Base URL of the retrieval service", Value: "http://localhost:8080"},
			&cli.IntFlag{Name: "concurrency", Usage: "Number of concurrent workers", Value: 10},
			&cli.DurationFlag{Name: "duration", Usage: "Test duration", Value: 30 * time.Second},
		},
		Action: func(c *cli.Context) error {
			cfg := Config{
				BaseURL:     c.String("url"),
				Concurrency: c.Int("concurrency"),
				Duration:    c.Duration("duration"),
				Requests:    defaultRequests,
			}
			w := c.App.Writer
			fmt.Fprintf(w, "load test: %d workers against %s for %s, %d queries in rotation\n",
				cfg.Concurrency, cfg.BaseURL, cfg.Duration, len(cfg.Requests))

			rec := runLoadTest(c.Context, cfg, w)
			return printReport(w, rec.summarize(), cfg.Duration)
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runLoadTest keeps cfg.Concurrency requests in flight until cfg.Duration
// elapses or parent is cancelled. Requests cut off by the deadline are not
// recorded.
func runLoadTest(parent context.Context, cfg Config, w io.Writer) *recorder {
	ctx, cancel := context.WithTimeout(parent, cfg.Duration)
	defer cancel()

	client := &http.Client{
		Timeout:   10 * time.Second,
		Transport: &http.Transport{MaxIdleConnsPerHost: cfg.Concurrency},
	}
	rec := &recorder{}

	g, ctx := errgroup.WithContext(ctx)
	for worker := range cfg.Concurrency {
		g.Go(func() error {
			for i := worker; ; i++ {
				r := cfg.Requests[i%len(cfg.Requests)]
				s := send(ctx, client, cfg.BaseURL, r)
				if ctx.Err() != nil {
					return nil
				}
				rec.add(s)
			}
		})
	}

	fmt.Fprint(w, "running")
	progress := time.NewTicker(time.Second)
	defer progress.Stop()
	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()
	for {
		select {
		case <-progress.C:
			fmt.Fprint(w, ".")
		case <-done:
			fmt.Fprintln(w, " finished")
			return rec
		}
	}
}

func send(ctx context.Context, client *http.Client, base string, r Request) sample {
	s := sample{kind: r.kind()}
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.path(base), nil)
	if err != nil {
		return s
	}
	resp, err := client.Do(req)
	if err != nil {
		return s
	}
	defer resp.Body.Close()

	s.status = resp.StatusCode
	if s.ok() {
		var body struct {
			Cached bool `json:"cached"`
		}
		if json.NewDecoder(resp.Body).Decode(&body) == nil {
			s.cached = body.Cached
		}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	s.latency = time.Since(start)
	return s
}

var errNoRequests = errors.New("no requests completed, is the service running?")

func printReport(w io.Writer, sum summary, elapsed time.Duration) error {
	if sum.total == 0 {
		fmt.Fprintln(w, "no requests completed")
		return errNoRequests
	}

	fmt.Fprintf(w, "\nrequests %d (%.1f/s)  ok %d  failed %d (%.2f%%)  cached %d\n",
		sum.total, float64(sum.total)/elapsed.Seconds(),
		sum.ok, sum.failed(), 100*float64(sum.failed())/float64(sum.total), sum.cached)

	codes := make([]int, 0, len(sum.statuses))
	for code := range sum.statuses {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	fmt.Fprint(w, "status")
	for _, code := range codes {
		fmt.Fprintf(w, "  %d:%d", code, sum.statuses[code])
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\n%-10s %8s %10s %10s %10s %10s %10s\n", "latency", "n", "mean", "p50", "p95", "p99", "max")
	for _, kind := range []string{"boolean", "proximity", "all"} {
		l := sum.latencies[kind]
		if len(l) == 0 {
			continue
		}
		fmt.Fprintf(w, "%-10s %8d %10s %10s %10s %10s %10s\n", kind, len(l),
			round(mean(l)), round(percentile(l, 50)), round(percentile(l, 95)),
			round(percentile(l, 99)), round(l[len(l)-1]))
	}
	return nil
}

func mean(l []time.Duration) time.Duration {
	var total time.Duration
	for _, d := range l {
		total += d
	}
	return total / time.Duration(len(l))
}

func round(d time.Duration) time.Duration { return d.Round(time.Microsecond) }

// percentile uses the nearest-rank method on an ascending slice.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(math.Ceil(p / 100 * float64(len(sorted))))
	return sorted[min(max(rank-1, 0), len(sorted)-1)]
}
