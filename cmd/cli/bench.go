package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sevigo/resizer/internal/client"
)

var (
	benchRequests    int
	benchConcurrency int
	benchWidth       uint16
	benchHeight      uint16
	benchPlain       bool
)

var benchCmd = &cobra.Command{
	Use:   "bench [image]",
	Short: "Send many concurrent resize requests and report latencies",
	Long: `Send many concurrent resize requests and report latencies.

Because the service processes one image at a time, latency grows with
concurrency while throughput stays flat. The report shows both.

Examples:
  resizer-cli bench -n 50 -c 8 photo.jpg`,
	Args: cobra.ExactArgs(1),
	RunE: runBench,
}

func init() { //nolint:gochecknoinits // Cobra command registration
	benchCmd.Flags().IntVarP(&benchRequests, "requests", "n", 20, "Total number of requests")
	benchCmd.Flags().IntVarP(&benchConcurrency, "concurrency", "c", 4, "Requests in flight at once")
	benchCmd.Flags().Uint16VarP(&benchWidth, "width", "W", 180, "Target width")
	benchCmd.Flags().Uint16VarP(&benchHeight, "height", "H", 180, "Target height")
	benchCmd.Flags().BoolVar(&benchPlain, "plain", false, "Print the report as raw markdown")
	rootCmd.AddCommand(benchCmd)
}

// benchResult aggregates the outcome of a bench run.
type benchResult struct {
	latencies []time.Duration
	statuses  map[string]int
	elapsed   time.Duration
}

func runBench(_ *cobra.Command, args []string) error {
	if benchRequests < 1 || benchConcurrency < 1 {
		return errors.New("--requests and --concurrency must be at least 1")
	}

	payload, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}

	titleColor.Printf("Benchmarking %s with %d requests (%d concurrent)\n", serverAddress(), benchRequests, benchConcurrency)

	res := bench(context.Background(), newClient(), payload, benchRequests, benchConcurrency)
	report := res.markdown(benchRequests, benchConcurrency)

	if benchPlain {
		fmt.Print(report)
		return nil
	}
	rendered, err := glamour.Render(report, "auto")
	if err != nil {
		warnColor.Printf("could not render report: %v\n", err)
		fmt.Print(report)
		return nil
	}
	fmt.Print(rendered)
	return nil
}

func bench(ctx context.Context, c *client.Client, payload []byte, requests, concurrency int) benchResult {
	res := benchResult{statuses: map[string]int{}}
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	start := time.Now()
	for range requests {
		g.Go(func() error {
			began := time.Now()
			_, err := c.Resize(ctx, payload, &benchWidth, &benchHeight)
			took := time.Since(began)

			mu.Lock()
			defer mu.Unlock()
			res.statuses[outcome(err)]++
			if err == nil {
				res.latencies = append(res.latencies, took)
			}
			return nil
		})
	}
	_ = g.Wait()
	res.elapsed = time.Since(start)

	slices.Sort(res.latencies)
	return res
}

func outcome(err error) string {
	if err == nil {
		return "200"
	}
	var statusErr *client.StatusError
	if errors.As(err, &statusErr) {
		return fmt.Sprintf("%d", statusErr.Code)
	}
	return "transport error"
}

func (r benchResult) percentile(p float64) time.Duration {
	if len(r.latencies) == 0 {
		return 0
	}
	idx := int(p * float64(len(r.latencies)-1))
	return r.latencies[idx]
}

func (r benchResult) markdown(requests, concurrency int) string {
	var b strings.Builder
	b.WriteString("# Resize benchmark\n\n")
	fmt.Fprintf(&b, "%d requests, %d concurrent, finished in **%s**", requests, concurrency, r.elapsed.Round(time.Millisecond))
	if r.elapsed > 0 {
		fmt.Fprintf(&b, " (%.1f req/s)", float64(len(r.latencies))/r.elapsed.Seconds())
	}
	b.WriteString("\n\n## Latency\n\n| p50 | p90 | p99 | max |\n|---|---|---|---|\n")
	fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
		r.percentile(0.50).Round(time.Millisecond),
		r.percentile(0.90).Round(time.Millisecond),
		r.percentile(0.99).Round(time.Millisecond),
		r.percentile(1).Round(time.Millisecond),
	)

	b.WriteString("\n## Responses\n\n| status | count |\n|---|---|\n")
	keys := make([]string, 0, len(r.statuses))
	for k := range r.statuses {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "| %s | %d |\n", k, r.statuses[k])
	}
	return b.String()
}
