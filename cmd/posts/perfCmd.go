package posts

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/buzzblog/postrpc/cmd/util"
	"github.com/buzzblog/postrpc/lib/post"
	"github.com/buzzblog/postrpc/rpc/client"
	"github.com/buzzblog/postrpc/rpc/common"
	"github.com/lni/dragonboat/v4/logger"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for post services",
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfRequests = 1000
	perfThreads  = 4
	perfPostID   = int32(1)
	perfSkip     = make([]string, 0)
)

// perfResult holds the latency statistics of one benchmark
type perfResult struct {
	name    string
	timer   gometrics.Timer
	errors  gometrics.Counter
	elapsed time.Duration
}

func init() {
	// add flags
	key := "requests"
	perfTestCmd.Flags().Int(key, 1000, util.WrapString("Number of calls per benchmark"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 4, util.WrapString("Number of concurrent clients (each with its own connection)"))
	key = "post-id"
	perfTestCmd.Flags().Int32(key, 0, util.WrapString("Post to retrieve (0 = create one first, requires --requester)"))
	key = "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. list,count)"))
	key = "trace"
	perfTestCmd.Flags().Bool(key, false, util.WrapString("Log the trace line of every call"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfRequests = viper.GetInt("requests")
	perfThreads = max(viper.GetInt("threads"), 1)
	perfPostID = viper.GetInt32("post-id")
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	// One line per call drowns the results
	if !viper.GetBool("trace") {
		logger.GetLogger(common.LoggerClient).SetLevel(logger.WARNING)
	}

	return nil
}

func runPerf(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Performance testing tool for post services")

	// Print configuration
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Configuration:")
	fmt.Fprintln(out, clientConfig.String())
	fmt.Fprintf(out, "Requests: %d, Threads: %d\n", perfRequests, perfThreads)
	fmt.Fprintln(out)

	// Prepare a post to read
	if perfPostID == 0 {
		err := withClient(func(c *client.PostClient) error {
			p, err := c.CreatePost(requestMetadata(), "perf test post")
			perfPostID = p.ID
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to create the test post: %w", err)
		}
	}

	fmt.Fprintln(out, "starting tests...")

	benchmarks := []struct {
		name string
		call func(c *client.PostClient, meta post.RequestMetadata) error
	}{
		{"get", func(c *client.PostClient, meta post.RequestMetadata) error {
			_, err := c.RetrieveStandardPost(meta, perfPostID)
			return err
		}},
		{"expanded", func(c *client.PostClient, meta post.RequestMetadata) error {
			_, err := c.RetrieveExpandedPost(meta, perfPostID)
			return err
		}},
		{"list", func(c *client.PostClient, meta post.RequestMetadata) error {
			_, err := c.ListPosts(meta, post.PostQuery{}, 10, 0)
			return err
		}},
		{"count", func(c *client.PostClient, meta post.RequestMetadata) error {
			_, err := c.CountPostsByAuthor(meta, 1)
			return err
		}},
	}

	results := make([]*perfResult, 0, len(benchmarks))
	for _, b := range benchmarks {
		if shouldSkip(b.name) {
			fmt.Fprintf(out, "%-12sskipped\n", b.name)
			continue
		}
		result, err := runBenchmark(b.name, b.call)
		if err != nil {
			return err
		}
		results = append(results, result)
		printResult(out, result)
	}

	// Write results to csv is specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Fprintf(out, "\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results); err != nil {
			return fmt.Errorf("failed to export results to CSV: %w", err)
		}
		fmt.Fprintln(out, "Export complete")
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// runBenchmark spreads perfRequests calls over perfThreads clients
func runBenchmark(name string, call func(c *client.PostClient, meta post.RequestMetadata) error) (*perfResult, error) {
	result := &perfResult{
		name:   name,
		timer:  gometrics.NewTimer(),
		errors: gometrics.NewCounter(),
	}
	defer result.timer.Stop()

	var wg sync.WaitGroup
	errCh := make(chan error, perfThreads)
	start := time.Now()

	for i := 0; i < perfThreads; i++ {
		n := perfRequests / perfThreads
		if i < perfRequests%perfThreads {
			n++
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			errCh <- withClient(func(c *client.PostClient) error {
				for j := 0; j < n; j++ {
					callStart := time.Now()
					err := call(c, requestMetadata())
					result.timer.UpdateSince(callStart)
					if err != nil {
						result.errors.Inc(1)
						// A broken connection ends this client
						if !c.IsOpen() {
							return err
						}
					}
				}
				return nil
			})
		}()
	}

	wg.Wait()
	close(errCh)
	result.elapsed = time.Since(start)

	for err := range errCh {
		if err != nil {
			return nil, fmt.Errorf("(%s) - %w", name, err)
		}
	}
	return result, nil
}

func shouldSkip(test string) bool {
	for _, skip := range perfSkip {
		if strings.TrimSpace(skip) == test {
			return true
		}
	}
	return false
}

// printResult prints the result of a benchmark in a formatted way
func printResult(w io.Writer, r *perfResult) {
	snap := r.timer.Snapshot()
	ps := snap.Percentiles([]float64{0.5, 0.95, 0.99})
	opsPerSec := float64(snap.Count()) / max(r.elapsed.Seconds(), 1e-9)

	fmt.Fprintf(w, "%-12scalls=%d errors=%d mean=%s p50=%s p95=%s p99=%s max=%s\t%.0f ops/sec\n",
		r.name, snap.Count(), r.errors.Count(),
		time.Duration(snap.Mean()), time.Duration(ps[0]), time.Duration(ps[1]), time.Duration(ps[2]),
		time.Duration(snap.Max()), opsPerSec)
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results []*perfResult) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	header := []string{
		"Test", "Calls", "Errors", "MeanNs", "P50Ns", "P95Ns", "P99Ns", "MaxNs",
		"Endpoint", "TimeoutSec", "Serializer", "Transport", "Threads",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	// Write test results
	for _, r := range results {
		snap := r.timer.Snapshot()
		ps := snap.Percentiles([]float64{0.5, 0.95, 0.99})

		row := []string{
			r.name,
			strconv.FormatInt(snap.Count(), 10),
			strconv.FormatInt(r.errors.Count(), 10),
			fmt.Sprintf("%.0f", snap.Mean()),
			fmt.Sprintf("%.0f", ps[0]),
			fmt.Sprintf("%.0f", ps[1]),
			fmt.Sprintf("%.0f", ps[2]),
			strconv.FormatInt(snap.Max(), 10),
			clientConfig.Endpoint.Address(),
			strconv.Itoa(clientConfig.TimeoutSecond),
			viper.GetString("serializer"),
			viper.GetString("transport"),
			strconv.Itoa(perfThreads),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %w", r.name, err)
		}
	}

	return nil
}
