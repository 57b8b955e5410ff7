// Benchmark tool for load-testing IDTrace scan throughput.
//
// Usage:
//   go run cmd/benchmark/main.go -csv /path/to/emails.csv -url http://localhost:8080
//
// This tool:
//   1. Reads a CSV of email addresses (optionally with a "leaked" label)
//   2. Sends each through GET /scan concurrently
//   3. Measures latency and throughput
//   4. When labels are present, compares the scan verdict against them
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// ScanTarget is a row from the input CSV.
type ScanTarget struct {
	Email    string
	IsLeaked bool
	Labeled  bool
}

// ScanResponse mirrors the fields the benchmark cares about.
type ScanResponse struct {
	Score   int    `json:"score"`
	Level   string `json:"level"`
	Details struct {
		Breaches  int `json:"breaches"`
		Exposures []struct {
			Source string `json:"source"`
		} `json:"exposures"`
	} `json:"details"`
}

// Metrics tracks benchmark results.
type Metrics struct {
	TruePositives  int64 // Leaked email flagged as breached
	FalsePositives int64 // Clean email flagged as breached
	TrueNegatives  int64 // Clean email came back clean
	FalseNegatives int64 // Leaked email came back clean

	TotalProcessed int64
	TotalLabeled   int64
	TotalErrors    int64

	mu        sync.Mutex
	latencies []time.Duration
}

func (m *Metrics) recordLatency(d time.Duration) {
	m.mu.Lock()
	m.latencies = append(m.latencies, d)
	m.mu.Unlock()
}

func main() {
	csvPath := flag.String("csv", "", "Path to CSV of emails (email[,leaked])")
	baseURL := flag.String("url", "http://localhost:8080", "IDTrace base URL")
	limit := flag.Int("limit", 1000, "Maximum emails to process (0 = all)")
	workers := flag.Int("workers", 10, "Number of concurrent workers")
	refresh := flag.Bool("refresh", false, "Bypass the profile cache on every scan")
	verbose := flag.Bool("verbose", false, "Print each scan result")
	flag.Parse()

	if *csvPath == "" {
		fmt.Println("Usage: benchmark -csv /path/to/emails.csv [-url http://localhost:8080]")
		fmt.Println("\nFlags:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	fmt.Println("╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║            IDTRACE BENCHMARK - Scan Throughput                ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")
	fmt.Printf("\nCSV File:     %s\n", *csvPath)
	fmt.Printf("IDTrace URL:  %s\n", *baseURL)
	fmt.Printf("Workers:      %d\n", *workers)
	fmt.Printf("Limit:        %d\n", *limit)
	fmt.Printf("Refresh:      %v\n", *refresh)
	fmt.Println()

	if err := checkHealth(*baseURL); err != nil {
		fmt.Printf("ERROR: IDTrace not reachable at %s: %v\n", *baseURL, err)
		fmt.Println("\nMake sure IDTrace is running:")
		fmt.Println("  go run cmd/idtrace/main.go")
		os.Exit(1)
	}
	fmt.Println("✓ IDTrace is healthy")

	fmt.Printf("\nReading targets from %s...\n", *csvPath)
	targets, err := readTargetsCSV(*csvPath, *limit)
	if err != nil {
		fmt.Printf("ERROR: Failed to read CSV: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✓ Loaded %d emails\n", len(targets))

	fmt.Printf("\nRunning benchmark with %d workers...\n", *workers)
	startTime := time.Now()
	metrics := runBenchmark(targets, *baseURL, *workers, *refresh, *verbose)
	duration := time.Since(startTime)

	printResults(metrics, duration)
}

func checkHealth(baseURL string) error {
	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

// readTargetsCSV accepts either a bare list of emails or email,leaked
// rows. A header row is skipped when its first column is "email".
func readTargetsCSV(path string, limit int) ([]ScanTarget, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	var targets []ScanTarget
	first := true

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue // Skip malformed rows
		}
		if len(record) == 0 || record[0] == "" {
			continue
		}

		if first {
			first = false
			if strings.EqualFold(strings.TrimSpace(record[0]), "email") {
				continue
			}
		}

		target := ScanTarget{Email: strings.TrimSpace(record[0])}
		if len(record) > 1 {
			label := strings.TrimSpace(record[1])
			if label != "" {
				target.Labeled = true
				target.IsLeaked = label == "1" || strings.EqualFold(label, "true")
			}
		}
		targets = append(targets, target)

		if limit > 0 && len(targets) >= limit {
			break
		}
	}

	return targets, nil
}

func runBenchmark(targets []ScanTarget, baseURL string, numWorkers int, refresh, verbose bool) *Metrics {
	metrics := &Metrics{}

	work := make(chan ScanTarget, 100)
	var wg sync.WaitGroup

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := &http.Client{Timeout: 30 * time.Second}

			for target := range work {
				start := time.Now()
				result, err := scanEmail(client, baseURL, target.Email, refresh)
				elapsed := time.Since(start)

				metrics.recordLatency(elapsed)
				atomic.AddInt64(&metrics.TotalProcessed, 1)

				if err != nil {
					atomic.AddInt64(&metrics.TotalErrors, 1)
					if verbose {
						fmt.Printf("ERROR: %s -> %v\n", target.Email, err)
					}
					continue
				}

				if target.Labeled {
					atomic.AddInt64(&metrics.TotalLabeled, 1)

					predicted := result.Details.Breaches > 0
					actual := target.IsLeaked

					if predicted && actual {
						atomic.AddInt64(&metrics.TruePositives, 1)
					} else if predicted && !actual {
						atomic.AddInt64(&metrics.FalsePositives, 1)
					} else if !predicted && !actual {
						atomic.AddInt64(&metrics.TrueNegatives, 1)
					} else {
						atomic.AddInt64(&metrics.FalseNegatives, 1)
					}
				}

				if verbose {
					fmt.Printf("%-35s | Score: %3d | Level: %-8s | Breaches: %2d | %6.0f ms\n",
						target.Email,
						result.Score,
						result.Level,
						result.Details.Breaches,
						float64(elapsed.Milliseconds()),
					)
				}
			}
		}()
	}

	for _, target := range targets {
		work <- target
	}
	close(work)

	wg.Wait()

	return metrics
}

func scanEmail(client *http.Client, baseURL, email string, refresh bool) (*ScanResponse, error) {
	q := url.Values{}
	q.Set("email", email)
	if refresh {
		q.Set("refresh", "true")
	}

	resp, err := client.Get(baseURL + "/scan?" + q.Encode())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var result ScanResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	return &result, nil
}

func printResults(m *Metrics, duration time.Duration) {
	fmt.Println("\n╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║                      BENCHMARK RESULTS                        ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")

	fmt.Printf("\n📊 DATASET STATISTICS\n")
	fmt.Printf("   Total Processed:  %d\n", m.TotalProcessed)
	fmt.Printf("   Labeled Rows:     %d\n", m.TotalLabeled)
	fmt.Printf("   Errors:           %d\n", m.TotalErrors)

	if m.TotalLabeled > 0 {
		fmt.Printf("\n📈 CONFUSION MATRIX (breaches > 0 vs. label)\n")
		fmt.Println("                          Predicted")
		fmt.Println("                    LEAKED      CLEAN")
		fmt.Println("              ┌──────────┬──────────┐")
		fmt.Printf("   Actual  L  │ %8d │ %8d │  (TP, FN)\n", m.TruePositives, m.FalseNegatives)
		fmt.Println("              ├──────────┼──────────┤")
		fmt.Printf("           C  │ %8d │ %8d │  (FP, TN)\n", m.FalsePositives, m.TrueNegatives)
		fmt.Println("              └──────────┴──────────┘")

		precision := float64(0)
		if m.TruePositives+m.FalsePositives > 0 {
			precision = float64(m.TruePositives) / float64(m.TruePositives+m.FalsePositives)
		}
		recall := float64(0)
		if m.TruePositives+m.FalseNegatives > 0 {
			recall = float64(m.TruePositives) / float64(m.TruePositives+m.FalseNegatives)
		}

		fmt.Printf("\n🎯 DETECTION METRICS\n")
		fmt.Printf("   Precision:  %.4f  (of leak verdicts, how many were real)\n", precision)
		fmt.Printf("   Recall:     %.4f  (of known leaks, how many were found)\n", recall)
	}

	fmt.Printf("\n⏱️  PERFORMANCE\n")
	fmt.Printf("   Total Duration:   %v\n", duration.Round(time.Millisecond))

	m.mu.Lock()
	latencies := append([]time.Duration(nil), m.latencies...)
	m.mu.Unlock()

	if len(latencies) > 0 {
		sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

		var total time.Duration
		for _, d := range latencies {
			total += d
		}

		pct := func(p float64) time.Duration {
			idx := int(p * float64(len(latencies)-1))
			return latencies[idx]
		}

		fmt.Printf("   Avg Latency:      %v\n", (total / time.Duration(len(latencies))).Round(time.Millisecond))
		fmt.Printf("   p50 Latency:      %v\n", pct(0.50).Round(time.Millisecond))
		fmt.Printf("   p95 Latency:      %v\n", pct(0.95).Round(time.Millisecond))
		fmt.Printf("   p99 Latency:      %v\n", pct(0.99).Round(time.Millisecond))
		fmt.Printf("   Throughput:       %.2f scans/sec\n", float64(m.TotalProcessed)/duration.Seconds())
	}

	fmt.Println()
}
