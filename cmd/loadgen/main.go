// Command loadgen floods a running ranking service with synthetic PnL
// updates and then reads the leaderboard back, as a smoke and load tool.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Default configuration constants.
const (
	defaultNumUpdates  = 10000
	defaultNumWallets  = 1000
	defaultBatchSize   = 100
	defaultTopN        = 20
	defaultWorkerMult  = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 30 * time.Second
	defaultRunTimeout  = 10 * time.Minute
	maxAbsPnlUSD       = 100_000.0
)

type update struct {
	UpdateID string  `json:"update_id"`
	Wallet   string  `json:"wallet"`
	PnlUSD   float64 `json:"pnl_usd"`
}

type entry struct {
	Rank      int     `json:"rank"`
	Wallet    string  `json:"wallet"`
	PnlUSD    float64 `json:"pnl_usd"`
	Timeframe string  `json:"timeframe"`
}

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		numUpdates = flag.Int("updates", defaultNumUpdates, "Number of updates to generate and submit")
		numWallets = flag.Int("wallets", defaultNumWallets, "Number of distinct wallets to spread updates over")
		batchSize  = flag.Int("batch", defaultBatchSize, "Updates per POST /updates request")
		topN       = flag.Int("top", defaultTopN, "Number of top entries to fetch afterwards")
		timeframe  = flag.String("timeframe", "1d", "Timeframe to query: 1h, 1d, 7d, 30d")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkerMult, "Number of concurrent submitters")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	client := &http.Client{Timeout: *timeout}

	wallets := make([]string, *numWallets)
	for i := range wallets {
		wallets[i] = fmt.Sprintf("0x%032x", i+1)
	}

	batches := make(chan []update, *workers)
	go func() {
		defer close(batches)
		batch := make([]update, 0, *batchSize)
		for i := 0; i < *numUpdates; i++ {
			batch = append(batch, update{
				UpdateID: uuid.NewString(),
				Wallet:   wallets[rand.Intn(len(wallets))],
				PnlUSD:   (rand.Float64()*2 - 1) * maxAbsPnlUSD,
			})
			if len(batch) == *batchSize {
				batches <- batch
				batch = make([]update, 0, *batchSize)
			}
		}
		if len(batch) > 0 {
			batches <- batch
		}
	}()

	var submitted, failed atomic.Int64
	start := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < *workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for batch := range batches {
				if err := postBatch(ctx, client, *baseURL, batch); err != nil {
					failed.Add(int64(len(batch)))
					continue
				}
				submitted.Add(int64(len(batch)))
			}
		}()
	}
	wg.Wait()

	elapsed := time.Since(start)
	fmt.Printf("submitted %d updates (%d failed) in %s (%.0f/s)\n",
		submitted.Load(), failed.Load(), elapsed.Round(time.Millisecond),
		float64(submitted.Load())/elapsed.Seconds())

	entries, err := fetchTop(ctx, client, *baseURL, *timeframe, *topN)
	if err != nil {
		os.Stderr.WriteString("failed to fetch leaderboard: " + err.Error() + "\n")
		return
	}
	fmt.Printf("top %d wallets (%s):\n", len(entries), *timeframe)
	for _, e := range entries {
		fmt.Printf("%4d  %-36s %14.2f\n", e.Rank, e.Wallet, e.PnlUSD)
	}
}

func postBatch(ctx context.Context, client *http.Client, baseURL string, batch []update) error {
	body, err := json.Marshal(batch)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/updates", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

func fetchTop(ctx context.Context, client *http.Client, baseURL, timeframe string, n int) ([]entry, error) {
	url := fmt.Sprintf("%s/leaderboard?timeframe=%s&limit=%d", baseURL, timeframe, n)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	var entries []entry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, err
	}
	return entries, nil
}
