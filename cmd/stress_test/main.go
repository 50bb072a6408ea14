package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kelseyhightower/envconfig"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/rl1809/stock-lookup/internal/adapter/handler"
)

type settings struct {
	BaseURL     string        `envconfig:"BASE_URL" default:"http://localhost:8080"`
	GRPCAddr    string        `envconfig:"GRPC_ADDR"`
	SKUs        []string      `envconfig:"SKUS" default:"SKU-1,SKU-2,SKU-3"`
	Requests    int           `envconfig:"REQUESTS" default:"1000"`
	Concurrency int           `envconfig:"CONCURRENCY" default:"50"`
	BatchEvery  int           `envconfig:"BATCH_EVERY" default:"10"`
	Timeout     time.Duration `envconfig:"TIMEOUT" default:"5s"`
}

type result struct {
	status  int
	latency time.Duration
	err     error
}

type target interface {
	single(ctx context.Context, sku string) (int, error)
	batch(ctx context.Context, skus []string) (int, error)
}

func main() {
	var s settings
	if err := envconfig.Process("STRESS", &s); err != nil {
		log.Fatalf("failed to read settings: %v", err)
	}

	var t target = &httpTarget{base: s.BaseURL, client: &http.Client{Timeout: s.Timeout}}
	if s.GRPCAddr != "" {
		conn, err := grpc.NewClient(s.GRPCAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			log.Fatalf("failed to dial grpc: %v", err)
		}
		defer conn.Close()
		t = &grpcTarget{client: handler.NewLookupServiceClient(conn)}
	}

	results := make([]result, s.Requests)
	var next atomic.Int64
	var wg sync.WaitGroup
	start := time.Now()

	for w := 0; w < s.Concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(next.Add(1)) - 1
				if i >= s.Requests {
					return
				}

				ctx, cancel := context.WithTimeout(context.Background(), s.Timeout)
				began := time.Now()
				var code int
				var err error
				if s.BatchEvery > 0 && i%s.BatchEvery == 0 {
					code, err = t.batch(ctx, s.SKUs)
				} else {
					code, err = t.single(ctx, s.SKUs[i%len(s.SKUs)])
				}
				cancel()
				results[i] = result{status: code, latency: time.Since(began), err: err}
			}
		}()
	}

	wg.Wait()
	elapsed := time.Since(start)

	report(s, results, elapsed)
}

func report(s settings, results []result, elapsed time.Duration) {
	statuses := make(map[int]int)
	latencies := make([]time.Duration, 0, len(results))
	failed := 0
	for _, r := range results {
		if r.err != nil {
			failed++
			continue
		}
		statuses[r.status]++
		latencies = append(latencies, r.latency)
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Target:           %s\n", targetName(s))
	fmt.Printf("Total Requests:   %d\n", len(results))
	fmt.Printf("Concurrency:      %d\n", s.Concurrency)
	fmt.Printf("Transport Errors: %d\n", failed)
	for code, n := range statuses {
		fmt.Printf("Status %d:        %d\n", code, n)
	}
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Printf("Throughput:       %.1f req/s\n", float64(len(results))/elapsed.Seconds())
	if len(latencies) > 0 {
		fmt.Printf("p50 / p95 / p99:  %v / %v / %v\n",
			percentile(latencies, 50), percentile(latencies, 95), percentile(latencies, 99))
	}
	fmt.Println("==========================================")

	// Lookups never mutate stock, so anything but 200/404 is a failure.
	bad := failed
	for code, n := range statuses {
		if code != http.StatusOK && code != http.StatusNotFound {
			bad += n
		}
	}
	if bad == 0 {
		fmt.Println("PASS: every request answered with 200 or 404")
	} else {
		fmt.Printf("FAIL: %d requests errored\n", bad)
	}
}

func targetName(s settings) string {
	if s.GRPCAddr != "" {
		return "grpc://" + s.GRPCAddr
	}
	return s.BaseURL
}

func percentile(sorted []time.Duration, p int) time.Duration {
	idx := (len(sorted) - 1) * p / 100
	return sorted[idx]
}

type httpTarget struct {
	base   string
	client *http.Client
}

func (h *httpTarget) single(ctx context.Context, sku string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.base+"/lookup/"+sku, nil)
	if err != nil {
		return 0, err
	}
	return h.do(req)
}

func (h *httpTarget) batch(ctx context.Context, skus []string) (int, error) {
	body, err := json.Marshal(handler.BatchLookupRequest{SKUs: skus})
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.base+"/lookup/batch", bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	return h.do(req)
}

func (h *httpTarget) do(req *http.Request) (int, error) {
	resp, err := h.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

type grpcTarget struct {
	client *handler.LookupServiceClient
}

func (g *grpcTarget) single(ctx context.Context, sku string) (int, error) {
	_, err := g.client.GetBySKU(ctx, &handler.GetBySKURequest{SKU: sku})
	return grpcStatus(err)
}

func (g *grpcTarget) batch(ctx context.Context, skus []string) (int, error) {
	_, err := g.client.GetBySKUs(ctx, &handler.GetBySKUsRequest{SKUs: skus})
	return grpcStatus(err)
}
