// Command load-testing sells one product to many concurrent buyers and
// checks that the committed sales add up to the stock that left the shelf.
//
//	go run ./scripts/load-testing [light|heavy|stress]
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

type LoadTestConfig struct {
	BaseURL     string `json:"base_url"`
	Buyers      int    `json:"buyers"`
	Concurrency int    `json:"concurrency"`
	Stock       int    `json:"stock"`
	Quantity    int    `json:"quantity"`
}

type TestResult struct {
	mu            sync.Mutex
	StatusCounts  map[int]int64
	Errors        map[string]int64
	ResponseTimes []time.Duration
	Revenue       decimal.Decimal
}

type PerformanceMetrics struct {
	Config          LoadTestConfig   `json:"config"`
	StatusCounts    map[int]int64    `json:"status_counts"`
	Errors          map[string]int64 `json:"errors"`
	TotalDuration   time.Duration    `json:"total_duration"`
	ThroughputRPS   float64          `json:"throughput_rps"`
	P50ResponseTime time.Duration    `json:"p50_response_time"`
	P95ResponseTime time.Duration    `json:"p95_response_time"`
	P99ResponseTime time.Duration    `json:"p99_response_time"`
	UnitsSold       int              `json:"units_sold"`
	StockLeft       int              `json:"stock_left"`
	Revenue         decimal.Decimal  `json:"revenue"`
	Oversold        bool             `json:"oversold"`
}

type product struct {
	ID    int64           `json:"id"`
	Name  string          `json:"nome"`
	Price decimal.Decimal `json:"preco"`
	Stock int             `json:"estoque"`
}

type saleLine struct {
	ProductID int64 `json:"produtoId"`
	Quantity  int   `json:"quantidade"`
}

type saleRequest struct {
	Items   []saleLine `json:"itens"`
	Payment string     `json:"formaPagamento"`
}

type saleResponse struct {
	OrderID int64           `json:"pedidoId"`
	Total   decimal.Decimal `json:"total"`
}

var payments = []string{"PIX", "CARTAO", "DINHEIRO"}

type LoadTester struct {
	config LoadTestConfig
	result *TestResult
	client *http.Client
}

func NewLoadTester(config LoadTestConfig) *LoadTester {
	return &LoadTester{
		config: config,
		result: &TestResult{
			StatusCounts: make(map[int]int64),
			Errors:       make(map[string]int64),
			Revenue:      decimal.Zero,
		},
		client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        1000,
				MaxIdleConnsPerHost: 100,
				MaxConnsPerHost:     200,
			},
		},
	}
}

func (lt *LoadTester) Run(ctx context.Context) (*PerformanceMetrics, error) {
	target, err := lt.createProduct(ctx)
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	fmt.Printf("Created product %d with stock %d\n", target.ID, target.Stock)

	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(lt.config.Concurrency)
	for i := 0; i < lt.config.Buyers; i++ {
		g.Go(func() error {
			lt.buy(gctx, target.ID)
			return nil
		})
	}
	g.Wait()

	elapsed := time.Since(start)

	final, err := lt.fetchProduct(ctx, target.ID)
	if err != nil {
		return nil, fmt.Errorf("read final stock: %w", err)
	}

	return lt.metrics(elapsed, target, final), nil
}

func (lt *LoadTester) buy(ctx context.Context, productID int64) {
	body := saleRequest{
		Items:   []saleLine{{ProductID: productID, Quantity: lt.config.Quantity}},
		Payment: payments[rand.Intn(len(payments))],
	}

	start := time.Now()
	status, raw, err := lt.do(ctx, http.MethodPost, "/api/sales", body)
	duration := time.Since(start)

	lt.result.mu.Lock()
	defer lt.result.mu.Unlock()

	lt.result.ResponseTimes = append(lt.result.ResponseTimes, duration)
	if err != nil {
		lt.result.Errors[err.Error()]++
		return
	}
	lt.result.StatusCounts[status]++

	if status == http.StatusOK {
		var order saleResponse
		if err := json.Unmarshal(raw, &order); err == nil {
			lt.result.Revenue = lt.result.Revenue.Add(order.Total)
		}
	}
}

func (lt *LoadTester) createProduct(ctx context.Context) (*product, error) {
	body := map[string]interface{}{
		"nome":    "loadtest-" + strconv.FormatInt(time.Now().Unix(), 10),
		"preco":   decimal.RequireFromString("9.90"),
		"estoque": lt.config.Stock,
	}

	status, raw, err := lt.do(ctx, http.MethodPost, "/api/products", body)
	if err != nil {
		return nil, err
	}
	if status != http.StatusCreated {
		return nil, fmt.Errorf("unexpected status %d: %s", status, raw)
	}

	var p product
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (lt *LoadTester) fetchProduct(ctx context.Context, id int64) (*product, error) {
	status, raw, err := lt.do(ctx, http.MethodGet, "/api/products?query="+strconv.FormatInt(id, 10), nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %s", status, raw)
	}

	var resp struct {
		Products []product `json:"products"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, err
	}
	if len(resp.Products) != 1 {
		return nil, fmt.Errorf("product %d not returned", id)
	}
	return &resp.Products[0], nil
}

func (lt *LoadTester) do(ctx context.Context, method, path string, body interface{}) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, lt.config.BaseURL+path, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := lt.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	return resp.StatusCode, raw, err
}

func (lt *LoadTester) metrics(elapsed time.Duration, initial, final *product) *PerformanceMetrics {
	lt.result.mu.Lock()
	defer lt.result.mu.Unlock()

	times := append([]time.Duration(nil), lt.result.ResponseTimes...)
	sort.Slice(times, func(i, j int) bool { return times[i] < times[j] })

	sold := int(lt.result.StatusCounts[http.StatusOK]) * lt.config.Quantity

	m := &PerformanceMetrics{
		Config:          lt.config,
		StatusCounts:    lt.result.StatusCounts,
		Errors:          lt.result.Errors,
		TotalDuration:   elapsed,
		P50ResponseTime: percentile(times, 50),
		P95ResponseTime: percentile(times, 95),
		P99ResponseTime: percentile(times, 99),
		UnitsSold:       sold,
		StockLeft:       final.Stock,
		Revenue:         lt.result.Revenue,
		Oversold:        sold > initial.Stock || final.Stock < 0 || final.Stock+sold != initial.Stock,
	}
	if elapsed > 0 {
		m.ThroughputRPS = float64(len(times)) / elapsed.Seconds()
	}
	return m
}

func percentile(sorted []time.Duration, p int) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := (len(sorted)*p + 99) / 100
	if idx < 1 {
		idx = 1
	}
	return sorted[idx-1]
}

func (m *PerformanceMetrics) PrintReport() {
	fmt.Printf("\n=== LOAD TEST RESULTS ===\n")
	fmt.Printf("Duration: %v\n", m.TotalDuration.Round(time.Millisecond))
	fmt.Printf("Throughput: %.2f req/s\n", m.ThroughputRPS)
	fmt.Printf("Response times: p50=%v p95=%v p99=%v\n", m.P50ResponseTime, m.P95ResponseTime, m.P99ResponseTime)

	codes := make([]int, 0, len(m.StatusCounts))
	for code := range m.StatusCounts {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		fmt.Printf("  HTTP %d: %d\n", code, m.StatusCounts[code])
	}
	for msg, count := range m.Errors {
		fmt.Printf("  error %q: %d\n", msg, count)
	}

	fmt.Printf("Units sold: %d, stock left: %d, revenue: %s\n", m.UnitsSold, m.StockLeft, m.Revenue.StringFixed(2))
	if m.Oversold {
		fmt.Printf("FAIL: committed sales do not match the stock decrement\n")
	} else {
		fmt.Printf("OK: no overselling\n")
	}
}

func (m *PerformanceMetrics) SaveToFile(filename string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0o644)
}

func main() {
	config := LoadTestConfig{
		BaseURL:     "http://localhost:8080",
		Buyers:      200,
		Concurrency: 50,
		Stock:       100,
		Quantity:    1,
	}
	if url := os.Getenv("PDV_BASE_URL"); url != "" {
		config.BaseURL = url
	}

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "light":
			config.Buyers, config.Concurrency, config.Stock = 20, 10, 1
		case "heavy":
			config.Buyers, config.Concurrency, config.Stock = 2000, 200, 500
		case "stress":
			config.Buyers, config.Concurrency, config.Stock, config.Quantity = 10000, 500, 1000, 3
		}
	}

	fmt.Printf("Configuration:\n")
	fmt.Printf("- Base URL: %s\n", config.BaseURL)
	fmt.Printf("- Buyers: %d (concurrency %d)\n", config.Buyers, config.Concurrency)
	fmt.Printf("- Stock: %d, quantity per sale: %d\n", config.Stock, config.Quantity)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics, err := NewLoadTester(config).Run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load test failed: %v\n", err)
		os.Exit(1)
	}

	metrics.PrintReport()

	filename := fmt.Sprintf("load_test_results_%s.json", time.Now().Format("20060102_150405"))
	if err := metrics.SaveToFile(filename); err != nil {
		fmt.Fprintf(os.Stderr, "failed to save results: %v\n", err)
	} else {
		fmt.Printf("Results saved to: %s\n", filename)
	}

	if metrics.Oversold {
		os.Exit(2)
	}
}
