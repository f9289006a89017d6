package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/punchamoorthee/marketdeals/internal/logging"
	"github.com/punchamoorthee/marketdeals/internal/models"
	"github.com/sirupsen/logrus"
)

// Config holds the benchmark settings
var (
	targetURL   string
	concurrency int
	duration    time.Duration
	offerID     string
	sellerID    int64
	totalUsers  int
	workload    string
)

// Metrics
var (
	totalRequests uint64
	created201    uint64
	ok200         uint64 // Amended deals, actions and replays
	fail409       uint64 // Conflicts (Aborts)
	reject422     uint64 // Business rule rejections
	failOther     uint64
)

var log *logrus.Logger

func init() {
	flag.StringVar(&targetURL, "url", "http://localhost:8080", "API Base URL")
	flag.IntVar(&concurrency, "workers", 10, "Number of concurrent workers")
	flag.DurationVar(&duration, "duration", 30*time.Second, "Test duration")
	flag.StringVar(&offerID, "offer", "", "Hot offer id printed by the seeder")
	flag.Int64Var(&sellerID, "seller", 1, "Owner of the hot offer")
	flag.IntVar(&totalUsers, "users", 1000, "Number of seeded users")
	flag.StringVar(&workload, "workload", "complete", "Workload type: complete | cancel")
}

func main() {
	flag.Parse()
	log = logging.New("info", false)
	if _, err := uuid.Parse(offerID); err != nil {
		log.Fatal("-offer must be the hot offer uuid")
	}
	log.Infof("Starting Benchmark: %s | Workers: %d | Duration: %s", workload, concurrency, duration)

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(concurrency)

	for i := 0; i < concurrency; i++ {
		go worker(&wg, start)
	}

	wg.Wait()
	printResults(time.Since(start))
}

// worker drives one deal at a time through create, accept and then complete
// or cancel, all against the same offer.
func worker(wg *sync.WaitGroup, start time.Time) {
	defer wg.Done()
	client := &http.Client{Timeout: 5 * time.Second}

	for time.Since(start) < duration {
		buyer := pickBuyer()

		body, _ := json.Marshal(models.CreateDealRequest{OfferID: offerID, Quantity: 1})
		var resp models.DealResponse
		if !call(client, http.MethodPost, "/api/v1/deals", buyer, body, &resp) || resp.Deal == nil {
			continue
		}
		dealPath := "/api/v1/deals/" + resp.Deal.ID.String()

		if !call(client, http.MethodPost, dealPath+"?action=accept", sellerID, nil, nil) {
			call(client, http.MethodPost, dealPath+"?action=cancel", buyer, nil, nil)
			continue
		}

		finish := "complete"
		if workload == "cancel" {
			finish = "cancel"
		}
		call(client, http.MethodPost, dealPath+"?action="+finish, buyer, nil, nil)
	}
}

func pickBuyer() int64 {
	for {
		id := int64(rand.Intn(totalUsers) + 1)
		if id != sellerID {
			return id
		}
	}
}

// call sends one request with a fresh idempotency key and tallies the result.
// It reports whether the request succeeded.
func call(client *http.Client, method, path string, user int64, body []byte, out interface{}) bool {
	req, _ := http.NewRequest(method, targetURL+path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", strconv.FormatInt(user, 10))
	req.Header.Set("Idempotency-Key", uuid.NewString())

	resp, err := client.Do(req)
	if err != nil {
		atomic.AddUint64(&failOther, 1)
		return false
	}
	defer resp.Body.Close()

	atomic.AddUint64(&totalRequests, 1)
	switch resp.StatusCode {
	case http.StatusCreated:
		atomic.AddUint64(&created201, 1)
	case http.StatusOK:
		atomic.AddUint64(&ok200, 1)
	case http.StatusConflict:
		atomic.AddUint64(&fail409, 1)
		return false
	case http.StatusUnprocessableEntity:
		atomic.AddUint64(&reject422, 1)
		return false
	default:
		atomic.AddUint64(&failOther, 1)
		return false
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return false
		}
	}
	return true
}

func printResults(d time.Duration) {
	total := atomic.LoadUint64(&totalRequests)
	c201 := atomic.LoadUint64(&created201)
	s200 := atomic.LoadUint64(&ok200)
	f409 := atomic.LoadUint64(&fail409)
	r422 := atomic.LoadUint64(&reject422)
	fErr := atomic.LoadUint64(&failOther)

	tps := float64(total) / d.Seconds()
	abortRate := 0.0
	if total > 0 {
		abortRate = float64(f409) / float64(total) * 100
	}

	results := map[string]interface{}{
		"workload":         workload,
		"duration_sec":     d.Seconds(),
		"total_requests":   total,
		"throughput_tps":   tps,
		"deals_created":    c201,
		"success_ok":       s200,
		"aborts_conflict":  f409,
		"abort_rate_pct":   abortRate,
		"rejected_by_rule": r422,
		"errors":           fErr,
	}

	// Print JSON so runs can be compared
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(results)

	filename := fmt.Sprintf("results_%s.json", workload)
	file, err := os.Create(filename)
	if err != nil {
		log.WithError(err).Warn("could not save results")
		return
	}
	defer file.Close()
	json.NewEncoder(file).Encode(results)
}
