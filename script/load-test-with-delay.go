package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"
)

// LockRequest is the lock/unlock request payload
type LockRequest struct {
	DomainName         string `json:"domainName"`
	RegistrarID        string `json:"registrarId"`
	RegistrarContactID string `json:"registrarContactId"`
}

// VerifyRequest is the verification payload
type VerifyRequest struct {
	VerificationCode string `json:"verificationCode"`
}

// LockResponse is the API response for lock operations
type LockResponse struct {
	RevisionID       int64  `json:"revisionId"`
	DomainName       string `json:"domainName"`
	Action           string `json:"action"`
	Status           string `json:"status"`
	VerificationCode string `json:"verificationCode,omitempty"`
}

// TestResult contains metrics for a single lock cycle
type TestResult struct {
	Success   bool
	CycleTime time.Duration
	Error     error
}

// TestStats contains aggregated test statistics
type TestStats struct {
	TotalCycles      int
	SuccessfulCycles int
	FailedCycles     int
	TotalTime        time.Duration
	MinCycleTime     time.Duration
	MaxCycleTime     time.Duration
	TotalCycleTime   time.Duration
	CycleTimes       []time.Duration
	ErrorCounts      map[string]int
	DomainStats      map[string]int // Track cycles per domain
	Lock             sync.Mutex
}

func main() {

	// Define command line flags
	concurrency := flag.Int("c", 5, "Number of concurrent goroutines")
	totalCycles := flag.Int("n", 100, "Total number of lock/unlock cycles to run")
	domainsStr := flag.String("d", "example.tld", "Comma-separated list of domain names to cycle")
	registrarID := flag.String("r", "TheRegistrar", "Registrar ID for all requests")
	baseURL := flag.String("url", "http://localhost:8080", "Base URL for the API")
	delayMs := flag.Int("delay", 100, "Delay between cycles in milliseconds")
	flag.Parse()

	// Parse domain names
	var domains []string
	for _, name := range strings.Split(*domainsStr, ",") {
		name = strings.TrimSpace(name)
		if name != "" {
			domains = append(domains, name)
		}
	}
	if len(domains) == 0 {
		domains = []string{"example.tld"}
	}

	fmt.Printf("Load testing lock workflow across %d domains: %v\n", len(domains), domains)
	fmt.Printf("Each cycle: request lock -> verify -> request unlock -> verify\n")
	fmt.Printf("Concurrency: %d goroutines\n", *concurrency)
	fmt.Printf("Total cycles: %d\n", *totalCycles)
	fmt.Printf("Delay between cycles: %d ms\n", *delayMs)

	// Initialize test statistics
	stats := &TestStats{
		TotalCycles:  *totalCycles,
		MinCycleTime: time.Hour, // Start with a high value that will be replaced
		ErrorCounts:  make(map[string]int),
		CycleTimes:   make([]time.Duration, 0, *totalCycles),
		DomainStats:  make(map[string]int),
	}
	for _, name := range domains {
		stats.DomainStats[name] = 0
	}

	// Channel to collect results
	results := make(chan TestResult, *totalCycles)

	// Channel to distribute work
	jobs := make(chan int, *totalCycles)

	// Start worker goroutines
	var wg sync.WaitGroup
	fmt.Println("Starting worker goroutines...")
	for i := 0; i < *concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			worker(workerID, *baseURL, *registrarID, *delayMs, domains, jobs, results, stats)
		}(i)
	}

	// Fill the jobs channel
	go func() {
		for i := 0; i < *totalCycles; i++ {
			jobs <- i
		}
		close(jobs)
	}()

	// Start a goroutine to collect results
	go func() {
		for result := range results {
			stats.Lock.Lock()
			if result.Success {
				stats.SuccessfulCycles++
			} else {
				stats.FailedCycles++
				errMsg := "unknown"
				if result.Error != nil {
					errMsg = result.Error.Error()
				}
				stats.ErrorCounts[errMsg]++
			}

			stats.CycleTimes = append(stats.CycleTimes, result.CycleTime)
			stats.TotalCycleTime += result.CycleTime

			if result.CycleTime < stats.MinCycleTime {
				stats.MinCycleTime = result.CycleTime
			}
			if result.CycleTime > stats.MaxCycleTime {
				stats.MaxCycleTime = result.CycleTime
			}
			stats.Lock.Unlock()
		}
	}()

	// Start the timer
	startTime := time.Now()
	fmt.Println("Test running...")

	// Print progress periodically
	ticker := time.NewTicker(1 * time.Second)
	go func() {
		for range ticker.C {
			stats.Lock.Lock()
			completed := stats.SuccessfulCycles + stats.FailedCycles
			if completed > 0 {
				fmt.Printf("Progress: %d/%d cycles completed (%.1f%%)\n",
					completed, stats.TotalCycles, float64(completed)/float64(stats.TotalCycles)*100)
			}
			stats.Lock.Unlock()
		}
	}()

	// Wait for all workers to finish
	wg.Wait()
	close(results)
	ticker.Stop()

	// Calculate the total test time
	stats.TotalTime = time.Since(startTime)

	// Print results
	printResults(stats)
}

func worker(id int, baseURL, registrarID string, delayMs int, domains []string,
	jobs <-chan int, results chan<- TestResult, stats *TestStats) {

	client := &http.Client{
		Timeout: 10 * time.Second,
	}

	for jobID := range jobs {
		// Optional delay between cycles to prevent hammering one domain
		if delayMs > 0 {
			time.Sleep(time.Duration(delayMs) * time.Millisecond)
		}

		// Randomly select a domain
		domain := domains[rand.Intn(len(domains))]

		stats.Lock.Lock()
		stats.DomainStats[domain]++
		stats.Lock.Unlock()

		contactID := fmt.Sprintf("loadtest-%d-%d", id, jobID)

		// A full cycle exercises both workflow directions and leaves the
		// domain unlocked for the next cycle
		startTime := time.Now()
		err := runCycle(client, baseURL, domain, registrarID, contactID)
		cycleTime := time.Since(startTime)

		result := TestResult{
			CycleTime: cycleTime,
			Success:   err == nil,
			Error:     err,
		}
		results <- result
	}
}

// runCycle requests and verifies a lock, then requests and verifies the
// matching unlock
func runCycle(client *http.Client, baseURL, domain, registrarID, contactID string) error {
	lockCode, err := requestAction(client, baseURL+"/locks", domain, registrarID, contactID)
	if err != nil {
		return fmt.Errorf("request lock: %w", err)
	}
	if err := verifyAction(client, baseURL+"/locks/verify", lockCode); err != nil {
		return fmt.Errorf("verify lock: %w", err)
	}

	unlockCode, err := requestAction(client, baseURL+"/unlocks", domain, registrarID, contactID)
	if err != nil {
		return fmt.Errorf("request unlock: %w", err)
	}
	if err := verifyAction(client, baseURL+"/unlocks/verify", unlockCode); err != nil {
		return fmt.Errorf("verify unlock: %w", err)
	}
	return nil
}

func requestAction(client *http.Client, url, domain, registrarID, contactID string) (string, error) {
	payload := LockRequest{
		DomainName:         domain,
		RegistrarID:        registrarID,
		RegistrarContactID: contactID,
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	resp, err := client.Post(url, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("HTTP status code %d", resp.StatusCode)
	}

	var lockResp LockResponse
	if err := json.NewDecoder(resp.Body).Decode(&lockResp); err != nil {
		return "", err
	}
	if lockResp.VerificationCode == "" {
		return "", fmt.Errorf("response carried no verification code")
	}
	return lockResp.VerificationCode, nil
}

func verifyAction(client *http.Client, url, code string) error {
	payload := VerifyRequest{VerificationCode: code}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	resp, err := client.Post(url, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP status code %d", resp.StatusCode)
	}
	return nil
}

func printResults(stats *TestStats) {
	// Calculate cycles per second
	rawCps := float64(stats.SuccessfulCycles) / stats.TotalTime.Seconds()
	theoreticalCps := float64(stats.TotalCycles) / stats.TotalTime.Seconds()

	// Calculate average cycle time
	var avgCycleTime time.Duration
	if len(stats.CycleTimes) > 0 {
		avgCycleTime = stats.TotalCycleTime / time.Duration(len(stats.CycleTimes))
	}

	// Calculate percentiles
	var p50, p90, p95, p99 time.Duration
	if len(stats.CycleTimes) > 0 {
		// Sort the cycle times
		sortedTimes := make([]time.Duration, len(stats.CycleTimes))
		copy(sortedTimes, stats.CycleTimes)

		// Simple bubble sort (OK for small datasets)
		for i := 0; i < len(sortedTimes); i++ {
			for j := i + 1; j < len(sortedTimes); j++ {
				if sortedTimes[i] > sortedTimes[j] {
					sortedTimes[i], sortedTimes[j] = sortedTimes[j], sortedTimes[i]
				}
			}
		}

		p50 = sortedTimes[len(sortedTimes)*50/100]
		p90 = sortedTimes[len(sortedTimes)*90/100]
		p95 = sortedTimes[len(sortedTimes)*95/100]
		p99 = sortedTimes[len(sortedTimes)*99/100]
	}

	// Print results
	fmt.Println("\n================= TEST RESULTS =================")
	fmt.Printf("Total Cycles:      %d\n", stats.TotalCycles)
	fmt.Printf("Successful Cycles: %d (%.1f%%)\n", stats.SuccessfulCycles,
		float64(stats.SuccessfulCycles)/float64(stats.TotalCycles)*100)
	fmt.Printf("Failed Cycles:     %d (%.1f%%)\n", stats.FailedCycles,
		float64(stats.FailedCycles)/float64(stats.TotalCycles)*100)
	fmt.Printf("Total Test Time:   %.2f seconds\n", stats.TotalTime.Seconds())

	fmt.Println("\n----------------- PERFORMANCE -----------------")
	fmt.Printf("Raw cycles/sec:         %.2f (successful cycles / total time)\n", rawCps)
	fmt.Printf("Theoretical cycles/sec: %.2f (if all cycles were successful)\n", theoreticalCps)
	fmt.Printf("Requests/sec:           %.2f (4 HTTP requests per cycle)\n", rawCps*4)

	fmt.Println("\n----------------- CYCLE TIMES -----------------")
	fmt.Printf("Average Cycle:    %v\n", avgCycleTime)
	fmt.Printf("Minimum Cycle:    %v\n", stats.MinCycleTime)
	fmt.Printf("Maximum Cycle:    %v\n", stats.MaxCycleTime)
	fmt.Printf("P50 Cycle:        %v\n", p50)
	fmt.Printf("P90 Cycle:        %v\n", p90)
	fmt.Printf("P95 Cycle:        %v\n", p95)
	fmt.Printf("P99 Cycle:        %v\n", p99)

	// Print domain distribution
	fmt.Println("\n----------------- DOMAIN DISTRIBUTION -----------------")
	totalDomains := 0
	for _, count := range stats.DomainStats {
		totalDomains += count
	}
	for domain, count := range stats.DomainStats {
		if count > 0 {
			fmt.Printf("%-25s: %d cycles (%.1f%%)\n", domain, count,
				float64(count)/float64(totalDomains)*100)
		}
	}

	// Print error distribution if there were errors
	if stats.FailedCycles > 0 {
		fmt.Println("\n----------------- ERROR DISTRIBUTION -----------------")
		for errMsg, count := range stats.ErrorCounts {
			fmt.Printf("%-40s: %d (%.1f%%)\n", errMsg, count,
				float64(count)/float64(stats.TotalCycles)*100)
		}
	}
	fmt.Println("================================================")
}
