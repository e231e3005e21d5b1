package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	vegeta "github.com/tsenart/vegeta/v12/lib"
)

const (
	mockPort = 9091
	appPort  = 8081
	benchKey = "bench-key-12345"
)

var (
	chatResp = []byte(`{"id":"bench-123","choices":[{"message":{"role":"assistant","content":"Hello from the backup"}}]}`)
)

func main() {
	duration := flag.Duration("duration", 10*time.Second, "Duration of the test")
	rate := flag.Int("rate", 50, "Requests per second")
	failRate := flag.Int("fail-rate", 30, "Percentage of primary provider calls that return 500")
	chaos := flag.Bool("chaos", false, "Simulate random client disconnections")
	flag.Parse()

	mock := &mockUpstream{failRate: *failRate}
	go mock.serve()

	fmt.Println("Building application...")
	buildCmd := exec.Command("go", "build", "-o", "bin/server", "./cmd/server")
	buildCmd.Stdout = os.Stdout
	buildCmd.Stderr = os.Stderr
	if err := buildCmd.Run(); err != nil {
		log.Fatalf("Failed to build app: %v", err)
	}

	configFile := "bench_config.yaml"
	if err := os.WriteFile(configFile, []byte(benchConfig), 0644); err != nil {
		log.Fatalf("Failed to write config: %v", err)
	}
	defer os.Remove(configFile)

	fmt.Println("Starting application...")
	cmd := exec.Command("./bin/server")
	cmd.Env = append(os.Environ(), fmt.Sprintf("CONFIG_FILE=%s", configFile))
	cmd.Env = append(cmd.Env, fmt.Sprintf("SERVER_PORT=%d", appPort))
	cmd.Env = append(cmd.Env, "LOG_LEVEL=error")

	logFile, _ := os.Create("bench_server.log")
	defer logFile.Close()
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	if err := cmd.Start(); err != nil {
		log.Fatalf("Failed to start app: %v", err)
	}
	defer func() {
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
	}()

	waitForApp(fmt.Sprintf("http://localhost:%d/health", appPort))

	done := make(chan struct{})
	go monitorCPU(cmd.Process.Pid, done)

	generateURL := fmt.Sprintf("http://localhost:%d/v1/generate", appPort)
	fmt.Printf("Running failover benchmark: %s duration, %d req/s, primary fail rate %d%%\n", *duration, *rate, *failRate)

	targeter := func(t *vegeta.Target) error {
		t.Method = http.MethodPost
		t.URL = generateURL
		t.Body = []byte(`{"prompt":"Write a caption about coffee","system_prompt":"Be brief"}`)
		t.Header = http.Header{
			"Content-Type":  []string{"application/json"},
			"Authorization": []string{"Bearer " + benchKey},
		}
		return nil
	}

	if *chaos {
		fmt.Println("CHAOS MODE ENABLED: Starting Chaos Monkey sidecar...")
		concurrency := *rate / 10
		if concurrency < 5 {
			concurrency = 5
		}
		if concurrency > 50 {
			concurrency = 50
		}
		go startChaosMonkey(generateURL, concurrency, done)
	}

	attacker := vegeta.NewAttacker(vegeta.KeepAlive(true))
	var metrics vegeta.Metrics

	for res := range attacker.Attack(targeter, vegeta.Rate{Freq: *rate, Per: time.Second}, *duration, "Failover") {
		metrics.Add(res)
	}
	metrics.Close()
	close(done)

	fmt.Println("--------------------------------------------------")
	fmt.Println("99th percentile: ", metrics.Latencies.P99)
	fmt.Println("Mean:            ", metrics.Latencies.Mean)
	fmt.Println("Max:             ", metrics.Latencies.Max)
	fmt.Printf("Success:         %.2f%%\n", metrics.Success*100)
	fmt.Printf("Throughput:      %.2f req/s\n", metrics.Throughput)
	fmt.Printf("Upstream calls:  primary=%d (failed %d) backup=%d\n",
		atomic.LoadInt64(&mock.primary), atomic.LoadInt64(&mock.primaryFailed), atomic.LoadInt64(&mock.backup))
	fmt.Println("--------------------------------------------------")

	printProviderMetrics(fmt.Sprintf("http://localhost:%d/metrics", appPort))

	if len(metrics.Errors) > 0 {
		fmt.Println("Error Set (first 5 unique):")
		unique := make(map[string]bool)
		for _, msg := range metrics.Errors {
			if !unique[msg] && len(unique) < 5 {
				fmt.Println(msg)
				unique[msg] = true
			}
		}
	}
}

// mockUpstream serves two chat-completion providers: a flaky primary and a
// healthy backup.
type mockUpstream struct {
	failRate      int
	primary       int64
	primaryFailed int64
	backup        int64
}

func (m *mockUpstream) serve() {
	mux := http.NewServeMux()

	mux.HandleFunc("/primary/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&m.primary, 1)
		var req map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&req)

		time.Sleep(10 * time.Millisecond)
		if rand.Intn(100) < m.failRate {
			atomic.AddInt64(&m.primaryFailed, 1)
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":{"message":"overloaded"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(chatResp)
	})

	mux.HandleFunc("/backup/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&m.backup, 1)
		time.Sleep(25 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(chatResp)
	})

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	_ = http.ListenAndServe(fmt.Sprintf(":%d", mockPort), mux)
}

// startChaosMonkey sends requests that disconnect early. The server keeps
// the provider attempt running, so disconnects must not show up as failures.
func startChaosMonkey(url string, concurrency int, done chan struct{}) {
	fmt.Printf("Starting Chaos Monkey with %d concurrent disrupters (random disconnects 1-200ms)\n", concurrency)
	var wg sync.WaitGroup
	wg.Add(concurrency)

	for i := 0; i < concurrency; i++ {
		go func() {
			defer wg.Done()
			client := &http.Client{}
			payload := `{"prompt":"Chaos Request"}`

			for {
				select {
				case <-done:
					return
				default:
					timeout := time.Duration(rand.Intn(200)+1) * time.Millisecond

					ctx, cancel := context.WithTimeout(context.Background(), timeout)
					req, _ := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(payload))
					req.Header.Set("Content-Type", "application/json")
					req.Header.Set("Authorization", "Bearer "+benchKey)

					resp, err := client.Do(req)
					if err == nil {
						_ = resp.Body.Close()
					}
					cancel()

					time.Sleep(time.Duration(rand.Intn(50)) * time.Millisecond)
				}
			}
		}()
	}
	wg.Wait()
}

func monitorCPU(pid int, done chan struct{}) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	fmt.Printf("%-10s %-10s\n", "Time", "CPU(%)")
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			out, err := exec.Command("ps", "-p", strconv.Itoa(pid), "-o", "%cpu").Output()
			if err != nil {
				continue
			}
			lines := strings.Split(strings.TrimSpace(string(out)), "\n")
			if len(lines) < 2 {
				continue
			}
			cpu, _ := strconv.ParseFloat(strings.TrimSpace(lines[1]), 64)
			fmt.Printf("%-10s %-10.2f\n", time.Now().Format("15:04:05"), cpu)
		}
	}
}

// printProviderMetrics dumps the service's own failover counters.
func printProviderMetrics(url string) {
	resp, err := http.Get(url)
	if err != nil {
		fmt.Printf("could not scrape metrics: %v\n", err)
		return
	}
	defer resp.Body.Close()

	fmt.Println("Provider metrics:")
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "prism_provider_attempts_total") || strings.HasPrefix(line, "prism_failover_exhausted_total") {
			fmt.Println("  " + line)
		}
	}
}

func waitForApp(url string) {
	for i := 0; i < 20; i++ {
		resp, err := http.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(500 * time.Millisecond)
	}
	log.Fatal("App timed out")
}

var benchConfig = fmt.Sprintf(`
server:
  port: "%d"
  env: development
  api_keys: ["%s"]
  rate_limit:
    requests_per_second: 100000
    burst: 100000
log:
  level: "error"
storage:
  driver: memory
failover:
  cooldown_window: 2s
providers:
  - id: primary
    type: chat
    name: Flaky Primary
    api_key: "mock-key"
    endpoint: "http://localhost:%d/primary/chat/completions"
    model: "bench-primary"
  - id: backup
    type: chat
    name: Healthy Backup
    api_key: "mock-key"
    endpoint: "http://localhost:%d/backup/chat/completions"
    model: "bench-backup"
`, appPort, benchKey, mockPort, mockPort)
