package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"sort"
	"sync"
	"time"
)

// Load generator: hammers the reserve endpoint with n concurrent buyers and
// tallies how the sale resolves. Dev tool, aim it at a disposable sale.
func main() {
	baseURL := flag.String("url", "http://localhost:8080", "api base url")
	buyers := flag.Int("buyers", 500, "number of concurrent buyers")
	flag.Parse()

	token, err := fetchCSRFToken(*baseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "csrf handshake failed: %v\n", err)
		os.Exit(1)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	counts := &tally{counts: map[string]int{}}

	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < *buyers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			runBuyer(client, *baseURL, fmt.Sprintf("load-buyer-%05d", n), token, counts)
		}(i)
	}
	wg.Wait()

	fmt.Printf("\n%d buyers finished in %s\n", *buyers, time.Since(start).Round(time.Millisecond))
	for _, line := range counts.summary() {
		fmt.Println(line)
	}
}

func fetchCSRFToken(baseURL string) (string, error) {
	resp, err := http.Get(baseURL + "/csrf")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var body struct {
		Token string `json:"csrf_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	if body.Token == "" {
		return "", fmt.Errorf("empty token, status %d", resp.StatusCode)
	}
	return body.Token, nil
}

func runBuyer(client *http.Client, baseURL, buyerID, token string, counts *tally) {
	payload, _ := json.Marshal(map[string]string{"buyer_id": buyerID})

	for {
		req, err := http.NewRequest(http.MethodPost, baseURL+"/sale/reserve", bytes.NewReader(payload))
		if err != nil {
			counts.add("request_build_error")
			return
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-CSRF-Token", token)
		req.AddCookie(&http.Cookie{Name: "sale_csrf", Value: token})

		resp, err := client.Do(req)
		if err != nil {
			counts.add("network_error")
			return
		}
		outcome := decodeOutcome(resp)
		resp.Body.Close()

		// Throttled and busy answers are invitations to retry; everything
		// else is final for this buyer.
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable {
			counts.add(outcome + "_retries")
			time.Sleep(200 * time.Millisecond)
			continue
		}
		counts.add(outcome)
		return
	}
}

// decodeOutcome pulls the outcome or error code out of the response body,
// falling back to the bare status code.
func decodeOutcome(resp *http.Response) string {
	var body struct {
		Outcome string `json:"outcome"`
		Code    string `json:"code"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		if body.Outcome != "" {
			return body.Outcome
		}
		if body.Code != "" {
			return body.Code
		}
	}
	return fmt.Sprintf("http_%d", resp.StatusCode)
}

type tally struct {
	mu     sync.Mutex
	counts map[string]int
}

func (t *tally) add(key string) {
	t.mu.Lock()
	t.counts[key]++
	t.mu.Unlock()
}

func (t *tally) summary() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	keys := make([]string, 0, len(t.counts))
	for k := range t.counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("  %-24s %d", k, t.counts[k]))
	}
	return lines
}
