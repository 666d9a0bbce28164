// Command smoke probes a running gateway instance and reports whether the
// core endpoints answer with the expected status and envelope shape. It is
// meant to run right after a deploy, before traffic is pointed at the box.
//
// Usage:
//
//	go run ./scripts/smoke -base http://localhost:8080 -targets scripts/smoke/targets.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

type target struct {
	Name     string `json:"name"`
	Method   string `json:"method"`
	Path     string `json:"path"`
	Expect   int    `json:"expect"`
	Envelope bool   `json:"envelope"`
	Critical bool   `json:"critical"`
}

type result struct {
	target   target
	status   int
	err      error
	envelope bool
	latency  time.Duration
}

func main() {
	var (
		baseURL     = flag.String("base", "http://localhost:8080", "base URL of the gateway under test")
		targetsPath = flag.String("targets", "scripts/smoke/targets.json", "path to the targets file")
		timeout     = flag.Duration("timeout", 10*time.Second, "per-request timeout")
	)
	flag.Parse()

	targets, err := loadTargets(*targetsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "smoke: %v\n", err)
		os.Exit(2)
	}

	client := &http.Client{Timeout: *timeout}
	results := make([]result, 0, len(targets))
	for _, t := range targets {
		results = append(results, probe(client, strings.TrimRight(*baseURL, "/"), t))
	}

	criticalFailures := printReport(results)
	if criticalFailures > 0 {
		os.Exit(1)
	}
}

func loadTargets(path string) ([]target, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open targets: %w", err)
	}
	defer f.Close()

	var targets []target
	if err := json.NewDecoder(f).Decode(&targets); err != nil {
		return nil, fmt.Errorf("decode targets: %w", err)
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("targets file %s is empty", path)
	}
	return targets, nil
}

func probe(client *http.Client, base string, t target) result {
	res := result{target: t}

	req, err := http.NewRequest(t.Method, base+t.Path, nil)
	if err != nil {
		res.err = err
		return res
	}

	start := time.Now()
	resp, err := client.Do(req)
	res.latency = time.Since(start)
	if err != nil {
		res.err = err
		return res
	}
	defer resp.Body.Close()

	res.status = resp.StatusCode
	if t.Envelope {
		res.envelope = hasEnvelopeShape(resp.Body)
	}
	return res
}

// hasEnvelopeShape checks that the body is a JSON object carrying at least
// one of the standard envelope keys. Bodies like the Prometheus text format
// or raw health strings are not envelopes and callers should not flag them.
func hasEnvelopeShape(body io.Reader) bool {
	raw, err := io.ReadAll(io.LimitReader(body, 1<<20))
	if err != nil {
		return false
	}
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(raw, &payload); err != nil {
		return false
	}
	for _, key := range []string{"data", "error", "meta"} {
		if _, ok := payload[key]; ok {
			return true
		}
	}
	return false
}

func printReport(results []result) int {
	criticalFailures := 0
	fmt.Printf("%-28s %-6s %-40s %-8s %s\n", "NAME", "METHOD", "PATH", "LATENCY", "RESULT")
	for _, r := range results {
		verdict := "ok"
		failed := false
		switch {
		case r.err != nil:
			verdict = fmt.Sprintf("error: %v", r.err)
			failed = true
		case r.status != r.target.Expect:
			verdict = fmt.Sprintf("status %d, want %d", r.status, r.target.Expect)
			failed = true
		case r.target.Envelope && !r.envelope:
			verdict = "body is not a response envelope"
			failed = true
		}
		if failed && r.target.Critical {
			criticalFailures++
			verdict = "CRITICAL " + verdict
		}
		fmt.Printf("%-28s %-6s %-40s %-8s %s\n",
			r.target.Name, r.target.Method, r.target.Path, r.latency.Round(time.Millisecond), verdict)
	}
	if criticalFailures > 0 {
		fmt.Printf("\n%d critical failure(s)\n", criticalFailures)
	}
	return criticalFailures
}
