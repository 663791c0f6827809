// Command tribunal runs a judging cycle over a set of candidates and prints
// the resulting decision as JSON.
//
// Candidates are read from a JSON file (or stdin with -input -):
//
//	{
//	  "brief": "Find the official documentation for X",
//	  "worker_notes": "Prefer primary sources.",
//	  "aspect": "relevance",
//	  "candidates": [
//	    {"name": "X docs", "url": "https://x.dev/docs", "rationale": "official site"},
//	    {"name": "X wiki", "url": "https://wiki.example/x", "rationale": "community wiki"}
//	  ]
//	}
//
// API keys come from the environment (OPENAI_API_KEY, OPENROUTER_API_KEY,
// ANTHROPIC_API_KEY, GEMINI_API_KEY), matched to the providers named in the
// configured model ids.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/tribunal-ai/tribunal/infrastructure/audit"
	"github.com/tribunal-ai/tribunal/infrastructure/oracle"
	"github.com/tribunal-ai/tribunal/infrastructure/telemetry"
	"github.com/tribunal-ai/tribunal/internal/domain"
	"github.com/tribunal-ai/tribunal/internal/engine"

	"github.com/prometheus/client_golang/prometheus"
)

// judgeInput is the on-disk request format.
type judgeInput struct {
	Brief       string `json:"brief"`
	WorkerNotes string `json:"worker_notes,omitempty"`
	Aspect      string `json:"aspect,omitempty"`
	Candidates  []struct {
		Name      string `json:"name"`
		URL       string `json:"url"`
		Rationale string `json:"rationale,omitempty"`
	} `json:"candidates"`
}

func main() {
	var (
		configPath = flag.String("config", "", "Path to YAML evaluation config (defaults apply when empty)")
		inputPath  = flag.String("input", "-", "Path to JSON judge input, or - for stdin")
		auditPath  = flag.String("audit", "", "Append audit events as JSON lines to this file")
		biasRun    = flag.Bool("bias", false, "Run the position-bias diagnostic instead of a judging cycle")
		models     = flag.String("models", "", "Comma-separated committee model ids, overriding the config pool")
		rateLimit  = flag.Float64("rate", 5, "Sustained oracle requests per second")
		timeout    = flag.Duration("timeout", 5*time.Minute, "Overall run deadline")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	cfg := engine.DefaultConfig()
	if *configPath != "" {
		loaded, err := engine.LoadConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}
	if *models != "" {
		cfg.CommitteeModels = strings.Split(*models, ",")
	}

	req, err := readInput(*inputPath)
	if err != nil {
		log.Fatalf("Failed to read input: %v", err)
	}

	metrics := telemetry.NewPrometheusMetrics(prometheus.DefaultRegisterer)

	registry := oracle.NewRegistry(oracle.RegistryConfig{
		DefaultTimeout: time.Duration(cfg.Invoker.TimeoutSeconds) * time.Second,
		DefaultMiddleware: []oracle.Middleware{
			oracle.RateLimitMiddleware(rate.Limit(*rateLimit), int(*rateLimit)*2),
			oracle.TracingMiddleware("tribunal"),
		},
	})

	opts := []engine.Option{engine.WithMetrics(metrics)}
	if *auditPath != "" {
		sink, closeSink, err := audit.NewFileSink(*auditPath)
		if err != nil {
			log.Fatalf("Failed to open audit file: %v", err)
		}
		defer closeSink() //nolint:errcheck
		opts = append(opts, engine.WithAuditSink(sink))
	}

	eng, err := engine.New(cfg, registry, opts...)
	if err != nil {
		log.Fatalf("Failed to build engine: %v", err)
	}

	var result any
	if *biasRun {
		result, err = eng.MeasureBias(ctx, req, nil)
	} else {
		result, err = eng.Judge(ctx, req)
	}
	if err != nil {
		log.Fatalf("Run failed: %v", err)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Fatalf("Failed to encode result: %v", err)
	}
	fmt.Println(string(out))
}

// readInput parses the judge request from a file or stdin.
func readInput(path string) (domain.JudgeRequest, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return domain.JudgeRequest{}, err
	}

	var in judgeInput
	if err := json.Unmarshal(data, &in); err != nil {
		return domain.JudgeRequest{}, fmt.Errorf("parse input: %w", err)
	}

	req := domain.JudgeRequest{
		Brief:       in.Brief,
		WorkerNotes: in.WorkerNotes,
		Aspect:      domain.Aspect(in.Aspect),
	}
	for _, c := range in.Candidates {
		req.Candidates = append(req.Candidates, domain.Candidate{
			Name:      c.Name,
			URL:       c.URL,
			Rationale: c.Rationale,
		})
	}
	return req, nil
}
