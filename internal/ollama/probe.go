package ollama

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/robfig/cron/v3"
)

type Status string

const (
	StatusUnknown Status = "unknown"
	StatusUp      Status = "up"
	StatusDown    Status = "down"
)

// Prober periodically checks that the Ollama server answers, so /health can report it
// without hitting the model on every request.
type Prober struct {
	tagsURL    string
	httpClient *http.Client
	status     atomic.Value
	cron       *cron.Cron
}

func NewProber(baseURL string, httpClient *http.Client) *Prober {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: ProbeTimeout}
	}
	p := &Prober{
		tagsURL:    strings.TrimRight(baseURL, "/") + TagsPath,
		httpClient: httpClient,
	}
	p.status.Store(StatusUnknown)
	return p
}

// Status returns the result of the most recent probe.
func (p *Prober) Status() Status {
	if p == nil {
		return StatusUnknown
	}
	return p.status.Load().(Status)
}

// Check runs one probe and records its outcome.
func (p *Prober) Check(ctx context.Context) Status {
	st := StatusDown
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.tagsURL, nil)
	if err == nil {
		resp, derr := p.httpClient.Do(req)
		if derr == nil {
			resp.Body.Close()
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				st = StatusUp
			}
		}
	}

	if prev := p.status.Swap(st); prev != st {
		log.Printf("[ollama] probe status changed %s -> %s", prev, st)
	}
	return st
}

// Start schedules probes with a cron spec such as "@every 1m" and runs one immediately.
func (p *Prober) Start(schedule string) error {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), ProbeTimeout)
		defer cancel()
		p.Check(ctx)
	})
	if err != nil {
		return fmt.Errorf("schedule ollama probe %q: %w", schedule, err)
	}

	p.cron = c
	c.Start()
	log.Printf("[ollama] probe scheduled (%s) target=%s", schedule, p.tagsURL)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), ProbeTimeout)
		defer cancel()
		p.Check(ctx)
	}()
	return nil
}

// Stop halts the schedule and waits for a running probe to finish.
func (p *Prober) Stop() {
	if p == nil || p.cron == nil {
		return
	}
	<-p.cron.Stop().Done()
}
