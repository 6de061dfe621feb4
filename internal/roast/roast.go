// Package roast generates roast-log entries for the roast variant.
//
// A generation first pings a fixed endpoint, then waits a short delay, then
// builds the roast from the local line list. The ping result only picks the
// status text; the roast is produced either way.
package roast

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Makepad-fr/focusflow/internal/model"
)

var ErrEmptySubject = errors.New("empty roast subject")

const (
	StatusOnline  = "connected, roast generated"
	StatusOffline = "offline, roast generated locally"
)

// Lines are the built-in roast templates; %s is the subject.
var Lines = []string{
	"%s writes to-do lists just to have something to ignore.",
	"%s has a five-year plan and a five-minute attention span.",
	"%s's inbox zero is a rumor started by %s.",
	"%s calls it multitasking; everyone else calls it dropping things.",
	"%s schedules procrastination so it feels productive.",
	"%s's code compiles on the first try, mostly because nobody has run it.",
	"%s treats deadlines like suggestions from a stranger.",
	"%s finished the warm-up and called it a workout.",
}

// Prober checks connectivity.
type Prober interface {
	Probe(ctx context.Context) error
}

// HTTPProbe GETs URL; any 2xx/3xx response counts as online.
type HTTPProbe struct {
	URL    string
	Client *http.Client
}

func (p HTTPProbe) Probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return fmt.Errorf("build probe: %w", err)
	}
	c := p.Client
	if c == nil {
		c = http.DefaultClient
	}
	resp, err := c.Do(req)
	if err != nil {
		return fmt.Errorf("probe %s: %w", p.URL, err)
	}
	resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("probe %s: %s", p.URL, resp.Status)
	}
	return nil
}

// Result is a generated roast plus the status text to show.
type Result struct {
	Draft  model.Draft
	Online bool
	Status string
}

type Generator struct {
	Prober Prober
	Delay  time.Duration
	Lines  []string
	// Pick returns an index in [0,n). Defaults to math/rand.
	Pick func(n int) int
	Log  *zap.Logger
}

// Generate produces a roast about subject. Only an empty subject or a
// cancelled ctx return an error.
func (g *Generator) Generate(ctx context.Context, subject string) (Result, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return Result{}, ErrEmptySubject
	}
	log := g.Log
	if log == nil {
		log = zap.NewNop()
	}

	online := false
	if g.Prober != nil {
		if err := g.Prober.Probe(ctx); err != nil {
			log.Info("roast probe failed", zap.Error(err))
		} else {
			online = true
		}
	}

	if g.Delay > 0 {
		timer := time.NewTimer(g.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Result{}, ctx.Err()
		case <-timer.C:
		}
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	res := Result{
		Draft: model.Draft{
			Title: g.line(subject),
			Notes: "roast of " + subject,
		},
		Online: online,
		Status: StatusOffline,
	}
	if online {
		res.Status = StatusOnline
	}
	return res, nil
}

func (g *Generator) line(subject string) string {
	lines := g.Lines
	if len(lines) == 0 {
		lines = Lines
	}
	pick := g.Pick
	if pick == nil {
		pick = rand.Intn
	}
	tmpl := lines[pick(len(lines))]
	return strings.ReplaceAll(tmpl, "%s", subject)
}
