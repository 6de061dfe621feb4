// Package sample fetches example records from a remote HTTP endpoint.
package sample

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/Makepad-fr/focusflow/internal/model"
)

// ImportedNotes is the notes text every imported record carries.
const ImportedNotes = "Imported from sample source"

// maxBody caps how much of a response is read.
const maxBody = 1 << 20

var ErrStatus = errors.New("unexpected status")

// Source yields drafts to import.
type Source interface {
	Fetch(ctx context.Context) ([]model.Draft, error)
}

// item is the remote shape: {title, completed}.
type item struct {
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// HTTPSource GETs a JSON array of items from URL.
type HTTPSource struct {
	URL    string
	Client *http.Client
	// Token, when set, returns a bearer token to send.
	Token func() string
	Log   *zap.Logger

	group singleflight.Group
	mu    sync.Mutex
	cur   *flight
	seq   uint64
}

// flight is the shared request plus the callers still waiting on it. Its
// context is detached from every caller and cancelled when the last one
// leaves.
type flight struct {
	key     string
	cancel  context.CancelFunc
	waiters int
}

func NewHTTPSource(url string, log *zap.Logger) *HTTPSource {
	if log == nil {
		log = zap.NewNop()
	}
	return &HTTPSource{
		URL:    url,
		Client: &http.Client{Timeout: 30 * time.Second},
		Log:    log,
	}
}

// Fetch performs the request. Concurrent calls share one in-flight request;
// a caller that gives up only stops the request once nobody else waits on it.
func (s *HTTPSource) Fetch(ctx context.Context) ([]model.Draft, error) {
	ch, f := s.join(ctx)
	select {
	case <-ctx.Done():
		s.leave(f)
		return nil, ctx.Err()
	case res := <-ch:
		s.leave(f)
		if res.Err != nil {
			return nil, res.Err
		}
		shared := res.Val.([]model.Draft)
		out := make([]model.Draft, len(shared))
		copy(out, shared)
		return out, nil
	}
}

func (s *HTTPSource) join(ctx context.Context) (<-chan singleflight.Result, *flight) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.cur
	if f == nil {
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		s.seq++
		f = &flight{key: fmt.Sprintf("%s#%d", s.URL, s.seq), cancel: cancel}
		s.cur = f
		ch := s.group.DoChan(f.key, func() (any, error) {
			defer func() {
				s.mu.Lock()
				if s.cur == f {
					s.cur = nil
				}
				s.mu.Unlock()
				cancel()
			}()
			return s.fetch(fctx)
		})
		f.waiters++
		return ch, f
	}
	// f is still current, so its fetch has not returned and DoChan joins it.
	f.waiters++
	return s.group.DoChan(f.key, func() (any, error) { return nil, errors.New("sample: flight ended") }), f
}

func (s *HTTPSource) leave(f *flight) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f.waiters--
	if f.waiters == 0 {
		f.cancel()
		if s.cur == f {
			s.cur = nil
		}
	}
}

func (s *HTTPSource) fetch(ctx context.Context) ([]model.Draft, error) {
	log := s.logger()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if s.Token != nil {
		if tok := s.Token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	start := time.Now()
	resp, err := s.client().Do(req)
	if err != nil {
		log.Warn("sample request failed", zap.String("url", s.URL), zap.Error(err))
		return nil, fmt.Errorf("get %s: %w", s.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Warn("sample request rejected", zap.String("url", s.URL), zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("get %s: %w: %s", s.URL, ErrStatus, resp.Status)
	}

	var items []item
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(&items); err != nil {
		return nil, fmt.Errorf("decode sample items: %w", err)
	}
	log.Debug("sample fetched",
		zap.String("url", s.URL),
		zap.Int("count", len(items)),
		zap.Duration("took", time.Since(start)))
	return toDrafts(items), nil
}

// toDrafts maps remote items to drafts, keeping their order.
func toDrafts(items []item) []model.Draft {
	out := make([]model.Draft, 0, len(items))
	for _, it := range items {
		out = append(out, model.Draft{
			Title: it.Title,
			Notes: ImportedNotes,
			Done:  it.Completed,
		})
	}
	return out
}

func (s *HTTPSource) client() *http.Client {
	if s.Client != nil {
		return s.Client
	}
	return http.DefaultClient
}

func (s *HTTPSource) logger() *zap.Logger {
	if s.Log != nil {
		return s.Log
	}
	return zap.NewNop()
}
