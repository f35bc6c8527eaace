package httpadapter

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/couchcryptid/healthmap-risk-service/internal/domain"
	"github.com/patrickmn/go-cache"
)

const correlationKey = "correlation"

// correlationCache holds the last correlation snapshot until it expires or a
// write invalidates it. A nil cache always recomputes.
//
// gen counts invalidations. A snapshot computed across an invalidation is
// returned to its caller but not stored.
type correlationCache struct {
	c *cache.Cache

	mu  sync.Mutex
	gen uint64
}

func newCorrelationCache(ttl time.Duration) *correlationCache {
	if ttl <= 0 {
		return nil
	}
	return &correlationCache{c: cache.New(ttl, 2*ttl)}
}

func (cc *correlationCache) get(ctx context.Context, compute func(context.Context) (domain.Correlation, error)) (domain.Correlation, error) {
	if cc == nil {
		return compute(ctx)
	}
	if v, ok := cc.c.Get(correlationKey); ok {
		return v.(domain.Correlation), nil
	}
	cc.mu.Lock()
	started := cc.gen
	cc.mu.Unlock()

	result, err := compute(ctx)
	if err != nil {
		return domain.Correlation{}, err
	}

	cc.mu.Lock()
	if cc.gen == started {
		cc.c.SetDefault(correlationKey, result)
	}
	cc.mu.Unlock()
	return result, nil
}

func (cc *correlationCache) invalidate() {
	if cc == nil {
		return
	}
	cc.mu.Lock()
	cc.gen++
	cc.c.Flush()
	cc.mu.Unlock()
}

func (s *Server) dashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.AssessmentStats(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) riskDistribution(w http.ResponseWriter, r *http.Request) {
	dist, err := s.svc.RiskDistribution(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dist)
}

func (s *Server) correlations(w http.ResponseWriter, r *http.Request) {
	result, err := s.cache.get(r.Context(), s.svc.Correlate)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
