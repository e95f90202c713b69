package dberr

import (
	"sync"
	"time"

	"github.com/yuzvak/pdv-service/internal/pkg/clock"
	"github.com/yuzvak/pdv-service/internal/pkg/logger"
)

const DefaultCooldown = 5 * time.Second

// Reporter logs classified connection errors at most once per cooldown for
// each (kind, target) pair.
type Reporter struct {
	log      *logger.Logger
	clock    clock.Clock
	target   Target
	cooldown time.Duration

	mu   sync.Mutex
	last map[string]time.Time
}

func NewReporter(log *logger.Logger, clk clock.Clock, target Target, cooldown time.Duration) *Reporter {
	return &Reporter{
		log:      log,
		clock:    clk,
		target:   target,
		cooldown: cooldown,
		last:     make(map[string]time.Time),
	}
}

// Report classifies err and logs it unless the same class was logged within
// the cooldown. It reports whether a log line was written.
func (r *Reporter) Report(err error, context string) (Classification, bool) {
	c := Classify(err, r.target)
	key := string(c.Type) + "-" + r.target.Addr()
	now := r.clock.Now()

	r.mu.Lock()
	last, seen := r.last[key]
	if seen && now.Sub(last) < r.cooldown {
		r.mu.Unlock()
		return c, false
	}
	r.last[key] = now
	r.mu.Unlock()

	r.log.Error("Database connection error",
		"context", context,
		"target", r.target.Addr(),
		"database", r.target.Database,
		"type", string(c.Type),
		"message", c.Message,
		"hint", c.Hint,
		"code", c.Code,
		"error", err,
	)
	return c, true
}

func (r *Reporter) Target() Target {
	return r.target
}
