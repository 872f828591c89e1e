package activity

import (
	"runtime"
	"sync"
	"time"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"

	"github.com/socialpulse/pulsex/pkg/db"
	"github.com/socialpulse/pulsex/pkg/pipeline/phase"
	"github.com/socialpulse/pulsex/pkg/pipeline/types"
	"github.com/socialpulse/pulsex/pkg/redis"
	temporalclient "github.com/socialpulse/pulsex/pkg/temporal"
)

// SnapshotLookback is how far behind the analysis date the delta steps read
// raw snapshots. Two days heals captures that landed after the previous run.
const SnapshotLookback = 48 * time.Hour

type Context struct {
	Logger *zap.Logger
	DB     db.MetricsStore
	// For publishing run events and mirroring summaries
	RedisClient *redis.Client
	// For scheduling and triggering workflows
	TemporalClient *temporalclient.Client
	// SummaryMaxParallelism allows overriding the default summary pool size.
	SummaryMaxParallelism int
	summaryPoolOnce       sync.Once
	summaryPool           pond.Pool
}

// summaryWorkerPool returns the shared worker pool used to fan out per-owner
// summary computation.
func (c *Context) summaryWorkerPool() pond.Pool {
	c.summaryPoolOnce.Do(func() {
		c.summaryPool = pond.NewPool(SummaryParallelism(c.SummaryMaxParallelism))
	})
	return c.summaryPool
}

// SummaryParallelism calculates the worker count of the summary pool. The work
// is ClickHouse-read dominated, so a small multiple of the CPU count is enough.
func SummaryParallelism(override int) int {
	if override > 0 {
		if override > 64 {
			return 64
		}
		return override
	}

	n := runtime.NumCPU()
	if n < 1 {
		n = 1
	}

	parallelism := n * 2
	if parallelism < 2 {
		parallelism = 2
	}
	if parallelism > 64 {
		parallelism = 64
	}
	return parallelism
}

// analysisDate resolves the UTC calendar date an activity operates on.
func analysisDate(in types.StepInput) (time.Time, error) {
	if in.AnalysisDate == "" {
		return phase.DateOf(time.Now()), nil
	}
	d, err := time.ParseInLocation("2006-01-02", in.AnalysisDate, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	return d, nil
}

func durationMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
