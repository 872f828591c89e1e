package metrics

import "github.com/socialpulse/pulsex/pkg/db"

// DB satisfies the storage contract the pipeline activities depend on.
var _ db.MetricsStore = (*DB)(nil)
