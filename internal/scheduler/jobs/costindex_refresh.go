package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/terrabuild/terrafusion/backend/internal/costmodel"
	"github.com/terrabuild/terrafusion/backend/internal/external/costindex"
	"github.com/terrabuild/terrafusion/backend/pkg/logger"
)

// costTableStore persists refreshed index rows as new cost-table versions
type costTableStore interface {
	BulkImport(ctx context.Context, entries []costmodel.CostTableEntry) (int, error)
}

// CostIndexRefreshJob pulls the published construction cost indices for every
// known jurisdiction and imports them as new cost-table versions, so rate
// lookups and assembled parameters pick up the refreshed figures. Failures of
// a single jurisdiction are tolerated; the job fails only when no
// jurisdiction could be refreshed.
type CostIndexRefreshJob struct {
	client   *costindex.Client
	store    costTableStore
	schedule string
	logger   *logger.Logger
}

// NewCostIndexRefreshJob creates a new cost index refresh job
func NewCostIndexRefreshJob(
	client *costindex.Client,
	store costTableStore,
	schedule string,
	log *logger.Logger,
) *CostIndexRefreshJob {
	return &CostIndexRefreshJob{
		client:   client,
		store:    store,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *CostIndexRefreshJob) Name() string {
	return "cost_index_refresh"
}

// Schedule returns the configured cron schedule
func (j *CostIndexRefreshJob) Schedule() string {
	return j.schedule
}

// Run executes the refresh
func (j *CostIndexRefreshJob) Run(ctx context.Context) error {
	now := time.Now()
	year := now.Year()

	refreshed := 0
	for _, jurisdiction := range costindex.Jurisdictions {
		entries, err := j.client.FetchIndices(ctx, jurisdiction.Code, year)
		if err != nil {
			j.logger.WithError(err).WithField("jurisdiction", jurisdiction.Code).
				Warn("Cost index refresh failed for jurisdiction")
			continue
		}

		rows := make([]costmodel.CostTableEntry, 0, len(entries))
		for _, entry := range entries {
			rows = append(rows, costmodel.CostTableEntry{
				PropertyType:  entry.PropertyType,
				Region:        jurisdiction.Code,
				Year:          entry.Year,
				CostPerSqft:   entry.Index,
				Source:        fmt.Sprintf("%s cost index", jurisdiction.Name),
				EffectiveDate: now,
			})
		}

		imported, err := j.store.BulkImport(ctx, rows)
		if err != nil {
			j.logger.WithError(err).WithField("jurisdiction", jurisdiction.Code).
				Warn("Failed to import refreshed cost indices")
			continue
		}

		j.logger.WithFields(map[string]interface{}{
			"jurisdiction": jurisdiction.Code,
			"imported":     imported,
		}).Info("Cost indices refreshed")
		refreshed++
	}

	if refreshed == 0 {
		return fmt.Errorf("cost index refresh failed for all %d jurisdictions", len(costindex.Jurisdictions))
	}

	return nil
}
