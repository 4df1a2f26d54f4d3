package jobs

import (
	"log"
	"sync"
	"time"

	"github.com/lukasbauer/voxlate/internal/artifacts"
)

// ArtifactCleanupJob deletes output files older than the retention period.
// Download links expire long before that, so nothing reachable is removed.
type ArtifactCleanupJob struct {
	store     *artifacts.FileStore
	retention time.Duration
	logger    *log.Logger
	interval  time.Duration
	now       func() time.Time
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

// NewArtifactCleanupJob creates a new cleanup job.
func NewArtifactCleanupJob(store *artifacts.FileStore, retention time.Duration, logger *log.Logger, interval time.Duration) *ArtifactCleanupJob {
	if interval == 0 {
		interval = 1 * time.Hour
	}
	return &ArtifactCleanupJob{
		store:     store,
		retention: retention,
		logger:    logger,
		interval:  interval,
		now:       time.Now,
		stopCh:    make(chan struct{}),
	}
}

// Start begins the background job.
func (j *ArtifactCleanupJob) Start() {
	j.wg.Add(1)
	go j.run()
	j.logger.Printf("ArtifactCleanupJob: started (retention=%v, interval=%v)", j.retention, j.interval)
}

// Stop gracefully stops the background job.
func (j *ArtifactCleanupJob) Stop() {
	close(j.stopCh)
	j.wg.Wait()
	j.logger.Println("ArtifactCleanupJob: stopped")
}

func (j *ArtifactCleanupJob) run() {
	defer j.wg.Done()

	// Run immediately on start
	j.processAll()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.processAll()
		case <-j.stopCh:
			return
		}
	}
}

// processAll removes every artifact last written before now - retention.
func (j *ArtifactCleanupJob) processAll() int {
	removed, err := j.store.RemoveOlderThan(j.now().Add(-j.retention))
	if err != nil {
		j.logger.Printf("ArtifactCleanupJob: cleanup failed: %v", err)
	}
	for _, kind := range removed {
		j.logger.Printf("ArtifactCleanupJob: removed %s", artifacts.FileName(kind))
	}
	return len(removed)
}
