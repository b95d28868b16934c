package services

import (
	"context"
	"log"
	"sync"
	"time"

	"podsync-backend/internal/models"
)

const downloadJobTimeout = 10 * time.Minute

// QueueStore is the download queue persistence surface. PickNext returns
// (nil, nil) when the queue is empty.
type QueueStore interface {
	Enqueue(ctx context.Context, episodeID int64) (*models.QueueItem, error)
	PickNext(ctx context.Context) (*models.QueueItem, error)
	MarkCompleted(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, attempts int, reason string) error
	GetStats(ctx context.Context) (*models.QueueStats, error)
}

// EpisodeDownloader runs a single episode download to completion.
type EpisodeDownloader interface {
	DownloadEpisode(ctx context.Context, episodeID int64) (string, error)
}

// QueueService manages background download workers. Workers poll the
// download_queue table and run episode downloads through the same command
// layer the API uses, so queued downloads respect the admission cap and
// report progress like interactive ones.
type QueueService struct {
	queue        QueueStore
	episodes     EpisodeDownloader
	workerCount  int
	pollInterval time.Duration
	stopCh       chan struct{}
	wg           sync.WaitGroup
}

// NewQueueService creates the worker pool. workerCount <= 0 selects 2
// workers, pollInterval <= 0 selects 5 seconds.
func NewQueueService(queue QueueStore, episodes EpisodeDownloader, workerCount int, pollInterval time.Duration) *QueueService {
	if workerCount <= 0 {
		workerCount = 2
	}
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	return &QueueService{
		queue:        queue,
		episodes:     episodes,
		workerCount:  workerCount,
		pollInterval: pollInterval,
		stopCh:       make(chan struct{}),
	}
}

// Start launches the background download workers.
func (s *QueueService) Start() {
	log.Printf("[Queue] Starting %d download workers (poll interval %s)", s.workerCount, s.pollInterval)
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}
}

// Stop gracefully shuts down all workers. In-flight downloads finish.
func (s *QueueService) Stop() {
	close(s.stopCh)
	s.wg.Wait()
	log.Println("[Queue] All workers stopped")
}

// Enqueue adds an episode to the download queue. Enqueueing an episode
// that already has a pending or processing entry is a no-op and returns
// the existing entry.
func (s *QueueService) Enqueue(ctx context.Context, episodeID int64) (*models.QueueItem, error) {
	item, err := s.queue.Enqueue(ctx, episodeID)
	if err != nil {
		return nil, err
	}
	log.Printf("[Queue] Episode %d queued for download (item %d)", episodeID, item.ID)
	return item, nil
}

// GetStats returns aggregate queue counts for the status endpoints.
func (s *QueueService) GetStats(ctx context.Context) (*models.QueueStats, error) {
	return s.queue.GetStats(ctx)
}

func (s *QueueService) worker(id int) {
	defer s.wg.Done()
	log.Printf("[Queue] Worker %d started", id)

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			log.Printf("[Queue] Worker %d stopping", id)
			return
		case <-ticker.C:
			s.processOne(id)
		}
	}
}

// processOne atomically claims and downloads a single pending queue item.
func (s *QueueService) processOne(workerID int) {
	claimCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	item, err := s.queue.PickNext(claimCtx)
	cancel()
	if err != nil {
		log.Printf("[Queue] Worker %d: PickNext error: %v", workerID, err)
		return
	}
	if item == nil {
		return
	}

	log.Printf("[Queue] Worker %d: downloading episode %d (attempt %d)", workerID, item.EpisodeID, item.Attempts)

	ctx, cancel := context.WithTimeout(context.Background(), downloadJobTimeout)
	path, err := s.episodes.DownloadEpisode(ctx, item.EpisodeID)
	cancel()

	reportCtx, reportCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer reportCancel()

	if err != nil {
		log.Printf("[Queue] Worker %d: episode %d failed: %v", workerID, item.EpisodeID, err)
		if mErr := s.queue.MarkFailed(reportCtx, item.ID, item.Attempts, err.Error()); mErr != nil {
			log.Printf("[Queue] Worker %d: failed to record failure for item %d: %v", workerID, item.ID, mErr)
		}
		return
	}

	if err := s.queue.MarkCompleted(reportCtx, item.ID); err != nil {
		log.Printf("[Queue] Worker %d: failed to mark item %d completed: %v", workerID, item.ID, err)
		return
	}
	log.Printf("[Queue] Worker %d: episode %d downloaded to %s", workerID, item.EpisodeID, path)
}
