package monitoring

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"podsync-backend/internal/models"
)

// QueueStatsSource reports download queue counters for the queue depth gauge
type QueueStatsSource interface {
	GetStats(ctx context.Context) (*models.QueueStats, error)
}

// Monitor samples host resources on an interval and feeds both the
// Prometheus registry and the metrics store. Disk usage is sampled at the
// download root, the partition that actually fills up.
type Monitor struct {
	store        *MetricsStore
	prom         *Metrics
	queue        QueueStatsSource
	downloadRoot string
	interval     time.Duration

	stopCh chan struct{}
	wg     sync.WaitGroup
}

func NewMonitor(store *MetricsStore, prom *Metrics, queue QueueStatsSource, downloadRoot string, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Monitor{
		store:        store,
		prom:         prom,
		queue:        queue,
		downloadRoot: downloadRoot,
		interval:     interval,
		stopCh:       make(chan struct{}),
	}
}

// Start launches the background collection loop
func (m *Monitor) Start() {
	m.wg.Add(1)
	go m.run()
	log.Printf("[Monitoring] System monitor started (interval %s)", m.interval)
}

// Stop halts collection and waits for the loop to exit
func (m *Monitor) Stop() {
	close(m.stopCh)
	m.wg.Wait()
	log.Println("[Monitoring] System monitor stopped")
}

func (m *Monitor) run() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.collect()
	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.collect()
		}
	}
}

func (m *Monitor) collect() {
	cpuPercents, _ := cpu.Percent(time.Second, false)
	cpuPct := 0.0
	if len(cpuPercents) > 0 {
		cpuPct = cpuPercents[0]
	}

	var memUsed, memTotal uint64
	if memStats, err := mem.VirtualMemory(); err == nil {
		memUsed, memTotal = memStats.Used, memStats.Total
	}

	var diskUsed, diskTotal uint64
	if diskStats, err := disk.Usage(m.downloadRoot); err == nil {
		diskUsed, diskTotal = diskStats.Used, diskStats.Total
	}

	if err := m.store.RecordSystemMetrics(cpuPct, memUsed, memTotal, diskUsed, diskTotal); err != nil {
		log.Printf("[Monitoring] Failed to record system metrics: %v", err)
	}

	if m.queue != nil && m.prom != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if stats, err := m.queue.GetStats(ctx); err == nil {
			m.prom.SetQueueDepth(stats.Pending, stats.Processing, stats.Completed, stats.Failed)
		}
	}
}
