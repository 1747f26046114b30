package jobqueue

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/ManuelReschke/LingoFox/internal/pkg/env"
)

// Manager owns the queue and its periodic background tasks
type Manager struct {
	queue         *Queue
	statsInterval time.Duration
	statsTicker   *time.Ticker
	stopCh        chan struct{}
	wg            sync.WaitGroup
	mu            sync.Mutex
	running       bool
}

// WorkerCount reads JOB_WORKERS, falling back to DefaultWorkers.
func WorkerCount() int {
	n := env.GetEnvInt("JOB_WORKERS", DefaultWorkers)
	if n <= 0 {
		return DefaultWorkers
	}
	return n
}

// NewManager creates a manager around a fresh queue on client.
func NewManager(client *redis.Client, workers int) *Manager {
	return &Manager{
		queue:         NewQueue(client, workers),
		statsInterval: 5 * time.Minute,
	}
}

// GetQueue returns the managed job queue
func (m *Manager) GetQueue() *Queue {
	return m.queue
}

// Start starts the job queue and background tasks
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	m.stopCh = make(chan struct{})
	m.running = true
	log.Info("[JobQueue Manager] Starting job queue and background tasks")

	m.queue.Start()

	m.statsTicker = time.NewTicker(m.statsInterval)
	m.wg.Add(1)
	go m.statsWorker()

	log.Info("[JobQueue Manager] Started successfully")
}

// Stop stops the job queue and background tasks
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	log.Info("[JobQueue Manager] Stopping job queue and background tasks...")

	if m.statsTicker != nil {
		m.statsTicker.Stop()
	}

	close(m.stopCh)
	m.running = false
	m.wg.Wait()

	m.queue.Stop()

	log.Info("[JobQueue Manager] Stopped successfully")
}

// statsWorker logs queue depth periodically
func (m *Manager) statsWorker() {
	defer m.wg.Done()
	for {
		select {
		case <-m.stopCh:
			return
		case <-m.statsTicker.C:
			ctx := context.Background()
			pending, err := m.queue.GetQueueSize(ctx)
			if err != nil {
				log.Errorf("[JobQueue Manager] Failed to read queue size: %v", err)
				continue
			}
			processing, _ := m.queue.GetProcessingSize(ctx)
			stats, _ := m.queue.GetJobStats(ctx)
			log.Infof("[JobQueue Manager] pending=%d processing=%d completed=%d failed=%d",
				pending, processing, stats[JobStatusCompleted], stats[JobStatusFailed])
		}
	}
}

// IsRunning returns whether the manager is currently running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}
