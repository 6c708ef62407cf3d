package processing

import (
	"sync"
	"time"

	customlog "github.com/open-teleop/dronectl/pkg/log"
)

// MessageHandler delivers one message. Errors are counted and logged by the pool.
type MessageHandler func(msg *Message) error

// ProcessingPool is a bounded worker pool. Submitting never blocks: when the
// queue is full the message is dropped.
type ProcessingPool struct {
	name         string
	workerCount  int
	logger       customlog.Logger
	messageQueue chan *Message
	running      bool
	wg           sync.WaitGroup
	mu           sync.Mutex
	handler      MessageHandler
	queueSize    int
	metricsMu    sync.Mutex
	metrics      PoolMetrics
}

// PoolMetrics tracks metrics for a processing pool
type PoolMetrics struct {
	ProcessedCount    int64 `json:"processed"`
	ErrorCount        int64 `json:"errors"`
	QueuedCount       int64 `json:"queued"`
	DroppedCount      int64 `json:"dropped"`
	LastProcessedTime int64 `json:"last_processed_ns"`
	ProcessingTimeAvg int64 `json:"avg_time_us"`
	ProcessingTimeMax int64 `json:"max_time_us"`
}

// NewProcessingPool creates a new processing pool
func NewProcessingPool(name string, workerCount, queueSize int, handler MessageHandler, logger customlog.Logger) *ProcessingPool {
	if workerCount < 1 {
		workerCount = 1
	}
	return &ProcessingPool{
		name:         name,
		workerCount:  workerCount,
		queueSize:    queueSize,
		logger:       logger,
		handler:      handler,
		messageQueue: make(chan *Message, queueSize),
	}
}

// Submit queues msg for delivery. It reports false if the pool is stopped or full.
func (p *ProcessingPool) Submit(msg *Message) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		p.logger.Debugf("%s pool not running, discarding %s message", p.name, msg.Topic)
		return false
	}

	select {
	case p.messageQueue <- msg:
		p.metricsMu.Lock()
		p.metrics.QueuedCount++
		p.metricsMu.Unlock()
		return true
	default:
		p.metricsMu.Lock()
		p.metrics.DroppedCount++
		p.metricsMu.Unlock()
		p.logger.Warnf("%s pool queue is full, discarding %s message", p.name, msg.Topic)
		return false
	}
}

// Start starts the processing pool workers
func (p *ProcessingPool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return
	}

	p.running = true
	p.logger.Infof("Starting %s pool with %d workers", p.name, p.workerCount)

	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop drains the queue and waits for the workers. A stopped pool cannot be restarted.
func (p *ProcessingPool) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	// Submit holds mu while sending, so no send can race the close.
	close(p.messageQueue)
	p.mu.Unlock()

	p.logger.Infof("Stopping %s pool", p.name)
	p.wg.Wait()
	p.logMetrics()
}

func (p *ProcessingPool) worker(id int) {
	defer p.wg.Done()

	p.logger.Debugf("%s pool worker %d started", p.name, id)

	for msg := range p.messageQueue {
		startTime := time.Now()
		err := p.handler(msg)
		processingTime := time.Since(startTime).Microseconds()

		p.metricsMu.Lock()
		p.metrics.ProcessedCount++
		p.metrics.LastProcessedTime = time.Now().UnixNano()
		if p.metrics.ProcessingTimeAvg == 0 {
			p.metrics.ProcessingTimeAvg = processingTime
		} else {
			// Simple moving average
			p.metrics.ProcessingTimeAvg = (p.metrics.ProcessingTimeAvg + processingTime) / 2
		}
		if processingTime > p.metrics.ProcessingTimeMax {
			p.metrics.ProcessingTimeMax = processingTime
		}
		if err != nil {
			p.metrics.ErrorCount++
		}
		p.metricsMu.Unlock()

		if err != nil {
			p.logger.Errorf("Error delivering %s message in %s pool: %v", msg.Topic, p.name, err)
		}
	}

	p.logger.Debugf("%s pool worker %d stopped", p.name, id)
}

// GetMetrics returns a copy of the current metrics
func (p *ProcessingPool) GetMetrics() PoolMetrics {
	p.metricsMu.Lock()
	defer p.metricsMu.Unlock()

	return p.metrics
}

func (p *ProcessingPool) logMetrics() {
	metrics := p.GetMetrics()

	p.logger.Infof("%s pool metrics: processed=%d, errors=%d, dropped=%d, avg_time=%dµs, max_time=%dµs",
		p.name, metrics.ProcessedCount, metrics.ErrorCount, metrics.DroppedCount,
		metrics.ProcessingTimeAvg, metrics.ProcessingTimeMax)
}

// GetName returns the pool name
func (p *ProcessingPool) GetName() string {
	return p.name
}

// GetQueueLength returns the current length of the message queue
func (p *ProcessingPool) GetQueueLength() int {
	return len(p.messageQueue)
}

// GetQueueCapacity returns the capacity of the message queue
func (p *ProcessingPool) GetQueueCapacity() int {
	return p.queueSize
}
