// Package work provides the async work pool for gazette.
//
// Fetching and ingestion run as work items on a shared pool of workers, so
// UIs can observe what the pipeline is doing without owning goroutines of
// their own. State changes are logged via internal/logging since the TUI
// may be covering the terminal.
package work

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/abelbrown/gazette/internal/logging"
)

// Type categorizes work items for display.
type Type string

const (
	TypeFetch  Type = "fetch"  // fetching a feed
	TypeIngest Type = "ingest" // archiving a channel's items
)

// Status is the lifecycle state of a work item.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Item is one unit of async work.
type Item struct {
	ID          string
	Type        Type
	Description string
	Status      Status
	CreatedAt   time.Time
	StartedAt   time.Time
	CompletedAt time.Time
	Result      string
	Err         error

	fn func() (string, error)
}

// Duration reports how long the item ran (or has been running).
func (it *Item) Duration() time.Duration {
	if it.StartedAt.IsZero() {
		return 0
	}
	if it.CompletedAt.IsZero() {
		return time.Since(it.StartedAt)
	}
	return it.CompletedAt.Sub(it.StartedAt)
}

// Event notifies subscribers of an item state change.
type Event struct {
	Item   *Item
	Change string // "created", "started", "completed", "failed"
}

// Pool runs work items on a fixed set of workers.
type Pool struct {
	workers int

	workChan chan *Item

	subscribersMu sync.RWMutex
	subscribers   []chan Event

	totalCompleted int64
	totalFailed    int64

	stopOnce sync.Once
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewPool creates a pool with the given number of workers (minimum 1).
func NewPool(workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{
		workers:  workers,
		workChan: make(chan *Item, 64),
		stopChan: make(chan struct{}),
	}
}

// Start launches the worker goroutines.
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	logging.Info("work pool started", "workers", p.workers)
}

// Stop shuts the pool down and waits for in-flight work to finish. Queued
// but unstarted items are dropped.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() { close(p.stopChan) })
	p.wg.Wait()
	logging.Info("work pool stopped",
		"completed", atomic.LoadInt64(&p.totalCompleted),
		"failed", atomic.LoadInt64(&p.totalFailed))
}

// Submit queues a work item and returns its ID. Blocks if the queue is full
// rather than dropping work.
func (p *Pool) Submit(typ Type, desc string, fn func() (string, error)) string {
	item := &Item{
		ID:          uuid.NewString(),
		Type:        typ,
		Description: desc,
		Status:      StatusPending,
		CreatedAt:   time.Now(),
		fn:          fn,
	}
	p.notify(Event{Item: item, Change: "created"})

	select {
	case p.workChan <- item:
	case <-p.stopChan:
	}
	return item.ID
}

// Subscribe returns a channel of events. Slow subscribers miss events
// rather than blocking the pool.
func (p *Pool) Subscribe() <-chan Event {
	ch := make(chan Event, 32)
	p.subscribersMu.Lock()
	p.subscribers = append(p.subscribers, ch)
	p.subscribersMu.Unlock()
	return ch
}

func (p *Pool) notify(ev Event) {
	p.subscribersMu.RLock()
	defer p.subscribersMu.RUnlock()
	for _, ch := range p.subscribers {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.stopChan:
			return
		case item := <-p.workChan:
			p.run(item)
		}
	}
}

func (p *Pool) run(item *Item) {
	item.Status = StatusRunning
	item.StartedAt = time.Now()
	p.notify(Event{Item: item, Change: "started"})
	logging.Debug("work started", "id", item.ID, "type", item.Type, "desc", item.Description)

	result, err := item.fn()
	item.CompletedAt = time.Now()

	if err != nil {
		item.Status = StatusFailed
		item.Err = err
		atomic.AddInt64(&p.totalFailed, 1)
		p.notify(Event{Item: item, Change: "failed"})
		logging.Error("work failed",
			"id", item.ID, "type", item.Type, "desc", item.Description,
			"error", err, "duration", item.Duration())
		return
	}

	item.Status = StatusCompleted
	item.Result = result
	atomic.AddInt64(&p.totalCompleted, 1)
	p.notify(Event{Item: item, Change: "completed"})
	logging.Debug("work completed",
		"id", item.ID, "type", item.Type, "desc", item.Description,
		"result", result, "duration", item.Duration())
}
