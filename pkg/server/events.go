package server

import (
	"hash/fnv"
	"sync"
	"time"

	"github.com/decred/slog"
)

// ContractEvent is an immutable notification fan-out request.
type ContractEvent struct {
	Type         NotificationType
	ContractKey  string
	Recipients   []string
	Notification *Notification
	Timestamp    time.Time
}

// EventHandler defines the interface for handling events
type EventHandler interface {
	HandleEvent(event *ContractEvent)
}

// EventProcessor delivers contract events on a fixed set of workers. All
// events of one contract go to the same worker so peers observe them in the
// order they were published. With no workers events are handled inline.
type EventProcessor struct {
	log      slog.Logger
	handler  EventHandler
	workers  []*eventWorker
	stopChan chan struct{}
	wg       sync.WaitGroup
	started  bool
	mu       sync.Mutex
}

// eventWorker processes events from its own queue
type eventWorker struct {
	id        int
	processor *EventProcessor
	queue     chan *ContractEvent
	wg        *sync.WaitGroup
}

// NewEventProcessor creates a new event processor
func NewEventProcessor(log slog.Logger, handler EventHandler, queueSize, workerCount int) *EventProcessor {
	processor := &EventProcessor{
		log:      log,
		handler:  handler,
		stopChan: make(chan struct{}),
	}

	processor.workers = make([]*eventWorker, workerCount)
	for i := 0; i < workerCount; i++ {
		processor.workers[i] = &eventWorker{
			id:        i,
			processor: processor,
			queue:     make(chan *ContractEvent, queueSize),
			wg:        &processor.wg,
		}
	}

	return processor
}

// Start begins processing events
func (ep *EventProcessor) Start() {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	if ep.started {
		return
	}

	ep.started = true
	ep.log.Infof("Starting event processor with %d workers", len(ep.workers))

	for _, worker := range ep.workers {
		ep.wg.Add(1)
		go worker.run()
	}
}

// Stop delivers the events already queued and stops the workers.
func (ep *EventProcessor) Stop() {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	if !ep.started {
		return
	}

	ep.log.Infof("Stopping event processor...")
	close(ep.stopChan)
	ep.wg.Wait()

	ep.started = false
	ep.stopChan = make(chan struct{})
	ep.log.Infof("Event processor stopped")
}

func (ep *EventProcessor) workerFor(key string) *eventWorker {
	h := fnv.New32a()
	h.Write([]byte(key))
	return ep.workers[h.Sum32()%uint32(len(ep.workers))]
}

// PublishEvent publishes an event for processing and reports whether it
// was accepted. Accepted events are handled before Stop returns.
func (ep *EventProcessor) PublishEvent(event *ContractEvent) bool {
	if len(ep.workers) == 0 {
		ep.handler.HandleEvent(event)
		return true
	}

	// Held through the send so Stop cannot drain the queue in between.
	ep.mu.Lock()
	defer ep.mu.Unlock()

	if !ep.started {
		ep.log.Warnf("Event processor not started, dropping event: %v", event.Type)
		return false
	}

	w := ep.workerFor(event.ContractKey)
	select {
	case w.queue <- event:
		ep.log.Debugf("Published event: %s for contract %s to worker %d", event.Type, event.ContractKey, w.id)
		return true
	default:
		ep.log.Errorf("Event queue full, dropping event: %s for contract %s", event.Type, event.ContractKey)
		return false
	}
}

// run executes the worker loop
func (w *eventWorker) run() {
	defer w.wg.Done()
	w.processor.log.Debugf("Event worker %d started", w.id)

	for {
		select {
		case <-w.processor.stopChan:
			for {
				select {
				case event := <-w.queue:
					w.processEvent(event)
				default:
					w.processor.log.Debugf("Event worker %d stopping", w.id)
					return
				}
			}

		case event := <-w.queue:
			w.processEvent(event)
		}
	}
}

func (w *eventWorker) processEvent(event *ContractEvent) {
	if event == nil {
		return
	}
	w.processor.log.Tracef("Worker %d processing event: %s for contract %s", w.id, event.Type, event.ContractKey)
	w.processor.handler.HandleEvent(event)
}
