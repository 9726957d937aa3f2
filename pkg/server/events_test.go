package server

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	mu     sync.Mutex
	events []*ContractEvent
}

func (h *recordingHandler) HandleEvent(event *ContractEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
}

func (h *recordingHandler) keys(contractKey string) []NotificationType {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []NotificationType
	for _, e := range h.events {
		if e.ContractKey == contractKey {
			out = append(out, e.Type)
		}
	}
	return out
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.events)
}

func TestEventProcessorInline(t *testing.T) {
	h := &recordingHandler{}
	ep := NewEventProcessor(createTestLogBackend().Logger("EVNT"), h, 10, 0)

	// No workers: delivery happens on the publishing goroutine, even before Start.
	ep.PublishEvent(&ContractEvent{Type: NotifyBet, ContractKey: "a/1"})
	assert.Equal(t, 1, h.count())
}

func TestEventProcessorDropsBeforeStart(t *testing.T) {
	h := &recordingHandler{}
	ep := NewEventProcessor(createTestLogBackend().Logger("EVNT"), h, 10, 2)

	assert.False(t, ep.PublishEvent(&ContractEvent{Type: NotifyBet, ContractKey: "a/1"}))
	ep.Start()
	ep.Stop()
	assert.Zero(t, h.count())
}

func TestEventProcessorOrderPerContract(t *testing.T) {
	h := &recordingHandler{}
	ep := NewEventProcessor(createTestLogBackend().Logger("EVNT"), h, 1000, 4)
	ep.Start()

	types := []NotificationType{NotifyEncryptStore, NotifySelectStore, NotifyDecryptStore, NotifyBet, NotifyKeychainStore}
	for i := 0; i < 20; i++ {
		key := fmt.Sprintf("owner/%d", i)
		for _, typ := range types {
			ep.PublishEvent(&ContractEvent{Type: typ, ContractKey: key})
		}
	}
	// Stop delivers everything already queued.
	ep.Stop()

	require.Equal(t, 20*len(types), h.count())
	for i := 0; i < 20; i++ {
		assert.Equal(t, types, h.keys(fmt.Sprintf("owner/%d", i)))
	}
}

func TestEventProcessorRestart(t *testing.T) {
	h := &recordingHandler{}
	ep := NewEventProcessor(createTestLogBackend().Logger("EVNT"), h, 10, 1)
	ep.Start()
	ep.Stop()
	ep.Stop()

	ep.Start()
	ep.PublishEvent(&ContractEvent{Type: NotifyEnd, ContractKey: "a/1"})
	ep.Stop()
	assert.Equal(t, 1, h.count())
}

func TestEventProcessorStopDuringPublish(t *testing.T) {
	h := &recordingHandler{}
	ep := NewEventProcessor(createTestLogBackend().Logger("EVNT"), h, 10000, 4)
	ep.Start()

	var (
		wg       sync.WaitGroup
		accepted atomic.Int64
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				if ep.PublishEvent(&ContractEvent{Type: NotifyBet, ContractKey: fmt.Sprintf("p%d/%d", i, j)}) {
					accepted.Add(1)
				}
			}
		}()
	}
	ep.Stop()
	wg.Wait()

	// Nothing accepted is left behind in a queue no worker reads.
	assert.Equal(t, int(accepted.Load()), h.count())
}

func TestWorkerForIsStable(t *testing.T) {
	ep := NewEventProcessor(createTestLogBackend().Logger("EVNT"), &recordingHandler{}, 1, 8)
	for i := 0; i < 50; i++ {
		key := fmt.Sprintf("p/%d", i)
		assert.Same(t, ep.workerFor(key), ep.workerFor(key))
	}
}
