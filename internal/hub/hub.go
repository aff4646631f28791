package hub

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"portal/pkg/interfaces"
	"portal/pkg/logger"
	"portal/pkg/types"
)

const (
	DefaultWorkers   = 4
	DefaultQueueSize = 1000
)

// Hub moves message events off the socket read loops and onto a fixed pool of
// dispatch workers.
// ARCHITECTURAL DISCOVERY: Events are sharded by sender so one user's sends are
// dispatched in order while different users proceed in parallel
type Hub struct {
	dispatcher interfaces.MessageDispatcher
	queues     []chan *MessageContext

	shutdownChannel chan struct{}
	workers         *sync.WaitGroup

	running bool
	mu      sync.RWMutex
	log     zerolog.Logger
}

// MessageContext pairs an event with the connection it arrived on
type MessageContext struct {
	Sender    interfaces.Connection
	Event     *types.MessageEvent
	Timestamp time.Time
}

// NewHub creates a hub with workers shards of queueSize buffered events each
func NewHub(dispatcher interfaces.MessageDispatcher, workers, queueSize int) *Hub {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}

	queues := make([]chan *MessageContext, workers)
	for i := range queues {
		queues[i] = make(chan *MessageContext, queueSize)
	}

	return &Hub{
		dispatcher: dispatcher,
		queues:     queues,
		log:        logger.Component("hub"),
	}
}

// Start launches one worker per shard. ctx only carries values into dispatch;
// the workers run until Stop.
func (h *Hub) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.running {
		return ErrHubAlreadyRunning
	}
	h.running = true
	h.shutdownChannel = make(chan struct{})
	// Each run gets its own WaitGroup so a Start racing a Stop never reuses one
	h.workers = &sync.WaitGroup{}

	for i, queue := range h.queues {
		h.workers.Add(1)
		go h.run(ctx, i, queue, h.shutdownChannel, h.workers)
	}

	h.log.Info().Int("workers", len(h.queues)).Msg("message hub started")
	return nil
}

// Stop signals the workers, lets them drain what is already queued and waits
// for them to exit
func (h *Hub) Stop() error {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return ErrHubNotRunning
	}
	h.running = false
	close(h.shutdownChannel)
	workers := h.workers
	h.mu.Unlock()

	workers.Wait()
	h.log.Info().Msg("message hub stopped")
	return nil
}

// Submit queues event for dispatch without blocking. A full shard returns
// ErrMessageChannelFull and the caller tells the client to retry.
func (h *Hub) Submit(sender interfaces.Connection, event *types.MessageEvent) error {
	if sender == nil {
		return ErrNilSender
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.running {
		return ErrHubNotRunning
	}

	messageCtx := &MessageContext{
		Sender:    sender,
		Event:     event,
		Timestamp: time.Now(),
	}

	// TECHNICAL DISCOVERY: Non-blocking send with error handling prevents read loop lockup
	select {
	case h.queues[h.shard(sender.GetUserID())] <- messageCtx:
		return nil
	default:
		h.log.Warn().Str("user_id", sender.GetUserID()).Msg("dispatch queue full")
		return ErrMessageChannelFull
	}
}

// QueueDepth is the number of events waiting across all shards
func (h *Hub) QueueDepth() int {
	depth := 0
	for _, queue := range h.queues {
		depth += len(queue)
	}
	return depth
}

func (h *Hub) IsRunning() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.running
}

func (h *Hub) shard(userID string) int {
	hasher := fnv.New32a()
	_, _ = hasher.Write([]byte(userID))
	return int(hasher.Sum32() % uint32(len(h.queues)))
}

func (h *Hub) run(ctx context.Context, worker int, queue chan *MessageContext, shutdown chan struct{}, workers *sync.WaitGroup) {
	defer workers.Done()

	// Dispatch outlives the caller's cancellation so a queued event is either
	// persisted or answered with an error
	dispatchCtx := context.WithoutCancel(ctx)

	for {
		select {
		case messageCtx := <-queue:
			h.handleMessage(dispatchCtx, messageCtx)

		case <-shutdown:
			drained := h.drain(dispatchCtx, queue)
			h.log.Debug().Int("worker", worker).Int("drained", drained).Msg("hub worker stopped")
			return
		}
	}
}

func (h *Hub) drain(ctx context.Context, queue chan *MessageContext) int {
	drained := 0
	for {
		select {
		case messageCtx := <-queue:
			h.handleMessage(ctx, messageCtx)
			drained++
		default:
			return drained
		}
	}
}

// handleMessage never lets one failed event stop the worker; the dispatcher
// already reported the failure to the sender
func (h *Hub) handleMessage(ctx context.Context, messageCtx *MessageContext) {
	if err := h.dispatcher.Dispatch(ctx, messageCtx.Sender, messageCtx.Event); err != nil {
		h.log.Debug().
			Err(err).
			Str("user_id", messageCtx.Sender.GetUserID()).
			Dur("queued", time.Since(messageCtx.Timestamp)).
			Msg("dispatch rejected event")
	}
}
