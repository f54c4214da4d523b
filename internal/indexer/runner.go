package indexer

import (
	"context"
	"errors"
	"log"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"cooler-indexer/internal/chain"
	"cooler-indexer/internal/observability"
)

// LogSubscriber is a push source of factory logs, backed by a WebSocket
// connection.
type LogSubscriber interface {
	SubscribeLogs(ctx context.Context, addresses []common.Address) (<-chan types.Log, error)
}

// LogPoller is a pull source of factory logs for the polling fallback.
type LogPoller interface {
	BlockNumber(ctx context.Context) (uint64, error)
	GetLogs(ctx context.Context, filter chain.LogFilter) ([]types.Log, error)
}

// HeaderSource resolves block numbers to headers. Logs carry no timestamp,
// so the runner fetches one header per processed block.
type HeaderSource interface {
	HeaderByNumber(ctx context.Context, number uint64) (*chain.Header, error)
}

// Runner drives continuous log ingestion for a set of factory contracts.
// Logs are buffered per block and dispatched strictly ordered by
// (block number, log index); a block is flushed only once a higher block
// has been seen, so late logs within a block cannot be skipped.
type Runner struct {
	subscriber LogSubscriber
	poller     LogPoller
	headers    HeaderSource
	handler    *Handler
	factories  []common.Address
	blockLag   uint64
	pollEvery  time.Duration
	flushEvery time.Duration
	logger     *log.Logger
	metrics    *observability.Metrics

	buffer       map[uint64][]types.Log
	highestBlock uint64
	nextPollFrom uint64
	timestamps   map[uint64]int64
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	Subscriber LogSubscriber // nil enables the polling fallback
	Poller     LogPoller
	Headers    HeaderSource
	Handler    *Handler
	Factories  []common.Address
	BlockLag   uint64        // Default: 1 - blocks to wait before flushing
	PollEvery  time.Duration // Default: 12s - polling cadence without a subscriber
	FlushEvery time.Duration // Default: 5s - force flush of buffered blocks
	Logger     *log.Logger
	Metrics    *observability.Metrics
}

// NewRunner creates a new log ingestion runner.
func NewRunner(opts RunnerOptions) *Runner {
	blockLag := opts.BlockLag
	if blockLag == 0 {
		blockLag = 1
	}

	pollEvery := opts.PollEvery
	if pollEvery == 0 {
		pollEvery = 12 * time.Second
	}

	flushEvery := opts.FlushEvery
	if flushEvery == 0 {
		flushEvery = 5 * time.Second
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Runner{
		subscriber: opts.Subscriber,
		poller:     opts.Poller,
		headers:    opts.Headers,
		handler:    opts.Handler,
		factories:  opts.Factories,
		blockLag:   blockLag,
		pollEvery:  pollEvery,
		flushEvery: flushEvery,
		logger:     logger,
		metrics:    opts.Metrics,
		buffer:     make(map[uint64][]types.Log),
		timestamps: make(map[uint64]int64),
	}
}

// Run starts continuous ingestion. It blocks until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Println("Starting indexer runner...")

	var logsCh <-chan types.Log
	if r.subscriber != nil {
		var err error
		logsCh, err = r.subscriber.SubscribeLogs(ctx, r.factories)
		if err != nil {
			return err
		}
		r.logger.Printf("Subscribed to logs from %d factory address(es)", len(r.factories))
	} else {
		head, err := r.poller.BlockNumber(ctx)
		if err != nil {
			return err
		}
		r.nextPollFrom = head
		r.logger.Printf("No WebSocket endpoint, polling eth_getLogs from block %d", head)
	}

	pollTicker := time.NewTicker(r.pollEvery)
	defer pollTicker.Stop()

	flushTicker := time.NewTicker(r.flushEvery)
	defer flushTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.flushAll(ctx)
			r.logger.Println("Runner stopping...")
			return ctx.Err()

		case lg, ok := <-logsCh:
			if !ok {
				return errors.New("log subscription channel closed")
			}
			r.bufferLog(ctx, lg)

		case <-pollTicker.C:
			if r.subscriber == nil {
				r.poll(ctx)
			}

		case <-flushTicker.C:
			r.flushSettled(ctx)
		}
	}
}

// poll fetches logs for the unseen block range and buffers them.
func (r *Runner) poll(ctx context.Context) {
	head, err := r.poller.BlockNumber(ctx)
	if err != nil {
		r.logger.Printf("Error fetching head block: %v", err)
		return
	}
	if head < r.nextPollFrom {
		return
	}

	logs, err := r.poller.GetLogs(ctx, chain.LogFilter{
		Addresses: r.factories,
		FromBlock: r.nextPollFrom,
		ToBlock:   head,
	})
	if err != nil {
		r.logger.Printf("Error fetching logs [%d, %d]: %v", r.nextPollFrom, head, err)
		return
	}

	for _, lg := range logs {
		r.bufferLog(ctx, lg)
	}
	if r.highestBlock < head {
		r.highestBlock = head
	}
	r.nextPollFrom = head + 1
	r.flushSettled(ctx)
}

// bufferLog adds a log to its block's buffer and flushes settled blocks.
func (r *Runner) bufferLog(ctx context.Context, lg types.Log) {
	if lg.Removed {
		// Reorged-out log. The entity was already rebuilt from live reads,
		// so there is nothing to unwind.
		return
	}

	block := lg.BlockNumber
	r.buffer[block] = append(r.buffer[block], lg)

	if block > r.highestBlock {
		r.highestBlock = block
		r.flushSettled(ctx)
	} else if block+r.blockLag <= r.highestBlock {
		// Late log for an already-settled block: process immediately.
		r.processBlock(ctx, block)
	}

	if r.metrics != nil {
		r.metrics.BufferedLogs.Set(float64(r.bufferedCount()))
	}
}

// flushSettled processes every buffered block at least blockLag behind the
// highest seen block, in ascending order.
func (r *Runner) flushSettled(ctx context.Context) {
	if r.highestBlock < r.blockLag {
		return
	}
	settled := r.highestBlock - r.blockLag

	var blocks []uint64
	for block := range r.buffer {
		if block <= settled {
			blocks = append(blocks, block)
		}
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i] < blocks[j] })

	for _, block := range blocks {
		r.processBlock(ctx, block)
	}
}

// flushAll processes all remaining buffered blocks on shutdown.
func (r *Runner) flushAll(ctx context.Context) {
	var blocks []uint64
	for block := range r.buffer {
		blocks = append(blocks, block)
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i] < blocks[j] })

	for _, block := range blocks {
		r.processBlock(ctx, block)
	}
}

// processBlock dispatches one block's logs in log-index order. Handler
// failures are logged per event and do not halt the runner.
func (r *Runner) processBlock(ctx context.Context, block uint64) {
	logs := r.buffer[block]
	if len(logs) == 0 {
		delete(r.buffer, block)
		return
	}
	delete(r.buffer, block)

	sort.Slice(logs, func(i, j int) bool { return logs[i].Index < logs[j].Index })

	timestamp, err := r.blockTimestamp(ctx, block)
	if err != nil {
		r.logger.Printf("Error fetching header for block %d: %v", block, err)
		// Requeue: the block stays buffered until the header is readable.
		r.buffer[block] = logs
		return
	}

	for _, lg := range logs {
		event, err := DecodeLog(lg, timestamp)
		if err != nil {
			if !errors.Is(err, ErrUnknownEvent) {
				r.logger.Printf("Error decoding log %s[%d]: %v", lg.TxHash, lg.Index, err)
			}
			continue
		}

		if err := r.handler.Dispatch(ctx, event); err != nil {
			r.logger.Printf("Error handling event %s[%d]: %v", lg.TxHash, lg.Index, err)
		}
	}

	delete(r.timestamps, block)
	if r.metrics != nil {
		r.metrics.LastProcessedBlock.Set(float64(block))
		r.metrics.BufferedLogs.Set(float64(r.bufferedCount()))
	}
}

// blockTimestamp resolves a block's Unix timestamp, memoized per block so
// a requeued block does not refetch its header.
func (r *Runner) blockTimestamp(ctx context.Context, block uint64) (int64, error) {
	if ts, ok := r.timestamps[block]; ok {
		return ts, nil
	}
	header, err := r.headers.HeaderByNumber(ctx, block)
	if err != nil {
		return 0, err
	}
	ts := int64(header.Timestamp)
	r.timestamps[block] = ts
	return ts, nil
}

func (r *Runner) bufferedCount() int {
	n := 0
	for _, logs := range r.buffer {
		n += len(logs)
	}
	return n
}
