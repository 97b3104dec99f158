package jobs

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"paywatch.backend/internal/config"
	"paywatch.backend/internal/domain/entities"
	"paywatch.backend/internal/infrastructure/explorer"
	"paywatch.backend/pkg/logger"
	"paywatch.backend/pkg/metrics"
)

// IntentTransitioner is the slice of the intent usecase the watcher needs
type IntentTransitioner interface {
	Transition(ctx context.Context, id uuid.UUID, next entities.IntentStatus, opts entities.TransitionOptions) (*entities.PaymentIntent, error)
}

// ExplorerAPI is the ledger explorer consumed by watcher tasks
type ExplorerAPI interface {
	RecentTransactions(ctx context.Context, network entities.Network, address string, limit int) ([]explorer.Transaction, error)
}

// IntentSource loads intents to watch from the store
type IntentSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*entities.PaymentIntent, error)
	ListPending(ctx context.Context) ([]*entities.PaymentIntent, error)
}

// WatcherSupervisor runs one polling task per pending intent. Tasks are
// independent: each owns its ticker and attempt counter and talks to the
// store only through Transition, so a failing task cannot affect another.
// Stopping the supervisor leaves unmatched intents PENDING; a later Resume
// picks them up again.
type WatcherSupervisor struct {
	transitioner IntentTransitioner
	explorer     ExplorerAPI
	intents      IntentSource
	cfg          config.WatcherConfig

	// baseCtx parents every task so watchers outlive request contexts.
	baseCtx context.Context

	mu     sync.Mutex
	tasks  map[uuid.UUID]context.CancelFunc
	wg     sync.WaitGroup
	closed bool
}

// NewWatcherSupervisor creates a new watcher supervisor
func NewWatcherSupervisor(
	transitioner IntentTransitioner,
	explorerAPI ExplorerAPI,
	intents IntentSource,
	cfg config.WatcherConfig,
) *WatcherSupervisor {
	return &WatcherSupervisor{
		transitioner: transitioner,
		explorer:     explorerAPI,
		intents:      intents,
		cfg:          cfg,
		baseCtx:      context.Background(),
		tasks:        make(map[uuid.UUID]context.CancelFunc),
	}
}

// Watch starts a polling task for one intent. Watching an intent twice is a
// no-op while the first task is alive.
func (s *WatcherSupervisor) Watch(intent *entities.PaymentIntent) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if _, running := s.tasks[intent.ID]; running {
		s.mu.Unlock()
		return
	}

	taskCtx, cancel := context.WithCancel(s.baseCtx)
	s.tasks[intent.ID] = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer s.forget(intent.ID)
		defer func() {
			if r := recover(); r != nil {
				logger.Error(taskCtx, "watcher task panicked",
					zap.String("intent_id", intent.ID.String()),
					zap.Any("panic", r),
				)
			}
		}()
		s.run(taskCtx, intent)
	}()
}

// WatchByID loads an intent and starts watching it if still pending. Used by
// the intent-creation flow, which knows the ID but runs outside this package.
func (s *WatcherSupervisor) WatchByID(ctx context.Context, id uuid.UUID) error {
	intent, err := s.intents.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if intent.Status != entities.IntentStatusPending {
		return nil
	}
	s.Watch(intent)
	return nil
}

// Resume restarts watcher tasks for every intent still pending in the store.
// Called once at process startup.
func (s *WatcherSupervisor) Resume(ctx context.Context) error {
	intents, err := s.intents.ListPending(ctx)
	if err != nil {
		return err
	}

	for _, intent := range intents {
		s.Watch(intent)
	}

	if len(intents) > 0 {
		logger.Info(ctx, "resumed watchers for pending intents", zap.Int("count", len(intents)))
	}
	return nil
}

// Stop cancels every task and waits for them to exit. Intents that have not
// matched stay PENDING and are recoverable.
func (s *WatcherSupervisor) Stop() {
	s.mu.Lock()
	s.closed = true
	for _, cancel := range s.tasks {
		cancel()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// Running reports how many watcher tasks are currently alive
func (s *WatcherSupervisor) Running() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

func (s *WatcherSupervisor) forget(id uuid.UUID) {
	s.mu.Lock()
	if cancel, ok := s.tasks[id]; ok {
		cancel()
		delete(s.tasks, id)
	}
	s.mu.Unlock()
}

// run is one task's polling loop. Every tick, match or error, consumes one
// attempt; exhausting the budget fails the intent with a user-visible
// timeout reason.
func (s *WatcherSupervisor) run(ctx context.Context, intent *entities.PaymentIntent) {
	logger.Info(ctx, "watching intent for on-chain payment",
		zap.String("intent_id", intent.ID.String()),
		zap.String("address", intent.DestinationAddress),
		zap.String("expected_amount", intent.CryptoAmount.String()),
	)

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	expected := intent.SmallestUnitAmount()

	for attempt := 1; attempt <= s.cfg.MaxPolls; attempt++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		metrics.ExplorerPolls.WithLabelValues(string(intent.Network)).Inc()

		txs, err := s.explorer.RecentTransactions(ctx, intent.Network, intent.DestinationAddress, s.cfg.TxPageSize)
		if err != nil {
			metrics.ExplorerPollErrors.WithLabelValues(string(intent.Network)).Inc()
			logger.Warn(ctx, "explorer poll failed",
				zap.String("intent_id", intent.ID.String()),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			continue
		}

		if tx, ok := s.findMatch(intent, expected, txs); ok {
			metrics.WatcherMatches.WithLabelValues(string(intent.Asset)).Inc()
			logger.Info(ctx, "matched on-chain transfer",
				zap.String("intent_id", intent.ID.String()),
				zap.String("tx_hash", tx.Hash),
			)

			if _, err := s.transitioner.Transition(ctx, intent.ID, entities.IntentStatusCompleted,
				entities.TransitionOptions{OnchainReference: tx.Hash}); err != nil {
				logger.Error(ctx, "failed to complete matched intent",
					zap.String("intent_id", intent.ID.String()),
					zap.Error(err),
				)
				continue
			}
			return
		}
	}

	logger.Warn(ctx, "confirmation window expired for intent",
		zap.String("intent_id", intent.ID.String()),
	)
	if _, err := s.transitioner.Transition(ctx, intent.ID, entities.IntentStatusFailed,
		entities.TransitionOptions{Reason: "confirmation timeout"}); err != nil {
		logger.Error(ctx, "failed to time out intent",
			zap.String("intent_id", intent.ID.String()),
			zap.Error(err),
		)
	}
}

// findMatch scans a transaction page for an inbound transfer to the intent's
// address with exactly the fingerprinted value. Equality is exact: the
// fingerprint exists precisely so no tolerance is needed.
func (s *WatcherSupervisor) findMatch(intent *entities.PaymentIntent, expected decimal.Decimal, txs []explorer.Transaction) (explorer.Transaction, bool) {
	want := explorer.NormalizeAddress(intent.Network, intent.DestinationAddress)

	for _, tx := range txs {
		if !strings.EqualFold(explorer.NormalizeAddress(intent.Network, tx.To), want) {
			continue
		}
		value, err := decimal.NewFromString(tx.Value)
		if err != nil {
			continue
		}
		if value.Equal(expected) {
			return tx, true
		}
	}
	return explorer.Transaction{}, false
}
