package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"paywatch.backend/internal/config"
	"paywatch.backend/internal/domain/entities"
	domainerrors "paywatch.backend/internal/domain/errors"
	"paywatch.backend/internal/infrastructure/explorer"
)

const watchAddress = "0x742d35Cc6634C0532925a3b844Bc454e4438f44e"

// fakeExplorer serves canned transaction pages, one per poll.
type fakeExplorer struct {
	mu    sync.Mutex
	pages [][]explorer.Transaction
	errs  []error
	calls int
}

func (f *fakeExplorer) RecentTransactions(ctx context.Context, network entities.Network, address string, limit int) ([]explorer.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.pages) {
		return f.pages[i], nil
	}
	if len(f.pages) > 0 {
		return f.pages[len(f.pages)-1], nil
	}
	return nil, nil
}

func (f *fakeExplorer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeTransitioner records transitions and signals on the first one.
type fakeTransitioner struct {
	mu      sync.Mutex
	id      uuid.UUID
	status  entities.IntentStatus
	opts    entities.TransitionOptions
	called  int
	done    chan struct{}
	onceSig sync.Once
}

func newFakeTransitioner() *fakeTransitioner {
	return &fakeTransitioner{done: make(chan struct{})}
}

func (f *fakeTransitioner) Transition(ctx context.Context, id uuid.UUID, next entities.IntentStatus, opts entities.TransitionOptions) (*entities.PaymentIntent, error) {
	f.mu.Lock()
	f.id = id
	f.status = next
	f.opts = opts
	f.called++
	f.mu.Unlock()
	f.onceSig.Do(func() { close(f.done) })
	return &entities.PaymentIntent{ID: id, Status: next}, nil
}

func (f *fakeTransitioner) last() (entities.IntentStatus, entities.TransitionOptions, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status, f.opts, f.called
}

type fakeIntentSource struct {
	mu      sync.Mutex
	intents map[uuid.UUID]*entities.PaymentIntent
}

func newFakeIntentSource(intents ...*entities.PaymentIntent) *fakeIntentSource {
	src := &fakeIntentSource{intents: make(map[uuid.UUID]*entities.PaymentIntent)}
	for _, intent := range intents {
		src.intents[intent.ID] = intent
	}
	return src
}

func (f *fakeIntentSource) GetByID(ctx context.Context, id uuid.UUID) (*entities.PaymentIntent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if intent, ok := f.intents[id]; ok {
		return intent, nil
	}
	return nil, domainerrors.ErrNotFound
}

func (f *fakeIntentSource) ListPending(ctx context.Context) ([]*entities.PaymentIntent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entities.PaymentIntent
	for _, intent := range f.intents {
		if intent.Status == entities.IntentStatusPending {
			out = append(out, intent)
		}
	}
	return out, nil
}

func watchedIntent() *entities.PaymentIntent {
	// 100.0231 USDT on Polygon; USDT carries 6 on-chain decimals, so the
	// explorer reports the matching transfer as 100023100.
	return &entities.PaymentIntent{
		ID:                 uuid.New(),
		MerchantID:         uuid.New(),
		OrderID:            "order-1",
		Asset:              entities.AssetUSDT,
		Network:            entities.NetworkPolygon,
		FiatAmount:         decimal.NewFromInt(100),
		CryptoAmount:       decimal.RequireFromString("100.0231"),
		DestinationAddress: watchAddress,
		Status:             entities.IntentStatusPending,
	}
}

func testWatcherConfig(maxPolls int) config.WatcherConfig {
	return config.WatcherConfig{
		PollInterval: 5 * time.Millisecond,
		MaxPolls:     maxPolls,
		TxPageSize:   100,
	}
}

func waitDone(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for watcher transition")
	}
}

func TestWatcher_ExactMatchCompletes(t *testing.T) {
	intent := watchedIntent()
	fe := &fakeExplorer{pages: [][]explorer.Transaction{
		{}, // first poll sees nothing
		{
			{To: watchAddress, Value: "55000000", Hash: "0xother"},
			{To: watchAddress, Value: "100023100", Hash: "0xmatch"},
		},
	}}
	ft := newFakeTransitioner()

	s := NewWatcherSupervisor(ft, fe, newFakeIntentSource(intent), testWatcherConfig(30))
	defer s.Stop()

	s.Watch(intent)
	waitDone(t, ft.done)

	status, opts, called := ft.last()
	assert.Equal(t, entities.IntentStatusCompleted, status)
	assert.Equal(t, "0xmatch", opts.OnchainReference)
	assert.Equal(t, 1, called)
}

func TestWatcher_CasingDoesNotMatter(t *testing.T) {
	intent := watchedIntent()
	fe := &fakeExplorer{pages: [][]explorer.Transaction{
		{{To: "0x742D35CC6634C0532925A3B844BC454E4438F44E", Value: "100023100", Hash: "0xmatch"}},
	}}
	ft := newFakeTransitioner()

	s := NewWatcherSupervisor(ft, fe, newFakeIntentSource(intent), testWatcherConfig(30))
	defer s.Stop()

	s.Watch(intent)
	waitDone(t, ft.done)

	status, _, _ := ft.last()
	assert.Equal(t, entities.IntentStatusCompleted, status)
}

func TestWatcher_OffByOneSmallestUnitDoesNotMatch(t *testing.T) {
	intent := watchedIntent()
	fe := &fakeExplorer{pages: [][]explorer.Transaction{
		{{To: watchAddress, Value: "100023101", Hash: "0xnear"}},
	}}
	ft := newFakeTransitioner()

	s := NewWatcherSupervisor(ft, fe, newFakeIntentSource(intent), testWatcherConfig(3))
	defer s.Stop()

	s.Watch(intent)
	waitDone(t, ft.done)

	// The near miss never completes the intent; the budget runs out instead.
	status, opts, _ := ft.last()
	assert.Equal(t, entities.IntentStatusFailed, status)
	assert.Equal(t, "confirmation timeout", opts.Reason)
	assert.Empty(t, opts.OnchainReference)
}

func TestWatcher_BudgetExhaustionFailsIntent(t *testing.T) {
	intent := watchedIntent()
	fe := &fakeExplorer{} // never returns a matching transfer
	ft := newFakeTransitioner()

	s := NewWatcherSupervisor(ft, fe, newFakeIntentSource(intent), testWatcherConfig(4))
	defer s.Stop()

	s.Watch(intent)
	waitDone(t, ft.done)

	status, opts, called := ft.last()
	assert.Equal(t, entities.IntentStatusFailed, status)
	assert.Equal(t, "confirmation timeout", opts.Reason)
	assert.Equal(t, 1, called)
	assert.Equal(t, 4, fe.callCount())
}

func TestWatcher_TransientErrorsConsumeAttempts(t *testing.T) {
	intent := watchedIntent()
	fe := &fakeExplorer{
		errs: []error{domainerrors.ErrExplorerUnavailable, errors.New("timeout")},
		pages: [][]explorer.Transaction{
			nil, nil,
			{{To: watchAddress, Value: "100023100", Hash: "0xmatch"}},
		},
	}
	ft := newFakeTransitioner()

	s := NewWatcherSupervisor(ft, fe, newFakeIntentSource(intent), testWatcherConfig(30))
	defer s.Stop()

	s.Watch(intent)
	waitDone(t, ft.done)

	status, _, _ := ft.last()
	assert.Equal(t, entities.IntentStatusCompleted, status)
	assert.GreaterOrEqual(t, fe.callCount(), 3)
}

func TestWatcher_StopLeavesIntentPending(t *testing.T) {
	intent := watchedIntent()
	fe := &fakeExplorer{}
	ft := newFakeTransitioner()

	s := NewWatcherSupervisor(ft, fe, newFakeIntentSource(intent), config.WatcherConfig{
		PollInterval: time.Hour, // never ticks during the test
		MaxPolls:     30,
		TxPageSize:   100,
	})

	s.Watch(intent)
	assert.Equal(t, 1, s.Running())

	s.Stop()
	assert.Equal(t, 0, s.Running())

	// No transition was recorded: the intent stays pending for a later Resume.
	_, _, called := ft.last()
	assert.Zero(t, called)
}

func TestWatcher_WatchTwiceIsNoOp(t *testing.T) {
	intent := watchedIntent()
	s := NewWatcherSupervisor(newFakeTransitioner(), &fakeExplorer{}, newFakeIntentSource(intent), config.WatcherConfig{
		PollInterval: time.Hour,
		MaxPolls:     30,
		TxPageSize:   100,
	})
	defer s.Stop()

	s.Watch(intent)
	s.Watch(intent)
	assert.Equal(t, 1, s.Running())
}

func TestWatcher_WatchByIDSkipsTerminal(t *testing.T) {
	done := watchedIntent()
	done.Status = entities.IntentStatusCompleted
	src := newFakeIntentSource(done)

	s := NewWatcherSupervisor(newFakeTransitioner(), &fakeExplorer{}, src, testWatcherConfig(30))
	defer s.Stop()

	require.NoError(t, s.WatchByID(context.Background(), done.ID))
	assert.Equal(t, 0, s.Running())

	err := s.WatchByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestWatcher_ResumeWatchesAllPending(t *testing.T) {
	first := watchedIntent()
	second := watchedIntent()
	settled := watchedIntent()
	settled.Status = entities.IntentStatusCompleted
	src := newFakeIntentSource(first, second, settled)

	s := NewWatcherSupervisor(newFakeTransitioner(), &fakeExplorer{}, src, config.WatcherConfig{
		PollInterval: time.Hour,
		MaxPolls:     30,
		TxPageSize:   100,
	})
	defer s.Stop()

	require.NoError(t, s.Resume(context.Background()))
	assert.Equal(t, 2, s.Running())
}
