package usecases

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"paywatch.backend/internal/domain/entities"
	domainerrors "paywatch.backend/internal/domain/errors"
)

// mockAnything matches any argument, most often the context.
const mockAnything = mock.Anything

type MockIntentRepository struct {
	mock.Mock
}

func (m *MockIntentRepository) Create(ctx context.Context, intent *entities.PaymentIntent) error {
	args := m.Called(ctx, intent)
	return args.Error(0)
}

func (m *MockIntentRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.PaymentIntent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.PaymentIntent), args.Error(1)
}

func (m *MockIntentRepository) Update(ctx context.Context, intent *entities.PaymentIntent) error {
	args := m.Called(ctx, intent)
	return args.Error(0)
}

func (m *MockIntentRepository) ExistsPendingAmount(ctx context.Context, address string, amount decimal.Decimal) (bool, error) {
	args := m.Called(ctx, address, amount)
	return args.Bool(0), args.Error(1)
}

func (m *MockIntentRepository) ListPending(ctx context.Context) ([]*entities.PaymentIntent, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.PaymentIntent), args.Error(1)
}

func (m *MockIntentRepository) ListByMerchant(ctx context.Context, merchantID uuid.UUID, limit, offset int) ([]*entities.PaymentIntent, int, error) {
	args := m.Called(ctx, merchantID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*entities.PaymentIntent), args.Int(1), args.Error(2)
}

type MockTransitionEventRepository struct {
	mock.Mock
}

func (m *MockTransitionEventRepository) Create(ctx context.Context, event *entities.TransitionEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockTransitionEventRepository) ListByIntent(ctx context.Context, intentID uuid.UUID) ([]*entities.TransitionEvent, error) {
	args := m.Called(ctx, intentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.TransitionEvent), args.Error(1)
}

type MockWalletRepository struct {
	mock.Mock
}

func (m *MockWalletRepository) GetEnabled(ctx context.Context, merchantID uuid.UUID, asset entities.Asset, network entities.Network) (*entities.MerchantWallet, error) {
	args := m.Called(ctx, merchantID, asset, network)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.MerchantWallet), args.Error(1)
}

func (m *MockWalletRepository) Upsert(ctx context.Context, wallet *entities.MerchantWallet) error {
	args := m.Called(ctx, wallet)
	return args.Error(0)
}

func (m *MockWalletRepository) ListByMerchant(ctx context.Context, merchantID uuid.UUID) ([]*entities.MerchantWallet, error) {
	args := m.Called(ctx, merchantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.MerchantWallet), args.Error(1)
}

type MockRollupRepository struct {
	mock.Mock
}

func (m *MockRollupRepository) GetOrCreate(ctx context.Context, merchantID uuid.UUID, date string) (*entities.DailyMetricRollup, error) {
	args := m.Called(ctx, merchantID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.DailyMetricRollup), args.Error(1)
}

func (m *MockRollupRepository) Get(ctx context.Context, merchantID uuid.UUID, date string) (*entities.DailyMetricRollup, error) {
	args := m.Called(ctx, merchantID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.DailyMetricRollup), args.Error(1)
}

func (m *MockRollupRepository) Save(ctx context.Context, rollup *entities.DailyMetricRollup) error {
	args := m.Called(ctx, rollup)
	return args.Error(0)
}

func (m *MockRollupRepository) ListRange(ctx context.Context, merchantID uuid.UUID, from, to string) ([]*entities.DailyMetricRollup, error) {
	args := m.Called(ctx, merchantID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.DailyMetricRollup), args.Error(1)
}

type MockPriceFeed struct {
	mock.Mock
}

func (m *MockPriceFeed) GetPrice(ctx context.Context, asset entities.Asset) (decimal.Decimal, error) {
	args := m.Called(ctx, asset)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockPriceFeed) GetTrend(ctx context.Context, asset entities.Asset) (*entities.Trend, error) {
	args := m.Called(ctx, asset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Trend), args.Error(1)
}

// fakeUnitOfWork runs the function directly, without a transaction.
type fakeUnitOfWork struct{}

func (fakeUnitOfWork) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// inMemoryRollupRepo is a map-backed rollup store for aggregator tests where
// the sequence of saves matters more than the repository calls themselves.
type inMemoryRollupRepo struct {
	rollups map[string]*entities.DailyMetricRollup
}

func newInMemoryRollupRepo() *inMemoryRollupRepo {
	return &inMemoryRollupRepo{rollups: make(map[string]*entities.DailyMetricRollup)}
}

func rollupKey(merchantID uuid.UUID, date string) string {
	return merchantID.String() + "|" + date
}

func (r *inMemoryRollupRepo) GetOrCreate(ctx context.Context, merchantID uuid.UUID, date string) (*entities.DailyMetricRollup, error) {
	if rollup, ok := r.rollups[rollupKey(merchantID, date)]; ok {
		return rollup, nil
	}
	rollup := entities.NewDailyMetricRollup(merchantID, date)
	r.rollups[rollupKey(merchantID, date)] = rollup
	return rollup, nil
}

func (r *inMemoryRollupRepo) Get(ctx context.Context, merchantID uuid.UUID, date string) (*entities.DailyMetricRollup, error) {
	if rollup, ok := r.rollups[rollupKey(merchantID, date)]; ok {
		return rollup, nil
	}
	return nil, domainerrors.ErrNotFound
}

func (r *inMemoryRollupRepo) Save(ctx context.Context, rollup *entities.DailyMetricRollup) error {
	r.rollups[rollupKey(rollup.MerchantID, rollup.Date)] = rollup
	return nil
}

func (r *inMemoryRollupRepo) ListRange(ctx context.Context, merchantID uuid.UUID, from, to string) ([]*entities.DailyMetricRollup, error) {
	var out []*entities.DailyMetricRollup
	for _, rollup := range r.rollups {
		if rollup.MerchantID == merchantID && rollup.Date >= from && rollup.Date <= to {
			out = append(out, rollup)
		}
	}
	return out, nil
}
