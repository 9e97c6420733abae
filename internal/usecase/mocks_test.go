package usecase

import (
	"context"
	"io"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/ressKim-io/ReviewSense/api-service/internal/domain/entity"
)

// MockPredictor is a mock implementation of Predictor
type MockPredictor struct {
	mock.Mock
}

func (m *MockPredictor) Predict(ctx context.Context, texts []string) ([]entity.Prediction, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Prediction), args.Error(1)
}

// MockBatchProcessor is a mock implementation of BatchProcessor
type MockBatchProcessor struct {
	mock.Mock
}

func (m *MockBatchProcessor) Process(ctx context.Context, r io.Reader) ([]entity.BatchRecord, error) {
	args := m.Called(ctx, r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.BatchRecord), args.Error(1)
}

// MockDatasetSource is a mock implementation of repository.DatasetSource
type MockDatasetSource struct {
	mock.Mock
}

func (m *MockDatasetSource) Load(ctx context.Context, split entity.Split) (*entity.Dataset, error) {
	args := m.Called(ctx, split)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Dataset), args.Error(1)
}

func (m *MockDatasetSource) Name() string {
	return "mock"
}

// MockModelDescriber is a mock implementation of service.ModelDescriber
type MockModelDescriber struct {
	mock.Mock
}

func (m *MockModelDescriber) Describe(ctx context.Context) (*entity.ModelInfo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.ModelInfo), args.Error(1)
}

// MockLimiter is a mock implementation of Limiter
type MockLimiter struct {
	mock.Mock
}

func (m *MockLimiter) Allow(ctx context.Context, clientKey string) (bool, error) {
	args := m.Called(ctx, clientKey)
	return args.Bool(0), args.Error(1)
}

type recordingSink struct {
	mu     sync.Mutex
	events []entity.RequestEvent
}

func (s *recordingSink) Record(event entity.RequestEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *recordingSink) last() entity.RequestEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events[len(s.events)-1]
}

type recordingRejections struct {
	tiers []string
}

func (r *recordingRejections) ObserveRejection(tier string) {
	r.tiers = append(r.tiers, tier)
}
