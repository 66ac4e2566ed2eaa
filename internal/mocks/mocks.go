// internal/mocks/mocks.go
package mocks

import (
	"context"

	"github.com/damon-houk/exchange-rate-widget/internal/domain/entity"
	"github.com/damon-houk/exchange-rate-widget/internal/domain/service"
	"github.com/damon-houk/exchange-rate-widget/internal/infrastructure/logger"
	"github.com/stretchr/testify/mock"
)

// MockExchangeAPI mocks the ExchangeAPI interface
type MockExchangeAPI struct {
	mock.Mock
}

func (m *MockExchangeAPI) GetRate(ctx context.Context) (*entity.ExchangeRate, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.ExchangeRate), args.Error(1)
}

func (m *MockExchangeAPI) ListRates(ctx context.Context) ([]entity.RateRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.RateRecord), args.Error(1)
}

func (m *MockExchangeAPI) CreateRate(ctx context.Context, rate entity.ExchangeRate) (*service.Result, error) {
	args := m.Called(ctx, rate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Result), args.Error(1)
}

func (m *MockExchangeAPI) UpdateRate(ctx context.Context, record entity.RateRecord) (*service.Result, error) {
	args := m.Called(ctx, record)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Result), args.Error(1)
}

func (m *MockExchangeAPI) DeleteRate(ctx context.Context, id int64) (*service.Result, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Result), args.Error(1)
}

// MockViewStateRepository mocks the ViewStateRepository interface
type MockViewStateRepository struct {
	mock.Mock
}

func (m *MockViewStateRepository) Store(ctx context.Context, state *entity.ViewState) error {
	args := m.Called(ctx, state)
	return args.Error(0)
}

func (m *MockViewStateRepository) FindByID(ctx context.Context, sessionID string) (*entity.ViewState, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.ViewState), args.Error(1)
}

func (m *MockViewStateRepository) Delete(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

// MockLogger mocks the logger interface
type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) Debug(msg string, fields map[string]interface{}) {
	m.Called(msg, fields)
}

func (m *MockLogger) Info(msg string, fields map[string]interface{}) {
	m.Called(msg, fields)
}

func (m *MockLogger) Warn(msg string, fields map[string]interface{}) {
	m.Called(msg, fields)
}

func (m *MockLogger) Error(msg string, fields map[string]interface{}) {
	m.Called(msg, fields)
}

func (m *MockLogger) Fatal(msg string, fields map[string]interface{}) {
	m.Called(msg, fields)
}

func (m *MockLogger) WithField(key string, value interface{}) logger.Logger {
	m.Called(key, value)
	return m
}

func (m *MockLogger) WithFields(fields map[string]interface{}) logger.Logger {
	m.Called(fields)
	return m
}
