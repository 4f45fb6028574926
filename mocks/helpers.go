package mocks

import (
	"testing"

	"go.uber.org/mock/gomock"
)

// NewMockStoreForTest creates a new mock dedup Store for testing
func NewMockStoreForTest(t *testing.T) *MockStore {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	return NewMockStore(ctrl)
}

// NewMockTransportForTest creates a new mock Transport for testing
func NewMockTransportForTest(t *testing.T) *MockTransport {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	return NewMockTransport(ctrl)
}

// NewMockRasterizerForTest creates a new mock Rasterizer for testing
func NewMockRasterizerForTest(t *testing.T) *MockRasterizer {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	return NewMockRasterizer(ctrl)
}

// NewMockOutcomePublisherForTest creates a new mock OutcomePublisher for testing
func NewMockOutcomePublisherForTest(t *testing.T) *MockOutcomePublisher {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	return NewMockOutcomePublisher(ctrl)
}
