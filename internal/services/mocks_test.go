package services

import (
	"context"

	"github.com/stretchr/testify/mock"

	"tickpulse/internal/dataprocessing"
)

// MockEventBroadcaster is a mock for EventBroadcaster
type MockEventBroadcaster struct {
	mock.Mock
}

func (m *MockEventBroadcaster) Broadcast(messageType string, data interface{}) {
	m.Called(messageType, data)
}

// MockPipelineRunner is a mock for PipelineRunner
type MockPipelineRunner struct {
	mock.Mock
}

func (m *MockPipelineRunner) Run(ctx context.Context, path string) (*dataprocessing.Snapshot, error) {
	args := m.Called(ctx, path)
	snap, _ := args.Get(0).(*dataprocessing.Snapshot)
	return snap, args.Error(1)
}

// MockClientCounter is a mock for ClientCounter
type MockClientCounter struct {
	mock.Mock
}

func (m *MockClientCounter) ClientCount() int {
	return m.Called().Int(0)
}
