package handler

// MockHandlerLogger is a mock implementation of domain.Logger for testing
type MockHandlerLogger struct{}

// NewMockHandlerLogger creates a new mock logger instance
func NewMockHandlerLogger() *MockHandlerLogger {
	return &MockHandlerLogger{}
}

// Info logs an info message (no-op for testing)
func (m *MockHandlerLogger) Info(msg string, fields ...interface{}) {}

// Error logs an error message (no-op for testing)
func (m *MockHandlerLogger) Error(msg string, err error, fields ...interface{}) {}

// Debug logs a debug message (no-op for testing)
func (m *MockHandlerLogger) Debug(msg string, fields ...interface{}) {}

// Warn logs a warning message (no-op for testing)
func (m *MockHandlerLogger) Warn(msg string, fields ...interface{}) {}
