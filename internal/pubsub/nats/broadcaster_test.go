package nats

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	natsserver "github.com/nats-io/nats-server/v2/test"
	natsgo "github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gitlab.com/nevasik7/alerting/logger"

	"refstats/internal/config"
	"refstats/internal/pubsub"
)

// MockLogger implements logger.Logger for tests
type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) Debug(msg string) {
	m.Called(msg)
}

func (m *MockLogger) Debugf(msg string, args ...interface{}) {
	m.Called(msg, args)
}

func (m *MockLogger) Info(msg string) {
	m.Called(msg)
}

func (m *MockLogger) Infof(format string, args ...interface{}) {
	m.Called(format, args)
}

func (m *MockLogger) Warn(msg string) {
	m.Called(msg)
}

func (m *MockLogger) Warnf(msg string, args ...interface{}) {
	m.Called(msg, args)
}

func (m *MockLogger) Error(msg string) {
	m.Called(msg)
}

func (m *MockLogger) Errorf(format string, args ...interface{}) {
	m.Called(format, args)
}

func (m *MockLogger) Fatal(msg string) {
	m.Called(msg)
}

func (m *MockLogger) Fatalf(msg string, args ...interface{}) {
	m.Called(msg, args)
}

func (m *MockLogger) Panic(msg string) {
	m.Called(msg)
}

func (m *MockLogger) Panicf(msg string, args ...interface{}) {
	m.Called(msg, args)
}

func (m *MockLogger) WithField(key string, value interface{}) logger.Logger {
	m.Called(key, value)
	return m
}

func (m *MockLogger) WithFields(fields map[string]interface{}) logger.Logger {
	m.Called(fields)
	return m
}

// ------------------------ tests without real connection ------------------------

func TestNew_NilConfig(t *testing.T) {
	mockLogger := new(MockLogger)

	client, err := New(mockLogger, nil)

	assert.Error(t, err)
	assert.Nil(t, client)
	assert.Equal(t, "nats config is required", err.Error())
}

func TestNew_EmptyURL(t *testing.T) {
	mockLogger := new(MockLogger)

	client, err := New(mockLogger, &config.NATSConfig{})

	assert.Error(t, err)
	assert.Nil(t, client)
	assert.Equal(t, "nats url is required", err.Error())
}

func TestReady_NilConnection(t *testing.T) {
	client := &Client{
		nc:  nil,
		log: new(MockLogger),
	}

	assert.False(t, client.Ready())
}

func TestClose_NilConnection(t *testing.T) {
	mockLogger := new(MockLogger)
	client := &Client{
		nc:  nil,
		log: mockLogger,
	}

	err := client.Close()

	assert.NoError(t, err)
	mockLogger.AssertNotCalled(t, "Errorf", mock.Anything, mock.Anything)
	mockLogger.AssertNotCalled(t, "Infof", mock.Anything, mock.Anything)
}

// ------------------------ tests with in-memory nats server ------------------------

func runTestWithInMemoryNATS(t *testing.T, testFunc func(*testing.T, *server.Server, string)) {
	t.Helper()

	opts := natsserver.DefaultTestOptions
	opts.Port = -1 // random port
	s := natsserver.RunServer(&opts)
	defer s.Shutdown()

	testFunc(t, s, s.ClientURL())
}

func TestNew_Success(t *testing.T) {
	runTestWithInMemoryNATS(t, func(t *testing.T, s *server.Server, url string) {
		mockLogger := new(MockLogger)

		client, err := New(mockLogger, &config.NATSConfig{URL: url})

		require.NoError(t, err)
		require.NotNil(t, client)
		assert.True(t, client.Ready())
		assert.Equal(t, "refstats", client.prefix)

		client.nc.Close()
	})
}

func TestPublish_DeliversPrefixedEvent(t *testing.T) {
	runTestWithInMemoryNATS(t, func(t *testing.T, s *server.Server, url string) {
		mockLogger := new(MockLogger)

		client, err := New(mockLogger, &config.NATSConfig{
			URL:           url,
			SubjectPrefix: "stats.test",
		})
		require.NoError(t, err)
		defer client.nc.Close()

		// independent subscriber to observe the wire
		sub, err := natsgo.Connect(url)
		require.NoError(t, err)
		defer sub.Close()

		received := make(chan *natsgo.Msg, 1)
		_, err = sub.Subscribe("stats.test.progress.customers", func(msg *natsgo.Msg) {
			received <- msg
		})
		require.NoError(t, err)
		require.NoError(t, sub.Flush())

		event := pubsub.ProgressEvent{
			Session: "sess-1",
			Source:  "customers",
			Records: 1200,
			Done:    false,
		}
		require.NoError(t, client.Publish(context.Background(), "progress.customers", event))
		require.NoError(t, client.nc.Flush())

		select {
		case msg := <-received:
			assert.JSONEq(t, `{"session":"sess-1","source":"customers","records":1200,"done":false}`, string(msg.Data))
		case <-time.After(2 * time.Second):
			t.Fatal("progress event was not delivered")
		}
	})
}

func TestPublish_UnmarshalableData(t *testing.T) {
	runTestWithInMemoryNATS(t, func(t *testing.T, s *server.Server, url string) {
		mockLogger := new(MockLogger)

		client, err := New(mockLogger, &config.NATSConfig{URL: url})
		require.NoError(t, err)
		defer client.nc.Close()

		err = client.Publish(context.Background(), "progress.customers", make(chan int))

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to marshal event")
	})
}

func TestClose_Success(t *testing.T) {
	runTestWithInMemoryNATS(t, func(t *testing.T, s *server.Server, url string) {
		mockLogger := new(MockLogger)
		mockLogger.On("Infof", "NATS connection closed gracefully", mock.Anything).Once()

		client, err := New(mockLogger, &config.NATSConfig{URL: url})
		require.NoError(t, err)

		err = client.Close()
		assert.NoError(t, err)

		assert.False(t, client.Ready())
		assert.Equal(t, natsgo.CLOSED, client.nc.Status())

		mockLogger.AssertExpectations(t)
	})
}

func TestClose_Idempotent(t *testing.T) {
	runTestWithInMemoryNATS(t, func(t *testing.T, s *server.Server, url string) {
		mockLogger := new(MockLogger)
		mockLogger.On("Infof", "NATS connection closed gracefully", mock.Anything).Once()

		client, err := New(mockLogger, &config.NATSConfig{URL: url})
		require.NoError(t, err)

		assert.NoError(t, client.Close())
		assert.NoError(t, client.Close())
		assert.NoError(t, client.Close())

		mockLogger.AssertNumberOfCalls(t, "Infof", 1)
	})
}
