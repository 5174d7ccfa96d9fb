package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"hiresync/internal/config"
	"hiresync/internal/repositories/memory"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Database.Driver = "memory"
	cfg.ChangeFeed.Backend = "memory"
	cfg.JWT.Secret = "test-secret"
	cfg.Notifications.FeedSize = 10
	cfg.Stream.Buffer = 1
	return cfg
}

func TestOpenBackend_Memory(t *testing.T) {
	backend, err := OpenBackend(context.Background(), memoryConfig())
	require.NoError(t, err)
	defer backend.Close()

	assert.IsType(t, &memory.Store{}, backend.Store)
	assert.Nil(t, backend.DB)
}

func TestOpenBackend_RedisFeed(t *testing.T) {
	s := miniredis.RunT(t)
	cfg := memoryConfig()
	cfg.ChangeFeed.Backend = "redis"
	cfg.ChangeFeed.Channel = "test"
	cfg.Redis.URL = "redis://" + s.Addr()

	backend, err := OpenBackend(context.Background(), cfg)
	require.NoError(t, err)
	backend.Close()
}

func TestOpenBackend_Unknown(t *testing.T) {
	cfg := memoryConfig()
	cfg.ChangeFeed.Backend = "kafka"
	_, err := OpenBackend(context.Background(), cfg)
	assert.Error(t, err)

	cfg = memoryConfig()
	cfg.Database.Driver = "sqlite"
	_, err = OpenBackend(context.Background(), cfg)
	assert.Error(t, err)
}

func TestSetupRouter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	backend, err := OpenBackend(context.Background(), memoryConfig())
	require.NoError(t, err)
	defer backend.Close()

	router, container, manager := SetupRouter(memoryConfig(), backend)
	require.NotNil(t, container.NotificationService)
	assert.Equal(t, 0, manager.GetClientCount())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/chats", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
