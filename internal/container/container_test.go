package container

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tpoisot/IntroScientificComputing/app"
	"github.com/tpoisot/IntroScientificComputing/internal/config"
)

func TestNew_RequiresConfig(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}

func TestInitInMemory(t *testing.T) {
	cfg := &config.Config{
		Estimator: app.DefaultEstimatorConfig().Settings(),
		Server:    config.ServerConfig{Port: "8080", GinMode: "test"},
		LogLevel:  "ERROR",
	}

	c, err := New(cfg)
	require.NoError(t, err)
	c.InitInMemory()

	assert.NotNil(t, c.Runs)
	assert.NotNil(t, c.Handler)
	assert.NotNil(t, c.Estimator)
	assert.Nil(t, c.DB)
	assert.NoError(t, c.Shutdown(context.Background()))
}

func TestInitWithDatabase_RequiresConnection(t *testing.T) {
	c, err := New(&config.Config{LogLevel: "ERROR"})
	require.NoError(t, err)
	assert.Error(t, c.InitWithDatabase(context.Background(), nil))
}
