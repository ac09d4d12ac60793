package logger_test

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"domainwatch/pkg/logger"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSetup(t *testing.T) {
	for _, env := range []string{logger.DevelopmentEnvironment, logger.ProductionEnvironment} {
		t.Run(env, func(t *testing.T) {
			require.NotPanics(t, func() { logger.Setup(env) })
			require.NotNil(t, logger.Get(context.Background()))
		})
	}
}

func TestSetupWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "domainwatch.log")
	require.NoError(t, logger.SetupWithFile(logger.ProductionEnvironment, path))

	ctx := logger.WithFields(context.Background(), zap.String("domain", "example.com"))
	logger.Debug(ctx, "hidden at info level")
	logger.Info(ctx, "domain checked", zap.String("status", "active"))
	_ = logger.Get(ctx).Sync()

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(b)
	require.NotContains(t, out, "hidden at info level")
	require.Contains(t, out, "domain checked")
	require.Contains(t, out, `"domain": "example.com"`)
	require.Regexp(t, regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}`), out)
	require.Contains(t, out, "INFO")

	// empty path falls back to Setup
	require.NoError(t, logger.SetupWithFile(logger.DevelopmentEnvironment, ""))
	require.True(t, logger.IsDebug(context.Background()))

	require.Error(t, logger.SetupWithFile(logger.DevelopmentEnvironment, filepath.Join(path, "not-a-dir", "x.log")))
}

func TestGetAndWithLogger(t *testing.T) {
	logger.Setup(logger.DevelopmentEnvironment)

	ctx := context.Background()
	require.NotNil(t, logger.Get(ctx), "should return default logger when context has no logger")

	custom, _ := zap.NewDevelopment()
	require.Equal(t, custom, logger.Get(logger.WithLogger(ctx, custom)))
	require.NotNil(t, logger.Get(logger.WithFields(ctx, zap.Int("attempt", 2))))
}

func TestIsDebug(t *testing.T) {
	logger.Setup(logger.DevelopmentEnvironment)
	ctx := context.Background()
	require.True(t, logger.IsDebug(ctx), "development logger should be at debug level")

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	infoLogger, _ := cfg.Build()
	require.False(t, logger.IsDebug(logger.WithLogger(ctx, infoLogger)))
}

func TestLoggingFunctions(t *testing.T) {
	logger.Setup(logger.DevelopmentEnvironment)
	ctx := context.Background()

	require.NotPanics(t, func() {
		logger.Debug(ctx, "debug message", zap.String("key", "value"))
		logger.Info(ctx, "info message", zap.String("key", "value"))
		logger.Warn(ctx, "warn message", zap.String("key", "value"))
		logger.Error(ctx, "error message", zap.String("key", "value"))
	})
}
