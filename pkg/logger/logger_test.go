package logger

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	dir := t.TempDir()
	l, err := New(dir, true)
	require.NoError(t, err)
	l.Info("hello")
	_ = l.Sync()
	_, err = os.Stat(filepath.Join(dir, "sigtrader.json"))
	require.NoError(t, err)
}

func TestFunc(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	log := Func(zap.New(core).Sugar())

	log("opened", 2, "positions")
	log(errors.New("boom"))

	entries := logs.All()
	require.Len(t, entries, 2)
	require.Equal(t, "opened 2 positions", entries[0].Message)
	require.Equal(t, zap.InfoLevel, entries[0].Level)
	require.Equal(t, "boom", entries[1].Message)
	require.Equal(t, zap.ErrorLevel, entries[1].Level)
}
