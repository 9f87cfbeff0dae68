package rist

import (
	"testing"

	"github.com/opd-ai/rist/native"
	"github.com/opd-ai/rist/native/sim"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetLibraryLogging(t *testing.T) {
	eng := sim.New()

	require.NoError(t, SetLibraryLogging(eng, LogInfo))
	assert.Equal(t, 1, eng.Calls(sim.OpLogging))

	eng.FailNext(sim.OpLogging)
	err := SetLibraryLogging(eng, LogDebug)
	assert.ErrorIs(t, err, ErrLoggingSetup)

	err = SetLibraryLogging(eng, LogLevel(99))
	assert.ErrorIs(t, err, ErrLoggingSetup)
}

func TestEngineLogsReachLogrus(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()
	prev := logrus.GetLevel()
	logrus.SetLevel(logrus.DebugLevel)
	defer logrus.SetLevel(prev)

	assert.Zero(t, forwardLog(0, native.LogWarn, "fifo full\n"))
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "fifo full", entry.Message)
	assert.Equal(t, "librist", entry.Data["function"])

	forwardLog(0, native.LogError, "boom")
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
	forwardLog(0, native.LogNotice, "note")
	assert.Equal(t, logrus.InfoLevel, hook.LastEntry().Level)
}

func TestLogLevelNames(t *testing.T) {
	for l := LogDisable; l <= LogSimulate; l++ {
		got, err := ParseLogLevel(l.String())
		require.NoError(t, err)
		assert.Equal(t, l, got)
		_, ok := l.native()
		assert.True(t, ok)
	}
	_, err := ParseLogLevel("loud")
	assert.Error(t, err)
	assert.Equal(t, LogWarn, DefaultLogLevel)
}
