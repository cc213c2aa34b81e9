package common

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunGuard(t *testing.T) {
	var g RunGuard

	require.NoError(t, g.Acquire())
	assert.True(t, g.Busy())
	assert.ErrorIs(t, g.Acquire(), ErrBackupInProgress)

	g.Release()
	assert.False(t, g.Busy())
	require.NoError(t, g.Acquire())
}

func TestRunGuard_OneWinner(t *testing.T) {
	var (
		g    RunGuard
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if g.Acquire() == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}
