package cli

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keys(items []menuItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Key)
	}
	return out
}

func TestMenuItems(t *testing.T) {
	assert.Equal(t, []string{actBackup, actRestore, actLogout, actStatus, actQuit}, keys(menuItems(true)))
	assert.Equal(t, []string{actLogin, actSignup, actReset, actStatus, actQuit}, keys(menuItems(false)))
}

// scriptMenu answers the menu from choices and records the offered keys.
func scriptMenu(t *testing.T, choices ...string) *[][]string {
	t.Helper()
	offered := &[][]string{}
	old := selectAction
	t.Cleanup(func() { selectAction = old })
	selectAction = func(_ string, items []menuItem) (string, error) {
		*offered = append(*offered, keys(items))
		if len(choices) == 0 {
			return "", huh.ErrUserAborted
		}
		c := choices[0]
		choices = choices[1:]
		return c, nil
	}
	return offered
}

func TestDashboard_RunsServiceAndQuits(t *testing.T) {
	ta := newTestApp(t, "")
	offered := scriptMenu(t, actStatus, actQuit)
	menu := selectAction
	selectAction = func(title string, items []menuItem) (string, error) {
		select {
		case <-ta.service.started:
		case <-time.After(5 * time.Second):
			t.Error("background service was not started")
		}
		return menu(title, items)
	}

	require.NoError(t, ta.Dashboard(context.Background()))

	select {
	case <-ta.service.stopped:
	case <-time.After(time.Second):
		t.Fatal("background service was not stopped")
	}

	assert.Len(t, *offered, 2)
	out := ta.out.String()
	assert.Contains(t, out, "continu")
	assert.Contains(t, out, "Session:        not logged in")
	assert.Contains(t, out, "Bye!")
}

func TestDashboard_MenuFollowsLoginState(t *testing.T) {
	ta := newTestApp(t, "\n")
	stubPasswords(t, "hunter2")
	ta.sessions.lastEmail = "me@example.com"

	offered := scriptMenu(t, actLogin, actLogout)

	require.NoError(t, ta.Dashboard(context.Background()))

	require.Len(t, *offered, 3)
	assert.Contains(t, (*offered)[0], actLogin)
	assert.Contains(t, (*offered)[1], actLogout)
	assert.Contains(t, (*offered)[2], actLogin)
	assert.Equal(t, 1, ta.sessions.logouts)
}

func TestDashboard_Abort(t *testing.T) {
	ta := newTestApp(t, "")
	scriptMenu(t)
	require.NoError(t, ta.Dashboard(context.Background()))
}

func TestDashboard_MenuError(t *testing.T) {
	ta := newTestApp(t, "")
	old := selectAction
	t.Cleanup(func() { selectAction = old })
	boom := errors.New("no tty")
	selectAction = func(string, []menuItem) (string, error) { return "", boom }

	require.ErrorIs(t, ta.Dashboard(context.Background()), boom)
}

func TestDispatch(t *testing.T) {
	ctx := context.Background()
	ta := newTestApp(t, "")
	ta.sessions.active = true

	assert.True(t, ta.dispatch(ctx, actQuit))
	assert.False(t, ta.dispatch(ctx, actBackup))
	assert.Equal(t, 1, ta.backups.calls)
	assert.False(t, ta.dispatch(ctx, actRestore))
	assert.Equal(t, 1, ta.restores.calls)
	assert.False(t, ta.dispatch(ctx, "dance"))
	assert.Contains(t, ta.out.String(), `Unknown action "dance".`)
}

func TestDaemon_StopsOnCancel(t *testing.T) {
	ta := newTestApp(t, "")
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- ta.Daemon(ctx) }()

	<-ta.service.started
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not stop")
	}
}
