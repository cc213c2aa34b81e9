package cli

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/dmitrijs2005/continu/internal/statedb/runs"
)

const (
	actBackup  = "backup"
	actRestore = "restore"
	actLogout  = "logout"
	actLogin   = "login"
	actSignup  = "signup"
	actReset   = "reset"
	actStatus  = "status"
	actQuit    = "quit"
)

type menuItem struct {
	Label string
	Key   string
}

func menuItems(loggedIn bool) []menuItem {
	if loggedIn {
		return []menuItem{
			{"Backup", actBackup},
			{"Restore", actRestore},
			{"Logout", actLogout},
			{"Check Status", actStatus},
			{"Quit", actQuit},
		}
	}
	return []menuItem{
		{"Login", actLogin},
		{"Sign Up", actSignup},
		{"Reset Password", actReset},
		{"Check Status", actStatus},
		{"Quit", actQuit},
	}
}

// selectAction is a test seam for the huh menu.
var selectAction = func(title string, items []menuItem) (string, error) {
	opts := make([]huh.Option[string], 0, len(items))
	for _, it := range items {
		opts = append(opts, huh.NewOption(it.Label, it.Key))
	}

	var choice string
	form := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title(title).
			Options(opts...).
			Value(&choice),
	))
	if err := form.Run(); err != nil {
		return "", err
	}
	return choice, nil
}

// Dashboard runs the interactive menu with the scheduler supervised in the
// background. The scheduler stops when the user quits.
func (a *App) Dashboard(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	errc := a.supervisor().ServeBackground(ctx)
	defer func() {
		cancel()
		<-errc
	}()

	for {
		a.println("%s", a.header(ctx))

		choice, err := selectAction("What would you like to do?", menuItems(a.sessions.IsActive(ctx)))
		if errors.Is(err, huh.ErrUserAborted) {
			return nil
		}
		if err != nil {
			return err
		}
		if a.dispatch(ctx, choice) {
			a.println("Bye!")
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// dispatch runs one menu action and reports whether the user asked to
// quit. Action errors were already shown to the user.
func (a *App) dispatch(ctx context.Context, choice string) bool {
	var err error
	switch choice {
	case actBackup:
		err = a.Backup(ctx)
	case actRestore:
		err = a.Restore(ctx)
	case actLogout:
		err = a.Logout(ctx)
	case actLogin:
		err = a.Login(ctx, "")
	case actSignup:
		err = a.Signup(ctx, "")
	case actReset:
		err = a.Reset(ctx, "")
	case actStatus:
		err = a.Status(ctx)
	case actQuit:
		return true
	default:
		a.warn("Unknown action %q.", choice)
	}
	if err != nil {
		a.log.Debug(ctx, "Menu action failed", "action", choice, "err", err)
	}
	return false
}

func (a *App) header(ctx context.Context) string {
	lines := []string{
		styles.Title.Render("continu"),
		"Backup service: " + a.serviceStatus().String(),
		"Last backup:    " + a.lastRun(ctx, runs.KindBackup),
		"OS:             " + a.osDetails(),
	}
	return styles.Header.Render(strings.Join(lines, "\n"))
}
