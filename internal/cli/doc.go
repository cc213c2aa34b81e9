// Package cli is the continu command-line surface.
//
// It wires configuration, the local state database, Supabase auth and
// storage, and the backup, restore and scheduler services into an App, and
// exposes the App through cobra subcommands and an interactive dashboard.
//
// Commands:
//   - login, signup, logout, reset: account management
//   - status: session, scheduler and last run summary
//   - backup, restore: one pass, root only, requires a session
//   - daemon: scheduler only, until SIGINT or SIGTERM
//
// Without a subcommand the dashboard runs a menu alongside the scheduler.
package cli
