// Package ui provides the Bubble Tea terminal client for a synq todo store.
//
// # Overview
//
// The screen is a header with the store's sync status, a table of todos, an
// optional log pane and a help footer. Every edit goes through the store, so
// the table shows the optimistic result at once and settles when the server
// answers.
//
// # Data Flow
//
// Run subscribes to the store's state and status and forwards each change to
// the program with Send. Store operations block on the network, so key
// handlers wrap them in commands and never mutate the model from a listener.
//
//	space  Update(Transform)  flip completed
//	e      Update(Patch)      rename
//	+      Update(Merge)      raise priority
//	d      Remove(ID)
//	D      Remove(Where)      every completed todo
//	R      Registry.ClearAll
//
// # Preferences
//
// Theme, the hide-completed toggle and the filter expression persist through
// the prefs package whenever they change. Filters are expr-lang expressions
// over the todo fields, for example `!completed && priority > 1`.
package ui
