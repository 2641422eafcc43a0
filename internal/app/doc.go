// Package app is the composition root of the synq client.
//
// Run loads the config, opens the zap log file, builds the HTTP todo client
// and a synq store around it, and hands everything to the terminal UI:
//
//	config.Load()          ~/.config/synq/config.toml
//	logging.New()          JSON log at cfg.LogFile
//	remote.NewClient()     HTTP client with retry and timeout
//	registry.New()         every store, for a global reset
//	NewTodoStore()         synq.Store[remote.Todo], autofetch and polling
//	ui.Run()               blocks until quit or ctx is cancelled
//
// Errors loading config or creating the client end Run. Network failures
// after startup only show up as the store's status and in the log.
package app
