// Package app contains the core application logic. It defines the main App
// struct, its configuration, and the primary execution lifecycle, decoupled
// from any specific entrypoint like a CLI or server.
//
// A run loads the grid files, finalizes every declaration into the process
// graph and then, depending on the configured mode, prints the graph, prints
// the execution plan, or executes the graph (or a single target's closure)
// level by level.
package app
