// Package server wires the order store, query engine, selection store and
// reorder protocol behind the HTTP API and runs them under a lifecycle
// manager.
package server
