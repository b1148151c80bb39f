// Package cli provides the interactive casefile command-line client.
//
// It wires configuration, the local store and reference cache, the REST
// client and the services, then runs a REPL. Two background loops run next
// to it: a connectivity watcher that pings the server (and pushes pending
// work when the connection comes back) and a periodic refresh of the form
// catalogue.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// An unauthorized answer from the server anywhere ends the session.
package cli
