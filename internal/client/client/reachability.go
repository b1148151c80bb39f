package client

import "sync/atomic"

// Reachability reports whether the network is believed to be up.
type Reachability interface {
	Reachable() bool
}

// OnlineFlag is a Reachability updated by a watcher. The zero value reports
// online.
type OnlineFlag struct {
	offline atomic.Bool
}

func (f *OnlineFlag) Reachable() bool { return !f.offline.Load() }

// Set records the latest probe result and reports whether it changed.
func (f *OnlineFlag) Set(online bool) bool {
	return f.offline.Swap(!online) != !online
}
