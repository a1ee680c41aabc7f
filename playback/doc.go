// Package playback sequences clip frames onto a render sink.
//
// A Scheduler owns one worker goroutine. Requests are queued as commands;
// the worker expands each into frame tasks, shows every frame on the sink,
// and sleeps for the frame's duration. Forced requests replace whatever is
// queued before PlayAnimation returns.
package playback
