package playback

import "errors"

var (
	ErrNotRunning     = errors.New("playback: scheduler not running")
	ErrAlreadyStarted = errors.New("playback: scheduler already started")
	ErrNilSink        = errors.New("playback: no render sink registered")
	ErrNoCatalog      = errors.New("playback: no catalog")
)
