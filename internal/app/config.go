package app

import "ratchetlink/internal/domain/interfaces"

// Config holds runtime wiring options for building the app.
type Config struct {
	Home string             // storage directory, e.g. $HOME/.ratchetlink
	Bus  interfaces.EventBus // event bus handle; defaults to an in-memory bus if nil
}
