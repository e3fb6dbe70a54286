package interfaces

import domaintypes "ratchetlink/internal/domain/types"

// Unsubscribe cancels a subscription. It MUST be idempotent (spec.md SS5).
type Unsubscribe func()

// EventHandler is invoked once per matching event the bus delivers.
type EventHandler func(domaintypes.Event)

// EventBus is the external event-distribution substrate Session and Invite
// consume (spec.md SS1, SS6). Implementations deliver callbacks one at a
// time (run-to-completion); Session/Invite logic never yields while
// mutating state inside a callback.
type EventBus interface {
	Subscribe(filter domaintypes.Filter, on EventHandler) Unsubscribe
	Publish(event domaintypes.Event) error
}
