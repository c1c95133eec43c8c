package bus

import (
	"sync"

	"chalkboard/pkg/types"
)

// Bus fans events out over two paths: the device-local broadcast channel
// for peer contexts on this device, and the WebSocket channel for remote
// devices via the relay. Neither path acknowledges delivery and nothing
// orders one against the other, so the same logical event may reach a
// handler twice or out of order; consumers fold state-setting events and
// stay correct either way.
type Bus struct {
	port   *Port
	remote *ConnManager
}

// New builds a bus from its two transports. Either may be nil: a bus
// without a port is remote-only, a bus without a manager never leaves
// the device.
func New(port *Port, remote *ConnManager) *Bus {
	return &Bus{port: port, remote: remote}
}

// Emit publishes evt on both transports. It never fails: local dispatch
// cannot error and remote transport trouble is swallowed so business
// logic (a login, a score update) is never blocked by connectivity.
func (b *Bus) Emit(evt types.Event) {
	if err := evt.Validate(); err != nil {
		return
	}
	if b.port != nil {
		b.port.Post(evt)
	}
	if b.remote != nil {
		b.remote.Send(evt)
	}
}

// Subscribe registers h on both transports and returns an idempotent
// unsubscribe detaching it from both.
func (b *Bus) Subscribe(h Handler) func() {
	var offLocal, offRemote func()
	if b.port != nil {
		offLocal = b.port.Listen(h)
	}
	if b.remote != nil {
		offRemote = b.remote.Listen(h)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			if offLocal != nil {
				offLocal()
			}
			if offRemote != nil {
				offRemote()
			}
		})
	}
}
