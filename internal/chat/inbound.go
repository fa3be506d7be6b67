package chat

import (
	"encoding/json"

	"github.com/ashureev/jecnabot/internal/domain"
	"github.com/ashureev/jecnabot/internal/transport"
)

func (c *Controller) handleEvent(ev transport.Event) {
	switch ev.Kind {
	case transport.EventOpen:
		c.logger.Debug("Peer connection open")
		c.state.Conn = transport.StateOpen
	case transport.EventMessage:
		c.handleFrame(ev.Data)
	case transport.EventClose:
		c.logger.Info("Peer closed connection", "code", ev.Code, "reason", ev.Reason)
		c.state.Conn = transport.StateClosed
	case transport.EventError:
		c.logger.Error("Peer connection failed", "error", ev.Err)
		c.state.Conn = transport.StateErrored
	default:
		c.logger.Warn("Unknown connection event", "kind", ev.Kind.String())
		return
	}
	c.publish()
}

// handleFrame applies one inbound frame. Frames that do not decode to a
// known envelope are shown verbatim.
func (c *Controller) handleFrame(data []byte) {
	env, ok := decodeEnvelope(data)
	if !ok {
		c.logger.Warn("Unrecognized peer payload, showing verbatim", "bytes", len(data))
		c.deliverBot(string(data))
		return
	}

	if env.Type == domain.EventWelcome {
		c.state.Suggestions = append([]domain.Suggestion{}, env.Questions...)
	}
	c.clearPending()
	c.deliverBot(env.Message)
}

func decodeEnvelope(data []byte) (domain.Envelope, bool) {
	var env domain.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return domain.Envelope{}, false
	}
	if !env.Type.Known() {
		return domain.Envelope{}, false
	}
	return env, true
}
