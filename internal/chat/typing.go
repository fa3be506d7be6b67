package chat

import (
	"strings"

	"github.com/ashureev/jecnabot/internal/config"
	"github.com/ashureev/jecnabot/internal/domain"
)

// deliverBot adds a bot reply, simulating typing when configured.
func (c *Controller) deliverBot(text string) {
	switch c.opts.TypingMode {
	case config.TypingWords:
		c.revealWords(text)
	case config.TypingDelay:
		id := c.appendMessage(domain.SenderBot, c.opts.Placeholder, true)
		c.sched.After(c.opts.TypingDelay, func() {
			c.replaceMessage(id, text, false)
		})
	default:
		c.appendMessage(domain.SenderBot, text, false)
	}
}

// revealWords inserts a placeholder and uncovers text one word per interval.
// The final step restores the exact original text.
func (c *Controller) revealWords(text string) {
	id := c.appendMessage(domain.SenderBot, c.opts.Placeholder, true)
	words := strings.Fields(text)
	if len(words) == 0 {
		c.replaceMessageLocal(id, text, false)
		return
	}
	c.revealStep(id, text, words, 1)
}

func (c *Controller) revealStep(id int64, text string, words []string, n int) {
	c.sched.After(c.opts.TypingInterval, func() {
		if n >= len(words) {
			c.replaceMessage(id, text, false)
			return
		}
		c.replaceMessage(id, strings.Join(words[:n], " "), true)
		c.revealStep(id, text, words, n+1)
	})
}

// replaceMessage updates a message in place by id and publishes.
func (c *Controller) replaceMessage(id int64, text string, pending bool) {
	if c.replaceMessageLocal(id, text, pending) {
		c.publish()
	}
}

func (c *Controller) replaceMessageLocal(id int64, text string, pending bool) bool {
	i := c.state.messageIndex(id)
	if i < 0 {
		c.logger.Warn("Placeholder vanished before reveal", "message_id", id)
		return false
	}
	c.state.Messages[i].Text = text
	c.state.Messages[i].Pending = pending
	return true
}
