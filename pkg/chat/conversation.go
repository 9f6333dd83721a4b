package chat

import (
	"sync"

	"github.com/malbeclabs/finagent/pkg/llm"
)

// Conversation is the ordered message history of one chat session.
type Conversation struct {
	// turn is held for the duration of a reply so messages in one session are answered in order.
	turn sync.Mutex

	mu       sync.Mutex
	messages []llm.Message
}

func NewConversation() *Conversation {
	return &Conversation{}
}

func (c *Conversation) Append(m llm.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, m)
}

// Messages returns a copy of the history.
func (c *Conversation) Messages() []llm.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]llm.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Recent returns a copy of at most the last n messages. n <= 0 returns everything.
func (c *Conversation) Recent(n int) []llm.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	start := 0
	if n > 0 && len(c.messages) > n {
		start = len(c.messages) - n
	}
	out := make([]llm.Message, len(c.messages)-start)
	copy(out, c.messages[start:])
	return out
}

func (c *Conversation) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

func (c *Conversation) truncate(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n < len(c.messages) {
		c.messages = c.messages[:n]
	}
}
