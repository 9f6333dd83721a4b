package server

import (
	"context"
	"errors"
	"time"

	"github.com/malbeclabs/finagent/pkg/chat"
)

const (
	defaultSessionTTL      = 30 * time.Minute
	defaultShutdownTimeout = 10 * time.Second
	defaultMaxBodySize     = 64 << 10 // 64 KiB
)

// Replier answers one message within a conversation.
type Replier interface {
	Reply(ctx context.Context, tenantID int64, conv *chat.Conversation, message string) (chat.Reply, error)
}

type Config struct {
	Replier Replier

	// Optional configuration.
	SessionTTL      time.Duration
	ShutdownTimeout time.Duration
	MaxBodySize     int64
}

func (c *Config) Validate() error {
	if c.Replier == nil {
		return errors.New("replier is required")
	}

	// Optional configuration.
	if c.SessionTTL <= 0 {
		c.SessionTTL = defaultSessionTTL
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = defaultShutdownTimeout
	}
	if c.MaxBodySize <= 0 {
		c.MaxBodySize = defaultMaxBodySize
	}
	return nil
}
