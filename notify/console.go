package notify

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/Fadeefcom/Aggregator/shared"
)

// ConsoleChannel writes alerts to the provided writer, one line per alert.
type ConsoleChannel struct {
	out io.Writer
}

// Ensure the console channel implements the NotificationChannel interface.
var _ shared.NotificationChannel = (*ConsoleChannel)(nil)

// NewConsoleChannel initializes a new console notification channel.
func NewConsoleChannel(out io.Writer) *ConsoleChannel {
	return &ConsoleChannel{out: out}
}

// Name identifies the channel.
func (c *ConsoleChannel) Name() string {
	return "console"
}

// Send writes the provided alert to the console.
func (c *ConsoleChannel) Send(ctx context.Context, alert shared.Alert) error {
	_, err := fmt.Fprintf(c.out, "[%s] %s %s: %s\n", alert.Severity,
		alert.Timestamp.Format(time.RFC3339), alert.Symbol, alert.Message)
	if err != nil {
		return fmt.Errorf("writing alert to console: %v", err)
	}

	return nil
}
