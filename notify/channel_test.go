package notify

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Fadeefcom/Aggregator/shared"
	"github.com/peterldowns/testy/assert"
)

func TestConsoleChannel(t *testing.T) {
	var out strings.Builder
	channel := NewConsoleChannel(&out)
	assert.Equal(t, "console", channel.Name())

	err := channel.Send(context.Background(), newTestAlert("BTCUSD", "price out of band"))
	assert.NoError(t, err)

	line := out.String()
	assert.True(t, strings.Contains(line, "[warning]"))
	assert.True(t, strings.Contains(line, "BTCUSD"))
	assert.True(t, strings.Contains(line, "price out of band"))
	assert.True(t, strings.HasSuffix(line, "\n"))
}

func TestFileChannel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alerts.log")

	channel, err := NewFileChannel(path)
	assert.NoError(t, err)
	assert.Equal(t, "file", channel.Name())

	first := newTestAlert("BTCUSD", "price out of band")
	second := newTestAlert("ETHUSD", "volume spike")
	assert.NoError(t, channel.Send(context.Background(), first))
	assert.NoError(t, channel.Send(context.Background(), second))
	assert.NoError(t, channel.Close())

	file, err := os.Open(path)
	assert.NoError(t, err)
	defer file.Close()

	// Ensure the log holds one JSON document per line, in send order.
	var alerts []shared.Alert
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var alert shared.Alert
		assert.NoError(t, json.Unmarshal(scanner.Bytes(), &alert))
		alerts = append(alerts, alert)
	}
	assert.NoError(t, scanner.Err())

	assert.Equal(t, 2, len(alerts))
	assert.Equal(t, first.Symbol, alerts[0].Symbol)
	assert.Equal(t, first.Message, alerts[0].Message)
	assert.Equal(t, second.Symbol, alerts[1].Symbol)
}

func TestFileChannelAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alerts.log")

	// Ensure reopening the log preserves previously recorded alerts.
	for idx := 0; idx < 2; idx++ {
		channel, err := NewFileChannel(path)
		assert.NoError(t, err)
		assert.NoError(t, channel.Send(context.Background(), newTestAlert("BTCUSD", "queued")))
		assert.NoError(t, channel.Close())
	}

	contents, err := os.ReadFile(path)
	assert.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(contents), "\n"))
}
