package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/Fadeefcom/Aggregator/shared"
)

// FileChannel appends alerts to a log file as JSON lines.
type FileChannel struct {
	file *os.File
	mtx  sync.Mutex
}

// Ensure the file channel implements the NotificationChannel interface.
var _ shared.NotificationChannel = (*FileChannel)(nil)

// NewFileChannel initializes a new file notification channel appending to the
// provided path.
func NewFileChannel(path string) (*FileChannel, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening alert log %s: %v", path, err)
	}

	return &FileChannel{file: file}, nil
}

// Name identifies the channel.
func (f *FileChannel) Name() string {
	return "file"
}

// Send appends the provided alert to the log file.
func (f *FileChannel) Send(ctx context.Context, alert shared.Alert) error {
	line, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("encoding alert: %v", err)
	}

	f.mtx.Lock()
	defer f.mtx.Unlock()

	_, err = f.file.Write(append(line, '\n'))
	if err != nil {
		return fmt.Errorf("appending alert to log: %v", err)
	}

	return nil
}

// Close closes the underlying log file.
func (f *FileChannel) Close() error {
	return f.file.Close()
}
