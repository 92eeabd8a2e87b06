package event

import (
	"bufio"
	"context"
	"os"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/yanun0323/errors"
)

// journalRecord is one line of the event journal.
type journalRecord struct {
	Type       string `json:"type"`
	OrderID    string `json:"orderId"`
	OccurredAt string `json:"occurredAt"`
}

// Journal appends events to a JSON-lines file.
type Journal struct {
	mu sync.Mutex
	f  *os.File
	w  *bufio.Writer
}

// OpenJournal opens path for appending, creating it if needed.
func OpenJournal(path string) (*Journal, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "open event journal").With("path", path)
	}
	return &Journal{f: f, w: bufio.NewWriter(f)}, nil
}

func (j *Journal) Handle(_ context.Context, e Event) error {
	b, err := sonic.ConfigFastest.Marshal(journalRecord{
		Type:       e.Kind.String(),
		OrderID:    e.OrderID,
		OccurredAt: e.OccurredAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return errors.Wrap(err, "marshal journal record")
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.f == nil {
		return errors.New("event journal closed")
	}
	if _, err := j.w.Write(append(b, '\n')); err != nil {
		return errors.Wrap(err, "write journal record")
	}
	if err := j.w.Flush(); err != nil {
		return errors.Wrap(err, "flush journal")
	}
	return nil
}

func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.f == nil {
		return nil
	}
	flushErr := j.w.Flush()
	closeErr := j.f.Close()
	j.f = nil
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}
