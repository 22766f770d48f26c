package notify

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"

	"backtester/internal/models"
)

// PerfLog дописывает каждое решение строкой JSON в файл, по одной на символ за цикл.
type PerfLog struct {
	mu  sync.Mutex
	f   *os.File
	now func() time.Time
}

type perfEntry struct {
	Timestamp time.Time `json:"timestamp"`
	models.Decision
}

func NewPerfLog(path string) (*PerfLog, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, "create perf log dir")
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "open perf log %s", path)
	}
	return &PerfLog{f: f, now: time.Now}, nil
}

func (l *PerfLog) Name() string { return "perf_log" }

func (l *PerfLog) Publish(_ context.Context, d models.Decision) error {
	line, err := sonic.Marshal(perfEntry{Timestamp: l.now().UTC(), Decision: d})
	if err != nil {
		return err
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	_, err = l.f.Write(line)
	return errors.Wrap(err, "write perf log")
}

func (l *PerfLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.f.Close()
}
