package archive

import (
	"context"
	"sync"
	"time"

	"github.com/park285/checkers-lobby/internal/obslog"
	"go.uber.org/zap"
)

const (
	writerBuffer  = 256
	writerTimeout = 5 * time.Second
)

// Writer saves results on its own goroutine so callers never wait on
// archive I/O. Submit drops results when the buffer is full.
type Writer struct {
	rec  Recorder
	log  *zap.Logger
	in   chan Result
	wg   sync.WaitGroup
	once sync.Once
}

func NewWriter(rec Recorder, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = obslog.L()
	}
	w := &Writer{rec: rec, log: logger, in: make(chan Result, writerBuffer)}
	w.wg.Add(1)
	go w.run()
	return w
}

func (w *Writer) Submit(r Result) {
	select {
	case w.in <- r:
	default:
		w.log.Warn("archive_dropped", zap.String("game_id", r.GameID))
	}
}

// Close stops accepting results and waits for pending saves.
func (w *Writer) Close() {
	w.once.Do(func() { close(w.in) })
	w.wg.Wait()
}

func (w *Writer) run() {
	defer w.wg.Done()
	for r := range w.in {
		ctx, cancel := context.WithTimeout(context.Background(), writerTimeout)
		err := w.rec.Save(ctx, r)
		cancel()
		if err != nil {
			w.log.Error("archive_save_failed", zap.String("game_id", r.GameID), zap.Error(err))
			continue
		}
		w.log.Debug("archive_saved", zap.String("game_id", r.GameID), zap.String("reason", string(r.Reason)))
	}
}
