package storage

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/qepting91/threadbot/internal/domain"
)

// WriterService is the single owner of the run journal file. Results arrive
// on a channel so the pipeline never touches the file directly.
type WriterService struct {
	FilePath string
	Logger   *slog.Logger
}

func (w *WriterService) Start(wg *sync.WaitGroup, input <-chan domain.TargetResult) {
	defer wg.Done()

	logger := w.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if dir := filepath.Dir(w.FilePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Error("Journal directory unavailable", "path", dir, "err", err)
			drain(input)
			return
		}
	}
	f, err := os.OpenFile(w.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		logger.Error("Journal unavailable", "path", w.FilePath, "err", err)
		drain(input)
		return
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for res := range input {
		// NDJSON: one result per line
		if err := enc.Encode(res); err != nil {
			logger.Warn("Journal write failed", "row", res.Row, "err", err)
		}
	}
}

// drain keeps the producer from blocking when the journal cannot be opened
func drain(input <-chan domain.TargetResult) {
	for range input {
	}
}
