package storage

import (
	"bufio"
	"encoding/json"
	"os"

	"github.com/qepting91/threadbot/internal/domain"
)

// LoadResults reads a run journal. Lines that do not decode are skipped.
func LoadResults(path string) ([]domain.TargetResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var results []domain.TargetResult
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var r domain.TargetResult
		if err := json.Unmarshal(scanner.Bytes(), &r); err == nil {
			results = append(results, r)
		}
	}
	return results, scanner.Err()
}
