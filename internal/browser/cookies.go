package browser

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/qepting91/threadbot/internal/domain"
)

// LoadCookies reads a saved cookie jar. A missing file means no saved session.
func LoadCookies(path string) ([]domain.Cookie, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var cookies []domain.Cookie
	if err := json.Unmarshal(data, &cookies); err != nil {
		return nil, err
	}
	return cookies, nil
}

func SaveCookies(path string, cookies []domain.Cookie) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	data, err := json.MarshalIndent(cookies, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
