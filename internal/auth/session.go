package auth

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/dmitrijs2005/docsync/internal/common"
	"github.com/dmitrijs2005/docsync/internal/filex"
)

// SaveToken writes the session token readable by the owner only.
func SaveToken(path, token string) error {
	if err := filex.EnsureParentDir(path); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	if err := os.WriteFile(path, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// LoadToken returns common.ErrorNotFound when no session was saved.
func LoadToken(path string) (string, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", common.ErrorNotFound
	}
	if err != nil {
		return "", fmt.Errorf("load session: %w", err)
	}
	token := strings.TrimSpace(string(b))
	if token == "" {
		return "", common.ErrorNotFound
	}
	return token, nil
}

func RemoveToken(path string) error {
	err := os.Remove(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}
