package objects

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// FileStore grava os objetos em um diretório local, servido pela API em /audio/.
type FileStore struct {
	root string
	base string
}

func NewFileStore(root, publicBase string) (*FileStore, error) {
	if root == "" {
		return nil, fmt.Errorf("objects: diretorio de dados vazio")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("objects: criar diretorio %s: %w", root, err)
	}
	return &FileStore{root: root, base: publicBase}, nil
}

func (s *FileStore) Root() string { return s.root }

func (s *FileStore) Upload(ctx context.Context, name string, data []byte, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("objects: nome invalido %q", name)
	}

	path := filepath.Join(s.root, name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return ErrObjectExists
		}
		return fmt.Errorf("objects: abrir %s: %w", name, err)
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return fmt.Errorf("objects: gravar %s: %w", name, err)
	}
	return f.Close()
}

func (s *FileStore) PublicURL(name string) string {
	return joinURL(s.base, url.PathEscape(name))
}

func (s *FileStore) Ping(context.Context) error {
	info, err := os.Stat(s.root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("objects: %s nao e diretorio", s.root)
	}
	return nil
}
