// Pacote objects guarda os arquivos de áudio enviados, com nomes gravados uma única vez.
package objects

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrObjectExists indica que já existe um objeto com o nome pedido.
var ErrObjectExists = errors.New("objeto ja existe")

type StoreType string

const (
	StoreTypeFS  StoreType = "fs"
	StoreTypeS3  StoreType = "s3"
	StoreTypeGCS StoreType = "gcs"
)

// Store é o contrato comum dos backends; satisfaz domain.ObjectStorage.
type Store interface {
	Upload(ctx context.Context, name string, data []byte, contentType string) error
	PublicURL(name string) string
	Ping(ctx context.Context) error
}

type Config struct {
	Type     StoreType
	DataDir  string
	Bucket   string
	Region   string
	Endpoint string
	Prefix   string
	// PublicBaseURL é o prefixo usado para montar a URL pública de cada objeto.
	PublicBaseURL string
}

func NewFromConfig(ctx context.Context, cfg Config) (Store, error) {
	if cfg.Type == "" {
		cfg.Type = StoreTypeFS
	}

	switch cfg.Type {
	case StoreTypeFS:
		base := cfg.PublicBaseURL
		if base == "" {
			base = "/audio"
		}
		return NewFileStore(cfg.DataDir, base)
	case StoreTypeS3:
		if cfg.Bucket == "" {
			return nil, fmt.Errorf("objects: OBJECT_BUCKET obrigatorio para s3")
		}
		return NewS3Store(ctx, S3StoreConfig{
			Bucket:        cfg.Bucket,
			Region:        cfg.Region,
			Endpoint:      cfg.Endpoint,
			Prefix:        cfg.Prefix,
			PublicBaseURL: cfg.PublicBaseURL,
		})
	case StoreTypeGCS:
		if cfg.Bucket == "" {
			return nil, fmt.Errorf("objects: OBJECT_BUCKET obrigatorio para gcs")
		}
		return newGCSStore(ctx, cfg)
	default:
		return nil, fmt.Errorf("objects: tipo de armazenamento nao suportado: %s", cfg.Type)
	}
}

// escapeKey escapa cada segmento da chave e preserva as barras do prefixo.
func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
