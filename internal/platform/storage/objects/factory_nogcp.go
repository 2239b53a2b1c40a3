//go:build !gcp

package objects

import (
	"context"
	"fmt"
)

func newGCSStore(context.Context, Config) (Store, error) {
	return nil, fmt.Errorf("objects: suporte a gcs nao compilado (use -tags gcp)")
}
