// Pacote redis implementa sessões, fila de recontagem e contadores sobre Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/marcelojr/track-battle/internal/domain"
)

// Fila usa uma lista Redis para entregar pedidos de recontagem ao worker.
type Fila struct {
	client *redis.Client
	key    string
}

func NewFila(client *redis.Client, key string) *Fila {
	return &Fila{
		client: client,
		key:    key,
	}
}

func (f *Fila) PublicarRecontagem(ctx context.Context, r domain.Recount) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("redis fila: falha serializando recontagem: %w", err)
	}
	if err := f.client.LPush(ctx, f.key, payload).Err(); err != nil {
		return fmt.Errorf("redis fila: falha ao enfileirar recontagem: %w", err)
	}
	return nil
}

func (f *Fila) ConsumirRecontagens(ctx context.Context, handler func(context.Context, domain.Recount) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		// BRPOP com timeout curto para respeitar o cancelamento do contexto.
		res, err := f.client.BRPop(ctx, 5*time.Second, f.key).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return fmt.Errorf("redis fila: falha ao consumir recontagem: %w", err)
		}

		if len(res) != 2 {
			continue
		}

		var r domain.Recount
		if err := json.Unmarshal([]byte(res[1]), &r); err != nil {
			return fmt.Errorf("redis fila: payload invalido: %w", err)
		}

		if err := handler(ctx, r); err != nil {
			return err
		}
	}
}

// Len informa quantos pedidos aguardam na fila.
func (f *Fila) Len(ctx context.Context) (int64, error) {
	return f.client.LLen(ctx, f.key).Result()
}

var _ domain.Fila = (*Fila)(nil)
