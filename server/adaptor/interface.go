package adaptor

import (
	"context"

	"github.com/ponyo877/bingo/server/domain"
)

type Gateway interface {
	HandleSession(ctx context.Context, session domain.Session, requests <-chan domain.Request, outbox chan<- domain.Event) error
	Status(ctx context.Context) domain.ServerStatus
}
