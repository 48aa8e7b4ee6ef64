// Package registry is the system of record for portfolios. It replaces the
// ambient in-process portfolio list with an explicit component that the
// builder and the snapshot workers receive as a dependency.
package registry

import (
	"context"
	"errors"

	"github.com/smokinadvd/crypto-portfolios/internal/domain"
)

// ErrNotFound indicates that the requested portfolio does not exist.
var ErrNotFound = errors.New("portfolio not found")

// Registry defines persistent storage for portfolios. A portfolio is never
// deleted; once its history reaches the horizon it is saved retired and
// drops out of ListLive.
type Registry interface {
	Save(ctx context.Context, p *domain.Portfolio) error
	Get(ctx context.Context, id string) (*domain.Portfolio, error)
	ListLive(ctx context.Context) ([]*domain.Portfolio, error)
	List(ctx context.Context) ([]*domain.Portfolio, error)
	Count(ctx context.Context) (int, error)
}
