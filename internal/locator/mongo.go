package locator

import (
	"context"

	"github.com/kalambet/reportlocator/internal/cluster"
)

// Mongo adapts a *cluster.Cluster to the Cluster interface.
type Mongo struct {
	*cluster.Cluster
}

func (m Mongo) Open(ctx context.Context, database string) (Session, error) {
	s, err := m.Cluster.Open(ctx, database)
	if err != nil {
		return nil, err
	}
	return s, nil
}
