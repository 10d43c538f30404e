package memstore_test

import (
	"testing"

	"github.com/marlkit/marl/pkg/adapters/memstore"
	"github.com/marlkit/marl/pkg/adapters/storetest"
	"github.com/marlkit/marl/pkg/core"
)

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) core.Store {
		return memstore.New()
	})
}
