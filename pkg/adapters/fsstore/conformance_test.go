package fsstore

import (
	"testing"

	"github.com/marlkit/marl/pkg/adapters/storetest"
	"github.com/marlkit/marl/pkg/core"
)

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) core.Store {
		return newTestStore(t)
	})
}
