package memory_test

import (
	"testing"

	"github.com/cory-johannsen/sailor/internal/storage/memory"
	"github.com/cory-johannsen/sailor/internal/storage/storetest"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storetest.Store {
		return memory.New()
	})
}
