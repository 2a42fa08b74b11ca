// Package storetest opens throwaway sqlite stores for tests.
package storetest

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/therealvallalhatatlan/vallal-v1-sub001/internal/store"
)

// New returns a migrated in-memory store private to t.
func New(t testing.TB) *store.Store {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	st, err := store.OpenSQLite(context.Background(), dsn, store.Options{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}
