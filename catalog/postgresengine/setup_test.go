package postgresengine_test

import (
	"context"
	"testing"
	"time"

	"github.com/AntonStoeckl/library-catalog-go/catalog/postgresengine"
	"github.com/AntonStoeckl/library-catalog-go/testutil/helper/postgreswrapper"
)

func givenEngine(t *testing.T, options ...postgresengine.Option) (*postgresengine.Engine, postgreswrapper.Wrapper) {
	t.Helper()

	wrapper := postgreswrapper.CreateWrapperWithTestConfig(t, options...)
	t.Cleanup(wrapper.Close)

	return wrapper.GetEngine(), wrapper
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)

	return ctx
}

func sameDay(a, b time.Time) bool {
	return a.Format(time.DateOnly) == b.Format(time.DateOnly)
}
