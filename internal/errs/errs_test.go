// internal/errs/errs_test.go
package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	base := errors.New("boom")

	t.Run("extracts kind from wrapped chain", func(t *testing.T) {
		err := fmt.Errorf("fetching: %w", E(KindRateLimited, base))
		assert.Equal(t, KindRateLimited, KindOf(err))
		assert.True(t, IsKind(err, KindRateLimited))
		assert.ErrorIs(t, err, base)
	})

	t.Run("plain errors have no kind", func(t *testing.T) {
		assert.Equal(t, Kind(""), KindOf(base))
		assert.False(t, IsKind(base, KindTransient))
	})

	t.Run("nil cause still renders", func(t *testing.T) {
		err := E(KindCredentialNotFound, nil)
		assert.Equal(t, "credential_not_found", err.Error())
	})

	t.Run("errorf formats the cause", func(t *testing.T) {
		err := Errorf(KindPlatformNotFound, "repo %s/%s gone", "acme", "widgets")
		assert.Equal(t, "platform_not_found: repo acme/widgets gone", err.Error())
	})
}
