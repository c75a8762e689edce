package apperr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexusmart/shop/internal/apperr"
)

func TestKind_HTTPStatus(t *testing.T) {
	cases := map[apperr.Kind]int{
		apperr.KindInvalidInput: http.StatusBadRequest,
		apperr.KindUnauthorized: http.StatusUnauthorized,
		apperr.KindForbidden:    http.StatusForbidden,
		apperr.KindNotFound:     http.StatusNotFound,
		apperr.KindInvalidState: http.StatusConflict,
		apperr.KindInternal:     http.StatusInternalServerError,
	}
	for kind, status := range cases {
		assert.Equal(t, status, kind.HTTPStatus(), kind.String())
	}
}

func TestKindOf(t *testing.T) {
	t.Run("finds wrapped app errors", func(t *testing.T) {
		err := fmt.Errorf("placing order: %w", apperr.InvalidState("cart is empty"))

		assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(err))
		assert.True(t, apperr.IsKind(err, apperr.KindInvalidState))

		var appErr *apperr.Error
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "cart is empty", appErr.Message)
	})

	t.Run("treats foreign errors as internal", func(t *testing.T) {
		assert.Equal(t, apperr.KindInternal, apperr.KindOf(errors.New("connection reset")))
		assert.False(t, apperr.IsKind(nil, apperr.KindInternal))
	})

	t.Run("unwraps the cause", func(t *testing.T) {
		cause := errors.New("boom")
		err := apperr.Internal("failed to save", cause)

		assert.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), "boom")
	})
}
