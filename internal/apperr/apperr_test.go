package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOfWrapped(t *testing.T) {
	base := Conflict("email already in use")
	wrapped := fmt.Errorf("creating user: %w", base)

	assert.Equal(t, KindConflict, KindOf(wrapped))
	assert.True(t, Is(wrapped, KindConflict))
	assert.False(t, Is(wrapped, KindValidation))
	assert.Equal(t, http.StatusConflict, HTTPStatus(wrapped))
}

func TestUnclassifiedIsInternal(t *testing.T) {
	err := errors.New("disk on fire")
	assert.Equal(t, KindInternal, KindOf(err))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(err))
	assert.False(t, Is(nil, KindInternal))
}

func TestHTTPStatusByKind(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{Validation("bad"), http.StatusBadRequest},
		{NotFound("missing"), http.StatusNotFound},
		{Authentication("who"), http.StatusUnauthorized},
		{Authorization("no"), http.StatusForbidden},
		{Conflict("taken"), http.StatusConflict},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.err), tt.err.Error())
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("constraint failed")
	err := Wrap(KindConflict, cause, "username already in use")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "username already in use: constraint failed", err.Error())
}
