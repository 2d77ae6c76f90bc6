package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindsMatchWithErrorsIs(t *testing.T) {
	err := NotFound("region %q", "Ngomongo")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrInvalidArgument))
	assert.Equal(t, `region "Ngomongo"`, err.Error())

	wrapped := fmt.Errorf("append sale: %w", err)
	assert.True(t, errors.Is(wrapped, ErrNotFound))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("fk violation")
	err := Wrap(ErrNotFound, cause, "insert sale")

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "insert sale: fk violation", err.Error())
	assert.Nil(t, Wrap(ErrNotFound, nil, "nothing"))
}

func TestStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{InvalidArgument("bad"), http.StatusBadRequest},
		{NotFound("x"), http.StatusNotFound},
		{NotTrained("x"), http.StatusConflict},
		{InsufficientData("x"), http.StatusUnprocessableEntity},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Status(c.err), "err=%v", c.err)
	}
}
