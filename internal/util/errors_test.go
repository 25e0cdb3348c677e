package util

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusOf(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{NewValidationError("title", "Title is required"), http.StatusBadRequest},
		{ErrTestNotFound, http.StatusNotFound},
		{fmt.Errorf("wrapped: %w", ErrAttemptNotFound), http.StatusNotFound},
		{ErrForbidden, http.StatusForbidden},
		{StorageError("save", errors.New("disk full")), http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, StatusOf(tc.err), tc.err.Error())
	}
}

func TestPublicMessage(t *testing.T) {
	assert.Equal(t, "Title is required", PublicMessage(NewValidationError("title", "Title is required")))
	assert.Equal(t, "Not found", PublicMessage(ErrFileNotFound))
	assert.Equal(t, "Internal server error", PublicMessage(StorageError("save", errors.New("disk full"))))
}
