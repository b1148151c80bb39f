package client

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAPIError_Is(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{"same kind", Unauthorized(), ErrUnauthorized, true},
		{"kind with reason matches bare sentinel", IncorrectFormat("bad json"), ErrIncorrectFormat, true},
		{"different kind", Generic("x"), ErrUnauthorized, false},
		{"reason must match when set", Generic("a"), Generic("b"), false},
		{"reason matches", Generic(ReasonNoConnection), Generic(ReasonNoConnection), true},
		{"wrapped", fmt.Errorf("upload: %w", LoginFailed("nope")), ErrLoginFailed, true},
		{"plain error", errors.New("x"), ErrGeneric, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errors.Is(tt.err, tt.target))
		})
	}
}

func TestAPIError_Error(t *testing.T) {
	assert.Equal(t, "unauthorized", Unauthorized().Error())
	assert.Equal(t, "incorrect format: status 500", IncorrectFormat("status 500").Error())
	assert.Equal(t, "login failed: wrong password", LoginFailed("wrong password").Error())
	assert.Equal(t, "generic: no internet connection", Generic(ReasonNoConnection).Error())
}
