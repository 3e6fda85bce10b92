package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "direct", err: New(NotFound, "no profile"), want: NotFound},
		{name: "wrapped by fmt", err: fmt.Errorf("resolve: %w", New(ConnectionError, "dial")), want: ConnectionError},
		{name: "plain error", err: stderrors.New("boom"), want: Internal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
			assert.True(t, Is(tt.err, tt.want))
		})
	}
	assert.False(t, Is(nil, Internal))
}

func TestWrap_KeepsDetailAndCause(t *testing.T) {
	cause := stderrors.New("Error 1146: Table 'shop.nope' doesn't exist")
	err := Wrap(ExecutionError, "query failed", cause)

	assert.Equal(t, cause.Error(), err.Detail)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "execution_error: query failed: "+cause.Error(), err.Error())
	assert.Equal(t, "validation_error: missing table", New(ValidationError, "missing table").Error())
}
