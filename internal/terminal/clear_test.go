package terminal

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadSecret_PipedInput(t *testing.T) {
	got, err := ReadSecret("Password: ", strings.NewReader("s3cret\r\nignored\n"))
	require.NoError(t, err)
	assert.Equal(t, "s3cret", got)

	got, err = ReadSecret("Password: ", strings.NewReader("no-newline"))
	require.NoError(t, err)
	assert.Equal(t, "no-newline", got)
}

func TestWidthFallsBack(t *testing.T) {
	assert.Positive(t, Width())
}
