package cmd

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/chzyer/readline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uidb/gateway/internal/gateway"
	"uidb/gateway/internal/profile"
)

type scriptedInput struct {
	lines   []string
	errs    []error
	prompts []string
}

func (s *scriptedInput) Readline() (string, error) {
	if len(s.lines) == 0 {
		return "", io.EOF
	}
	line, err := s.lines[0], s.errs[0]
	s.lines, s.errs = s.lines[1:], s.errs[1:]
	return line, err
}

func (s *scriptedInput) SetPrompt(p string) { s.prompts = append(s.prompts, p) }

type recordingBackend struct {
	reqs []gateway.Request
}

func (b *recordingBackend) Dispatch(_ context.Context, _ string, req gateway.Request) (*gateway.Result, error) {
	b.reqs = append(b.reqs, req)
	return &gateway.Result{Kind: req.Kind(), Outcome: gateway.OutcomeOK, Message: "ok"}, nil
}

func (b *recordingBackend) Connect(context.Context, profile.ConnectionProfile) error { return nil }

func (b *recordingBackend) Profile(context.Context, string) (profile.ConnectionProfile, error) {
	return profile.ConnectionProfile{}, nil
}

func (b *recordingBackend) Disconnect(context.Context, string) error { return nil }

func TestShellReadLoop(t *testing.T) {
	t.Run("multi-line statement then EOF", func(t *testing.T) {
		be := &recordingBackend{}
		s := &shellSession{be: be, principal: "alice", out: &bytes.Buffer{}, errOut: &bytes.Buffer{}}
		in := &scriptedInput{
			lines: []string{"SELECT", "1;", "partial", ""},
			errs:  []error{nil, nil, nil, readline.ErrInterrupt},
		}

		require.NoError(t, s.readLoop(context.Background(), in))
		require.Len(t, be.reqs, 1)
		assert.Equal(t, gateway.Shell{SQL: "SELECT\n1"}, be.reqs[0])
		assert.Equal(t, []string{shellContPrompt, shellPrompt, shellContPrompt, shellPrompt}, in.prompts)
	})

	t.Run("terminal failure ends the loop", func(t *testing.T) {
		be := &recordingBackend{}
		s := &shellSession{be: be, principal: "alice", out: &bytes.Buffer{}, errOut: &bytes.Buffer{}}
		broken := errors.New("terminal closed")
		in := &scriptedInput{
			lines: []string{"", "SELECT 1;"},
			errs:  []error{broken, nil},
		}

		err := s.readLoop(context.Background(), in)
		assert.ErrorIs(t, err, broken)
		assert.Empty(t, be.reqs)
	})

	t.Run("quit command", func(t *testing.T) {
		be := &recordingBackend{}
		s := &shellSession{be: be, principal: "alice", out: &bytes.Buffer{}, errOut: &bytes.Buffer{}}
		in := &scriptedInput{lines: []string{".quit", "SELECT 1;"}, errs: []error{nil, nil}}

		require.NoError(t, s.readLoop(context.Background(), in))
		assert.Empty(t, be.reqs)
	})
}
