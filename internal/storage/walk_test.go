package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingVisitor struct {
	events []string
	failOn string
}

func (v *recordingVisitor) OnDirEnter(_ context.Context, p string) error {
	v.events = append(v.events, "enter "+p)
	return nil
}

func (v *recordingVisitor) ProcessFile(_ context.Context, p string) error {
	if p == v.failOn {
		return errors.New("boom")
	}
	v.events = append(v.events, "file "+p)
	return nil
}

func (v *recordingVisitor) OnDirExit(_ context.Context, p string) error {
	v.events = append(v.events, "exit "+p)
	return nil
}

func TestWalkPostOrder(t *testing.T) {
	s := newTestStorage(t, Options{})
	storeBytes(t, s, "/g/a/1.0/a-1.0.jar", []byte("jar"))
	storeBytes(t, s, "/g/a/readme", []byte("r"))
	storeBytes(t, s, "/g/.cache/skip", []byte("s"))

	v := &recordingVisitor{}
	require.NoError(t, s.Walk(context.Background(), "/", v))
	assert.Equal(t, []string{
		"enter /",
		"enter /g",
		"enter /g/a",
		"enter /g/a/1.0",
		"file /g/a/1.0/a-1.0.jar",
		"exit /g/a/1.0",
		"file /g/a/readme",
		"exit /g/a",
		"exit /g",
		"exit /",
	}, v.events)
}

func TestWalkSingleFileAndErrors(t *testing.T) {
	s := newTestStorage(t, Options{})
	storeBytes(t, s, "/only", []byte("x"))

	v := &recordingVisitor{}
	require.NoError(t, s.Walk(context.Background(), "/only", v))
	assert.Equal(t, []string{"file /only"}, v.events)

	err := s.Walk(context.Background(), "/missing", v)
	assert.ErrorIs(t, err, ErrItemNotFound)

	failing := &recordingVisitor{failOn: "/only"}
	assert.Error(t, s.Walk(context.Background(), "/", failing))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Walk(ctx, "/", &recordingVisitor{}), context.Canceled)
}
