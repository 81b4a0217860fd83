package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/propdesk/internal/functions"
)

type recorder struct {
	got []Message
	err error
}

func (r *recorder) Notify(_ context.Context, msg Message) error {
	r.got = append(r.got, msg)
	return r.err
}

func TestMultiAttemptsAll(t *testing.T) {
	failing := &recorder{err: errors.New("smtp down")}
	ok := &recorder{}
	m := Multi{failing, ok}

	err := m.Notify(context.Background(), Message{Subject: "s"})
	assert.ErrorContains(t, err, "smtp down")
	assert.Len(t, failing.got, 1)
	assert.Len(t, ok.got, 1)

	assert.NoError(t, Multi{ok}.Notify(context.Background(), Message{}))
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := NewLog(slog.New(slog.NewJSONHandler(&buf, nil)))
	require.NoError(t, n.Notify(context.Background(), Message{Subject: "Upload failed", Critical: true}))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "WARN", line["level"])
	assert.Equal(t, "Upload failed", line["subject"])
}

func TestFunctionNotifier(t *testing.T) {
	var gotName string
	var gotPayload any
	inv := functions.InvokerFunc(func(_ context.Context, name string, payload any) (json.RawMessage, error) {
		gotName, gotPayload = name, payload
		return nil, nil
	})
	msg := Message{Subject: "New ticket"}
	require.NoError(t, NewFunction(inv).Notify(context.Background(), msg))
	assert.Equal(t, functions.SendProblemNotification, gotName)
	assert.Equal(t, msg, gotPayload)

	failing := functions.InvokerFunc(func(context.Context, string, any) (json.RawMessage, error) {
		return nil, errors.New("boom")
	})
	assert.Error(t, NewFunction(failing).Notify(context.Background(), msg))
}

func TestWhenGatesDelivery(t *testing.T) {
	r := &recorder{}
	on := false
	n := When(func() bool { return on }, r)

	require.NoError(t, n.Notify(context.Background(), Message{Subject: "dropped"}))
	on = true
	require.NoError(t, n.Notify(context.Background(), Message{Subject: "sent"}))

	require.Len(t, r.got, 1)
	assert.Equal(t, "sent", r.got[0].Subject)
}
