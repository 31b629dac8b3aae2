package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RichardoC/textwriter/internal/models"
)

// stubGenerator answers with reply unless GenerateFunc is set.
type stubGenerator struct {
	mu           sync.Mutex
	prompts      []string
	reply        string
	GenerateFunc func(ctx context.Context, prompt string) (string, error)
}

func (s *stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	s.mu.Unlock()
	if s.GenerateFunc != nil {
		return s.GenerateFunc(ctx, prompt)
	}
	return s.reply, nil
}

func (s *stubGenerator) calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.prompts...)
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("msg-%d", n)
	}
}

func fixedClock() time.Time {
	return time.Date(2024, 5, 1, 9, 7, 0, 0, time.UTC)
}

func newTestManager(gen Generator, opts ...Option) *Manager {
	base := []Option{WithClock(fixedClock), WithIDGenerator(sequentialIDs())}
	return NewManager(gen, append(base, opts...)...)
}

func countPending(msgs []models.Message) int {
	n := 0
	for _, m := range msgs {
		if m.Status == models.StatusPending {
			n++
		}
	}
	return n
}

func TestSubmitSuccess(t *testing.T) {
	gen := &stubGenerator{reply: "Hi there"}
	m := newTestManager(gen)

	reply, err := m.Submit(context.Background(), "Hello")
	require.NoError(t, err)

	msgs := m.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, models.SenderUser, msgs[0].Sender)
	assert.Equal(t, "Hello", msgs[0].Text)
	assert.Equal(t, models.StatusFinal, msgs[0].Status)
	assert.Equal(t, models.SenderBot, msgs[1].Sender)
	assert.Equal(t, "Hi there", msgs[1].Text)
	assert.Equal(t, models.StatusFinal, msgs[1].Status)
	assert.False(t, msgs[1].Liked)
	assert.Equal(t, msgs[1], reply)
	assert.Equal(t, "09:07", msgs[1].Clock())
	assert.False(t, m.Busy())
}

func TestSubmitProviderFailure(t *testing.T) {
	gen := &stubGenerator{GenerateFunc: func(context.Context, string) (string, error) {
		return "", errors.New("quota exceeded")
	}}
	m := newTestManager(gen)

	reply, err := m.Submit(context.Background(), "Hello")
	require.NoError(t, err)

	msgs := m.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, models.StatusError, msgs[1].Status)
	assert.Equal(t, DefaultErrorText, msgs[1].Text)
	assert.Equal(t, msgs[1], reply)
	assert.False(t, m.Busy())
}

func TestSubmitRecoversGeneratorPanic(t *testing.T) {
	gen := &stubGenerator{GenerateFunc: func(context.Context, string) (string, error) {
		panic("malformed response")
	}}
	m := newTestManager(gen, WithErrorText("failed"))

	reply, err := m.Submit(context.Background(), "Hello")
	require.NoError(t, err)
	assert.Equal(t, models.StatusError, reply.Status)
	assert.Equal(t, "failed", reply.Text)
	assert.False(t, m.Busy())
}

func TestSubmitIgnoresBlankInput(t *testing.T) {
	for _, input := range []string{"", " ", "\t\n", "   \r\n  "} {
		t.Run(fmt.Sprintf("%q", input), func(t *testing.T) {
			gen := &stubGenerator{reply: "unused"}
			m := newTestManager(gen)

			_, err := m.Submit(context.Background(), input)
			assert.ErrorIs(t, err, ErrEmptyPrompt)
			assert.Empty(t, m.Messages())
			assert.False(t, m.Busy())
			assert.Empty(t, gen.calls())
		})
	}
}

func TestSubmitTrimsPromptButKeepsRawText(t *testing.T) {
	gen := &stubGenerator{reply: "ok"}
	m := newTestManager(gen)

	_, err := m.Submit(context.Background(), "  what is kale?\n")
	require.NoError(t, err)
	assert.Equal(t, []string{"what is kale?"}, gen.calls())
	assert.Equal(t, "  what is kale?\n", m.Messages()[0].Text)
}

func TestSubmitWhileBusyIsRejected(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	gen := &stubGenerator{GenerateFunc: func(context.Context, string) (string, error) {
		close(started)
		<-release
		return "done", nil
	}}
	m := newTestManager(gen)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = m.Submit(context.Background(), "first")
	}()
	<-started

	msgs := m.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, models.StatusPending, msgs[1].Status)
	assert.Equal(t, DefaultPlaceholder, msgs[1].Text)
	assert.True(t, m.Busy())

	_, err := m.Submit(context.Background(), "second")
	assert.ErrorIs(t, err, ErrBusy)
	assert.Len(t, m.Messages(), 2)
	assert.Equal(t, 1, countPending(m.Messages()))

	close(release)
	<-done

	msgs = m.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "done", msgs[1].Text)
	assert.Equal(t, "msg-2", msgs[1].ID, "placeholder keeps its id")
	assert.Equal(t, []string{"first"}, gen.calls())
	assert.False(t, m.Busy())
}

func TestConcurrentSubmitsKeepOnePending(t *testing.T) {
	release := make(chan struct{})
	gen := &stubGenerator{GenerateFunc: func(context.Context, string) (string, error) {
		<-release
		return "reply", nil
	}}
	m := NewManager(gen)

	var wg sync.WaitGroup
	results := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := m.Submit(context.Background(), fmt.Sprintf("prompt %d", i))
			results <- err
		}(i)
	}

	require.Eventually(t, func() bool {
		return len(results) == 9
	}, time.Second, time.Millisecond)
	assert.LessOrEqual(t, countPending(m.Messages()), 1)

	close(release)
	wg.Wait()
	close(results)

	accepted := 0
	for err := range results {
		if err == nil {
			accepted++
			continue
		}
		assert.ErrorIs(t, err, ErrBusy)
	}
	assert.Equal(t, 1, accepted)
	assert.Len(t, m.Messages(), 2)
	assert.Len(t, gen.calls(), 1)
}

func TestSubmitGrowsLogByTwo(t *testing.T) {
	gen := &stubGenerator{reply: "ok"}
	m := newTestManager(gen, WithGreeting("¡Hola!"))
	require.Len(t, m.Messages(), 1)

	for i, prompt := range []string{"a", "b b", " c "} {
		_, err := m.Submit(context.Background(), prompt)
		require.NoError(t, err)
		assert.Len(t, m.Messages(), 1+2*(i+1))
	}
}

func TestIDsAreUnique(t *testing.T) {
	gen := &stubGenerator{reply: "ok"}
	m := NewManager(gen, WithGreeting("hi"))
	for i := 0; i < 20; i++ {
		_, err := m.Submit(context.Background(), "ping")
		require.NoError(t, err)
	}

	seen := make(map[string]bool)
	for _, msg := range m.Messages() {
		assert.NotEmpty(t, msg.ID)
		assert.False(t, seen[msg.ID], "duplicate id %s", msg.ID)
		seen[msg.ID] = true
	}
}

func TestDuplicateIDsFromGeneratorAreReplaced(t *testing.T) {
	gen := &stubGenerator{reply: "Hi"}
	m := NewManager(gen, WithGreeting("hola"), WithIDGenerator(func() string { return "dup" }))

	first, err := m.Submit(context.Background(), "uno")
	require.NoError(t, err)
	second, err := m.Submit(context.Background(), "dos")
	require.NoError(t, err)

	msgs := m.Messages()
	require.Len(t, msgs, 5)
	seen := make(map[string]bool)
	for _, msg := range msgs {
		assert.NotEmpty(t, msg.ID)
		assert.False(t, seen[msg.ID], "duplicate id %s", msg.ID)
		seen[msg.ID] = true
	}
	assert.Equal(t, "dup", msgs[0].ID, "the first use of an id is kept")
	assert.Equal(t, msgs[2].ID, first.ID)
	assert.Equal(t, msgs[4].ID, second.ID)

	liked, err := m.ToggleLike(first.ID)
	require.NoError(t, err)
	assert.True(t, liked.Liked)
	assert.True(t, m.Messages()[2].Liked)
	assert.False(t, m.Messages()[4].Liked)

	text, err := m.CopyText(msgs[3].ID)
	require.NoError(t, err)
	assert.Equal(t, "dos", text)
}

func TestGreeting(t *testing.T) {
	m := newTestManager(&stubGenerator{}, WithGreeting("¿En qué te ayudo?"))

	msgs := m.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, models.SenderBot, msgs[0].Sender)
	assert.Equal(t, models.StatusFinal, msgs[0].Status)
	assert.Equal(t, "¿En qué te ayudo?", msgs[0].Text)
	assert.False(t, m.Busy())
}

func TestToggleLike(t *testing.T) {
	m := newTestManager(&stubGenerator{reply: "Hi"})
	_, err := m.Submit(context.Background(), "Hello")
	require.NoError(t, err)
	_, err = m.Submit(context.Background(), "Again")
	require.NoError(t, err)

	liked, err := m.ToggleLike("msg-2")
	require.NoError(t, err)
	assert.True(t, liked.Liked)

	msgs := m.Messages()
	assert.True(t, msgs[1].Liked)
	assert.False(t, msgs[3].Liked, "other messages are untouched")

	unliked, err := m.ToggleLike("msg-2")
	require.NoError(t, err)
	assert.False(t, unliked.Liked)
	assert.False(t, m.Messages()[1].Liked)
}

func TestToggleLikeErrors(t *testing.T) {
	m := newTestManager(&stubGenerator{reply: "Hi"})
	_, err := m.Submit(context.Background(), "Hello")
	require.NoError(t, err)
	before := m.Messages()

	_, err = m.ToggleLike("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = m.ToggleLike("msg-1")
	assert.ErrorIs(t, err, ErrNotLikeable)

	assert.Equal(t, before, m.Messages())
}

func TestCopyText(t *testing.T) {
	m := newTestManager(&stubGenerator{reply: "Come más verduras."})
	_, err := m.Submit(context.Background(), "Tip?")
	require.NoError(t, err)
	before := m.Messages()

	text, err := m.CopyText("msg-2")
	require.NoError(t, err)
	assert.Equal(t, "Come más verduras.", text)

	text, err = m.CopyText("msg-1")
	require.NoError(t, err)
	assert.Equal(t, "Tip?", text)

	_, err = m.CopyText("nope")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, before, m.Messages())
}

func TestRegenerate(t *testing.T) {
	replies := []string{"first answer", "second answer"}
	gen := &stubGenerator{}
	gen.GenerateFunc = func(context.Context, string) (string, error) {
		r := replies[0]
		replies = replies[1:]
		return r, nil
	}
	m := newTestManager(gen, WithGreeting("hola"))

	_, err := m.Submit(context.Background(), " Hello ")
	require.NoError(t, err)

	reply, err := m.Regenerate(context.Background(), "msg-3")
	require.NoError(t, err)
	assert.Equal(t, "second answer", reply.Text)

	msgs := m.Messages()
	require.Len(t, msgs, 5)
	assert.Equal(t, "first answer", msgs[2].Text)
	assert.Equal(t, " Hello ", msgs[3].Text)
	assert.Equal(t, []string{"Hello", "Hello"}, gen.calls())

	_, err = m.Regenerate(context.Background(), "msg-1")
	assert.ErrorIs(t, err, ErrNotRegenerable, "greeting has no prompt")
	_, err = m.Regenerate(context.Background(), "msg-2")
	assert.ErrorIs(t, err, ErrNotRegenerable, "user messages cannot be regenerated")
	_, err = m.Regenerate(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSubscribeSignalsChanges(t *testing.T) {
	m := newTestManager(&stubGenerator{reply: "ok"})
	ch, unsubscribe := m.Subscribe()
	defer unsubscribe()

	_, err := m.Submit(context.Background(), "hi")
	require.NoError(t, err)

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("expected change notification")
	}
}

func TestUnsubscribeStopsSignals(t *testing.T) {
	m := newTestManager(&stubGenerator{reply: "ok"})
	ch, unsubscribe := m.Subscribe()
	unsubscribe()

	_, err := m.Submit(context.Background(), "hi")
	require.NoError(t, err)

	select {
	case <-ch:
		t.Fatal("unexpected notification after unsubscribe")
	default:
	}
}

func TestSnapshot(t *testing.T) {
	m := newTestManager(&stubGenerator{reply: "ok"})
	_, err := m.Submit(context.Background(), "hi")
	require.NoError(t, err)

	snap := m.Snapshot()
	assert.False(t, snap.Busy)
	require.Len(t, snap.Messages, 2)

	snap.Messages[0].Text = "mutated"
	assert.Equal(t, "hi", m.Messages()[0].Text, "snapshot is a copy")
}
