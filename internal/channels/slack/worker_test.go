package slack

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/geekyuvi069/CureLink/internal/conversation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChatter struct {
	mu    sync.Mutex
	reply string
	err   error
	calls []string
}

func (s *stubChatter) Chat(_ context.Context, sessionID, owner, message string) (*conversation.ChatResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, sessionID+"|"+owner+"|"+message)
	if s.err != nil {
		return nil, s.err
	}
	return &conversation.ChatResult{Response: s.reply, SessionID: sessionID}, nil
}

type post struct{ channel, text, thread string }

type recordingPoster struct {
	mu    sync.Mutex
	posts []post
	done  chan struct{}
}

func (r *recordingPoster) PostMessage(_ context.Context, channel, text, threadTS string) error {
	r.mu.Lock()
	r.posts = append(r.posts, post{channel, text, threadTS})
	r.mu.Unlock()
	if r.done != nil {
		r.done <- struct{}{}
	}
	return nil
}

func TestWorkerProcess(t *testing.T) {
	chat := &stubChatter{reply: "Dr. Ahuja has 2 appointments today."}
	poster := &recordingPoster{}
	w := NewWorker(chat, NewMemoryQueue(1), poster, nil)

	w.Process(context.Background(), InboundMessage{User: "U1", Channel: "C1", ThreadTS: "1.1", Text: "summary please"})

	assert.Equal(t, []string{"slack_U1|U1|summary please"}, chat.calls)
	assert.Equal(t, []post{{"C1", "Dr. Ahuja has 2 appointments today.", "1.1"}}, poster.posts)
}

func TestWorkerProcess_FallbackReply(t *testing.T) {
	poster := &recordingPoster{}
	w := NewWorker(&stubChatter{err: errors.New("store down")}, NewMemoryQueue(1), poster, nil)
	w.Process(context.Background(), InboundMessage{User: "U1", Channel: "C1", Text: "hi"})

	empty := NewWorker(&stubChatter{reply: ""}, NewMemoryQueue(1), poster, nil)
	empty.Process(context.Background(), InboundMessage{User: "U1", Channel: "C1", Text: "hi"})
	empty.Process(context.Background(), InboundMessage{User: "U1", Channel: "C1", Text: "   "})

	require.Len(t, poster.posts, 2)
	assert.Equal(t, fallbackReply, poster.posts[0].text)
	assert.Equal(t, fallbackReply, poster.posts[1].text)
}

func TestWorker_ConsumesQueue(t *testing.T) {
	queue := NewMemoryQueue(4)
	chat := &stubChatter{reply: "ok"}
	poster := &recordingPoster{done: make(chan struct{}, 2)}
	w := NewWorker(chat, queue, poster, nil, WithWorkerCount(2), WithReceiveWaitSeconds(1))

	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)

	pub := NewPublisher(queue)
	require.NoError(t, pub.Enqueue(ctx, InboundMessage{User: "U1", Channel: "C1", Text: "one"}))
	require.NoError(t, pub.Enqueue(ctx, InboundMessage{User: "U2", Channel: "C2", Text: "two"}))
	require.NoError(t, queue.Send(ctx, "not json"))

	for i := 0; i < 2; i++ {
		select {
		case <-poster.done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for replies")
		}
	}
	cancel()
	w.Wait()

	assert.ElementsMatch(t, []string{"slack_U1|U1|one", "slack_U2|U2|two"}, chat.calls)
}
