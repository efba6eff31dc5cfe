package kafka

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pokercrm/playtime/internal/config"
	"github.com/pokercrm/playtime/internal/domain"
)

type recordingHandler struct {
	mu      sync.Mutex
	batches [][]domain.Session
	err     error
}

func (h *recordingHandler) ImportSessions(_ context.Context, sessions []domain.Session) (*domain.ImportResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return nil, h.err
	}
	h.batches = append(h.batches, append([]domain.Session(nil), sessions...))
	return &domain.ImportResult{Received: len(sessions), Merged: len(sessions)}, nil
}

type fakeSession struct {
	ctx    context.Context
	marked []*sarama.ConsumerMessage
}

func (s *fakeSession) Claims() map[string][]int32                               { return nil }
func (s *fakeSession) MemberID() string                                         { return "member" }
func (s *fakeSession) GenerationID() int32                                      { return 1 }
func (s *fakeSession) MarkOffset(string, int32, int64, string)                  {}
func (s *fakeSession) Commit()                                                  {}
func (s *fakeSession) ResetOffset(string, int32, int64, string)                 {}
func (s *fakeSession) Context() context.Context                                 { return s.ctx }
func (s *fakeSession) MarkMessage(msg *sarama.ConsumerMessage, metadata string) { s.marked = append(s.marked, msg) }

type fakeClaim struct {
	messages chan *sarama.ConsumerMessage
}

func (c *fakeClaim) Topic() string                            { return "playtime-sessions" }
func (c *fakeClaim) Partition() int32                         { return 0 }
func (c *fakeClaim) InitialOffset() int64                     { return 0 }
func (c *fakeClaim) HighWaterMarkOffset() int64               { return 0 }
func (c *fakeClaim) Messages() <-chan *sarama.ConsumerMessage { return c.messages }

func newTestHandler(handler SessionHandler, batchSize int) *consumerGroupHandler {
	return &consumerGroupHandler{
		consumer: &Consumer{
			config:  &config.KafkaConfig{BatchSize: batchSize, BatchTimeout: time.Hour},
			handler: handler,
			logger:  slog.New(slog.NewJSONHandler(io.Discard, nil)),
		},
	}
}

func message(offset int64, value string) *sarama.ConsumerMessage {
	return &sarama.ConsumerMessage{Topic: "playtime-sessions", Offset: offset, Value: []byte(value)}
}

func TestDecodeSession(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "minutes", input: `{"player_id":1,"played_on":"2026-01-06","minutes":90}`},
		{name: "times", input: `{"player_id":1,"played_on":"2026-01-06","start_time":"03:17","end_time":"04:56"}`},
		{name: "not json", input: `{`, wantErr: true},
		{name: "missing player", input: `{"played_on":"2026-01-06","minutes":90}`, wantErr: true},
		{name: "bad day", input: `{"player_id":1,"played_on":"06/01/2026","minutes":90}`, wantErr: true},
		{name: "negative minutes", input: `{"player_id":1,"played_on":"2026-01-06","minutes":-5}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := DecodeSession([]byte(tt.input))
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, domain.ErrInvalidRequest)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, int64(1), s.PlayerID)
			assert.Equal(t, "2026-01-06", s.PlayedOn)
		})
	}
}

func TestConsumeClaim_BatchesValidMessages(t *testing.T) {
	handler := &recordingHandler{}
	h := newTestHandler(handler, 10)

	claim := &fakeClaim{messages: make(chan *sarama.ConsumerMessage, 3)}
	claim.messages <- message(1, `{"player_id":1,"played_on":"2026-01-06","minutes":99}`)
	claim.messages <- message(2, `garbage`)
	claim.messages <- message(3, `{"player_id":1,"played_on":"2026-01-06","minutes":90,"source":"club-export"}`)
	close(claim.messages)

	session := &fakeSession{ctx: context.Background()}
	require.NoError(t, h.ConsumeClaim(session, claim))

	require.Len(t, handler.batches, 1)
	batch := handler.batches[0]
	require.Len(t, batch, 2)
	assert.Equal(t, "kafka:playtime-sessions/0", batch[0].Source)
	assert.Equal(t, "club-export", batch[1].Source)

	require.Len(t, session.marked, 1)
	assert.Equal(t, int64(3), session.marked[0].Offset)
}

func TestConsumeClaim_FlushesFullBatches(t *testing.T) {
	handler := &recordingHandler{}
	h := newTestHandler(handler, 2)

	claim := &fakeClaim{messages: make(chan *sarama.ConsumerMessage, 3)}
	for i := int64(1); i <= 3; i++ {
		claim.messages <- message(i, `{"player_id":1,"played_on":"2026-01-06","minutes":10}`)
	}
	close(claim.messages)

	session := &fakeSession{ctx: context.Background()}
	require.NoError(t, h.ConsumeClaim(session, claim))

	require.Len(t, handler.batches, 2)
	assert.Len(t, handler.batches[0], 2)
	assert.Len(t, handler.batches[1], 1)
	require.Len(t, session.marked, 2)
	assert.Equal(t, int64(2), session.marked[0].Offset)
	assert.Equal(t, int64(3), session.marked[1].Offset)
}

func TestConsumeClaim_FailedBatchIsNotMarked(t *testing.T) {
	handler := &recordingHandler{err: assert.AnError}
	h := newTestHandler(handler, 1)

	claim := &fakeClaim{messages: make(chan *sarama.ConsumerMessage, 1)}
	claim.messages <- message(1, `{"player_id":1,"played_on":"2026-01-06","minutes":10}`)

	session := &fakeSession{ctx: context.Background()}
	err := h.ConsumeClaim(session, claim)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Empty(t, session.marked)
}

// rebalancingGroup runs a few short sessions before settling into a long one
type rebalancingGroup struct {
	sessions atomic.Int32
	errors   chan error
}

func (g *rebalancingGroup) Consume(ctx context.Context, _ []string, handler sarama.ConsumerGroupHandler) error {
	if err := handler.Setup(nil); err != nil {
		return err
	}
	if g.sessions.Add(1) < 3 {
		return nil
	}
	<-ctx.Done()
	return nil
}

func (g *rebalancingGroup) Errors() <-chan error              { return g.errors }
func (g *rebalancingGroup) Close() error                       { return nil }
func (g *rebalancingGroup) Pause(map[string][]int32)           {}
func (g *rebalancingGroup) Resume(map[string][]int32)          {}
func (g *rebalancingGroup) PauseAll()                          {}
func (g *rebalancingGroup) ResumeAll()                         {}

func TestConsumer_StartAcrossRebalances(t *testing.T) {
	group := &rebalancingGroup{errors: make(chan error)}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Consumer{
		config:        &config.KafkaConfig{Topic: "playtime-sessions", BatchSize: 10, BatchTimeout: time.Hour},
		handler:       &recordingHandler{},
		logger:        slog.New(slog.NewJSONHandler(io.Discard, nil)),
		consumerGroup: group,
		ctx:           ctx,
		cancel:        cancel,
		ready:         make(chan bool),
	}

	require.NoError(t, c.Start())
	require.Eventually(t, func() bool {
		return group.sessions.Load() >= 3
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, c.Stop())
}
