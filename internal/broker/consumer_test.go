package broker

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/segmentio/kafka-go"

	"github.com/cognidesk/idea-vault/internal/domain"
	"github.com/cognidesk/idea-vault/internal/logger"
)

type fakeReader struct {
	msgs      []kafka.Message
	next      int
	committed []int64
	closed    bool
}

func (f *fakeReader) FetchMessage(_ context.Context) (kafka.Message, error) {
	if f.next >= len(f.msgs) {
		return kafka.Message{}, io.EOF
	}
	m := f.msgs[f.next]
	f.next++
	return m, nil
}

func (f *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		f.committed = append(f.committed, m.Offset)
	}
	return nil
}

func (f *fakeReader) Close() error {
	f.closed = true
	return nil
}

func testConsumer(reader *fakeReader) *Consumer {
	log := logger.New(&logger.Config{Level: "error", Output: io.Discard})
	return &Consumer{reader: reader, log: log}
}

func eventMessage(offset int64, ideaID string) kafka.Message {
	return kafka.Message{
		Offset: offset,
		Value:  []byte(`{"idea_id":"` + ideaID + `","event":"IDEA_CREATED"}`),
	}
}

func TestRunCommitsAfterEachHandledMessage(t *testing.T) {
	reader := &fakeReader{msgs: []kafka.Message{
		eventMessage(0, "a"),
		eventMessage(1, "b"),
	}}
	c := testConsumer(reader)

	var handled []string
	err := c.Run(context.Background(), func(_ context.Context, e *domain.ProcessingEvent) error {
		handled = append(handled, e.IdeaID)
		return nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(handled) != 2 || handled[0] != "a" || handled[1] != "b" {
		t.Errorf("handled = %v", handled)
	}
	if len(reader.committed) != 2 || reader.committed[0] != 0 || reader.committed[1] != 1 {
		t.Errorf("committed = %v, want [0 1]", reader.committed)
	}
}

func TestRunStopsOnHandlerErrorWithoutCommitting(t *testing.T) {
	reader := &fakeReader{msgs: []kafka.Message{
		eventMessage(3, "broken"),
		eventMessage(4, "fine"),
	}}
	c := testConsumer(reader)

	calls := 0
	err := c.Run(context.Background(), func(_ context.Context, e *domain.ProcessingEvent) error {
		calls++
		if e.IdeaID == "broken" {
			return errors.New("db unavailable")
		}
		return nil
	})
	if err == nil {
		t.Fatal("Run returned nil, want handler error propagated")
	}
	if !strings.Contains(err.Error(), "offset 3") {
		t.Errorf("error = %v, want failing offset named", err)
	}

	// a later success must never commit past the failed offset
	if calls != 1 {
		t.Errorf("handler calls = %d, want 1 (loop must stop at the failure)", calls)
	}
	if len(reader.committed) != 0 {
		t.Errorf("committed = %v, want none", reader.committed)
	}
}

func TestRunCommitsAndSkipsMalformedPayload(t *testing.T) {
	reader := &fakeReader{msgs: []kafka.Message{
		{Offset: 0, Value: []byte(`{not json`)},
		eventMessage(1, "a"),
	}}
	c := testConsumer(reader)

	var handled []string
	err := c.Run(context.Background(), func(_ context.Context, e *domain.ProcessingEvent) error {
		handled = append(handled, e.IdeaID)
		return nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(handled) != 1 || handled[0] != "a" {
		t.Errorf("handled = %v, want only the valid event", handled)
	}
	if len(reader.committed) != 2 {
		t.Errorf("committed = %v, want malformed message committed too", reader.committed)
	}
}

func TestRunTreatsHandlerPanicAsError(t *testing.T) {
	reader := &fakeReader{msgs: []kafka.Message{eventMessage(7, "poison")}}
	c := testConsumer(reader)

	err := c.Run(context.Background(), func(_ context.Context, _ *domain.ProcessingEvent) error {
		panic("nil map write")
	})
	if err == nil || !strings.Contains(err.Error(), "panic") {
		t.Fatalf("Run = %v, want recovered panic error", err)
	}
	if len(reader.committed) != 0 {
		t.Errorf("committed = %v, want none", reader.committed)
	}
}
