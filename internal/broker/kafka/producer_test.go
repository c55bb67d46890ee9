package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	last []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.last = append([]kafka.Message{}, msgs...)
	return w.err
}

func TestProducer_Publish(t *testing.T) {
	fw := &fakeWriter{}
	p := newProducerWithWriter(fw)

	require.NoError(t, p.Publish(context.Background(), "shipments.updated", []byte("matti"), []byte(`{"account":"matti"}`)))
	require.Len(t, fw.last, 1)
	require.Equal(t, "shipments.updated", fw.last[0].Topic)
	require.Equal(t, []byte("matti"), fw.last[0].Key)
	require.Equal(t, []byte(`{"account":"matti"}`), fw.last[0].Value)
}

func TestProducer_Publish_WriteError(t *testing.T) {
	fw := &fakeWriter{err: errors.New("broker unreachable")}
	p := newProducerWithWriter(fw)

	err := p.Publish(context.Background(), "shipments.updated", []byte("k"), []byte("v"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "kafka publish")
}

func TestNewProducer(t *testing.T) {
	p := NewProducer([]string{"localhost:0"})
	require.NotNil(t, p)
}
