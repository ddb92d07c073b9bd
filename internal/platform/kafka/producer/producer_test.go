package producer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"hearth/internal/platform/config"
)

func TestNew_RequiresBrokers(t *testing.T) {
	for _, brokers := range []string{"", " , "} {
		_, err := New(config.KafkaConfig{Brokers: brokers}, nil)
		assert.Error(t, err, brokers)
	}
}

func TestProducer_ClosedRejectsWork(t *testing.T) {
	// the client dials lazily, so no broker is needed here
	p, err := New(config.KafkaConfig{Brokers: "127.0.0.1:1", Acks: "1", Retries: 1}, nil)
	require.NoError(t, err)

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())

	err = p.Produce(context.Background(), &Message{Topic: "t", Value: []byte("{}")})
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, p.Health(context.Background()), ErrClosed)
}

func TestProducer_NilClose(t *testing.T) {
	var p *Producer
	assert.NoError(t, p.Close())
}

func TestAcks(t *testing.T) {
	assert.Equal(t, kgo.NoAck(), acks("0"))
	assert.Equal(t, kgo.LeaderAck(), acks("1"))
	assert.Equal(t, kgo.AllISRAcks(), acks("all"))
	assert.Equal(t, kgo.AllISRAcks(), acks(""))
}
