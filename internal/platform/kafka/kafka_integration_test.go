//go:build integration

package kafka_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"emailscore/internal/platform/kafka"
	"emailscore/pkg/testutil/containers"
)

type KafkaSuite struct {
	suite.Suite
	brokers []string
}

func TestKafkaSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaSuite))
}

func (s *KafkaSuite) SetupSuite() {
	s.brokers = containers.GetManager().GetKafka(s.T()).Brokers
}

func (s *KafkaSuite) TestPublishAndConsume() {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	logger := slog.New(slog.DiscardHandler)
	topic := "emailscore.test-roundtrip"

	producer, err := kafka.NewProducer(s.brokers, topic, logger)
	s.Require().NoError(err)
	defer producer.Close()
	s.Require().NoError(producer.EnsureTopic(ctx, topic, 1, 1))
	s.Require().NoError(producer.EnsureTopic(ctx, topic, 1, 1), "ensuring twice is a no-op")

	s.Require().NoError(producer.Publish(ctx, topic, []byte("k1"), []byte(`{"n":1}`), map[string]string{"request_id": "r1"}))

	received := make(chan *kafka.Message, 1)
	consumer, err := kafka.NewConsumer(s.brokers, "emailscore-test", topic, kafka.HandlerFunc(func(_ context.Context, msg *kafka.Message) error {
		received <- msg
		return nil
	}), logger)
	s.Require().NoError(err)
	defer consumer.Close()

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	go func() { _ = consumer.Run(runCtx) }()

	select {
	case msg := <-received:
		s.Equal("k1", string(msg.Key))
		s.JSONEq(`{"n":1}`, string(msg.Value))
		s.Equal("r1", msg.Headers["request_id"])
	case <-ctx.Done():
		s.Fail("timed out waiting for message")
	}
}
