package poller

import (
	"context"
	"fmt"
	"testing"
	"time"

	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/kafka"
	"go.uber.org/zap"

	"github.com/fjod/storefront/cart-service/internal/catalog"
	"github.com/fjod/storefront/cart-service/internal/checkout"
	"github.com/fjod/storefront/cart-service/internal/domain"
	"github.com/fjod/storefront/cart-service/internal/service"
	"github.com/fjod/storefront/cart-service/internal/storage"
)

type noCatalog struct{}

func (noCatalog) LookupVariant(context.Context, string) (catalog.Variant, error) {
	return catalog.Variant{}, catalog.ErrVariantNotFound
}

func setupKafka(t *testing.T) string {
	ctx := context.Background()

	kafkaContainer, err := kafka.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate kafka container: %v", err)
		}
	})

	brokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers, "broker address should not be empty")

	return brokers[0]
}

func createTopic(t *testing.T, brokerAddr, topic string) {
	conn, err := kafkaGo.Dial("tcp", brokerAddr)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	controllerConn, err := kafkaGo.Dial("tcp", fmt.Sprintf("%s:%d", controller.Host, controller.Port))
	require.NoError(t, err)
	defer controllerConn.Close()

	err = controllerConn.CreateTopics(kafkaGo.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
	if err != nil {
		t.Logf("topic creation error (may already exist): %v", err)
	}
}

func TestPoller_ClearsCartAfterCheckout(t *testing.T) {
	if testing.Short() {
		t.Skip("needs docker")
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	broker := setupKafka(t)
	createTopic(t, broker, checkout.Topic)

	carts := service.NewCartService(storage.NewMemoryStorage(), noCatalog{}, zap.NewNop())
	carts.AddDetails(ctx, "s1", domain.ItemDetails{SKU: "JKT-BLK-M", Name: "Classic Jacket", Price: 50})

	writer := checkout.NewKafkaWriter(broker)
	publisher := checkout.NewKafkaPublisher(writer)
	defer publisher.Close()
	checkouts := checkout.NewService(carts, publisher, zap.NewNop())

	_, err := checkouts.PlaceOrder(ctx, "s1", "key-1")
	require.NoError(t, err)

	p := NewPoller(NewReader(broker), carts, zap.NewNop())
	defer p.Close()
	go p.Run(ctx)

	require.Eventually(t, func() bool {
		return len(carts.GetCart(ctx, "s1").Items) == 0
	}, 30*time.Second, 500*time.Millisecond)
}
