package eventbus

import (
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"

	"stacker/internal/agent"
)

// Publisher 把 agent 事件外发到消息总线，供下游记账/监控消费。
type Publisher interface {
	Publish(ev agent.Event) error
	Close() error
}

type Kafka struct {
	producer sarama.SyncProducer
	topic    string
}

func NewKafka(brokers []string, topic string) (*Kafka, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForLocal
	cfg.Producer.Retry.Max = 3
	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating kafka producer failed: %w", err)
	}
	return &Kafka{producer: producer, topic: topic}, nil
}

func (k *Kafka) Publish(ev agent.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, _, err = k.producer.SendMessage(&sarama.ProducerMessage{
		Topic: k.topic,
		Key:   sarama.StringEncoder(ev.Type),
		Value: sarama.ByteEncoder(payload),
	})
	if err != nil {
		return fmt.Errorf("publishing %s event failed: %w", ev.Type, err)
	}
	return nil
}

func (k *Kafka) Close() error {
	return k.producer.Close()
}
