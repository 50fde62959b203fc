package flowens

import (
	"context"

	"github.com/segmentio/kafka-go"
)

const (
	RegistrationTopic = "flowens_registration"
	WatchTopic        = "flowens_watch"
)

type KWriter struct {
	w *kafka.Writer
}

func NewKWriter(topic string, uri string) (*KWriter, error) {
	w := &kafka.Writer{
		Addr:     kafka.TCP(uri),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}

	return &KWriter{
		w: w,
	}, nil
}

func (kw *KWriter) Write(body []byte) error {
	err := kw.w.WriteMessages(
		context.Background(),
		kafka.Message{
			Value: body,
		},
	)
	return err
}

func (kw *KWriter) Close() {
	kw.w.Close()
}

func NewKWriters(uri string) (map[string]*KWriter, error) {
	registrationWriter, err := NewKWriter(RegistrationTopic, uri)
	if err != nil {
		return nil, err
	}
	watchWriter, err := NewKWriter(WatchTopic, uri)
	if err != nil {
		return nil, err
	}
	return map[string]*KWriter{
		RegistrationTopic: registrationWriter,
		WatchTopic:        watchWriter,
	}, nil
}
