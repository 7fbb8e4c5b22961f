package sink

import (
	"context"
	"fmt"

	"github.com/shaiso/Fabrica/internal/domain"
	"github.com/shaiso/Fabrica/internal/mq"
)

// AMQP — приёмник, публикующий события в RabbitMQ.
//
// Каждое событие уходит сообщением event.generated в обменник
// fabrica.events; дальше его разбирают внешние коллекторы журналов.
type AMQP struct {
	publisher *mq.Publisher
}

// NewAMQP создаёт AMQP-приёмник поверх готового Publisher.
func NewAMQP(publisher *mq.Publisher) *AMQP {
	return &AMQP{publisher: publisher}
}

// WriteEvent публикует событие в обменник fabrica.events.
func (s *AMQP) WriteEvent(ctx context.Context, inst *domain.EventInstance) error {
	payload := mq.EventGeneratedPayload{
		InstanceID: inst.ID,
		TemplateID: inst.TemplateID,
		Channel:    string(inst.Channel),
		EventID:    inst.EventID,
		Source:     inst.Source,
		Timestamp:  inst.Timestamp,
		Payload:    inst.Payload,
	}

	if err := s.publisher.PublishEventGenerated(ctx, payload); err != nil {
		return fmt.Errorf("publish generated event: %w", err)
	}
	return nil
}
