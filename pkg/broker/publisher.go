package broker

// IPublisher sends payloads to the one topic it was built for.
type IPublisher interface {
	PublishMessage(message string) error
	Topic() string
}

// Transport is the part of Client a Publisher needs.
type Transport interface {
	Publish(topic, payload string) error
}

// Publisher lega il trasporto condiviso a un topic fisso.
type Publisher struct {
	transport Transport
	topic     string
}

// NewPublisher binds transport to topic; many publishers can share one transport.
func NewPublisher(transport Transport, topic string) *Publisher {
	return &Publisher{
		transport: transport,
		topic:     topic,
	}
}

func (p *Publisher) PublishMessage(message string) error {
	return p.transport.Publish(p.topic, message)
}

func (p *Publisher) Topic() string { return p.topic }
