// Package telemetry turns a cycle snapshot into broker messages. Each value goes
// out as its own message on a fixed topic; nothing is retried or buffered.
package telemetry

import (
	"fmt"
	"log"

	"github.com/LeonardoBeccarini/sala_telemetry/internal/model/entities"
	"github.com/LeonardoBeccarini/sala_telemetry/internal/model/messages"
	"github.com/LeonardoBeccarini/sala_telemetry/pkg/broker"
)

// Larghezza e decimali dei valori climatici (contratto dtostrf(v, 6, 2)).
const (
	FieldWidth = 6
	FieldPrec  = 2
)

// Recorder receives publish outcomes and climate failures.
type Recorder interface {
	PublishResult(topic string, err error)
	ClimateInvalid()
}

// Publisher owns one topic publisher per reading.
type Publisher struct {
	presence    broker.IPublisher
	temperature broker.IPublisher
	humidity    broker.IPublisher
	logger      *log.Logger
	recorder    Recorder
}

// NewPublisher lega il trasporto condiviso ai tre topic fissi.
func NewPublisher(transport broker.Transport, logger *log.Logger, recorder Recorder) *Publisher {
	return NewPublisherWith(
		broker.NewPublisher(transport, messages.TopicPresence),
		broker.NewPublisher(transport, messages.TopicTemperature),
		broker.NewPublisher(transport, messages.TopicHumidity),
		logger, recorder,
	)
}

// NewPublisherWith accepts explicit per-topic publishers.
func NewPublisherWith(presence, temperature, humidity broker.IPublisher, logger *log.Logger, recorder Recorder) *Publisher {
	if logger == nil {
		logger = log.Default()
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Publisher{
		presence:    presence,
		temperature: temperature,
		humidity:    humidity,
		logger:      logger,
		recorder:    recorder,
	}
}

// FormatFixed right-aligns v in width characters with prec decimals.
func FormatFixed(v float64, width, prec int) string {
	return fmt.Sprintf("%*.*f", width, prec, v)
}

// FormatClimateValue applies the 6.2 field contract.
func FormatClimateValue(v float64) string {
	return FormatFixed(v, FieldWidth, FieldPrec)
}

// PresencePayload: "1" se qualcuno è in sala, "0" altrimenti.
func PresencePayload(present bool) string {
	if present {
		return messages.PresenceDetected
	}
	return messages.PresenceNone
}

// PublishPresence runs every cycle; presence is always a valid reading.
func (p *Publisher) PublishPresence(present bool) {
	p.send(p.presence, PresencePayload(present))
}

// PublishClimate pubblica temperatura e umidità solo se entrambe valide.
// Restituisce false se la lettura è stata scartata.
func (p *Publisher) PublishClimate(r entities.ClimateReading) bool {
	if !r.Valid() {
		p.recorder.ClimateInvalid()
		p.logger.Println("dht22: read error, climate not published")
		return false
	}
	p.send(p.temperature, FormatClimateValue(r.Temperature))
	p.send(p.humidity, FormatClimateValue(r.Humidity))
	return true
}

// Publish emits a whole snapshot: presence first, then climate.
func (p *Publisher) Publish(s entities.Snapshot) {
	p.PublishPresence(s.Presence)
	p.PublishClimate(s.Climate)
}

// send è fire-and-forget: l'errore si registra, non si ritenta.
func (p *Publisher) send(pub broker.IPublisher, payload string) {
	err := pub.PublishMessage(payload)
	p.recorder.PublishResult(pub.Topic(), err)
	if err != nil {
		p.logger.Printf("publish %s failed: %v", pub.Topic(), err)
	}
}

type nopRecorder struct{}

func (nopRecorder) PublishResult(string, error) {}
func (nopRecorder) ClimateInvalid()             {}
