package broker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Config identifica il broker e l'identità con cui l'agente si presenta.
type Config struct {
	Host     string
	Port     int
	User     string // opzionale
	Password string // opzionale
	ClientID string

	KeepAlive      time.Duration
	ConnectTimeout time.Duration
	PublishTimeout time.Duration
}

// codice usato quando paho non restituisce un CONNACK (errore di rete, timeout)
const codeNoConnack byte = 0xFE

// ConnectError carries the MQTT CONNACK return code of a failed handshake.
type ConnectError struct {
	ReturnCode byte
	Err        error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("mqtt connect failed, rc=%d: %v", e.ReturnCode, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// Client è il trasporto MQTT dell'agente. La riconnessione NON è automatica:
// la decide il supervisor, che chiama Connect quando IsConnected è false.
type Client struct {
	cfg    Config
	client mqtt.Client
	logger *log.Logger
}

// NewClient configura il client sul broker di destinazione senza connettersi.
func NewClient(cfg Config, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Default()
	}
	if cfg.KeepAlive <= 0 {
		cfg.KeepAlive = 15 * time.Second
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 2 * time.Second
	}

	c := &Client{cfg: cfg, logger: logger}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(c.Address())
	opts.SetClientID(cfg.ClientID)
	if cfg.User != "" {
		opts.SetUsername(cfg.User)
		opts.SetPassword(cfg.Password)
	}
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)
	opts.SetKeepAlive(cfg.KeepAlive)
	opts.SetConnectTimeout(cfg.ConnectTimeout)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		c.logger.Printf("mqtt: connection lost: %v", err)
	})

	c.client = mqtt.NewClient(opts)
	return c
}

// Address restituisce l'URL del broker, es. tcp://broker.hivemq.com:1883
func (c *Client) Address() string {
	return fmt.Sprintf("tcp://%s:%d", c.cfg.Host, c.cfg.Port)
}

// ClientID is the fixed identity used in every handshake.
func (c *Client) ClientID() string { return c.cfg.ClientID }

// IsConnected interroga direttamente paho, nessuno stato in cache.
func (c *Client) IsConnected() bool {
	return c.client.IsConnected()
}

// Connect tenta UN handshake. In caso di rifiuto restituisce *ConnectError con il
// return code del CONNACK.
func (c *Client) Connect(ctx context.Context) error {
	token := c.client.Connect()

	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := token.Error(); err != nil {
		code := codeNoConnack
		if ct, ok := token.(*mqtt.ConnectToken); ok && ct.ReturnCode() != 0 {
			code = ct.ReturnCode()
		}
		return &ConnectError{ReturnCode: code, Err: err}
	}
	return nil
}

var errPublishTimeout = errors.New("publish not flushed before timeout")

// Publish invia con QoS 0, non retained. Nessun retry: l'esito è quello della chiamata.
func (c *Client) Publish(topic, payload string) error {
	token := c.client.Publish(topic, 0, false, payload)
	if !token.WaitTimeout(c.cfg.PublishTimeout) {
		return fmt.Errorf("publish %s: %w", topic, errPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Close chiude la sessione se aperta.
func (c *Client) Close() {
	if c.client.IsConnected() {
		c.client.Disconnect(250)
		c.logger.Println("mqtt: client disconnected")
	}
}
