package mqtt

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/greenhouse-controller/internal/config"
	"github.com/thatsimonsguy/greenhouse-controller/internal/model"
)

const (
	connectTimeout    = 10 * time.Second
	publishTimeout    = 5 * time.Second
	disconnectQuiesce = 250 // milliseconds

	StatusOnline  = "online"
	StatusOffline = "offline"
)

var ErrDisabled = errors.New("mqtt disabled")

// Topics builds topic names under a common prefix.
type Topics struct {
	Prefix string
}

func (t Topics) ZoneState(zoneID int) string {
	return fmt.Sprintf("%s/zones/%d/state", t.prefix(), zoneID)
}

func (t Topics) Events() string {
	return t.prefix() + "/events"
}

func (t Topics) Status() string {
	return t.prefix() + "/status"
}

func (t Topics) prefix() string {
	p := strings.Trim(t.Prefix, "/")
	if p == "" {
		return "greenhouse"
	}
	return p
}

// Publisher mirrors zone state and action events to a broker. Zone state is
// retained so a new subscriber sees the current state at once.
type Publisher struct {
	client pahomqtt.Client
	topics Topics
	qos    byte
	wg     sync.WaitGroup
}

// Connect dials the broker and announces the controller online. The broker
// marks it offline through the will message if the connection drops.
func Connect(cfg config.MQTTConfig) (*Publisher, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	p := &Publisher{
		topics: Topics{Prefix: cfg.TopicPrefix},
		qos:    byte(cfg.QoS),
	}

	opts := pahomqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Broker, cfg.Port)).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(false).
		SetMaxReconnectInterval(time.Minute).
		SetWill(p.topics.Status(), StatusOffline, p.qos, true).
		SetOnConnectHandler(func(c pahomqtt.Client) {
			log.Info().Str("broker", cfg.Broker).Msg("MQTT connected")
			c.Publish(p.topics.Status(), p.qos, true, StatusOnline)
		}).
		SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
			log.Warn().Err(err).Msg("MQTT connection lost")
		})
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	p.client = pahomqtt.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("mqtt connect: timeout after %v", connectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}

	log.Info().
		Str("broker", cfg.Broker).
		Int("port", cfg.Port).
		Str("prefix", p.topics.prefix()).
		Msg("MQTT publisher initialized")
	return p, nil
}

func (p *Publisher) PublishZone(zone model.Zone) {
	payload, err := ZonePayload(zone)
	if err != nil {
		log.Error().Err(err).Int("zone_id", zone.ID).Msg("Failed to encode zone state")
		return
	}
	p.publish(p.topics.ZoneState(zone.ID), true, payload)
}

func (p *Publisher) PublishEvent(event model.ActionEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Int("event_id", event.ID).Msg("Failed to encode action event")
		return
	}
	p.publish(p.topics.Events(), false, payload)
}

// publish does not block the caller on broker acknowledgement.
func (p *Publisher) publish(topic string, retained bool, payload []byte) {
	if p.client == nil || !p.client.IsConnectionOpen() {
		log.Debug().Str("topic", topic).Msg("MQTT not connected, dropping message")
		return
	}
	token := p.client.Publish(topic, p.qos, retained, payload)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if !token.WaitTimeout(publishTimeout) {
			log.Warn().Str("topic", topic).Msg("MQTT publish timed out")
			return
		}
		if err := token.Error(); err != nil {
			log.Warn().Err(err).Str("topic", topic).Msg("MQTT publish failed")
		}
	}()
}

// Close announces a graceful offline state and disconnects.
func (p *Publisher) Close() {
	if p.client == nil {
		return
	}
	if p.client.IsConnectionOpen() {
		token := p.client.Publish(p.topics.Status(), p.qos, true, StatusOffline)
		token.WaitTimeout(publishTimeout)
	}
	p.wg.Wait()
	p.client.Disconnect(disconnectQuiesce)
	log.Info().Msg("MQTT publisher closed")
}

// ZonePayload is the retained state document for a zone.
func ZonePayload(zone model.Zone) ([]byte, error) {
	return json.Marshal(struct {
		model.Zone
		UpdatedAt time.Time `json:"updatedAt"`
	}{zone, time.Now().UTC()})
}
