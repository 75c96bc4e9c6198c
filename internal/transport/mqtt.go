// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package transport carries sensor streams and stream requests over MQTT,
// websockets and Kafka.
package transport

import (
	"encoding/json"
	"fmt"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/motion_bridge/internal/protocol"
	"github.com/relabs-tech/motion_bridge/internal/sample"
	"github.com/relabs-tech/motion_bridge/internal/stream"
)

// Publisher is the part of mqtt.Client that MQTTSink needs.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Subscriber is the part of mqtt.Client that CommandBridge needs.
type Subscriber interface {
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
	Unsubscribe(topics ...string) mqtt.Token
}

// ConnectMQTT dials broker and blocks until the session is up.
func ConnectMQTT(broker, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt: connect %s: %w", broker, token.Error())
	}
	log.Printf("mqtt: connected to broker at %s as %s", broker, clientID)
	return client, nil
}

// Topic is where samples of id are published under prefix.
func Topic(prefix string, id sample.SensorID) string {
	return strings.TrimSuffix(prefix, "/") + "/" + id.Name()
}

// MQTTSink publishes every sample as JSON on Topic(prefix, id).
type MQTTSink struct {
	client Publisher
	prefix string
}

func NewMQTTSink(client Publisher, prefix string) *MQTTSink {
	return &MQTTSink{client: client, prefix: prefix}
}

// Emit does not wait for the broker; Emit runs on the delivery goroutine.
func (m *MQTTSink) Emit(s sample.SensorSample) {
	payload, err := json.Marshal(s)
	if err != nil {
		log.Printf("mqtt: marshal %s sample: %v", s.SensorID, err)
		return
	}
	m.client.Publish(Topic(m.prefix, s.SensorID), 0, false, payload)
}

// CommandBridge turns requests published on a command topic into registry
// calls. Listen requests stream to sink.
type CommandBridge struct {
	client Subscriber
	topic  string
	router protocol.Router
	sink   stream.Sink

	defaultInterval int
}

func NewCommandBridge(client Subscriber, topic string, router protocol.Router, sink stream.Sink) *CommandBridge {
	return &CommandBridge{
		client:          client,
		topic:           topic,
		router:          router,
		sink:            sink,
		defaultInterval: sample.DefaultInterval,
	}
}

// SetDefaultInterval sets the interval used by listen requests that carry
// none. Call it before Start.
func (b *CommandBridge) SetDefaultInterval(interval int) {
	b.defaultInterval = interval
}

func (b *CommandBridge) Start() error {
	token := b.client.Subscribe(b.topic, 1, func(_ mqtt.Client, msg mqtt.Message) {
		if err := b.handle(msg.Payload()); err != nil {
			log.Warnf("mqtt: command on %s: %v", msg.Topic(), err)
		}
	})
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("mqtt: subscribe %s: %w", b.topic, token.Error())
	}
	log.Printf("mqtt: listening for commands on %s", b.topic)
	return nil
}

func (b *CommandBridge) Stop() {
	b.client.Unsubscribe(b.topic).Wait()
}

func (b *CommandBridge) handle(payload []byte) error {
	req, err := protocol.Decode(payload)
	if err != nil {
		return err
	}
	log.Debugf("mqtt: %s sensor=%d", req.Method, *req.SensorID)
	return protocol.Dispatch(b.router, req, b.sink, b.defaultInterval)
}
