package app

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/motion_bridge/internal/config"
	"github.com/relabs-tech/motion_bridge/internal/sample"
	"github.com/relabs-tech/motion_bridge/internal/transport"
)

var (
	tagStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")).Width(22)
	timeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	lowStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

// RunConsole prints every sample the bridge publishes until interrupted.
func RunConsole() error {
	cfg := config.Get()

	client, err := transport.ConnectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDConsole)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	topic := strings.TrimSuffix(cfg.TopicSensorPrefix, "/") + "/+"
	token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var s sample.SensorSample
		if err := json.Unmarshal(msg.Payload(), &s); err != nil {
			log.Printf("console: %s unmarshal error: %v", msg.Topic(), err)
			return
		}
		fmt.Println(formatEvent(s))
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("console: subscribed to %s", topic)

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	return nil
}

// formatEvent renders one sample as a single console line.
func formatEvent(s sample.SensorSample) string {
	values := make([]string, len(s.Values))
	for i, v := range s.Values {
		values[i] = fmt.Sprintf("%10.4f", v)
	}
	line := tagStyle.Render("["+strings.ToUpper(s.SensorID.Name())+"]") + " " +
		timeStyle.Render(time.UnixMilli(s.Timestamp).UTC().Format("15:04:05.000")) + " " +
		valueStyle.Render(strings.Join(values, " "))
	if s.Accuracy > 0 {
		line += " " + lowStyle.Render(fmt.Sprintf("acc=%d", s.Accuracy))
	}
	return line
}
