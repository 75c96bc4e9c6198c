package app

import (
	"encoding/json"
	"fmt"
	"image"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/motion_bridge/internal/config"
	"github.com/relabs-tech/motion_bridge/internal/sample"
	"github.com/relabs-tech/motion_bridge/internal/transport"
)

const (
	displayWidth  = 128
	displayHeight = 64
	lineHeight    = 12
)

var axisLabels = map[sample.SensorID][]string{
	sample.Accelerometer:      {"X", "Y", "Z"},
	sample.MagneticField:      {"X", "Y", "Z"},
	sample.Gyroscope:          {"X", "Y", "Z"},
	sample.Pressure:           {"hPa"},
	sample.AmbientTemperature: {"C"},
	sample.Location:           {"Lat", "Lon", "Kn", "Crs"},
}

// panel keeps the latest sample of the sensor shown on one display.
type panel struct {
	id  sample.SensorID
	dev *ssd1306.Dev

	mu     sync.RWMutex
	latest sample.SensorSample
	have   bool
}

func (p *panel) update(s sample.SensorSample) {
	p.mu.Lock()
	p.latest = s
	p.have = true
	p.mu.Unlock()
}

func (p *panel) snapshot() (sample.SensorSample, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.latest, p.have
}

func (p *panel) draw() error {
	s, have := p.snapshot()
	img := renderSample(p.id, s, have)
	return p.dev.Draw(p.dev.Bounds(), img, image.Point{})
}

func RunDisplay() error {
	cfg := config.Get()

	// Initialize periph
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	bus, err := i2creg.Open("")
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	left, err := openPanel(bus, cfg.DisplayLeftI2CAddr, cfg.DisplayLeftSensor, "left")
	if err != nil {
		return err
	}
	right, err := openPanel(bus, cfg.DisplayRightI2CAddr, cfg.DisplayRightSensor, "right")
	if err != nil {
		return err
	}

	client, err := transport.ConnectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDDisplay)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	for _, p := range []*panel{left, right} {
		if err := subscribePanel(client, cfg.TopicSensorPrefix, p); err != nil {
			return err
		}
	}

	ticker := time.NewTicker(time.Duration(cfg.DisplayUpdateInterval) * time.Millisecond)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	log.Println("display: starting update loop")
	for {
		select {
		case <-ticker.C:
			for _, p := range []*panel{left, right} {
				if err := p.draw(); err != nil {
					log.Printf("display: error updating %s display: %v", p.id.Name(), err)
				}
			}
		case <-sigCh:
			log.Println("display: shutting down")
			return nil
		}
	}
}

func openPanel(bus i2c.Bus, addr uint16, id sample.SensorID, side string) (*panel, error) {
	opts := ssd1306.DefaultOpts
	opts.Addr = addr
	dev, err := ssd1306.NewI2C(bus, &opts)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s display: %w", side, err)
	}
	log.Printf("display: %s display initialized at 0x%02X showing %s", side, addr, id.Name())

	if err := dev.Draw(dev.Bounds(), renderSplash(id), image.Point{}); err != nil {
		log.Printf("display: error showing %s splash: %v", side, err)
	}
	return &panel{id: id, dev: dev}, nil
}

func subscribePanel(client mqtt.Client, prefix string, p *panel) error {
	topic := transport.Topic(prefix, p.id)
	token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var s sample.SensorSample
		if err := json.Unmarshal(msg.Payload(), &s); err != nil {
			log.Printf("display: %s unmarshal error: %v", p.id.Name(), err)
			return
		}
		p.update(s)
	})
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", topic, token.Error())
	}
	log.Printf("display: subscribed to %s", topic)
	return nil
}

func newCanvas() (*image1bit.VerticalLSB, *font.Drawer) {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, displayWidth, displayHeight))
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	return img, drawer
}

// renderSample draws the sensor name on the first line and one value per
// line below it.
func renderSample(id sample.SensorID, s sample.SensorSample, have bool) *image1bit.VerticalLSB {
	img, drawer := newCanvas()

	drawer.Dot = fixed.P(0, 11)
	drawer.DrawString(shortName(id))

	if !have {
		drawer.Dot = fixed.P(0, 11+2*lineHeight)
		drawer.DrawString("Waiting...")
		return img
	}

	labels := axisLabels[id]
	for i, v := range s.Values {
		if i >= len(labels) || 11+(i+1)*lineHeight > displayHeight {
			break
		}
		drawer.Dot = fixed.P(0, 11+(i+1)*lineHeight)
		drawer.DrawString(fmt.Sprintf("%-3s %10.3f", labels[i], v))
	}
	return img
}

func renderSplash(id sample.SensorID) *image1bit.VerticalLSB {
	img, drawer := newCanvas()

	drawer.Dot = fixed.P(10, 26)
	drawer.DrawString("Motion Bridge")

	drawer.Dot = fixed.P(10, 43)
	drawer.DrawString(shortName(id))
	return img
}

// shortName fits a sensor name on one 18-column line.
func shortName(id sample.SensorID) string {
	name := strings.ReplaceAll(id.Name(), "_", " ")
	if len(name) > displayWidth/7 {
		name = name[:displayWidth/7]
	}
	return name
}
