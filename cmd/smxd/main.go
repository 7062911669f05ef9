// Command smxd is a small daemon wrapping pkg/smx: it opens both pad
// slots, logs connection and input-state changes when --verbose is set, and optionally
// bridges them onto an MQTT broker. Its flag layout and startup sequence
// follow the teacher's main.go (cli.NewApp, a single subcommand reading
// its server address and client ID from flags defaulting to environment
// variables), adapted from urfave/cli v1 to v2.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/urfave/cli/v2"

	"github.com/steprevolution/stepmaniax-sdk/internal/hidhw"
	"github.com/steprevolution/stepmaniax-sdk/pkg/smx"
)

const (
	mqttServerEnvVar   = "SMXD_MQTT_SERVER"
	mqttClientIDEnvVar = "SMXD_MQTT_CLIENT_ID"
)

func main() {
	app := &cli.App{
		Name:  "smxd",
		Usage: "StepManiaX pad daemon",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "mqtt-server",
				EnvVars: []string{mqttServerEnvVar},
				Usage:   "MQTT broker address (format tcp://host:port); leave unset to disable the bridge",
			},
			&cli.StringFlag{
				Name:    "mqtt-client-id",
				EnvVars: []string{mqttClientIDEnvVar},
				Value:   "smxd",
				Usage:   "MQTT client id",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "log every input state change",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	mgr := smx.NewManager(hidhw.Enumerator{})

	var mqttClient mqtt.Client
	if server := c.String("mqtt-server"); server != "" {
		var err error
		mqttClient, err = connectMQTT(server, c.String("mqtt-client-id"))
		if err != nil {
			return fmt.Errorf("connecting to MQTT broker: %w", err)
		}
		defer mqttClient.Disconnect(250)
	}

	verbose := c.Bool("verbose")
	mgr.SetUpdateCallback(func(pad int, reason smx.UpdateReason) {
		if verbose {
			log.Printf("pad %d: %s", pad, reason)
		}
		if mqttClient == nil {
			return
		}
		publishState(mqttClient, mgr, pad)
	})

	mgr.Start()
	defer mgr.Stop()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	return nil
}

func connectMQTT(server, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(server).
		SetClientID(clientID).
		SetConnectTimeout(5 * time.Second)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return nil, err
	}
	return client, nil
}

type padState struct {
	Connected  bool   `json:"connected"`
	Serial     string `json:"serial,omitempty"`
	Firmware   uint16 `json:"firmware,omitempty"`
	InputState uint16 `json:"input_state"`
}

func publishState(client mqtt.Client, mgr *smx.Manager, pad int) {
	info := mgr.GetInfo(pad)
	state := padState{Connected: info.Connected}
	if info.Connected {
		state.Serial = info.SerialHex()
		state.Firmware = info.Firmware
		state.InputState = mgr.GetInputState(pad)
	}

	payload, err := json.Marshal(state)
	if err != nil {
		log.Printf("pad %d: marshaling state: %v", pad, err)
		return
	}

	topic := fmt.Sprintf("smx/pad/%d/state", pad)
	client.Publish(topic, 0, false, payload)
}
