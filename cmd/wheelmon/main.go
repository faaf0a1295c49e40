package main

import (
	"flag"
	"log"
	"os"
	"reflect"
	"strings"

	"github.com/robotalks/wheel.go/pkg/bridge"
	"github.com/robotalks/wheel.go/pkg/bridge/mqtt"
	"github.com/robotalks/wheel.go/pkg/bridge/msgs"
)

var (
	mqttURL = "mqtt://localhost:1883/robot/"
)

func init() {
	if val := os.Getenv("ROBO_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	q, err := mqtt.NewQueueFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}

	q.Sub("#", mqtt.Handler(func(topic string, payload []byte) {
		if bridge.MatchTopic(topic, "nodes/+") {
			if len(payload) == 0 {
				log.Printf("%s: gone", topic)
			} else {
				log.Printf("%s: %s", topic, string(payload))
			}
			return
		}
		typed, err := msgs.DecodeTyped(payload)
		if err != nil {
			log.Printf("%s: bad message: %v", topic, err)
			return
		}
		msg, err := typed.Decode()
		if err != nil {
			log.Printf("%s: decode error: (type_id=%x) %v", topic, typed.TypeId, err)
			return
		}
		reply := ""
		if strings.HasSuffix(topic, bridge.ReplySuffix) {
			reply = " reply"
		}
		log.Printf("%s: [%s%s seq=%d] %s", topic,
			reflect.Indirect(reflect.ValueOf(msg)).Type().Name(), reply, typed.Sequence,
			msg.Serializable().String())
	}))
	if token := q.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalln(token.Error())
	}
	<-(chan struct{})(nil)
}
