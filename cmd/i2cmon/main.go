package main

import (
	"encoding/json"
	"flag"
	"os"
	"reflect"
	"strings"

	"github.com/golang/glog"

	"github.com/robotalks/i2cslave.go/pkg/l1/comm/mqtt"
	"github.com/robotalks/i2cslave.go/pkg/l1/msgs"
)

var (
	mqttURL    = "mqtt://localhost:1883/"
	filter     = "#"
	outputJSON bool
)

func init() {
	if val := os.Getenv("I2C_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
	flag.StringVar(&filter, "topic", filter, "Topic filter under the prefix.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print messages in JSON.")
}

func main() {
	flag.Set("logtostderr", "true")
	flag.Parse()

	q, err := mqtt.NewQueueFromURL(mqttURL)
	if err != nil {
		glog.Exit(err)
	}
	q.Sub(filter, func(topic string, payload []byte) {
		if strings.HasSuffix(topic, "/"+mqtt.TopicMeta) {
			if len(payload) == 0 {
				glog.Infof("%s: gone", topic)
			} else {
				glog.Infof("%s: %s", topic, payload)
			}
			return
		}
		typed, err := msgs.DecodeTyped(payload)
		if err != nil {
			glog.Warningf("%s: bad packet: %v", topic, err)
			return
		}
		msg, err := typed.Decode()
		if err != nil {
			glog.Warningf("%s: decode (type %#08x): %v", topic, typed.TypeID, err)
			return
		}
		sm := msg.(msgs.SerializableMessage)
		if outputJSON {
			out, err := json.Marshal(sm.Serializable())
			if err != nil {
				glog.Warningf("%s: %v", topic, err)
				return
			}
			glog.Infof("%s: #%d %s", topic, typed.Sequence, out)
			return
		}
		glog.Infof("%s: #%d [%s] %s", topic, typed.Sequence,
			reflect.Indirect(reflect.ValueOf(msg)).Type().Name(),
			sm.Serializable().String())
	})
	if token := q.Connect(); token.Wait() && token.Error() != nil {
		glog.Exit(token.Error())
	}
	select {}
}
