package mqtt

import (
	"context"
	"encoding/json"

	fx "github.com/robotalks/i2cslave.go/pkg/framework"
	"github.com/robotalks/i2cslave.go/pkg/l1"
	"github.com/robotalks/i2cslave.go/pkg/l1/comm"
)

// Registrar implements l1.Registrar on MQTT. The retained meta message is
// cleared on exit, and by the broker through the will if the device dies.
type Registrar struct {
	Queue *Queue
	Info  l1.DeviceInfo

	meta []byte
	comm.Registrar
}

// NewRegistrar creates a Registrar.
func NewRegistrar(brokerURL string, info l1.DeviceInfo) (*Registrar, error) {
	meta, err := json.Marshal(&info)
	if err != nil {
		return nil, err
	}
	opts, prefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	metaTopic := info.Ref.Name() + "/" + TopicMeta
	opts.SetBinaryWill(prefix+metaTopic, nil, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID("i2c:" + info.Ref.Name())
	}
	r := &Registrar{Info: info, meta: meta}
	r.Queue = NewQueue(opts, prefix)
	r.Queue.OnConnect = func(q *Queue) {
		q.PubWith(metaTopic, r.meta, 1, true)
	}
	r.Registrar.Init(NewPacketReadWriter(r.Queue).ForDevice(info.Ref))
	return r, nil
}

// AddToLoop implements LoopAdder.
func (r *Registrar) AddToLoop(loop *fx.Loop) {
	r.Registrar.AddToLoop(loop)
	loop.AddRunnable(r)
}

// Run implements Runnable.
func (r *Registrar) Run(ctx context.Context) error {
	if token := r.Queue.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	<-ctx.Done()
	r.Queue.PubWith(r.Info.Ref.Name()+"/"+TopicMeta, nil, 1, true).Wait()
	r.Queue.Close()
	return ctx.Err()
}
