package websocket

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sync"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	fx "github.com/robotalks/i2cslave.go/pkg/framework"
	"github.com/robotalks/i2cslave.go/pkg/l1"
	"github.com/robotalks/i2cslave.go/pkg/l1/comm"
)

// Paths served by a Registrar.
const (
	InfoPath   = "/info"
	StreamPath = "/l1"
)

// Registrar implements l1.Registrar by serving hosts over websocket.
// Each connected host gets its own pipe, events go to all of them.
type Registrar struct {
	Addr     string
	Listener net.Listener // overrides Addr when set
	Info     l1.DeviceInfo

	lock    sync.Mutex
	ctx     context.Context
	clients map[*comm.Registrar]struct{}
}

// NewRegistrar creates a Registrar listening on addr.
func NewRegistrar(addr string, info l1.DeviceInfo) *Registrar {
	return &Registrar{Addr: addr, Info: info}
}

// Handler returns the http.Handler serving info and streams.
func (r *Registrar) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(InfoPath, r.serveInfo)
	mux.Handle(StreamPath, websocket.Handler(r.serveStream))
	return mux
}

// SendEvent implements l1.Registrar.
func (r *Registrar) SendEvent(ctx context.Context, msg fx.Message) error {
	r.lock.Lock()
	clients := make([]*comm.Registrar, 0, len(r.clients))
	for c := range r.clients {
		clients = append(clients, c)
	}
	r.lock.Unlock()
	var errs fx.AggregatedError
	for _, c := range clients {
		errs.Add(c.SendEvent(ctx, msg))
	}
	return errs.Aggregate()
}

// Clients returns the number of connected hosts.
func (r *Registrar) Clients() int {
	r.lock.Lock()
	defer r.lock.Unlock()
	return len(r.clients)
}

// AddToLoop implements LoopAdder.
func (r *Registrar) AddToLoop(loop *fx.Loop) {
	loop.AddRunnable(r)
}

// Run implements Runnable.
func (r *Registrar) Run(ctx context.Context) error {
	ln := r.Listener
	if ln == nil {
		var err error
		if ln, err = net.Listen("tcp", r.Addr); err != nil {
			return err
		}
	}
	r.lock.Lock()
	r.ctx = ctx
	r.lock.Unlock()
	glog.Infof("serving %s on ws://%s", r.Info.Ref.Name(), ln.Addr())
	srv := &http.Server{Handler: r.Handler()}
	return fx.RunWithContextCancel(ctx, func() { srv.Close() }, func() error {
		if err := srv.Serve(ln); err != http.ErrServerClosed {
			return err
		}
		return nil
	})
}

func (r *Registrar) serveInfo(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(&r.Info)
}

func (r *Registrar) serveStream(conn *websocket.Conn) {
	conn.PayloadType = websocket.BinaryFrame
	r.lock.Lock()
	ctx := r.ctx
	r.lock.Unlock()
	if ctx == nil {
		conn.Close()
		return
	}
	client := comm.NewRegistrar(New(conn))
	r.lock.Lock()
	if r.clients == nil {
		r.clients = make(map[*comm.Registrar]struct{})
	}
	r.clients[client] = struct{}{}
	r.lock.Unlock()
	glog.V(2).Infof("host connected: %s", conn.Request().RemoteAddr)

	err := client.Pipe.Run(ctx)

	r.lock.Lock()
	delete(r.clients, client)
	r.lock.Unlock()
	glog.V(2).Infof("host disconnected: %s: %v", conn.Request().RemoteAddr, err)
}
