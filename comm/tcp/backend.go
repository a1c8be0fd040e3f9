package tcp

import (
	"github.com/tkoeppen/taskwire/comm"
)

type backend struct{}

func (backend) Connector() comm.Connector {
	return connector{}
}

func (backend) NewListener(loc string, handler comm.Handler, opts comm.Options) (comm.Listener, error) {
	return newListener(loc, handler, opts), nil
}

func init() {
	comm.Default().RegisterBackend("tcp", backend{})
}
