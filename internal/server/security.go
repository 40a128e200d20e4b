package server

import (
	"crypto/tls"
	"fmt"
	"net"

	"github.com/latoalla/roster-server/internal/model"
)

// Application protocols offered during the TLS handshake.
const (
	ProtoHTTP2 = "h2"
	ProtoHTTP1 = "http/1.1"
)

// TLS describes the certificate a listener serves.
type TLS struct {
	Enabled  bool
	CertFile string
	KeyFile  string
}

// NewSecurityLayer returns a TLS listener offering protos when t is enabled
// and a plain listener otherwise. gRPC needs only ProtoHTTP2.
func NewSecurityLayer(t TLS, protos ...string) model.SecurityLayer {
	if t.Enabled {
		return NewTLSListener(t.CertFile, t.KeyFile, protos...)
	}
	return NewPlainListener()
}

// TLSListener listens with a certificate loaded from disk on every Listen.
type TLSListener struct {
	certFile string
	keyFile  string
	protos   []string
}

// NewTLSListener creates a TLS listener. Without protos it offers ProtoHTTP2.
func NewTLSListener(certFile, keyFile string, protos ...string) *TLSListener {
	if len(protos) == 0 {
		protos = []string{ProtoHTTP2}
	}
	return &TLSListener{
		certFile: certFile,
		keyFile:  keyFile,
		protos:   protos,
	}
}

func (l *TLSListener) Listen(protocol, addr string) (net.Listener, error) {
	cert, err := tls.LoadX509KeyPair(l.certFile, l.keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load TLS certificate: %w", err)
	}

	return tls.Listen(protocol, addr, &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
		NextProtos:   l.protos,
	})
}

// PlainListener listens without encryption.
type PlainListener struct{}

func NewPlainListener() *PlainListener {
	return &PlainListener{}
}

func (l *PlainListener) Listen(protocol, addr string) (net.Listener, error) {
	return net.Listen(protocol, addr)
}
