// Package server implements the TCP (and optional TLS) connection listener
// described in spec §5: one goroutine per connection, DML served directly
// on that goroutine, DDL/SYSCTL handed off to a fixed-size blocking worker
// pool so a slow ALTER never stalls the I/O-bound connections (spec §5,
// "concurrency and resource model").
package server

import (
	"bufio"
	"context"
	"crypto/tls"
	"net"
	"strconv"
	"sync"

	"github.com/skytable/skytable-sub005/pkg/config"
	"github.com/skytable/skytable-sub005/pkg/dispatcher"
	"github.com/skytable/skytable-sub005/pkg/logging"
	"github.com/skytable/skytable-sub005/pkg/protocol"
	"github.com/skytable/skytable-sub005/pkg/ql/parser"
)

// Server owns the listener and the blocking worker pool DDL/SYSCTL
// statements run on.
type Server struct {
	cfg        config.ServerConfig
	sslCfg     config.SSLConfig
	dispatcher *dispatcher.Dispatcher

	blockingWork chan func()
	wg           sync.WaitGroup
}

func New(cfg config.Config, d *dispatcher.Dispatcher) *Server {
	s := &Server{
		cfg:          cfg.Server,
		sslCfg:       cfg.SSL,
		dispatcher:   d,
		blockingWork: make(chan func()),
	}
	workers := cfg.Server.WorkerThreads
	if workers <= 0 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go s.runBlockingWorker()
	}
	return s
}

func (s *Server) runBlockingWorker() {
	defer s.wg.Done()
	for fn := range s.blockingWork {
		fn()
	}
}

// Run accepts connections until ctx is canceled, then stops accepting and
// waits for in-flight connections to finish.
func (s *Server) Run(ctx context.Context) error {
	log := logging.WithComponent("server")
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(int(s.cfg.Port)))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	if s.sslCfg.Enabled {
		cert, err := tls.LoadX509KeyPair(s.sslCfg.CertPath, s.sslCfg.KeyPath)
		if err != nil {
			ln.Close()
			return err
		}
		ln = tls.NewListener(ln, &tls.Config{Certificates: []tls.Certificate{cert}})
	}
	log.Info().Str("addr", addr).Bool("tls", s.sslCfg.Enabled).Msg("listening")

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	var connWg sync.WaitGroup
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				connWg.Wait()
				close(s.blockingWork)
				s.wg.Wait()
				return nil
			default:
				log.Error().Err(err).Msg("accept failed")
				continue
			}
		}
		connWg.Add(1)
		go func() {
			defer connWg.Done()
			s.handleConn(conn)
		}()
	}
}

func (s *Server) handleConn(conn net.Conn) {
	log := logging.WithConn(conn.RemoteAddr().String())
	defer conn.Close()

	sess := &dispatcher.Session{Auth: dispatcher.Anonymous()}
	r := bufio.NewReader(conn)

	for {
		marker, err := r.Peek(1)
		if err != nil {
			log.Debug().Err(err).Msg("connection closed")
			return
		}
		if marker[0] == 'P' {
			reqs, err := protocol.ReadPipeline(r)
			if err != nil {
				log.Debug().Err(err).Msg("connection closed")
				return
			}
			for _, req := range reqs {
				resp := s.handleRequest(sess, req)
				if err := protocol.WriteResponse(conn, resp); err != nil {
					log.Debug().Err(err).Msg("write failed, closing connection")
					return
				}
			}
			continue
		}

		req, err := protocol.ReadRequest(r)
		if err != nil {
			log.Debug().Err(err).Msg("connection closed")
			return
		}
		resp := s.handleRequest(sess, req)
		if err := protocol.WriteResponse(conn, resp); err != nil {
			log.Debug().Err(err).Msg("write failed, closing connection")
			return
		}
	}
}

func (s *Server) handleRequest(sess *dispatcher.Session, req protocol.Request) protocol.Response {
	node, err := parser.Parse(req.Source, req.Params)
	if err != nil {
		return protocol.ErrorResponse("syntax", err.Error())
	}

	if dispatcher.Classify(node) == dispatcher.ClassBlocking {
		resultCh := make(chan protocol.Response, 1)
		s.blockingWork <- func() {
			resp, err := s.dispatcher.Execute(sess, node)
			if err != nil {
				resp = protocol.ErrorResponse("exec", err.Error())
			}
			resultCh <- resp
		}
		return <-resultCh
	}

	resp, err := s.dispatcher.Execute(sess, node)
	if err != nil {
		return protocol.ErrorResponse("exec", err.Error())
	}
	return resp
}
