package main

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// StatusServer exposes the accounts, their logs and metrics over HTTP
type StatusServer struct {
	orchestrator *Orchestrator
	lock         sync.Mutex
	ln           net.Listener
}

// NewStatusServer creates a StatusServer reporting on o
func NewStatusServer(o *Orchestrator) *StatusServer {
	return &StatusServer{orchestrator: o}
}

// CreateHandler builds the router of the status server
func (p *StatusServer) CreateHandler() http.Handler {
	registry := prometheus.NewRegistry()
	registry.MustRegister(NewProcCollector(p.orchestrator))

	router := mux.NewRouter()
	router.HandleFunc("/accounts", p.getAccounts).Methods("GET")
	router.PathPrefix("/logtail/").Handler(NewLogtail(p.orchestrator).CreateHandler())
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).Methods("GET")
	return router
}

func (p *StatusServer) getAccounts(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(p.orchestrator.Accounts()); err != nil {
		log.WithError(err).Error("fail to encode accounts")
	}
}

// Start listens on listenAddr and serves in the background until Stop
func (p *StatusServer) Start(listenAddr string) error {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.ln != nil {
		return nil
	}
	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listenAddr, err)
	}
	log.WithFields(log.Fields{"addr": listener.Addr().String()}).Info("start status server")
	p.ln = listener
	handler := p.CreateHandler()
	go func() {
		_ = http.Serve(listener, handler)
	}()
	return nil
}

// Stop stop network listening
func (p *StatusServer) Stop() {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.ln != nil {
		log.Info("stop status server")
		_ = p.ln.Close()
		p.ln = nil
	}
}
