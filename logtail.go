package main

import (
	"net/http"
	"os"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"github.com/vaultmerge/vaultmerge/logger"
)

const logtailLength = 64 * 1024

// Logtail serves the end of the serve log of an account
type Logtail struct {
	router       *mux.Router
	orchestrator *Orchestrator
}

// NewLogtail creates a Logtail on its own router
func NewLogtail(o *Orchestrator) *Logtail {
	return &Logtail{router: mux.NewRouter(), orchestrator: o}
}

// CreateHandler registers the logtail routes
func (lt *Logtail) CreateHandler() http.Handler {
	lt.router.HandleFunc("/logtail/{account}", lt.getLog).Methods("GET")
	return lt.router
}

func (lt *Logtail) getLog(w http.ResponseWriter, req *http.Request) {
	name := mux.Vars(req)["account"]
	account, ok := lt.orchestrator.FindAccount(name)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	logFile := account.LogFile
	if proc := lt.orchestrator.GetProcessManager().Find(name); proc != nil && proc.GetLogFile() != "" {
		logFile = proc.GetLogFile()
	}
	text, err := logger.ReadTail(logFile, logtailLength)
	if err != nil {
		if os.IsNotExist(err) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		log.WithFields(log.Fields{log.ErrorKey: err, "account": name}).Error("fail to read serve log")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(text))
}
