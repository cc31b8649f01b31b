package eventsubscribers

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/mono83/slf"
)

type StatsReporter struct {
	slf.StatsReporter
	Prefix string

	timersMap   map[string]time.Time
	timersMutex sync.Mutex
}

func (s *StatsReporter) ConfigureWithDispatcher(d Subscriber) {
	s.timersMap = make(map[string]time.Time)

	// Per request events
	d.Subscribe("http:before_request", s.handleBeforeRequest)
	d.Subscribe("http:after_request", s.handleAfterRequest)

	// Providers calls
	d.Subscribe("yggdrasil:before_call", func(op string, provider string, subject string) {
		s.incCounter(op + ".provider_request")
		s.startTimeRecording(timerKey(op, provider, subject))
	})
	d.Subscribe("yggdrasil:after_call", func(op string, provider string, subject string, found bool, err error) {
		s.finalizeTimeRecording(timerKey(op, provider, subject), op+".provider_request_time")
		switch {
		case err != nil:
			s.incCounter(op + ".provider_error")
		case found:
			s.incCounter(op + ".provider_hit")
		default:
			s.incCounter(op + ".provider_miss")
		}
	})
	d.Subscribe("yggdrasil:malformed_record", func(op string, provider string, err error) {
		s.incCounter(op + ".malformed_record")
	})

	// Final results of the client's operations
	d.Subscribe("yggdrasil:result", func(op string, subject string, found bool) {
		s.incCounter(op + ".request")
		if found {
			s.incCounter(op + ".found")
		} else {
			s.incCounter(op + ".miss")
		}
	})
}

func (s *StatsReporter) handleBeforeRequest(req *http.Request) {
	key := requestKey(req)
	if key == "" {
		return
	}

	s.incCounter(key + ".request")
}

func (s *StatsReporter) handleAfterRequest(req *http.Request, code int) {
	key := requestKey(req)
	if key == "" {
		return
	}

	switch {
	case code == http.StatusOK:
		s.incCounter(key + ".success")
	case code == http.StatusNoContent:
		s.incCounter(key + ".not_handled")
	case code >= 400 && code < 500:
		s.incCounter(key + ".invalid")
	}
}

func requestKey(req *http.Request) string {
	p := req.URL.Path
	switch {
	case req.Method == http.MethodGet && p == "/session/minecraft/hasJoined":
		return "http.has_joined"
	case req.Method == http.MethodGet && strings.HasPrefix(p, "/session/minecraft/profile/"):
		return "http.profile"
	case req.Method == http.MethodPost && strings.HasSuffix(p, "/profiles/minecraft"):
		return "http.bulk_uuids"
	}

	return ""
}

func timerKey(op string, provider string, subject string) string {
	return strings.Join([]string{op, provider, subject}, "|")
}

func (s *StatsReporter) startTimeRecording(timeKey string) {
	s.timersMutex.Lock()
	defer s.timersMutex.Unlock()
	s.timersMap[timeKey] = time.Now()
}

func (s *StatsReporter) finalizeTimeRecording(timeKey string, statName string) {
	s.timersMutex.Lock()
	defer s.timersMutex.Unlock()
	startedAt, ok := s.timersMap[timeKey]
	if !ok {
		return
	}

	delete(s.timersMap, timeKey)

	s.recordTimer(statName, time.Since(startedAt))
}

func (s *StatsReporter) incCounter(name string) {
	s.IncCounter(s.key(name), 1)
}

func (s *StatsReporter) recordTimer(name string, duration time.Duration) {
	s.RecordTimer(s.key(name), duration)
}

func (s *StatsReporter) key(name string) string {
	if s.Prefix == "" {
		return name
	}

	return s.Prefix + "." + name
}
