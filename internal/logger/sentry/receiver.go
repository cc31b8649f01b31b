package sentry

import (
	"fmt"

	"github.com/getsentry/raven-go"
	"github.com/mono83/slf"
	"github.com/mono83/slf/filters"
)

// Config holds information for filtered receiver
type Config struct {
	MinLevel        string
	ParamsWhiteList []string
	ParamsBlackList []string
}

// NewReceiver creates a receiver that forwards log events into the Sentry
// through the passed raven.Client. Release and environment should be configured
// on the client itself, they will be sent with each Packet.
//
// The Config parameter allows you to add additional filtering, such as the minimum
// message level and the exclusion of private parameters. Pass nil if you don't need it.
func NewReceiver(client *raven.Client, cfg *Config) (slf.Receiver, error) {
	out := &logReceiver{
		target: client,
		filter: slf.NewBlackListParamsFilter(nil),
	}

	if cfg == nil {
		return out, nil
	}

	level, ok := slf.ParseType(cfg.MinLevel)
	if !ok {
		return nil, fmt.Errorf("unknown level %s", cfg.MinLevel)
	}

	if len(cfg.ParamsWhiteList) > 0 {
		out.filter = slf.NewWhiteListParamsFilter(cfg.ParamsWhiteList)
	} else {
		out.filter = slf.NewBlackListParamsFilter(cfg.ParamsBlackList)
	}

	return filters.MinLogLevel(level, out), nil
}

type capturer interface {
	Capture(packet *raven.Packet, captureTags map[string]string) (eventID string, ch chan error)
}

type logReceiver struct {
	target capturer
	filter slf.ParamsFilter
}

func (l *logReceiver) Receive(p slf.Event) {
	if !p.IsLog() {
		return
	}

	pkt := buildPacket(p, l.filter)
	l.target.Capture(pkt, map[string]string{})
}

func buildPacket(p slf.Event, filter slf.ParamsFilter) *raven.Packet {
	pkt := raven.NewPacket(
		slf.ReplacePlaceholders(p.Content, p.Params, false),
		// Skip the logger's own frames so the trace starts in the app code
		raven.NewStacktrace(5, 5, []string{}),
	)

	for _, param := range filter(p.Params) {
		value := param.GetRaw()
		if e, ok := value.(error); ok && e != nil {
			value = e.Error()
		}

		pkt.Extra[param.GetKey()] = value
	}

	pkt.Level = convertType(p.Type)
	pkt.Timestamp = raven.Timestamp(p.Time)

	return pkt
}

func convertType(wdType byte) raven.Severity {
	switch wdType {
	case slf.TypeTrace, slf.TypeDebug:
		return raven.DEBUG
	case slf.TypeInfo:
		return raven.INFO
	case slf.TypeWarning:
		return raven.WARNING
	case slf.TypeError:
		return raven.ERROR
	case slf.TypeAlert, slf.TypeEmergency:
		return raven.FATAL
	}

	return raven.ERROR
}
