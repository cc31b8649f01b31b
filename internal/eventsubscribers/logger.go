package eventsubscribers

import (
	"context"
	"errors"

	"github.com/mono83/slf"
	"github.com/mono83/slf/wd"

	"ely.by/yggrelay/internal/yggdrasil"
)

var operationNames = map[string]string{
	yggdrasil.OpQueryUUIDs:   "Query UUIDs",
	yggdrasil.OpQueryProfile: "Query profile",
	yggdrasil.OpHasJoined:    "Has joined",
}

type Logger struct {
	slf.Logger
}

func (l *Logger) ConfigureWithDispatcher(d Subscriber) {
	d.Subscribe("yggdrasil:after_call", l.handleProviderCall)
	d.Subscribe("yggdrasil:malformed_record", l.handleMalformedRecord)
}

func (l *Logger) handleProviderCall(op string, provider string, subject string, found bool, err error) {
	params := []slf.Param{
		wd.StringParam("operation", operationName(op)),
		wd.StringParam("subject", subject),
		wd.StringParam("provider", provider),
	}

	if err == nil {
		if found {
			l.Debug(":operation of [:subject] at [:provider] succeed", params...)
		} else {
			l.Debug(":operation of [:subject] at [:provider], not found", params...)
		}

		return
	}

	params = append(params, wd.ErrParam(err))

	// The request was cancelled by the caller, so the provider isn't to blame
	if errors.Is(err, context.Canceled) {
		l.Debug(":operation of [:subject] at [:provider] was cancelled: :err", params...)
		return
	}

	var malformedIdErr *yggdrasil.MalformedIdentifierError
	var malformedResponseErr *yggdrasil.MalformedResponseError
	if errors.As(err, &malformedIdErr) || errors.As(err, &malformedResponseErr) {
		l.Warning(":operation of [:subject] at [:provider] returned an invalid response: :err", params...)
		return
	}

	l.Warning(":operation of [:subject] at [:provider] failed: :err", params...)
}

func (l *Logger) handleMalformedRecord(op string, provider string, err error) {
	l.Debug(
		":operation at [:provider] returned an invalid record: :err",
		wd.StringParam("operation", operationName(op)),
		wd.StringParam("provider", provider),
		wd.ErrParam(err),
	)
}

func operationName(op string) string {
	if name, ok := operationNames[op]; ok {
		return name
	}

	return op
}
