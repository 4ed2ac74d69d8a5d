package sounder

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/hypebeast/go-osc/osc"

	logx "tidalgo/pkg/logx"
)

const dirtAddress = "/dirt/play"

// OSC triggers a SuperDirt (or compatible) server over UDP. Messages carry
// the sound name, optional sample index ("bd:3"), onset timestamp and
// duration in seconds.
type OSC struct {
	client *osc.Client
	log    logx.Logger
}

func NewOSC(cfg Config, log logx.Logger) (*OSC, error) {
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Port
	if port <= 0 {
		port = 57120
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	log.Info("osc sounder ready", logx.String("host", host), logx.Int("port", port))
	return &OSC{client: osc.NewClient(host, port), log: log}, nil
}

func (o *OSC) Play(ctx context.Context, value string, at time.Time, dur time.Duration) error {
	if o == nil || o.client == nil {
		return &Error{Driver: "osc", Value: value, Err: errors.New("client closed")}
	}
	if err := ctx.Err(); err != nil {
		return &Error{Driver: "osc", Value: value, Err: err}
	}

	name, index := splitIndex(value)

	msg := osc.NewMessage(dirtAddress)
	msg.Append("s")
	msg.Append(name)
	msg.Append("n")
	msg.Append(int32(index))
	msg.Append("sec")
	msg.Append(int32(at.Unix()))
	msg.Append("usec")
	msg.Append(int32(at.Nanosecond() / 1e3))
	msg.Append("delta")
	msg.Append(float32(dur.Seconds()))

	// UDP send; effectively non-blocking.
	if err := o.client.Send(msg); err != nil {
		return &Error{Driver: "osc", Value: value, Err: err}
	}
	return nil
}

func (o *OSC) Close() error { return nil }

// splitIndex separates "bd:3" into ("bd", 3); a bare name has index 0.
func splitIndex(value string) (string, int) {
	i := strings.LastIndexByte(value, ':')
	if i < 0 {
		return value, 0
	}
	n, err := strconv.Atoi(value[i+1:])
	if err != nil {
		return value, 0
	}
	return value[:i], n
}
