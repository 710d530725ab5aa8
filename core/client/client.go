package client

import (
	"context"
	"errors"
	"net"
	"os"
	"sync/atomic"
	"time"

	"github.com/libp2p/go-reuseport"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"go.uber.org/zap"

	"example.com/ntp-clock/base/metrics"

	"example.com/ntp-clock/net/ntp"
	"example.com/ntp-clock/net/udp"
)

const (
	DefaultTimeout = 3 * time.Second

	// Large enough for responses carrying extension fields or a MAC
	maxPacketLen = 1024
)

// Client queries NTP servers for their current time. The zero value is
// ready to use with DefaultTimeout.
type Client struct {
	Timeout          time.Duration
	LocalAddr        *net.UDPAddr
	DSCP             uint8
	StrictValidation bool
}

type Result struct {
	Server    string
	Time      time.Time
	RoundTrip time.Duration
}

type clientMetrics struct {
	reqsSent      prometheus.Counter
	pktsReceived  prometheus.Counter
	respsAccepted prometheus.Counter
	queryErrors   *prometheus.CounterVec
	roundTrip     prometheus.Histogram
}

var queryMetrics atomic.Pointer[clientMetrics]

func init() {
	queryMetrics.Store(newClientMetrics())
}

func newClientMetrics() *clientMetrics {
	return &clientMetrics{
		reqsSent: promauto.NewCounter(prometheus.CounterOpts{
			Name: metrics.ClientReqsSentN,
			Help: metrics.ClientReqsSentH,
		}),
		pktsReceived: promauto.NewCounter(prometheus.CounterOpts{
			Name: metrics.ClientPktsReceivedN,
			Help: metrics.ClientPktsReceivedH,
		}),
		respsAccepted: promauto.NewCounter(prometheus.CounterOpts{
			Name: metrics.ClientRespsAcceptedN,
			Help: metrics.ClientRespsAcceptedH,
		}),
		queryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.ClientQueryErrorsN,
			Help: metrics.ClientQueryErrorsH,
		}, []string{"kind"}),
		roundTrip: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    metrics.ClientRoundTripN,
			Help:    metrics.ClientRoundTripH,
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
	}
}

func errorKind(err error) ErrorKind {
	var nerr net.Error
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, os.ErrDeadlineExceeded) ||
		errors.As(err, &nerr) && nerr.Timeout() {
		return KindTimeout
	}
	return KindUnreachable
}

func queryFailed(mtrcs *clientMetrics, server string, kind ErrorKind, err error) error {
	mtrcs.queryErrors.WithLabelValues(kind.String()).Inc()
	return &QueryError{Server: server, Kind: kind, Err: err}
}

// Query sends a single request to server (host:port) and waits up to
// c.Timeout for the response. The socket is closed before Query returns.
func (c *Client) Query(ctx context.Context, log *zap.Logger, server string) (
	Result, error) {
	mtrcs := queryMetrics.Load()

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	d := net.Dialer{Control: reuseport.Control}
	if c.LocalAddr != nil {
		d.LocalAddr = c.LocalAddr
	}
	conn, err := d.DialContext(ctx, "udp", server)
	if err != nil {
		return Result{}, queryFailed(mtrcs, server, errorKind(err), err)
	}
	defer conn.Close()
	udpConn, ok := conn.(*net.UDPConn)
	if !ok {
		panic("unexpected connection type")
	}

	deadline, _ := ctx.Deadline()
	err = conn.SetDeadline(deadline)
	if err != nil {
		return Result{}, queryFailed(mtrcs, server, KindUnreachable, err)
	}
	err = udp.SetDSCP(udpConn, c.DSCP)
	if err != nil {
		log.Info("failed to set DSCP", zap.Error(err))
	}

	ntpreq := ntp.NewRequestPacket()
	buf := make([]byte, ntp.PacketLen, maxPacketLen)
	ntp.EncodePacket(&buf, &ntpreq)
	log.Debug("sending request",
		zap.String("to", server),
		zap.Object("data", ntp.PacketMarshaler{Pkt: &ntpreq}),
	)

	cTxTime := time.Now()
	n, err := conn.Write(buf)
	if err != nil {
		return Result{}, queryFailed(mtrcs, server, errorKind(err), err)
	}
	if n != len(buf) {
		return Result{}, queryFailed(mtrcs, server, KindUnreachable, errWrite)
	}
	mtrcs.reqsSent.Inc()

	buf = buf[:cap(buf)]
	n, err = conn.Read(buf)
	if err != nil {
		return Result{}, queryFailed(mtrcs, server, errorKind(err), err)
	}
	rtt := time.Since(cTxTime)
	mtrcs.pktsReceived.Inc()
	buf = buf[:n]

	var ntpresp ntp.Packet
	err = ntp.DecodePacket(&ntpresp, buf)
	if err != nil {
		return Result{}, queryFailed(mtrcs, server, KindProtocol, err)
	}
	log.Debug("received response",
		zap.String("from", server),
		zap.Object("data", ntp.PacketMarshaler{Pkt: &ntpresp}),
	)

	if c.StrictValidation {
		err = ntp.ValidateResponseMetadata(&ntpresp)
		if err != nil {
			return Result{}, queryFailed(mtrcs, server, KindProtocol, err)
		}
	}

	sTxTime, err := ntpresp.TransmitTimestamp()
	if err != nil {
		return Result{}, queryFailed(mtrcs, server, KindProtocol, err)
	}
	mtrcs.respsAccepted.Inc()
	mtrcs.roundTrip.Observe(rtt.Seconds())

	return Result{
		Server:    server,
		Time:      sTxTime,
		RoundTrip: rtt,
	}, nil
}
