package natsadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/digipin/internal/core/domain"
	"github.com/samirrijal/digipin/internal/core/usecases"
	"github.com/samirrijal/digipin/internal/pkg/digipin"
	"github.com/samirrijal/digipin/internal/pkg/metrics"
)

// QueueGroup load-balances requests across responder replicas.
const QueueGroup = "digipin-responders"

// Reply is the envelope returned for every request.
type Reply struct {
	OK     bool        `json:"ok"`
	Result any         `json:"result,omitempty"`
	Error  *ReplyError `json:"error,omitempty"`
}

// ReplyError mirrors the HTTP error codes.
type ReplyError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Responder serves codec operations over NATS request/reply on
// <prefix>.<operation>.
type Responder struct {
	conn   *nats.Conn
	svc    *usecases.DigipinService
	prefix string
	sub    *nats.Subscription
}

// NewResponder creates a responder. conn may be nil when only Handle is used.
func NewResponder(conn *nats.Conn, svc *usecases.DigipinService, prefix string) *Responder {
	return &Responder{conn: conn, svc: svc, prefix: prefix}
}

// Subject returns the wildcard subject the responder listens on.
func (r *Responder) Subject() string {
	return r.prefix + ".*"
}

// Start subscribes in the queue group. Replies are sent until ctx is done or
// Stop is called.
func (r *Responder) Start(ctx context.Context) error {
	sub, err := r.conn.QueueSubscribe(r.Subject(), QueueGroup, func(msg *nats.Msg) {
		if msg.Reply == "" {
			return
		}
		if err := msg.Respond(r.Handle(ctx, msg.Subject, msg.Data)); err != nil {
			slog.Warn("nats respond failed", "subject", msg.Subject, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", r.Subject(), err)
	}
	r.sub = sub
	slog.Info("responder listening", "subject", r.Subject(), "queue", QueueGroup)
	return nil
}

// Stop drains the subscription.
func (r *Responder) Stop() error {
	if r.sub == nil {
		return nil
	}
	return r.sub.Drain()
}

// Handle dispatches one request and returns the encoded Reply.
func (r *Responder) Handle(ctx context.Context, subject string, data []byte) []byte {
	op := strings.TrimPrefix(subject, r.prefix+".")

	result, err := r.dispatch(ctx, op, data)
	reply := Reply{OK: err == nil, Result: result}
	outcome := metrics.OutcomeOK
	if err != nil {
		reply.Result = nil
		reply.Error = toReplyError(err)
		outcome = metrics.OutcomeError
		if reply.Error.Code == "bad_request" || reply.Error.Code == "not_found" {
			outcome = metrics.OutcomeInvalid
		}
	}
	metrics.ResponderRequests.WithLabelValues(op, outcome).Inc()

	out, mErr := json.Marshal(reply)
	if mErr != nil {
		slog.Error("marshal reply", "subject", subject, "error", mErr)
		return []byte(`{"ok":false,"error":{"code":"internal_error","message":"internal error"}}`)
	}
	return out
}

var errUnknownOperation = errors.New("unknown operation")

type badRequest struct{ msg string }

func (e *badRequest) Error() string { return e.msg }

func (r *Responder) dispatch(ctx context.Context, op string, data []byte) (any, error) {
	switch op {
	case "validate":
		var req domain.PinRequest
		if err := decode(data, &req); err != nil {
			return nil, err
		}
		return r.svc.Validate(ctx, req.Pin), nil

	case "decode":
		var req domain.PinRequest
		if err := decode(data, &req); err != nil {
			return nil, err
		}
		return r.svc.Decode(ctx, req.Pin)

	case "encode":
		var req domain.EncodeRequest
		if err := decode(data, &req); err != nil {
			return nil, err
		}
		if err := req.Check(); err != nil {
			return nil, err
		}
		return r.svc.Encode(ctx, *req.Latitude, *req.Longitude)

	case "distance":
		var req domain.DistanceRequest
		if err := decode(data, &req); err != nil {
			return nil, err
		}
		return r.svc.Distance(ctx, req.StartPin, req.EndPin)

	case "nearest":
		var req domain.NearestRequest
		if err := decode(data, &req); err != nil {
			return nil, err
		}
		return r.svc.Nearest(ctx, req.ReferencePin, req.Candidates)

	case "batch_encode":
		var req domain.BatchEncodeRequest
		if err := decode(data, &req); err != nil {
			return nil, err
		}
		items, sum, err := r.svc.BatchEncode(ctx, req.Items)
		if err != nil {
			return nil, err
		}
		return domain.BatchEncodeResponse{Items: items, Summary: sum}, nil

	case "batch_decode":
		var req domain.BatchDecodeRequest
		if err := decode(data, &req); err != nil {
			return nil, err
		}
		items, sum, err := r.svc.BatchDecode(ctx, req.Pins)
		if err != nil {
			return nil, err
		}
		return domain.BatchDecodeResponse{Items: items, Summary: sum}, nil
	}
	return nil, fmt.Errorf("%w %q", errUnknownOperation, op)
}

func decode(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return &badRequest{msg: "invalid JSON request: " + err.Error()}
	}
	return nil
}

func toReplyError(err error) *ReplyError {
	var br *badRequest
	switch {
	case digipin.IsValidationError(err):
		return &ReplyError{Code: "bad_request", Message: err.Error()}
	case errors.As(err, &br):
		return &ReplyError{Code: "bad_request", Message: br.msg}
	case errors.Is(err, errUnknownOperation):
		return &ReplyError{Code: "not_found", Message: err.Error()}
	default:
		return &ReplyError{Code: "internal_error", Message: "internal error"}
	}
}
