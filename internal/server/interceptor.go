package server

import (
	"context"

	"buf.build/go/protovalidate"
	"connectrpc.com/connect"
	"google.golang.org/protobuf/proto"
)

// Envelope maps a request to the message protovalidate checks. A nil message
// means the request message itself is validated.
type Envelope func(req connect.AnyRequest) (proto.Message, error)

// ValidationInterceptor rejects requests whose envelope fails protovalidate
// constraints.
func ValidationInterceptor(validator protovalidate.Validator, envelope Envelope) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			var msg proto.Message
			if envelope != nil {
				m, err := envelope(req)
				if err != nil {
					return nil, connect.NewError(connect.CodeInternal, err)
				}
				msg = m
			}
			if msg == nil {
				msg, _ = req.Any().(proto.Message)
			}
			if msg != nil {
				if err := validator.Validate(msg); err != nil {
					return nil, connect.NewError(connect.CodeInvalidArgument, err)
				}
			}
			return next(ctx, req)
		}
	}
}
