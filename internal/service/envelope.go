package service

import (
	"fmt"
	"sync"

	"buf.build/gen/go/bufbuild/protovalidate/protocolbuffers/go/buf/validate"
	"connectrpc.com/connect"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/atlekbai/report_executor/internal/middleware"
)

// reportRequest describes the envelope checked before Execute and Compile:
// the caller's organization, the requested data source and the config body.
// Fields are proto2 optional so rules only apply to values that were sent.
var reportRequest = sync.OnceValues(func() (protoreflect.MessageDescriptor, error) {
	file := &descriptorpb.FileDescriptorProto{
		Name:       proto.String("reports/v1/report_request.proto"),
		Package:    proto.String("reports.v1"),
		Syntax:     proto.String("proto2"),
		Dependency: []string{"google/protobuf/struct.proto"},
		MessageType: []*descriptorpb.DescriptorProto{{
			Name: proto.String("ReportRequest"),
			Field: []*descriptorpb.FieldDescriptorProto{
				stringField("organization_id", 1, &validate.StringRules{
					MaxLen:  proto.Uint64(128),
					Pattern: proto.String(`^[A-Za-z0-9][A-Za-z0-9._:-]*$`),
				}),
				stringField("data_source_id", 2, &validate.StringRules{
					MinLen:  proto.Uint64(1),
					MaxLen:  proto.Uint64(63),
					Pattern: proto.String(`^[A-Za-z_][A-Za-z0-9_]*$`),
				}),
				{
					Name:     proto.String("config"),
					Number:   proto.Int32(3),
					Label:    descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
					Type:     descriptorpb.FieldDescriptorProto_TYPE_MESSAGE.Enum(),
					TypeName: proto.String(".google.protobuf.Struct"),
					Options:  fieldRules(&validate.FieldRules{Required: proto.Bool(true)}),
				},
			},
		}},
	}

	fd, err := protodesc.NewFile(file, protoregistry.GlobalFiles)
	if err != nil {
		return nil, fmt.Errorf("build report request descriptor: %w", err)
	}
	return fd.Messages().ByName("ReportRequest"), nil
})

func stringField(name string, number int32, rules *validate.StringRules) *descriptorpb.FieldDescriptorProto {
	return &descriptorpb.FieldDescriptorProto{
		Name:    proto.String(name),
		Number:  proto.Int32(number),
		Label:   descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
		Type:    descriptorpb.FieldDescriptorProto_TYPE_STRING.Enum(),
		Options: fieldRules(&validate.FieldRules{Type: &validate.FieldRules_String_{String_: rules}}),
	}
}

func fieldRules(rules *validate.FieldRules) *descriptorpb.FieldOptions {
	opts := &descriptorpb.FieldOptions{}
	proto.SetExtension(opts, validate.E_Field, rules)
	return opts
}

// ReportEnvelope builds the message protovalidate checks for a report call.
// Procedures that take no report config return nil and are validated as sent.
func ReportEnvelope(req connect.AnyRequest) (proto.Message, error) {
	switch req.Spec().Procedure {
	case ExecuteProcedure, CompileProcedure:
	default:
		return nil, nil
	}

	md, err := reportRequest()
	if err != nil {
		return nil, err
	}
	fields := md.Fields()
	msg := dynamicpb.NewMessage(md)

	if org := req.Header().Get(middleware.OrganizationHeader); org != "" {
		msg.Set(fields.ByName("organization_id"), protoreflect.ValueOfString(org))
	}
	if cfg, ok := req.Any().(*structpb.Struct); ok && cfg != nil {
		msg.Set(fields.ByName("config"), protoreflect.ValueOfMessage(cfg.ProtoReflect()))
		if v, ok := cfg.GetFields()["dataSourceId"].GetKind().(*structpb.Value_StringValue); ok {
			msg.Set(fields.ByName("data_source_id"), protoreflect.ValueOfString(v.StringValue))
		}
	}
	return msg, nil
}
