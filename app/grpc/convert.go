package grpc

import (
	"encoding/json"

	"github.com/vibast-solutions/ms-go-holestpay/app/payload"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

func structToObject(in *structpb.Struct) (*payload.Object, error) {
	if in == nil {
		return payload.NewObject(), nil
	}
	value, err := payload.FromInterface(in.AsMap())
	if err != nil {
		return nil, err
	}
	obj, ok := value.AsObject()
	if !ok {
		return nil, payload.ErrNotObject
	}
	return obj, nil
}

func objectToStruct(obj *payload.Object) (*structpb.Struct, error) {
	return structpb.NewStruct(obj.Map())
}

// responseToStruct converts a JSON tagged response type into a Struct.
func responseToStruct(v interface{}) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(raw, out); err != nil {
		return nil, err
	}
	return out, nil
}
