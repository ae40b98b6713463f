// Package onnx writes and reads the subset of the ONNX ModelProto needed to
// ship a tree ensemble classifier, and evaluates such a model in Go.
//
// Messages are encoded field by field with protowire, so no generated ONNX
// bindings are needed. Field numbers follow onnx/onnx.proto.
package onnx

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Tensor element types.
const (
	ElemFloat int32 = 1
	ElemInt64 int32 = 7
)

// AttributeType mirrors AttributeProto.AttributeType.
type AttributeType int32

const (
	AttrFloat   AttributeType = 1
	AttrInt     AttributeType = 2
	AttrString  AttributeType = 3
	AttrFloats  AttributeType = 6
	AttrInts    AttributeType = 7
	AttrStrings AttributeType = 8
)

// OperatorSet is an OperatorSetIdProto.
type OperatorSet struct {
	Domain  string
	Version int64
}

// Model is a ModelProto.
type Model struct {
	IRVersion       int64
	Opsets          []OperatorSet
	ProducerName    string
	ProducerVersion string
	Domain          string
	ModelVersion    int64
	DocString       string
	Graph           Graph
	Metadata        []KeyValue
}

// KeyValue is a StringStringEntryProto.
type KeyValue struct {
	Key, Value string
}

// Graph is a GraphProto.
type Graph struct {
	Name    string
	Nodes   []Node
	Inputs  []ValueInfo
	Outputs []ValueInfo
}

// Node is a NodeProto.
type Node struct {
	Name       string
	OpType     string
	Domain     string
	Inputs     []string
	Outputs    []string
	Attributes []Attribute
}

// Attribute is an AttributeProto. Only the field matching Type is set.
type Attribute struct {
	Name    string
	Type    AttributeType
	F       float32
	I       int64
	S       string
	Floats  []float32
	Ints    []int64
	Strings []string
}

// ValueInfo is a ValueInfoProto holding a tensor type.
type ValueInfo struct {
	Name     string
	ElemType int32
	Dims     []Dim
}

// Dim is a tensor dimension, either fixed or symbolic.
type Dim struct {
	Value int64
	Param string
}

// MetadataValue returns the value stored under key.
func (m *Model) MetadataValue(key string) (string, bool) {
	for _, kv := range m.Metadata {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return "", false
}

// Attribute returns the named attribute of n.
func (n *Node) Attribute(name string) (*Attribute, bool) {
	for i := range n.Attributes {
		if n.Attributes[i].Name == name {
			return &n.Attributes[i], true
		}
	}
	return nil, false
}

// ---------------------------
// Encoding
// ---------------------------

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendMessage(b []byte, num protowire.Number, msg []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}

func appendVarint(b []byte, num protowire.Number, v int64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(v))
}

// Marshal encodes m as a binary ModelProto.
func (m *Model) Marshal() []byte {
	var b []byte
	b = appendVarint(b, 1, m.IRVersion)
	b = appendString(b, 2, m.ProducerName)
	b = appendString(b, 3, m.ProducerVersion)
	b = appendString(b, 4, m.Domain)
	if m.ModelVersion != 0 {
		b = appendVarint(b, 5, m.ModelVersion)
	}
	b = appendString(b, 6, m.DocString)
	b = appendMessage(b, 7, m.Graph.marshal())
	for _, o := range m.Opsets {
		var ob []byte
		ob = appendString(ob, 1, o.Domain)
		ob = appendVarint(ob, 2, o.Version)
		b = appendMessage(b, 8, ob)
	}
	for _, kv := range m.Metadata {
		var kb []byte
		kb = appendString(kb, 1, kv.Key)
		kb = appendString(kb, 2, kv.Value)
		b = appendMessage(b, 14, kb)
	}
	return b
}

func (g *Graph) marshal() []byte {
	var b []byte
	for _, n := range g.Nodes {
		b = appendMessage(b, 1, n.marshal())
	}
	b = appendString(b, 2, g.Name)
	for _, v := range g.Inputs {
		b = appendMessage(b, 11, v.marshal())
	}
	for _, v := range g.Outputs {
		b = appendMessage(b, 12, v.marshal())
	}
	return b
}

func (n *Node) marshal() []byte {
	var b []byte
	for _, in := range n.Inputs {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendString(b, in)
	}
	for _, out := range n.Outputs {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendString(b, out)
	}
	b = appendString(b, 3, n.Name)
	b = appendString(b, 4, n.OpType)
	for _, a := range n.Attributes {
		b = appendMessage(b, 5, a.marshal())
	}
	b = appendString(b, 7, n.Domain)
	return b
}

func (a *Attribute) marshal() []byte {
	var b []byte
	b = appendString(b, 1, a.Name)
	switch a.Type {
	case AttrFloat:
		b = protowire.AppendTag(b, 2, protowire.Fixed32Type)
		b = protowire.AppendFixed32(b, math.Float32bits(a.F))
	case AttrInt:
		b = appendVarint(b, 3, a.I)
	case AttrString:
		b = protowire.AppendTag(b, 4, protowire.BytesType)
		b = protowire.AppendString(b, a.S)
	case AttrFloats:
		for _, f := range a.Floats {
			b = protowire.AppendTag(b, 7, protowire.Fixed32Type)
			b = protowire.AppendFixed32(b, math.Float32bits(f))
		}
	case AttrInts:
		for _, v := range a.Ints {
			b = appendVarint(b, 8, v)
		}
	case AttrStrings:
		for _, s := range a.Strings {
			b = protowire.AppendTag(b, 9, protowire.BytesType)
			b = protowire.AppendString(b, s)
		}
	}
	b = appendVarint(b, 20, int64(a.Type))
	return b
}

func (v *ValueInfo) marshal() []byte {
	var shape []byte
	for _, d := range v.Dims {
		var db []byte
		if d.Param != "" {
			db = appendString(db, 2, d.Param)
		} else {
			db = appendVarint(db, 1, d.Value)
		}
		shape = appendMessage(shape, 1, db)
	}
	var tensor []byte
	tensor = appendVarint(tensor, 1, int64(v.ElemType))
	tensor = appendMessage(tensor, 2, shape)
	var typ []byte
	typ = appendMessage(typ, 1, tensor)

	var b []byte
	b = appendString(b, 1, v.Name)
	b = appendMessage(b, 2, typ)
	return b
}

// ---------------------------
// Decoding
// ---------------------------

var errTruncated = errors.New("onnx: truncated message")

// field is one decoded field. Scalar values land in v, length-delimited
// payloads in raw.
type field struct {
	num protowire.Number
	typ protowire.Type
	v   uint64
	raw []byte
}

// fields splits b into its top-level fields.
func fields(b []byte) ([]field, error) {
	var out []field
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		b = b[n:]
		f := field{num: num, typ: typ}
		switch typ {
		case protowire.VarintType:
			f.v, n = protowire.ConsumeVarint(b)
		case protowire.Fixed32Type:
			var v uint32
			v, n = protowire.ConsumeFixed32(b)
			f.v = uint64(v)
		case protowire.Fixed64Type:
			f.v, n = protowire.ConsumeFixed64(b)
		case protowire.BytesType:
			f.raw, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		b = b[n:]
		out = append(out, f)
	}
	return out, nil
}

// Unmarshal decodes a binary ModelProto. Fields outside the supported
// subset are skipped.
func Unmarshal(b []byte) (*Model, error) {
	fs, err := fields(b)
	if err != nil {
		return nil, fmt.Errorf("onnx: model: %w", err)
	}
	m := &Model{}
	for _, f := range fs {
		switch f.num {
		case 1:
			m.IRVersion = int64(f.v)
		case 2:
			m.ProducerName = string(f.raw)
		case 3:
			m.ProducerVersion = string(f.raw)
		case 4:
			m.Domain = string(f.raw)
		case 5:
			m.ModelVersion = int64(f.v)
		case 6:
			m.DocString = string(f.raw)
		case 7:
			if err := m.Graph.unmarshal(f.raw); err != nil {
				return nil, err
			}
		case 8:
			sub, err := fields(f.raw)
			if err != nil {
				return nil, fmt.Errorf("onnx: opset: %w", err)
			}
			var o OperatorSet
			for _, sf := range sub {
				switch sf.num {
				case 1:
					o.Domain = string(sf.raw)
				case 2:
					o.Version = int64(sf.v)
				}
			}
			m.Opsets = append(m.Opsets, o)
		case 14:
			sub, err := fields(f.raw)
			if err != nil {
				return nil, fmt.Errorf("onnx: metadata: %w", err)
			}
			var kv KeyValue
			for _, sf := range sub {
				switch sf.num {
				case 1:
					kv.Key = string(sf.raw)
				case 2:
					kv.Value = string(sf.raw)
				}
			}
			m.Metadata = append(m.Metadata, kv)
		}
	}
	return m, nil
}

func (g *Graph) unmarshal(b []byte) error {
	fs, err := fields(b)
	if err != nil {
		return fmt.Errorf("onnx: graph: %w", err)
	}
	for _, f := range fs {
		switch f.num {
		case 1:
			var n Node
			if err := n.unmarshal(f.raw); err != nil {
				return err
			}
			g.Nodes = append(g.Nodes, n)
		case 2:
			g.Name = string(f.raw)
		case 11, 12:
			var v ValueInfo
			if err := v.unmarshal(f.raw); err != nil {
				return err
			}
			if f.num == 11 {
				g.Inputs = append(g.Inputs, v)
			} else {
				g.Outputs = append(g.Outputs, v)
			}
		}
	}
	return nil
}

func (n *Node) unmarshal(b []byte) error {
	fs, err := fields(b)
	if err != nil {
		return fmt.Errorf("onnx: node: %w", err)
	}
	for _, f := range fs {
		switch f.num {
		case 1:
			n.Inputs = append(n.Inputs, string(f.raw))
		case 2:
			n.Outputs = append(n.Outputs, string(f.raw))
		case 3:
			n.Name = string(f.raw)
		case 4:
			n.OpType = string(f.raw)
		case 5:
			var a Attribute
			if err := a.unmarshal(f.raw); err != nil {
				return fmt.Errorf("onnx: node %q: %w", n.Name, err)
			}
			n.Attributes = append(n.Attributes, a)
		case 7:
			n.Domain = string(f.raw)
		}
	}
	return nil
}

func (a *Attribute) unmarshal(b []byte) error {
	fs, err := fields(b)
	if err != nil {
		return fmt.Errorf("attribute: %w", err)
	}
	for _, f := range fs {
		switch f.num {
		case 1:
			a.Name = string(f.raw)
		case 2:
			a.F = math.Float32frombits(uint32(f.v))
		case 3:
			a.I = int64(f.v)
		case 4:
			a.S = string(f.raw)
		case 7:
			if f.typ == protowire.BytesType {
				floats, err := unpackFixed32(f.raw)
				if err != nil {
					return fmt.Errorf("attribute %q: %w", a.Name, err)
				}
				a.Floats = append(a.Floats, floats...)
			} else {
				a.Floats = append(a.Floats, math.Float32frombits(uint32(f.v)))
			}
		case 8:
			if f.typ == protowire.BytesType {
				ints, err := unpackVarint(f.raw)
				if err != nil {
					return fmt.Errorf("attribute %q: %w", a.Name, err)
				}
				a.Ints = append(a.Ints, ints...)
			} else {
				a.Ints = append(a.Ints, int64(f.v))
			}
		case 9:
			a.Strings = append(a.Strings, string(f.raw))
		case 20:
			a.Type = AttributeType(f.v)
		}
	}
	return nil
}

func (v *ValueInfo) unmarshal(b []byte) error {
	fs, err := fields(b)
	if err != nil {
		return fmt.Errorf("onnx: value info: %w", err)
	}
	for _, f := range fs {
		switch f.num {
		case 1:
			v.Name = string(f.raw)
		case 2:
			if err := v.unmarshalType(f.raw); err != nil {
				return fmt.Errorf("onnx: value info %q: %w", v.Name, err)
			}
		}
	}
	return nil
}

func (v *ValueInfo) unmarshalType(b []byte) error {
	typ, err := fields(b)
	if err != nil {
		return err
	}
	for _, tf := range typ {
		if tf.num != 1 {
			continue
		}
		tensor, err := fields(tf.raw)
		if err != nil {
			return err
		}
		for _, f := range tensor {
			switch f.num {
			case 1:
				v.ElemType = int32(f.v)
			case 2:
				shape, err := fields(f.raw)
				if err != nil {
					return err
				}
				for _, sf := range shape {
					if sf.num != 1 {
						continue
					}
					dim, err := fields(sf.raw)
					if err != nil {
						return err
					}
					var d Dim
					for _, df := range dim {
						switch df.num {
						case 1:
							d.Value = int64(df.v)
						case 2:
							d.Param = string(df.raw)
						}
					}
					v.Dims = append(v.Dims, d)
				}
			}
		}
	}
	return nil
}

func unpackFixed32(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, errTruncated
	}
	out := make([]float32, 0, len(b)/4)
	for len(b) > 0 {
		v, n := protowire.ConsumeFixed32(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		out = append(out, math.Float32frombits(v))
		b = b[n:]
	}
	return out, nil
}

func unpackVarint(b []byte) ([]int64, error) {
	var out []int64
	for len(b) > 0 {
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		out = append(out, int64(v))
		b = b[n:]
	}
	return out, nil
}
