package storage

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cognicore/wordtree/pkg/wordtree/modeladapter"
	"github.com/cognicore/wordtree/pkg/wordtree/tree"
)

// Serialize encodes a tree in the in-house binary format: fixed
// little-endian numerics, f32 node floats (the anchor frequency is f64),
// u32 token ids and counts, i32 node indices, strings
// length-prefixed UTF-8. Shape mirrors the node arena directly so decode is
// a single linear pass with no pointer fixups.
func Serialize(t *tree.WordProbabilityTree) []byte {
	var buf bytes.Buffer

	writeString(&buf, t.Anchor)
	writeFloat64(&buf, t.Frq)

	writeInt32(&buf, t.Ana)
	writeInt32(&buf, t.Ola)
	writeInt32(&buf, t.Olr)
	writeInt32(&buf, t.Olx)
	writeInt32(&buf, t.Prf)
	writeInt32(&buf, t.Rch)
	writeInt32(&buf, t.Sln)

	writeUint32(&buf, uint32(len(t.Nodes)))
	for _, n := range t.Nodes {
		writeNode(&buf, n)
	}

	return buf.Bytes()
}

func writeNode(buf *bytes.Buffer, n tree.Node) {
	if n.Empty {
		buf.WriteByte(1)
		return
	}
	buf.WriteByte(0)

	writeFloat32(buf, n.OrgMax)
	writeFloat32(buf, n.ValPrbSum)
	writeUint32(buf, uint32(n.MaxDep))
	writeUint32(buf, uint32(len(n.Entries)))
	for _, e := range n.Entries {
		writeUint32(buf, uint32(e.Token))
		writeFloat32(buf, e.P)
		writeInt32(buf, e.Child)
	}
}

func writeString(buf *bytes.Buffer, s string) {
	writeUint32(buf, uint32(len(s)))
	buf.WriteString(s)
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeInt32(buf *bytes.Buffer, v int32) {
	writeUint32(buf, uint32(v))
}

func writeFloat32(buf *bytes.Buffer, v float32) {
	writeUint32(buf, math.Float32bits(v))
}

func writeFloat64(buf *bytes.Buffer, v float64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
	buf.Write(b[:])
}

// Deserialize decodes the binary format produced by Serialize.
func Deserialize(data []byte) (*tree.WordProbabilityTree, error) {
	r := &reader{data: data}

	anchor, err := r.readString()
	if err != nil {
		return nil, err
	}
	frq, err := r.readFloat64()
	if err != nil {
		return nil, err
	}

	t := &tree.WordProbabilityTree{Anchor: anchor, Frq: frq}
	for _, dst := range []*int32{&t.Ana, &t.Ola, &t.Olr, &t.Olx, &t.Prf, &t.Rch, &t.Sln} {
		v, err := r.readInt32()
		if err != nil {
			return nil, err
		}
		*dst = v
	}

	nodeCount, err := r.readUint32()
	if err != nil {
		return nil, err
	}
	t.Nodes = make([]tree.Node, nodeCount)
	for i := range t.Nodes {
		n, err := r.readNode()
		if err != nil {
			return nil, fmt.Errorf("storage: decoding node %d: %w", i, err)
		}
		t.Nodes[i] = n
	}

	return t, nil
}

type reader struct {
	data []byte
	pos  int
}

func (r *reader) need(n int) error {
	if r.pos+n > len(r.data) {
		return fmt.Errorf("storage: truncated data at offset %d, need %d more bytes", r.pos, n)
	}
	return nil
}

func (r *reader) readUint32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *reader) readInt32() (int32, error) {
	v, err := r.readUint32()
	return int32(v), err
}

func (r *reader) readFloat32() (float32, error) {
	v, err := r.readUint32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

func (r *reader) readFloat64() (float64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.data[r.pos:])
	r.pos += 8
	return math.Float64frombits(v), nil
}

func (r *reader) readString() (string, error) {
	n, err := r.readUint32()
	if err != nil {
		return "", err
	}
	if err := r.need(int(n)); err != nil {
		return "", err
	}
	s := string(r.data[r.pos : r.pos+int(n)])
	r.pos += int(n)
	return s, nil
}

func (r *reader) readNode() (tree.Node, error) {
	if err := r.need(1); err != nil {
		return tree.Node{}, err
	}
	empty := r.data[r.pos]
	r.pos++
	if empty == 1 {
		return tree.Node{Empty: true}, nil
	}

	orgMax, err := r.readFloat32()
	if err != nil {
		return tree.Node{}, err
	}
	valPrbSum, err := r.readFloat32()
	if err != nil {
		return tree.Node{}, err
	}
	maxDep, err := r.readUint32()
	if err != nil {
		return tree.Node{}, err
	}
	entryCount, err := r.readUint32()
	if err != nil {
		return tree.Node{}, err
	}

	entries := make([]tree.Entry, entryCount)
	for i := range entries {
		tok, err := r.readUint32()
		if err != nil {
			return tree.Node{}, err
		}
		p, err := r.readFloat32()
		if err != nil {
			return tree.Node{}, err
		}
		child, err := r.readInt32()
		if err != nil {
			return tree.Node{}, err
		}
		entries[i] = tree.Entry{Token: modeladapter.TokenID(tok), P: p, Child: child}
	}

	return tree.Node{OrgMax: orgMax, ValPrbSum: valPrbSum, MaxDep: int(maxDep), Entries: entries}, nil
}
