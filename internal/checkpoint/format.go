package checkpoint

import (
	"bufio"
	"encoding/binary"
	"io"
	"sort"

	"github.com/golang/snappy"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

var magic = [4]byte{'G', 'Z', 'C', 'K'}

const formatVersion uint16 = 1

// WriteTensors encodes named matrices as a snappy stream. Tensors are
// written in name order so identical state yields identical bytes.
//
// Layout: magic, version (u16), count (u32), then per tensor a u16 name
// length, the name, a u64 payload length and the gonum binary encoding.
func WriteTensors(w io.Writer, tensors map[string]*mat.Dense) error {
	sw := snappy.NewBufferedWriter(w)
	bw := bufio.NewWriter(sw)

	names := make([]string, 0, len(tensors))
	for name := range tensors {
		names = append(names, name)
	}
	sort.Strings(names)

	if _, err := bw.Write(magic[:]); err != nil {
		return errors.Wrap(err, "write header")
	}
	if err := binary.Write(bw, binary.LittleEndian, formatVersion); err != nil {
		return errors.Wrap(err, "write header")
	}
	if err := binary.Write(bw, binary.LittleEndian, uint32(len(names))); err != nil {
		return errors.Wrap(err, "write header")
	}
	for _, name := range names {
		payload, err := tensors[name].MarshalBinary()
		if err != nil {
			return errors.Wrapf(err, "marshal %s", name)
		}
		if err := binary.Write(bw, binary.LittleEndian, uint16(len(name))); err != nil {
			return errors.Wrapf(err, "write %s", name)
		}
		if _, err := bw.WriteString(name); err != nil {
			return errors.Wrapf(err, "write %s", name)
		}
		if err := binary.Write(bw, binary.LittleEndian, uint64(len(payload))); err != nil {
			return errors.Wrapf(err, "write %s", name)
		}
		if _, err := bw.Write(payload); err != nil {
			return errors.Wrapf(err, "write %s", name)
		}
	}
	if err := bw.Flush(); err != nil {
		return errors.Wrap(err, "flush tensors")
	}
	return errors.Wrap(sw.Close(), "close snappy stream")
}

// ReadTensors decodes a stream produced by WriteTensors.
func ReadTensors(r io.Reader) (map[string]*mat.Dense, error) {
	br := bufio.NewReader(snappy.NewReader(r))

	var got [4]byte
	if _, err := io.ReadFull(br, got[:]); err != nil {
		return nil, errors.Wrap(err, "read header")
	}
	if got != magic {
		return nil, errors.Errorf("not a checkpoint (magic %q)", got[:])
	}
	var version uint16
	if err := binary.Read(br, binary.LittleEndian, &version); err != nil {
		return nil, errors.Wrap(err, "read header")
	}
	if version != formatVersion {
		return nil, errors.Errorf("unsupported checkpoint version %d", version)
	}
	var count uint32
	if err := binary.Read(br, binary.LittleEndian, &count); err != nil {
		return nil, errors.Wrap(err, "read header")
	}

	tensors := make(map[string]*mat.Dense, count)
	for i := uint32(0); i < count; i++ {
		var nameLen uint16
		if err := binary.Read(br, binary.LittleEndian, &nameLen); err != nil {
			return nil, errors.Wrapf(err, "read tensor %d", i)
		}
		name := make([]byte, nameLen)
		if _, err := io.ReadFull(br, name); err != nil {
			return nil, errors.Wrapf(err, "read tensor %d", i)
		}
		var size uint64
		if err := binary.Read(br, binary.LittleEndian, &size); err != nil {
			return nil, errors.Wrapf(err, "read %s", name)
		}
		payload := make([]byte, size)
		if _, err := io.ReadFull(br, payload); err != nil {
			return nil, errors.Wrapf(err, "read %s", name)
		}
		m := &mat.Dense{}
		if err := m.UnmarshalBinary(payload); err != nil {
			return nil, errors.Wrapf(err, "unmarshal %s", name)
		}
		tensors[string(name)] = m
	}
	return tensors, nil
}
