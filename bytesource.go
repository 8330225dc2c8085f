package psd

import (
	"encoding/binary"
	"io"
)

// ByteSource abstracts a random-access byte stream (§4.1). The core
// never assumes more than one logical cursor position at a time and
// every seek is absolute, so a single implementation backed by a slice
// or a caller-supplied vtable covers every call site.
type ByteSource interface {
	// ReadExact reads exactly len(p) bytes, returning a *Error of kind
	// KindStreamEOF on a short read.
	ReadExact(p []byte) error
	// ReadUpTo reads at most len(p) bytes, returning the count read.
	ReadUpTo(p []byte) (int, error)
	// Seek moves the cursor to an absolute offset.
	Seek(offset int64) error
	// Tell returns the current absolute offset.
	Tell() (int64, error)
	// Close releases any resources. The source is owned by the caller,
	// not the Document (§5 "Shared-resource policy").
	Close() error
}

// sliceSource implements ByteSource directly over an in-memory byte
// slice. This is the common case, and the one used internally whenever
// a retained payload is re-read.
type sliceSource struct {
	data []byte
	pos  int64
}

// NewSliceSource returns a ByteSource over a caller-owned byte slice.
// The slice must outlive every read the returned source performs.
func NewSliceSource(data []byte) ByteSource {
	return &sliceSource{data: data}
}

func (s *sliceSource) ReadExact(p []byte) error {
	if s.pos < 0 || s.pos > int64(len(s.data)) {
		return newError(KindStreamInvalid, "seek position out of bounds")
	}
	avail := int64(len(s.data)) - s.pos
	if avail < int64(len(p)) {
		return newError(KindStreamEOF, "short read")
	}
	copy(p, s.data[s.pos:s.pos+int64(len(p))])
	s.pos += int64(len(p))
	return nil
}

func (s *sliceSource) ReadUpTo(p []byte) (int, error) {
	if s.pos < 0 || s.pos > int64(len(s.data)) {
		return 0, newError(KindStreamInvalid, "seek position out of bounds")
	}
	n := copy(p, s.data[s.pos:])
	s.pos += int64(n)
	return n, nil
}

func (s *sliceSource) Seek(offset int64) error {
	if offset < 0 || offset > int64(len(s.data)) {
		return newError(KindStreamSeek, "seek out of bounds")
	}
	s.pos = offset
	return nil
}

func (s *sliceSource) Tell() (int64, error) {
	return s.pos, nil
}

func (s *sliceSource) Close() error {
	return nil
}

// VTable lets a caller supply a custom byte source (e.g. backed by an
// os.File or a network-fetched range) without this package depending
// on any particular I/O package. This is the dynamic-dispatch boundary
// called out in §9.
type VTable struct {
	Read  func(p []byte) (int, error)
	Seek  func(offset int64) error
	Tell  func() (int64, error)
	Close func() error
}

type vtableSource struct {
	vt VTable
}

// NewVTableSource adapts a caller-supplied VTable to ByteSource.
func NewVTableSource(vt VTable) ByteSource {
	return &vtableSource{vt: vt}
}

func (v *vtableSource) ReadExact(p []byte) error {
	n, err := io.ReadFull(readerFunc(v.vt.Read), p)
	if err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return newError(KindStreamEOF, "short read")
		}
		return wrapError(KindStreamRead, "read failed", err)
	}
	_ = n
	return nil
}

func (v *vtableSource) ReadUpTo(p []byte) (int, error) {
	n, err := v.vt.Read(p)
	if err != nil && err != io.EOF {
		return n, wrapError(KindStreamRead, "read failed", err)
	}
	return n, nil
}

func (v *vtableSource) Seek(offset int64) error {
	if err := v.vt.Seek(offset); err != nil {
		return wrapError(KindStreamSeek, "seek failed", err)
	}
	return nil
}

func (v *vtableSource) Tell() (int64, error) {
	off, err := v.vt.Tell()
	if err != nil {
		return 0, wrapError(KindStreamRead, "tell failed", err)
	}
	return off, nil
}

func (v *vtableSource) Close() error {
	if v.vt.Close == nil {
		return nil
	}
	if err := v.vt.Close(); err != nil {
		return wrapError(KindStreamInvalid, "close failed", err)
	}
	return nil
}

type readerFunc func(p []byte) (int, error)

func (f readerFunc) Read(p []byte) (int, error) { return f(p) }

//------------------------//
// Big-endian primitives  //
//------------------------//

func readUint16(s ByteSource) (uint16, error) {
	var buf [2]byte
	if err := s.ReadExact(buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(buf[:]), nil
}

func readUint32(s ByteSource) (uint32, error) {
	var buf [4]byte
	if err := s.ReadExact(buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

func readUint64(s ByteSource) (uint64, error) {
	var buf [8]byte
	if err := s.ReadExact(buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}

func readInt16(s ByteSource) (int16, error) {
	v, err := readUint16(s)
	return int16(v), err
}

func readInt32(s ByteSource) (int32, error) {
	v, err := readUint32(s)
	return int32(v), err
}

func skip(s ByteSource, n int64) error {
	if n <= 0 {
		return nil
	}
	pos, err := s.Tell()
	if err != nil {
		return err
	}
	return s.Seek(pos + n)
}

// readLength reads a 32-bit value in standard form or a 64-bit value in
// large form, failing with KindOutOfRange if the value cannot fit a
// host size index (§4.1 read_length).
func readLength(s ByteSource, large bool) (int64, error) {
	if !large {
		v, err := readUint32(s)
		if err != nil {
			return 0, err
		}
		return int64(v), nil
	}
	v, err := readUint64(s)
	if err != nil {
		return 0, err
	}
	if v > uint64(1)<<62 {
		return 0, newError(KindOutOfRange, "64-bit length does not fit a host size index")
	}
	return int64(v), nil
}
