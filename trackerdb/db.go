package trackerdb

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
)

// Writer serializes a sequence of tagged records to an underlying stream.
// The format has no index: Open loads every record into memory and looks
// records up by key, so the order they are written in does not matter.
type Writer struct {
	w   *bufio.Writer
	err error
}

// NewWriter wraps w, ready to accept Put* calls. Flush must be called to
// write buffered output.
func NewWriter(w io.Writer) *Writer {
	bw := bufio.NewWriter(w)
	bw.Write(magic[:])

	return &Writer{w: bw}
}

// CreateFile opens path for writing and returns a Writer over it, along
// with the *os.File so the caller can Close it once Writer.Flush returns
// no error.
func CreateFile(path string) (*Writer, *os.File, error) {
	f, err := os.Create(path)

	if err != nil {
		return nil, nil, fmt.Errorf("trackerdb: creating %s: %w", path, err)
	}

	return NewWriter(f), f, nil
}

func (w *Writer) putHeader(key string, k kind, payloadLen int) {
	if w.err != nil {
		return
	}

	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(key)))

	if _, err := w.w.Write(lenBuf[:]); err != nil {
		w.err = err
		return
	}

	if _, err := w.w.WriteString(key); err != nil {
		w.err = err
		return
	}

	if err := w.w.WriteByte(byte(k)); err != nil {
		w.err = err
		return
	}

	var payloadLenBuf [8]byte
	binary.LittleEndian.PutUint64(payloadLenBuf[:], uint64(payloadLen))

	if _, err := w.w.Write(payloadLenBuf[:]); err != nil {
		w.err = err
	}
}

// PutInt writes an integer-valued record.
func (w *Writer) PutInt(key string, v int) {
	w.putHeader(key, kindInt, 8)

	if w.err != nil {
		return
	}

	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(int64(v)))
	_, w.err = w.w.Write(buf[:])
}

// PutFloat64 writes a floating-point record.
func (w *Writer) PutFloat64(key string, v float64) {
	w.putHeader(key, kindFloat64, 8)

	if w.err != nil {
		return
	}

	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
	_, w.err = w.w.Write(buf[:])
}

// PutString writes a UTF-8 string record.
func (w *Writer) PutString(key, v string) {
	w.putHeader(key, kindString, len(v))

	if w.err != nil {
		return
	}

	_, w.err = w.w.WriteString(v)
}

// PutMatrix writes a raw row-major matrix record.
func (w *Writer) PutMatrix(key string, m Matrix) {
	payload := 4 + 4 + 4 + len(m.Data)
	w.putHeader(key, kindMatrix, payload)

	if w.err != nil {
		return
	}

	var head [12]byte
	binary.LittleEndian.PutUint32(head[0:4], uint32(m.Rows))
	binary.LittleEndian.PutUint32(head[4:8], uint32(m.Cols))
	binary.LittleEndian.PutUint32(head[8:12], uint32(m.ElemSize))

	if _, err := w.w.Write(head[:]); err != nil {
		w.err = err
		return
	}

	_, w.err = w.w.Write(m.Data)
}

// PutKeypoints writes a keypoint-list record.
func (w *Writer) PutKeypoints(key string, kps []Keypoint) {
	w.putHeader(key, kindKeypoints, 4+len(kps)*40)

	if w.err != nil {
		return
	}

	var countBuf [4]byte
	binary.LittleEndian.PutUint32(countBuf[:], uint32(len(kps)))

	if _, err := w.w.Write(countBuf[:]); err != nil {
		w.err = err
		return
	}

	for _, kp := range kps {
		var buf [40]byte
		binary.LittleEndian.PutUint64(buf[0:8], math.Float64bits(kp.X))
		binary.LittleEndian.PutUint64(buf[8:16], math.Float64bits(kp.Y))
		binary.LittleEndian.PutUint64(buf[16:24], math.Float64bits(kp.Size))
		binary.LittleEndian.PutUint64(buf[24:32], math.Float64bits(kp.Angle))
		binary.LittleEndian.PutUint64(buf[32:40], math.Float64bits(kp.Response))

		if _, err := w.w.Write(buf[:]); err != nil {
			w.err = err
			return
		}
	}
}

// PutPoints writes a point-list record.
func (w *Writer) PutPoints(key string, pts []Point) {
	w.putHeader(key, kindPoints, 4+len(pts)*16)

	if w.err != nil {
		return
	}

	var countBuf [4]byte
	binary.LittleEndian.PutUint32(countBuf[:], uint32(len(pts)))

	if _, err := w.w.Write(countBuf[:]); err != nil {
		w.err = err
		return
	}

	for _, p := range pts {
		var buf [16]byte
		binary.LittleEndian.PutUint64(buf[0:8], math.Float64bits(p.X))
		binary.LittleEndian.PutUint64(buf[8:16], math.Float64bits(p.Y))

		if _, err := w.w.Write(buf[:]); err != nil {
			w.err = err
			return
		}
	}
}

// Flush writes any buffered output, returning the first error encountered
// by any Put call or by the flush itself.
func (w *Writer) Flush() error {
	if w.err != nil {
		return fmt.Errorf("trackerdb: writing record: %w", w.err)
	}

	if err := w.w.Flush(); err != nil {
		return fmt.Errorf("trackerdb: flushing: %w", err)
	}

	return nil
}

// record is a single decoded-header, undecoded-payload entry loaded from
// disk.
type record struct {
	kind    kind
	payload []byte
}

// DB is an in-memory, read-only view of a trackable database file, loaded
// in full by Open.
type DB struct {
	records map[string]record
}

// Open reads and indexes every record in path.
func Open(path string) (*DB, error) {
	f, err := os.Open(path)

	if err != nil {
		return nil, fmt.Errorf("trackerdb: opening %s: %w", path, err)
	}

	defer f.Close()

	return load(f, path)
}

func load(r io.Reader, path string) (*DB, error) {
	br := bufio.NewReader(r)

	var got [8]byte

	if _, err := io.ReadFull(br, got[:]); err != nil {
		return nil, fmt.Errorf("trackerdb: reading %s header: %w", path, err)
	}

	if got != magic {
		return nil, fmt.Errorf("trackerdb: %s is not a trackable database", path)
	}

	db := &DB{records: make(map[string]record)}

	for {
		var lenBuf [4]byte

		_, err := io.ReadFull(br, lenBuf[:])

		if err == io.EOF {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("trackerdb: reading %s: %w", path, err)
		}

		keyLen := binary.LittleEndian.Uint32(lenBuf[:])
		keyBuf := make([]byte, keyLen)

		if _, err := io.ReadFull(br, keyBuf); err != nil {
			return nil, fmt.Errorf("trackerdb: reading %s: %w", path, err)
		}

		kindByte, err := br.ReadByte()

		if err != nil {
			return nil, fmt.Errorf("trackerdb: reading %s: %w", path, err)
		}

		var payloadLenBuf [8]byte

		if _, err := io.ReadFull(br, payloadLenBuf[:]); err != nil {
			return nil, fmt.Errorf("trackerdb: reading %s: %w", path, err)
		}

		payloadLen := binary.LittleEndian.Uint64(payloadLenBuf[:])
		payload := make([]byte, payloadLen)

		if _, err := io.ReadFull(br, payload); err != nil {
			return nil, fmt.Errorf("trackerdb: reading %s: %w", path, err)
		}

		db.records[string(keyBuf)] = record{kind: kind(kindByte), payload: payload}
	}

	return db, nil
}

// Has reports whether key is present.
func (db *DB) Has(key string) bool {
	_, ok := db.records[key]
	return ok
}

// GetInt reads an integer-valued record.
func (db *DB) GetInt(key string) (int, error) {
	rec, err := db.require(key, kindInt)

	if err != nil {
		return 0, err
	}

	return int(int64(binary.LittleEndian.Uint64(rec.payload))), nil
}

// GetFloat64 reads a floating-point record.
func (db *DB) GetFloat64(key string) (float64, error) {
	rec, err := db.require(key, kindFloat64)

	if err != nil {
		return 0, err
	}

	return math.Float64frombits(binary.LittleEndian.Uint64(rec.payload)), nil
}

// GetString reads a string record.
func (db *DB) GetString(key string) (string, error) {
	rec, err := db.require(key, kindString)

	if err != nil {
		return "", err
	}

	return string(rec.payload), nil
}

// GetMatrix reads a matrix record.
func (db *DB) GetMatrix(key string) (Matrix, error) {
	rec, err := db.require(key, kindMatrix)

	if err != nil {
		return Matrix{}, err
	}

	if len(rec.payload) < 12 {
		return Matrix{}, fmt.Errorf("trackerdb: %s: truncated matrix header", key)
	}

	rows := int(binary.LittleEndian.Uint32(rec.payload[0:4]))
	cols := int(binary.LittleEndian.Uint32(rec.payload[4:8]))
	elemSize := int(binary.LittleEndian.Uint32(rec.payload[8:12]))
	data := rec.payload[12:]

	return Matrix{Rows: rows, Cols: cols, ElemSize: elemSize, Data: data}, nil
}

// GetKeypoints reads a keypoint-list record.
func (db *DB) GetKeypoints(key string) ([]Keypoint, error) {
	rec, err := db.require(key, kindKeypoints)

	if err != nil {
		return nil, err
	}

	if len(rec.payload) < 4 {
		return nil, fmt.Errorf("trackerdb: %s: truncated keypoint list", key)
	}

	count := binary.LittleEndian.Uint32(rec.payload[0:4])
	out := make([]Keypoint, count)
	off := 4

	for i := range out {
		if off+40 > len(rec.payload) {
			return nil, fmt.Errorf("trackerdb: %s: truncated keypoint %d", key, i)
		}

		buf := rec.payload[off : off+40]
		out[i] = Keypoint{
			X:        math.Float64frombits(binary.LittleEndian.Uint64(buf[0:8])),
			Y:        math.Float64frombits(binary.LittleEndian.Uint64(buf[8:16])),
			Size:     math.Float64frombits(binary.LittleEndian.Uint64(buf[16:24])),
			Angle:    math.Float64frombits(binary.LittleEndian.Uint64(buf[24:32])),
			Response: math.Float64frombits(binary.LittleEndian.Uint64(buf[32:40])),
		}
		off += 40
	}

	return out, nil
}

// GetPoints reads a point-list record.
func (db *DB) GetPoints(key string) ([]Point, error) {
	rec, err := db.require(key, kindPoints)

	if err != nil {
		return nil, err
	}

	if len(rec.payload) < 4 {
		return nil, fmt.Errorf("trackerdb: %s: truncated point list", key)
	}

	count := binary.LittleEndian.Uint32(rec.payload[0:4])
	out := make([]Point, count)
	off := 4

	for i := range out {
		if off+16 > len(rec.payload) {
			return nil, fmt.Errorf("trackerdb: %s: truncated point %d", key, i)
		}

		buf := rec.payload[off : off+16]
		out[i] = Point{
			X: math.Float64frombits(binary.LittleEndian.Uint64(buf[0:8])),
			Y: math.Float64frombits(binary.LittleEndian.Uint64(buf[8:16])),
		}
		off += 16
	}

	return out, nil
}

func (db *DB) require(key string, want kind) (record, error) {
	rec, ok := db.records[key]

	if !ok {
		return record{}, fmt.Errorf("trackerdb: missing key %q", key)
	}

	if rec.kind != want {
		return record{}, fmt.Errorf("trackerdb: key %q is %s, not %s", key, rec.kind, want)
	}

	return rec, nil
}
