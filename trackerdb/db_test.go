package trackerdb

import (
	"bytes"
	"testing"
)

func TestWriteReadRoundTrip(t *testing.T) {
	var buf bytes.Buffer

	w := NewWriter(&buf)
	w.PutInt("totalTrackables", 2)
	w.PutInt("featureType", 1)
	w.PutString("trackableFileName0", "marker.png")
	w.PutFloat64("trackableScale0", 1.5)
	w.PutMatrix("trackableImage0", Matrix{Rows: 2, Cols: 2, ElemSize: 1, Data: []byte{1, 2, 3, 4}})
	w.PutKeypoints("trackableFeaturePoints0", []Keypoint{
		{X: 1, Y: 2, Size: 3, Angle: 4, Response: 5},
		{X: 6, Y: 7, Size: 8, Angle: 9, Response: 10},
	})
	w.PutPoints("trackableCornerPoints0", []Point{{X: 0, Y: 0}, {X: 10, Y: 10}})

	if err := w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	db, err := load(&buf, "<memory>")

	if err != nil {
		t.Fatalf("load: %v", err)
	}

	total, err := db.GetInt("totalTrackables")

	if err != nil || total != 2 {
		t.Fatalf("totalTrackables = %d, %v; want 2, nil", total, err)
	}

	name, err := db.GetString("trackableFileName0")

	if err != nil || name != "marker.png" {
		t.Fatalf("trackableFileName0 = %q, %v; want marker.png, nil", name, err)
	}

	scale, err := db.GetFloat64("trackableScale0")

	if err != nil || scale != 1.5 {
		t.Fatalf("trackableScale0 = %v, %v; want 1.5, nil", scale, err)
	}

	m, err := db.GetMatrix("trackableImage0")

	if err != nil {
		t.Fatalf("GetMatrix: %v", err)
	}

	if m.Rows != 2 || m.Cols != 2 || !bytes.Equal(m.Data, []byte{1, 2, 3, 4}) {
		t.Fatalf("matrix round trip mismatch: %+v", m)
	}

	kps, err := db.GetKeypoints("trackableFeaturePoints0")

	if err != nil || len(kps) != 2 || kps[1].Response != 10 {
		t.Fatalf("keypoints round trip mismatch: %+v, %v", kps, err)
	}

	pts, err := db.GetPoints("trackableCornerPoints0")

	if err != nil || len(pts) != 2 || pts[1].X != 10 {
		t.Fatalf("points round trip mismatch: %+v, %v", pts, err)
	}
}

func TestGetWrongKindFails(t *testing.T) {
	var buf bytes.Buffer

	w := NewWriter(&buf)
	w.PutInt("featureType", 0)

	if err := w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	db, err := load(&buf, "<memory>")

	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if _, err := db.GetString("featureType"); err == nil {
		t.Fatal("expected type mismatch error")
	}
}

func TestOpenRejectsBadMagic(t *testing.T) {
	buf := bytes.NewBufferString("not a database at all")

	if _, err := load(buf, "<memory>"); err == nil {
		t.Fatal("expected bad-magic error")
	}
}

func TestMissingKeyFails(t *testing.T) {
	var buf bytes.Buffer

	w := NewWriter(&buf)
	w.PutInt("featureType", 0)

	if err := w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	db, err := load(&buf, "<memory>")

	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if _, err := db.GetInt("totalTrackables"); err == nil {
		t.Fatal("expected missing-key error")
	}
}
