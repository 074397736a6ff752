package upload

import (
	"bytes"
	"io"
	"mime/multipart"
	"strings"
	"testing"
)

func TestEncodeMultipart_RoundTrip(t *testing.T) {
	// Binary payload including CRLF and boundary-ish bytes.
	file := []byte("\x00\x01--binary\r\ncontent\xff\xfe")

	body, boundary := EncodeMultipart(file, "clip.mp4", "video/mp4")

	reader := multipart.NewReader(bytes.NewReader(body), boundary)
	part, err := reader.NextPart()
	if err != nil {
		t.Fatalf("decode part: %v", err)
	}
	if part.FormName() != "file" {
		t.Errorf("form name = %q", part.FormName())
	}
	if part.FileName() != "clip.mp4" {
		t.Errorf("file name = %q", part.FileName())
	}
	if ct := part.Header.Get("Content-Type"); ct != "video/mp4" {
		t.Errorf("content type = %q", ct)
	}
	got, err := io.ReadAll(part)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, file) {
		t.Errorf("payload not byte-identical:\n got %q\nwant %q", got, file)
	}
	if _, err := reader.NextPart(); err != io.EOF {
		t.Errorf("expected exactly one part, next err = %v", err)
	}
}

func TestEncodeMultipart_ExactLength(t *testing.T) {
	file := bytes.Repeat([]byte{0xAB}, 4096)
	body, boundary := EncodeMultipart(file, "blob.bin", "application/octet-stream")

	header := "--" + boundary + "\r\n" +
		`Content-Disposition: form-data; name="file"; filename="blob.bin"` + "\r\n" +
		"Content-Type: application/octet-stream\r\n\r\n"
	trailer := "\r\n--" + boundary + "--\r\n"

	if len(body) != len(header)+len(file)+len(trailer) {
		t.Errorf("body length %d != header %d + file %d + trailer %d",
			len(body), len(header), len(file), len(trailer))
	}
	if !bytes.HasPrefix(body, []byte(header)) {
		t.Error("body does not start with the expected header bytes")
	}
	if !bytes.HasSuffix(body, []byte(trailer)) {
		t.Error("body does not end with the closing boundary and CRLF")
	}
}

func TestEncodeMultipart_FreshBoundaryPerCall(t *testing.T) {
	_, b1 := EncodeMultipart([]byte("x"), "a", "text/plain")
	_, b2 := EncodeMultipart([]byte("x"), "a", "text/plain")
	if b1 == b2 {
		t.Error("boundary should be random per call")
	}
	if !strings.HasPrefix(b1, "----WebKitFormBoundary") {
		t.Errorf("unexpected boundary shape: %q", b1)
	}
}
