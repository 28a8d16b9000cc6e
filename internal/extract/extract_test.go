package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"strings"
	"testing"
)

func buildDocx(t *testing.T, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("create zip entry: %v", err)
	}
	xml := `<?xml version="1.0"?><w:document><w:body><w:p><w:r><w:t>` + body + `</w:t></w:r></w:p></w:body></w:document>`
	if _, err := w.Write([]byte(xml)); err != nil {
		t.Fatalf("write zip entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func TestExtractTextFromBytes_ZipDocxNormalizes(t *testing.T) {
	data := buildDocx(t, "Vehicle Title 2019 Honda")

	text, err := ExtractTextFromBytes(context.Background(), data, "application/zip", "title.docx")
	if err != nil {
		t.Fatalf("expected docx to extract from zip mime, got error: %v", err)
	}
	if !strings.Contains(text, "Vehicle Title 2019 Honda") {
		t.Fatalf("extracted text missing body: %q", text)
	}
}

func TestExtractTextFromBytes_PlainTextPassthrough(t *testing.T) {
	text, err := ExtractTextFromBytes(context.Background(), []byte("policy number 42"), "text/plain; charset=utf-8", "policy.txt")
	if err != nil {
		t.Fatalf("plain text extract: %v", err)
	}
	if text != "policy number 42" {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestExtractTextFromBytes_ImageYieldsEmpty(t *testing.T) {
	text, err := ExtractTextFromBytes(context.Background(), []byte{0xFF, 0xD8, 0xFF}, "image/jpeg", "card.jpg")
	if err != nil {
		t.Fatalf("image extract: %v", err)
	}
	if text != "" {
		t.Fatalf("expected empty text for image, got %q", text)
	}
}

func TestExtractTextFromBytes_RealZipRejected(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("notes.txt")
	if err != nil {
		t.Fatalf("create zip entry: %v", err)
	}
	if _, err := w.Write([]byte("hello")); err != nil {
		t.Fatalf("write zip entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}

	_, err = ExtractTextFromBytes(context.Background(), buf.Bytes(), "application/zip", "notes.zip")
	if err == nil {
		t.Fatal("expected unsupported mime error for zip")
	}
	if !strings.Contains(err.Error(), "unsupported mime type: application/zip") {
		t.Fatalf("unexpected error: %v", err)
	}
}
