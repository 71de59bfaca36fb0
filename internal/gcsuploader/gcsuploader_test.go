package gcsuploader

import "testing"

func TestParseURI(t *testing.T) {
	bucket, object, err := ParseURI("gs://cashbook-scans/scans/2026/03/abc-receipt.jpg")
	if err != nil {
		t.Fatal(err)
	}
	if bucket != "cashbook-scans" || object != "scans/2026/03/abc-receipt.jpg" {
		t.Errorf("got %q %q", bucket, object)
	}

	for _, bad := range []string{"", "http://x/y", "gs://bucket-only", "gs://bucket/"} {
		if _, _, err := ParseURI(bad); err == nil {
			t.Errorf("ParseURI(%q): want error", bad)
		}
	}
}

func TestFilename(t *testing.T) {
	if got := Filename("gs://bucket/scans/2026/receipt.jpg"); got != "receipt.jpg" {
		t.Errorf("Filename = %q", got)
	}
	if got := Filename("gs://bucket-only"); got != "bucket-only" {
		t.Errorf("Filename = %q", got)
	}
}
