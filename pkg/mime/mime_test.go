package mime

import "testing"

func TestDetectFromName(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{"report.pdf", "application/pdf"},
		{"notice.eml", "message/rfc822"},
		{"photo.JPG", "image/jpeg"},
		{"archive.unknownext", DefaultMime},
		{"noext", DefaultMime},
	}
	for _, c := range cases {
		if got := DetectFromName(c.name); got != c.want {
			t.Errorf("DetectFromName(%q) = %q, want %q", c.name, got, c.want)
		}
	}
}

func TestRegisterMimeOverridesTable(t *testing.T) {
	RegisterMime("custom", "application/x-custom")
	if got := DetectFromName("file.custom"); got != "application/x-custom" {
		t.Errorf("got %q, want application/x-custom", got)
	}
}

func TestExtFor(t *testing.T) {
	cases := []struct {
		mime string
		want string
	}{
		{"application/pdf", "pdf"},
		{"image/jpeg", "jpg"},
		{"application/does-not-exist", "bin"},
	}
	for _, c := range cases {
		if got := ExtFor(c.mime); got != c.want {
			t.Errorf("ExtFor(%q) = %q, want %q", c.mime, got, c.want)
		}
	}
}
