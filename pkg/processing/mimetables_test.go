package processing

import "testing"

func TestIsPDFMime(t *testing.T) {
	if !isPDFMime("application/pdf") {
		t.Error("expected application/pdf to be a pdf mime")
	}
	if !isPDFMime("application/pdf; charset=binary") {
		t.Error("expected parameterized pdf mime to match")
	}
	if isPDFMime("image/png") {
		t.Error("did not expect image/png to be a pdf mime")
	}
}

func TestIsMailMime(t *testing.T) {
	if !isMailMime("message/rfc822") {
		t.Error("expected message/rfc822 to be a mail mime")
	}
	if isMailMime("application/pdf") {
		t.Error("did not expect application/pdf to be a mail mime")
	}
}

func TestIsImageMime(t *testing.T) {
	for _, m := range []string{"image/png", "image/jpeg", "image/x-icon"} {
		if !isImageMime(m) {
			t.Errorf("expected %q to be an image mime", m)
		}
	}
	if isImageMime("application/pdf") {
		t.Error("did not expect application/pdf to be an image mime")
	}
}

func TestIsConvertible(t *testing.T) {
	if !IsConvertible("application/msword") {
		t.Error("expected application/msword to be convertible")
	}
	if !IsConvertible("application/vnd.openxmlformats-officedocument.wordprocessingml.document") {
		t.Error("expected docx to be convertible")
	}
	if IsConvertible("application/pdf") {
		t.Error("did not expect application/pdf to be convertible (handled by its own path)")
	}
}
