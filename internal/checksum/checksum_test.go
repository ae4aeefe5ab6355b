package checksum

import "testing"

func TestSum(t *testing.T) {
	// SHA-256 of the empty input.
	const empty = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got := Sum(nil); got != empty {
		t.Errorf("Sum(nil) = %s", got)
	}
	if len(Sum([]byte("plate"))) != Size {
		t.Errorf("len = %d, want %d", len(Sum([]byte("plate"))), Size)
	}
}

func TestFromNameAndVerify(t *testing.T) {
	data := []byte("plate")
	sum := Sum(data)

	got, ok := FromName("photos/" + sum + ".jpg")
	if !ok || got != sum {
		t.Fatalf("FromName = %q, %v", got, ok)
	}
	if !Verify(data, got) {
		t.Error("Verify should accept matching data")
	}
	if Verify([]byte("other"), got) {
		t.Error("Verify should reject other data")
	}

	for _, name := range []string{"photos/plate.jpg", "photos/" + sum[:10] + ".png", "zz" + sum[2:] + ".gif"} {
		if _, ok := FromName(name); ok {
			t.Errorf("FromName(%q) should not find a sum", name)
		}
	}
}
