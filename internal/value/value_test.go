package value

import "testing"

func TestEqual(t *testing.T) {
	cases := []struct {
		name string
		a, b Value
		want bool
	}{
		{"null equals null", Null(), Null(), true},
		{"integers equal", Integer(7), Integer(7), true},
		{"integers differ", Integer(7), Integer(8), false},
		{"text equal", Text("a"), Text("a"), true},
		{"blob byte-for-byte", Blob([]byte{1, 2, 3}), Blob([]byte{1, 2, 3}), true},
		{"blob differs", Blob([]byte{1, 2, 3}), Blob([]byte{1, 2, 4}), false},
		{"kind mismatch", Integer(0), Null(), false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.a.Equal(c.b); got != c.want {
				t.Errorf("Equal() = %v, want %v", got, c.want)
			}
		})
	}
}

func TestBlobCopiesInput(t *testing.T) {
	src := []byte{1, 2, 3}
	v := Blob(src)
	src[0] = 99
	if v.B[0] != 1 {
		t.Errorf("Blob retained an alias to the caller's slice")
	}
}

func TestIsNull(t *testing.T) {
	if !Null().IsNull() {
		t.Error("Null().IsNull() = false")
	}
	if Integer(0).IsNull() {
		t.Error("Integer(0).IsNull() = true")
	}
}
