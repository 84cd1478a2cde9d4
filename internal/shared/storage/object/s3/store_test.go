package s3

import "testing"

func TestApplyPrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		prefix string
		key    string
		want   string
	}{
		{name: "no prefix", prefix: "", key: "cvs/file.pdf", want: "cvs/file.pdf"},
		{name: "simple prefix", prefix: "root", key: "cvs/file.pdf", want: "root/cvs/file.pdf"},
		{name: "prefix trailing slash", prefix: "root/", key: "cvs/file.pdf", want: "root/cvs/file.pdf"},
		{name: "prefix and key slashes", prefix: "/root/", key: "/cvs/file.pdf", want: "root/cvs/file.pdf"},
		{name: "nested prefix", prefix: "root/sub", key: "cvs/file.pdf", want: "root/sub/cvs/file.pdf"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := applyPrefix(tt.prefix, tt.key); got != tt.want {
				t.Fatalf("applyPrefix(%q, %q) = %q, want %q", tt.prefix, tt.key, got, tt.want)
			}
		})
	}
}

func TestNormalizePrefix(t *testing.T) {
	t.Parallel()

	if got := normalizePrefix("  /uploads/ "); got != "uploads" {
		t.Fatalf("normalizePrefix = %q", got)
	}
	if got := normalizePrefix(""); got != "" {
		t.Fatalf("normalizePrefix empty = %q", got)
	}
}
