package htmlsanitize

import "testing"

func TestText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty string", "", ""},
		{"plain text", "Nice proof in section 2", "Nice proof in section 2"},
		{"tags stripped", "<b>bold</b> claim", "bold claim"},
		{"script removed", `<script>alert("x")</script>ok`, "ok"},
		{"link text kept", `see <a href="http://evil.test">this</a>`, "see this"},
		{"whitespace trimmed", "  spaced out \n", "spaced out"},
		{"img dropped entirely", `<img src=x onerror=alert(1)>`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Text(tt.input); got != tt.want {
				t.Errorf("Text(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
