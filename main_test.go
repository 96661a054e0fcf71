package main

import "testing"

func TestSplitScript(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"basket B; dict d B", "basket B\n dict d B"},
		{`echo "a;b"; echo c`, "echo \"a;b\"\n echo c"},
		{`echo 'x;y'`, `echo 'x;y'`},
		{`echo "say \"hi;\"";print s`, "echo \"say \\\"hi;\\\"\"\nprint s"},
		{`echo a\;b`, `echo a\;b`},
		{"", ""},
	}
	for _, tt := range tests {
		if got := splitScript(tt.in); got != tt.want {
			t.Errorf("splitScript(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
