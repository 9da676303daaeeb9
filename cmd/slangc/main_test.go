package main

import "testing"

func TestParseTarget(t *testing.T) {
	cases := map[string]bool{
		"spirv": true,
		"glsl":  true,
		"hlsl":  true,
		"dxil":  true,
		"msl":   false,
		"":      false,
	}
	for name, wantOK := range cases {
		_, err := parseTarget(name)
		if (err == nil) != wantOK {
			t.Fatalf("parseTarget(%q): err=%v, want ok=%v", name, err, wantOK)
		}
	}
}
