package main

import "testing"

func TestParseArgs(t *testing.T) {
	for _, argv := range [][]string{nil, {"launch"}, {"start", "extra"}} {
		if _, _, err := parseArgs(argv); err == nil {
			t.Fatalf("parseArgs(%q) should fail", argv)
		}
	}
	for _, want := range []string{"start", "stop", "restart"} {
		_, kctx, err := parseArgs([]string{want})
		if err != nil {
			t.Fatalf("parseArgs(%q): %v", want, err)
		}
		if kctx.Command() != want {
			t.Fatalf("command = %q, want %q", kctx.Command(), want)
		}
	}
	args, _, err := parseArgs([]string{"start", "--foreground"})
	if err != nil || !args.Start.Foreground {
		t.Fatalf("foreground flag not parsed: %+v err=%v", args, err)
	}
}
