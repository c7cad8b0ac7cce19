package logger

import "testing"

func TestLoggerBeforeInitIsNoop(t *testing.T) {
	prev := global
	global = nil
	t.Cleanup(func() { global = prev })

	if Logger() == nil {
		t.Fatal("expected non-nil logger before Init")
	}
}

func TestSetLogLevel(t *testing.T) {
	prev := Level()
	t.Cleanup(func() { _ = SetLogLevel(prev) })

	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "debug", want: "debug"},
		{in: "WARN", want: "warn"},
		{in: "", want: "warn"},
		{in: "loud", want: "warn", wantErr: true},
	}
	for _, tc := range tests {
		err := SetLogLevel(tc.in)
		if (err != nil) != tc.wantErr {
			t.Fatalf("SetLogLevel(%q) err = %v, wantErr %v", tc.in, err, tc.wantErr)
		}
		if got := Level(); got != tc.want {
			t.Errorf("after SetLogLevel(%q) level = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestInit(t *testing.T) {
	prev := global
	t.Cleanup(func() { global = prev })

	l, err := Init("error")
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if l != Logger() {
		t.Error("expected Init to install the global logger")
	}
	if _, err := Init("nonsense"); err == nil {
		t.Error("expected error for invalid level")
	}
}
