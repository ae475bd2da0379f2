package cluster

import (
	"reflect"
	"testing"
	"time"
)

func TestFilterReserved(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"empty", nil, []string{}},
		{"only reserved", []string{"admin", "local", "config"}, []string{}},
		{"keeps order", []string{"caseB", "admin", "caseA", "config", "local", "caseC"}, []string{"caseB", "caseA", "caseC"}},
		{"case sensitive", []string{"Admin", "LOCAL"}, []string{"Admin", "LOCAL"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterReserved(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("FilterReserved(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	c := New(Config{URI: "mongodb://localhost:27017"})
	if c.cfg.Collection != "reports" {
		t.Errorf("Collection = %q, want %q", c.cfg.Collection, "reports")
	}
	if c.cfg.ConnectTimeout != 10*time.Second {
		t.Errorf("ConnectTimeout = %v, want 10s", c.cfg.ConnectTimeout)
	}

	opts := c.clientOptions()
	if opts.BSONOptions == nil || !opts.BSONOptions.DefaultDocumentM {
		t.Error("nested documents should decode as maps")
	}
	if opts.ConnectTimeout == nil || *opts.ConnectTimeout != 10*time.Second {
		t.Errorf("client ConnectTimeout = %v, want 10s", opts.ConnectTimeout)
	}
}
