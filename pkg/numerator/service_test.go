package numerator

import (
	"testing"
	"time"

	corenumerator "docflow/internal/core/numerator"
)

var period = time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

func TestFormat(t *testing.T) {
	tests := []struct {
		name string
		cfg  corenumerator.Config
		num  int64
		want string
	}{
		{"plain", corenumerator.Config{Prefix: "DN"}, 7, "DN-0007"},
		{"year scoped", corenumerator.Config{Prefix: "INV", ScopeYear: true}, 12, "INV-2026-0012"},
		{"custom pad", corenumerator.Config{Prefix: "QUO", PadWidth: 6}, 3, "QUO-000003"},
		{"overflow keeps digits", corenumerator.Config{Prefix: "DN"}, 12345, "DN-12345"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Format(tt.cfg, period, tt.num); got != tt.want {
				t.Errorf("Format() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestParseSuffix(t *testing.T) {
	tests := []struct {
		code string
		want int64
	}{
		{"DN-0007", 7},
		{"INV-2026-0012", 12},
		{"BL0042", 42},
		{"DN-", -1},
		{"legacy", -1},
		{"", -1},
		{"  QUO-0009  ", 9},
	}

	for _, tt := range tests {
		if got := ParseSuffix(tt.code); got != tt.want {
			t.Errorf("ParseSuffix(%q) = %d, want %d", tt.code, got, tt.want)
		}
	}
}

func TestNext_RestartsOnUnparseable(t *testing.T) {
	cfg := corenumerator.Config{Prefix: "DN"}

	if got := Next(cfg, period, ""); got != "DN-0001" {
		t.Errorf("empty history: got %s", got)
	}
	if got := Next(cfg, period, "DN-0041"); got != "DN-0042" {
		t.Errorf("increment: got %s", got)
	}
	if got := Next(cfg, period, "imported-by-hand"); got != "DN-0001" {
		t.Errorf("unparseable: got %s", got)
	}
}

func TestNext_YearScoped(t *testing.T) {
	cfg := corenumerator.Config{Prefix: "INV", ScopeYear: true}

	if got := Next(cfg, period, "INV-2026-0099"); got != "INV-2026-0100" {
		t.Errorf("got %s", got)
	}
}
