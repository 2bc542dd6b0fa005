package domain

import "testing"

func TestNormalizePlate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"51G-123.45", "51G12345"},
		{"51g 123 45", "51G12345"},
		{" 29a-111.11 ", "29A11111"},
		{"30E99999", "30E99999"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizePlate(tt.in); got != tt.want {
			t.Errorf("NormalizePlate(%q) = %q, muốn %q", tt.in, got, tt.want)
		}
	}
}

func TestSessionStatusIsTerminal(t *testing.T) {
	terminal := map[SessionStatus]bool{
		SessionParking:     false,
		SessionExitPending: false,
		SessionPaid:        false,
		SessionClosed:      true,
		SessionError:       true,
	}
	for status, want := range terminal {
		if got := status.IsTerminal(); got != want {
			t.Errorf("%s.IsTerminal() = %t, muốn %t", status, got, want)
		}
	}
}
