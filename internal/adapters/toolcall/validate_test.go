package toolcall

import "testing"

func TestValidateActor(t *testing.T) {
	tests := []struct {
		name    string
		actor   string
		wantErr bool
	}{
		{"valid", "alice", false},
		{"trims whitespace", "  bob  ", false},
		{"empty", "", true},
		{"only whitespace", "   ", true},
		{"too long", stringOfLen(129), true},
		{"exactly max length", stringOfLen(128), false},
		{"control character", "ali\x00ce", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateActor(tt.actor)
			if tt.wantErr && err == nil {
				t.Fatalf("expected an error for actor %q", tt.actor)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("expected no error for actor %q, got %v", tt.actor, err)
			}
		})
	}
}

func stringOfLen(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = 'a'
	}
	return string(b)
}
