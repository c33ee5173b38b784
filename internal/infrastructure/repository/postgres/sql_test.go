package postgres

import (
	"fmt"
	"testing"

	"github.com/lib/pq"
)

func TestNeedsUnpreparedRetry(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "pq invalid statement name", err: &pq.Error{Code: "26000", Message: "unnamed prepared statement does not exist"}, want: true},
		{name: "pq bind mismatch", err: &pq.Error{Code: "08P01", Message: `bind message supplies 2 parameters, but prepared statement "" requires 1`}, want: true},
		{name: "pq other protocol violation", err: &pq.Error{Code: "08P01", Message: "unexpected message type"}, want: false},
		{name: "pq undefined table", err: &pq.Error{Code: "42P01", Message: "relation fpl_snapshots does not exist"}, want: false},
		{name: "wrapped pq error", err: fmt.Errorf("get snapshot: %w", &pq.Error{Code: "26000"}), want: true},
		{name: "message only statement missing", err: fakeErr("pq: unnamed prepared statement does not exist (26000)"), want: true},
		{name: "message only bind mismatch", err: fakeErr(`pq: bind message supplies 2 parameters, but prepared statement "" requires 1 (08P01)`), want: true},
		{name: "unrelated", err: fakeErr("pq: relation fpl_snapshots does not exist"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := needsUnpreparedRetry(tt.err); got != tt.want {
				t.Fatalf("needsUnpreparedRetry(%v)=%v want=%v", tt.err, got, tt.want)
			}
		})
	}
}

func TestQuoteLiteral(t *testing.T) {
	got := quoteLiteral("entry_picks_o'hara_gw5")
	if got != "'entry_picks_o''hara_gw5'" {
		t.Fatalf("unexpected quoted literal: %s", got)
	}
}

type fakeErr string

func (e fakeErr) Error() string { return string(e) }
