package loam

import (
	"testing"
	"time"
)

func TestLimiterAllowsUnderMax(t *testing.T) {
	l := newLoginLimiter(3, time.Minute)
	for i := 0; i < 3; i++ {
		if !l.check("1.2.3.4") {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
		l.record("1.2.3.4")
	}
	if l.check("1.2.3.4") {
		t.Error("attempt over the limit should be blocked")
	}
}

func TestLimiterIsolatesIPs(t *testing.T) {
	l := newLoginLimiter(1, time.Minute)
	l.record("10.0.0.1")
	if l.check("10.0.0.1") {
		t.Error("first IP should be blocked")
	}
	if !l.check("10.0.0.2") {
		t.Error("other IPs should be unaffected")
	}
}

func TestLimiterWindowExpiry(t *testing.T) {
	l := newLoginLimiter(1, 10*time.Millisecond)
	l.record("10.0.0.1")
	if l.check("10.0.0.1") {
		t.Error("should be blocked inside the window")
	}
	time.Sleep(20 * time.Millisecond)
	if !l.check("10.0.0.1") {
		t.Error("should be allowed after the window passes")
	}
}

func TestLimiterCheckDoesNotRecord(t *testing.T) {
	l := newLoginLimiter(2, time.Minute)
	for i := 0; i < 10; i++ {
		if !l.check("10.0.0.1") {
			t.Fatal("check alone must not consume the budget")
		}
	}
}
