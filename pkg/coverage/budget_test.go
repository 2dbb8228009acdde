package coverage

import (
	"sync"
	"testing"
)

func TestRetryBudget(t *testing.T) {
	tests := []struct {
		name     string
		size     int
		takes    int
		wantOK   int
		wantLeft int
	}{
		{"default", 1, 3, 1, 0},
		{"larger", 3, 2, 2, 1},
		{"disabled", 0, 2, 0, 0},
		{"negative", -1, 1, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewRetryBudget(tt.size)
			ok := 0
			for i := 0; i < tt.takes; i++ {
				if b.Take() {
					ok++
				}
			}
			if ok != tt.wantOK {
				t.Errorf("successful takes = %d, want %d", ok, tt.wantOK)
			}
			if b.Remaining() != tt.wantLeft {
				t.Errorf("Remaining() = %d, want %d", b.Remaining(), tt.wantLeft)
			}
			if b.Used() != tt.wantOK {
				t.Errorf("Used() = %d, want %d", b.Used(), tt.wantOK)
			}
		})
	}
}

func TestRetryBudget_Concurrent(t *testing.T) {
	b := NewRetryBudget(5)

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if b.Take() {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if ok != 5 {
		t.Errorf("successful takes = %d, want 5", ok)
	}
	if b.Remaining() != 0 || b.Used() != 5 {
		t.Errorf("Remaining() = %d, Used() = %d", b.Remaining(), b.Used())
	}
}

func TestRetryBudget_Nil(t *testing.T) {
	var b *RetryBudget
	if b.Take() {
		t.Error("nil budget should never yield a token")
	}
	if b.Remaining() != 0 || b.Used() != 0 {
		t.Error("nil budget should report zero")
	}
}
