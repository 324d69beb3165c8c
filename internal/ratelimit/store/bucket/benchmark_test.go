package bucket

import (
	"context"
	"fmt"
	"testing"
	"time"
)

// BenchmarkAllow measures single-threaded throughput on one hot key.
func BenchmarkAllow(b *testing.B) {
	store := NewMemoryStore()
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = store.Allow(ctx, "bench-key", 1000, time.Minute)
	}
}

// BenchmarkAllow_Parallel measures concurrent throughput on one hot key,
// the worst case for the store's single mutex.
func BenchmarkAllow_Parallel(b *testing.B) {
	store := NewMemoryStore()
	ctx := context.Background()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_, _ = store.Allow(ctx, "bench-key", 1000, time.Minute)
		}
	})
}

// BenchmarkAllow_HighCardinality measures throughput across many unique
// per-IP keys, the shape production traffic actually has.
func BenchmarkAllow_HighCardinality(b *testing.B) {
	store := NewMemoryStore()
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := fmt.Sprintf("rl:read:10.0.%d.%d", (i/256)%256, i%256)
		_, _ = store.Allow(ctx, key, 100, time.Minute)
	}
}
