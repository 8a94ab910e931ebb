package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type exampleStore struct {
	seen map[string]bool
}

func (s *exampleStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if s.seen[key] {
		return false, nil
	}
	s.seen[key] = true
	return true, nil
}

func (s *exampleStore) IdempotencyKey(scope, id string) string {
	return "bay:idempotency:" + scope + ":" + id
}

func (s *exampleStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s.seen, key)
	}
	return nil
}

func ExampleManager_CheckAndMark() {
	ctx := context.Background()
	manager, _ := NewManager(&exampleStore{seen: map[string]bool{}}, time.Hour)
	eventID := uuid.MustParse("6d5aebe0-3556-4b68-960b-72338c07ebd8")

	for i := 0; i < 2; i++ {
		already, _ := manager.CheckAndMark(ctx, "bay-1", eventID)
		if already {
			fmt.Println("duplicate frame dropped")
			continue
		}
		fmt.Println("frame accepted")
	}
	// Output:
	// frame accepted
	// duplicate frame dropped
}
