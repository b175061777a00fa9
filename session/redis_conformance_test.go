package session_test

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/authcore/clock"
	"github.com/MrEthical07/authcore/internal/storetest"
	"github.com/MrEthical07/authcore/session"
)

func TestRedisStoreConformance(t *testing.T) {
	storetest.RunSessionStore(t, func(t *testing.T) session.Store {
		mr := miniredis.RunT(t)
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { rdb.Close() })
		return session.NewRedisStore(rdb, "conf", session.WithClock(clock.NewFake(storetest.Base)))
	})
}
