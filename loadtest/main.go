package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"room-relay/internal/chat"
	"room-relay/internal/relayclient"
	"room-relay/internal/user"
)

type stats struct {
	connected atomic.Int64
	sent      atomic.Int64
	received  atomic.Int64
	failed    atomic.Int64
}

func main() {
	url := flag.String("url", "ws://localhost:3500/ws", "relay websocket URL")
	users := flag.Int("users", 100, "number of concurrent users")
	rooms := flag.Int("rooms", 10, "number of rooms the users are spread over")
	msgs := flag.Int("msgs", 20, "messages sent per user")
	interval := flag.Duration("interval", 10*time.Millisecond, "pause between messages")
	drain := flag.Duration("drain", 2*time.Second, "how long to keep reading after the last send")
	flag.Parse()

	if *rooms < 1 {
		*rooms = 1
	}

	log.Printf("🔥 STARTING STRESS TEST: %d users in %d rooms, %d messages each...", *users, *rooms, *msgs)
	runID := uuid.NewString()[:8]
	st := &stats{}
	start := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < *users; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			u := user.User{UserID: fmt.Sprintf("lt-%s-%d", runID, n), UserName: fmt.Sprintf("user_%d", n)}
			roomID := fmt.Sprintf("lt-%s-room-%d", runID, n%*rooms)
			runUser(*url, u, roomID, *msgs, *interval, *drain, st)
		}(i)
	}
	wg.Wait()

	elapsed := time.Since(start)
	log.Printf("✅ LOAD TEST COMPLETE in %s", elapsed.Round(time.Millisecond))
	log.Printf("connected=%d sent=%d received=%d failed=%d",
		st.connected.Load(), st.sent.Load(), st.received.Load(), st.failed.Load())
	if secs := elapsed.Seconds(); secs > 0 {
		log.Printf("throughput: %.0f msgs/s sent, %.0f events/s delivered",
			float64(st.sent.Load())/secs, float64(st.received.Load())/secs)
	}
}

func runUser(url string, u user.User, roomID string, msgCount int, interval, drain time.Duration, st *stats) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	c, err := relayclient.Dial(ctx, url)
	cancel()
	if err != nil {
		log.Printf("❌ WS Connect Fail [%s]: %v", u.UserName, err)
		st.failed.Add(1)
		return
	}
	defer c.Close()

	if err := c.Auth(u, roomID); err != nil {
		log.Printf("❌ Auth Fail [%s]: %v", u.UserName, err)
		st.failed.Add(1)
		return
	}

	joinCtx, joinCancel := context.WithTimeout(context.Background(), 10*time.Second)
	_, err = c.Next(joinCtx, func(ev chat.Event) bool {
		return ev.Type == chat.EventJoin && ev.User.UserID == u.UserID
	})
	joinCancel()
	if err != nil {
		log.Printf("❌ Join Fail [%s]: %v", u.UserName, err)
		st.failed.Add(1)
		return
	}
	st.connected.Add(1)

	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		for ev := range c.Events() {
			if ev.Type == chat.EventMessage {
				st.received.Add(1)
			}
		}
	}()

	for i := 0; i < msgCount; i++ {
		if err := c.SetTyping(true); err != nil {
			break
		}
		if err := c.SendMessage(fmt.Sprintf("LoadTest Msg %d from %s", i, u.UserName)); err != nil {
			log.Printf("❌ Send Fail [%s]: %v", u.UserName, err)
			st.failed.Add(1)
			break
		}
		st.sent.Add(1)
		if err := c.SetTyping(false); err != nil {
			break
		}
		time.Sleep(interval)
	}

	time.Sleep(drain)
	c.Close()
	<-readDone
}
