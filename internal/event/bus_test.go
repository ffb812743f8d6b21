package event

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

// TestPublishDeliversSimEvent 测试模拟事件原样送达订阅者
func TestPublishDeliversSimEvent(t *testing.T) {
	bus := NewBus()
	var got *SimEvent
	bus.Subscribe(EventJumped, func(event any) {
		got = event.(*SimEvent)
	})

	sent := NewSimEvent(KindJumped, 42, mgl32.Vec3{1, 2, 3}, 320, 0)
	bus.Publish(EventJumped, sent)

	if got != sent {
		t.Fatalf("handler 收到 %+v, 期望 %+v", got, sent)
	}
}

// TestPublishNoSubscribers 测试发布无订阅者的事件不会 panic
func TestPublishNoSubscribers(t *testing.T) {
	bus := NewBus()
	bus.Publish(EventFalling, nil)

	var nilBus *Bus
	nilBus.Publish(EventFalling, nil)
}

// TestEventsAreIndependent 测试不同事件名称互不干扰
func TestEventsAreIndependent(t *testing.T) {
	bus := NewBus()
	var jumps, landings int
	bus.Subscribe(EventJumped, func(any) { jumps++ })
	bus.Subscribe(EventLanded, func(any) { landings++ })

	bus.Publish(EventJumped, nil)
	bus.Publish(EventJumped, nil)

	if jumps != 2 || landings != 0 {
		t.Errorf("jumps=%d landings=%d, 期望 2 和 0", jumps, landings)
	}
}

// TestPublishIsSynchronousAndOrdered 测试 Publish 返回前 handler 已按订阅顺序执行
func TestPublishIsSynchronousAndOrdered(t *testing.T) {
	bus := NewBus()
	var order []int
	for i := 0; i < 3; i++ {
		bus.Subscribe(EventReset, func(any) { order = append(order, i) })
	}

	bus.Publish(EventReset, nil)

	if len(order) != 3 || order[0] != 0 || order[1] != 1 || order[2] != 2 {
		t.Errorf("handler 执行顺序 %v, 期望 [0 1 2]", order)
	}
}

// TestUnsubscribe 测试取消订阅只移除对应的 handler
func TestUnsubscribe(t *testing.T) {
	bus := NewBus()
	var a, b int
	cancelA := bus.Subscribe(EventLanded, func(any) { a++ })
	bus.Subscribe(EventLanded, func(any) { b++ })

	bus.Publish(EventLanded, nil)
	cancelA()
	cancelA()
	bus.Publish(EventLanded, nil)

	if a != 1 || b != 2 {
		t.Errorf("a=%d b=%d, 期望 1 和 2", a, b)
	}
	if n := bus.Handlers(EventLanded); n != 1 {
		t.Errorf("剩余 handler %d 个, 期望 1", n)
	}
}

// TestUnsubscribeDuringPublish 测试 handler 内取消订阅不影响本次发布
func TestUnsubscribeDuringPublish(t *testing.T) {
	bus := NewBus()
	var calls []string
	var cancel func()
	cancel = bus.Subscribe(EventStageChanged, func(any) {
		calls = append(calls, "once")
		cancel()
	})
	bus.Subscribe(EventStageChanged, func(any) {
		calls = append(calls, "always")
	})

	bus.Publish(EventStageChanged, nil)
	bus.Publish(EventStageChanged, nil)

	want := []string{"once", "always", "always"}
	if len(calls) != len(want) {
		t.Fatalf("调用序列 %v, 期望 %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("调用序列 %v, 期望 %v", calls, want)
		}
	}
}

// TestSubscribeAll 测试一个 handler 订阅多个事件并可一次取消
func TestSubscribeAll(t *testing.T) {
	bus := NewBus()
	var names []string
	cancel := bus.SubscribeAll(func(event any) {
		names = append(names, event.(string))
	}, EventJumped, EventLanded)

	bus.Publish(EventJumped, "jumped")
	bus.Publish(EventLanded, "landed")
	bus.Publish(EventReset, "reset")
	if len(names) != 2 {
		t.Fatalf("收到 %v, 期望只有 jumped 和 landed", names)
	}

	cancel()
	bus.Publish(EventJumped, "jumped")
	if len(names) != 2 {
		t.Errorf("取消后仍收到事件: %v", names)
	}
}

// TestPanickingHandlerIsIsolated 测试 panic 的 handler 不影响其他 handler
func TestPanickingHandlerIsIsolated(t *testing.T) {
	bus := NewBus()
	called := false
	bus.Subscribe(EventFrameClamped, func(any) { panic("boom") })
	bus.Subscribe(EventFrameClamped, func(any) { called = true })

	bus.Publish(EventFrameClamped, &FrameClampedEvent{})

	if !called {
		t.Error("panic 之后的 handler 应该被调用")
	}
}

// TestConcurrentSubscribeAndPublish 测试并发订阅和发布的线程安全性
func TestConcurrentSubscribeAndPublish(t *testing.T) {
	bus := NewBus()
	var count atomic.Int64
	bus.Subscribe(EventJumped, func(any) { count.Add(1) })

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bus.Publish(EventJumped, nil)
		}()
	}
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cancel := bus.Subscribe(EventJumped, func(any) { count.Add(1) })
			cancel()
		}()
	}
	wg.Wait()

	if count.Load() < 100 {
		t.Errorf("至少应该收到 100 次事件, 实际收到 %d 次", count.Load())
	}
	if n := bus.Handlers(EventJumped); n != 1 {
		t.Errorf("剩余 handler %d 个, 期望 1", n)
	}
}
