package mq

import (
	"context"
	"testing"
)

func TestRunner_NextDelay_LinearRamp(t *testing.T) {
	r := NewRunner(testConfig(&fakeTransport{}, nil))

	// Брокер недоступен с самого начала: +1 секунда за попытку
	for want := 1; want <= 5; want++ {
		if got := r.NextDelay(false); got != want {
			t.Fatalf("attempt %d: got delay %d", want, got)
		}
	}
}

func TestRunner_NextDelay_Cap(t *testing.T) {
	r := NewRunner(testConfig(&fakeTransport{}, nil))

	var got int
	for i := 0; i < 50; i++ {
		got = r.NextDelay(false)
	}
	if got != maxReconnectDelay {
		t.Fatalf("expected cap %d, got %d", maxReconnectDelay, got)
	}
}

func TestRunner_NextDelay_ResetAfterConsuming(t *testing.T) {
	r := NewRunner(testConfig(&fakeTransport{}, nil))

	r.NextDelay(false)
	r.NextDelay(false)
	r.NextDelay(false)

	// Обрыв посреди работы: мгновенный повтор
	if got := r.NextDelay(true); got != 0 {
		t.Fatalf("expected reset to 0, got %d", got)
	}
	// Разгон начинается заново
	if got := r.NextDelay(false); got != 1 {
		t.Fatalf("expected 1 after reset, got %d", got)
	}
}

func TestRunner_ReconnectsAfterBrokerClose(t *testing.T) {
	tr := &fakeTransport{}
	r := NewRunner(testConfig(tr, nil))

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.Run(context.Background())
	}()

	waitFor(t, "first connection", func() bool { return tr.dialCount() == 1 })

	// Обрыв со стороны брокера: супервизор дошёл до consuming,
	// поэтому переподключение без задержки
	tr.conn(0).closeDeliveries()

	waitFor(t, "second connection", func() bool { return tr.dialCount() == 2 })

	r.Stop()
	<-done
}

func TestRunner_DeliberateStopEndsLoop(t *testing.T) {
	tr := &fakeTransport{}
	r := NewRunner(testConfig(tr, nil))

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.Run(context.Background())
	}()

	waitFor(t, "connection", func() bool { return tr.dialCount() == 1 })

	r.Stop()
	<-done

	if tr.dialCount() != 1 {
		t.Errorf("deliberate stop must not reconnect, dials=%d", tr.dialCount())
	}
}

func TestRunner_StopBeforeRun(t *testing.T) {
	tr := &fakeTransport{}
	r := NewRunner(testConfig(tr, nil))

	// Stop до запуска цикла: Run не должен подключаться вовсе
	r.Stop()
	r.Run(context.Background())

	if tr.dialCount() != 0 {
		t.Errorf("expected no dials, got %d", tr.dialCount())
	}
}
