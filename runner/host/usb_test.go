package host

import (
	"bytes"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/wippyai/firmlet/board"
)

func TestSerialReadEvents(t *testing.T) {
	b := newTestBoard(t, Config{})
	b.Start()
	s := b.Serial()

	b.FeedSerial([]byte("ab"))
	if n := b.Events().Len(); n != 0 {
		t.Fatalf("%d events while read disabled", n)
	}

	s.Enable(board.SerialRead)
	got := drain(b)
	if len(got) != 1 || got[0] != (board.USBEvent{Kind: board.SerialRead}) {
		t.Fatalf("events after Enable = %v", got)
	}

	b.FeedSerial([]byte("c"))
	if n := b.Events().Len(); n != 0 {
		t.Fatalf("undrained buffer notified again: %d events", n)
	}

	buf := make([]byte, 2)
	n, _ := s.Read(buf)
	if string(buf[:n]) != "ab" {
		t.Errorf("first Read = %q", buf[:n])
	}
	n, _ = s.Read(buf)
	if string(buf[:n]) != "c" {
		t.Errorf("second Read = %q", buf[:n])
	}

	b.FeedSerial([]byte("d"))
	if n := b.Events().Len(); n != 1 {
		t.Errorf("drained buffer: %d events, want 1", n)
	}
}

func TestSerialReceiveOverflow(t *testing.T) {
	b := newTestBoard(t, Config{})
	b.Start()
	if n := b.FeedSerial(make([]byte, serialRxCapacity+10)); n != serialRxCapacity {
		t.Errorf("FeedSerial = %d, want %d", n, serialRxCapacity)
	}
}

type link struct {
	io.Reader
	mu  sync.Mutex
	out bytes.Buffer
}

func (l *link) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.out.Write(p)
}

func (l *link) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.out.String()
}

func TestSerialWriteFlush(t *testing.T) {
	b := newTestBoard(t, Config{})
	b.Start()
	pr, pw := io.Pipe()
	t.Cleanup(func() { pw.Close() })
	l := &link{Reader: pr}
	if err := b.AttachSerial(l); err != nil {
		t.Fatal(err)
	}
	s := b.Serial()
	s.Enable(board.SerialWrite)

	msg := bytes.Repeat([]byte("x"), serialTxCapacity+44)
	n, _ := s.Write(msg)
	if n != serialTxCapacity {
		t.Fatalf("Write = %d, want %d", n, serialTxCapacity)
	}
	if m, _ := s.Write(msg[n:]); m != 0 {
		t.Fatalf("Write into full buffer = %d", m)
	}
	if err := s.Flush(); err != nil {
		t.Fatal(err)
	}
	if got := l.String(); len(got) != serialTxCapacity {
		t.Errorf("link received %d bytes", len(got))
	}
	got := drain(b)
	if len(got) != 1 || got[0] != (board.USBEvent{Kind: board.SerialWrite}) {
		t.Errorf("events after Flush = %v", got)
	}

	s.Write([]byte("!"))
	s.Flush()
	if n := b.Events().Len(); n != 0 {
		t.Errorf("flush without backpressure produced %d events", n)
	}
}

func TestSerialPump(t *testing.T) {
	b := newTestBoard(t, Config{})
	b.Start()
	b.Serial().Enable(board.SerialRead)
	pr, pw := io.Pipe()
	b.AttachSerial(&link{Reader: pr})

	go pw.Write([]byte("ping"))
	got := waitEvents(t, b, 1, 2*time.Second)
	if len(got) != 1 {
		t.Fatalf("events = %v", got)
	}
	buf := make([]byte, 8)
	n, _ := b.Serial().Read(buf)
	if string(buf[:n]) != "ping" {
		t.Errorf("Read = %q", buf[:n])
	}
	pw.Close()
}
