package modem

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.bug.st/serial"
	"go.uber.org/mock/gomock"
)

func TestSerialDialer_Dial_EmptyPortName(t *testing.T) {
	dialer := SerialDialer{
		PortName: "",
	}

	ctx := context.Background()
	transport, err := dialer.Dial(ctx)

	if err == nil {
		t.Fatal("expected error for empty port name")
	}
	if transport != nil {
		t.Error("expected nil transport for empty port name")
	}
	if err.Error() != "modem: serial port name is required" {
		t.Errorf("unexpected error message: %v", err)
	}
	if !errors.Is(err, ErrNoPortName) {
		t.Errorf("expected ErrNoPortName, got: %v", err)
	}
}

func TestSerialDialer_Dial_NilContext(t *testing.T) {
	dialer := SerialDialer{
		PortName: "/dev/ttyUSB0",
	}

	transport, err := dialer.Dial(nil)

	if err == nil {
		t.Fatal("expected error for nil context")
	}
	if transport != nil {
		t.Error("expected nil transport for nil context")
	}
	if err.Error() != "modem: context is nil" {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestSerialDialer_Dial_ContextCanceled(t *testing.T) {
	dialer := SerialDialer{
		PortName: "/dev/nonexistent",
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	transport, err := dialer.Dial(ctx)

	if err != context.Canceled {
		t.Errorf("expected context.Canceled, got: %v", err)
	}
	if transport != nil {
		t.Error("expected nil transport for canceled context")
	}
}

func TestSerialDialer_Dial_WithMode(t *testing.T) {
	dialer := SerialDialer{
		PortName: "/dev/nonexistent",
		Mode: &serial.Mode{
			BaudRate: 9600,
			Parity:   serial.NoParity,
			DataBits: 8,
			StopBits: serial.OneStopBit,
		},
	}

	transport, err := dialer.Dial(context.Background())

	if err == nil {
		t.Fatal("expected error for non-existent port")
	}
	if transport != nil {
		t.Error("expected nil transport for non-existent port")
	}
}

func TestSerialDialer_Dial_DefaultMode(t *testing.T) {
	dialer := SerialDialer{
		PortName: "/dev/nonexistent",
	}

	transport, err := dialer.Dial(context.Background())

	if err == nil {
		t.Error("expected error for non-existent port")
	}
	if transport != nil {
		t.Error("expected nil transport for non-existent port")
	}
}

func TestTransportInterface(t *testing.T) {
	ctrl := gomock.NewController(t)

	mockTransport := NewMockTransport(ctrl)
	var _ Transport = mockTransport

	data := []byte("AT\r\n")
	gomock.InOrder(
		mockTransport.EXPECT().Write(data).Return(len(data), nil),
		mockTransport.EXPECT().Buffered().Return(1, nil),
		mockTransport.EXPECT().ReadByte().Return(byte('O'), nil),
		mockTransport.EXPECT().Close().Return(nil),
	)

	n, err := mockTransport.Write(data)
	if err != nil {
		t.Errorf("unexpected write error: %v", err)
	}
	if n != len(data) {
		t.Errorf("expected %d bytes written, got %d", len(data), n)
	}

	if n, _ := mockTransport.Buffered(); n != 1 {
		t.Errorf("expected 1 byte buffered, got %d", n)
	}
	if b, _ := mockTransport.ReadByte(); b != 'O' {
		t.Errorf("expected 'O', got %q", b)
	}

	if err := mockTransport.Close(); err != nil {
		t.Errorf("unexpected close error: %v", err)
	}
}

func TestDialerFunc(t *testing.T) {
	want := NewTestTransport(NewTestClock())
	var d Dialer = DialerFunc(func(context.Context) (Transport, error) {
		return want, nil
	})

	got, err := d.Dial(context.Background())
	if err != nil {
		t.Fatalf("unexpected dial error: %v", err)
	}
	if got != want {
		t.Error("expected the function's transport to be returned")
	}
}

func TestDialerInterface_Error(t *testing.T) {
	ctrl := gomock.NewController(t)

	mockDialer := NewMockDialer(ctrl)
	dialError := errors.New("dial failed")

	ctx := context.Background()
	mockDialer.EXPECT().Dial(ctx).Return(nil, dialError)

	transport, err := mockDialer.Dial(ctx)
	if err != dialError {
		t.Errorf("expected dial error, got: %v", err)
	}
	if transport != nil {
		t.Error("expected nil transport on error")
	}
}

func TestTestTransport(t *testing.T) {
	t.Run("replies become readable after their delay", func(t *testing.T) {
		clock := NewTestClock()
		tr := NewTestTransport(clock).RespondAfter("AT", 100*time.Millisecond, "OK\r\n")

		tr.Write([]byte("AT\r\n"))
		if n, _ := tr.Buffered(); n != 0 {
			t.Fatalf("expected nothing before the delay, got %d", n)
		}
		if _, err := tr.ReadByte(); !errors.Is(err, ErrNoData) {
			t.Fatalf("expected ErrNoData, got %v", err)
		}

		clock.Advance(100 * time.Millisecond)
		if n, _ := tr.Buffered(); n != 4 {
			t.Fatalf("expected 4 bytes, got %d", n)
		}
	})

	t.Run("last reply repeats", func(t *testing.T) {
		tr := NewTestTransport(NewTestClock()).Respond("AT", "ERROR\r\n", "OK\r\n")

		var got []byte
		for range 3 {
			tr.Write([]byte("AT\r\n"))
			for n, _ := tr.Buffered(); n > 0; n-- {
				b, _ := tr.ReadByte()
				got = append(got, b)
			}
		}
		if string(got) != "ERROR\r\nOK\r\nOK\r\n" {
			t.Errorf("unexpected replies: %q", got)
		}
		if tr.Count("AT") != 3 {
			t.Errorf("expected 3 writes of AT, got %d", tr.Count("AT"))
		}
	})
}

type portRead struct {
	data string
	err  error
}

// fakePort replays scripted reads. Methods it does not override panic
// through the nil embedded Port.
type fakePort struct {
	serial.Port
	reads   []portRead
	calls   int
	written []byte
	closed  bool
}

func (p *fakePort) Read(b []byte) (int, error) {
	if p.calls >= len(p.reads) {
		p.calls++
		return 0, nil
	}
	r := p.reads[p.calls]
	p.calls++
	return copy(b, r.data), r.err
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.written = append(p.written, b...)
	return len(b), nil
}

func (p *fakePort) Close() error {
	p.closed = true
	return nil
}

func TestSerialTransport(t *testing.T) {
	errLine := errors.New("input/output error")

	tests := []struct {
		name     string
		reads    []portRead
		want     string
		wantErrs int
	}{
		{
			name:  "single read",
			reads: []portRead{{data: "AT\r\nOK\r\n"}},
			want:  "AT\r\nOK\r\n",
		},
		{
			name:  "partial reads keep their order",
			reads: []portRead{{data: "+CSQ: "}, {data: "18,0\r\n"}, {data: "OK\r\n"}},
			want:  "+CSQ: 18,0\r\nOK\r\n",
		},
		{
			name:  "read timeouts between chunks",
			reads: []portRead{{}, {data: "> "}, {}, {}, {data: "+CMGS: 7"}},
			want:  "> +CMGS: 7",
		},
		{
			name:     "error without data",
			reads:    []portRead{{err: errLine}, {data: "OK"}},
			want:     "OK",
			wantErrs: 1,
		},
		{
			name:     "bytes read together with an error are kept",
			reads:    []portRead{{data: "DOWN", err: errLine}, {data: "LOAD"}},
			want:     "DOWNLOAD",
			wantErrs: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			port := &fakePort{reads: tt.reads}
			transport := &serialTransport{port: port}

			var got []byte
			errs := 0
			for range tt.reads {
				n, err := transport.Buffered()
				if err != nil {
					errs++
				}
				for ; n > 0; n-- {
					b, err := transport.ReadByte()
					if err != nil {
						t.Fatalf("ReadByte after Buffered reported %d: %v", n, err)
					}
					got = append(got, b)
				}
			}

			if string(got) != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
			if errs != tt.wantErrs {
				t.Errorf("expected %d errors, got %d", tt.wantErrs, errs)
			}
			if _, err := transport.ReadByte(); !errors.Is(err, ErrNoData) {
				t.Errorf("expected ErrNoData once drained, got %v", err)
			}
		})
	}

	t.Run("pending bytes are served without reading the port", func(t *testing.T) {
		port := &fakePort{reads: []portRead{{data: "OK\r\n"}}}
		transport := &serialTransport{port: port}

		if n, _ := transport.Buffered(); n != 4 {
			t.Fatalf("expected 4 bytes, got %d", n)
		}
		transport.ReadByte()
		if n, _ := transport.Buffered(); n != 3 {
			t.Errorf("expected 3 pending bytes, got %d", n)
		}
		if port.calls != 1 {
			t.Errorf("expected a single port read, got %d", port.calls)
		}
	})

	t.Run("ReadByte on an idle line", func(t *testing.T) {
		transport := &serialTransport{port: &fakePort{}}

		if _, err := transport.ReadByte(); !errors.Is(err, ErrNoData) {
			t.Errorf("expected ErrNoData, got %v", err)
		}
	})

	t.Run("write and close reach the port", func(t *testing.T) {
		port := &fakePort{}
		transport := &serialTransport{port: port}

		if _, err := transport.Write([]byte("AT\r\n")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := transport.Close(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(port.written) != "AT\r\n" || !port.closed {
			t.Errorf("unexpected port state %q closed=%t", port.written, port.closed)
		}
	})
}
