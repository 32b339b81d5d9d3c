package jobs_test

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atrium-realty/atrium/jobs"
)

type recordingSender struct {
	to      string
	subject string
	body    string
	calls   int
}

func (r *recordingSender) Send(ctx context.Context, to, subject, body string) error {
	r.to, r.subject, r.body = to, subject, body
	r.calls++
	return nil
}

func TestSendEmailHandlerDelivers(t *testing.T) {
	sender := &recordingSender{}
	handler := jobs.NewSendEmailHandler(sender, slog.New(slog.NewTextHandler(io.Discard, nil)))

	task, err := jobs.NewSendEmailTask(jobs.SendEmailPayload{
		To:      "client@test.local",
		Subject: "Reset your password",
		Body:    "Use the link below.",
	})
	require.NoError(t, err)

	require.NoError(t, handler(context.Background(), task))
	assert.Equal(t, 1, sender.calls)
	assert.Equal(t, "client@test.local", sender.to)
	assert.Equal(t, "Reset your password", sender.subject)
	assert.Equal(t, "Use the link below.", sender.body)
}

func TestSendEmailHandlerSkipsMalformedPayload(t *testing.T) {
	sender := &recordingSender{}
	handler := jobs.NewSendEmailHandler(sender, slog.New(slog.NewTextHandler(io.Discard, nil)))

	err := handler(context.Background(), asynq.NewTask(jobs.TaskTypeSendEmail, []byte("{broken")))
	assert.True(t, errors.Is(err, asynq.SkipRetry), "malformed payload must not retry")
	assert.Equal(t, 0, sender.calls)
}

func TestSendEmailHandlerLogsWithoutSender(t *testing.T) {
	handler := jobs.NewSendEmailHandler(nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	task, err := jobs.NewSendEmailTask(jobs.SendEmailPayload{To: "client@test.local", Subject: "Hi"})
	require.NoError(t, err)
	assert.NoError(t, handler(context.Background(), task))
}

// fakeRelay speaks just enough SMTP to accept one message.
func fakeRelay(t *testing.T, received chan<- string) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer func() { _ = conn.Close() }()

		br := bufio.NewReader(conn)
		write := func(line string) { _, _ = fmt.Fprintf(conn, "%s\r\n", line) }
		write("220 relay.test ESMTP")

		var data strings.Builder
		inData := false
		for {
			line, err := br.ReadString('\n')
			if err != nil {
				return
			}
			line = strings.TrimRight(line, "\r\n")
			switch {
			case inData && line == ".":
				inData = false
				write("250 accepted")
				received <- data.String()
			case inData:
				data.WriteString(line)
				data.WriteString("\n")
			case line == "DATA":
				inData = true
				write("354 go ahead")
			case line == "QUIT":
				write("221 bye")
				return
			default:
				write("250 ok")
			}
		}
	}()
	return ln
}

func TestSMTPSenderDelivers(t *testing.T) {
	received := make(chan string, 1)
	ln := fakeRelay(t, received)
	defer func() { _ = ln.Close() }()

	host, portStr, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	sender := jobs.NewSMTPSender(jobs.SMTPConfig{
		Host: host,
		Port: port,
		From: "no-reply@atrium.example",
	})
	require.NoError(t, sender.Send(context.Background(), "client@test.local", "Confirm your email address", "Open the link to confirm."))

	select {
	case msg := <-received:
		assert.Contains(t, msg, "From: no-reply@atrium.example")
		assert.Contains(t, msg, "To: client@test.local")
		assert.Contains(t, msg, "Subject: Confirm your email address")
		assert.Contains(t, msg, "Open the link to confirm.")
	case <-time.After(2 * time.Second):
		t.Fatal("relay received no message")
	}
}
