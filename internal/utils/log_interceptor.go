package utils

import (
	"bytes"
	"io"
	"log/slog"
	"sync/atomic"
	"time"
)

// LogInterceptor implements io.Writer and prefixes every complete line written
// through it with a monotonic sequence number and a timestamp. It sits between
// an slog handler and its log file so that lines stay ordered even when the
// handler itself omits timestamps.
type LogInterceptor struct {
	target io.Writer
	seq    atomic.Uint64
	buf    bytes.Buffer
}

// NewLogInterceptor creates a LogInterceptor writing to target.
func NewLogInterceptor(target io.Writer) *LogInterceptor {
	return &LogInterceptor{target: target}
}

// Write implements io.Writer. Input is buffered and flushed per complete
// line; a record split across Write calls stays buffered until its newline
// arrives. The returned count is always len(p), since everything is either
// forwarded or retained.
func (i *LogInterceptor) Write(p []byte) (int, error) {
	i.buf.Write(p)

	for {
		idx := bytes.IndexByte(i.buf.Bytes(), '\n')
		if idx < 0 {
			return len(p), nil
		}
		// handles both \n and \r\n
		line := bytes.TrimRight(i.buf.Next(idx+1), "\r\n")
		if err := i.writeLine(line); err != nil {
			return len(p), err
		}
	}
}

// Close flushes any trailing unterminated line to the target writer.
func (i *LogInterceptor) Close() error {
	line := bytes.TrimRight(i.buf.Bytes(), "\r\n")
	defer i.buf.Reset()

	if len(line) == 0 {
		return nil
	}
	return i.writeLine(line)
}

func (i *LogInterceptor) writeLine(line []byte) error {
	prefix := slog.Uint64("line", i.seq.Add(1)).String() + " " +
		slog.String("time", time.Now().Format(time.RFC3339)).String() + " "
	if _, err := io.WriteString(i.target, prefix); err != nil {
		return err
	}
	if _, err := i.target.Write(line); err != nil {
		return err
	}
	_, err := io.WriteString(i.target, "\n")
	return err
}
