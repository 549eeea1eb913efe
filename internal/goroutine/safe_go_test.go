package goroutine

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recordingLogger struct {
	mu   sync.Mutex
	msgs []string
	done chan struct{}
}

func (l *recordingLogger) Errorf(format string, args ...interface{}) {
	l.mu.Lock()
	l.msgs = append(l.msgs, fmt.Sprintf(format, args...))
	l.mu.Unlock()
	close(l.done)
}

func TestSafeGo_RecoversPanic(t *testing.T) {
	logger := &recordingLogger{done: make(chan struct{})}
	rh := NewRecoveryHandler(logger)

	rh.SafeGo(func() { panic("boom") })

	select {
	case <-logger.done:
	case <-time.After(time.Second):
		t.Fatal("panic was not logged")
	}

	logger.mu.Lock()
	defer logger.mu.Unlock()
	assert.Len(t, logger.msgs, 1)
	assert.Contains(t, logger.msgs[0], "boom")
}
