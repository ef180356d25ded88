package util

import (
	"fmt"
	"strings"

	"github.com/twmb/franz-go/pkg/kgo"
)

// KgoLogger routes franz-go client logs through the shared leveled logger so
// client internals and verifier output share one sink and one level gate.
type KgoLogger struct{}

func (KgoLogger) Level() kgo.LogLevel {
	switch currentLevel {
	case LogLevelDebug:
		return kgo.LogLevelDebug
	case LogLevelInfo:
		return kgo.LogLevelInfo
	case LogLevelWarn:
		return kgo.LogLevelWarn
	default:
		return kgo.LogLevelError
	}
}

func (KgoLogger) Log(level kgo.LogLevel, msg string, keyvals ...interface{}) {
	var sb strings.Builder
	sb.WriteString("kgo: ")
	sb.WriteString(msg)
	for i := 0; i+1 < len(keyvals); i += 2 {
		fmt.Fprintf(&sb, " %v=%v", keyvals[i], keyvals[i+1])
	}

	switch level {
	case kgo.LogLevelDebug:
		Debug("%s", sb.String())
	case kgo.LogLevelInfo:
		Info("%s", sb.String())
	case kgo.LogLevelWarn:
		Warn("%s", sb.String())
	case kgo.LogLevelError:
		Error("%s", sb.String())
	}
}
