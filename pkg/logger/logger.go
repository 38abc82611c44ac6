package logger

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

var (
	mu    sync.Mutex
	level = INFO
	out   = os.Stderr
)

func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	level = l
}

func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	}
	return "?"
}

func logC(l Level, component, msg string, fields map[string]any) {
	mu.Lock()
	defer mu.Unlock()
	if l < level {
		return
	}

	var sb strings.Builder
	sb.WriteString(time.Now().Format(time.RFC3339))
	sb.WriteString(" [")
	sb.WriteString(l.String())
	sb.WriteString("] [")
	sb.WriteString(component)
	sb.WriteString("] ")
	sb.WriteString(msg)

	if len(fields) > 0 {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&sb, " %s=%v", k, fields[k])
		}
	}

	fmt.Fprintln(out, sb.String())
}

func DebugC(component, msg string) { logC(DEBUG, component, msg, nil) }
func DebugCF(component, msg string, fields map[string]any) { logC(DEBUG, component, msg, fields) }
func InfoC(component, msg string) { logC(INFO, component, msg, nil) }
func InfoCF(component, msg string, fields map[string]any) { logC(INFO, component, msg, fields) }
func WarnC(component, msg string) { logC(WARN, component, msg, nil) }
func WarnCF(component, msg string, fields map[string]any) { logC(WARN, component, msg, fields) }
func ErrorC(component, msg string) { logC(ERROR, component, msg, nil) }
func ErrorCF(component, msg string, fields map[string]any) { logC(ERROR, component, msg, fields) }
