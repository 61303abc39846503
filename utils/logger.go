/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package utils

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type Logger = logrus.Logger

const defaultTimestampFormat = "2006-01-02 15:04:05.000"

var (
	defaultLevel     = ParseLogLevel(EnvDefaultString("LOG_LEVEL", "info"))
	consoleLogFormat = EnvDefaultString("CONSOLE_LOG_FORMAT", "text")
	consoleOutput    io.Writer = os.Stdout
	settingsMu       sync.RWMutex

	loggerRegistryMu sync.RWMutex
	loggerRegistry   = map[string]*logrus.Logger{}
)

// ConfigureConsoleLogFormat selects "text" or "json" for loggers created afterwards.
func ConfigureConsoleLogFormat(format string) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format != "json" {
		format = "text"
	}
	settingsMu.Lock()
	consoleLogFormat = format
	settingsMu.Unlock()
}

// ConfigureConsoleOutput redirects every registered logger, and loggers
// created afterwards, to w.
func ConfigureConsoleOutput(w io.Writer) {
	settingsMu.Lock()
	consoleOutput = w
	settingsMu.Unlock()
	loggerRegistryMu.RLock()
	for _, lg := range loggerRegistry {
		lg.SetOutput(w)
	}
	loggerRegistryMu.RUnlock()
}

func ParseLogLevel(s string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return logrus.TraceLevel
	case "debug":
		return logrus.DebugLevel
	case "info", "":
		return logrus.InfoLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.InfoLevel
	}
}

func RegisterLogger(name string, l *logrus.Logger) {
	loggerRegistryMu.Lock()
	defer loggerRegistryMu.Unlock()
	loggerRegistry[name] = l
}

// GetLogger returns the registered logger called name, creating it on first use.
func GetLogger(name string) *logrus.Logger {
	loggerRegistryMu.RLock()
	lg, ok := loggerRegistry[name]
	loggerRegistryMu.RUnlock()
	if ok {
		return lg
	}
	return NewLogger(name)
}

func SetAllLoggersLevel(lvl logrus.Level) {
	settingsMu.Lock()
	defaultLevel = lvl
	settingsMu.Unlock()
	loggerRegistryMu.RLock()
	for _, lg := range loggerRegistry {
		lg.SetLevel(lvl)
	}
	loggerRegistryMu.RUnlock()
	logrus.SetLevel(lvl)
}

// SetLoggerLevel changes the level of one registered logger and reports
// whether it exists.
func SetLoggerLevel(name string, lvlStr string) bool {
	loggerRegistryMu.RLock()
	lg, ok := loggerRegistry[name]
	loggerRegistryMu.RUnlock()
	if !ok {
		return false
	}
	lg.SetLevel(ParseLogLevel(lvlStr))
	return true
}

func ConfigureLogLevel(levelStr string) {
	SetAllLoggersLevel(ParseLogLevel(levelStr))
}

// NewLogger creates a named console logger and registers it.
func NewLogger(name string) *logrus.Logger {
	settingsMu.RLock()
	format, out, lvl := consoleLogFormat, consoleOutput, defaultLevel
	settingsMu.RUnlock()

	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(lvl)
	l.SetReportCaller(true)
	if format == "json" {
		l.SetFormatter(&JSONLogFormatter{LoggerName: name, TimestampFormat: defaultTimestampFormat})
	} else {
		l.SetFormatter(&Log4jColorFormatter{
			LoggerName:      name,
			TimestampFormat: defaultTimestampFormat,
			ColorCaller:     true,
			NameWidth:       10,
			CallerWidth:     25,
		})
	}
	RegisterLogger(name, l)
	return l
}

// Log4jColorFormatter renders "time LEVEL pid - [main] name file:line : msg k=v".
type Log4jColorFormatter struct {
	LoggerName      string
	TimestampFormat string
	ColorCaller     bool
	DisableColors   bool
	NameWidth       int
	CallerWidth     int
}

func (f *Log4jColorFormatter) tsFormat() string {
	if f.TimestampFormat != "" {
		return f.TimestampFormat
	}
	return defaultTimestampFormat
}

func (f *Log4jColorFormatter) paint(s, code string) string {
	if f.DisableColors {
		return s
	}
	return colorWrap(s, code)
}

func (f *Log4jColorFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	ts := entry.Time.Format(f.tsFormat())
	lvl := padLeft(strings.ToUpper(entry.Level.String()), 7)
	if !f.DisableColors {
		lvl = colorLevel(lvl, entry.Level)
	}
	pid := f.paint(fmt.Sprintf("%-6d", os.Getpid()), ansiMagenta)
	thread := f.paint("[main]", ansiMagenta)
	name := f.paint(padLeft(limitRunes(f.LoggerName, f.NameWidth), f.NameWidth), ansiCyan)

	callerInfo := ""
	if entry.Caller != nil {
		fileLine := filepath.Base(filepath.Dir(entry.Caller.File)) + "/" +
			filepath.Base(entry.Caller.File) + ":" + strconv.Itoa(entry.Caller.Line)
		if f.CallerWidth > 0 {
			fileLine = padLeft(limitRunesLeft(fileLine, f.CallerWidth), f.CallerWidth)
		}
		callerInfo = " " + fileLine
		if f.ColorCaller {
			callerInfo = f.paint(callerInfo, ansiFaint)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s - %s %s%s %s %s", ts, lvl, pid, thread, name, callerInfo, f.paint(":", ansiFaint), entry.Message)
	for _, k := range sortedKeys(entry.Data) {
		fmt.Fprintf(&b, " %s=%v", k, entry.Data[k])
	}
	b.WriteByte('\n')
	return []byte(b.String()), nil
}

// JSONLogFormatter renders one JSON object per line.
type JSONLogFormatter struct {
	LoggerName      string
	TimestampFormat string
}

func (f *JSONLogFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	tsFormat := f.TimestampFormat
	if tsFormat == "" {
		tsFormat = defaultTimestampFormat
	}
	type jsonLogRecord struct {
		Time    string         `json:"time"`
		Level   string         `json:"level"`
		Logger  string         `json:"logger"`
		Caller  string         `json:"caller,omitempty"`
		Message string         `json:"message"`
		Fields  map[string]any `json:"fields,omitempty"`
	}
	rec := jsonLogRecord{
		Time:    entry.Time.Format(tsFormat),
		Level:   strings.ToLower(entry.Level.String()),
		Logger:  f.LoggerName,
		Message: entry.Message,
	}
	if entry.Caller != nil {
		rec.Caller = fmt.Sprintf("%s:%d", filepath.Base(entry.Caller.File), entry.Caller.Line)
	}
	if len(entry.Data) > 0 {
		rec.Fields = make(map[string]any, len(entry.Data))
		for k, v := range entry.Data {
			if err, ok := v.(error); ok {
				v = err.Error()
			}
			rec.Fields[k] = v
		}
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

func sortedKeys(m logrus.Fields) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func padLeft(s string, width int) string { return fmt.Sprintf("%*s", width, s) }

const (
	ansiReset   = "\x1b[0m"
	ansiFaint   = "\x1b[2m"
	ansiRed     = "\x1b[31m"
	ansiYellow  = "\x1b[33m"
	ansiGreen   = "\x1b[32m"
	ansiBlue    = "\x1b[34m"
	ansiMagenta = "\x1b[35m"
	ansiCyan    = "\x1b[36m"
)

func colorWrap(s, code string) string { return code + s + ansiReset }

func colorLevel(s string, level logrus.Level) string {
	switch level {
	case logrus.TraceLevel, logrus.DebugLevel:
		return colorWrap(s, ansiBlue)
	case logrus.InfoLevel:
		return colorWrap(s, ansiGreen)
	case logrus.WarnLevel:
		return colorWrap(s, ansiYellow)
	default:
		return colorWrap(s, ansiRed)
	}
}

// limitRunes keeps the first n runes of s.
func limitRunes(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	return string(r[:n])
}

// limitRunesLeft keeps the last n runes of s, marking the cut with "..".
func limitRunesLeft(s string, n int) string {
	r := []rune(s)
	if n <= 2 || len(r) <= n {
		return s
	}
	return ".." + string(r[len(r)-n+2:])
}

func EnvDefaultString(key string, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return v
	}
	return def
}

func EnvDefaultBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return b
}

func EnvDefaultInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return i
}

// EnvDefaultDuration parses key with time.ParseDuration, falling back to def.
// A bare integer is read as seconds.
func EnvDefaultDuration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	v = strings.TrimSpace(v)
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
