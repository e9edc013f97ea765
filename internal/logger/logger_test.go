package logger

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestLineFormatter(t *testing.T) {
	l := logrus.New()
	e := logrus.NewEntry(l).WithFields(logrus.Fields{"symbol": "2330.TW", "attempt": 2})
	e.Time = time.Date(2025, 5, 1, 9, 30, 0, 0, time.UTC)
	e.Level = logrus.WarnLevel
	e.Message = "live quote unavailable"

	out, err := (&LineFormatter{}).Format(e)
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	want := "[2025-05-01 09:30:00] [WARN] [] live quote unavailable attempt=2 symbol=2330.TW\n"
	if string(out) != want {
		t.Fatalf("got  %q\nwant %q", out, want)
	}
}

func TestInitLoggerLevel(t *testing.T) {
	if err := InitLogger("debug", ""); err != nil {
		t.Fatalf("init: %v", err)
	}
	if Log.GetLevel() != logrus.DebugLevel {
		t.Fatalf("level = %s", Log.GetLevel())
	}
	if err := InitLogger("nonsense", ""); err != nil {
		t.Fatalf("init: %v", err)
	}
	if Log.GetLevel() != logrus.InfoLevel {
		t.Fatalf("level = %s", Log.GetLevel())
	}
}

func TestInitLoggerFile(t *testing.T) {
	path := t.TempDir() + "/logs/app.log"
	if err := InitLogger("info", path); err != nil {
		t.Fatalf("init: %v", err)
	}
	Log.Info("hello file")
	_ = InitLogger("info", "")

	data, err := readFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(data, "hello file") {
		t.Fatalf("log file = %q", data)
	}
}

func readFile(path string) (string, error) {
	b, err := os.ReadFile(path)
	return string(b), err
}
