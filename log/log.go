package log

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/sirupsen/logrus"

	"github.com/akiva-capital-holdings/pairwyse-dsl-sub002/config"
)

const (
	rotationTime int64 = 86400
	maxAge       int64 = 604800
)

var defaultFormatter = &logrus.TextFormatter{DisableColors: true}

// InitLogFile sends every log entry to <log dir>/<module>.<date>, where
// module is the entry's "module" field, and silences the console.
func InitLogFile(config *config.Config) error {
	if err := SetLevel(config.LogLevel); err != nil {
		return err
	}

	logPath := config.LogDir()
	if err := clearLockFiles(logPath); err != nil {
		return err
	}

	hook := newModuleHook(logPath)
	logrus.AddHook(hook)
	logrus.SetOutput(ioutil.Discard)
	fmt.Printf("all logs are output in the %s directory\n", logPath)
	return nil
}

// SetLevel sets the global level from its name. An empty name keeps the
// current level.
func SetLevel(level string) error {
	if level == "" {
		return nil
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	logrus.SetLevel(lvl)
	return nil
}

// ModuleHook writes entries to one rotated file per module.
type ModuleHook struct {
	logPath string
	lock    *sync.Mutex
	writers map[string]*rotatelogs.RotateLogs
}

func newModuleHook(logPath string) *ModuleHook {
	return &ModuleHook{
		logPath: logPath,
		lock:    new(sync.Mutex),
		writers: make(map[string]*rotatelogs.RotateLogs),
	}
}

func (hook *ModuleHook) writer(module string) (*rotatelogs.RotateLogs, error) {
	if w, ok := hook.writers[module]; ok {
		return w, nil
	}

	logPath := filepath.Join(hook.logPath, module)
	w, err := rotatelogs.New(
		logPath+".%Y%m%d",
		rotatelogs.WithMaxAge(time.Duration(maxAge)*time.Second),
		rotatelogs.WithRotationTime(time.Duration(rotationTime)*time.Second),
	)
	if err != nil {
		return nil, err
	}
	hook.writers[module] = w
	return w, nil
}

// Write a log line to the module's file.
func (hook *ModuleHook) ioWrite(entry *logrus.Entry) error {
	module := "general"
	if data, ok := entry.Data["module"].(string); ok {
		module = data
	}

	writer, err := hook.writer(module)
	if err != nil {
		return err
	}

	msg, err := defaultFormatter.Format(entry)
	if err != nil {
		return err
	}

	_, err = writer.Write(msg)
	return err
}

// Close closes every open module file.
func (hook *ModuleHook) Close() error {
	hook.lock.Lock()
	defer hook.lock.Unlock()

	var firstErr error
	for module, w := range hook.writers {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(hook.writers, module)
	}
	return firstErr
}

func clearLockFiles(logPath string) error {
	files, err := ioutil.ReadDir(logPath)
	if os.IsNotExist(err) {
		return nil
	} else if err != nil {
		return err
	}

	for _, file := range files {
		if ok := strings.HasSuffix(file.Name(), "_lock"); ok {
			if err := os.Remove(filepath.Join(logPath, file.Name())); err != nil {
				return err
			}
		}
	}
	return nil
}

func (hook *ModuleHook) Fire(entry *logrus.Entry) error {
	hook.lock.Lock()
	defer hook.lock.Unlock()
	return hook.ioWrite(entry)
}

// Levels returns configured log levels.
func (hook *ModuleHook) Levels() []logrus.Level {
	return logrus.AllLevels
}
