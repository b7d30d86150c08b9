package config

import (
	"io"
	"os"
	"path/filepath"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	logMaxAge       = 30 * 24 * time.Hour
	logRotationTime = 24 * time.Hour
)

// InitLog configures the standard logrus logger that all module loggers
// derive from. Output goes to stdout and, if a log directory is set, to a
// daily rotated file named after the executable.
func InitLog(o *Options) error {
	lvl, err := logrus.ParseLevel(o.LogLevel)
	if err != nil {
		return errors.WithStack(err)
	}

	writers := []io.Writer{os.Stdout}
	if o.LogDir != "" {
		exePath, _ := os.Executable()
		name := filepath.Base(exePath)
		rotated, err := rotatelogs.New(
			filepath.Join(o.LogDir, name+".%Y%m%d%H%M.log"),
			rotatelogs.WithLinkName(filepath.Join(o.LogDir, name+".log")),
			rotatelogs.WithMaxAge(logMaxAge),
			rotatelogs.WithRotationTime(logRotationTime),
		)
		if err != nil {
			return errors.Wrap(err, "could not create rotating log file")
		}
		writers = append(writers, rotated)
	}

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logrus.SetOutput(io.MultiWriter(writers...))
	logrus.SetLevel(lvl)
	return nil
}
