package utils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	logger "github.com/sirupsen/logrus"
)

// InitLogger configures the global logrus logger from the logging
// config section and returns a module scoped entry for the caller.
func InitLogger() logger.FieldLogger {
	if Config.Logging.OutputStderr {
		logger.SetOutput(os.Stderr)
	} else {
		logger.SetOutput(os.Stdout)
	}

	if Config.Logging.OutputLevel != "" {
		logLevel, err := logger.ParseLevel(Config.Logging.OutputLevel)
		if err != nil {
			logger.Errorf("invalid log level: %v", Config.Logging.OutputLevel)
		} else {
			logger.SetLevel(logLevel)
		}
	}

	if Config.Logging.FilePath != "" {
		f, err := os.OpenFile(Config.Logging.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			logger.Errorf("error opening log file %v: %v", Config.Logging.FilePath, err)
		} else {
			fileLevel := logger.InfoLevel
			if Config.Logging.FileLevel != "" {
				parsedLevel, err := logger.ParseLevel(Config.Logging.FileLevel)
				if err == nil {
					fileLevel = parsedLevel
				}
			}
			logger.AddHook(&fileLogHook{
				writer: f,
				level:  fileLevel,
				fmt:    &logger.TextFormatter{DisableColors: true},
			})
		}
	}

	return logger.StandardLogger()
}

type fileLogHook struct {
	writer *os.File
	level  logger.Level
	fmt    logger.Formatter
}

func (h *fileLogHook) Levels() []logger.Level {
	levels := []logger.Level{}
	for _, level := range logger.AllLevels {
		if level <= h.level {
			levels = append(levels, level)
		}
	}
	return levels
}

func (h *fileLogHook) Fire(entry *logger.Entry) error {
	line, err := h.fmt.Format(entry)
	if err != nil {
		return err
	}
	_, err = h.writer.Write(line)
	return err
}

// LogFatal logs a fatal error with callstack info that skips callerSkip many levels with arbitrarily many additional infos.
// callerSkip equal to 0 gives you info directly where LogFatal is called.
func LogFatal(err error, errorMsg interface{}, callerSkip int, additionalInfos ...map[string]interface{}) {
	logErrorInfo(err, callerSkip, additionalInfos...).Fatal(errorMsg)
}

// LogError logs an error with callstack info that skips callerSkip many levels with arbitrarily many additional infos.
// callerSkip equal to 0 gives you info directly where LogError is called.
func LogError(err error, errorMsg interface{}, callerSkip int, additionalInfos ...map[string]interface{}) {
	logErrorInfo(err, callerSkip, additionalInfos...).Error(errorMsg)
}

func logErrorInfo(err error, callerSkip int, additionalInfos ...map[string]interface{}) *logger.Entry {
	logFields := logger.NewEntry(logger.New())

	pc, fullFilePath, line, ok := runtime.Caller(callerSkip + 2)
	if ok {
		logFields = logFields.WithFields(logger.Fields{
			"_file":     filepath.Base(fullFilePath),
			"_function": runtime.FuncForPC(pc).Name(),
			"_line":     line,
		})
	} else {
		logFields = logFields.WithField("runtime", "Callstack cannot be read")
	}

	errColl := []string{}
	for {
		errColl = append(errColl, fmt.Sprint(err))
		nextErr := errors.Unwrap(err)
		if nextErr != nil {
			err = nextErr
		} else {
			break
		}
	}

	errMarkSign := "~"
	for idx := 0; idx < (len(errColl) - 1); idx++ {
		errInfoText := fmt.Sprintf("%serrInfo_%v%s", errMarkSign, idx, errMarkSign)
		nextErrInfoText := fmt.Sprintf("%serrInfo_%v%s", errMarkSign, idx+1, errMarkSign)
		if idx == (len(errColl) - 2) {
			nextErrInfoText = fmt.Sprintf("%serror%s", errMarkSign, errMarkSign)
		}

		// Replace the last occurrence of the next error in the current error
		lastIdx := strings.LastIndex(errColl[idx], errColl[idx+1])
		if lastIdx != -1 {
			errColl[idx] = errColl[idx][:lastIdx] + nextErrInfoText + errColl[idx][lastIdx+len(errColl[idx+1]):]
		}

		errInfoText = strings.ReplaceAll(errInfoText, errMarkSign, "")
		logFields = logFields.WithField(errInfoText, errColl[idx])
	}

	if err != nil {
		logFields = logFields.WithField("errType", fmt.Sprintf("%T", err)).WithError(err)
	}

	for _, infoMap := range additionalInfos {
		for name, info := range infoMap {
			logFields = logFields.WithField(name, info)
		}
	}

	return logFields
}
