package badger

import (
	badgerdb "github.com/dgraph-io/badger/v4"
	plog "github.com/phuslu/log"
)

// storeLogger adapts Badger's internal logging to phuslu at warn level so
// compaction and GC chatter stays out of the application log stream.
type storeLogger struct {
	log *plog.Logger
}

func newStoreLogger() badgerdb.Logger {
	return &storeLogger{
		log: &plog.Logger{
			Level:  plog.WarnLevel,
			Writer: &plog.ConsoleWriter{},
		},
	}
}

func (l *storeLogger) Errorf(format string, args ...interface{}) {
	l.log.Error().Msgf(format, args...)
}

func (l *storeLogger) Warningf(format string, args ...interface{}) {
	l.log.Warn().Msgf(format, args...)
}

func (l *storeLogger) Infof(format string, args ...interface{}) {
	l.log.Info().Msgf(format, args...)
}

func (l *storeLogger) Debugf(format string, args ...interface{}) {
	l.log.Debug().Msgf(format, args...)
}
