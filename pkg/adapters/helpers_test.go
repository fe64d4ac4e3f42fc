package adapters

import "github.com/sirupsen/logrus"

func newSilentLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.FatalLevel)
	return log
}
