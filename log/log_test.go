package log_test

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"pipelined.dev/graph/log"
)

func TestGetLogger(t *testing.T) {
	l := log.GetLogger()
	assert.NotNil(t, l)
	assert.Contains(t, []logrus.Level{logrus.InfoLevel, logrus.DebugLevel}, l.GetLevel())
	assert.NotSame(t, l, log.GetLogger())
}
