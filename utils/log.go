package utils

import (
	"github.com/sirupsen/logrus"
)

// LogHexDump writes buf to logger at debug level, one entry per dump line.
func LogHexDump(logger logrus.FieldLogger, msg string, buf []byte) {
	dumper := NewDumper(LayoutCompact)
	dumper.Append(buf)
	for _, line := range dumper.Lines() {
		logger.WithField("offset", line.Offset).Debugf("%s %s", msg, line.appendCompact(nil))
	}
}
