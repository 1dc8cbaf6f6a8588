/*
   Copyright (c) 2023, btnmasher
   All rights reserved.
   Use of this source code is governed by a BSD-style
   license that can be found in the LICENSE file.
*/

package ircd

import (
	"io"
	"os"

	nested "github.com/antonfisher/nested-logrus-formatter"
	"github.com/sirupsen/logrus"
)

// NewLogger builds the logrus.Logger every command in this module shares:
// nested-logrus-formatter for human-readable console output, optionally
// tee'd to a log file when logPath is non-empty. Grounded on the
// teacher's cmd/dircd/main.go, which built a bare *logrus.Logger and
// passed it to Warmup via a formatter option; this module's Config
// doesn't carry functional options, so the formatter setup moves here.
func NewLogger(level logrus.Level, logPath string) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetLevel(level)
	logger.SetFormatter(&nested.Formatter{
		HideKeys:        false,
		FieldsOrder:     []string{"component", "remote"},
		TimestampFormat: "2006-01-02 15:04:05.000",
	})

	if logPath == "" {
		return logger, nil
	}

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	logger.SetOutput(io.MultiWriter(os.Stdout, file))
	return logger, nil
}
