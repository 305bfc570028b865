/*
Copyright © 2026 the gridsplit authors.
This file is part of gridsplit.

gridsplit is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

gridsplit is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with gridsplit.  If not, see <http://www.gnu.org/licenses/>.
*/

package splitutil

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// newLogger returns a logger that writes both to the output of cmd and
// to logFile. The returned file must be closed when logging is finished.
func newLogger(cmd *cobra.Command, logFile string) (*logrus.Logger, *os.File, error) {
	f, err := os.Create(logFile)
	if err != nil {
		return nil, nil, fmt.Errorf("gridsplit: problem creating log file: %v", err)
	}
	return textLogger(io.MultiWriter(cmd.OutOrStdout(), f)), f, nil
}

// textLogger returns a logger that writes text messages to w.
func textLogger(w io.Writer) *logrus.Logger {
	l := logrus.New()
	l.Formatter = &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339Nano,
		DisableSorting:  true,
	}
	l.Out = w
	return l
}
