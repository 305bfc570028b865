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
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lnashier/viper"
	"github.com/spf13/cast"
)

// checkOutputVars removes end lines and expands environment
// variables in the output variables. Unlike the output file, output
// variables are optional.
func checkOutputVars(vars map[string]string) (map[string]string, error) {
	o := make(map[string]string, len(vars))
	for k, v := range vars {
		v = strings.Replace(v, "\r\n", " ", -1)
		v = strings.Replace(v, "\n", " ", -1)
		k = strings.TrimSpace(os.ExpandEnv(k))
		if k == "" {
			return nil, fmt.Errorf("gridsplit: output variable with expression %q has no name", v)
		}
		o[k] = os.ExpandEnv(v)
	}
	return o, nil
}

// expandPaths returns a copy of paths with environment variables expanded
// and blank entries removed.
func expandPaths(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if p = strings.TrimSpace(os.ExpandEnv(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// checkOutputFile makes sure that the output file is specified and its
// directory exists, and expand any environment variables.
func checkOutputFile(f string) (string, error) {
	if f == "" {
		return "", fmt.Errorf(`gridsplit: you need to specify an output file (for example: --output=fragments.shp)`)
	}
	f = os.ExpandEnv(f)
	outdir := filepath.Dir(f)
	if _, err := os.Stat(outdir); err != nil {
		return f, fmt.Errorf("gridsplit: the output directory doesn't exist: %v", err)
	}
	return f, nil
}

// logFilePath returns logFile, or when it is empty a file next to the
// output named after it: fragments.shp logs to fragments.log.
func logFilePath(logFile, outputFile string) string {
	if logFile != "" {
		return logFile
	}
	ext := filepath.Ext(outputFile)
	return outputFile[:len(outputFile)-len(ext)] + ".log"
}

// GetStringMapString returns a map[string]string from a viper configuration,
// accounting for the fact that it might be a json object if it was set
// from a command line argument.
func GetStringMapString(varName string, cfg *viper.Viper) (map[string]string, error) {
	i := cfg.Get(varName)
	switch i.(type) {
	case nil:
		return map[string]string{}, nil
	case map[string]string:
		return i.(map[string]string), nil
	case map[string]interface{}:
		return cast.ToStringMapStringE(i)
	case string:
		if strings.TrimSpace(i.(string)) == "" {
			return map[string]string{}, nil
		}
		b := bytes.NewBuffer(([]byte)(i.(string)))
		d := json.NewDecoder(b)
		o := make(map[string]string)
		if err := d.Decode(&o); err != nil {
			return nil, fmt.Errorf("gridsplit: parsing %s: %v", varName, err)
		}
		return o, nil
	default:
		return nil, fmt.Errorf("gridsplit: invalid type for %s: %#v", varName, i)
	}
}
