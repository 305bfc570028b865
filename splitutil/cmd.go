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

// Package splitutil contains the command-line interface to gridsplit.
package splitutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/lnashier/viper"
	"github.com/spatialmodel/gridsplit"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to gridsplit.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "vector",
			usage: `
              vector is the path to the shapefile holding the features
              to be split or attributed. It can include environment
              variables.`,
			shorthand:  "v",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{splitCmd.Flags(), attachCmd.Flags()},
		},
		{
			name: "raster",
			usage: `
              raster is a list of raster files to attribute the features
              with. NetCDF files are given as 'file.nc:variable' and ESRI
              ASCII grids as 'file.asc'. For 'split', features are split
              against the grid of each raster. Each raster gets an output
              column with the raster's name.`,
			shorthand:  "r",
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{splitCmd.Flags(), attachCmd.Flags()},
		},
		{
			name: "grid",
			usage: `
              grid is a list of grid definition files in TOML format, as
              created by the 'grid' command. Features are split against
              these grids in addition to the grids of any rasters.`,
			shorthand:  "g",
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{splitCmd.Flags(), attachCmd.Flags()},
		},
		{
			name: "strategy",
			usage: `
              strategy is the method used to split polygons. Options are
              'direct', which clips the polygon to each cell and keeps
              holes, and 'mesh', which splits the polygon boundary and
              only supports polygons without holes.`,
			defaultVal: "direct",
			flagsets:   []*pflag.FlagSet{splitCmd.Flags()},
		},
		{
			name: "outofbounds",
			usage: `
              outofbounds specifies what happens to fragments or features
              that are outside of a grid. 'sentinel' keeps them with a cell
              index of -1 and a missing raster value, and 'reject' causes
              the feature to fail.`,
			defaultVal: "sentinel",
			flagsets:   []*pflag.FlagSet{splitCmd.Flags(), attachCmd.Flags()},
		},
		{
			name: "workers",
			usage: `
              workers is the number of features split concurrently. The
              default of 0 uses one worker per processor.`,
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{splitCmd.Flags()},
		},
		{
			name: "log_file",
			usage: `
              log_file is the path to the desired logfile location. It can
              include environment variables. If log_file is left blank,
              the logfile will be saved in the same location as the
              output file.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{splitCmd.Flags(), attachCmd.Flags()},
		},
		{
			name: "output_variables",
			usage: `
              output_variables specifies additional output columns as a
              JSON map of column names to expressions. Expressions can use
              the feature attributes, 'feature', 'split', the cell indices
              and the raster names, as well as the functions exp(x), log(x),
              abs(x), min(x, y), max(x, y) and sum(x, ...).`,
			defaultVal: map[string]string{},
			flagsets:   []*pflag.FlagSet{splitCmd.Flags(), attachCmd.Flags()},
		},
		{
			name: "crs",
			usage: `
              crs is the coordinate reference of the grid, in PROJ.4 or
              WKT format. For the 'split' command, it is used for ESRI ASCII
              grids, which do not store one, and checked against the
              vector file.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{splitCmd.Flags(), gridCmd.Flags(), attachCmd.Flags()},
		},
		{
			name: "output",
			usage: `
              output is the path to the output file. For 'split' and
              'attach', it can end in '.shp' or '.geojson', and for 'grid'
              in '.toml', '.shp' or '.geojson'. It can include environment
              variables.`,
			shorthand:  "o",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{splitCmd.Flags(), gridCmd.Flags(), attachCmd.Flags()},
		},
		{
			name: "xmin",
			usage: `
              xmin is the X coordinate of the western edge of the grid.`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{gridCmd.Flags()},
		},
		{
			name: "ymin",
			usage: `
              ymin is the Y coordinate of the southern edge of the grid.`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{gridCmd.Flags()},
		},
		{
			name: "xmax",
			usage: `
              xmax is the X coordinate of the eastern edge of the grid. It
              is rounded up to a whole number of cells.`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{gridCmd.Flags()},
		},
		{
			name: "ymax",
			usage: `
              ymax is the Y coordinate of the northern edge of the grid. It
              is rounded up to a whole number of cells.`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{gridCmd.Flags()},
		},
		{
			name: "cell_width",
			usage: `
              cell_width is the length of grid cells in the X direction, in
              the units of the coordinate reference.`,
			defaultVal: 1.0,
			flagsets:   []*pflag.FlagSet{gridCmd.Flags()},
		},
		{
			name: "cell_height",
			usage: `
              cell_height is the length of grid cells in the Y direction, in
              the units of the coordinate reference.`,
			defaultVal: 1.0,
			flagsets:   []*pflag.FlagSet{gridCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("GRIDSPLIT")
	Cfg.AutomaticEnv()

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case []string:
				if option.shorthand == "" {
					set.StringSlice(option.name, option.defaultVal.([]string), option.usage)
				} else {
					set.StringSliceP(option.name, option.shorthand, option.defaultVal.([]string), option.usage)
				}
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			case float64:
				if option.shorthand == "" {
					set.Float64(option.name, option.defaultVal.(float64), option.usage)
				} else {
					set.Float64P(option.name, option.shorthand, option.defaultVal.(float64), option.usage)
				}
			case map[string]string:
				b := bytes.NewBuffer(nil)
				e := json.NewEncoder(b)
				e.Encode(option.defaultVal)
				s := string(b.Bytes())
				if option.shorthand == "" {
					set.String(option.name, s, option.usage)
				} else {
					set.StringP(option.name, option.shorthand, s, option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(splitCmd)
	Root.AddCommand(attachCmd)
	Root.AddCommand(gridCmd)
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(os.ExpandEnv(cfgpath))
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("gridsplit: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "gridsplit",
	Short: "Split vector features by the cells of raster grids.",
	Long: `gridsplit splits points, lines and polygons into fragments that each lie
within a single cell of one or more grids, and attributes every fragment with
the raster values of its cells. It can be used, for example, to find the flood
depth along each part of a road network.

Refer to the subcommand documentation for configuration options and default settings.
Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'GRIDSPLIT_var' where 'var' is the
name of the variable to be set. Many configuration variables are additionally
allowed to contain environment variables within them.
Refer to https://github.com/spf13/viper for additional configuration information.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of gridsplit.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("gridsplit v%s\n", gridsplit.Version)
	},
	DisableAutoGenTag: true,
}

// splitCmd is a command that splits the features in a vector file.
var splitCmd = &cobra.Command{
	Use:   "split",
	Short: "Split features by grid cells.",
	Long: `split splits the features in a shapefile by the cells of the given grids
and rasters, and writes the fragments with their cell indices and raster
values to a shapefile or GeoJSON file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		outputFile, err := checkOutputFile(Cfg.GetString("output"))
		if err != nil {
			return err
		}
		outputVars, err := GetStringMapString("output_variables", Cfg)
		if err != nil {
			return err
		}
		outputVars, err = checkOutputVars(outputVars)
		if err != nil {
			return err
		}
		strategy, err := gridsplit.ParsePolygonStrategy(Cfg.GetString("strategy"))
		if err != nil {
			return err
		}
		policy, err := gridsplit.ParseBoundsPolicy(Cfg.GetString("outofbounds"))
		if err != nil {
			return err
		}
		vectorFile := os.ExpandEnv(Cfg.GetString("vector"))
		if vectorFile == "" {
			return fmt.Errorf("gridsplit: you need to specify a vector file to split (for example: --vector=roads.shp)")
		}
		return Split(
			cmd,
			logFilePath(os.ExpandEnv(Cfg.GetString("log_file")), outputFile),
			vectorFile,
			expandPaths(Cfg.GetStringSlice("grid")),
			expandPaths(Cfg.GetStringSlice("raster")),
			os.ExpandEnv(Cfg.GetString("crs")),
			strategy,
			policy,
			Cfg.GetInt("workers"),
			outputVars,
			outputFile,
		)
	},
	DisableAutoGenTag: true,
}

// attachCmd is a command that adds raster values to features without
// splitting them.
var attachCmd = &cobra.Command{
	Use:   "attach",
	Short: "Attach raster values to features.",
	Long: `attach adds the cell indices and raster values at each feature in a
shapefile to its attributes, without splitting the features. It is meant for
features that have already been split by the 'split' command. Attributes with
the same name as an attached column are replaced.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		outputFile, err := checkOutputFile(Cfg.GetString("output"))
		if err != nil {
			return err
		}
		outputVars, err := GetStringMapString("output_variables", Cfg)
		if err != nil {
			return err
		}
		outputVars, err = checkOutputVars(outputVars)
		if err != nil {
			return err
		}
		policy, err := gridsplit.ParseBoundsPolicy(Cfg.GetString("outofbounds"))
		if err != nil {
			return err
		}
		vectorFile := os.ExpandEnv(Cfg.GetString("vector"))
		if vectorFile == "" {
			return fmt.Errorf("gridsplit: you need to specify a vector file to attach raster values to (for example: --vector=fragments.shp)")
		}
		return Attach(
			cmd,
			logFilePath(os.ExpandEnv(Cfg.GetString("log_file")), outputFile),
			vectorFile,
			expandPaths(Cfg.GetStringSlice("grid")),
			expandPaths(Cfg.GetStringSlice("raster")),
			os.ExpandEnv(Cfg.GetString("crs")),
			policy,
			outputVars,
			outputFile,
		)
	},
	DisableAutoGenTag: true,
}

// gridCmd is a command that creates a grid definition.
var gridCmd = &cobra.Command{
	Use:   "grid",
	Short: "Create a grid definition",
	Long: `grid creates a regular grid covering the given extent and saves it as a
TOML grid definition that can be used by the 'split' command, or as a
shapefile or GeoJSON file of the grid cells.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		outputFile, err := checkOutputFile(Cfg.GetString("output"))
		if err != nil {
			return err
		}
		return Grid(
			cmd,
			os.ExpandEnv(Cfg.GetString("crs")),
			Cfg.GetFloat64("xmin"), Cfg.GetFloat64("ymin"),
			Cfg.GetFloat64("xmax"), Cfg.GetFloat64("ymax"),
			Cfg.GetFloat64("cell_width"), Cfg.GetFloat64("cell_height"),
			outputFile,
		)
	},
	DisableAutoGenTag: true,
}
