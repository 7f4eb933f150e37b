/*
Copyright © 2018 the metflux authors.
This file is part of metflux.

metflux is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

metflux is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with metflux.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package metfluxutil contains the command line interface and configuration
// layer for metflux.
package metfluxutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/lnashier/viper"
	"github.com/spatialmodel/metflux"
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
	// Options are the configuration options available to metflux.
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
			name: "InputFile",
			usage: `
              InputFile is the path to the netCDF file holding the decoded
              fields. Every variable whose first dimension is 'time' is
              processed, and the 'step' variable gives the forecast step
              in hours of each record. It can include environment variables.`,
			shorthand:  "i",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{disaggCmd.Flags()},
		},
		{
			name: "OutputFile",
			usage: `
              OutputFile is the path to the netCDF file where the
              disaggregated fields are written. It can include environment
              variables.`,
			shorthand:  "o",
			defaultVal: "metflux_output.nc",
			flagsets:   []*pflag.FlagSet{disaggCmd.Flags()},
		},
		{
			name: "LogFile",
			usage: `
              LogFile is the path to the desired logfile location. It can
              include environment variables. If LogFile is left blank, the
              logfile will be saved in the same location as the OutputFile.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{disaggCmd.Flags()},
		},
		{
			name: "ParameterFile",
			usage: `
              ParameterFile is the path to an optional TOML file of
              [[Parameter]] tables that describe the accumulation kind,
              non-negativity, scaling and units of the input variables.
              Parameters in the file replace the built-in parameters
              with the same ID.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{disaggCmd.Flags(), paramsCmd.Flags()},
		},
		{
			name: "Factor",
			usage: `
              Factor is the number of sub-intervals each input interval
              is divided into. If it is 0, it is calculated from
              OutputResolution.`,
			shorthand:  "n",
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{disaggCmd.Flags()},
		},
		{
			name: "OutputResolution",
			usage: `
              OutputResolution is the desired output time resolution in
              minutes. It is only used when Factor is 0, and the shortest
              input interval must be a whole multiple of it.`,
			defaultVal: 60.0,
			flagsets:   []*pflag.FlagSet{disaggCmd.Flags()},
		},
		{
			name: "Instantaneous",
			usage: `
              Instantaneous specifies how instantaneous fields are
              resampled to the output resolution. Options are 'hold'
              and 'linear'.`,
			defaultVal: "hold",
			flagsets:   []*pflag.FlagSet{disaggCmd.Flags()},
		},
		{
			name: "Workers",
			usage: `
              Workers is the maximum number of fields processed at once.
              If it is 0, the number of processors is used.`,
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{disaggCmd.Flags()},
		},
		{
			name: "Rates",
			usage: `
              Rates specifies whether accumulated fields are written as mean
              rates per hour rather than as the amount in each sub-interval.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{disaggCmd.Flags()},
		},
		{
			name: "DerivedVariables",
			usage: `
              DerivedVariables specifies additional fields to be calculated
              from the disaggregated fields and written to the output file.
              Key-value pairs are the name of the new field and an
              expression of existing fields, e.g. {"TP":"LSP+CP"}.
              Functions abs, max and min are available.`,
			defaultVal: map[string]string{},
			flagsets:   []*pflag.FlagSet{disaggCmd.Flags()},
		},
		{
			name: "Tolerance",
			usage: `
              Tolerance is the relative tolerance used to check that the
              disaggregated values of every interval sum to its increment.`,
			defaultVal: metflux.DefaultTolerance,
			flagsets:   []*pflag.FlagSet{disaggCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("METFLUX")
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
			case bool:
				if option.shorthand == "" {
					set.Bool(option.name, option.defaultVal.(bool), option.usage)
				} else {
					set.BoolP(option.name, option.shorthand, option.defaultVal.(bool), option.usage)
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
	Root.AddCommand(disaggCmd)
	Root.AddCommand(paramsCmd)
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(os.ExpandEnv(cfgpath))
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("metflux: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "metflux",
	Short: "Deaccumulate and disaggregate meteorological fluxes.",
	Long: `metflux converts accumulated meteorological flux fields, such as
precipitation and surface heat fluxes archived as running totals since the
start of a forecast, into per-interval amounts and redistributes them onto a
finer time grid while conserving the amount in every original interval.
Use the subcommands specified below to access the functionality.

Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'METFLUX_var' where 'var' is the
name of the variable to be set. Many configuration variables are additionally
allowed to contain environment variables within them.
Refer to https://github.com/spf13/viper for additional configuration information.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of metflux.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("metflux v%s\n", metflux.Version)
	},
	DisableAutoGenTag: true,
}

// disaggCmd is a command that disaggregates the fields in a file.
var disaggCmd = &cobra.Command{
	Use:   "disagg",
	Short: "Disaggregate accumulated fields",
	Long: `disagg reads the fields in InputFile, deaccumulates the accumulated
ones into per-interval increments, divides every interval into Factor
sub-intervals and writes the result to OutputFile. Non-negative fields such
as precipitation are disaggregated so that no sub-interval is negative
and dry intervals stay dry. Fields that fail are reported and the others
are still written.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		inputFile, err := checkInputFile(Cfg.GetString("InputFile"))
		if err != nil {
			return err
		}
		outputFile, err := checkOutputFile(Cfg.GetString("OutputFile"))
		if err != nil {
			return err
		}
		vars, err := GetStringMapString("DerivedVariables", Cfg)
		if err != nil {
			return err
		}
		derived, err := checkDerivedVars(vars)
		if err != nil {
			return err
		}
		return Disaggregate(
			cmd,
			checkLogFile(os.ExpandEnv(Cfg.GetString("LogFile")), outputFile),
			inputFile,
			outputFile,
			os.ExpandEnv(Cfg.GetString("ParameterFile")),
			Cfg.GetInt("Factor"),
			Cfg.GetFloat64("OutputResolution"),
			Cfg.GetString("Instantaneous"),
			Cfg.GetInt("Workers"),
			Cfg.GetBool("Rates"),
			derived,
			Cfg.GetFloat64("Tolerance"),
		)
	},
	DisableAutoGenTag: true,
}

// paramsCmd prints the parameter table.
var paramsCmd = &cobra.Command{
	Use:   "params",
	Short: "Print the parameter table",
	Long: `params prints the parameters that are used to interpret the input
fields, including any parameters specified in ParameterFile.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := parameterTable(os.ExpandEnv(Cfg.GetString("ParameterFile")))
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 1, '\t', 0)
		fmt.Fprintln(w, "ID\tName\tKind\tNonNegative\tScale\tUnits\tDescription")
		for _, p := range t.Parameters() {
			fmt.Fprintf(w, "%d\t%s\t%s\t%v\t%g\t%s\t%s\n", p.ID, p.Name, p.Kind,
				p.NonNegative, p.Scale, p.Units, p.Description)
		}
		return w.Flush()
	},
	DisableAutoGenTag: true,
}

// parameterTable returns the default parameters, merged with
// the ones in path if path is not empty.
func parameterTable(path string) (*metflux.ParameterTable, error) {
	if path == "" {
		return metflux.DefaultParameters(), nil
	}
	return metflux.LoadParameters(path)
}
