package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/radwatch/gammacore/pkg/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var version = "dev"

// cfg holds the validated analysis configuration shared by all commands.
var cfg = config.DefaultConfig()

var rootCmd = &cobra.Command{
	Use:           "gammaspec",
	Short:         "Gamma-ray spectrum analysis: peaks, isotopes, decay chains, activity.",
	Long:          `gammaspec ingests channel-count spectra from scintillator detectors and reports detected peaks, candidate isotopes with confidence scores, decay-chain hypotheses, and activity/MDA estimates.`,
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// Execute runs the CLI.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default .gammaspec.yaml)")
	pf.String("detector", "nai-2x2", "detector profile name")
	pf.Float64("tolerance", 20, "isotope matching tolerance in keV")
	pf.Float64("min-confidence", 40, "minimum isotope confidence (0-100)")
	pf.Int("max-isotopes", 5, "maximum isotopes reported")
	pf.Int("snip-iterations", 24, "SNIP background clipping iterations")
	pf.Float64("snr-threshold", 3.0, "peak finder SNR cutoff")
	pf.Float64("min-chain-confidence", 30, "minimum decay-chain confidence (0-100)")
	pf.Bool("roi", true, "estimate per-isotope activity/MDA")
	pf.Bool("quiet", false, "suppress progress logging")

	_ = viper.BindPFlag("config", pf.Lookup("config"))
	_ = viper.BindPFlag("detector", pf.Lookup("detector"))
	_ = viper.BindPFlag("tolerance_kev", pf.Lookup("tolerance"))
	_ = viper.BindPFlag("min_confidence", pf.Lookup("min-confidence"))
	_ = viper.BindPFlag("max_isotopes", pf.Lookup("max-isotopes"))
	_ = viper.BindPFlag("snip_iterations", pf.Lookup("snip-iterations"))
	_ = viper.BindPFlag("snr_threshold", pf.Lookup("snr-threshold"))
	_ = viper.BindPFlag("min_chain_confidence", pf.Lookup("min-chain-confidence"))
	_ = viper.BindPFlag("estimate_roi", pf.Lookup("roi"))
	_ = viper.BindPFlag("quiet", pf.Lookup("quiet"))
}

// initConfig layers config file and environment over the flag defaults.
func initConfig() {
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName(".gammaspec")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
	}

	viper.SetEnvPrefix("GAMMASPEC")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig unmarshals and validates the final configuration.
func loadConfig() error {
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("unmarshal configuration: %w", err)
	}
	return cfg.Validate()
}
