package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/radwatch/gammacore"
	"github.com/radwatch/gammacore/internal/processing"
	"github.com/radwatch/gammacore/internal/utils"
	"github.com/radwatch/gammacore/pkg/models"
	"github.com/spf13/cobra"
)

var (
	highColor   = color.New(color.FgRed, color.Bold)
	mediumColor = color.New(color.FgYellow, color.Bold)
	lowColor    = color.New(color.FgHiBlack)
	okColor     = color.New(color.FgGreen)
)

var jsonOut bool

var analyzeCmd = &cobra.Command{
	Use:   "analyze <spectrum.json>",
	Short: "Analyze one spectrum file and print the findings.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return err
		}
		upload, err := readSpectrumFile(args[0])
		if err != nil {
			return err
		}

		processor := processing.New()
		record, err := processor.Process(utils.GenerateID(), upload, cfg)
		if err != nil {
			return err
		}

		if jsonOut {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(record)
		}
		printRecord(record)
		return nil
	},
}

func init() {
	analyzeCmd.Flags().BoolVar(&jsonOut, "json", false, "emit the raw analysis record as JSON")
	rootCmd.AddCommand(analyzeCmd)
}

// readSpectrumFile loads an uploaded-spectrum JSON document.
func readSpectrumFile(path string) (models.SpectrumUpload, error) {
	var upload models.SpectrumUpload
	data, err := os.ReadFile(path)
	if err != nil {
		return upload, fmt.Errorf("read spectrum file: %w", err)
	}
	if err := json.Unmarshal(data, &upload); err != nil {
		return upload, fmt.Errorf("parse spectrum file: %w", err)
	}
	if upload.Detector == "" {
		upload.Detector = cfg.Detector
	}
	return upload, nil
}

func printRecord(record models.AnalysisRecord) {
	fmt.Printf("Spectrum: %d channels, max count %.0f", record.Channels, record.MaxCount)
	if record.BackgroundApplied {
		fmt.Print(", background subtracted")
	}
	fmt.Printf(", %d peaks, %.1f ms\n\n", len(record.Peaks), record.ProcessingTimeMs)

	if len(record.Peaks) > 0 {
		fmt.Println("Peaks:")
		table := tablewriter.NewWriter(os.Stdout)
		table.Header([]string{"Channel", "Energy keV", "Net Area", "FWHM keV", "Res %", "Fit"})
		for _, p := range record.Peaks {
			fit := "ok"
			if !p.FitSuccess {
				fit = "raw"
			}
			table.Append([]string{
				fmt.Sprintf("%d", p.Channel),
				fmt.Sprintf("%.1f", p.EnergyKeV),
				fmt.Sprintf("%.0f", p.NetArea),
				fmt.Sprintf("%.1f", p.FWHMKeV),
				fmt.Sprintf("%.1f", p.ResolutionPct),
				fit,
			})
		}
		table.Render()
		fmt.Println()
	}

	if len(record.Isotopes) == 0 {
		fmt.Println("No isotopes above the confidence threshold.")
	} else {
		fmt.Println("Isotopes:")
		table := tablewriter.NewWriter(os.Stdout)
		table.Header([]string{"Isotope", "Confidence", "Lines", "Energy", "Intensity", "Fit", "SNR", "Multi"})
		for _, m := range record.Isotopes {
			table.Append([]string{
				m.Isotope,
				confidenceLabel(m.Confidence),
				fmt.Sprintf("%d/%d", m.MatchedLines, m.TotalLines),
				fmt.Sprintf("%.1f", m.Breakdown.Energy),
				fmt.Sprintf("%.1f", m.Breakdown.Intensity),
				fmt.Sprintf("%.1f", m.Breakdown.Fit),
				fmt.Sprintf("%.1f", m.Breakdown.SNR),
				fmt.Sprintf("%.1f", m.Breakdown.MultiLine),
			})
		}
		table.Render()
		fmt.Println()
	}

	for _, c := range record.Chains {
		level := string(c.Level)
		switch c.Level {
		case gammacore.ConfidenceHigh:
			level = highColor.Sprint(level)
		case gammacore.ConfidenceMedium:
			level = mediumColor.Sprint(level)
		default:
			level = lowColor.Sprint(level)
		}
		fmt.Printf("Decay chain %s: %s (%.1f%%, %d key indicators)\n", c.Chain, level, c.Confidence, c.DetectedKeyCount)
		fmt.Printf("  likely sources: %v\n", c.Applications)
	}
	if len(record.Chains) > 0 {
		fmt.Println()
	}

	for _, roi := range record.ROI {
		if roi.IsMDA {
			fmt.Printf("ROI %s [%.0f-%.0f keV]: below detection limit, MDA %.2f Bq\n",
				roi.Isotope, roi.WindowLowKeV, roi.WindowHighKeV, roi.MDABq)
		} else {
			fmt.Printf("ROI %s [%.0f-%.0f keV]: %s ± %.0f net counts, %.2f Bq (%.4f µCi)\n",
				roi.Isotope, roi.WindowLowKeV, roi.WindowHighKeV,
				okColor.Sprintf("%.0f", roi.NetCounts), roi.Uncertainty,
				roi.ActivityBq, roi.ActivityMicroCi)
		}
	}

	if record.Enrichment != nil {
		fmt.Printf("Uranium 186/93 keV ratio %.2f: %s\n", record.Enrichment.Ratio, record.Enrichment.Category)
	}
}

// confidenceLabel colors confidence by band.
func confidenceLabel(conf float64) string {
	s := fmt.Sprintf("%.1f%%", conf)
	switch {
	case conf >= 70:
		return okColor.Sprint(s)
	case conf >= 50:
		return mediumColor.Sprint(s)
	default:
		return lowColor.Sprint(s)
	}
}
