package cmd

import (
	"image"

	"github.com/keyforge/keyforge/internal/imagematch"
	"github.com/keyforge/keyforge/internal/output"
	"github.com/keyforge/keyforge/internal/platform"
	"github.com/spf13/cobra"
)

// FindResult is the output of the find command. Found=false is a normal
// outcome, not an error.
type FindResult struct {
	OK         bool    `yaml:"ok"                   json:"ok"`
	Action     string  `yaml:"action"               json:"action"`
	Found      bool    `yaml:"found"                json:"found"`
	X          int     `yaml:"x,omitempty"          json:"x,omitempty"`
	Y          int     `yaml:"y,omitempty"          json:"y,omitempty"`
	Confidence float64 `yaml:"confidence,omitempty" json:"confidence,omitempty"`
}

var findCmd = &cobra.Command{
	Use:   "find <template.png>",
	Short: "Locate a template image on screen",
	Long: `Capture the screen and search for the template image. Prints the
match location and confidence, or found: false when the template does not
appear at the requested confidence.

Example:
  keyforge find ok-button.png --min-confidence 0.9 --region 0,0,800,600`,
	Args: cobra.ExactArgs(1),
	RunE: runFind,
}

func init() {
	rootCmd.AddCommand(findCmd)
	findCmd.Flags().Float64("min-confidence", 0.8, "Minimum match confidence in [0,1]")
	findCmd.Flags().String("region", "", "Restrict search to x,y,w,h")
}

func runFind(cmd *cobra.Command, args []string) error {
	minConf, _ := cmd.Flags().GetFloat64("min-confidence")
	region, _ := cmd.Flags().GetString("region")

	if err := imagematch.Validate(minConf); err != nil {
		return err
	}

	provider, err := platform.NewProvider()
	if err != nil {
		return err
	}

	tmpl, err := imagematch.LoadTemplate(args[0])
	if err != nil {
		return err
	}

	var img image.Image
	if region != "" {
		b, err := imagematch.ParseRegion(region)
		if err != nil {
			return err
		}
		img, err = provider.Screenshotter.CaptureRegion(b[0], b[1], b[2], b[3])
		if err != nil {
			return err
		}
	} else {
		img, err = provider.Screenshotter.CaptureScreen()
		if err != nil {
			return err
		}
	}

	m, found := imagematch.FindMatch(img, tmpl, minConf)
	result := FindResult{OK: true, Action: "find", Found: found}
	if found {
		result.X, result.Y, result.Confidence = m.X, m.Y, m.Confidence
	}
	return output.Print(result)
}
