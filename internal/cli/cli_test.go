package cli

import (
	"bytes"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/songlab/internal/domain/model"
	"github.com/okian/songlab/internal/domain/scoring"
)

func sampleReport() model.Report {
	return scoring.Evaluate(model.AnalysisResult{
		Metrics: model.MetricsRecord{
			model.MetricF0MeanHz:       348,
			model.MetricF0MedianHz:     342,
			model.MetricF2Hz:           1890,
			model.MetricChestHeadRatio: 1.42,
			model.MetricClarity:        0.68,
			model.MetricPowerDB:        -11.7,
		},
		Interpretation: "Warm tone. Solid support. Watch the top notes. Practise sirens daily.",
	})
}

func TestRenderReport(t *testing.T) {
	convey.Convey("Given a scored report", t, func() {
		r := sampleReport()
		out := RenderReport(&r)

		convey.Convey("Then the type code and every axis should be shown", func() {
			convey.So(out, convey.ShouldContainSubstring, "Vocal type BLCP")
			for _, label := range []string{"Brightness", "Thickness", "Clarity", "Power", "Dark", "Energetic"} {
				convey.So(out, convey.ShouldContainSubstring, label)
			}
			convey.So(out, convey.ShouldContainSubstring, "●")
			convey.So(out, convey.ShouldNotContainSubstring, "(fallback)")
		})

		convey.Convey("Then the feedback sections should be shown", func() {
			convey.So(out, convey.ShouldContainSubstring, "Warm tone.")
			convey.So(out, convey.ShouldContainSubstring, "Pitch")
			convey.So(out, convey.ShouldContainSubstring, "Practice:")
		})
	})

	convey.Convey("Given a report scored without metrics", t, func() {
		r := scoring.Evaluate(model.AnalysisResult{Metrics: model.MetricsRecord{}})
		out := RenderReport(&r)

		convey.Convey("Then fallback axes should be flagged", func() {
			convey.So(out, convey.ShouldContainSubstring, "(fallback)")
		})
	})

	convey.Convey("Given an empty report", t, func() {
		out := RenderReport(&model.Report{})

		convey.Convey("Then the type code should render as a dash", func() {
			convey.So(out, convey.ShouldContainSubstring, "Vocal type -")
		})
	})
}

func TestPrintHelpers(t *testing.T) {
	convey.Convey("Given a buffer", t, func() {
		var buf bytes.Buffer

		convey.Convey("When printing the version", func() {
			PrintVersion(&buf, "1.2.3")

			convey.Convey("Then the version should be written", func() {
				convey.So(buf.String(), convey.ShouldContainSubstring, "micmeter")
				convey.So(buf.String(), convey.ShouldContainSubstring, "1.2.3")
			})
		})

		convey.Convey("When printing an error", func() {
			PrintError(&buf, "device busy")

			convey.Convey("Then the message should be prefixed", func() {
				convey.So(buf.String(), convey.ShouldContainSubstring, "Error:")
				convey.So(buf.String(), convey.ShouldContainSubstring, "device busy")
			})
		})
	})
}

type helpCLI struct {
	Verbose bool `short:"V" help:"Chatty output"`

	Run struct {
		Limit int `default:"5" help:"How many"`
	} `cmd:"" help:"Run something"`
	Show struct {
		File string `arg:"" help:"File to show"`
	} `cmd:"" help:"Show a file"`
}

func TestStyledHelpPrinter(t *testing.T) {
	convey.Convey("Given a kong parser using the styled help", t, func() {
		var buf bytes.Buffer
		parser, err := kong.New(&helpCLI{},
			kong.Name("micmeter"),
			kong.Writers(&buf, &buf),
			kong.Exit(func(int) {}),
			kong.Help(StyledHelpPrinter(kong.HelpOptions{Compact: true})),
		)
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("When top-level help is requested", func() {
			_, _ = parser.Parse([]string{"--help"})
			out := buf.String()

			convey.Convey("Then commands and flags should be listed", func() {
				convey.So(out, convey.ShouldContainSubstring, Description)
				convey.So(out, convey.ShouldContainSubstring, "Commands:")
				convey.So(out, convey.ShouldContainSubstring, "run")
				convey.So(out, convey.ShouldContainSubstring, "Show a file")
				convey.So(out, convey.ShouldContainSubstring, "--verbose")
			})
		})

		convey.Convey("When help for a command is requested", func() {
			_, _ = parser.Parse([]string{"show", "--help"})
			out := buf.String()

			convey.Convey("Then its arguments should be listed", func() {
				convey.So(out, convey.ShouldContainSubstring, "Show a file")
				convey.So(out, convey.ShouldContainSubstring, "Arguments:")
				convey.So(out, convey.ShouldContainSubstring, "File to show")
			})
		})
	})
}
