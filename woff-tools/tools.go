package main

import (
	"fmt"
	"os"

	"github.com/npillmayer/schuko/schukonf/testconfig"
	"github.com/npillmayer/schuko/tracing"
	"github.com/npillmayer/schuko/tracing/gologadapter"
	"github.com/npillmayer/schuko/tracing/trace2go"
	"github.com/pterm/pterm"
	"github.com/thatisuday/commando"
)

// tracer traces with key 'font.webfont'
func tracer() tracing.Trace {
	return tracing.Select("font.webfont")
}

func main() {
	initDisplay()

	commando.
		SetExecutableName("woff-tools").
		SetVersion("v0.1.0").
		SetDescription("CLI for unpacking WOFF/WOFF2 web fonts into TTF/OTF files.")

	commando.
		Register(nil).
		AddFlag("verbose,V", "display additional output", commando.Bool, nil)

	commando.
		Register("decode").
		SetDescription("Decode a WOFF or WOFF2 file into the SFNT font it wraps (TTF, OTF or TTC).").
		SetShortDescription("unpack a web font").
		AddArgument("input", "web font file path", "").
		AddFlag("output,o", "output font file", commando.String, "-").
		AddFlag("split,s", "write one file per collection font", commando.Bool, nil).
		AddFlag("trace,t", "trace level [Debug|Info|Error]", commando.String, "Error").
		SetAction(runDecodeCommand)

	commando.
		Register("info").
		SetDescription("Print container format, size and font names of a web font file.").
		SetShortDescription("web font diagnostics").
		AddArgument("input", "web font file path", "").
		AddFlag("trace,t", "trace level [Debug|Info|Error]", commando.String, "Error").
		SetAction(runInfoCommand)

	commando.
		Register("meta").
		SetDescription("Print the extended metadata block (XML) of a web font file.").
		SetShortDescription("extract metadata").
		AddArgument("input", "web font file path", "").
		AddFlag("trace,t", "trace level [Debug|Info|Error]", commando.String, "Error").
		SetAction(runMetaCommand)

	commando.Parse(nil)
}

// We use pterm for moderately fancy output.
func initDisplay() {
	pterm.EnableDebugMessages()
	pterm.Error.Prefix = pterm.Prefix{
		Text:  " Error",
		Style: pterm.NewStyle(pterm.BgRed, pterm.FgBlack),
	}
}

// setupTracing routes all module trace keys to the Go standard logger.
func setupTracing(level string) {
	tracing.RegisterTraceAdapter("go", gologadapter.GetAdapter(), false)
	conf := testconfig.Conf{
		"tracing.adapter":    "go",
		"trace.font.webfont": level,
		"trace.font.woff2":   level,
		"trace.font.woff1":   level,
		"trace.font.sfnt":    level,
	}
	if err := trace2go.ConfigureRoot(conf, "trace", trace2go.ReplaceTracers(true)); err != nil {
		fmt.Println("error configuring tracing")
		os.Exit(1)
	}
	tracing.SetTraceSelector(trace2go.Selector())
}

func fatalf(format string, args ...any) {
	pterm.Error.Printfln(format, args...)
	os.Exit(1)
}
