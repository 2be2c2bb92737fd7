package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/npillmayer/webfont"
	"github.com/npillmayer/webfont/woff2"
	"github.com/pterm/pterm"
	"github.com/thatisuday/commando"
)

func runDecodeCommand(args map[string]commando.ArgValue, flags map[string]commando.FlagValue) {
	setupTracing(mustFlagString(flags["trace"], "trace"))
	input := strings.TrimSpace(args["input"].Value)
	if input == "" {
		fatalf("input path is required")
	}
	data, err := os.ReadFile(input)
	if err != nil {
		fatalf("%v", err)
	}
	format := webfont.DetectFormat(data)
	if format == webfont.FormatUnknown {
		fatalf("%s: not a recognized font format", input)
	}

	if mustFlagBool(flags["split"], "split") && format == webfont.FormatWOFF2 {
		fonts, err := woff2.DecodeFonts(data)
		if err != nil {
			fatalf("decode failed: %v", err)
		}
		base := outputBase(flags, input)
		for i, font := range fonts {
			name := base
			if len(fonts) > 1 {
				name = fmt.Sprintf("%s.%d", base, i)
			}
			writeFont(name+extensionFor(font), font)
		}
		return
	}

	out, err := webfont.Decode(data)
	if err != nil {
		fatalf("decode failed: %v", err)
	}
	writeFont(outputBase(flags, input)+extensionFor(out), out)
}

// outputBase yields the output path without extension: the --output flag
// stripped of its extension, or the input name next to the input file.
func outputBase(flags map[string]commando.FlagValue, input string) string {
	if out := mustFlagString(flags["output"], "output"); out != "-" {
		return strings.TrimSuffix(out, filepath.Ext(out))
	}
	return strings.TrimSuffix(input, filepath.Ext(input))
}

func extensionFor(font []byte) string {
	switch webfont.DetectFormat(font) {
	case webfont.FormatTTC:
		return ".ttc"
	case webfont.FormatSFNT:
		if string(font[:4]) == "OTTO" {
			return ".otf"
		}
		return ".ttf"
	}
	return ".bin"
}

func writeFont(path string, font []byte) {
	if err := os.WriteFile(path, font, 0644); err != nil {
		fatalf("%v", err)
	}
	pterm.Success.Printfln("wrote %s (%d bytes)", path, len(font))
}

func mustFlagString(flag commando.FlagValue, name string) string {
	s, err := flag.GetString()
	if err != nil {
		fatalf("invalid --%s flag: %v", name, err)
	}
	return s
}

func mustFlagBool(flag commando.FlagValue, name string) bool {
	b, err := flag.GetBool()
	if err != nil {
		fatalf("invalid --%s flag: %v", name, err)
	}
	return b
}
