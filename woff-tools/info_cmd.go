package main

import (
	"os"
	"strconv"
	"strings"

	"github.com/npillmayer/webfont"
	"github.com/npillmayer/webfont/internal/fontcheck"
	"github.com/npillmayer/webfont/woff1"
	"github.com/npillmayer/webfont/woff2"
	"github.com/pterm/pterm"
	"github.com/thatisuday/commando"
)

func runInfoCommand(args map[string]commando.ArgValue, flags map[string]commando.FlagValue) {
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
	rows := pterm.TableData{
		{"file", input},
		{"container", format.String()},
		{"container size", strconv.Itoa(len(data)) + " bytes"},
	}

	out, err := webfont.Decode(data)
	if err != nil {
		fatalf("decode failed: %v", err)
	}
	rows = append(rows, []string{"font size", strconv.Itoa(len(out)) + " bytes"})
	if webfont.DetectFormat(out) == webfont.FormatTTC {
		n, err := fontcheck.ValidateCollection(out)
		if err != nil {
			fatalf("reconstructed collection does not parse: %v", err)
		}
		rows = append(rows, []string{"fonts", strconv.Itoa(n)})
	} else {
		name, err := fontcheck.Validate(out)
		if err != nil {
			fatalf("reconstructed font does not parse: %v", err)
		}
		if name != "" {
			rows = append(rows, []string{"name", name})
		}
	}
	if err := pterm.DefaultTable.WithData(rows).Render(); err != nil {
		fatalf("%v", err)
	}
}

func runMetaCommand(args map[string]commando.ArgValue, flags map[string]commando.FlagValue) {
	setupTracing(mustFlagString(flags["trace"], "trace"))
	input := strings.TrimSpace(args["input"].Value)
	if input == "" {
		fatalf("input path is required")
	}
	data, err := os.ReadFile(input)
	if err != nil {
		fatalf("%v", err)
	}
	var meta []byte
	switch webfont.DetectFormat(data) {
	case webfont.FormatWOFF2:
		meta, err = woff2.Metadata(data)
	case webfont.FormatWOFF:
		meta, err = woff1.Metadata(data)
	default:
		fatalf("%s: not a web font container", input)
	}
	if err != nil {
		fatalf("%v", err)
	}
	if meta == nil {
		pterm.Info.Println("no metadata block")
		return
	}
	os.Stdout.Write(meta)
}
