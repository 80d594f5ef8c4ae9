package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// render writes v as JSON or YAML when requested, and otherwise calls text.
func render(v any, text func() error) error {
	return renderTo(os.Stdout, viper.GetString("output"), v, text)
}

func renderTo(w io.Writer, format string, v any, text func() error) error {
	switch format {
	case "", "text":
		return text()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// table renders rows with a header line.
func table(headers []string, rows [][]string) error {
	if len(rows) == 0 {
		pterm.Warning.Println("Nothing to show.")
		return nil
	}

	data := pterm.TableData{headers}
	data = append(data, rows...)
	if err := pterm.DefaultTable.WithHasHeader(true).WithData(data).Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}
	return nil
}

// progressBar shows transfer progress in the terminal.
type progressBar struct {
	title string
	bar   *pterm.ProgressbarPrinter
}

func newProgressBar(title string) *progressBar {
	return &progressBar{title: title}
}

// Update matches client.ProgressFunc.
func (p *progressBar) Update(current, total uint64) bool {
	if total == 0 {
		return true
	}
	if p.bar == nil {
		bar, err := pterm.DefaultProgressbar.
			WithTotal(int(total)).
			WithTitle(p.title).
			Start()
		if err != nil {
			return true
		}
		p.bar = bar
	}
	p.bar.Add(int(current) - p.bar.Current)
	return true
}

func (p *progressBar) Stop() {
	if p.bar != nil {
		_, _ = p.bar.Stop()
		p.bar = nil
	}
}
